package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// doseUnits is the strength vocabulary, longest spelling first so that
// "mg/ml" wins over "mg".
var doseUnits = []string{"mcg/ml", "mg/ml", "mcg", "mg", "ml", "hr", "g", "%"}

var (
	annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	formWordPattern   = regexp.MustCompile(`(?i)\b(extended\s+release|tablets?|capsules?|solution|cream|gel|patch|drops|spray|inhaler|syrup|suspension|powder|oral|topical|injection|lotion)\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// DoseToken is one "<number><unit>" strength mention inside a drug name.
type DoseToken struct {
	Value float64
	// Number keeps the literal digits so "0.80" is not rewritten as "0.8".
	Number string
	Unit   string
	Start  int
	End    int
}

// String renders the token as a compact lower-case label, e.g. "5mg/ml".
func (t DoseToken) String() string {
	return t.Number + strings.ToLower(t.Unit)
}

// ParseDoses scans name left to right and returns every strength token.
// Grammar: DIGITS ["." DIGITS] SPACE* UNIT, where the number must not be
// glued to a preceding word and the unit must end at a word boundary.
func ParseDoses(name string) []DoseToken {
	var out []DoseToken
	for i := 0; i < len(name); {
		if !isDigit(name[i]) || (i > 0 && isWordByte(name[i-1])) {
			i++
			continue
		}
		token, ok := scanDose(name, i)
		if !ok {
			for i < len(name) && (isDigit(name[i]) || name[i] == '.') {
				i++
			}
			continue
		}
		out = append(out, token)
		i = token.End
	}
	return out
}

// FirstDose returns the first strength token of name.
func FirstDose(name string) (DoseToken, bool) {
	tokens := ParseDoses(name)
	if len(tokens) == 0 {
		return DoseToken{}, false
	}
	return tokens[0], true
}

// SortDoses orders tokens by numeric value; equal values keep input order.
func SortDoses(tokens []DoseToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].Value < tokens[j].Value
	})
}

// BaseName reduces a formulation-specific drug name to the lower-cased
// ingredient name used as the consolidation grouping key. Stripping repeats
// until the name stops changing, so BaseName(BaseName(x)) == BaseName(x).
func BaseName(name string) string {
	base := stripName(name)
	for {
		next := stripName(base)
		if next == base {
			return base
		}
		base = next
	}
}

func stripName(name string) string {
	stripped := annotationPattern.ReplaceAllString(name, " ")

	tokens := ParseDoses(stripped)
	if len(tokens) > 0 {
		var b strings.Builder
		prev := 0
		for _, t := range tokens {
			b.WriteString(stripped[prev:t.Start])
			b.WriteByte(' ')
			prev = t.End
		}
		b.WriteString(stripped[prev:])
		stripped = b.String()
	}

	stripped = formWordPattern.ReplaceAllString(stripped, " ")
	stripped = whitespacePattern.ReplaceAllString(stripped, " ")
	stripped = strings.Trim(strings.TrimSpace(stripped), ",-.;")
	return strings.ToLower(strings.TrimSpace(stripped))
}

// TitleCase renders a base name for display.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func scanDose(s string, start int) (DoseToken, bool) {
	i := start
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i+1 < len(s) && s[i] == '.' && isDigit(s[i+1]) {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	number := s[start:i]

	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	for _, unit := range doseUnits {
		end := j + len(unit)
		if end > len(s) || !strings.EqualFold(s[j:end], unit) {
			continue
		}
		if unit != "%" && end < len(s) && !unitBoundary(s, end) {
			continue
		}
		value, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return DoseToken{}, false
		}
		return DoseToken{
			Value:  value,
			Number: number,
			Unit:   s[j:end],
			Start:  start,
			End:    end,
		}, true
	}
	return DoseToken{}, false
}

// unitBoundary reports whether a unit may end before s[i]. A period ends the
// unit unless it starts a decimal.
func unitBoundary(s string, i int) bool {
	if s[i] == '.' {
		return i+1 >= len(s) || !isDigit(s[i+1])
	}
	return !isWordByte(s[i])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isWordByte(b byte) bool {
	if b >= 0x80 {
		return true
	}
	return b == '.' || b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}
