package labels

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	inlineSpace   = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	blankLines    = regexp.MustCompile(`\n\s*\n+`)
	sentenceBreak = regexp.MustCompile(`[.!?]\s`)
)

// blockTags start a new line when cleaning label markup.
var blockTags = map[atom.Atom]struct{}{
	atom.Br:      {},
	atom.P:       {},
	atom.Div:     {},
	atom.Section: {},
	atom.Li:      {},
	atom.Tr:      {},
	atom.Table:   {},
	atom.Ul:      {},
	atom.Ol:      {},
	atom.H1:      {},
	atom.H2:      {},
	atom.H3:      {},
	atom.H4:      {},
}

// CleanMarkup turns label HTML or SPL XML fragments into readable text.
// Entities are decoded and paragraph breaks are kept.
func CleanMarkup(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return normalizeText(b.String())
		case html.TextToken:
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if _, ok := blockTags[atom.Lookup(name)]; ok {
				b.WriteByte('\n')
			}
		}
	}
}

func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	joined := strings.Join(lines, "\n")
	joined = blankLines.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}

// Truncate cuts text to at most maxLen bytes, preferring the last complete
// sentence. Text without a sentence break is cut at half the budget.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	head := text[:maxLen]
	breaks := sentenceBreak.FindAllStringIndex(head+" ", -1)
	if len(breaks) > 0 {
		last := breaks[len(breaks)-1]
		return strings.TrimSpace(head[:last[0]+1])
	}
	cut := maxLen / 2
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return strings.TrimSpace(text[:cut]) + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
