package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

var combinationConnectors = []string{"and", "with", "plus", "+", "-"}

// Classify picks the store query strategy for a raw search query. Connectors
// are matched as substrings, so a generic such as "candesartan" classifies as
// a combination. Case is read from the query as typed.
func Classify(query string) domain.Strategy {
	lowered := strings.ToLower(query)
	for _, connector := range combinationConnectors {
		if strings.Contains(lowered, connector) {
			return domain.StrategyCombination
		}
	}

	length := utf8.RuneCountInString(query)
	if isUpperCased(query) {
		return domain.StrategyBrand
	}
	if first, _ := utf8.DecodeRuneInString(query); unicode.IsUpper(first) && length > 3 {
		return domain.StrategyBrand
	}
	if isLowerCased(query) && length > 3 {
		return domain.StrategyGenericOnly
	}
	return domain.StrategyGeneral
}

// isUpperCased reports whether s has at least one cased letter and no
// lower-case ones.
func isUpperCased(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

func isLowerCased(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}
