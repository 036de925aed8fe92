package usecase

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

const (
	rankExactMatch    = 1000
	rankPrefixMatch   = 500
	rankContainsMatch = 200
	rankGenericMatch  = 100
	rankBrandMatch    = 50
	rankLengthCeiling = 50
)

// Rank orders results for query by RankScore, highest first. Equal scores
// keep input order. The input slice is not modified.
func Rank(results []domain.DrugSearchResult, query string) []domain.DrugSearchResult {
	type scored struct {
		result domain.DrugSearchResult
		score  int
	}

	q := strings.ToLower(strings.TrimSpace(query))
	items := make([]scored, 0, len(results))
	for _, r := range results {
		items = append(items, scored{result: r.Clone(), score: rankScore(r, q)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	out := make([]domain.DrugSearchResult, 0, len(items))
	for _, item := range items {
		out = append(out, item.result)
	}
	return out
}

// RankScore is the fine-grained score of one result for query. The store's
// RelevanceScore tier is not part of it.
func RankScore(result domain.DrugSearchResult, query string) int {
	return rankScore(result, strings.ToLower(strings.TrimSpace(query)))
}

func rankScore(r domain.DrugSearchResult, q string) int {
	name := strings.ToLower(r.DisplayName)

	score := 0
	switch {
	case name == q:
		score += rankExactMatch
	case strings.HasPrefix(name, q):
		score += rankPrefixMatch
	case strings.Contains(name, q):
		score += rankContainsMatch
	}

	if r.GenericName != "" && strings.Contains(strings.ToLower(r.GenericName), q) {
		score += rankGenericMatch
	}

	for _, brand := range r.BrandNames {
		if strings.Contains(strings.ToLower(brand), q) {
			score += rankBrandMatch
			break
		}
	}

	if bonus := rankLengthCeiling - utf8.RuneCountInString(r.DisplayName); bonus > 0 {
		score += bonus
	}
	return score
}
