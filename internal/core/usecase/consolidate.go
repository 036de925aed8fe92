package usecase

import (
	"regexp"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

const maxMergedBrandNames = 5

var doseListPattern = regexp.MustCompile(`\(([^()]*)\)\s*$`)

// Consolidate collapses per-formulation results that share a base name into
// one entry per logical drug. Group order follows the first appearance of
// each group's earliest member.
func Consolidate(results []domain.DrugSearchResult) []domain.DrugSearchResult {
	groups := orderedmap.New[string, []domain.DrugSearchResult]()
	for _, r := range results {
		key := consolidationKey(r.DisplayName)
		members, _ := groups.Get(key)
		groups.Set(key, append(members, r))
	}

	out := make([]domain.DrugSearchResult, 0, groups.Len())
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		if len(pair.Value) == 1 {
			out = append(out, pair.Value[0].Clone())
			continue
		}
		out = append(out, mergeGroup(pair.Key, pair.Value))
	}
	return out
}

// consolidationKey never groups unrelated names whose base name is empty.
func consolidationKey(displayName string) string {
	if base := BaseName(displayName); base != "" {
		return base
	}
	return "\x00" + strings.ToLower(strings.TrimSpace(displayName))
}

func mergeGroup(base string, members []domain.DrugSearchResult) domain.DrugSearchResult {
	first := members[0]
	merged := domain.DrugSearchResult{
		ID:           first.ID,
		GenericName:  first.GenericName,
		SourceTag:    first.SourceTag,
		MatchType:    first.MatchType,
		DrugClass:    first.DrugClass,
		BrandNames:   []string{},
		CommonUses:   []string{},
		OriginalName: "",
	}

	identities := newOrderedSet(false)
	brands := newOrderedSet(true)
	var doses []DoseToken
	seenDoses := make(map[string]struct{})
	classChosen := false

	merged.Identity = first.Identity
	for _, m := range members {
		identities.add(m.Identity)
		for _, related := range m.RelatedIdentities {
			identities.add(related)
		}

		for _, brand := range m.BrandNames {
			if brands.len() >= maxMergedBrandNames {
				break
			}
			brands.add(brand)
		}

		if len(m.CommonUses) > len(merged.CommonUses) {
			merged.CommonUses = append([]string(nil), m.CommonUses...)
		}

		if !classChosen && m.DrugClass != "" && m.DrugClass != domain.GenericDrugClass {
			merged.DrugClass = m.DrugClass
			classChosen = true
		}

		if m.RelevanceScore > merged.RelevanceScore {
			merged.RelevanceScore = m.RelevanceScore
		}

		for _, dose := range memberDoses(m) {
			label := dose.String()
			if _, dup := seenDoses[label]; !dup {
				seenDoses[label] = struct{}{}
				doses = append(doses, dose)
			}
		}
	}

	merged.RelatedIdentities = identities.values()
	merged.BrandNames = brands.values()

	display := TitleCase(strings.TrimPrefix(base, "\x00"))
	if len(doses) > 0 {
		SortDoses(doses)
		labels := make([]string, 0, len(doses))
		for _, d := range doses {
			labels = append(labels, d.String())
		}
		display += " (" + strings.Join(labels, ", ") + ")"
	}
	merged.DisplayName = display
	return merged
}

// memberDoses takes the first strength of a member's original name. An
// already consolidated entry carries its whole dose list in a trailing
// "(d1, d2)" group, and all of those doses are kept.
func memberDoses(m domain.DrugSearchResult) []DoseToken {
	if m.OriginalName == "" {
		if match := doseListPattern.FindStringSubmatch(m.DisplayName); match != nil {
			if tokens := ParseDoses(match[1]); len(tokens) > 0 {
				return tokens
			}
		}
	}
	if dose, ok := FirstDose(m.NameSource()); ok {
		return []DoseToken{dose}
	}
	return nil
}

// orderedSet keeps first-seen order and drops blanks and duplicates.
type orderedSet struct {
	foldCase bool
	seen     map[string]struct{}
	items    []string
}

func newOrderedSet(foldCase bool) *orderedSet {
	return &orderedSet{foldCase: foldCase, seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	key := v
	if s.foldCase {
		key = strings.ToLower(v)
	}
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) len() int { return len(s.items) }

func (s *orderedSet) values() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}
