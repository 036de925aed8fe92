package domain

import (
	"slices"
	"time"
)

// GenericDrugClass is the placeholder class assigned when nothing better is known.
const GenericDrugClass = "Medication"

type Strategy string

const (
	StrategyCombination Strategy = "combination"
	StrategyBrand       Strategy = "brand"
	StrategyGenericOnly Strategy = "genericOnly"
	StrategyGeneral     Strategy = "general"
)

type DrugType string

const (
	DrugTypeGeneric     DrugType = "generic"
	DrugTypeBrand       DrugType = "brand"
	DrugTypeCombination DrugType = "combination"
)

type DrugStatus string

const (
	DrugStatusActive DrugStatus = "active"
	DrugStatusHidden DrugStatus = "hidden"
)

// Relevance tiers assigned by the store query itself.
const (
	RelevanceExactTerm   = 100
	RelevanceLowerName   = 90
	RelevanceDefault     = 80
	RelevanceGeneralBase = 70
)

type Rating struct {
	DrugID      string    `json:"drug_id"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	TotalVotes  int       `json:"total_votes"`
	Score       float64   `json:"rating_score"`
	Hidden      bool      `json:"is_hidden"`
	LastUpdated time.Time `json:"last_updated"`
}

type DrugSearchResult struct {
	ID                string   `json:"id,omitempty"`
	Identity          string   `json:"identity,omitempty"`
	DisplayName       string   `json:"name"`
	OriginalName      string   `json:"original_name,omitempty"`
	GenericName       string   `json:"generic_name,omitempty"`
	BrandNames        []string `json:"brand_names"`
	CommonUses        []string `json:"common_uses"`
	DrugClass         string   `json:"drug_class,omitempty"`
	SourceTag         string   `json:"source"`
	RelevanceScore    float64  `json:"relevance_score"`
	MatchType         string   `json:"match_type"`
	RelatedIdentities []string `json:"all_identities,omitempty"`
	Rating            *Rating  `json:"rating,omitempty"`
}

// Clone returns a deep copy so pipeline stages never alias slices.
func (r DrugSearchResult) Clone() DrugSearchResult {
	out := r
	out.BrandNames = slices.Clone(r.BrandNames)
	out.CommonUses = slices.Clone(r.CommonUses)
	out.RelatedIdentities = slices.Clone(r.RelatedIdentities)
	if r.Rating != nil {
		rating := *r.Rating
		out.Rating = &rating
	}
	return out
}

// NameSource is the name a dose is read from: the pre-merge name when set.
func (r DrugSearchResult) NameSource() string {
	if r.OriginalName != "" {
		return r.OriginalName
	}
	return r.DisplayName
}

func (r DrugSearchResult) WithDisplayName(name string) DrugSearchResult {
	out := r.Clone()
	if out.OriginalName == "" {
		out.OriginalName = r.DisplayName
	}
	out.DisplayName = name
	return out
}

func (r DrugSearchResult) WithRelevance(score float64, matchType string) DrugSearchResult {
	out := r.Clone()
	out.RelevanceScore = score
	if matchType != "" {
		out.MatchType = matchType
	}
	return out
}

func (r DrugSearchResult) WithRating(rating Rating) DrugSearchResult {
	out := r.Clone()
	out.Rating = &rating
	return out
}

// SearchEvent is published after each search so that statistics can be
// updated out of band.
type SearchEvent struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Strategy    Strategy  `json:"strategy"`
	ResultIDs   []string  `json:"result_ids"`
	ResultCount int       `json:"result_count"`
	DurationMS  float64   `json:"duration_ms"`
	CacheHit    bool      `json:"cache_hit"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

func ParseVoteType(raw string) (VoteType, bool) {
	switch VoteType(raw) {
	case VoteUp, VoteDown:
		return VoteType(raw), true
	default:
		return "", false
	}
}

type Vote struct {
	ID        string    `json:"id"`
	DrugID    string    `json:"drug_id"`
	VoterID   string    `json:"voter_id"`
	Type      VoteType  `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
}
