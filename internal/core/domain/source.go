package domain

import (
	"fmt"
	"strings"
)

// SourceCatalogVersion is bumped whenever a provider tag is added or removed.
const SourceCatalogVersion = 2

type Source string

const (
	SourceRxNorm   Source = "rxnorm"
	SourceDailyMed Source = "dailymed"
	SourceOpenFDA  Source = "openfda"
	SourceDrugBank Source = "drugbank"
	SourcePubChem  Source = "pubchem"
	SourceRxList   Source = "rxlist"
)

// CanonicalNomenclatureSource names drugs when several sources disagree on titles.
const CanonicalNomenclatureSource = SourceRxNorm

var knownSources = map[Source]struct{}{
	SourceRxNorm:   {},
	SourceDailyMed: {},
	SourceOpenFDA:  {},
	SourceDrugBank: {},
	SourcePubChem:  {},
	SourceRxList:   {},
}

// AllSources returns the closed catalogue in a stable order.
func AllSources() []Source {
	return []Source{SourceRxNorm, SourceDailyMed, SourceOpenFDA, SourceDrugBank, SourcePubChem, SourceRxList}
}

// ParseSource maps a raw provider tag onto the catalogue. Unknown tags are
// rejected with ErrUnknownSource.
func ParseSource(raw string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownSources[s]; !ok {
		return "", WrapError(ErrUnknownSource, "parse source", fmt.Errorf("tag=%q", raw))
	}
	return s, nil
}

func (s Source) Valid() bool {
	_, ok := knownSources[s]
	return ok
}

func (s Source) String() string { return string(s) }

type SourceReference struct {
	Source     Source `json:"source"`
	ExternalID string `json:"id"`
	URL        string `json:"url,omitempty"`
}

// Key identifies a physical upstream record across retrieval backends.
func (r SourceReference) Key() string {
	return string(r.Source) + "\x00" + r.ExternalID
}
