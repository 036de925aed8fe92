package domain

// RawHit is a candidate as returned by a fetcher or store before the source
// tag has been mapped onto the catalogue.
type RawHit struct {
	Identity   string  `json:"identity,omitempty"`
	Source     string  `json:"source"`
	ExternalID string  `json:"id"`
	URL        string  `json:"url,omitempty"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type RetrievedDocument struct {
	DrugIdentity string  `json:"identity,omitempty"`
	Source       Source  `json:"source"`
	ExternalID   string  `json:"id"`
	URL          string  `json:"url,omitempty"`
	Title        string  `json:"title,omitempty"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
}

func (d RetrievedDocument) Reference() SourceReference {
	return SourceReference{Source: d.Source, ExternalID: d.ExternalID, URL: d.URL}
}

// IdentityKey returns the grouping key, folding a missing identity into the
// UnknownIdentity bucket.
func (d RetrievedDocument) IdentityKey() string {
	if d.DrugIdentity == "" {
		return UnknownIdentity
	}
	return d.DrugIdentity
}
