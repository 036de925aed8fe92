package domain

import "time"

// DrugEntry is one curated catalogue row as written by the import pipeline.
type DrugEntry struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Type              DrugType   `json:"drug_type"`
	GenericName       string     `json:"generic_name,omitempty"`
	BrandNames        []string   `json:"brand_names"`
	DrugClass         string     `json:"drug_class,omitempty"`
	CommonUses        []string   `json:"common_uses"`
	RxNormID          string     `json:"rxnorm_id,omitempty"`
	PrimarySearchTerm string     `json:"primary_search_term"`
	SearchTerms       []string   `json:"search_terms"`
	DataSource        string     `json:"data_source"`
	Status            DrugStatus `json:"status"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusReady      ImportStatus = "ready"
	ImportStatusFailed     ImportStatus = "failed"
)

// ImportRequest asks the worker to pull a drug missing from the catalogue
// from the nomenclature source.
type ImportRequest struct {
	ID        string       `json:"id"`
	DrugName  string       `json:"drug_name"`
	Status    ImportStatus `json:"status"`
	DrugID    string       `json:"drug_id,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
