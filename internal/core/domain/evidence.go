package domain

const (
	UnknownIdentity = "unknown"
	UnknownDrugName = "Unknown Drug"
)

type Field string

const (
	FieldDosage        Field = "dosage"
	FieldIndications   Field = "indications"
	FieldWarnings      Field = "warnings"
	FieldAdverseEvents Field = "adverseEvents"
	FieldInteractions  Field = "interactions"
	FieldMechanism     Field = "mechanism"
)

// KnownFields lists every field a unified record may carry, in display order.
var KnownFields = []Field{
	FieldDosage,
	FieldIndications,
	FieldWarnings,
	FieldAdverseEvents,
	FieldInteractions,
	FieldMechanism,
}

// DefaultDisagreementFields is the watch-list used when none is configured.
var DefaultDisagreementFields = []Field{FieldDosage, FieldWarnings, FieldInteractions}

func ParseField(raw string) (Field, bool) {
	for _, f := range KnownFields {
		if string(f) == raw {
			return f, true
		}
	}
	return "", false
}

type FieldEvidence struct {
	Value   string            `json:"value"`
	Sources []SourceReference `json:"sources"`
}

type UnifiedDrugRecord struct {
	IdentityKey string                    `json:"identity"`
	Name        string                    `json:"name"`
	Fields      map[Field][]FieldEvidence `json:"fields"`
	References  []SourceReference         `json:"references"`
}

// Evidence returns the evidence list for a field, or nil.
func (r UnifiedDrugRecord) Evidence(field Field) []FieldEvidence {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[field]
}

type Disagreement struct {
	IdentityKey string   `json:"identity"`
	Field       Field    `json:"field"`
	Values      []string `json:"values"`
}

type Unification struct {
	Records       []UnifiedDrugRecord `json:"records"`
	Disagreements []Disagreement      `json:"disagreements"`
}

type CrossCheckAnswer struct {
	Answer        string              `json:"answer"`
	Records       []UnifiedDrugRecord `json:"records"`
	Disagreements []Disagreement      `json:"disagreements"`
	Sources       []RetrievedDocument `json:"sources"`
}
