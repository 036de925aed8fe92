package labels

import (
	"fmt"
	"strings"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

// headingFields maps label headings (lower case) onto unified fields.
var headingFields = map[string]domain.Field{
	"dosage and administration": domain.FieldDosage,
	"dosage":                    domain.FieldDosage,
	"indications and usage":     domain.FieldIndications,
	"indications":               domain.FieldIndications,
	"indication":                domain.FieldIndications,
	"boxed warning":             domain.FieldWarnings,
	"boxed warnings":            domain.FieldWarnings,
	"warnings and precautions":  domain.FieldWarnings,
	"warnings":                  domain.FieldWarnings,
	"precautions":               domain.FieldWarnings,
	"adverse reactions":         domain.FieldAdverseEvents,
	"adverse events":            domain.FieldAdverseEvents,
	"reactions":                 domain.FieldAdverseEvents,
	"toxicity":                  domain.FieldAdverseEvents,
	"drug interactions":         domain.FieldInteractions,
	"interactions":              domain.FieldInteractions,
	"mechanism of action":       domain.FieldMechanism,
	"mechanism":                 domain.FieldMechanism,
	"clinical pharmacology":     domain.FieldMechanism,
}

// SectionExtractor reads "Heading: body" paragraphs separated by blank
// lines. The first paragraph mapped onto a field wins.
type SectionExtractor struct{}

func (SectionExtractor) Extract(doc domain.RetrievedDocument) (map[domain.Field]string, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("extract %s fields for %s: empty text", doc.Source, doc.ExternalID)
	}

	out := make(map[domain.Field]string)
	for _, paragraph := range strings.Split(doc.Text, "\n\n") {
		heading, body, ok := strings.Cut(strings.TrimSpace(paragraph), ":")
		if !ok || strings.Contains(heading, "\n") {
			continue
		}
		field, known := headingFields[strings.ToLower(strings.TrimSpace(heading))]
		body = strings.TrimSpace(body)
		if !known || body == "" {
			continue
		}
		if _, taken := out[field]; taken {
			continue
		}
		out[field] = body
	}
	return out, nil
}

// Registry returns the extractor for every catalogued source.
func Registry() map[domain.Source]ports.FieldExtractor {
	out := make(map[domain.Source]ports.FieldExtractor, len(domain.AllSources()))
	for _, source := range domain.AllSources() {
		out[source] = SectionExtractor{}
	}
	return out
}

// FormatSections renders heading/body pairs in the layout SectionExtractor
// reads. Pairs with a short body are skipped.
func FormatSections(header string, sections []Section) string {
	parts := make([]string, 0, len(sections)+1)
	if strings.TrimSpace(header) != "" {
		parts = append(parts, header)
	}
	for _, section := range sections {
		body := flatten(Truncate(CleanMarkup(section.Text), MaxSectionLength))
		if len(body) < minSectionBody {
			continue
		}
		parts = append(parts, section.Heading+": "+body)
	}
	return strings.Join(parts, "\n\n")
}
