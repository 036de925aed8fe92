package usecase

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

// lineExtractor reads "field: value" lines from document text.
type lineExtractor struct{}

func (lineExtractor) Extract(doc domain.RetrievedDocument) (map[domain.Field]string, error) {
	out := map[domain.Field]string{}
	for _, line := range strings.Split(doc.Text, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if field, known := domain.ParseField(strings.TrimSpace(name)); known {
			out[field] = value
		}
	}
	return out, nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(domain.RetrievedDocument) (map[domain.Field]string, error) {
	return nil, errors.New("unparseable label")
}

func testRegistry() ExtractorRegistry {
	return ExtractorRegistry{
		domain.SourceRxNorm:   lineExtractor{},
		domain.SourceDailyMed: lineExtractor{},
		domain.SourceOpenFDA:  failingExtractor{},
	}
}

func TestUnifyReportsDosageDisagreement(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{DrugIdentity: "29046", Source: domain.SourceDailyMed, ExternalID: "a", Title: "Zestril", Text: "dosage: 10mg daily"},
		{DrugIdentity: "29046", Source: domain.SourceRxNorm, ExternalID: "b", Title: "lisinopril", Text: "dosage:  20mg daily "},
	}
	unified := NewUnifier(testRegistry(), nil, nil).Unify(docs)

	if len(unified.Records) != 1 {
		t.Fatalf("expected one record, got %d", len(unified.Records))
	}
	record := unified.Records[0]
	if record.Name != "lisinopril" {
		t.Fatalf("expected nomenclature title to win, got %q", record.Name)
	}
	if len(record.Evidence(domain.FieldDosage)) != 2 {
		t.Fatalf("expected two dosage evidence entries, got %d", len(record.Evidence(domain.FieldDosage)))
	}
	if len(unified.Disagreements) != 1 {
		t.Fatalf("expected exactly one disagreement, got %+v", unified.Disagreements)
	}
	got := unified.Disagreements[0]
	if got.Field != domain.FieldDosage || got.IdentityKey != "29046" {
		t.Fatalf("unexpected disagreement %+v", got)
	}
	if !reflect.DeepEqual(got.Values, []string{"10mg daily", "20mg daily"}) {
		t.Fatalf("unexpected values %v", got.Values)
	}
}

func TestUnifyIgnoresWhitespaceOnlyDifferences(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{DrugIdentity: "1", Source: domain.SourceDailyMed, ExternalID: "a", Text: "warnings: liver damage"},
		{DrugIdentity: "1", Source: domain.SourceRxNorm, ExternalID: "b", Text: "warnings:   liver damage  "},
	}
	unified := NewUnifier(testRegistry(), nil, nil).Unify(docs)
	if len(unified.Disagreements) != 0 {
		t.Fatalf("expected no disagreement, got %+v", unified.Disagreements)
	}
}

func TestUnifyUnknownBucketAndPlaceholderName(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{Source: domain.SourceDailyMed, ExternalID: "a"},
		{Source: domain.SourceRxNorm, ExternalID: "b"},
		{DrugIdentity: "42", Source: domain.SourceDailyMed, ExternalID: "c", Title: "Brand"},
	}
	unified := NewUnifier(testRegistry(), nil, nil).Unify(docs)
	if len(unified.Records) != 2 {
		t.Fatalf("expected two records, got %d", len(unified.Records))
	}
	unknown := unified.Records[0]
	if unknown.IdentityKey != domain.UnknownIdentity || unknown.Name != domain.UnknownDrugName {
		t.Fatalf("unexpected unknown bucket %+v", unknown)
	}
	if len(unknown.References) != 2 {
		t.Fatalf("expected both references in group order, got %+v", unknown.References)
	}
	if unified.Records[1].Name != "Brand" {
		t.Fatalf("expected first non-empty title, got %q", unified.Records[1].Name)
	}
}

func TestUnifyExtractorFailureKeepsReference(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{DrugIdentity: "7", Source: domain.SourceOpenFDA, ExternalID: "evt", Text: "dosage: 1mg"},
		{DrugIdentity: "7", Source: domain.SourceDrugBank, ExternalID: "DB1", Text: "dosage: 2mg"},
		{DrugIdentity: "7", Source: domain.SourceDailyMed, ExternalID: "set", Text: "dosage: 3mg"},
	}
	unified := NewUnifier(testRegistry(), nil, nil).Unify(docs)
	record := unified.Records[0]
	if len(record.References) != 3 {
		t.Fatalf("expected three references, got %d", len(record.References))
	}
	evidence := record.Evidence(domain.FieldDosage)
	if len(evidence) != 1 || evidence[0].Sources[0].ExternalID != "set" {
		t.Fatalf("expected evidence only from the extractable document, got %+v", evidence)
	}
}

func TestUnifyCustomWatchList(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{DrugIdentity: "1", Source: domain.SourceDailyMed, ExternalID: "a", Text: "dosage: 1mg\nmechanism: a"},
		{DrugIdentity: "1", Source: domain.SourceRxNorm, ExternalID: "b", Text: "dosage: 2mg\nmechanism: b"},
	}
	unified := NewUnifier(testRegistry(), []domain.Field{domain.FieldMechanism}, nil).Unify(docs)
	if len(unified.Disagreements) != 1 || unified.Disagreements[0].Field != domain.FieldMechanism {
		t.Fatalf("expected only mechanism disagreement, got %+v", unified.Disagreements)
	}
}

func TestUnifyEmptyInput(t *testing.T) {
	unified := NewUnifier(nil, nil, nil).Unify(nil)
	if len(unified.Records) != 0 || len(unified.Disagreements) != 0 {
		t.Fatalf("expected empty unification, got %+v", unified)
	}
}
