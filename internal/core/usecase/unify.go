package usecase

import (
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

// ExtractorRegistry maps each source onto the extractor that understands its text.
type ExtractorRegistry map[domain.Source]ports.FieldExtractor

type Unifier struct {
	extractors ExtractorRegistry
	watch      []domain.Field
	logger     *slog.Logger
}

// NewUnifier builds a Unifier. An empty watch list falls back to
// domain.DefaultDisagreementFields.
func NewUnifier(extractors ExtractorRegistry, watch []domain.Field, logger *slog.Logger) *Unifier {
	if len(watch) == 0 {
		watch = domain.DefaultDisagreementFields
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Unifier{
		extractors: extractors,
		watch:      append([]domain.Field(nil), watch...),
		logger:     logger,
	}
}

// Unify groups documents by drug identity, aggregates extracted field values
// into evidence lists and reports the watched fields where sources disagree.
func (u *Unifier) Unify(docs []domain.RetrievedDocument) domain.Unification {
	groups := orderedmap.New[string, []domain.RetrievedDocument]()
	for _, doc := range docs {
		key := doc.IdentityKey()
		members, _ := groups.Get(key)
		groups.Set(key, append(members, doc))
	}

	out := domain.Unification{
		Records:       make([]domain.UnifiedDrugRecord, 0, groups.Len()),
		Disagreements: []domain.Disagreement{},
	}
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		record := u.buildRecord(pair.Key, pair.Value)
		out.Records = append(out.Records, record)
		out.Disagreements = append(out.Disagreements, u.detectDisagreements(record)...)
	}
	return out
}

func (u *Unifier) buildRecord(identity string, members []domain.RetrievedDocument) domain.UnifiedDrugRecord {
	record := domain.UnifiedDrugRecord{
		IdentityKey: identity,
		Name:        bestName(members),
		Fields:      make(map[domain.Field][]domain.FieldEvidence),
		References:  make([]domain.SourceReference, 0, len(members)),
	}

	for _, doc := range members {
		ref := doc.Reference()
		record.References = append(record.References, ref)

		values := u.extract(doc)
		for _, field := range domain.KnownFields {
			value, ok := values[field]
			if !ok || strings.TrimSpace(value) == "" {
				continue
			}
			record.Fields[field] = append(record.Fields[field], domain.FieldEvidence{
				Value:   value,
				Sources: []domain.SourceReference{ref},
			})
		}
	}
	return record
}

func (u *Unifier) extract(doc domain.RetrievedDocument) map[domain.Field]string {
	extractor, ok := u.extractors[doc.Source]
	if !ok || extractor == nil {
		return nil
	}
	values, err := extractor.Extract(doc)
	if err != nil {
		u.logger.Warn("field_extraction_failed",
			"source", doc.Source,
			"external_id", doc.ExternalID,
			"error", err,
		)
		return nil
	}
	return values
}

func (u *Unifier) detectDisagreements(record domain.UnifiedDrugRecord) []domain.Disagreement {
	var out []domain.Disagreement
	for _, field := range u.watch {
		evidence := record.Evidence(field)
		if len(evidence) < 2 {
			continue
		}
		seen := make(map[string]struct{}, len(evidence))
		values := make([]string, 0, len(evidence))
		for _, ev := range evidence {
			v := strings.TrimSpace(ev.Value)
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		if len(values) > 1 {
			out = append(out, domain.Disagreement{
				IdentityKey: record.IdentityKey,
				Field:       field,
				Values:      values,
			})
		}
	}
	return out
}

func bestName(members []domain.RetrievedDocument) string {
	for _, doc := range members {
		if doc.Source == domain.CanonicalNomenclatureSource && strings.TrimSpace(doc.Title) != "" {
			return doc.Title
		}
	}
	for _, doc := range members {
		if strings.TrimSpace(doc.Title) != "" {
			return doc.Title
		}
	}
	return domain.UnknownDrugName
}
