package usecase

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

// NormalizeHits maps raw hits from independent retrieval backends onto the
// source catalogue and returns them ordered by score, deduplicated by
// (source, externalId) and capped at limit. A limit <= 0 disables the cap.
// A nil logger falls back to slog.Default.
func NormalizeHits(hitLists [][]domain.RawHit, limit int, logger *slog.Logger) []domain.RetrievedDocument {
	if logger == nil {
		logger = slog.Default()
	}
	total := 0
	for _, hits := range hitLists {
		total += len(hits)
	}

	docs := make([]domain.RetrievedDocument, 0, total)
	for _, hits := range hitLists {
		for _, hit := range hits {
			source, err := domain.ParseSource(hit.Source)
			if err != nil {
				logger.Debug("retrieval_hit_unmapped",
					"source", hit.Source,
					"external_id", hit.ExternalID,
				)
				continue
			}
			if reason := malformedHitReason(hit); reason != "" {
				logger.Warn("retrieval_hit_dropped",
					"source", source,
					"external_id", hit.ExternalID,
					"reason", reason,
				)
				continue
			}
			docs = append(docs, domain.RetrievedDocument{
				DrugIdentity: strings.TrimSpace(hit.Identity),
				Source:       source,
				ExternalID:   hit.ExternalID,
				URL:          hit.URL,
				Title:        hit.Title,
				Text:         hit.Text,
				Score:        hit.Score,
			})
		}
	}

	return NormalizeDocuments(docs, limit)
}

// NormalizeDocuments applies the ordering, deduplication and cap of
// NormalizeHits to documents whose sources are already mapped.
func NormalizeDocuments(docs []domain.RetrievedDocument, limit int) []domain.RetrievedDocument {
	sorted := make([]domain.RetrievedDocument, 0, len(docs))
	for _, doc := range docs {
		if !doc.Source.Valid() || math.IsNaN(doc.Score) {
			continue
		}
		sorted = append(sorted, doc)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]domain.RetrievedDocument, 0, len(sorted))
	for _, doc := range sorted {
		key := doc.Reference().Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, doc)
	}

	return trimDocuments(out, limit)
}

func trimDocuments(docs []domain.RetrievedDocument, limit int) []domain.RetrievedDocument {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}

func malformedHitReason(hit domain.RawHit) string {
	switch {
	case strings.TrimSpace(hit.ExternalID) == "":
		return "missing external id"
	case strings.TrimSpace(hit.Text) == "":
		return "missing text"
	case math.IsNaN(hit.Score):
		return "score is NaN"
	default:
		return ""
	}
}
