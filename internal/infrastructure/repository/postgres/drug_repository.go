package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

type DrugRepository struct {
	db *sql.DB
}

func NewDrugRepository(db *sql.DB) *DrugRepository {
	return &DrugRepository{db: db}
}

const drugColumns = `id, name, drug_type, generic_name, brand_names, drug_class, common_uses, rxnorm_id, data_source,
	status, upvotes, downvotes, total_votes, rating_score, updated_at`

// Every strategy query binds $1 = lower-cased query, $2 = ILIKE pattern,
// $3 = limit, and computes its own relevance tier.
const (
	searchGenericOnlySQL = `
SELECT ` + drugColumns + `,
	CASE WHEN primary_search_term = $1 THEN 100 WHEN name = lower(name) THEN 90 ELSE 80 END AS relevance
FROM drugs
WHERE status <> 'hidden' AND drug_type = 'generic'
	AND (name ILIKE $2 OR search_terms::text ILIKE $2 OR primary_search_term ILIKE $2)
ORDER BY relevance DESC, search_count DESC, name
LIMIT $3`

	searchBrandSQL = `
SELECT ` + drugColumns + `,
	CASE
		WHEN EXISTS (SELECT 1 FROM jsonb_array_elements_text(brand_names) AS b(brand) WHERE lower(b.brand) = $1) THEN 100
		WHEN name = lower(name) THEN 90
		ELSE 80
	END AS relevance
FROM drugs
WHERE status <> 'hidden'
	AND (brand_names::text ILIKE $2 OR name ILIKE $2 OR search_terms::text ILIKE $2)
ORDER BY relevance DESC, search_count DESC, name
LIMIT $3`

	searchCombinationSQL = `
SELECT ` + drugColumns + `,
	CASE WHEN primary_search_term = $1 THEN 100 ELSE 80 END AS relevance
FROM drugs
WHERE status <> 'hidden' AND drug_type = 'combination'
	AND (name ILIKE $2 OR search_terms::text ILIKE $2 OR generic_name ILIKE $2)
ORDER BY relevance DESC, search_count DESC, name
LIMIT $3`

	searchGeneralSQL = `
SELECT ` + drugColumns + `,
	CASE WHEN primary_search_term = $1 THEN 100 WHEN name = lower(name) THEN 90 ELSE 70 END AS relevance
FROM drugs
WHERE status <> 'hidden'
	AND (name ILIKE $2 OR search_terms::text ILIKE $2 OR drug_class ILIKE $2 OR common_uses::text ILIKE $2)
ORDER BY relevance DESC, search_count DESC, name
LIMIT $3`
)

func (r *DrugRepository) SearchGenericOnly(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error) {
	return r.search(ctx, searchGenericOnlySQL, query, limit, "generic")
}

func (r *DrugRepository) SearchBrand(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error) {
	return r.search(ctx, searchBrandSQL, query, limit, "brand")
}

func (r *DrugRepository) SearchCombination(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error) {
	return r.search(ctx, searchCombinationSQL, query, limit, "combination")
}

func (r *DrugRepository) SearchGeneral(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error) {
	return r.search(ctx, searchGeneralSQL, query, limit, "general")
}

func (r *DrugRepository) search(ctx context.Context, query, term string, limit int, matchType string) ([]domain.DrugSearchResult, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	rows, err := r.db.QueryContext(ctx, query, term, containsPattern(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search drugs (%s): %w", matchType, err)
	}
	defer rows.Close()

	out := make([]domain.DrugSearchResult, 0)
	for rows.Next() {
		result, err := scanSearchResult(rows, matchType)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drugs: %w", err)
	}
	return out, nil
}

func (r *DrugRepository) SuggestNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	rows, err := r.db.QueryContext(ctx, `
SELECT name
FROM drugs
WHERE status <> 'hidden' AND (name ILIKE $1 OR primary_search_term ILIKE $1)
ORDER BY search_count DESC, name
LIMIT $2
`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("suggest drug names: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan drug name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drug names: %w", err)
	}
	return out, nil
}

// IncrementSearchCount bumps the counter of every listed drug; unknown ids
// are ignored.
func (r *DrugRepository) IncrementSearchCount(ctx context.Context, drugIDs []string) error {
	if len(drugIDs) == 0 {
		return nil
	}
	ids, err := json.Marshal(drugIDs)
	if err != nil {
		return fmt.Errorf("marshal drug ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
UPDATE drugs
SET search_count = search_count + 1
WHERE id IN (SELECT jsonb_array_elements_text($1::jsonb))
`, ids)
	if err != nil {
		return fmt.Errorf("increment search count: %w", err)
	}
	return nil
}

// UpsertDrug inserts or refreshes a catalogue entry. Votes, rating and
// search counters of an existing row are preserved.
func (r *DrugRepository) UpsertDrug(ctx context.Context, entry domain.DrugEntry) error {
	brands, err := marshalList(entry.BrandNames)
	if err != nil {
		return fmt.Errorf("marshal brand names: %w", err)
	}
	uses, err := marshalList(entry.CommonUses)
	if err != nil {
		return fmt.Errorf("marshal common uses: %w", err)
	}
	terms, err := marshalList(entry.SearchTerms)
	if err != nil {
		return fmt.Errorf("marshal search terms: %w", err)
	}
	status := entry.Status
	if status == "" {
		status = domain.DrugStatusActive
	}
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO drugs (
	id, name, drug_type, generic_name, brand_names, drug_class, common_uses, rxnorm_id,
	primary_search_term, search_terms, data_source, status, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	drug_type = EXCLUDED.drug_type,
	generic_name = EXCLUDED.generic_name,
	brand_names = EXCLUDED.brand_names,
	drug_class = EXCLUDED.drug_class,
	common_uses = EXCLUDED.common_uses,
	rxnorm_id = EXCLUDED.rxnorm_id,
	primary_search_term = EXCLUDED.primary_search_term,
	search_terms = EXCLUDED.search_terms,
	data_source = EXCLUDED.data_source,
	updated_at = EXCLUDED.updated_at
`,
		entry.ID, entry.Name, string(entry.Type), entry.GenericName, brands, entry.DrugClass, uses, entry.RxNormID,
		entry.PrimarySearchTerm, terms, entry.DataSource, string(status), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert drug: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSearchResult(row rowScanner, matchType string) (domain.DrugSearchResult, error) {
	var (
		result             domain.DrugSearchResult
		rating             domain.Rating
		drugType, status   string
		brandsRaw, usesRaw []byte
		relevance          int
	)
	err := row.Scan(
		&result.ID,
		&result.DisplayName,
		&drugType,
		&result.GenericName,
		&brandsRaw,
		&result.DrugClass,
		&usesRaw,
		&result.Identity,
		&result.SourceTag,
		&status,
		&rating.Upvotes,
		&rating.Downvotes,
		&rating.TotalVotes,
		&rating.Score,
		&rating.LastUpdated,
		&relevance,
	)
	if err != nil {
		return domain.DrugSearchResult{}, fmt.Errorf("scan drug: %w", err)
	}
	if err := unmarshalList(brandsRaw, &result.BrandNames); err != nil {
		return domain.DrugSearchResult{}, fmt.Errorf("unmarshal brand names: %w", err)
	}
	if err := unmarshalList(usesRaw, &result.CommonUses); err != nil {
		return domain.DrugSearchResult{}, fmt.Errorf("unmarshal common uses: %w", err)
	}

	rating.DrugID = result.ID
	rating.Hidden = domain.DrugStatus(status) == domain.DrugStatusHidden
	result.Rating = &rating
	result.RelevanceScore = float64(relevance)
	result.MatchType = matchType
	return result, nil
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func unmarshalList(raw []byte, out *[]string) error {
	if len(raw) == 0 {
		*out = []string{}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	if *out == nil {
		*out = []string{}
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}
