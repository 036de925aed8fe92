package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hbollon/go-edlib"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

const (
	defaultSearchLimit  = 10
	minSearchQueryRunes = 2
	// candidateFactor over-fetches from the store because consolidation
	// collapses formulation variants.
	candidateFactor = 3
	externalMatch   = "external"
)

type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

type SearchUseCase struct {
	store     ports.DrugStore
	fallback  ports.SourceFetcher
	cache     ports.SearchCache
	publisher ports.EventPublisher
	observer  ports.SearchObserver
	cfg       SearchConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewSearchUseCase builds the autocomplete pipeline. fallback, cache and
// publisher may be nil.
func NewSearchUseCase(
	store ports.DrugStore,
	fallback ports.SourceFetcher,
	cache ports.SearchCache,
	publisher ports.EventPublisher,
	cfg SearchConfig,
) *SearchUseCase {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultSearchLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	return &SearchUseCase{
		store:     store,
		fallback:  fallback,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

func (uc *SearchUseCase) SetObserver(observer ports.SearchObserver) {
	uc.observer = observer
}

func (uc *SearchUseCase) SetLogger(logger *slog.Logger) {
	if logger != nil {
		uc.logger = logger
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQueryRunes {
		return []domain.DrugSearchResult{}, nil
	}
	limit = uc.normalizeLimit(limit)
	started := uc.now()
	strategy := Classify(query)
	key := SearchCacheKey(strategy, query, limit)

	if cached, ok := uc.cacheGet(ctx, key); ok {
		uc.finish(ctx, query, strategy, cached, true, started)
		return cached, nil
	}

	candidates, storeErr := uc.searchStore(ctx, strategy, strings.ToLower(query), limit*candidateFactor)
	if storeErr != nil {
		uc.logger.Warn("drug_store_search_failed", "strategy", strategy, "error", storeErr)
	}
	if len(candidates) == 0 && uc.fallback != nil {
		candidates = uc.searchFallback(ctx, query, limit*candidateFactor)
	}
	if len(candidates) == 0 && storeErr != nil {
		return nil, fmt.Errorf("search drugs: %w", storeErr)
	}

	results := Consolidate(Rank(visibleResults(candidates), query))
	if len(results) > limit {
		results = results[:limit]
	}

	uc.cacheSet(ctx, key, results)
	uc.finish(ctx, query, strategy, results, false, started)
	return results, nil
}

// Suggest returns up to limit catalogue names closest to partial by
// Jaro-Winkler similarity.
func (uc *SearchUseCase) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < minSearchQueryRunes {
		return []string{}, nil
	}
	limit = uc.normalizeLimit(limit)

	names, err := uc.store.SuggestNames(ctx, strings.ToLower(partial), limit*candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("suggest names: %w", err)
	}

	type scoredName struct {
		name  string
		score float32
	}
	lowered := strings.ToLower(partial)
	seen := make(map[string]struct{}, len(names))
	scored := make([]scoredName, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		scored = append(scored, scoredName{name: name, score: edlib.JaroWinklerSimilarity(lowered, key)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].name < scored[j].name
	})

	out := make([]string, 0, min(limit, len(scored)))
	for _, s := range scored {
		if len(out) == limit {
			break
		}
		out = append(out, s.name)
	}
	return out, nil
}

// SearchCacheKey normalizes a query and limit into a cache key. The strategy
// is part of the key because classification reads the query's case.
func SearchCacheKey(strategy domain.Strategy, query string, limit int) string {
	return string(strategy) + "|" + strings.ToLower(strings.TrimSpace(query)) + "|" + strconv.Itoa(limit)
}

func (uc *SearchUseCase) normalizeLimit(limit int) int {
	if limit <= 0 {
		return uc.cfg.DefaultLimit
	}
	if limit > uc.cfg.MaxLimit {
		return uc.cfg.MaxLimit
	}
	return limit
}

func (uc *SearchUseCase) searchStore(ctx context.Context, strategy domain.Strategy, query string, limit int) ([]domain.DrugSearchResult, error) {
	switch strategy {
	case domain.StrategyCombination:
		return uc.store.SearchCombination(ctx, query, limit)
	case domain.StrategyBrand:
		return uc.store.SearchBrand(ctx, query, limit)
	case domain.StrategyGenericOnly:
		return uc.store.SearchGenericOnly(ctx, query, limit)
	default:
		return uc.store.SearchGeneral(ctx, query, limit)
	}
}

func (uc *SearchUseCase) searchFallback(ctx context.Context, query string, limit int) []domain.DrugSearchResult {
	hits, err := uc.fallback.Fetch(ctx, query, limit)
	if err != nil {
		uc.logger.Warn("fallback_search_failed", "source", uc.fallback.Source(), "error", err)
		if uc.observer != nil {
			uc.observer.ObserveSourceFailure(uc.fallback.Source())
		}
		return nil
	}
	out := make([]domain.DrugSearchResult, 0, len(hits))
	for _, hit := range hits {
		if strings.TrimSpace(hit.Title) == "" {
			continue
		}
		identity := hit.Identity
		if identity == "" {
			identity = hit.ExternalID
		}
		out = append(out, domain.DrugSearchResult{
			ID:             hit.ExternalID,
			Identity:       identity,
			DisplayName:    hit.Title,
			GenericName:    strings.ToLower(hit.Title),
			BrandNames:     []string{},
			CommonUses:     []string{},
			DrugClass:      domain.GenericDrugClass,
			SourceTag:      string(uc.fallback.Source()),
			RelevanceScore: hit.Score,
			MatchType:      externalMatch,
		})
	}
	return out
}

func (uc *SearchUseCase) cacheGet(ctx context.Context, key string) ([]domain.DrugSearchResult, bool) {
	if uc.cache == nil {
		return nil, false
	}
	results, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("search_cache_get_failed", "key", key, "error", err)
		return nil, false
	}
	return results, ok
}

func (uc *SearchUseCase) cacheSet(ctx context.Context, key string, results []domain.DrugSearchResult) {
	if uc.cache == nil || len(results) == 0 {
		return
	}
	if err := uc.cache.Set(ctx, key, results, uc.cfg.CacheTTL); err != nil {
		uc.logger.Warn("search_cache_set_failed", "key", key, "error", err)
	}
}

func (uc *SearchUseCase) finish(
	ctx context.Context,
	query string,
	strategy domain.Strategy,
	results []domain.DrugSearchResult,
	cacheHit bool,
	started time.Time,
) {
	elapsed := uc.now().Sub(started)
	if uc.observer != nil {
		uc.observer.ObserveSearch(strategy, len(results), cacheHit, elapsed)
	}
	if uc.publisher == nil {
		return
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	event := domain.SearchEvent{
		ID:          uuid.NewString(),
		Query:       query,
		Strategy:    strategy,
		ResultIDs:   ids,
		ResultCount: len(results),
		DurationMS:  float64(elapsed.Microseconds()) / 1000,
		CacheHit:    cacheHit,
		OccurredAt:  uc.now().UTC(),
	}
	if err := uc.publisher.PublishSearchEvent(ctx, event); err != nil {
		uc.logger.Warn("search_event_publish_failed", "event_id", event.ID, "error", err)
	}
}

func visibleResults(results []domain.DrugSearchResult) []domain.DrugSearchResult {
	out := make([]domain.DrugSearchResult, 0, len(results))
	for _, r := range results {
		if r.Rating != nil && r.Rating.Hidden {
			continue
		}
		out = append(out, r)
	}
	return out
}
