package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

var sideEffectIntentTerms = []string{
	"side effect", "side effects", "adverse", "reaction", "reactions",
	"what should i expect", "what to expect", "symptoms", "problems",
}

var sideEffectContentTerms = []string{"adverse", "reaction", "side effect", "warning", "precaution"}

type QueryConfig struct {
	TopK            int
	MinScore        float64
	SideEffectBoost float64
	// SemanticLimit caps each candidate store list; 0 means TopK.
	SemanticLimit int
}

func DefaultQueryConfig() QueryConfig {
	return QueryConfig{TopK: 6, MinScore: 0.5, SideEffectBoost: 0.2}
}

type QueryUseCase struct {
	fetchers  []ports.SourceFetcher
	store     ports.CandidateStore
	embedder  ports.Embedder
	generator ports.AnswerGenerator
	unifier   *Unifier
	observer  ports.SearchObserver
	cfg       QueryConfig
	logger    *slog.Logger
}

// NewQueryUseCase wires the cross-check pipeline. store and embedder are
// optional; without them only the live source fetchers are consulted.
func NewQueryUseCase(
	fetchers []ports.SourceFetcher,
	store ports.CandidateStore,
	embedder ports.Embedder,
	generator ports.AnswerGenerator,
	unifier *Unifier,
	cfg QueryConfig,
) *QueryUseCase {
	defaults := DefaultQueryConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.MinScore < 0 {
		cfg.MinScore = defaults.MinScore
	}
	if cfg.SideEffectBoost < 0 {
		cfg.SideEffectBoost = defaults.SideEffectBoost
	}
	if unifier == nil {
		unifier = NewUnifier(nil, nil, nil)
	}
	return &QueryUseCase{
		fetchers:  fetchers,
		store:     store,
		embedder:  embedder,
		generator: generator,
		unifier:   unifier,
		cfg:       cfg,
		logger:    slog.Default(),
	}
}

func (uc *QueryUseCase) SetObserver(observer ports.SearchObserver) {
	uc.observer = observer
}

func (uc *QueryUseCase) SetLogger(logger *slog.Logger) {
	if logger != nil {
		uc.logger = logger
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string, limit int) (*domain.CrossCheckAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "crosscheck", fmt.Errorf("question is required"))
	}
	if limit <= 0 {
		limit = uc.cfg.TopK
	}
	started := time.Now()

	sideEffects := IsSideEffectQuestion(question)
	hitLists := uc.collect(ctx, question, limit, sideEffects)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := uc.filterQuality(NormalizeHits(hitLists, 0, uc.logger))
	if sideEffects {
		docs = boostSideEffectContent(docs, uc.cfg.SideEffectBoost)
	}
	docs = trimDocuments(docs, limit)

	unified := uc.unifier.Unify(docs)

	answerText, err := uc.generator.GenerateAnswer(ctx, question, docs, unified)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if uc.observer != nil {
		uc.observer.ObserveCrossCheck(len(docs), len(unified.Records), len(unified.Disagreements), time.Since(started))
	}
	return &domain.CrossCheckAnswer{
		Answer:        answerText,
		Records:       unified.Records,
		Disagreements: unified.Disagreements,
		Sources:       docs,
	}, nil
}

// collect fans out to every fetcher and the optional candidate store. A
// failing backend contributes no list.
func (uc *QueryUseCase) collect(ctx context.Context, question string, limit int, sideEffects bool) [][]domain.RawHit {
	lists := make([][]domain.RawHit, len(uc.fetchers)+2)

	g, gctx := errgroup.WithContext(ctx)
	for i, fetcher := range uc.fetchers {
		g.Go(func() error {
			source := fetcher.Source()
			hits, err := fetcher.Fetch(gctx, question, SourceLimit(source, limit, sideEffects))
			if err != nil {
				uc.logger.Warn("source_fetch_failed", "source", source, "error", err)
				if uc.observer != nil {
					uc.observer.ObserveSourceFailure(source)
				}
				return nil
			}
			lists[i] = hits
			return nil
		})
	}

	if uc.store != nil {
		storeLimit := uc.cfg.SemanticLimit
		if storeLimit <= 0 {
			storeLimit = limit
		}
		base := len(uc.fetchers)
		if uc.embedder != nil {
			g.Go(func() error {
				vector, err := uc.embedder.EmbedQuery(gctx, question)
				if err != nil {
					uc.logger.Warn("candidate_embed_failed", "error", err)
					return nil
				}
				hits, err := uc.store.Search(gctx, vector, storeLimit)
				if err != nil {
					uc.logger.Warn("candidate_search_failed", "mode", "semantic", "error", err)
					return nil
				}
				lists[base] = hits
				return nil
			})
		}
		g.Go(func() error {
			hits, err := uc.store.SearchLexical(gctx, question, storeLimit)
			if err != nil {
				uc.logger.Warn("candidate_search_failed", "mode", "lexical", "error", err)
				return nil
			}
			lists[base+1] = hits
			return nil
		})
	}

	_ = g.Wait()
	return lists
}

func (uc *QueryUseCase) filterQuality(docs []domain.RetrievedDocument) []domain.RetrievedDocument {
	out := make([]domain.RetrievedDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Score > uc.cfg.MinScore && strings.TrimSpace(doc.Text) != "" {
			out = append(out, doc)
		}
	}
	return out
}

// IsSideEffectQuestion reports whether the question asks about adverse effects.
func IsSideEffectQuestion(question string) bool {
	lowered := strings.ToLower(question)
	for _, term := range sideEffectIntentTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// SourceLimit is the per-source fetch size for a request of topK documents.
// Side-effect questions lean on labeling and safety-event sources.
func SourceLimit(source domain.Source, topK int, sideEffects bool) int {
	if !sideEffects {
		return max(2, topK/4)
	}
	switch source {
	case domain.SourceDailyMed, domain.SourceOpenFDA:
		return max(3, topK/3)
	default:
		return max(1, topK/6)
	}
}

func boostSideEffectContent(docs []domain.RetrievedDocument, boost float64) []domain.RetrievedDocument {
	out := make([]domain.RetrievedDocument, len(docs))
	for i, doc := range docs {
		text := strings.ToLower(doc.Text)
		for _, term := range sideEffectContentTerms {
			if strings.Contains(text, term) {
				doc.Score += boost
			}
		}
		out[i] = doc
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
