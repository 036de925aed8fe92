package ports

import (
	"context"
	"time"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

// SourceFetcher queries one upstream medical data provider.
type SourceFetcher interface {
	Source() domain.Source
	Fetch(ctx context.Context, query string, limit int) ([]domain.RawHit, error)
}

// FieldExtractor pulls per-field values out of one document's text.
type FieldExtractor interface {
	Extract(doc domain.RetrievedDocument) (map[domain.Field]string, error)
}

// CandidateStore supplies similarity and keyword ranked candidates.
type CandidateStore interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RawHit, error)
	SearchLexical(ctx context.Context, queryText string, limit int) ([]domain.RawHit, error)
}

// Embedder builds vectors for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, docs []domain.RetrievedDocument, unified domain.Unification) (string, error)
}

// DrugStore runs the strategy specific catalogue queries. Each query assigns
// the coarse relevance tier itself.
type DrugStore interface {
	SearchGenericOnly(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error)
	SearchBrand(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error)
	SearchCombination(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error)
	SearchGeneral(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error)
	SuggestNames(ctx context.Context, prefix string, limit int) ([]string, error)
	IncrementSearchCount(ctx context.Context, drugIDs []string) error
}

// RatingStore persists votes and the derived rating of each drug.
type RatingStore interface {
	AddVote(ctx context.Context, vote domain.Vote) error
	RemoveVote(ctx context.Context, drugID, voterID string, vote domain.VoteType) error
	CountVotes(ctx context.Context, drugID string) (up int, down int, err error)
	SaveRating(ctx context.Context, rating domain.Rating, status domain.DrugStatus) error
	GetRating(ctx context.Context, drugID string) (*domain.Rating, error)
}

// SearchCache stores final search result lists keyed by normalized query.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]domain.DrugSearchResult, bool, error)
	Set(ctx context.Context, key string, results []domain.DrugSearchResult, ttl time.Duration) error
}

// EventPublisher publishes search events for the worker.
type EventPublisher interface {
	PublishSearchEvent(ctx context.Context, event domain.SearchEvent) error
}

// EventSubscriber consumes search events until ctx is done.
type EventSubscriber interface {
	SubscribeSearchEvents(ctx context.Context, handler func(context.Context, domain.SearchEvent) error) error
}

// SearchObserver receives per-request search observations (metrics).
type SearchObserver interface {
	ObserveSearch(strategy domain.Strategy, results int, cacheHit bool, duration time.Duration)
	ObserveCrossCheck(documents, records, disagreements int, duration time.Duration)
	ObserveSourceFailure(source domain.Source)
}

// DrugCatalog writes curated entries produced by the import pipeline.
type DrugCatalog interface {
	UpsertDrug(ctx context.Context, entry domain.DrugEntry) error
}

// ImportRepository persists import requests and their status transitions.
type ImportRepository interface {
	Create(ctx context.Context, req *domain.ImportRequest) error
	GetByID(ctx context.Context, id string) (*domain.ImportRequest, error)
	UpdateStatus(ctx context.Context, id string, status domain.ImportStatus, drugID, errMessage string) error
}

// ImportQueue hands import requests to the worker.
type ImportQueue interface {
	PublishImportRequested(ctx context.Context, requestID string) error
	SubscribeImportRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// CandidateIndex stores documents for later similarity and keyword search.
type CandidateIndex interface {
	IndexDocuments(ctx context.Context, docs []domain.RetrievedDocument, vectors [][]float32) error
}

// DocumentEmbedder builds vectors for documents being indexed.
type DocumentEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
