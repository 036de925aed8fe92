package ports

import (
	"context"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

// CrossCheckService is the inbound contract for natural-language medication questions.
type CrossCheckService interface {
	Answer(ctx context.Context, question string, limit int) (*domain.CrossCheckAnswer, error)
}

// DrugSearchService is the inbound contract for autocomplete-style drug search.
type DrugSearchService interface {
	Search(ctx context.Context, query string, limit int) ([]domain.DrugSearchResult, error)
	Suggest(ctx context.Context, partial string, limit int) ([]string, error)
}

// RatingService is the inbound contract for user votes on search results.
type RatingService interface {
	Vote(ctx context.Context, drugID, voterID string, vote domain.VoteType) (*domain.Rating, error)
	Unvote(ctx context.Context, drugID, voterID string, vote domain.VoteType) (*domain.Rating, error)
	Rating(ctx context.Context, drugID string) (*domain.Rating, error)
}

// SearchStatsRecorder is the inbound contract for asynchronous search statistics.
type SearchStatsRecorder interface {
	Record(ctx context.Context, event domain.SearchEvent) error
}

// ImportService is the inbound contract for catalogue import requests.
type ImportService interface {
	Request(ctx context.Context, drugName string) (*domain.ImportRequest, error)
	Status(ctx context.Context, requestID string) (*domain.ImportRequest, error)
}

// ImportProcessor is the worker-side contract that performs an import.
type ImportProcessor interface {
	ProcessByID(ctx context.Context, requestID string) error
}
