package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

type SearchStatsUseCase struct {
	store ports.DrugStore
}

func NewSearchStatsUseCase(store ports.DrugStore) *SearchStatsUseCase {
	return &SearchStatsUseCase{store: store}
}

// Record bumps the search counter of every drug returned by the search.
func (uc *SearchStatsUseCase) Record(ctx context.Context, event domain.SearchEvent) error {
	if len(event.ResultIDs) == 0 {
		return nil
	}
	if err := uc.store.IncrementSearchCount(ctx, event.ResultIDs); err != nil {
		return fmt.Errorf("increment search count event_id=%s: %w", event.ID, err)
	}
	return nil
}
