package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

type RatingConfig struct {
	HideThreshold float64
	MinVotes      int
}

func DefaultRatingConfig() RatingConfig {
	return RatingConfig{HideThreshold: -0.5, MinVotes: 3}
}

type RatingUseCase struct {
	store ports.RatingStore
	cfg   RatingConfig
	now   func() time.Time
}

func NewRatingUseCase(store ports.RatingStore, cfg RatingConfig) *RatingUseCase {
	if cfg.MinVotes <= 0 {
		cfg.MinVotes = DefaultRatingConfig().MinVotes
	}
	return &RatingUseCase{store: store, cfg: cfg, now: time.Now}
}

func (uc *RatingUseCase) Vote(ctx context.Context, drugID, voterID string, vote domain.VoteType) (*domain.Rating, error) {
	if err := validateVote(drugID, voterID, vote); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "vote", err)
	}
	if _, err := uc.store.GetRating(ctx, drugID); err != nil {
		return nil, fmt.Errorf("load rating: %w", err)
	}

	err := uc.store.AddVote(ctx, domain.Vote{
		ID:        uuid.NewString(),
		DrugID:    drugID,
		VoterID:   voterID,
		Type:      vote,
		CreatedAt: uc.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("add vote: %w", err)
	}
	return uc.recompute(ctx, drugID)
}

func (uc *RatingUseCase) Unvote(ctx context.Context, drugID, voterID string, vote domain.VoteType) (*domain.Rating, error) {
	if err := validateVote(drugID, voterID, vote); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "unvote", err)
	}
	if err := uc.store.RemoveVote(ctx, drugID, voterID, vote); err != nil {
		return nil, fmt.Errorf("remove vote: %w", err)
	}
	return uc.recompute(ctx, drugID)
}

func (uc *RatingUseCase) Rating(ctx context.Context, drugID string) (*domain.Rating, error) {
	if strings.TrimSpace(drugID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rating", fmt.Errorf("drug id is required"))
	}
	rating, err := uc.store.GetRating(ctx, drugID)
	if err != nil {
		return nil, fmt.Errorf("load rating: %w", err)
	}
	return rating, nil
}

// ComputeRating derives the score and hidden flag from vote counts.
func ComputeRating(drugID string, up, down int, cfg RatingConfig) domain.Rating {
	total := up + down
	score := 0.0
	if total > 0 {
		score = float64(up-down) / float64(total)
	}
	return domain.Rating{
		DrugID:     drugID,
		Upvotes:    up,
		Downvotes:  down,
		TotalVotes: total,
		Score:      score,
		Hidden:     total >= cfg.MinVotes && score <= cfg.HideThreshold,
	}
}

func (uc *RatingUseCase) recompute(ctx context.Context, drugID string) (*domain.Rating, error) {
	up, down, err := uc.store.CountVotes(ctx, drugID)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	rating := ComputeRating(drugID, up, down, uc.cfg)
	rating.LastUpdated = uc.now().UTC()

	status := domain.DrugStatusActive
	if rating.Hidden {
		status = domain.DrugStatusHidden
	}
	if err := uc.store.SaveRating(ctx, rating, status); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	return &rating, nil
}

func validateVote(drugID, voterID string, vote domain.VoteType) error {
	if strings.TrimSpace(drugID) == "" {
		return fmt.Errorf("drug id is required")
	}
	if strings.TrimSpace(voterID) == "" {
		return fmt.Errorf("voter id is required")
	}
	if _, ok := domain.ParseVoteType(string(vote)); !ok {
		return fmt.Errorf("vote must be %q or %q, got %q", domain.VoteUp, domain.VoteDown, vote)
	}
	return nil
}
