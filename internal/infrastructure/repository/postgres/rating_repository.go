package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) AddVote(ctx context.Context, vote domain.Vote) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO drug_votes (id, drug_id, voter_id, vote_type, created_at)
VALUES ($1,$2,$3,$4,$5)
`, vote.ID, vote.DrugID, vote.VoterID, string(vote.Type), vote.CreatedAt)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.WrapError(domain.ErrAlreadyVoted, "add vote", fmt.Errorf("drug=%s type=%s", vote.DrugID, vote.Type))
		case pgForeignKeyViolation:
			return domain.WrapError(domain.ErrDrugNotFound, "add vote", fmt.Errorf("drug=%s", vote.DrugID))
		}
	}
	return fmt.Errorf("add vote: %w", err)
}

func (r *RatingRepository) RemoveVote(ctx context.Context, drugID, voterID string, vote domain.VoteType) error {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM drug_votes
WHERE drug_id = $1 AND voter_id = $2 AND vote_type = $3
`, drugID, voterID, string(vote))
	if err != nil {
		return fmt.Errorf("remove vote: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove vote rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrVoteNotFound, "remove vote", fmt.Errorf("drug=%s type=%s", drugID, vote))
	}
	return nil
}

func (r *RatingRepository) CountVotes(ctx context.Context, drugID string) (int, int, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*) FILTER (WHERE vote_type = 'up'),
	COUNT(*) FILTER (WHERE vote_type = 'down')
FROM drug_votes
WHERE drug_id = $1
`, drugID)

	var up, down int
	if err := row.Scan(&up, &down); err != nil {
		return 0, 0, fmt.Errorf("count votes: %w", err)
	}
	return up, down, nil
}

func (r *RatingRepository) SaveRating(ctx context.Context, rating domain.Rating, status domain.DrugStatus) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE drugs
SET upvotes = $2, downvotes = $3, total_votes = $4, rating_score = $5, status = $6, updated_at = $7
WHERE id = $1
`, rating.DrugID, rating.Upvotes, rating.Downvotes, rating.TotalVotes, rating.Score, string(status), rating.LastUpdated)
	if err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save rating rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDrugNotFound, "save rating", fmt.Errorf("id=%s", rating.DrugID))
	}
	return nil
}

func (r *RatingRepository) GetRating(ctx context.Context, drugID string) (*domain.Rating, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT upvotes, downvotes, total_votes, rating_score, status, updated_at
FROM drugs
WHERE id = $1
`, drugID)

	rating := domain.Rating{DrugID: drugID}
	var status string
	err := row.Scan(&rating.Upvotes, &rating.Downvotes, &rating.TotalVotes, &rating.Score, &status, &rating.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDrugNotFound, "get rating", fmt.Errorf("id=%s", drugID))
		}
		return nil, fmt.Errorf("get rating: %w", err)
	}
	rating.Hidden = domain.DrugStatus(status) == domain.DrugStatusHidden
	return &rating, nil
}
