package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

type ImportRepository struct {
	db *sql.DB
}

func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func (r *ImportRepository) Create(ctx context.Context, req *domain.ImportRequest) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO drug_import_requests (id, drug_name, status, drug_id, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, req.ID, req.DrugName, string(req.Status), req.DrugID, req.Error, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert import request: %w", err)
	}
	return nil
}

func (r *ImportRepository) GetByID(ctx context.Context, id string) (*domain.ImportRequest, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, drug_name, status, drug_id, error_message, created_at, updated_at
FROM drug_import_requests
WHERE id = $1
`, id)

	var req domain.ImportRequest
	var status string
	err := row.Scan(&req.ID, &req.DrugName, &status, &req.DrugID, &req.Error, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDrugNotFound, "get import request", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan import request: %w", err)
	}
	req.Status = domain.ImportStatus(status)
	return &req, nil
}

func (r *ImportRepository) UpdateStatus(ctx context.Context, id string, status domain.ImportStatus, drugID, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE drug_import_requests
SET status = $2, drug_id = COALESCE(NULLIF($3, ''), drug_id), error_message = $4, updated_at = $5
WHERE id = $1
`, id, string(status), drugID, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update import status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update import status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDrugNotFound, "update import status", fmt.Errorf("id=%s", id))
	}
	return nil
}
