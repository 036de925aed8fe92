package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

const maxImportNameRunes = 200

type ImportRequestUseCase struct {
	repo  ports.ImportRepository
	queue ports.ImportQueue
}

func NewImportRequestUseCase(repo ports.ImportRepository, queue ports.ImportQueue) *ImportRequestUseCase {
	return &ImportRequestUseCase{
		repo:  repo,
		queue: queue,
	}
}

// Request records a catalogue import for drugName and queues it for the worker.
func (uc *ImportRequestUseCase) Request(ctx context.Context, drugName string) (*domain.ImportRequest, error) {
	name := strings.Join(strings.Fields(drugName), " ")
	if utf8.RuneCountInString(name) < minSearchQueryRunes || utf8.RuneCountInString(name) > maxImportNameRunes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "request import", fmt.Errorf("drug name length must be %d..%d", minSearchQueryRunes, maxImportNameRunes))
	}

	now := time.Now().UTC()
	req := &domain.ImportRequest{
		ID:        uuid.NewString(),
		DrugName:  name,
		Status:    domain.ImportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create import request: %w", err)
	}

	if err := uc.queue.PublishImportRequested(ctx, req.ID); err != nil {
		_ = uc.repo.UpdateStatus(ctx, req.ID, domain.ImportStatusFailed, "", "queue publish failed")
		return nil, fmt.Errorf("publish import request: %w", err)
	}
	return req, nil
}

func (uc *ImportRequestUseCase) Status(ctx context.Context, requestID string) (*domain.ImportRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "import status", errors.New("request id is required"))
	}
	req, err := uc.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get import request: %w", err)
	}
	return req, nil
}
