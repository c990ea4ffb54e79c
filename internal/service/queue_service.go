package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/queueline/queueline-backend/internal/model"
	"github.com/queueline/queueline-backend/internal/repository"
	"gorm.io/gorm"
)

// joinAttempts bounds the ticket-numbering retry loop. A duplicate number
// means another join committed between our max read and our insert.
const joinAttempts = 3

type QueueEntryService interface {
	Join(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error)
	Leave(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error)
	SetQueueStatus(ctx context.Context, queueID uint64, status string) (*model.Queue, error)
}

type queueEntryService struct {
	entries repository.QueueEntryRepository
	queues  repository.QueueRepository
	log     *slog.Logger
}

func NewQueueEntryService(entries repository.QueueEntryRepository, queues repository.QueueRepository, log *slog.Logger) QueueEntryService {
	return &queueEntryService{entries: entries, queues: queues, log: log}
}

func (s *queueEntryService) Join(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error) {
	var lastErr error
	for attempt := 1; attempt <= joinAttempts; attempt++ {
		entry, err := s.entries.CreateWithNextNumber(ctx, queueID, userUID)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, repository.ErrDuplicateNumber) {
			return nil, err
		}
		lastErr = err
		s.log.Warn("queue number collision, retrying",
			"queue_id", queueID, "user_uid", userUID, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: queue %d numbering contention: %v", ErrConflict, queueID, lastErr)
}

func (s *queueEntryService) Leave(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error) {
	entry, err := s.entries.MarkNoShow(ctx, queueID, userUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (s *queueEntryService) SetQueueStatus(ctx context.Context, queueID uint64, status string) (*model.Queue, error) {
	if status != model.QueueOpen && status != model.QueueClosed {
		return nil, fmt.Errorf("%w: queue status %q", ErrBadInput, status)
	}
	q, err := s.queues.SetStatus(ctx, queueID, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return q, nil
}
