// Package audit records one durable record per externally-triggered
// operation. Recording is best-effort: it never delays, masks, or alters
// the outcome of the operation it observes.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/queueline/queueline-backend/internal/model"
	"github.com/queueline/queueline-backend/internal/repository"
)

const recordTimeout = 2 * time.Second

type Recorder struct {
	repo repository.AuditRepository
	log  *slog.Logger
}

func NewRecorder(repo repository.AuditRepository, log *slog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Record persists the observed outcome in the background. The write runs on
// a detached context so a caller disconnecting cannot cancel it, and with a
// short deadline so a slow store cannot pile up goroutines.
func (r *Recorder) Record(ctx context.Context, action, actorUID string, payload any, status int, opErr error) {
	if r == nil || r.repo == nil {
		return
	}
	rec := &model.AuditRecord{
		ID:       uuid.NewString(),
		Action:   action,
		ActorUID: actorUID,
		Status:   status,
	}
	if opErr != nil {
		rec.Error = opErr.Error()
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			rec.Payload = string(b)
		}
	}
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := r.repo.Create(wctx, rec); err != nil {
			r.log.Warn("audit record write failed", "action", action, "error", err)
		}
	}()
}
