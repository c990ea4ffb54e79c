package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/queueline/queueline-backend/internal/model"
)

type fakeAuditRepo struct {
	mu      sync.Mutex
	fail    bool
	records []model.AuditRecord
	wrote   chan struct{}
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{wrote: make(chan struct{}, 16)}
}

func (f *fakeAuditRepo) Create(_ context.Context, rec *model.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.wrote <- struct{}{} }()
	if f.fail {
		return errors.New("audit store down")
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeAuditRepo) await(t *testing.T) {
	t.Helper()
	select {
	case <-f.wrote:
	case <-time.After(time.Second):
		t.Fatal("audit write never happened")
	}
}

func (f *fakeAuditRepo) last(t *testing.T) model.AuditRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		t.Fatal("no audit records")
	}
	return f.records[len(f.records)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordPersistsOutcome(t *testing.T) {
	repo := newFakeAuditRepo()
	rec := NewRecorder(repo, testLogger())

	rec.Record(context.Background(), "queue.join", "alice", map[string]uint64{"queueId": 7}, 201, nil)
	repo.await(t)

	got := repo.last(t)
	if got.Action != "queue.join" || got.ActorUID != "alice" || got.Status != 201 {
		t.Fatalf("record=%+v", got)
	}
	if got.ID == "" {
		t.Fatal("record id not assigned")
	}
	if got.Payload == "" {
		t.Fatal("payload not serialized")
	}
	if got.Error != "" {
		t.Fatalf("error=%q want empty", got.Error)
	}
}

func TestRecordCapturesOperationError(t *testing.T) {
	repo := newFakeAuditRepo()
	rec := NewRecorder(repo, testLogger())

	rec.Record(context.Background(), "message.send", "alice", nil, 409, errors.New("numbering contention"))
	repo.await(t)

	got := repo.last(t)
	if got.Status != 409 || got.Error != "numbering contention" {
		t.Fatalf("record=%+v", got)
	}
}

func TestRecordSurvivesCanceledRequestContext(t *testing.T) {
	repo := newFakeAuditRepo()
	rec := NewRecorder(repo, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Record(ctx, "queue.leave", "alice", nil, 200, nil)
	repo.await(t)

	if got := repo.last(t); got.Action != "queue.leave" {
		t.Fatalf("record=%+v", got)
	}
}

func TestMiddlewarePassesResultThrough(t *testing.T) {
	repo := newFakeAuditRepo()
	rec := NewRecorder(repo, testLogger())
	e := echo.New()

	handlerErr := echo.NewHTTPError(http.StatusNotFound, "no such entry")
	h := Middleware(rec, "queue.leave", ActorFromUID, nil)(func(c echo.Context) error {
		return handlerErr
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("uid", "alice")

	if err := h(c); !errors.Is(err, handlerErr) {
		t.Fatalf("middleware altered handler error: %v", err)
	}
	repo.await(t)

	got := repo.last(t)
	if got.Status != http.StatusNotFound || got.ActorUID != "alice" {
		t.Fatalf("record=%+v", got)
	}
}

func TestMiddlewareRecordsCauseOfCommittedErrorResponse(t *testing.T) {
	repo := newFakeAuditRepo()
	rec := NewRecorder(repo, testLogger())
	e := echo.New()

	cause := errors.New("no waiting entry")
	h := Middleware(rec, "queue.leave", ActorFromUID, nil)(func(c echo.Context) error {
		// Handlers serialize taxonomy errors themselves, then surface the
		// cause for recording.
		_ = c.JSON(http.StatusNotFound, map[string]string{"error": "not_found"})
		return cause
	})

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	resp := httptest.NewRecorder()
	c := e.NewContext(req, resp)
	c.Set("uid", "alice")

	if err := h(c); !errors.Is(err, cause) {
		t.Fatalf("middleware altered handler error: %v", err)
	}
	repo.await(t)

	got := repo.last(t)
	if got.Status != http.StatusNotFound {
		t.Fatalf("status=%d want 404 from the committed response", got.Status)
	}
	if got.Error != "no waiting entry" {
		t.Fatalf("error=%q want the recorded cause", got.Error)
	}
	if resp.Code != http.StatusNotFound {
		t.Fatalf("response=%d", resp.Code)
	}
}

func TestMiddlewareIgnoresAuditFailure(t *testing.T) {
	repo := newFakeAuditRepo()
	repo.fail = true
	rec := NewRecorder(repo, testLogger())
	e := echo.New()

	h := Middleware(rec, "queue.join", ActorFromUID, nil)(func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	c := e.NewContext(req, resp)
	c.Set("uid", "alice")

	if err := h(c); err != nil {
		t.Fatalf("handler outcome changed by audit failure: %v", err)
	}
	repo.await(t)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status=%d", resp.Code)
	}
}
