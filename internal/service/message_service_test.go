package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/queueline/queueline-backend/internal/model"
	"gorm.io/gorm"
)

type fakeMessageRepo struct {
	mu     sync.Mutex
	nextID uint64
	clock  time.Time
	msgs   []*model.Message
	hidden map[[2]string]time.Time // [user, other] -> watermark
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		clock:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		hidden: make(map[[2]string]time.Time),
	}
}

// addAt inserts a message with an explicit timestamp, for watermark cases.
func (f *fakeMessageRepo) addAt(sender, receiver, content string, at time.Time) *model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg := &model.Message{ID: f.nextID, SenderUID: sender, ReceiverUID: receiver, Content: content, CreatedAt: at}
	f.msgs = append(f.msgs, msg)
	return msg
}

func (f *fakeMessageRepo) Create(_ context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	msg.ID = f.nextID
	msg.CreatedAt = f.clock
	cp := *msg
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeMessageRepo) FindByID(_ context.Context, id uint64) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMessageRepo) MarkRead(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			m.IsRead = true
		}
	}
	return nil
}

func (f *fakeMessageRepo) ListBetween(_ context.Context, uid, other string, after time.Time, before *time.Time, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.msgs {
		between := (m.SenderUID == uid && m.ReceiverUID == other) || (m.SenderUID == other && m.ReceiverUID == uid)
		if !between {
			continue
		}
		if !after.IsZero() && !m.CreatedAt.After(after) {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageRepo) LatestPerCounterpart(_ context.Context, uid string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[[2]string]*model.Message)
	for _, m := range f.msgs {
		if m.SenderUID != uid && m.ReceiverUID != uid {
			continue
		}
		a, b := m.SenderUID, m.ReceiverUID
		if a > b {
			a, b = b, a
		}
		key := [2]string{a, b}
		cur := latest[key]
		if cur == nil || m.CreatedAt.After(cur.CreatedAt) || (m.CreatedAt.Equal(cur.CreatedAt) && m.ID > cur.ID) {
			latest[key] = m
		}
	}
	var out []model.Message
	for _, m := range latest {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessageRepo) FindHidden(_ context.Context, uid, other string) (*model.HiddenChat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wm, ok := f.hidden[[2]string{uid, other}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.HiddenChat{UserUID: uid, OtherUID: other, UpdatedAt: wm}, nil
}

func (f *fakeMessageRepo) ListHidden(_ context.Context, uid string) ([]model.HiddenChat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.HiddenChat
	for key, wm := range f.hidden {
		if key[0] == uid {
			out = append(out, model.HiddenChat{UserUID: key[0], OtherUID: key[1], UpdatedAt: wm})
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) UpsertHidden(_ context.Context, uid, other string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[[2]string{uid, other}] = at
	return nil
}

type failingNotifier struct {
	fail  bool
	calls int
}

func (n *failingNotifier) Notify(context.Context, string, string, string, string, *string) error {
	n.calls++
	if n.fail {
		return errors.New("notification store down")
	}
	return nil
}
func (n *failingNotifier) MarkRead(context.Context, uint64) error { return nil }
func (n *failingNotifier) List(context.Context, string) ([]model.Notification, int64, error) {
	return nil, 0, nil
}
func (n *failingNotifier) DeleteBySource(context.Context, string, string) error { return nil }

func TestSendCreatesMessageAndNotifies(t *testing.T) {
	repo := newFakeMessageRepo()
	notifier := &failingNotifier{}
	svc := NewMessageService(repo, notifier, discardLogger())

	msg, err := svc.Send(context.Background(), "alice", "bob", "hi", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("message not persisted")
	}
	if notifier.calls != 1 {
		t.Fatalf("notify calls=%d want 1", notifier.calls)
	}
}

func TestSendSwallowsNotificationFailure(t *testing.T) {
	repo := newFakeMessageRepo()
	notifier := &failingNotifier{fail: true}
	svc := NewMessageService(repo, notifier, discardLogger())

	msg, err := svc.Send(context.Background(), "alice", "bob", "hi", nil)
	if err != nil {
		t.Fatalf("send must succeed despite notification failure: %v", err)
	}
	if msg == nil || msg.ID == 0 {
		t.Fatal("message was not delivered")
	}
}

func TestSendValidation(t *testing.T) {
	svc := NewMessageService(newFakeMessageRepo(), &failingNotifier{}, discardLogger())

	if _, err := svc.Send(context.Background(), "alice", "bob", "", nil); !errors.Is(err, ErrBadInput) {
		t.Fatalf("empty content err=%v want ErrBadInput", err)
	}
	if _, err := svc.Send(context.Background(), "alice", "alice", "hi", nil); !errors.Is(err, ErrBadInput) {
		t.Fatalf("self send err=%v want ErrBadInput", err)
	}
}

func TestConversationPaginationTerminates(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, &failingNotifier{}, discardLogger())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := svc.Send(ctx, "alice", "bob", "msg", nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	var before *time.Time
	total := 0
	for page := 0; ; page++ {
		msgs, hasMore, err := svc.Conversation(ctx, "bob", "alice", before, 10)
		if err != nil {
			t.Fatalf("conversation: %v", err)
		}
		total += len(msgs)
		for i := 1; i < len(msgs); i++ {
			if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
				t.Fatal("page not in ascending order")
			}
		}
		if !hasMore {
			break
		}
		oldest := msgs[0].CreatedAt
		before = &oldest
		if page > 10 {
			t.Fatal("pagination did not terminate")
		}
	}
	if total != 25 {
		t.Fatalf("total=%d want 25", total)
	}
}

func TestConversationRespectsHiddenWatermark(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, &failingNotifier{}, discardLogger())
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.addAt("alice", "bob", "old", base.Add(90*time.Second))
	repo.UpsertHidden(ctx, "bob", "alice", base.Add(100*time.Second))

	msgs, _, err := svc.Conversation(ctx, "bob", "alice", nil, 10)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("hidden message leaked: %d msgs", len(msgs))
	}

	repo.addAt("alice", "bob", "new", base.Add(150*time.Second))
	msgs, _, err = svc.Conversation(ctx, "bob", "alice", nil, 10)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "new" {
		t.Fatalf("msgs=%v want only the post-watermark message", msgs)
	}
}

func TestPreviewsExcludeHiddenUntilNewerMessage(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, &failingNotifier{}, discardLogger())
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.addAt("alice", "bob", "pre-existing", base.Add(90*time.Second))
	repo.UpsertHidden(ctx, "bob", "alice", base.Add(100*time.Second))

	previews, err := svc.Previews(ctx, "bob")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if len(previews) != 0 {
		t.Fatalf("previews=%d want 0 while hidden", len(previews))
	}

	// The sender's own view is unaffected by the receiver's watermark.
	previews, err = svc.Previews(ctx, "alice")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("sender previews=%d want 1", len(previews))
	}

	repo.addAt("alice", "bob", "newer", base.Add(150*time.Second))
	previews, err = svc.Previews(ctx, "bob")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if len(previews) != 1 || previews[0].Content != "newer" {
		t.Fatalf("previews=%v want the newer message", previews)
	}
}

func TestPreviewsOnePerCounterpart(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, &failingNotifier{}, discardLogger())
	ctx := context.Background()

	svc.Send(ctx, "alice", "bob", "a1", nil)
	svc.Send(ctx, "bob", "alice", "a2", nil)
	svc.Send(ctx, "carol", "bob", "c1", nil)

	previews, err := svc.Previews(ctx, "bob")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if len(previews) != 2 {
		t.Fatalf("previews=%d want 2 conversations", len(previews))
	}
	for _, p := range previews {
		if p.Content == "a1" {
			t.Fatal("stale preview returned, want latest per pair")
		}
	}
}

func TestMarkReadOnlyReceiver(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, &failingNotifier{}, discardLogger())
	ctx := context.Background()

	msg, _ := svc.Send(ctx, "alice", "bob", "hi", nil)

	if _, err := svc.MarkRead(ctx, msg.ID, "alice"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("sender mark read err=%v want ErrForbidden", err)
	}
	got, err := svc.MarkRead(ctx, msg.ID, "bob")
	if err != nil {
		t.Fatalf("receiver mark read: %v", err)
	}
	if !got.IsRead {
		t.Fatal("message not marked read")
	}
	if _, err := svc.MarkRead(ctx, 999, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing message err=%v want ErrNotFound", err)
	}
}
