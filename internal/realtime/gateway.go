package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/queueline/queueline-backend/internal/model"
	"github.com/queueline/queueline-backend/internal/service"
)

// Gateway orchestrates the persist-then-broadcast flow: every mutation is
// committed by a service first, then the affected users receive full
// post-state snapshots (never bare deltas) so clients never have to merge.
type Gateway struct {
	hub           *Hub
	messages      service.MessageService
	notifications service.NotificationService
	queues        service.QueueEntryService
	log           *slog.Logger
}

func NewGateway(hub *Hub, messages service.MessageService, notifications service.NotificationService, queues service.QueueEntryService, log *slog.Logger) *Gateway {
	return &Gateway{hub: hub, messages: messages, notifications: notifications, queues: queues, log: log}
}

type notificationBundle struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int64                `json:"unreadCount"`
}

type previewList struct {
	Messages []model.Message `json:"messages"`
}

// SendMessage persists the message, then relays it to both rooms, followed
// by refreshed previews for each party and the receiver's notification
// bundle.
func (g *Gateway) SendMessage(ctx context.Context, senderUID, receiverUID, content string, attachmentURL *string) (*model.Message, error) {
	msg, err := g.messages.Send(ctx, senderUID, receiverUID, content, attachmentURL)
	if err != nil {
		return nil, err
	}

	g.hub.Emit("receiveMessage", msg, senderUID, receiverUID)
	g.emitPreviews(ctx, senderUID)
	g.emitPreviews(ctx, receiverUID)
	g.RefreshNotifications(ctx, receiverUID)
	return msg, nil
}

// MarkMessageRead flips the read flag and relays the updated message to
// both parties. Only the receiver may mark, so the counterpart is always
// the sender.
func (g *Gateway) MarkMessageRead(ctx context.Context, messageID uint64, userUID string) (*model.Message, error) {
	msg, err := g.messages.MarkRead(ctx, messageID, userUID)
	if err != nil {
		return nil, err
	}
	otherUID := msg.SenderUID
	g.hub.Emit("messageRead", msg, userUID, otherUID)
	g.emitPreviews(ctx, userUID)
	g.emitPreviews(ctx, otherUID)
	return msg, nil
}

func (g *Gateway) HideChat(ctx context.Context, userUID, otherUID string) error {
	if err := g.messages.Hide(ctx, userUID, otherUID); err != nil {
		return err
	}
	g.emitPreviews(ctx, userUID)
	return nil
}

// SetQueueStatus persists the new status and broadcasts it to every
// connected client, not just a room.
func (g *Gateway) SetQueueStatus(ctx context.Context, queueID uint64, status string) (*model.Queue, error) {
	q, err := g.queues.SetQueueStatus(ctx, queueID, status)
	if err != nil {
		return nil, err
	}
	g.hub.Emit("queueStatusChanged", map[string]any{
		"queueId":   q.ID,
		"status":    q.Status,
		"updatedAt": q.UpdatedAt.Format(time.RFC3339),
	})
	return q, nil
}

// NotifyQueueEntry relays a ticket state change to its owner's room.
func (g *Gateway) NotifyQueueEntry(entry *model.QueueEntry) {
	g.hub.Emit("queueEntryUpdate", map[string]any{"entry": entry}, entry.UserUID)
}

// RefreshNotifications pushes the user's current notification bundle.
func (g *Gateway) RefreshNotifications(ctx context.Context, userUID string) {
	list, count, err := g.notifications.List(ctx, userUID)
	if err != nil {
		g.log.Warn("notification snapshot failed", "uid", userUID, "error", err)
		return
	}
	g.hub.Emit("notificationUpdate", notificationBundle{Notifications: list, UnreadCount: count}, userUID)
}

func (g *Gateway) emitPreviews(ctx context.Context, userUID string) {
	previews, err := g.messages.Previews(ctx, userUID)
	if err != nil {
		g.log.Warn("preview snapshot failed", "uid", userUID, "error", err)
		return
	}
	g.hub.Emit("messagePreviews", previewList{Messages: previews}, userUID)
}
