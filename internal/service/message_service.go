package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/queueline/queueline-backend/internal/model"
	"github.com/queueline/queueline-backend/internal/repository"
	"gorm.io/gorm"
)

const defaultConversationLimit = 10

type MessageService interface {
	Send(ctx context.Context, senderUID, receiverUID, content string, attachmentURL *string) (*model.Message, error)
	// Conversation returns up to limit messages between the pair in
	// ascending order plus a hasMore flag for cursor pagination.
	Conversation(ctx context.Context, userUID, otherUID string, before *time.Time, limit int) ([]model.Message, bool, error)
	Previews(ctx context.Context, userUID string) ([]model.Message, error)
	Hide(ctx context.Context, userUID, otherUID string) error
	MarkRead(ctx context.Context, messageID uint64, userUID string) (*model.Message, error)
}

type messageService struct {
	messages      repository.MessageRepository
	notifications NotificationService
	log           *slog.Logger
}

func NewMessageService(messages repository.MessageRepository, notifications NotificationService, log *slog.Logger) MessageService {
	return &messageService{messages: messages, notifications: notifications, log: log}
}

func (s *messageService) Send(ctx context.Context, senderUID, receiverUID, content string, attachmentURL *string) (*model.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrBadInput)
	}
	if senderUID == receiverUID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrBadInput)
	}
	msg := &model.Message{
		SenderUID:     senderUID,
		ReceiverUID:   receiverUID,
		Content:       content,
		AttachmentURL: attachmentURL,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	// The message is delivered once the insert commits; the notification is
	// a best-effort derivative and its failure never propagates.
	redirect := "/chat/" + senderUID
	if err := s.notifications.Notify(ctx, receiverUID, senderUID, "New message", content, &redirect); err != nil {
		s.log.Warn("notification write failed after message send",
			"sender_uid", senderUID, "receiver_uid", receiverUID, "error", err)
	}
	return msg, nil
}

func (s *messageService) Conversation(ctx context.Context, userUID, otherUID string, before *time.Time, limit int) ([]model.Message, bool, error) {
	if limit <= 0 || limit > 50 {
		limit = defaultConversationLimit
	}
	watermark, err := s.hiddenWatermark(ctx, userUID, otherUID)
	if err != nil {
		return nil, false, err
	}
	msgs, err := s.messages.ListBetween(ctx, userUID, otherUID, watermark, before, limit)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(msgs) == limit
	// Fetched newest-first for the cursor; clients want ascending.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, hasMore, nil
}

func (s *messageService) Previews(ctx context.Context, userUID string) ([]model.Message, error) {
	latest, err := s.messages.LatestPerCounterpart(ctx, userUID)
	if err != nil {
		return nil, err
	}
	hidden, err := s.messages.ListHidden(ctx, userUID)
	if err != nil {
		return nil, err
	}
	watermarks := make(map[string]time.Time, len(hidden))
	for _, h := range hidden {
		watermarks[h.OtherUID] = h.UpdatedAt
	}
	out := make([]model.Message, 0, len(latest))
	for _, msg := range latest {
		other := msg.SenderUID
		if other == userUID {
			other = msg.ReceiverUID
		}
		if wm, ok := watermarks[other]; ok && !msg.CreatedAt.After(wm) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *messageService) Hide(ctx context.Context, userUID, otherUID string) error {
	if userUID == otherUID {
		return fmt.Errorf("%w: cannot hide chat with yourself", ErrBadInput)
	}
	return s.messages.UpsertHidden(ctx, userUID, otherUID, time.Now())
}

func (s *messageService) MarkRead(ctx context.Context, messageID uint64, userUID string) (*model.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if msg.ReceiverUID != userUID {
		return nil, ErrForbidden
	}
	if !msg.IsRead {
		if err := s.messages.MarkRead(ctx, messageID); err != nil {
			return nil, err
		}
		msg.IsRead = true
	}
	return msg, nil
}

func (s *messageService) hiddenWatermark(ctx context.Context, userUID, otherUID string) (time.Time, error) {
	hc, err := s.messages.FindHidden(ctx, userUID, otherUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return hc.UpdatedAt, nil
}
