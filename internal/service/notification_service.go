package service

import (
	"context"
	"errors"
	"time"

	"github.com/queueline/queueline-backend/internal/model"
	"github.com/queueline/queueline-backend/internal/repository"
	"gorm.io/gorm"
)

type NotificationService interface {
	Notify(ctx context.Context, recipientUID, sourceKey, title, content string, redirectURL *string) error
	MarkRead(ctx context.Context, id uint64) error
	// List returns the unread notifications and their count; the count is
	// always len(list) since both derive from the same predicate.
	List(ctx context.Context, userUID string) ([]model.Notification, int64, error)
	DeleteBySource(ctx context.Context, recipientUID, sourceKey string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify merges into the recipient's existing unread notification for the
// same source instead of inserting a duplicate: latest content wins and the
// refreshed created_at resurfaces it at the top of the list. The
// merge-or-insert is a single repository transaction so concurrent notifies
// for the same source cannot land two unread rows.
func (s *notificationService) Notify(ctx context.Context, recipientUID, sourceKey, title, content string, redirectURL *string) error {
	if recipientUID == "" || sourceKey == "" {
		return nil
	}
	n := &model.Notification{
		UserUID:     recipientUID,
		SourceKey:   sourceKey,
		Title:       title,
		Content:     content,
		RedirectURL: redirectURL,
		CreatedAt:   time.Now(),
	}
	return s.repo.MergeUnread(ctx, n)
}

func (s *notificationService) MarkRead(ctx context.Context, id uint64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.repo.MarkRead(ctx, id, time.Now())
}

func (s *notificationService) List(ctx context.Context, userUID string) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListUnread(ctx, userUID)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) DeleteBySource(ctx context.Context, recipientUID, sourceKey string) error {
	if recipientUID == "" || sourceKey == "" {
		return nil
	}
	return s.repo.DeleteBySource(ctx, recipientUID, sourceKey)
}
