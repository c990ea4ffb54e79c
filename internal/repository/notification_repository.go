package repository

import (
	"context"
	"errors"
	"time"

	"github.com/queueline/queueline-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository interface {
	// MergeUnread runs one merge-or-insert transaction: the recipient's
	// latest unread row for the source is locked, overwritten and reset to
	// unread, or a fresh row is inserted when none exists. Locking the read
	// keeps concurrent merges for the same (user, source) from both
	// inserting, the same store-level treatment queue numbering gets.
	MergeUnread(ctx context.Context, n *model.Notification) error
	FindByID(ctx context.Context, id uint64) (*model.Notification, error)
	MarkRead(ctx context.Context, id uint64, at time.Time) error
	ListUnread(ctx context.Context, userUID string) ([]model.Notification, error)
	CountUnread(ctx context.Context, userUID string) (int64, error)
	DeleteBySource(ctx context.Context, userUID, sourceKey string) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) MergeUnread(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Notification
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_uid = ? AND source_key = ? AND is_read = ?", n.UserUID, n.SourceKey, false).
			Order("created_at DESC").
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(n).Error
			}
			return err
		}
		existing.Title = n.Title
		existing.Content = n.Content
		existing.RedirectURL = n.RedirectURL
		existing.IsRead = false
		existing.ReadAt = nil
		existing.CreatedAt = n.CreatedAt
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*n = existing
		return nil
	})
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint64) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": true, "read_at": at}).Error
}

func (r *notificationRepository) ListUnread(ctx context.Context, userUID string) ([]model.Notification, error) {
	var list []model.Notification
	if err := r.db.WithContext(ctx).
		Where("user_uid = ? AND is_read = ?", userUID, false).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userUID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_uid = ? AND is_read = ?", userUID, false).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *notificationRepository) DeleteBySource(ctx context.Context, userUID, sourceKey string) error {
	return r.db.WithContext(ctx).
		Where("user_uid = ? AND source_key = ?", userUID, sourceKey).
		Delete(&model.Notification{}).Error
}
