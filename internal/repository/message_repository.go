package repository

import (
	"context"
	"time"

	"github.com/queueline/queueline-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uint64) (*model.Message, error)
	MarkRead(ctx context.Context, id uint64) error
	// ListBetween returns up to limit messages between the pair, newest
	// first, restricted to created_at > after and, when before is set,
	// created_at < before.
	ListBetween(ctx context.Context, uid, other string, after time.Time, before *time.Time, limit int) ([]model.Message, error)
	// LatestPerCounterpart returns the single most recent message of every
	// conversation the user participates in, newest conversation first. The
	// conversation key is the unordered participant pair.
	LatestPerCounterpart(ctx context.Context, uid string) ([]model.Message, error)
	FindHidden(ctx context.Context, uid, other string) (*model.HiddenChat, error)
	ListHidden(ctx context.Context, uid string) ([]model.HiddenChat, error)
	UpsertHidden(ctx context.Context, uid, other string, at time.Time) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uint64) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (r *messageRepository) ListBetween(ctx context.Context, uid, other string, after time.Time, before *time.Time, limit int) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).
		Where("(sender_uid = ? AND receiver_uid = ?) OR (sender_uid = ? AND receiver_uid = ?)", uid, other, other, uid)
	if !after.IsZero() {
		q = q.Where("created_at > ?", after)
	}
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	var msgs []model.Message
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) LatestPerCounterpart(ctx context.Context, uid string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	// Partitioned latest-per-conversation: the pair key is order-independent
	// so A->B and B->A land in the same partition.
	query := `
		SELECT id, sender_uid, receiver_uid, content, attachment_url, is_read, created_at
		FROM (
			SELECT m.*, ROW_NUMBER() OVER (
				PARTITION BY LEAST(m.sender_uid, m.receiver_uid), GREATEST(m.sender_uid, m.receiver_uid)
				ORDER BY m.created_at DESC, m.id DESC
			) AS rn
			FROM messages m
			WHERE m.sender_uid = ? OR m.receiver_uid = ?
		) t
		WHERE t.rn = 1
		ORDER BY t.created_at DESC, t.id DESC
	`
	var msgs []model.Message
	if err := r.db.WithContext(ctx).Raw(query, uid, uid).Scan(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) FindHidden(ctx context.Context, uid, other string) (*model.HiddenChat, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var hc model.HiddenChat
	if err := r.db.WithContext(ctx).
		Where("user_uid = ? AND other_uid = ?", uid, other).
		First(&hc).Error; err != nil {
		return nil, err
	}
	return &hc, nil
}

func (r *messageRepository) ListHidden(ctx context.Context, uid string) ([]model.HiddenChat, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.HiddenChat
	if err := r.db.WithContext(ctx).Where("user_uid = ?", uid).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *messageRepository) UpsertHidden(ctx context.Context, uid, other string, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	hc := model.HiddenChat{UserUID: uid, OtherUID: other, UpdatedAt: at}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_uid"}, {Name: "other_uid"}},
			DoUpdates: clause.Assignments(map[string]any{"updated_at": at}),
		}).
		Create(&hc).Error
}
