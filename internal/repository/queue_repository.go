package repository

import (
	"context"

	"github.com/queueline/queueline-backend/internal/model"
	"gorm.io/gorm"
)

type QueueRepository interface {
	FindByID(ctx context.Context, id uint64) (*model.Queue, error)
	SetStatus(ctx context.Context, id uint64, status string) (*model.Queue, error)
}

type queueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepository{db: db}
}

func (r *queueRepository) FindByID(ctx context.Context, id uint64) (*model.Queue, error) {
	var q model.Queue
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *queueRepository) SetStatus(ctx context.Context, id uint64, status string) (*model.Queue, error) {
	var q model.Queue
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&q).Update("status", status).Error; err != nil {
		return nil, err
	}
	q.Status = status
	return &q, nil
}
