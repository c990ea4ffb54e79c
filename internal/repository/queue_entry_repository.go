package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/queueline/queueline-backend/internal/model"
	"gorm.io/gorm"
)

type QueueEntryRepository interface {
	// CreateWithNextNumber runs one numbering transaction: read the current
	// max number for the queue, insert max+1 as a waiting entry. A racing
	// insert trips the (queue_id, number) unique index and comes back as
	// ErrDuplicateNumber; the caller owns the retry policy.
	CreateWithNextNumber(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error)
	MarkNoShow(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error)
}

type queueEntryRepository struct {
	db *gorm.DB
}

func NewQueueEntryRepository(db *gorm.DB) QueueEntryRepository {
	return &queueEntryRepository{db: db}
}

func (r *queueEntryRepository) CreateWithNextNumber(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var entry model.QueueEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var max int
		if err := tx.Model(&model.QueueEntry{}).
			Where("queue_id = ?", queueID).
			Select("COALESCE(MAX(number), 0)").
			Scan(&max).Error; err != nil {
			return err
		}
		entry = model.QueueEntry{
			QueueID: queueID,
			UserUID: userUID,
			Number:  max + 1,
			Status:  model.EntryWaiting,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateNumber
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) MarkNoShow(ctx context.Context, queueID uint64, userUID string) (*model.QueueEntry, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var entry model.QueueEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("queue_id = ? AND user_uid = ? AND status = ?", queueID, userUID, model.EntryWaiting).
			Order("number ASC").
			First(&entry).Error; err != nil {
			return err
		}
		res := tx.Model(&model.QueueEntry{}).
			Where("id = ? AND status = ?", entry.ID, model.EntryWaiting).
			Updates(map[string]any{"status": model.EntryNoShow, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		entry.Status = model.EntryNoShow
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
