package model

import "time"

const (
	EntryWaiting = "waiting"
	EntryDone    = "done"
	EntryNoShow  = "no_show"
)

// QueueEntry is one issued ticket. Numbers are unique per queue and strictly
// increasing in join order; the composite unique index is what makes two
// racing joins fail instead of both committing the same number.
type QueueEntry struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	QueueID     uint64     `gorm:"column:queue_id;uniqueIndex:idx_queue_number" json:"queueId"`
	UserUID     string     `gorm:"column:user_uid;size:128;index" json:"userUid"`
	Number      int        `gorm:"not null;uniqueIndex:idx_queue_number" json:"number"`
	Status      string     `gorm:"size:16;not null;index" json:"status"`
	JoinAt      time.Time  `gorm:"column:join_at;autoCreateTime" json:"joinAt"`
	ServedAt    *time.Time `gorm:"column:served_at" json:"servedAt,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}
