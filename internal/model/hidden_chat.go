package model

import "time"

// HiddenChat is a per-user visibility watermark: messages in the
// (user, other) conversation with created_at <= UpdatedAt are excluded
// from that user's view. Hiding again refreshes the row, never duplicates it.
type HiddenChat struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserUID   string    `gorm:"column:user_uid;size:128;uniqueIndex:idx_user_other;not null"`
	OtherUID  string    `gorm:"column:other_uid;size:128;uniqueIndex:idx_user_other;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (HiddenChat) TableName() string {
	return "hidden_chats"
}
