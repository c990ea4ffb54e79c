package model

import "time"

// Notification dedup works on (user_uid, source_key): at most one unread row
// per source, refreshed in place when the source produces new activity.
type Notification struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserUID     string     `gorm:"column:user_uid;size:128;index:idx_user_source;not null" json:"userUid"`
	SourceKey   string     `gorm:"column:source_key;size:128;index:idx_user_source;not null" json:"sourceKey"`
	Title       string     `gorm:"column:title;size:255" json:"title"`
	Content     string     `gorm:"column:content;type:text" json:"content"`
	RedirectURL *string    `gorm:"column:redirect_url;size:512" json:"redirectUrl,omitempty"`
	IsRead      bool       `gorm:"column:is_read;not null;default:false" json:"isRead"`
	ReadAt      *time.Time `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
