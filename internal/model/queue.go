package model

import "time"

const (
	QueueOpen   = "open"
	QueueClosed = "closed"
)

type Queue struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Status    string    `gorm:"size:16;not null;default:open" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Queue) TableName() string {
	return "queues"
}
