package model

import "time"

type AuditRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Action    string    `gorm:"size:64;index;not null"`
	ActorUID  string    `gorm:"column:actor_uid;size:128;index"`
	Status    int       `gorm:"not null"`
	Error     string    `gorm:"size:512"`
	Payload   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (AuditRecord) TableName() string {
	return "audit_records"
}
