package model

import "time"

type Message struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderUID     string    `gorm:"column:sender_uid;size:128;index" json:"senderUid"`
	ReceiverUID   string    `gorm:"column:receiver_uid;size:128;index" json:"receiverUid"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	AttachmentURL *string   `gorm:"column:attachment_url;size:512" json:"attachmentUrl,omitempty"`
	IsRead        bool      `gorm:"column:is_read;not null;default:false" json:"isRead"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
