package models

type ConversationMessage struct {
	ID             string  `gorm:"column:id;type:text;primaryKey"`
	ConversationID string  `gorm:"column:conversation_id;type:text;not null"`
	Role           string  `gorm:"column:role;type:text;not null"`
	Content        string  `gorm:"column:content;type:text;not null"`
	Metadata       *string `gorm:"column:metadata;type:text"`
	CreatedAt      int64   `gorm:"column:created_at;not null"`
}

func (ConversationMessage) TableName() string { return "conversation_messages" }
