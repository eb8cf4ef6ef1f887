// Package convlog is an append-only per-conversation message log. It
// shares the memory store's database file but carries no ranking logic;
// retrieval is plain time order.
package convlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/victoriahouse/recall/db/models"
)

type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Metadata       map[string]string
	CreatedAt      int64
}

type Log struct {
	db *gorm.DB
}

func NewLog(gdb *gorm.DB) *Log {
	return &Log{db: gdb}
}

// Append records one message and returns it with id and timestamp set.
func (l *Log) Append(ctx context.Context, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().Unix()
	}
	var metadata *string
	if len(msg.Metadata) > 0 {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return Message{}, fmt.Errorf("encode metadata for %s: %w", msg.ID, err)
		}
		s := string(raw)
		metadata = &s
	}
	row := models.ConversationMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		Metadata:       metadata,
		CreatedAt:      msg.CreatedAt,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Message{}, fmt.Errorf("append message %s: %w", msg.ID, err)
	}
	return msg, nil
}

// List returns a conversation's messages oldest first. A limit of 0
// means no cap.
func (l *Log) List(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	q := l.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.ConversationMessage
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list conversation %s: %w", conversationID, err)
	}
	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		msg := Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			Role:           row.Role,
			Content:        row.Content,
			CreatedAt:      row.CreatedAt,
		}
		if row.Metadata != nil {
			// Tolerate malformed stored metadata.
			_ = json.Unmarshal([]byte(*row.Metadata), &msg.Metadata)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
