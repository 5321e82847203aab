package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/metrics"
)

// CassandraMessageStore writes messages partitioned by conversation.
type CassandraMessageStore struct {
	session *gocql.Session
}

func NewCassandraMessageStore(client *CassandraClient) *CassandraMessageStore {
	return &CassandraMessageStore{session: client.Session()}
}

func (s *CassandraMessageStore) InsertMessage(ctx context.Context, draft domain.MessageDraft) (*domain.StoredMessage, error) {
	defer metrics.RecordStore("insert_message", time.Now())

	// Cassandra timestamps carry millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	id, err := newMessageID(now)
	if err != nil {
		return nil, err
	}

	msg := &domain.StoredMessage{
		ID:          id,
		SenderID:    draft.SenderID,
		ReceiverID:  draft.ReceiverID,
		GroupID:     draft.GroupID,
		Content:     draft.Content,
		MessageType: domain.MessageTypeText,
		CreatedAt:   now,
	}

	query := `
		INSERT INTO messages_by_conversation (
			conversation_key, created_at, message_id, sender_id, receiver_id, group_id, content, message_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	err = s.session.Query(query,
		conversationKey(draft),
		msg.CreatedAt,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.GroupID,
		msg.Content,
		msg.MessageType,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

func conversationKey(d domain.MessageDraft) string {
	if d.IsDirect() {
		return domain.DirectConversationKey(d.SenderID, d.ReceiverID)
	}
	return domain.GroupChannel(d.GroupID)
}
