package store

import (
	"time"

	"github.com/interestconnect/realtime/internal/domain"
)

// MessageModel is the GORM row of a chat message. Exactly one of
// ReceiverID and GroupID is set.
type MessageModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	SenderID    string    `gorm:"type:varchar(64);index;not null"`
	ReceiverID  *string   `gorm:"type:varchar(64);index"`
	GroupID     *string   `gorm:"column:group_id;type:varchar(64);index"`
	Content     string    `gorm:"type:text;not null"`
	MessageType string    `gorm:"type:varchar(16);default:text"`
	CreatedAt   time.Time `gorm:"index"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) ToDomain() *domain.StoredMessage {
	msg := &domain.StoredMessage{
		ID:          m.ID,
		SenderID:    m.SenderID,
		Content:     m.Content,
		MessageType: m.MessageType,
		CreatedAt:   m.CreatedAt,
	}
	if m.ReceiverID != nil {
		msg.ReceiverID = *m.ReceiverID
	}
	if m.GroupID != nil {
		msg.GroupID = *m.GroupID
	}
	return msg
}

// DraftToModel builds the row for a new message.
func DraftToModel(id string, d domain.MessageDraft, now time.Time) *MessageModel {
	m := &MessageModel{
		ID:          id,
		SenderID:    d.SenderID,
		Content:     d.Content,
		MessageType: domain.MessageTypeText,
		CreatedAt:   now,
	}
	if d.ReceiverID != "" {
		receiver := d.ReceiverID
		m.ReceiverID = &receiver
	}
	if d.GroupID != "" {
		group := d.GroupID
		m.GroupID = &group
	}
	return m
}

// UserModel is the display slice of the users table. The account service
// owns the table; this service only reads it.
type UserModel struct {
	ID             string `gorm:"primaryKey;type:varchar(64)"`
	Name           string `gorm:"type:varchar(255)"`
	ProfilePicture string `gorm:"type:varchar(1024)"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToDomain() domain.UserSummary {
	return domain.UserSummary{
		ID:             m.ID,
		Name:           m.Name,
		ProfilePicture: m.ProfilePicture,
	}
}

// Models lists the tables created by the migrate command.
func Models() []interface{} {
	return []interface{}{&MessageModel{}, &UserModel{}}
}
