package domain

import "time"

// MessageTypeText is the only message kind handled by this service.
const MessageTypeText = "text"

// UserSummary is the display slice of a user attached to outgoing events.
type UserSummary struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

// MessageDraft is a validated message waiting to be persisted.
type MessageDraft struct {
	SenderID   string
	ReceiverID string
	GroupID    string
	Content    string
}

// IsDirect reports whether the draft targets a single receiver.
func (d MessageDraft) IsDirect() bool {
	return d.ReceiverID != ""
}

// ChatMessage is a persisted message populated with sender and receiver
// display attributes.
type ChatMessage struct {
	ID          string       `json:"_id"`
	Sender      UserSummary  `json:"sender"`
	Receiver    *UserSummary `json:"receiver"`
	GroupID     string       `json:"group,omitempty"`
	Content     string       `json:"content"`
	MessageType string       `json:"messageType"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// ConversationKey groups the messages of one direct conversation or group.
func (m *ChatMessage) ConversationKey() string {
	if m.GroupID != "" {
		return GroupChannel(m.GroupID)
	}
	receiver := ""
	if m.Receiver != nil {
		receiver = m.Receiver.ID
	}
	return DirectConversationKey(m.Sender.ID, receiver)
}

// DirectConversationKey is symmetric in its arguments.
func DirectConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "dm_" + a + "_" + b
}

// PersonalChannel is the channel every session of userID joins on admission.
// Its prefix keeps user ids out of the group namespace.
func PersonalChannel(userID string) string {
	return "user_" + userID
}

// GroupChannel is the fan-out channel of a group.
func GroupChannel(groupID string) string {
	return "group_" + groupID
}

// StoredMessage is a message as written by the store, before population.
type StoredMessage struct {
	ID          string
	SenderID    string
	ReceiverID  string
	GroupID     string
	Content     string
	MessageType string
	CreatedAt   time.Time
}

// UserIDs returns the users whose display attributes the message needs.
func (m *StoredMessage) UserIDs() []string {
	if m.ReceiverID != "" && m.ReceiverID != m.SenderID {
		return []string{m.SenderID, m.ReceiverID}
	}
	return []string{m.SenderID}
}

// Populate attaches display attributes. Users missing from the map keep
// only their id.
func (m *StoredMessage) Populate(users map[string]UserSummary) *ChatMessage {
	summary := func(id string) UserSummary {
		if u, ok := users[id]; ok {
			return u
		}
		return UserSummary{ID: id}
	}

	out := &ChatMessage{
		ID:          m.ID,
		Sender:      summary(m.SenderID),
		GroupID:     m.GroupID,
		Content:     m.Content,
		MessageType: m.MessageType,
		CreatedAt:   m.CreatedAt,
	}
	if m.ReceiverID != "" {
		r := summary(m.ReceiverID)
		out.Receiver = &r
	}
	return out
}
