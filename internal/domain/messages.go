package domain

import (
	"time"

	"github.com/goccy/go-json"
)

// Client -> server event types.
const (
	MsgTypeSendMessage      = "send_message"
	MsgTypeJoinGroup        = "join_group"
	MsgTypeLeaveGroup       = "leave_group"
	MsgTypeTyping           = "typing"
	MsgTypeSendNotification = "send_notification"
	MsgTypePing             = "ping"
)

// Server -> client event types.
const (
	MsgTypeNewMessage      = "new_message"
	MsgTypeMessageSent     = "message_sent"
	MsgTypeUserOnline      = "user_online"
	MsgTypeUserOffline     = "user_offline"
	MsgTypeUserTyping      = "user_typing"
	MsgTypeNewNotification = "new_notification"
	MsgTypeError           = "error"
	MsgTypePong            = "pong"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is an encoded-on-send server event.
type Outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Encode marshals an event into a websocket frame.
func Encode(eventType string, payload interface{}) ([]byte, error) {
	return json.Marshal(&Outbound{Type: eventType, Data: payload})
}

// Client -> server payloads

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required_without=GroupID,excluded_with=GroupID"`
	GroupID    string `json:"groupId" validate:"required_without=ReceiverID"`
	Content    string `json:"content" validate:"required,max=5000"`
}

// GroupRequest is the object form of join_group / leave_group. The bare
// string form is accepted as well, see DecodeGroupID.
type GroupRequest struct {
	GroupID string `json:"groupId"`
}

type TypingRequest struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type NotificationRequest struct {
	RecipientID  string `json:"recipientId" validate:"required"`
	Type         string `json:"type" validate:"omitempty,max=64"`
	Content      string `json:"content" validate:"max=5000"`
	RelatedID    string `json:"relatedId,omitempty"`
	RelatedModel string `json:"relatedModel,omitempty"`
}

// DecodeGroupID accepts `"g1"` or `{"groupId": "g1"}`.
func DecodeGroupID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id, nil
	}
	var req GroupRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	return req.GroupID, nil
}

// Server -> client payloads

type PresenceEvent struct {
	UserID string `json:"userId"`
}

type TypingEvent struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type NotificationEvent struct {
	RecipientID  string       `json:"recipientId"`
	Type         string       `json:"type"`
	Content      string       `json:"content"`
	RelatedID    string       `json:"relatedId,omitempty"`
	RelatedModel string       `json:"relatedModel,omitempty"`
	Sender       *UserSummary `json:"sender,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Code:    code,
		Message: message,
	}
}
