package domain

import (
	"fmt"
	"strings"

	"github.com/interestconnect/realtime/internal/validation"
)

// Draft validates the request and turns it into a message draft for
// senderID. Any rule failure is ErrInvalidMessageTarget.
func (r SendMessageRequest) Draft(senderID string) (MessageDraft, error) {
	r.ReceiverID = strings.TrimSpace(r.ReceiverID)
	r.GroupID = strings.TrimSpace(r.GroupID)
	r.Content = strings.TrimSpace(r.Content)

	if err := validation.Struct(r); err != nil {
		return MessageDraft{}, fmt.Errorf("%w: %v", ErrInvalidMessageTarget, err)
	}

	return MessageDraft{
		SenderID:   senderID,
		ReceiverID: r.ReceiverID,
		GroupID:    r.GroupID,
		Content:    r.Content,
	}, nil
}

// Validate checks the notification has a recipient.
func (r *NotificationRequest) Validate() error {
	r.RecipientID = strings.TrimSpace(r.RecipientID)
	if err := validation.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
