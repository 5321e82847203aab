package store

import (
	"context"
	"errors"

	"github.com/interestconnect/realtime/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
)

// MessageStore persists chat messages.
type MessageStore interface {
	InsertMessage(ctx context.Context, draft domain.MessageDraft) (*domain.StoredMessage, error)
}

// UserDirectory resolves the display attributes of users. Unknown ids are
// absent from the result rather than an error.
type UserDirectory interface {
	LookupUsers(ctx context.Context, ids []string) (map[string]domain.UserSummary, error)
}
