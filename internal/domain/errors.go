package domain

import "errors"

var (
	// ErrAuth rejects a handshake; no session is created.
	ErrAuth = errors.New("authentication failed")

	// ErrInvalidMessageTarget is a send with zero or two targets or no content.
	ErrInvalidMessageTarget = errors.New("invalid message target")

	// ErrPersistence wraps any failure of the message store.
	ErrPersistence = errors.New("persistence failure")

	// ErrRegistryRace marks an eviction guarded out by a newer session.
	ErrRegistryRace = errors.New("session superseded")

	// ErrInvalidPayload is a frame that does not decode.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrHubClosed is returned once the hub loop has stopped.
	ErrHubClosed = errors.New("hub closed")
)

// Error codes sent in error events.
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInvalidTarget = "INVALID_MESSAGE_TARGET"
	ErrCodePersistence   = "PERSISTENCE_FAILURE"
	ErrCodeUnknownType   = "UNKNOWN_TYPE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Client-facing error messages.
const (
	MsgFailedToSend         = "Failed to send message"
	MsgInvalidMessageTarget = "Message needs exactly one of receiverId or groupId and non-empty content"
	MsgInvalidNotification  = "Notification needs a recipientId"
	MsgInvalidFormat        = "Invalid message format"
	MsgUnknownType          = "Unknown message type"
)

// ErrorCode maps an error to the code reported to the client.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return ErrCodeUnauthorized
	case errors.Is(err, ErrInvalidMessageTarget):
		return ErrCodeInvalidTarget
	case errors.Is(err, ErrPersistence):
		return ErrCodePersistence
	case errors.Is(err, ErrInvalidPayload):
		return ErrCodeBadRequest
	default:
		return ErrCodeInternalError
	}
}
