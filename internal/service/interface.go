package service

import (
	"context"

	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
)

// RealtimeService reacts to session lifecycle and client events. Errors
// are already reported to the originating session when returned.
type RealtimeService interface {
	HandleConnect(ctx context.Context, client *hub.Client) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
	HandleSendMessage(ctx context.Context, client *hub.Client, req domain.SendMessageRequest) (*domain.ChatMessage, error)
	HandleJoinGroup(ctx context.Context, client *hub.Client, groupID string) error
	HandleLeaveGroup(ctx context.Context, client *hub.Client, groupID string) error
	HandleTyping(ctx context.Context, client *hub.Client, req domain.TypingRequest) error
	HandleNotification(ctx context.Context, client *hub.Client, req domain.NotificationRequest) error
	ReportError(ctx context.Context, client *hub.Client, code, message string) error
	Stop() error
}
