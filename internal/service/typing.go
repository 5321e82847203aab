package service

import (
	"context"
	"strings"

	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
)

// HandleTyping relays a typing indicator to the receiver's personal
// channel. Requests without a receiver are dropped.
func (s *realtimeService) HandleTyping(ctx context.Context, c *hub.Client, req domain.TypingRequest) error {
	receiverID := strings.TrimSpace(req.ReceiverID)
	if receiverID == "" {
		return nil
	}

	event := &domain.TypingEvent{
		UserID:   c.UserID(),
		IsTyping: req.IsTyping,
	}
	return s.hub.Exec(ctx, func(r hub.Router) {
		r.EmitToChannel(domain.PersonalChannel(receiverID), domain.MsgTypeUserTyping, event)
	})
}
