package service

import (
	"context"
	"time"

	"github.com/interestconnect/realtime/internal/audit"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/pkg/log"
)

// HandleNotification pushes a live notification to the recipient's
// personal channel, stamped with the sender and time. Nothing is stored.
func (s *realtimeService) HandleNotification(ctx context.Context, c *hub.Client, req domain.NotificationRequest) error {
	if err := req.Validate(); err != nil {
		if rerr := s.ReportError(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidNotification); rerr != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(rerr).Msg("failed to report invalid notification")
		}
		return err
	}

	event := &domain.NotificationEvent{
		RecipientID:  req.RecipientID,
		Type:         req.Type,
		Content:      req.Content,
		RelatedID:    req.RelatedID,
		RelatedModel: req.RelatedModel,
		Sender:       s.sender(ctx, c.UserID()),
		CreatedAt:    time.Now().UTC(),
	}

	var delivered int
	if err := s.hub.Exec(ctx, func(r hub.Router) {
		delivered = r.EmitToChannel(domain.PersonalChannel(req.RecipientID), domain.MsgTypeNewNotification, event)
	}); err != nil {
		return err
	}

	if delivered == 0 {
		l := log.Ctx(ctx)
		l.Debug().Str("recipient_id", req.RecipientID).Msg("notification recipient offline")
	}
	audit.LogWithTarget(ctx, audit.ActionSendNotification, c.UserID(), req.RecipientID, "notification relayed")
	return nil
}

func (s *realtimeService) sender(ctx context.Context, userID string) *domain.UserSummary {
	summary := &domain.UserSummary{ID: userID}
	if s.users == nil {
		return summary
	}
	users, err := s.lookupUsers(ctx, []string{userID})
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to look up notification sender")
		return summary
	}
	if u, ok := users[userID]; ok {
		*summary = u
	}
	return summary
}
