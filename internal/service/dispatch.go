package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/interestconnect/realtime/internal/audit"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/internal/metrics"
	"github.com/interestconnect/realtime/pkg/log"
)

// HandleSendMessage validates, persists and fans out one chat message.
// The store call runs on the caller's goroutine, outside the hub loop.
func (s *realtimeService) HandleSendMessage(ctx context.Context, c *hub.Client, req domain.SendMessageRequest) (*domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	draft, err := req.Draft(c.UserID())
	if err != nil {
		if rerr := s.ReportError(ctx, c, domain.ErrCodeInvalidTarget, domain.MsgInvalidMessageTarget); rerr != nil {
			l.Warn().Err(rerr).Msg("failed to report invalid message")
		}
		return nil, err
	}

	kind := "group"
	if draft.IsDirect() {
		kind = "direct"
	}

	stored, err := s.store.InsertMessage(ctx, draft)
	if err != nil {
		metrics.MessagesPersisted.WithLabelValues(kind, "error").Inc()
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		l.Error().Err(err).Msg("failed to persist message")
		if rerr := s.ReportError(ctx, c, domain.ErrCodePersistence, domain.MsgFailedToSend); rerr != nil {
			l.Warn().Err(rerr).Msg("failed to report persistence failure")
		}
		return nil, err
	}
	metrics.MessagesPersisted.WithLabelValues(kind, "ok").Inc()

	msg := s.populate(ctx, stored)

	if err := s.hub.Exec(ctx, func(r hub.Router) {
		if draft.IsDirect() {
			r.EmitToChannel(domain.PersonalChannel(draft.ReceiverID), domain.MsgTypeNewMessage, msg)
			r.EmitToChannel(domain.PersonalChannel(draft.SenderID), domain.MsgTypeMessageSent, msg)
			return
		}
		r.EmitToChannel(domain.GroupChannel(draft.GroupID), domain.MsgTypeNewMessage, msg)
	}); err != nil {
		return msg, err
	}

	if err := s.producer.PublishMessage(ctx, msg); err != nil {
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to publish chat message")
	}

	audit.LogWithTarget(ctx, audit.ActionSendMessage, draft.SenderID, msg.ConversationKey(), "message sent")
	return msg, nil
}

// populate attaches display attributes. A directory failure degrades to
// id-only summaries since the message is already stored.
func (s *realtimeService) populate(ctx context.Context, stored *domain.StoredMessage) *domain.ChatMessage {
	if s.users == nil {
		return stored.Populate(nil)
	}
	users, err := s.lookupUsers(ctx, stored.UserIDs())
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldMessageID, stored.ID).Msg("failed to populate message users")
		return stored.Populate(nil)
	}
	return stored.Populate(users)
}
