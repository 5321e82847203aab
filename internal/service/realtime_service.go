package service

import (
	"context"

	"github.com/interestconnect/realtime/internal/audit"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/internal/kafka"
	"github.com/interestconnect/realtime/internal/registry"
	"github.com/interestconnect/realtime/internal/store"
	"github.com/interestconnect/realtime/pkg/log"
	"golang.org/x/sync/singleflight"
)

type realtimeService struct {
	hub      *hub.Hub
	store    store.MessageStore
	users    store.UserDirectory
	producer kafka.MessageProducer
	mirror   registry.Mirror
	sf       singleflight.Group
}

// Deps are the collaborators of the realtime service. Producer and Mirror
// default to no-ops.
type Deps struct {
	Hub      *hub.Hub
	Store    store.MessageStore
	Users    store.UserDirectory
	Producer kafka.MessageProducer
	Mirror   registry.Mirror
}

func NewRealtimeService(d Deps) RealtimeService {
	if d.Producer == nil {
		d.Producer = kafka.NopProducer{}
	}
	if d.Mirror == nil {
		d.Mirror = registry.NopMirror{}
	}
	return &realtimeService{
		hub:      d.Hub,
		store:    d.Store,
		users:    d.Users,
		producer: d.Producer,
		mirror:   d.Mirror,
	}
}

func (s *realtimeService) HandleJoinGroup(ctx context.Context, c *hub.Client, groupID string) error {
	if groupID == "" {
		return s.ReportError(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidFormat)
	}
	var joined bool
	if err := s.hub.Exec(ctx, func(r hub.Router) {
		joined = r.JoinGroup(c, groupID)
	}); err != nil {
		return err
	}
	if joined {
		audit.LogWithTarget(ctx, audit.ActionJoinGroup, c.UserID(), groupID, "joined group")
	}
	return nil
}

func (s *realtimeService) HandleLeaveGroup(ctx context.Context, c *hub.Client, groupID string) error {
	if groupID == "" {
		return s.ReportError(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidFormat)
	}
	var left bool
	if err := s.hub.Exec(ctx, func(r hub.Router) {
		left = r.LeaveGroup(c, groupID)
	}); err != nil {
		return err
	}
	if left {
		audit.LogWithTarget(ctx, audit.ActionLeaveGroup, c.UserID(), groupID, "left group")
	}
	return nil
}

// ReportError sends an error event to c only.
func (s *realtimeService) ReportError(ctx context.Context, c *hub.Client, code, message string) error {
	return s.hub.Exec(ctx, func(r hub.Router) {
		r.EmitTo(c, domain.MsgTypeError, domain.NewErrorEvent(code, message))
	})
}

func (s *realtimeService) Stop() error {
	l := log.L()
	if err := s.producer.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close kafka producer")
	}
	if err := s.mirror.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close presence mirror")
	}
	return nil
}
