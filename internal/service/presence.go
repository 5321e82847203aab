package service

import (
	"context"

	"github.com/interestconnect/realtime/internal/audit"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/pkg/log"
)

// HandleConnect admits c as its user's current session, joins the personal
// channel and announces the user online, all in one hub task.
func (s *realtimeService) HandleConnect(ctx context.Context, c *hub.Client) error {
	userID := c.UserID()

	var superseded string
	if err := s.hub.Exec(ctx, func(r hub.Router) {
		r.Attach(c)
		superseded = r.Admit(c)
		r.JoinPersonal(c)
		r.EmitToAll(domain.MsgTypeUserOnline, &domain.PresenceEvent{UserID: userID})
	}); err != nil {
		return err
	}

	l := log.Ctx(ctx)
	if superseded != "" {
		l.Debug().Str("superseded_session", superseded).Msg("newer session replaced registry entry")
	}
	if err := s.mirror.MarkOnline(ctx, userID, c.ID); err != nil {
		l.Warn().Err(err).Msg("failed to mirror presence")
	}

	audit.Log(ctx, audit.ActionConnect, userID, "session connected")
	return nil
}

// HandleDisconnect evicts c and announces the user offline when c was still
// the current session. A superseded session leaves silently.
func (s *realtimeService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	userID := c.UserID()

	var evicted bool
	if err := s.hub.Exec(ctx, func(r hub.Router) {
		evicted = r.Evict(c)
		r.Detach(c)
		if evicted {
			r.EmitToAll(domain.MsgTypeUserOffline, &domain.PresenceEvent{UserID: userID})
		}
	}); err != nil {
		return err
	}

	l := log.Ctx(ctx)
	if !evicted {
		l.Debug().Err(domain.ErrRegistryRace).Msg("eviction skipped")
	} else if err := s.mirror.MarkOffline(ctx, userID); err != nil {
		l.Warn().Err(err).Msg("failed to clear mirrored presence")
	}

	audit.LogWithDetail(ctx, audit.ActionDisconnect, userID, c.ID, "session disconnected")
	return nil
}
