package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/interestconnect/realtime/internal/audit"
	"github.com/interestconnect/realtime/internal/config"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/internal/metrics"
	"github.com/interestconnect/realtime/internal/service"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/interestconnect/realtime/pkg/middleware"
	"github.com/interestconnect/realtime/pkg/response"
	"github.com/segmentio/ksuid"
)

const disconnectTimeout = 5 * time.Second

type WSHandler struct {
	hub      *hub.Hub
	service  service.RealtimeService
	verifier middleware.TokenVerifier
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, svc service.RealtimeService, verifier middleware.TokenVerifier, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		wsCfg:    wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(wsCfg.AllowedOrigins),
		},
	}
}

// checkOrigin allows requests without an Origin header, any origin when
// the list contains "*", and otherwise exact matches.
func checkOrigin(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

// HandleWebSocket authenticates the handshake, then upgrades and admits the
// session. A rejected handshake never reaches the hub.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		metrics.HandshakeFailures.WithLabelValues("missing_token").Inc()
		audit.LogWithDetail(r.Context(), audit.ActionAuthFailed, "", "missing_token", "websocket handshake rejected")
		response.Unauthorized(w, "missing token")
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		metrics.HandshakeFailures.WithLabelValues("invalid_token").Inc()
		audit.LogWithDetail(r.Context(), audit.ActionAuthFailed, "", err.Error(), "websocket handshake rejected")
		response.Unauthorized(w, domain.ErrAuth.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.HandshakeFailures.WithLabelValues("upgrade").Inc()
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := domain.NewSession(ksuid.New().String(), userID, log.ClientIP(r))
	client := hub.NewClient(h.hub, conn, session, h.wsCfg)

	// The request context ends once the handler returns; keep its logger only.
	ctx := log.WithLogger(context.Background(), log.Ctx(r.Context()))
	ctx = log.WithSession(ctx, session.ID, userID)

	if err := h.service.HandleConnect(ctx, client); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to admit session")
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(
		func(c *hub.Client, message []byte) { h.handleMessage(ctx, c, message) },
		func(c *hub.Client) { h.handleClose(ctx, c) },
	)
}

func (h *WSHandler) handleClose(ctx context.Context, c *hub.Client) {
	ctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()

	if err := h.service.HandleDisconnect(ctx, c); err != nil && !errors.Is(err, domain.ErrHubClosed) {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to handle disconnect")
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, c *hub.Client, message []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
		metrics.EventsInbound.WithLabelValues("invalid").Inc()
		h.reject(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidFormat)
		return
	}

	l := log.Ctx(ctx)
	var err error

	switch env.Type {
	case domain.MsgTypeSendMessage:
		var req domain.SendMessageRequest
		if derr := decode(env.Data, &req); derr != nil {
			h.reject(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidFormat)
			break
		}
		_, err = h.service.HandleSendMessage(ctx, c, req)

	case domain.MsgTypeJoinGroup, domain.MsgTypeLeaveGroup:
		groupID, derr := domain.DecodeGroupID(env.Data)
		if derr != nil {
			h.reject(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidFormat)
			break
		}
		groupID = strings.TrimSpace(groupID)
		if env.Type == domain.MsgTypeJoinGroup {
			err = h.service.HandleJoinGroup(ctx, c, groupID)
		} else {
			err = h.service.HandleLeaveGroup(ctx, c, groupID)
		}

	case domain.MsgTypeTyping:
		var req domain.TypingRequest
		if derr := decode(env.Data, &req); derr != nil {
			h.reject(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidFormat)
			break
		}
		err = h.service.HandleTyping(ctx, c, req)

	case domain.MsgTypeSendNotification:
		var req domain.NotificationRequest
		if derr := decode(env.Data, &req); derr != nil {
			h.reject(ctx, c, domain.ErrCodeBadRequest, domain.MsgInvalidFormat)
			break
		}
		err = h.service.HandleNotification(ctx, c, req)

	case domain.MsgTypePing:
		err = h.hub.Exec(ctx, func(r hub.Router) {
			r.EmitTo(c, domain.MsgTypePong, nil)
		})

	default:
		metrics.EventsInbound.WithLabelValues("unknown").Inc()
		h.reject(ctx, c, domain.ErrCodeUnknownType, domain.MsgUnknownType)
		return
	}

	metrics.EventsInbound.WithLabelValues(env.Type).Inc()
	if err != nil {
		// Already reported to the session by the service.
		l.Debug().Err(err).Str(log.FieldEvent, env.Type).Msg("event handling failed")
	}
}

func (h *WSHandler) reject(ctx context.Context, c *hub.Client, code, message string) {
	if err := h.service.ReportError(ctx, c, code, message); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("failed to report error")
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return domain.ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(domain.ErrInvalidPayload, err)
	}
	return nil
}
