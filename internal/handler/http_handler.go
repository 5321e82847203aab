package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/internal/registry"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/interestconnect/realtime/pkg/middleware"
	"github.com/interestconnect/realtime/pkg/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const queryTimeout = 2 * time.Second

// BreakerStater reports a circuit breaker state for /health.
type BreakerStater interface {
	State() string
}

// PresenceResponse is the body of GET /api/presence/{userId}.
type PresenceResponse struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// HTTPHandler serves health and presence queries.
type HTTPHandler struct {
	hub     *hub.Hub
	mirror  registry.Mirror
	breaker BreakerStater
}

func NewHTTPHandler(h *hub.Hub, mirror registry.Mirror, breaker BreakerStater) *HTTPHandler {
	if mirror == nil {
		mirror = registry.NopMirror{}
	}
	return &HTTPHandler{hub: h, mirror: mirror, breaker: breaker}
}

// Health checks that the hub loop is still taking tasks.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	status := map[string]string{"status": "ok", "hub": "ok"}
	if h.breaker != nil {
		status["store"] = h.breaker.State()
	}

	if err := h.hub.Exec(ctx, func(hub.Router) {}); err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("hub health check failed")
		response.ServiceUnavailable(w, "hub unavailable")
		return
	}
	response.Success(w, status)
}

// ListOnline returns the users online on this instance.
func (h *HTTPHandler) ListOnline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	users, err := h.hub.OnlineUsers(ctx)
	if err != nil {
		response.ServiceUnavailable(w, "hub unavailable")
		return
	}
	if users == nil {
		users = []string{}
	}
	response.Success(w, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// GetPresence answers from the local registry first, then the mirror, so
// users connected to another instance also report online.
func (h *HTTPHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		response.BadRequest(w, "userId is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	online, err := h.hub.IsOnline(ctx, userID)
	if err != nil {
		response.ServiceUnavailable(w, "hub unavailable")
		return
	}
	if !online {
		mirrored, err := h.mirror.Lookup(ctx, userID)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("presence mirror lookup failed")
		}
		online = mirrored
	}

	response.Success(w, &PresenceResponse{UserID: userID, Online: online})
}

// NewRouter wires every HTTP route.
func NewRouter(ws *WSHandler, api *HTTPHandler, auth *middleware.AuthMiddleware, logger zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(log.HTTPMiddleware(logger))

	r.HandleFunc("/health", api.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.HandleWebSocket).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(auth.RequireAuth)
	protected.HandleFunc("/presence", api.ListOnline).Methods(http.MethodGet)
	protected.HandleFunc("/presence/{userId}", api.GetPresence).Methods(http.MethodGet)

	return r
}
