package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/registry"
	"github.com/thejerf/suture/v4"
)

// ContextHub is the hub loop as seen by the supervisor.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
	OnlineUsers(ctx context.Context) ([]string, error)
}

// HubService runs the hub loop. A stopped hub cannot be restarted, so its
// ErrHubClosed ends supervision of this service.
type HubService struct {
	hub ContextHub
}

func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

func (s *HubService) Serve(ctx context.Context) error {
	err := s.hub.RunWithContext(ctx)
	if errors.Is(err, domain.ErrHubClosed) {
		return suture.ErrDoNotRestart
	}
	return err
}

func (s *HubService) String() string {
	return "hub"
}

// MirrorService keeps the presence mirror in step with the hub registry.
type MirrorService struct {
	mirror registry.Mirror
	hub    ContextHub
}

func NewMirrorService(mirror registry.Mirror, hub ContextHub) *MirrorService {
	return &MirrorService{mirror: mirror, hub: hub}
}

func (s *MirrorService) Serve(ctx context.Context) error {
	return s.mirror.Run(ctx, s.hub.OnlineUsers)
}

func (s *MirrorService) String() string {
	return "presence-mirror"
}

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server until the supervisor stops it.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
	}
}

func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already cancelled; shutdown needs its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string {
	return "http-server"
}
