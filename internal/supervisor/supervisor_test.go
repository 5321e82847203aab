package supervisor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/internal/registry"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

func init() {
	log.SetGlobal(zerolog.New(io.Discard))
}

type mockHTTPServer struct {
	started  chan struct{}
	stop     chan struct{}
	shutdown atomic.Bool
	failWith error
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}), stop: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	close(m.started)
	if m.failWith != nil {
		return m.failWith
	}
	<-m.stop
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdown.Store(true)
	close(m.stop)
	return nil
}

type countingMirror struct {
	registry.NopMirror
	runs atomic.Int32
}

func (m *countingMirror) Run(ctx context.Context, snapshot registry.Snapshot) error {
	m.runs.Add(1)
	if _, err := snapshot(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestNewTree_Defaults(t *testing.T) {
	tree := NewTree(TreeConfig{})
	if tree.config != DefaultTreeConfig() {
		t.Errorf("expected defaults, got %+v", tree.config)
	}

	custom := NewTree(TreeConfig{FailureThreshold: 2, ShutdownTimeout: time.Second})
	if custom.config.FailureThreshold != 2 || custom.config.ShutdownTimeout != time.Second {
		t.Errorf("custom values overwritten: %+v", custom.config)
	}
	if custom.config.FailureBackoff != 15*time.Second {
		t.Errorf("expected default backoff, got %v", custom.config.FailureBackoff)
	}
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newMockHTTPServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !srv.shutdown.Load() {
		t.Error("expected Shutdown to be called")
	}
	if svc.String() != "http-server" {
		t.Errorf("unexpected name %q", svc.String())
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	srv := newMockHTTPServer()
	srv.failWith = errors.New("address in use")
	svc := NewHTTPServerService(srv, 0)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.failWith) {
		t.Errorf("expected wrapped listen error, got %v", err)
	}
}

func TestHubService_DoNotRestartWhenClosed(t *testing.T) {
	h := hub.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.RunWithContext(ctx)

	err := NewHubService(h).Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("expected ErrDoNotRestart, got %v", err)
	}
}

func TestTree_RunsAndStops(t *testing.T) {
	h := hub.NewHub()
	mirror := &countingMirror{}
	srv := newMockHTTPServer()

	tree := NewTree(TreeConfig{
		FailureBackoff:  100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	tree.AddCoreService(NewHubService(h))
	tree.AddCoreService(NewMirrorService(mirror, h))
	tree.AddAPIService(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(2 * time.Second):
		t.Fatal("http service did not start")
	}

	// The hub answers once its loop is running.
	qctx, qcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer qcancel()
	if _, err := h.OnlineUsers(qctx); err != nil {
		t.Fatalf("hub not serving: %v", err)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}

	if !srv.shutdown.Load() {
		t.Error("expected http server shutdown")
	}
	if mirror.runs.Load() < 1 {
		t.Error("expected mirror service to run")
	}
	if err := h.Exec(context.Background(), func(hub.Router) {}); !errors.Is(err, domain.ErrHubClosed) {
		t.Errorf("expected hub closed after shutdown, got %v", err)
	}
}

func TestEventName(t *testing.T) {
	tests := map[suture.EventType]string{
		suture.EventTypeStopTimeout:      "stop_timeout",
		suture.EventTypeServicePanic:     "service_panic",
		suture.EventTypeServiceTerminate: "service_terminate",
		suture.EventTypeBackoff:          "backoff",
		suture.EventTypeResume:           "resume",
	}
	for typ, want := range tests {
		if got := eventName(typ); got != want {
			t.Errorf("eventName(%v) = %q, want %q", typ, got, want)
		}
	}
}
