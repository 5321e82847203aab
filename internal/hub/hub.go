package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/metrics"
	"github.com/interestconnect/realtime/internal/registry"
	"github.com/interestconnect/realtime/pkg/log"
)

// Router is the view of hub state available to a task. Its methods may
// only be called from inside a function passed to Hub.Exec.
type Router interface {
	// Attach adds the client to the set of connected sessions.
	Attach(c *Client)
	// Detach removes the client from every channel and closes its Send.
	Detach(c *Client)

	// Admit makes c the current session of its user and returns the
	// superseded session id, if any.
	Admit(c *Client) string
	// Evict removes c's user from the registry only while c is current.
	Evict(c *Client) bool
	// IsOnline reports whether userID has a current session.
	IsOnline(userID string) bool
	// Online returns the sorted ids of online users.
	Online() []string

	// JoinPersonal subscribes c to its user's personal channel.
	JoinPersonal(c *Client)
	// JoinGroup subscribes c to a group channel and reports whether it was new.
	JoinGroup(c *Client, groupID string) bool
	// LeaveGroup unsubscribes c and reports whether it was a member.
	LeaveGroup(c *Client, groupID string) bool
	// Members counts the sessions in a channel.
	Members(channel string) int
	// Channels returns c's channels in sorted order.
	Channels(c *Client) []string

	// EmitToChannel queues an event for every session in channel and
	// returns how many received it.
	EmitToChannel(channel, event string, payload interface{}) int
	// EmitToAll queues an event for every attached session.
	EmitToAll(event string, payload interface{}) int
	// EmitTo queues an event for c alone.
	EmitTo(c *Client, event string, payload interface{}) bool
}

type task struct {
	fn   func(Router)
	done chan struct{}
}

// Hub owns the connection registry and channel tables. All access goes
// through a single loop that runs queued tasks one at a time.
type Hub struct {
	state   *state
	tasks   chan task
	stopped chan struct{}
	once    sync.Once
	running sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		state: &state{
			registry: registry.New(),
			clients:  make(map[string]*Client),
			channels: make(map[string]map[string]*Client),
		},
		tasks:   make(chan task, 1024),
		stopped: make(chan struct{}),
	}
}

// RunWithContext processes tasks until ctx is done, then detaches every
// client so their write pumps close the connections.
func (h *Hub) RunWithContext(ctx context.Context) error {
	if !h.running.TryLock() {
		return fmt.Errorf("hub already running")
	}
	defer h.running.Unlock()

	select {
	case <-h.stopped:
		return domain.ErrHubClosed
	default:
	}

	l := log.L()
	l.Info().Msg("hub started")

	for {
		// Shutdown takes priority over queued work.
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case t := <-h.tasks:
			h.run(t)
		}
	}
}

func (h *Hub) run(t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l := log.L()
			l.Error().Interface("panic", r).Msg("hub task panicked")
		}
		close(t.done)
		metrics.RecordHubTask(start)
	}()
	t.fn(h.state)
}

func (h *Hub) shutdown() {
	h.once.Do(func() {
		for _, c := range h.state.clients {
			h.state.Detach(c)
		}
		close(h.stopped)
		l := log.L()
		l.Info().Msg("hub stopped")
	})
}

// Exec queues fn on the hub loop and waits until it has run. Once queued,
// fn always runs to completion even if ctx is cancelled meanwhile.
func (h *Hub) Exec(ctx context.Context, fn func(Router)) error {
	t := task{fn: fn, done: make(chan struct{})}

	select {
	case h.tasks <- t:
	case <-h.stopped:
		return domain.ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-t.done:
		return nil
	case <-h.stopped:
		// The loop may have picked the task up just before stopping.
		select {
		case <-t.done:
			return nil
		default:
			return domain.ErrHubClosed
		}
	}
}

// IsOnline reports whether userID has a current session.
func (h *Hub) IsOnline(ctx context.Context, userID string) (bool, error) {
	var online bool
	err := h.Exec(ctx, func(r Router) {
		online = r.IsOnline(userID)
	})
	return online, err
}

// OnlineUsers returns the sorted ids of all online users.
func (h *Hub) OnlineUsers(ctx context.Context) ([]string, error) {
	var users []string
	err := h.Exec(ctx, func(r Router) {
		users = r.Online()
	})
	return users, err
}

// Detach removes c from the hub. Safe to call more than once.
func (h *Hub) Detach(ctx context.Context, c *Client) error {
	return h.Exec(ctx, func(r Router) {
		r.Detach(c)
	})
}
