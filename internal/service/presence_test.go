package service

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
)

func presenceUser(t *testing.T, env domain.Envelope) string {
	t.Helper()
	var ev domain.PresenceEvent
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	return ev.UserID
}

func TestHandleConnect_BroadcastsOnline(t *testing.T) {
	f := setup(t)
	alice := f.connect(t, "s1", "alice")

	got := frames(alice)
	if len(got) != 1 || got[0].Type != domain.MsgTypeUserOnline || presenceUser(t, got[0]) != "alice" {
		t.Fatalf("expected own user_online, got %v", types(got))
	}

	f.connect(t, "s2", "bob")
	got = frames(alice)
	if len(got) != 1 || got[0].Type != domain.MsgTypeUserOnline || presenceUser(t, got[0]) != "bob" {
		t.Errorf("expected user_online for bob, got %v", types(got))
	}

	if online, _ := f.hub.IsOnline(context.Background(), "bob"); !online {
		t.Error("expected bob online")
	}
	if ok, _ := f.mirror.Lookup(context.Background(), "bob"); !ok {
		t.Error("expected bob mirrored")
	}
}

func TestHandleDisconnect_BroadcastsOffline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.connect(t, "s1", "alice")
	bob := f.connect(t, "s2", "bob")
	frames(alice)

	if err := f.svc.HandleDisconnect(ctx, bob); err != nil {
		t.Fatalf("HandleDisconnect: %v", err)
	}

	got := frames(alice)
	if len(got) != 1 || got[0].Type != domain.MsgTypeUserOffline || presenceUser(t, got[0]) != "bob" {
		t.Errorf("expected user_offline for bob, got %v", types(got))
	}
	if online, _ := f.hub.IsOnline(ctx, "bob"); online {
		t.Error("expected bob offline")
	}
	if len(f.mirror.offline) != 1 || f.mirror.offline[0] != "bob" {
		t.Errorf("expected mirror cleared for bob, got %v", f.mirror.offline)
	}
	if _, ok := <-bob.Send; ok {
		t.Error("expected bob's send channel closed")
	}
}

// A stale disconnect from a superseded session must neither evict the
// user nor announce them offline.
func TestHandleDisconnect_StaleSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	observer := f.connect(t, "s0", "carol")
	s1 := f.connect(t, "s1", "alice")
	s2 := f.connect(t, "s2", "alice")
	frames(observer)
	frames(s2)

	if err := f.svc.HandleDisconnect(ctx, s1); err != nil {
		t.Fatalf("HandleDisconnect(s1): %v", err)
	}
	if got := frames(observer); len(got) != 0 {
		t.Errorf("stale disconnect should not broadcast, got %v", types(got))
	}
	if online, _ := f.hub.IsOnline(ctx, "alice"); !online {
		t.Fatal("alice should remain online")
	}
	if len(f.mirror.offline) != 0 {
		t.Errorf("stale disconnect should not clear the mirror, got %v", f.mirror.offline)
	}

	var members int
	f.hub.Exec(ctx, func(r hub.Router) { members = r.Members(domain.PersonalChannel("alice")) })
	if members != 1 {
		t.Errorf("expected only s2 in alice's channel, got %d", members)
	}

	if err := f.svc.HandleDisconnect(ctx, s2); err != nil {
		t.Fatalf("HandleDisconnect(s2): %v", err)
	}
	got := frames(observer)
	if len(got) != 1 || got[0].Type != domain.MsgTypeUserOffline {
		t.Errorf("expected user_offline, got %v", types(got))
	}
	if online, _ := f.hub.IsOnline(ctx, "alice"); online {
		t.Error("alice should be offline")
	}
}
