package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/interestconnect/realtime/internal/domain"
)

type blockingDirectory struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingDirectory) LookupUsers(_ context.Context, ids []string) (map[string]domain.UserSummary, error) {
	if b.calls.Add(1) == 1 {
		close(b.entered)
	}
	<-b.release
	out := make(map[string]domain.UserSummary, len(ids))
	for _, id := range ids {
		out[id] = domain.UserSummary{ID: id, Name: "user " + id}
	}
	return out, nil
}

func TestLookupUsers_CollapsesConcurrentCalls(t *testing.T) {
	dir := &blockingDirectory{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewRealtimeService(Deps{Users: dir}).(*realtimeService)
	ctx := context.Background()

	const callers = 8
	results := make([]map[string]domain.UserSummary, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = svc.lookupUsers(ctx, []string{"alice", "bob"})
	}()
	<-dir.entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.lookupUsers(ctx, []string{"bob", "alice"})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(dir.release)
	wg.Wait()

	if n := dir.calls.Load(); n >= callers {
		t.Errorf("expected concurrent lookups to share a call, got %d calls", n)
	}
	for i, users := range results {
		if users["alice"].Name != "user alice" || users["bob"].Name != "user bob" {
			t.Errorf("caller %d: unexpected result %v", i, users)
		}
	}
}

func TestLookupKey_OrderInsensitive(t *testing.T) {
	ids := []string{"bob", "alice"}
	if lookupKey(ids) != lookupKey([]string{"alice", "bob"}) {
		t.Error("expected the same key for the same id set")
	}
	if ids[0] != "bob" {
		t.Error("lookupKey must not reorder its argument")
	}
	if lookupKey([]string{"alice"}) == lookupKey([]string{"alice", "bob"}) {
		t.Error("expected distinct keys for distinct id sets")
	}
}
