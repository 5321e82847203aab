package registry

import "context"

// Snapshot returns the users currently online in this process.
type Snapshot func(ctx context.Context) ([]string, error)

// Mirror publishes presence to a store other services can query. The
// in-process Registry stays authoritative; a Mirror is best-effort.
type Mirror interface {
	MarkOnline(ctx context.Context, userID, sessionID string) error
	MarkOffline(ctx context.Context, userID string) error
	Lookup(ctx context.Context, userID string) (bool, error)

	// Run refreshes mirrored keys from snapshot until ctx is done.
	Run(ctx context.Context, snapshot Snapshot) error
	Close() error
}

// NopMirror is used when no external presence store is configured.
type NopMirror struct{}

func (NopMirror) MarkOnline(context.Context, string, string) error { return nil }
func (NopMirror) MarkOffline(context.Context, string) error        { return nil }
func (NopMirror) Lookup(context.Context, string) (bool, error)     { return false, nil }
func (NopMirror) Close() error                                     { return nil }

func (NopMirror) Run(ctx context.Context, _ Snapshot) error {
	<-ctx.Done()
	return ctx.Err()
}
