package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/interestconnect/realtime/internal/config"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/redis/go-redis/v9"
)

// RedisMirror keeps one TTL key per online user:
//
//	{prefix}:user:{user_id} STRING "{instance_id}:{session_id}"
//
// Keys are refreshed on every heartbeat and expire on their own if the
// process dies.
type RedisMirror struct {
	client            *redis.Client
	instanceID        string
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration
	managed           map[string]string // userID -> value
	mu                sync.Mutex
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(cfg config.RedisConfig, instanceID string) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisMirrorWithClient(client, cfg, instanceID), nil
}

// NewRedisMirrorWithClient wraps an existing client.
func NewRedisMirrorWithClient(client *redis.Client, cfg config.RedisConfig, instanceID string) *RedisMirror {
	return &RedisMirror{
		client:            client,
		instanceID:        instanceID,
		prefix:            cfg.PresencePrefix,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
		managed:           make(map[string]string),
	}
}

func (r *RedisMirror) keyFor(userID string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, userID)
}

func (r *RedisMirror) MarkOnline(ctx context.Context, userID, sessionID string) error {
	value := r.instanceID + ":" + sessionID
	if err := r.client.Set(ctx, r.keyFor(userID), value, r.keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark %s online: %w", userID, err)
	}

	r.mu.Lock()
	r.managed[userID] = value
	r.mu.Unlock()
	return nil
}

func (r *RedisMirror) MarkOffline(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.keyFor(userID)).Err(); err != nil {
		return fmt.Errorf("failed to mark %s offline: %w", userID, err)
	}

	r.mu.Lock()
	delete(r.managed, userID)
	r.mu.Unlock()
	return nil
}

func (r *RedisMirror) Lookup(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.keyFor(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to lookup %s: %w", userID, err)
	}
	return n > 0, nil
}

func (r *RedisMirror) Run(ctx context.Context, snapshot Snapshot) error {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("presence mirror heartbeat started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Reconcile(ctx, snapshot); err != nil && ctx.Err() == nil {
				l.Warn().Err(err).Msg("presence mirror reconcile failed")
			}
		}
	}
}

// Reconcile rewrites the mirrored keys from the authoritative snapshot:
// online users get their TTL refreshed and stale keys are deleted. It also
// repairs writes that raced between MarkOnline and MarkOffline.
func (r *RedisMirror) Reconcile(ctx context.Context, snapshot Snapshot) error {
	users, err := snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot presence: %w", err)
	}

	online := make(map[string]struct{}, len(users))
	for _, u := range users {
		online[u] = struct{}{}
	}

	r.mu.Lock()
	var stale []string
	for u := range r.managed {
		if _, ok := online[u]; !ok {
			stale = append(stale, u)
			delete(r.managed, u)
		}
	}
	values := make(map[string]string, len(users))
	for _, u := range users {
		v, ok := r.managed[u]
		if !ok {
			v = r.instanceID
			r.managed[u] = v
		}
		values[u] = v
	}
	r.mu.Unlock()

	pipe := r.client.Pipeline()
	for u, v := range values {
		pipe.Set(ctx, r.keyFor(u), v, r.keyTTL)
	}
	for _, u := range stale {
		pipe.Del(ctx, r.keyFor(u))
	}
	if pipe.Len() == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh presence keys: %w", err)
	}
	return nil
}

// Close removes this instance's keys and closes the client.
func (r *RedisMirror) Close() error {
	r.mu.Lock()
	keys := make([]string, 0, len(r.managed))
	for u := range r.managed {
		keys = append(keys, r.keyFor(u))
	}
	r.managed = make(map[string]string)
	r.mu.Unlock()

	if len(keys) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			l := log.L()
			l.Warn().Err(err).Int("keys", len(keys)).Msg("failed to clear presence keys on close")
		}
	}
	return r.client.Close()
}
