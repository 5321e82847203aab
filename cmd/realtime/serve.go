package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/interestconnect/realtime/internal/config"
	"github.com/interestconnect/realtime/internal/handler"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/internal/kafka"
	"github.com/interestconnect/realtime/internal/registry"
	"github.com/interestconnect/realtime/internal/service"
	"github.com/interestconnect/realtime/internal/store"
	"github.com/interestconnect/realtime/internal/supervisor"
	"github.com/interestconnect/realtime/pkg/database"
	"github.com/interestconnect/realtime/pkg/jwt"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/interestconnect/realtime/pkg/middleware"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	l := log.L()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)
	l.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	messages, closeStore, err := openMessageStore(ctx, cfg, store.NewGormMessageStore(db))
	if err != nil {
		return err
	}
	defer closeStore()
	guarded := store.NewBreakerStore(messages, cfg.Breaker, cfg.Messages.WriteTimeout)

	instanceID := cfg.Server.InstanceID
	if instanceID == "" {
		instanceID = defaultInstanceID()
	}

	var mirror registry.Mirror = registry.NopMirror{}
	if cfg.Redis.Enabled {
		rm, err := registry.NewRedisMirror(cfg.Redis, instanceID)
		if err != nil {
			return err
		}
		mirror = rm
		l.Info().Str("address", cfg.Redis.Address).Msg("presence mirror enabled")
	}

	var producer kafka.MessageProducer = kafka.NopProducer{}
	if cfg.Kafka.Enabled {
		p, err := kafka.NewConfluentProducer(cfg.Kafka)
		if err != nil {
			mirror.Close()
			return err
		}
		producer = p
		l.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("chat event stream enabled")
	}

	wsHub := hub.NewHub()
	svc := service.NewRealtimeService(service.Deps{
		Hub:      wsHub,
		Store:    guarded,
		Users:    store.NewGormUserDirectory(db),
		Producer: producer,
		Mirror:   mirror,
	})
	defer svc.Stop()

	wsHandler := handler.NewWSHandler(wsHub, svc, tokens, cfg.WebSocket)
	api := handler.NewHTTPHandler(wsHub, mirror, guarded)
	router := handler.NewRouter(wsHandler, api, middleware.NewAuthMiddleware(tokens), l)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddCoreService(supervisor.NewHubService(wsHub))
	if cfg.Redis.Enabled {
		tree.AddCoreService(supervisor.NewMirrorService(mirror, wsHub))
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	l.Info().
		Str("addr", server.Addr).
		Str("instance_id", instanceID).
		Str("messages_backend", cfg.Messages.Backend).
		Msg("realtime server starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	l.Info().Msg("realtime server stopped")
	return nil
}

// openMessageStore returns the configured message backend and its cleanup.
func openMessageStore(ctx context.Context, cfg *config.Config, sql store.MessageStore) (store.MessageStore, func(), error) {
	if cfg.Messages.Backend != "cassandra" {
		return sql, func() {}, nil
	}

	client, err := store.NewCassandraClient(cfg.Cassandra)
	if err != nil {
		return nil, nil, err
	}
	if err := client.EnsureSchema(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	l := log.L()
	l.Info().Strs("hosts", cfg.Cassandra.Hosts).Str("keyspace", cfg.Cassandra.Keyspace).Msg("connected to cassandra")
	return store.NewCassandraMessageStore(client), client.Close, nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.New().String()
	}
	return host + "-" + uuid.New().String()[:8]
}
