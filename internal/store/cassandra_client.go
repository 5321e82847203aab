package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/interestconnect/realtime/internal/config"
)

// CassandraClient wraps the Cassandra session.
type CassandraClient struct {
	session *gocql.Session
}

// NewCassandraClient connects to the cluster and keyspace named in cfg.
func NewCassandraClient(cfg config.CassandraConfig) (*CassandraClient, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.Timeout
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	return &CassandraClient{session: session}, nil
}

func (c *CassandraClient) Session() *gocql.Session {
	return c.session
}

func (c *CassandraClient) Close() {
	if c.session != nil {
		c.session.Close()
	}
}

const messagesTableCQL = `
	CREATE TABLE IF NOT EXISTS messages_by_conversation (
		conversation_key text,
		created_at timestamp,
		message_id text,
		sender_id text,
		receiver_id text,
		group_id text,
		content text,
		message_type text,
		PRIMARY KEY ((conversation_key), created_at, message_id)
	) WITH CLUSTERING ORDER BY (created_at DESC, message_id ASC)`

// EnsureSchema creates the message table in the session keyspace.
func (c *CassandraClient) EnsureSchema(ctx context.Context) error {
	if err := c.session.Query(messagesTableCQL).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}
	return nil
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "THREE":
		return gocql.Three
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "EACH_QUORUM":
		return gocql.EachQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.LocalQuorum
	}
}
