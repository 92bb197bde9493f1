// Package redis implements the db.Store facade on top of rueidis against
// a Redis Stack (RediSearch) server.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/intellidoc-ai/intellidoc/internal/db"
)

// Store implements db.Store backed by Redis.
type Store struct {
	client rueidis.Client
}

// compile-time check
var _ db.Store = (*Store)(nil)

// Config holds Redis connection settings.
type Config struct {
	InitAddress []string
	Username    string
	Password    string
	SelectDB    int
}

// New creates a Redis-backed store. RESP2 is forced because RediSearch
// replies differ between protocol versions and the parsers below expect
// the RESP2 array shape.
func New(cfg Config) (*Store, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.InitAddress,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.SelectDB,
		AlwaysRESP2:  true,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// WaitForReady polls the server until it responds to PING or the timeout
// elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		lastErr = s.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("redis not ready after %s: %w", timeout, lastErr)
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.client.Close()
}

// isRedisErrContains reports whether err is a Redis server error whose
// message contains substr (case-insensitive). rueidis surfaces server
// errors as plain error strings, so matching on text is the only option.
func isRedisErrContains(err error, substr string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), strings.ToLower(substr))
}
