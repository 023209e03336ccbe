package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain"
)

// Compile-time check: Store implements db.ListingStore.
var _ db.ListingStore = (*Store)(nil)

// DefaultIndex is the RediSearch index over listing hashes.
const DefaultIndex = domain.KeyPrefix + "listings"

// ListingKeyPrefix prefixes every listing hash key.
const ListingKeyPrefix = domain.KeyPrefix + "listing:"

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Index    string
}

// Store implements db.ListingStore via rueidis against a RediSearch index
// of listing hashes. Author and category are denormalized into each hash.
type Store struct {
	client rueidis.Client
	index  string
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg.Index), nil
}

func newStore(client rueidis.Client, index string) *Store {
	if index == "" {
		index = DefaultIndex
	}
	return &Store{client: client, index: index}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return classify(db.OpPing, err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// classify maps a rueidis failure onto a db.QueryError. Server error
// replies are query errors; anything that never reached the server is a
// connection error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return db.NewError(db.KindTimeout, op, "", err)
	}
	if re, ok := rueidis.IsRedisErr(err); ok {
		if strings.HasPrefix(re.Error(), "LOADING") || strings.HasPrefix(re.Error(), "BUSY") {
			return db.NewError(db.KindConnection, op, "server not ready", err)
		}
		return db.NewError(db.KindQuery, op, re.Error(), err)
	}
	return db.NewError(db.KindConnection, op, "", err)
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
