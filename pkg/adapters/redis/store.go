package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "tessera:session:"

// Store implements ports.StateStore using Redis.
// States are JSON values; a sorted set indexes the session IDs by expiry so
// List can drop sessions whose key already expired.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ ports.StateStore = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires sessions that were not saved for ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects to addr and returns a Store.
func New(addr string, opts ...StoreOption) (*Store, error) {
	client := backend.NewClient(&backend.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(sessionID string) string { return s.prefix + sessionID }
func (s *Store) index() string               { return s.prefix + "index" }

// Save writes the state and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	score := float64(0)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).UnixMilli())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.index(), backend.Z{Score: score, Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

// Load reads the state. Missing or expired sessions yield domain.ErrSessionNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load failed: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if state.Extra == nil {
		state.Extra = make(map[string]any)
	}
	return &state, nil
}

// Delete removes the state and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.index(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// List returns the live sessions. Expired index entries are removed lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		// Entries with score 0 were saved without TTL.
		if err := s.client.ZRemRangeByScore(ctx, s.index(), "1", now).Err(); err != nil {
			return nil, fmt.Errorf("redis index cleanup failed: %w", err)
		}
	}
	ids, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list failed: %w", err)
	}
	return ids, nil
}
