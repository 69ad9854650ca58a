package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dinero:idempotency:"

// Lua script for safe claim release (only the owner can release)
var releaseClaimScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Commands is the subset of the go-redis client used by the store.
type Commands interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// IdempotencyEntry is a stored response replayed for a repeated key.
type IdempotencyEntry struct {
	Key         string    `json:"key"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// IdempotencyStore keeps responses keyed by Idempotency-Key and guards
// keys that are still being processed.
type IdempotencyStore struct {
	client   Commands
	ttl      time.Duration
	claimTTL time.Duration
}

// NewIdempotencyStore keeps entries for ttl. Claims expire after claimTTL
// so a crashed request does not block its key forever.
func NewIdempotencyStore(client Commands, ttl, claimTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl, claimTTL: claimTTL}
}

// Get returns the stored entry, or nil when the key is unknown.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*IdempotencyEntry, error) {
	raw, err := s.client.Get(ctx, entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	var entry IdempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &entry, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, entry *IdempotencyEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	if err := s.client.Set(ctx, entryKey(entry.Key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}

// Claim marks key as in flight. It reports false when another request
// holds the claim. The returned release func drops the claim if it is still
// owned by this caller.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (func(context.Context) error, bool, error) {
	owner := uuid.NewString()
	ok, err := s.client.SetNX(ctx, claimKey(key), owner, s.claimTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := releaseClaimScript.Run(ctx, s.client, []string{claimKey(key)}, owner).Err(); err != nil {
			return fmt.Errorf("release idempotency key: %w", err)
		}
		return nil
	}
	return release, true, nil
}

func entryKey(key string) string { return keyPrefix + key }

func claimKey(key string) string { return keyPrefix + "claim:" + key }
