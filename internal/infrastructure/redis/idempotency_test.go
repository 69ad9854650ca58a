package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommands is an in-memory Commands. Only EvalSha is implemented from
// redis.Scripter; the release script is interpreted directly.
type fakeCommands struct {
	redis.Scripter

	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = toString(value)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = toString(value)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[keys[0]] == toString(args[0]) {
		delete(f.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func toString(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func TestIdempotencyStore_SaveAndGet(t *testing.T) {
	client := newFakeCommands()
	store := NewIdempotencyStore(client, time.Hour, time.Minute)
	ctx := context.Background()

	missing, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Save(ctx, &IdempotencyEntry{
		Key:         "abc",
		Status:      201,
		ContentType: "application/json",
		Body:        []byte(`{"transaction_id":"1"}`),
	}))
	assert.Equal(t, time.Hour, client.ttls["dinero:idempotency:abc"])

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.Equal(t, `{"transaction_id":"1"}`, string(got.Body))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestIdempotencyStore_CorruptEntry(t *testing.T) {
	client := newFakeCommands()
	client.data["dinero:idempotency:abc"] = "not json"
	store := NewIdempotencyStore(client, time.Hour, time.Minute)

	_, err := store.Get(context.Background(), "abc")
	assert.ErrorContains(t, err, "decode idempotency entry")
}

func TestIdempotencyStore_RedisError(t *testing.T) {
	client := newFakeCommands()
	client.err = errors.New("connection refused")
	store := NewIdempotencyStore(client, time.Hour, time.Minute)
	ctx := context.Background()

	_, err := store.Get(ctx, "abc")
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, store.Save(ctx, &IdempotencyEntry{Key: "abc"}))
	_, _, err = store.Claim(ctx, "abc")
	assert.Error(t, err)
}

func TestIdempotencyStore_Claim(t *testing.T) {
	client := newFakeCommands()
	store := NewIdempotencyStore(client, time.Hour, time.Minute)
	ctx := context.Background()

	release, ok, err := store.Claim(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, client.ttls["dinero:idempotency:claim:abc"])

	_, ok, err = store.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "second claim must fail while the first is held")

	require.NoError(t, release(ctx))
	_, ok, err = store.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_ReleaseOnlyOwnClaim(t *testing.T) {
	client := newFakeCommands()
	store := NewIdempotencyStore(client, time.Hour, time.Minute)
	ctx := context.Background()

	release, ok, err := store.Claim(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)

	// claim expired and was taken by someone else
	client.data["dinero:idempotency:claim:abc"] = "other-owner"

	require.NoError(t, release(ctx))
	assert.Equal(t, "other-owner", client.data["dinero:idempotency:claim:abc"])
}
