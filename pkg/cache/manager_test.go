package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips when none is running.
// The integration suite runs the same checks against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager(t *testing.T) {
	runManagerSuite(t, setupTestRedis(t))
}

func runManagerSuite(t *testing.T, client *redis.Client) {
	manager := NewManager(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := CacheKey{Endpoint: "https://api.test/a"}
		entry := &CacheEntry{
			Data:     []byte(`{"id":1}`),
			ETag:     `"e1"`,
			Expires:  time.Now().Add(time.Minute),
			CachedAt: time.Now(),
		}

		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set() error: %v", err)
		}

		got, err := manager.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if string(got.Data) != `{"id":1}` || got.ETag != `"e1"` {
			t.Errorf("Get() = %+v", got)
		}
	})

	t.Run("miss", func(t *testing.T) {
		_, err := manager.Get(ctx, CacheKey{Endpoint: "https://api.test/missing"})
		if !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("stale entry with validator is returned", func(t *testing.T) {
		key := CacheKey{Endpoint: "https://api.test/stale"}
		entry := &CacheEntry{Data: []byte(`[]`), ETag: `"s"`, Expires: time.Now().Add(-time.Second)}

		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		got, err := manager.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !got.IsExpired() {
			t.Error("Expected stale entry")
		}
	})

	t.Run("expired entry without validator is not stored", func(t *testing.T) {
		key := CacheKey{Endpoint: "https://api.test/gone"}
		entry := &CacheEntry{Data: []byte(`[]`), Expires: time.Now().Add(-time.Second)}

		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		key := CacheKey{Endpoint: "https://api.test/del"}
		entry := &CacheEntry{Data: []byte(`1`), Expires: time.Now().Add(time.Minute)}
		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		if err := manager.Delete(ctx, key); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
		}
	})

	t.Run("nil entry", func(t *testing.T) {
		if err := manager.Set(ctx, CacheKey{Endpoint: "x"}, nil); err == nil {
			t.Error("Expected error for nil entry")
		}
	})

	t.Run("corrupt entry", func(t *testing.T) {
		key := CacheKey{Endpoint: "https://api.test/corrupt"}
		client.Set(ctx, key.String(), "not json", time.Minute)

		if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("Expected ErrInvalidEntry, got %v", err)
		}
	})
}
