package registry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	approved, pending, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty redis error = %v", err)
	}
	if len(approved) != 0 || len(pending) != 0 {
		t.Fatalf("fresh store must be empty, got %v / %v", approved, pending)
	}

	if err := store.Save(ctx, []string{"a@example.com", "b@example.com"}, []string{"c@example.com"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	approved, pending, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(approved) != 2 || approved[0] != "a@example.com" || approved[1] != "b@example.com" {
		t.Fatalf("unexpected approved: %v", approved)
	}
	if len(pending) != 1 || pending[0] != "c@example.com" {
		t.Fatalf("unexpected pending: %v", pending)
	}
}

func TestRedisStoreBacksRegistry(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	reg, err := New(store, "admin@example.com")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, _, err := reg.RequestAccess(ctx, "avery@example.com"); err != nil {
		t.Fatalf("RequestAccess() error = %v", err)
	}

	// A second registry over the same store sees the persisted state.
	reloaded, err := New(store, "admin@example.com")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reloaded.IsApproved("admin@example.com") {
		t.Fatal("admin must survive the reload")
	}
	pending := reloaded.Pending()
	if len(pending) != 1 || pending[0] != "avery@example.com" {
		t.Fatalf("unexpected pending after reload: %v", pending)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url"); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}
