package registry

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("CHAVOSH_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("CHAVOSH_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	defer store.Close()

	if err := store.Save(ctx, []string{"a@example.com", "b@example.com"}, []string{"c@example.com"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	approved, pending, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(approved) != 2 || approved[0] != "a@example.com" || approved[1] != "b@example.com" {
		t.Fatalf("unexpected approved: %v", approved)
	}
	if len(pending) != 1 || pending[0] != "c@example.com" {
		t.Fatalf("unexpected pending: %v", pending)
	}

	// Save replaces the previous snapshot completely.
	if err := store.Save(ctx, []string{"a@example.com"}, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	approved, pending, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(approved) != 1 || len(pending) != 0 {
		t.Fatalf("snapshot not replaced: approved=%v pending=%v", approved, pending)
	}
}
