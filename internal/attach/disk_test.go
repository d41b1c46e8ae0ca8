package attach

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDiskStoreSaveAndOpen(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	ctx := context.Background()

	ref, size, err := store.Save(ctx, strings.NewReader("hello"), "greeting.txt")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if size != 5 {
		t.Fatalf("size = %d, want 5", size)
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read attachment: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("content = %q", data)
	}

	if got := store.URL(ref); got != "/uploads/"+ref {
		t.Fatalf("URL() = %q", got)
	}
}

func TestDiskStoreIdenticalNamesDoNotCollide(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	ctx := context.Background()

	refA, _, err := store.Save(ctx, strings.NewReader("first"), "report v1?.pdf")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	refB, _, err := store.Save(ctx, strings.NewReader("second"), "report v1?.pdf")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if refA == refB {
		t.Fatalf("refs collided: %q", refA)
	}
	for ref, want := range map[string]string{refA: "first", refB: "second"} {
		rc, err := store.Open(ctx, ref)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", ref, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != want {
			t.Fatalf("Open(%q) = %q, want %q", ref, data, want)
		}
	}
}

func TestDiskStoreRemove(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	ctx := context.Background()

	ref, _, err := store.Save(ctx, strings.NewReader("bye"), "doc.txt")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Open(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
	if err := store.Remove(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestDiskStoreRejectsTraversalRefs(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	ctx := context.Background()
	for _, ref := range []string{"../secret", "a/b", `a\b`, "..", ""} {
		if _, err := store.Open(ctx, ref); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Open(%q) = %v, want ErrNotFound", ref, err)
		}
	}
}
