package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type memStore struct {
	approved []string
	pending  []string
	saves    int
	failSave bool
}

func (s *memStore) Load(context.Context) ([]string, []string, error) {
	return s.approved, s.pending, nil
}

func (s *memStore) Save(_ context.Context, approved, pending []string) error {
	s.saves++
	if s.failSave {
		return errors.New("disk full")
	}
	s.approved = approved
	s.pending = pending
	return nil
}

func newTestRegistry(t *testing.T, store *memStore) *Registry {
	t.Helper()
	reg, err := New(store, "Admin@Example.com")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return reg
}

func TestAdminSeededOnFreshState(t *testing.T) {
	store := &memStore{}
	reg := newTestRegistry(t, store)

	if !reg.IsApproved("admin@example.com") {
		t.Fatal("admin must be approved immediately after initialization")
	}
	if !reg.IsAdmin("ADMIN@example.COM") {
		t.Fatal("admin check must canonicalize the claim")
	}
	if store.saves == 0 {
		t.Fatal("seeding the admin must be persisted")
	}
}

func TestRequestAccessEntersPendingOnce(t *testing.T) {
	reg := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		state, firstSeen, err := reg.RequestAccess(ctx, "Avery@Example.com")
		if err != nil {
			t.Fatalf("RequestAccess() error = %v", err)
		}
		if state != StatePending {
			t.Fatalf("expected pending, got %s", state)
		}
		if firstSeen != (i == 0) {
			t.Fatalf("call %d: firstSeen = %v", i, firstSeen)
		}
	}

	if reg.IsApproved("avery@example.com") {
		t.Fatal("pending identity must not be approved")
	}
	pending := reg.Pending()
	if len(pending) != 1 || pending[0] != "avery@example.com" {
		t.Fatalf("expected exactly one pending entry, got %v", pending)
	}
}

func TestRequestAccessForApprovedIdentity(t *testing.T) {
	reg := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	if err := reg.Approve(ctx, "avery@example.com"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	state, firstSeen, err := reg.RequestAccess(ctx, "AVERY@example.com")
	if err != nil {
		t.Fatalf("RequestAccess() error = %v", err)
	}
	if state != StateApproved || firstSeen {
		t.Fatalf("expected approved/!firstSeen, got %s/%v", state, firstSeen)
	}
	if len(reg.Pending()) != 0 {
		t.Fatalf("approved identity must not enter pending: %v", reg.Pending())
	}
}

func TestApproveMovesOutOfPending(t *testing.T) {
	store := &memStore{}
	reg := newTestRegistry(t, store)
	ctx := context.Background()

	if _, _, err := reg.RequestAccess(ctx, "avery@example.com"); err != nil {
		t.Fatalf("RequestAccess() error = %v", err)
	}
	if err := reg.Approve(ctx, "avery@example.com"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if !reg.IsApproved("avery@example.com") {
		t.Fatal("expected approval")
	}
	if len(reg.Pending()) != 0 {
		t.Fatalf("pending must be empty, got %v", reg.Pending())
	}
	// Disjointness survives the round trip through the store.
	if len(store.approved) != 2 || len(store.pending) != 0 {
		t.Fatalf("persisted state approved=%v pending=%v", store.approved, store.pending)
	}
}

func TestDenyIsNoOpOnceApproved(t *testing.T) {
	reg := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	if err := reg.Approve(ctx, "avery@example.com"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := reg.Deny(ctx, "avery@example.com"); err != nil {
		t.Fatalf("Deny() error = %v", err)
	}
	if !reg.IsApproved("avery@example.com") {
		t.Fatal("approve must dominate deny")
	}
}

func TestDenyRemovesPending(t *testing.T) {
	reg := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	if _, _, err := reg.RequestAccess(ctx, "avery@example.com"); err != nil {
		t.Fatalf("RequestAccess() error = %v", err)
	}
	if err := reg.Deny(ctx, "Avery@example.com"); err != nil {
		t.Fatalf("Deny() error = %v", err)
	}
	if len(reg.Pending()) != 0 {
		t.Fatalf("expected empty pending, got %v", reg.Pending())
	}
	// Denying an absent identity is a no-op, not an error.
	if err := reg.Deny(ctx, "avery@example.com"); err != nil {
		t.Fatalf("Deny() on absent identity error = %v", err)
	}
}

func TestCanonicalizationFailureIsRejected(t *testing.T) {
	reg := newTestRegistry(t, &memStore{})
	if _, _, err := reg.RequestAccess(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty identity")
	}
	if reg.IsApproved("") {
		t.Fatal("empty claim must never be approved")
	}
}

func TestPersistenceFailureKeepsInMemoryState(t *testing.T) {
	store := &memStore{failSave: true}
	reg := newTestRegistry(t, store)
	ctx := context.Background()

	state, _, err := reg.RequestAccess(ctx, "avery@example.com")
	if err != nil {
		t.Fatalf("RequestAccess() error = %v", err)
	}
	if state != StatePending {
		t.Fatalf("expected pending, got %s", state)
	}
	if len(reg.Pending()) != 1 {
		t.Fatal("in-memory state must reflect the mutation even when the save fails")
	}
}

func TestListOrderIsInsertionOrder(t *testing.T) {
	reg := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		if _, _, err := reg.RequestAccess(ctx, email); err != nil {
			t.Fatalf("RequestAccess(%s) error = %v", email, err)
		}
	}
	pending := reg.Pending()
	want := []string{"user0@example.com", "user1@example.com", "user2@example.com"}
	for i, email := range want {
		if pending[i] != email {
			t.Fatalf("pending[%d] = %q, want %q", i, pending[i], email)
		}
	}
}

func TestLoadDropsOverlapAndDuplicates(t *testing.T) {
	store := &memStore{
		approved: []string{"a@example.com", "A@example.com"},
		pending:  []string{"a@example.com", "b@example.com", "b@example.com"},
	}
	reg := newTestRegistry(t, store)

	approved := reg.Approved()
	if len(approved) != 2 { // a@example.com plus the seeded admin
		t.Fatalf("unexpected approved set: %v", approved)
	}
	pending := reg.Pending()
	if len(pending) != 1 || pending[0] != "b@example.com" {
		t.Fatalf("unexpected pending set: %v", pending)
	}
}
