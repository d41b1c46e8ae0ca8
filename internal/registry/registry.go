// Package registry owns the pending/approved identity sets and the
// approval state machine that gates chat access.
package registry

import (
	"context"
	"log"
	"sync"

	"github.com/mehdiakbarifar/chavosh/internal/identity"
)

type State string

const (
	StateApproved State = "approved"
	StatePending  State = "pending"
)

// Store persists the two identity sets. Save must be called after every
// mutation; Load once at startup.
type Store interface {
	Load(ctx context.Context) (approved, pending []string, err error)
	Save(ctx context.Context, approved, pending []string) error
}

// Registry holds the approved and pending identity sets. The sets are
// disjoint at all times and insertion-ordered. All mutations are
// serialized; reads return copies.
type Registry struct {
	mu       sync.Mutex
	store    Store
	admin    identity.Identity
	approved []string
	pending  []string
}

func New(store Store, adminEmail string) (*Registry, error) {
	admin, err := identity.Canonicalize(adminEmail)
	if err != nil {
		return nil, err
	}
	return &Registry{store: store, admin: admin}, nil
}

// Load replaces the in-memory sets with the persisted state and seeds the
// admin identity into approved if absent. Called once at process start.
func (r *Registry) Load(ctx context.Context) error {
	approved, pending, err := r.store.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.approved = r.approved[:0]
	r.pending = r.pending[:0]
	for _, raw := range approved {
		id, err := identity.Canonicalize(raw)
		if err != nil {
			continue
		}
		if !contains(r.approved, id) {
			r.approved = append(r.approved, id)
		}
	}
	for _, raw := range pending {
		id, err := identity.Canonicalize(raw)
		if err != nil {
			continue
		}
		if contains(r.approved, id) || contains(r.pending, id) {
			continue
		}
		r.pending = append(r.pending, id)
	}
	if !contains(r.approved, r.admin) {
		r.approved = append(r.approved, r.admin)
		r.persist(ctx)
	}
	return nil
}

// RequestAccess records a verified authentication attempt. Already-approved
// identities stay approved; everyone else lands in pending exactly once.
// firstSeen is true only when the identity was inserted by this call, so
// callers can notify the admin without duplicate side effects.
func (r *Registry) RequestAccess(ctx context.Context, email string) (state State, firstSeen bool, err error) {
	id, err := identity.Canonicalize(email)
	if err != nil {
		return "", false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if contains(r.approved, id) {
		return StateApproved, false, nil
	}
	if contains(r.pending, id) {
		return StatePending, false, nil
	}
	r.pending = append(r.pending, id)
	r.persist(ctx)
	return StatePending, true, nil
}

// Approve moves an identity into the approved set. Idempotent.
func (r *Registry) Approve(ctx context.Context, email string) error {
	id, err := identity.Canonicalize(email)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !contains(r.approved, id) {
		r.approved = append(r.approved, id)
	}
	r.pending = remove(r.pending, id)
	r.persist(ctx)
	return nil
}

// Deny removes an identity from pending. No-op if absent; approve always
// dominates, so a previously approved identity is untouched.
func (r *Registry) Deny(ctx context.Context, email string) error {
	id, err := identity.Canonicalize(email)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = remove(r.pending, id)
	r.persist(ctx)
	return nil
}

func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.pending...)
}

func (r *Registry) Approved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.approved...)
}

func (r *Registry) IsApproved(email string) bool {
	id, err := identity.Canonicalize(email)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return contains(r.approved, id)
}

func (r *Registry) IsAdmin(email string) bool {
	id, err := identity.Canonicalize(email)
	if err != nil {
		return false
	}
	return id == r.admin
}

func (r *Registry) Admin() identity.Identity {
	return r.admin
}

// persist writes both sets through the store. A failed write is logged and
// otherwise swallowed: the in-memory state stays authoritative for the
// rest of the process and durability of the last mutation is an accepted
// risk. Callers hold r.mu.
func (r *Registry) persist(ctx context.Context) {
	approved := append([]string(nil), r.approved...)
	pending := append([]string(nil), r.pending...)
	if err := r.store.Save(ctx, approved, pending); err != nil {
		log.Printf("registry: persist failed: %v", err)
	}
}

func contains(set []string, id string) bool {
	for _, member := range set {
		if member == id {
			return true
		}
	}
	return false
}

func remove(set []string, id string) []string {
	out := set[:0]
	for _, member := range set {
		if member != id {
			out = append(out, member)
		}
	}
	return out
}
