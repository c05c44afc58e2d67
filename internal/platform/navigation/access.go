package navigation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// GrantSource returns per-user menu grants. auth.UserStore satisfies it.
type GrantSource interface {
	MenuGrants(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Resolver computes a user's access set once per session.
type Resolver struct {
	grants GrantSource
	mu     sync.Mutex
	cache  map[string]Access
}

func NewResolver(grants GrantSource) *Resolver {
	return &Resolver{grants: grants, cache: make(map[string]Access)}
}

// Access returns the access set for the session. Requests without a session
// are resolved every time.
func (r *Resolver) Access(ctx context.Context, sessionID, userID string, roles []string) (Access, error) {
	if sessionID != "" {
		r.mu.Lock()
		acc, ok := r.cache[sessionID]
		r.mu.Unlock()
		if ok {
			return acc, nil
		}
	}

	acc := RoleDefaults(roles)
	if r.grants != nil {
		if uid, err := uuid.Parse(userID); err == nil {
			ids, err := r.grants.MenuGrants(ctx, uid)
			if err != nil {
				return nil, fmt.Errorf("load menu grants: %w", err)
			}
			acc.Grant(ids...)
		}
	}

	if sessionID != "" {
		r.mu.Lock()
		r.cache[sessionID] = acc
		r.mu.Unlock()
	}
	return acc, nil
}

// Forget drops the cached set for a session. Registered as a session end
// hook.
func (r *Resolver) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.cache, sessionID)
	r.mu.Unlock()
}

func (r *Resolver) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
