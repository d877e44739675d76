// Package router decides what a browser session sees: the auth screen, a
// loading view, or the dashboard for its role. It follows the session store
// and resolves the profile of every new identity before granting a role.
package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/garnizeh/southwheels/internal/session"
	"github.com/garnizeh/southwheels/pkg/models"
)

type State int

const (
	// Unknown is the initial state while the session restore is in flight.
	Unknown State = iota
	Unauthenticated
	ResolvingProfile
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Unauthenticated:
		return "unauthenticated"
	case ResolvingProfile:
		return "resolving_profile"
	case Authenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// ProfileResolver is implemented by profile.Resolver.
type ProfileResolver interface {
	Resolve(ctx context.Context, id models.Identity) (models.Profile, error)
}

// Status is a snapshot of the router. Profile is set only when Authenticated;
// Err holds the last profile resolution failure.
type Status struct {
	State    State
	Identity models.Identity
	Profile  models.Profile
	Err      error
}

// Role is the resolved role. It is the zero Role unless Authenticated.
func (s Status) Role() models.Role {
	if s.State != Authenticated {
		return models.Role{}
	}
	return s.Profile.Role
}

type Router struct {
	resolver ProfileResolver
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	identity models.Identity
	profile  models.Profile
	err      error
	// ticket increments on every identity change; a resolution result is
	// applied only if the ticket it started with is still current.
	ticket uint64

	unsubscribe func()
}

// New creates a Router in the Unknown state that follows store.
func New(store *session.Store, resolver ProfileResolver, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{resolver: resolver, logger: logger, state: Unknown}
	r.unsubscribe = store.Subscribe(r.onChange)
	return r
}

// Close stops following the session store.
func (r *Router) Close() {
	r.unsubscribe()
}

func (r *Router) onChange(c session.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ticket++
	r.profile = models.Profile{}
	if !c.Present {
		r.state = Unauthenticated
		r.identity = models.Identity{}
		return
	}
	r.state = ResolvingProfile
	r.identity = c.Identity
	r.err = nil
}

// Status returns the current snapshot.
func (r *Router) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Router) snapshot() Status {
	return Status{State: r.state, Identity: r.identity, Profile: r.profile, Err: r.err}
}

// Resolve runs the pending profile resolution, if any, and returns the
// resulting status. A failed resolution moves the router to Unauthenticated.
// When the identity changed while the fetch was in flight, the stale result
// is dropped and the newer state is returned.
func (r *Router) Resolve(ctx context.Context) Status {
	r.mu.Lock()
	if r.state != ResolvingProfile {
		st := r.snapshot()
		r.mu.Unlock()
		return st
	}
	ticket, id := r.ticket, r.identity
	r.mu.Unlock()

	p, err := r.resolver.Resolve(ctx, id)
	if err == nil && p.Role.IsZero() {
		err = models.ErrUnknownRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticket != ticket {
		r.logger.Debug("dropping stale profile resolution", slog.String("identity", id.ID))
		return r.snapshot()
	}
	if err != nil {
		r.logger.Warn("profile resolution failed", slog.String("identity", id.ID), slog.Any("err", err))
		r.state = Unauthenticated
		r.err = err
		return r.snapshot()
	}
	r.state = Authenticated
	r.profile = p
	r.err = nil
	return r.snapshot()
}

// Evaluate drives the router to a settled state: it restores the session
// from token when the state is still Unknown, then resolves the profile.
func (r *Router) Evaluate(ctx context.Context, store *session.Store, restorer session.Restorer, token string) Status {
	if r.Status().State == Unknown {
		store.Restore(ctx, restorer, token)
	}
	return r.Resolve(ctx)
}
