// Package profile resolves an authenticated identity to its profile row.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/southwheels/internal/cache"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// ErrProfileNotFound means the identity has no profile row.
var ErrProfileNotFound = errors.New("profile not found")

// FetchError reports a failed profile resolution. Callers must treat it as
// "not authenticated" and never fall back to a default role.
type FetchError struct {
	IdentityID string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch profile %s: %v", e.IdentityID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Resolver struct {
	profiles repository.ProfileRepo
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewResolver creates a Resolver. c may be nil to disable caching.
func NewResolver(profiles repository.ProfileRepo, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{profiles: profiles, cache: c, ttl: ttl, logger: logger}
}

func cacheKey(id string) string { return "profile:" + id }

// Resolve returns the profile for id. Cache errors fall through to the store.
func (r *Resolver) Resolve(ctx context.Context, id models.Identity) (models.Profile, error) {
	if id.ID == "" {
		return models.Profile{}, &FetchError{Err: ErrProfileNotFound}
	}

	if p, ok := r.cached(ctx, id.ID); ok {
		return p, nil
	}

	p, err := r.profiles.GetProfile(ctx, id.ID)
	if err != nil {
		return models.Profile{}, &FetchError{IdentityID: id.ID, Err: err}
	}
	if p == nil {
		return models.Profile{}, &FetchError{IdentityID: id.ID, Err: ErrProfileNotFound}
	}
	if p.Role.IsZero() {
		return models.Profile{}, &FetchError{IdentityID: id.ID, Err: models.ErrUnknownRole}
	}

	r.store(ctx, *p)
	return *p, nil
}

// Invalidate drops the cached copy of a profile after it changes.
func (r *Resolver) Invalidate(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, cacheKey(id)); err != nil {
		r.logger.Warn("profile cache delete failed", slog.String("id", id), slog.Any("err", err))
	}
}

func (r *Resolver) cached(ctx context.Context, id string) (models.Profile, bool) {
	if r.cache == nil {
		return models.Profile{}, false
	}
	b, ok, err := r.cache.Get(ctx, cacheKey(id))
	if err != nil {
		r.logger.Warn("profile cache read failed", slog.String("id", id), slog.Any("err", err))
		return models.Profile{}, false
	}
	if !ok {
		return models.Profile{}, false
	}
	var p models.Profile
	if err := json.Unmarshal(b, &p); err != nil || p.Role.IsZero() {
		return models.Profile{}, false
	}
	return p, true
}

func (r *Resolver) store(ctx context.Context, p models.Profile) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(p.ID), b, r.ttl); err != nil {
		r.logger.Warn("profile cache write failed", slog.String("id", p.ID), slog.Any("err", err))
	}
}
