// Package cache provides the key/value store shared by the profile cache and
// the session token revocation list. Redis backs it in multi-instance
// deployments; Memory serves single-process runs and tests.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values with an optional time to live.
// Get reports a missing or expired key with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
