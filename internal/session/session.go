// Package session holds the identity of one browser session. A Store is
// created per request from the session cookie and passed down explicitly;
// the auth gateway is its only writer.
package session

import (
	"context"
	"sync"

	"github.com/garnizeh/southwheels/pkg/models"
)

// Change describes an identity transition. Present is false after sign-out
// or a restore that found no session.
type Change struct {
	Identity models.Identity
	Present  bool
}

// Restorer looks up the identity behind a persisted token. auth.Gateway implements it.
type Restorer interface {
	Session(ctx context.Context, token string) (models.Identity, error)
}

type Store struct {
	mu       sync.RWMutex
	identity models.Identity
	token    string
	present  bool

	// wmu orders writes with their notifications
	wmu       sync.Mutex
	listeners map[int]func(Change)
	nextID    int
}

func New() *Store {
	return &Store{listeners: make(map[int]func(Change))}
}

// Current returns the signed-in identity, if any.
func (s *Store) Current() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.present
}

// Token returns the session token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn for every identity change and returns a function
// that removes it. Listeners run synchronously, in write order, outside the
// state lock; they may read the store but must not write to it.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Set records a signed-in identity.
func (s *Store) Set(id models.Identity, token string) {
	s.write(func() {
		s.identity, s.token, s.present = id, token, true
	})
}

// Clear forgets the identity and token.
func (s *Store) Clear() {
	s.write(func() {
		s.identity, s.token, s.present = models.Identity{}, "", false
	})
}

// Restore asks r for the session behind token. Any failure, including an
// empty token, leaves the store signed out. There is no retry.
func (s *Store) Restore(ctx context.Context, r Restorer, token string) (models.Identity, bool) {
	if token == "" || r == nil {
		s.Clear()
		return models.Identity{}, false
	}
	id, err := r.Session(ctx, token)
	if err != nil {
		s.Clear()
		return models.Identity{}, false
	}
	s.Set(id, token)
	return id, true
}

func (s *Store) write(apply func()) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	apply()
	change := Change{Identity: s.identity, Present: s.present}
	fns := make([]func(Change), 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
