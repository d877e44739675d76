// Package auth is the identity gateway: sign-up, sign-in, sign-out and
// session retrieval over the identity repository. Sessions are HS256 JWTs;
// sign-out records the token id in a revocation cache until the token expires.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/southwheels/internal/cache"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// MinPasswordLength is the password policy enforced on sign-up.
const MinPasswordLength = 6

// dummyHash is compared against when the email is unknown, so both
// rejections cost one bcrypt run.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("no such identity"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// SessionWriter receives the identity established by a successful sign-in or
// sign-up and is cleared on sign-out. session.Store implements it.
type SessionWriter interface {
	Set(id models.Identity, token string)
	Clear()
}

type Gateway struct {
	identities repository.IdentityRepo
	revoked    cache.Cache
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
	compare    func(hash, password []byte) error
	logger     *slog.Logger
}

// New creates a Gateway. A nil revoked cache falls back to an in-memory one.
func New(identities repository.IdentityRepo, revoked cache.Cache, jwtSecret string, tokenDuration time.Duration, logger *slog.Logger) *Gateway {
	if revoked == nil {
		revoked = cache.NewMemory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		identities: identities,
		revoked:    revoked,
		secret:     []byte(jwtSecret),
		ttl:        tokenDuration,
		now:        time.Now,
		compare:    bcrypt.CompareHashAndPassword,
		logger:     logger,
	}
}

// WithClock replaces the time source used for token issue and validation.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// WithHashCompare replaces the password check, bcrypt by default.
func (g *Gateway) WithHashCompare(compare func(hash, password []byte) error) *Gateway {
	g.compare = compare
	return g
}

// TokenDuration is the lifetime of issued session tokens.
func (g *Gateway) TokenDuration() time.Duration { return g.ttl }

// HashPassword applies the password policy and returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SignUp registers a customer identity. The profile row is created with it.
// On success the new session is written to w.
func (g *Gateway) SignUp(ctx context.Context, w SessionWriter, email, password, fullName, mobile string) (models.Identity, error) {
	const op = "signup"

	email = strings.TrimSpace(email)
	if email == "" {
		return models.Identity{}, authErr(op, "Email is required", ErrInvalidCredentials)
	}
	hash, err := HashPassword(password)
	if errors.Is(err, ErrWeakPassword) {
		return models.Identity{}, authErr(op, "Password should be at least 6 characters", ErrWeakPassword)
	}
	if err != nil {
		return models.Identity{}, backendErr(op, err)
	}

	id, err := g.identities.CreateIdentity(ctx, repository.NewIdentity{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Mobile:       mobile,
		Role:         models.RoleCustomer,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return models.Identity{}, authErr(op, "User already registered", ErrDuplicateEmail)
	}
	if err != nil {
		g.logger.Error("signup failed", slog.String("email", email), slog.Any("err", err))
		return models.Identity{}, backendErr(op, err)
	}

	if err := g.establish(w, id); err != nil {
		return models.Identity{}, backendErr(op, err)
	}
	g.logger.Info("identity created", slog.String("id", id.ID))
	return id, nil
}

// SignIn checks the credentials and writes the new session to w.
// On failure w is left untouched.
func (g *Gateway) SignIn(ctx context.Context, w SessionWriter, email, password string) (models.Identity, error) {
	const op = "signin"

	creds, err := g.identities.GetCredentials(ctx, email)
	if err != nil {
		g.logger.Error("credential lookup failed", slog.Any("err", err))
		return models.Identity{}, backendErr(op, err)
	}
	if creds == nil {
		_ = g.compare(dummyHash(), []byte(password))
		return models.Identity{}, authErr(op, "Invalid login credentials", ErrInvalidCredentials)
	}
	if g.compare([]byte(creds.PasswordHash), []byte(password)) != nil {
		return models.Identity{}, authErr(op, "Invalid login credentials", ErrInvalidCredentials)
	}

	if err := g.establish(w, creds.Identity); err != nil {
		return models.Identity{}, backendErr(op, err)
	}
	return creds.Identity, nil
}

func (g *Gateway) establish(w SessionWriter, id models.Identity) error {
	token, err := g.issue(id)
	if err != nil {
		return err
	}
	if w != nil {
		w.Set(id, token)
	}
	return nil
}

// SignOut revokes token and clears w. w is cleared even when revocation fails.
func (g *Gateway) SignOut(ctx context.Context, w SessionWriter, token string) error {
	const op = "signout"
	if w != nil {
		defer w.Clear()
	}
	if token == "" {
		return nil
	}

	claims, err := g.parseIgnoringExpiry(token)
	if err != nil {
		// nothing to revoke for a token we never issued
		return nil
	}
	if err := g.revoked.Set(ctx, revokedKey(claims.ID), []byte(claims.Subject), g.expiresIn(claims)); err != nil {
		g.logger.Warn("token revocation failed", slog.String("jti", claims.ID), slog.Any("err", err))
		return backendErr(op, err)
	}
	return nil
}

// Session returns the identity behind a session token. Expired, revoked or
// malformed tokens and tokens for deleted identities yield ErrInvalidSession.
func (g *Gateway) Session(ctx context.Context, token string) (models.Identity, error) {
	const op = "session"

	if token == "" {
		return models.Identity{}, authErr(op, "No session", ErrInvalidSession)
	}
	claims, err := g.parse(token)
	if err != nil {
		return models.Identity{}, authErr(op, "Invalid session", errors.Join(ErrInvalidSession, err))
	}

	revoked, err := g.revoked.Exists(ctx, revokedKey(claims.ID))
	if err != nil {
		return models.Identity{}, backendErr(op, err)
	}
	if revoked {
		return models.Identity{}, authErr(op, "Session has been signed out", ErrInvalidSession)
	}

	id, err := g.identities.GetIdentity(ctx, claims.Subject)
	if err != nil {
		return models.Identity{}, backendErr(op, err)
	}
	if id == nil {
		return models.Identity{}, authErr(op, "Invalid session", ErrInvalidSession)
	}
	return *id, nil
}
