package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// CreateIdentity inserts the identity and its profile row in one transaction.
func (r *Store) CreateIdentity(ctx context.Context, n repository.NewIdentity) (models.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(n.Email))
	if email == "" || n.PasswordHash == "" {
		return models.Identity{}, fmt.Errorf("identity email and password hash are required")
	}
	role := n.Role
	if role.IsZero() {
		role = models.RoleCustomer
	}

	id := uuid.NewString()
	ts := r.ts()

	insertIdentity, idArgs, err := r.conn.Dialect().Insert("identities").Prepared(true).Rows(goqu.Record{
		"id":            id,
		"email":         email,
		"password_hash": n.PasswordHash,
		"created":       ts,
	}).ToSQL()
	if err != nil {
		return models.Identity{}, fmt.Errorf("build identity insert: %w", err)
	}
	insertProfile, profArgs, err := r.conn.Dialect().Insert("profiles").Prepared(true).Rows(goqu.Record{
		"id":        id,
		"full_name": strings.TrimSpace(n.FullName),
		"mobile":    strings.TrimSpace(n.Mobile),
		"role":      role.String(),
		"created":   ts,
		"updated":   ts,
	}).ToSQL()
	if err != nil {
		return models.Identity{}, fmt.Errorf("build profile insert: %w", err)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Identity{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertIdentity, idArgs...); err != nil {
		if isUniqueViolation(err) {
			return models.Identity{}, repository.ErrDuplicateEmail
		}
		return models.Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertProfile, profArgs...); err != nil {
		return models.Identity{}, fmt.Errorf("insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Identity{}, fmt.Errorf("commit identity: %w", err)
	}

	return models.Identity{ID: id, Email: email}, nil
}

func (r *Store) GetCredentials(ctx context.Context, email string) (*repository.Credentials, error) {
	row, err := r.queryRow(ctx, r.from("identities").
		Select("id", "email", "password_hash").
		Where(goqu.Ex{"email": strings.ToLower(strings.TrimSpace(email))}))
	if err != nil {
		return nil, err
	}

	var c repository.Credentials
	if err := row.Scan(&c.Identity.ID, &c.Identity.Email, &c.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Store) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	row, err := r.queryRow(ctx, r.from("identities").
		Select("id", "email").
		Where(goqu.Ex{"id": id}))
	if err != nil {
		return nil, err
	}

	var i models.Identity
	if err := row.Scan(&i.ID, &i.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}
