package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/garnizeh/southwheels/pkg/models"
)

var profileColumns = []any{"id", "full_name", "mobile", "role", "created", "updated"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(s rowScanner, extra ...any) (models.Profile, error) {
	var p models.Profile
	var role string
	dest := append([]any{&p.ID, &p.FullName, &p.Mobile, &role, &p.Created, &p.Updated}, extra...)
	if err := s.Scan(dest...); err != nil {
		return models.Profile{}, err
	}
	parsed, err := models.ParseRole(role)
	if err != nil {
		return models.Profile{}, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	p.Role = parsed
	return p, nil
}

func (r *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	row, err := r.queryRow(ctx, r.from("profiles").Select(profileColumns...).Where(goqu.Ex{"id": id}))
	if err != nil {
		return nil, err
	}
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetProfiles reads every profile in ids with a single IN query.
func (r *Store) GetProfiles(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.queryRows(ctx, r.from("profiles").Select(profileColumns...).Where(goqu.C("id").In(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Profile, 0, len(ids))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateContact changes the editable profile fields. The role column is never written.
func (r *Store) UpdateContact(ctx context.Context, id, fullName, mobile string) error {
	return r.execOne(ctx, r.conn.Dialect().Update("profiles").Prepared(true).
		Set(goqu.Record{
			"full_name": strings.TrimSpace(fullName),
			"mobile":    strings.TrimSpace(mobile),
			"updated":   r.ts(),
		}).
		Where(goqu.Ex{"id": id}))
}

func (r *Store) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	return r.count(ctx, r.from("profiles").Where(goqu.Ex{"role": role.String()}))
}

// ListCustomers returns customer profiles with their email and booking count, newest first.
func (r *Store) ListCustomers(ctx context.Context) ([]models.CustomerSummary, error) {
	ds := r.conn.Dialect().From(goqu.T("profiles").As("p")).Prepared(true).
		Join(goqu.T("identities").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("p.id")))).
		LeftJoin(goqu.T("bookings").As("b"), goqu.On(goqu.I("b.customer_id").Eq(goqu.I("p.id")))).
		Select(
			goqu.I("p.id"), goqu.I("p.full_name"), goqu.I("p.mobile"), goqu.I("p.role"),
			goqu.I("p.created"), goqu.I("p.updated"), goqu.I("i.email"), goqu.COUNT(goqu.I("b.id")),
		).
		Where(goqu.I("p.role").Eq(models.RoleCustomer.String())).
		GroupBy(
			goqu.I("p.id"), goqu.I("p.full_name"), goqu.I("p.mobile"), goqu.I("p.role"),
			goqu.I("p.created"), goqu.I("p.updated"), goqu.I("i.email"),
		).
		Order(goqu.I("p.created").Desc())

	rows, err := r.queryRows(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CustomerSummary
	for rows.Next() {
		var c models.CustomerSummary
		p, err := scanProfile(rows, &c.Email, &c.BookingCount)
		if err != nil {
			return nil, err
		}
		c.Profile = p
		out = append(out, c)
	}
	return out, rows.Err()
}
