package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

func (r *Store) bookingsQuery() *goqu.SelectDataset {
	return r.conn.Dialect().From(goqu.T("bookings").As("b")).Prepared(true).
		LeftJoin(goqu.T("cars").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("b.car_id")))).
		Select(
			goqu.I("b.id"), goqu.I("b.car_id"), goqu.I("b.customer_id"), goqu.I("b.amount_paid"),
			goqu.I("b.status"), goqu.I("b.noc_status"), goqu.I("b.booking_date"),
			goqu.I("b.created"), goqu.I("b.updated"), goqu.COALESCE(goqu.I("c.name"), ""),
		).
		Order(goqu.I("b.booking_date").Desc(), goqu.I("b.id").Asc())
}

func (r *Store) listBookings(ctx context.Context, ds *goqu.SelectDataset) ([]models.Booking, error) {
	rows, err := r.queryRows(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.CarID, &b.CustomerID, &b.AmountPaid, &b.Status, &b.NocStatus,
			&b.BookingDate, &b.Created, &b.Updated, &b.CarName); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateBooking reserves the car and stores the booking in one transaction.
// A zero AmountPaid is replaced by the car's advance amount.
func (r *Store) CreateBooking(ctx context.Context, b *models.Booking) (string, error) {
	if b.CarID == "" || b.CustomerID == "" {
		return "", fmt.Errorf("booking car and customer are required")
	}
	status := models.BookingAdvancePaid
	if b.Status != "" {
		s, ok := models.NormalizeBookingStatus(b.Status)
		if !ok {
			return "", fmt.Errorf("invalid booking status %q", b.Status)
		}
		status = s
	}
	noc := models.NocPending
	if b.NocStatus != "" {
		if !models.ValidNocStatus(b.NocStatus) {
			return "", fmt.Errorf("invalid noc status %q", b.NocStatus)
		}
		noc = b.NocStatus
	}

	ts := r.ts()
	reserve, reserveArgs, err := r.conn.Dialect().Update("cars").Prepared(true).
		Set(goqu.Record{"status": models.CarBooked, "updated": ts}).
		Where(goqu.Ex{"id": b.CarID, "status": models.CarAvailable}).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build car reserve: %w", err)
	}
	lookup, lookupArgs, err := r.from("cars").Select("name", "advance_amount").Where(goqu.Ex{"id": b.CarID}).ToSQL()
	if err != nil {
		return "", fmt.Errorf("build car lookup: %w", err)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, reserve, reserveArgs...)
	if err != nil {
		return "", fmt.Errorf("reserve car: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n == 0 {
		return "", repository.ErrCarUnavailable
	}

	var carName string
	var advance int64
	if err := tx.QueryRowContext(ctx, lookup, lookupArgs...).Scan(&carName, &advance); err != nil {
		return "", fmt.Errorf("read car: %w", err)
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.AmountPaid == 0 {
		b.AmountPaid = advance
	}
	if b.BookingDate == 0 {
		b.BookingDate = ts
	}
	b.Status, b.NocStatus, b.CarName = status, noc, carName
	b.Created, b.Updated = ts, ts

	insert, insertArgs, err := r.conn.Dialect().Insert("bookings").Prepared(true).Rows(goqu.Record{
		"id":           b.ID,
		"car_id":       b.CarID,
		"customer_id":  b.CustomerID,
		"amount_paid":  b.AmountPaid,
		"status":       b.Status,
		"noc_status":   b.NocStatus,
		"booking_date": b.BookingDate,
		"created":      ts,
		"updated":      ts,
	}).ToSQL()
	if err != nil {
		return "", fmt.Errorf("build booking insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		return "", fmt.Errorf("insert booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit booking: %w", err)
	}
	return b.ID, nil
}

// ListBookings returns all bookings with car names, newest booking date first.
func (r *Store) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return r.listBookings(ctx, r.bookingsQuery())
}

func (r *Store) ListBookingsByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	return r.listBookings(ctx, r.bookingsQuery().Where(goqu.I("b.customer_id").Eq(customerID)))
}

// UpdateBookingStatus sets the booking and NOC status. An empty value leaves that column unchanged.
func (r *Store) UpdateBookingStatus(ctx context.Context, id, status, nocStatus string) error {
	rec := goqu.Record{"updated": r.ts()}
	if status != "" {
		s, ok := models.NormalizeBookingStatus(status)
		if !ok {
			return fmt.Errorf("invalid booking status %q", status)
		}
		rec["status"] = s
	}
	if nocStatus != "" {
		if !models.ValidNocStatus(nocStatus) {
			return fmt.Errorf("invalid noc status %q", nocStatus)
		}
		rec["noc_status"] = nocStatus
	}
	update := r.conn.Dialect().Update("bookings").Prepared(true).Set(rec).Where(goqu.Ex{"id": id})
	if rec["status"] != models.BookingCancelled {
		return r.execOne(ctx, update)
	}
	return r.cancelBooking(ctx, id, update)
}

// cancelBooking applies update and hands a booked car back to the showroom in
// one transaction. Cancelling an already cancelled booking leaves the car alone.
func (r *Store) cancelBooking(ctx context.Context, id string, update *goqu.UpdateDataset) error {
	lookup, lookupArgs, err := r.from("bookings").Select("car_id", "status").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return fmt.Errorf("build booking lookup: %w", err)
	}
	query, args, err := update.ToSQL()
	if err != nil {
		return fmt.Errorf("build booking update: %w", err)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var carID, prev string
	if err := tx.QueryRowContext(ctx, lookup, lookupArgs...).Scan(&carID, &prev); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("read booking: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}

	if prev != models.BookingCancelled {
		release, releaseArgs, err := r.conn.Dialect().Update("cars").Prepared(true).
			Set(goqu.Record{"status": models.CarAvailable, "updated": r.ts()}).
			Where(goqu.Ex{"id": carID, "status": models.CarBooked}).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build car release: %w", err)
		}
		if _, err := tx.ExecContext(ctx, release, releaseArgs...); err != nil {
			return fmt.Errorf("release car: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking cancel: %w", err)
	}
	return nil
}
