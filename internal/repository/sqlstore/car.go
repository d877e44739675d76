package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

var carColumns = []any{
	"id", "name", "brand", "model_year", "price", "advance_amount", "km_driven",
	"fuel_type", "location", "status", "images", "condition_notes", "created", "updated",
}

func scanCar(s rowScanner) (models.Car, error) {
	var c models.Car
	var images string
	var notes sql.NullString
	if err := s.Scan(&c.ID, &c.Name, &c.Brand, &c.ModelYear, &c.Price, &c.AdvanceAmount, &c.KmDriven,
		&c.FuelType, &c.Location, &c.Status, &images, &notes, &c.Created, &c.Updated); err != nil {
		return models.Car{}, err
	}
	c.ConditionNotes = stringPtr(notes)
	c.Images = []string{}
	if images != "" {
		if err := json.Unmarshal([]byte(images), &c.Images); err != nil {
			return models.Car{}, fmt.Errorf("car %s images: %w", c.ID, err)
		}
	}
	return c, nil
}

func carRecord(c *models.Car) (goqu.Record, error) {
	images := c.Images
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}
	return goqu.Record{
		"name":            c.Name,
		"brand":           c.Brand,
		"model_year":      c.ModelYear,
		"price":           c.Price,
		"advance_amount":  c.AdvanceAmount,
		"km_driven":       c.KmDriven,
		"fuel_type":       c.FuelType,
		"location":        c.Location,
		"status":          c.Status,
		"images":          string(b),
		"condition_notes": nullString(c.ConditionNotes),
	}, nil
}

func (r *Store) CreateCar(ctx context.Context, c *models.Car) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CarAvailable
	}
	if !models.ValidCarStatus(c.Status) {
		return "", fmt.Errorf("invalid car status %q", c.Status)
	}
	rec, err := carRecord(c)
	if err != nil {
		return "", err
	}
	ts := r.ts()
	c.Created, c.Updated = ts, ts
	rec["id"], rec["created"], rec["updated"] = c.ID, ts, ts

	if _, err := r.exec(ctx, r.conn.Dialect().Insert("cars").Prepared(true).Rows(rec)); err != nil {
		return "", fmt.Errorf("insert car: %w", err)
	}
	return c.ID, nil
}

func (r *Store) GetCar(ctx context.Context, id string) (*models.Car, error) {
	row, err := r.queryRow(ctx, r.from("cars").Select(carColumns...).Where(goqu.Ex{"id": id}))
	if err != nil {
		return nil, err
	}
	c, err := scanCar(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListCars returns every car, newest first.
func (r *Store) ListCars(ctx context.Context) ([]models.Car, error) {
	return r.listCars(ctx, r.from("cars").Select(carColumns...).Order(goqu.C("created").Desc()))
}

// ListAvailableCars returns up to limit available cars, newest first. A limit <= 0 means no limit.
func (r *Store) ListAvailableCars(ctx context.Context, limit int) ([]models.Car, error) {
	ds := r.from("cars").Select(carColumns...).
		Where(goqu.Ex{"status": models.CarAvailable}).
		Order(goqu.C("created").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return r.listCars(ctx, ds)
}

func (r *Store) listCars(ctx context.Context, ds *goqu.SelectDataset) ([]models.Car, error) {
	rows, err := r.queryRows(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Store) UpdateCar(ctx context.Context, c *models.Car) error {
	if !models.ValidCarStatus(c.Status) {
		return fmt.Errorf("invalid car status %q", c.Status)
	}
	rec, err := carRecord(c)
	if err != nil {
		return err
	}
	c.Updated = r.ts()
	rec["updated"] = c.Updated
	return r.execOne(ctx, r.conn.Dialect().Update("cars").Prepared(true).Set(rec).Where(goqu.Ex{"id": c.ID}))
}

func (r *Store) UpdateCarStatus(ctx context.Context, id, status string) error {
	if !models.ValidCarStatus(status) {
		return fmt.Errorf("invalid car status %q", status)
	}
	return r.execOne(ctx, r.conn.Dialect().Update("cars").Prepared(true).
		Set(goqu.Record{"status": status, "updated": r.ts()}).
		Where(goqu.Ex{"id": id}))
}

// DeleteCar removes a car. Cars with bookings cannot be deleted.
func (r *Store) DeleteCar(ctx context.Context, id string) error {
	err := r.execOne(ctx, r.conn.Dialect().Delete("cars").Prepared(true).Where(goqu.Ex{"id": id}))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("delete car %s: %w", id, repository.ErrInUse)
	}
	return err
}
