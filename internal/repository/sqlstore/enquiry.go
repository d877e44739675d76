package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/garnizeh/southwheels/pkg/models"
)

var enquiryColumns = []any{
	"id", "customer_id", "car_id", "subject", "message", "admin_reply", "status", "created", "updated",
}

func (r *Store) CreateEnquiry(ctx context.Context, e *models.Enquiry) (string, error) {
	if e.CustomerID == "" {
		return "", fmt.Errorf("enquiry customer is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CarID != nil && *e.CarID == "" {
		e.CarID = nil
	}
	ts := r.ts()
	e.Status = models.EnquiryPending
	e.AdminReply = nil
	e.Created, e.Updated = ts, ts

	_, err := r.exec(ctx, r.conn.Dialect().Insert("enquiries").Prepared(true).Rows(goqu.Record{
		"id":          e.ID,
		"customer_id": e.CustomerID,
		"car_id":      nullString(e.CarID),
		"subject":     strings.TrimSpace(e.Subject),
		"message":     strings.TrimSpace(e.Message),
		"status":      e.Status,
		"created":     ts,
		"updated":     ts,
	}))
	if err != nil {
		return "", fmt.Errorf("insert enquiry: %w", err)
	}
	return e.ID, nil
}

// ListEnquiries returns every enquiry, newest first.
func (r *Store) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	return r.listEnquiries(ctx, r.from("enquiries").Select(enquiryColumns...).
		Order(goqu.C("created").Desc(), goqu.C("id").Asc()))
}

func (r *Store) ListEnquiriesByCustomer(ctx context.Context, customerID string) ([]models.Enquiry, error) {
	return r.listEnquiries(ctx, r.from("enquiries").Select(enquiryColumns...).
		Where(goqu.Ex{"customer_id": customerID}).
		Order(goqu.C("created").Desc(), goqu.C("id").Asc()))
}

func (r *Store) listEnquiries(ctx context.Context, ds *goqu.SelectDataset) ([]models.Enquiry, error) {
	rows, err := r.queryRows(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Enquiry
	for rows.Next() {
		var e models.Enquiry
		var carID, reply sql.NullString
		if err := rows.Scan(&e.ID, &e.CustomerID, &carID, &e.Subject, &e.Message, &reply,
			&e.Status, &e.Created, &e.Updated); err != nil {
			return nil, err
		}
		e.CarID, e.AdminReply = stringPtr(carID), stringPtr(reply)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplyEnquiry stores the admin reply and marks the enquiry replied.
func (r *Store) ReplyEnquiry(ctx context.Context, id, reply string) error {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fmt.Errorf("reply is empty")
	}
	return r.execOne(ctx, r.conn.Dialect().Update("enquiries").Prepared(true).
		Set(goqu.Record{"admin_reply": reply, "status": models.EnquiryReplied, "updated": r.ts()}).
		Where(goqu.Ex{"id": id}))
}
