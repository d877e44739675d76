package api_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/garnizeh/southwheels/internal/dashboard"
	"github.com/garnizeh/southwheels/pkg/models"
)

func TestDashboard_Unauthenticated(t *testing.T) {
	e := newEnv(t)
	if w := e.do(t, http.MethodGet, "/v1/dashboard", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("json: expected 401, got %d", w.Code)
	}
	w := serve(e, newPageRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/auth" {
		t.Fatalf("html: expected redirect to /auth, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestDashboard_Admin(t *testing.T) {
	e := newEnv(t)
	_, adminToken := e.addUser(t, "root@example.com", "Root", models.RoleAdmin)
	alice, _ := e.addUser(t, "alice@example.com", "Alice", models.RoleCustomer)
	car := e.addCar(t, "Swift VXi", 550000, 25000)
	if _, err := e.m.CreateBooking(context.Background(), &models.Booking{CarID: car.ID, CustomerID: alice.ID}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := e.m.CreateEnquiry(context.Background(), &models.Enquiry{CustomerID: alice.ID, Subject: "Finance", Message: "EMI options?"}); err != nil {
		t.Fatalf("CreateEnquiry: %v", err)
	}

	d := decode[dashboard.Admin](t, e.do(t, http.MethodGet, "/v1/dashboard", nil, adminToken))
	if d.Summary.TotalCars != 1 || d.Summary.TotalPayments != 25000 || d.Summary.TotalCustomers != 1 || d.Summary.PendingEnquiries != 1 {
		t.Fatalf("unexpected summary %+v", d.Summary)
	}
	if len(d.Bookings) != 1 || d.Bookings[0].CustomerName != "Alice" {
		t.Fatalf("unexpected bookings %+v", d.Bookings)
	}
	if len(d.Failed) != 0 {
		t.Fatalf("unexpected failures %v", d.Failed)
	}

	w := serve(e, newPageRequest(http.MethodGet, "/dashboard", cookieFor(adminToken)))
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "Admin dashboard") || !strings.Contains(body, "Swift VXi") {
		t.Fatalf("unexpected admin page %d", w.Code)
	}
}

func TestDashboard_AdminPartialFailure(t *testing.T) {
	e := newEnv(t)
	_, token := e.addUser(t, "root@example.com", "Root", models.RoleAdmin)
	e.addCar(t, "City ZX", 900000, 50000)
	e.m.FailOn("ListEnquiries", errors.New("timeout"))

	d := decode[dashboard.Admin](t, e.do(t, http.MethodGet, "/v1/dashboard", nil, token))
	if len(d.Failed) != 1 || d.Failed[0] != dashboard.SliceEnquiries {
		t.Fatalf("expected enquiries to be reported failed, got %v", d.Failed)
	}
	if d.Summary.TotalCars != 1 || d.Enquiries == nil {
		t.Fatalf("other slices should still load: %+v", d)
	}

	w := serve(e, newPageRequest(http.MethodGet, "/dashboard", cookieFor(token)))
	if !strings.Contains(w.Body.String(), "Could not load") {
		t.Fatalf("expected failure notice on page")
	}
}

func TestDashboard_CustomerScoping(t *testing.T) {
	e := newEnv(t)
	alice, aliceToken := e.addUser(t, "alice@example.com", "Alice", models.RoleCustomer)
	bob, bobToken := e.addUser(t, "bob@example.com", "Bob", models.RoleCustomer)
	c1 := e.addCar(t, "Swift VXi", 550000, 25000)
	c2 := e.addCar(t, "Creta SX", 1200000, 50000)

	ctx := context.Background()
	for _, b := range []*models.Booking{
		{CarID: c1.ID, CustomerID: alice.ID},
		{CarID: c2.ID, CustomerID: bob.ID},
	} {
		if _, err := e.m.CreateBooking(ctx, b); err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
	}
	if _, err := e.m.CreateEnquiry(ctx, &models.Enquiry{CustomerID: bob.ID, Subject: "Test drive", Message: "Saturday?"}); err != nil {
		t.Fatalf("CreateEnquiry: %v", err)
	}

	cases := []struct {
		name          string
		token         string
		owner         string
		wantBookings  int
		wantEnquiries int
	}{
		{name: "Alice", token: aliceToken, owner: alice.ID, wantBookings: 1, wantEnquiries: 0},
		{name: "Bob", token: bobToken, owner: bob.ID, wantBookings: 1, wantEnquiries: 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := decode[dashboard.Customer](t, e.do(t, http.MethodGet, "/v1/dashboard", nil, c.token))
			if len(d.Bookings) != c.wantBookings || len(d.Enquiries) != c.wantEnquiries {
				t.Fatalf("got %d bookings, %d enquiries", len(d.Bookings), len(d.Enquiries))
			}
			for _, b := range d.Bookings {
				if b.CustomerID != c.owner {
					t.Fatalf("booking %s of %s leaked to %s", b.ID, b.CustomerID, c.owner)
				}
			}
			for _, en := range d.Enquiries {
				if en.CustomerID != c.owner {
					t.Fatalf("enquiry %s of %s leaked to %s", en.ID, en.CustomerID, c.owner)
				}
			}
			if d.Summary.Bookings != int64(c.wantBookings) || d.Summary.NocPending != int64(c.wantBookings) {
				t.Fatalf("unexpected summary %+v", d.Summary)
			}
		})
	}

	w := serve(e, newPageRequest(http.MethodGet, "/dashboard", cookieFor(aliceToken)))
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "Swift VXi") || strings.Contains(body, "Creta SX") {
		t.Fatalf("customer page shows foreign rows or failed: %d", w.Code)
	}
}

func TestDashboard_ProfileUnavailable(t *testing.T) {
	e := newEnv(t)
	_, token := e.addUser(t, "alice@example.com", "Alice", models.RoleCustomer)
	e.m.FailOn("GetProfile", errors.New("connection reset"))

	w := e.do(t, http.MethodGet, "/v1/dashboard", nil, token)
	if w.Code == http.StatusOK {
		t.Fatalf("dashboard must not render without a profile")
	}
	if strings.Contains(w.Body.String(), "summary") {
		t.Fatalf("dashboard data leaked: %s", w.Body.String())
	}
}

func cookieFor(token string) *http.Cookie {
	return &http.Cookie{Name: "swt_session", Value: token}
}
