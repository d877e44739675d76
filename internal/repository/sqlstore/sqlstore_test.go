package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	dbfs "github.com/garnizeh/southwheels/db"
	dbpkg "github.com/garnizeh/southwheels/internal/db"
	"github.com/garnizeh/southwheels/internal/repository/sqlstore"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// tickingClock advances one second on every call so created ordering is deterministic.
func tickingClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func setupStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, dbpkg.DriverSQLite, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqlstore.New(d, nil).WithClock(tickingClock())
}

func mustIdentity(t *testing.T, s *sqlstore.Store, email string, role models.Role) models.Identity {
	t.Helper()
	id, err := s.CreateIdentity(context.Background(), repository.NewIdentity{
		Email: email, PasswordHash: "hash", FullName: email, Mobile: "9000000000", Role: role,
	})
	if err != nil {
		t.Fatalf("CreateIdentity(%s): %v", email, err)
	}
	return id
}

func mustCar(t *testing.T, s *sqlstore.Store, name string) string {
	t.Helper()
	id, err := s.CreateCar(context.Background(), &models.Car{
		Name: name, Brand: "Maruti", ModelYear: 2020, Price: 500000, AdvanceAmount: 25000,
		KmDriven: 30000, FuelType: "petrol", Location: "Chennai", Images: []string{"a.jpg"},
	})
	if err != nil {
		t.Fatalf("CreateCar(%s): %v", name, err)
	}
	return id
}

func TestIdentityAndProfile(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// missing rows are nil, nil
	creds, err := s.GetCredentials(ctx, "nobody@example.com")
	if err != nil || creds != nil {
		t.Fatalf("expected nil, nil for unknown email, got %#v, %v", creds, err)
	}
	p, err := s.GetProfile(ctx, "missing")
	if err != nil || p != nil {
		t.Fatalf("expected nil, nil for unknown profile, got %#v, %v", p, err)
	}

	id, err := s.CreateIdentity(ctx, repository.NewIdentity{
		Email: "  Alice@Example.com ", PasswordHash: "hash", FullName: "Alice", Mobile: "123",
	})
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if id.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", id.Email)
	}

	creds, err = s.GetCredentials(ctx, "ALICE@example.com")
	if err != nil || creds == nil {
		t.Fatalf("GetCredentials: %#v, %v", creds, err)
	}
	if creds.Identity.ID != id.ID || creds.PasswordHash != "hash" {
		t.Fatalf("unexpected credentials %#v", creds)
	}

	got, err := s.GetIdentity(ctx, id.ID)
	if err != nil || got == nil || got.Email != id.Email {
		t.Fatalf("GetIdentity: %#v, %v", got, err)
	}

	// profile is created with the identity and defaults to customer
	p, err = s.GetProfile(ctx, id.ID)
	if err != nil || p == nil {
		t.Fatalf("GetProfile: %#v, %v", p, err)
	}
	if p.Role != models.RoleCustomer || p.FullName != "Alice" {
		t.Fatalf("unexpected profile %#v", p)
	}

	_, err = s.CreateIdentity(ctx, repository.NewIdentity{Email: "alice@example.com", PasswordHash: "x"})
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	if err := s.UpdateContact(ctx, id.ID, "Alice B", "456"); err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	p, _ = s.GetProfile(ctx, id.ID)
	if p.FullName != "Alice B" || p.Mobile != "456" || p.Role != models.RoleCustomer {
		t.Fatalf("unexpected profile after update %#v", p)
	}
	if err := s.UpdateContact(ctx, "missing", "x", "y"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProfilesAndCounts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	admin := mustIdentity(t, s, "admin@example.com", models.RoleAdmin)
	a := mustIdentity(t, s, "a@example.com", models.RoleCustomer)
	b := mustIdentity(t, s, "b@example.com", models.RoleCustomer)

	profiles, err := s.GetProfiles(ctx, []string{a.ID, b.ID, "missing"})
	if err != nil {
		t.Fatalf("GetProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if empty, err := s.GetProfiles(ctx, nil); err != nil || empty != nil {
		t.Fatalf("expected nil for no ids, got %v, %v", empty, err)
	}

	n, err := s.CountByRole(ctx, models.RoleCustomer)
	if err != nil || n != 2 {
		t.Fatalf("CountByRole(customer) = %d, %v", n, err)
	}
	n, err = s.CountByRole(ctx, models.RoleAdmin)
	if err != nil || n != 1 {
		t.Fatalf("CountByRole(admin) = %d, %v", n, err)
	}

	carID := mustCar(t, s, "Swift")
	if _, err := s.CreateBooking(ctx, &models.Booking{CarID: carID, CustomerID: a.ID}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	customers, err := s.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(customers))
	}
	counts := map[string]int64{}
	for _, c := range customers {
		if c.ID == admin.ID {
			t.Fatalf("admin listed as customer")
		}
		counts[c.Email] = c.BookingCount
	}
	if counts["a@example.com"] != 1 || counts["b@example.com"] != 0 {
		t.Fatalf("unexpected booking counts %v", counts)
	}
}

func TestCarCRUD(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if got, err := s.GetCar(ctx, "missing"); err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing car, got %#v, %v", got, err)
	}

	notes := "single owner"
	car := &models.Car{
		Name: "City", Brand: "Honda", ModelYear: 2019, Price: 800000, AdvanceAmount: 40000,
		KmDriven: 42000, FuelType: "petrol", Location: "Pune", ConditionNotes: &notes,
	}
	id, err := s.CreateCar(ctx, car)
	if err != nil {
		t.Fatalf("CreateCar: %v", err)
	}
	newer := mustCar(t, s, "Swift")

	got, err := s.GetCar(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetCar: %#v, %v", got, err)
	}
	if got.Status != models.CarAvailable || got.ConditionNotes == nil || *got.ConditionNotes != notes {
		t.Fatalf("unexpected car %#v", got)
	}
	if got.Images == nil || len(got.Images) != 0 {
		t.Fatalf("expected empty images slice, got %#v", got.Images)
	}

	cars, err := s.ListCars(ctx)
	if err != nil || len(cars) != 2 {
		t.Fatalf("ListCars: %d, %v", len(cars), err)
	}
	if cars[0].ID != newer {
		t.Fatalf("expected newest car first")
	}

	got.Price = 750000
	got.ConditionNotes = nil
	got.Images = []string{"x.jpg", "y.jpg"}
	if err := s.UpdateCar(ctx, got); err != nil {
		t.Fatalf("UpdateCar: %v", err)
	}
	got, _ = s.GetCar(ctx, id)
	if got.Price != 750000 || got.ConditionNotes != nil || len(got.Images) != 2 {
		t.Fatalf("update not applied: %#v", got)
	}

	if err := s.UpdateCarStatus(ctx, id, "stolen"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if err := s.UpdateCarStatus(ctx, id, models.CarSold); err != nil {
		t.Fatalf("UpdateCarStatus: %v", err)
	}
	avail, err := s.ListAvailableCars(ctx, 6)
	if err != nil || len(avail) != 1 || avail[0].ID != newer {
		t.Fatalf("ListAvailableCars: %#v, %v", avail, err)
	}

	if err := s.DeleteCar(ctx, id); err != nil {
		t.Fatalf("DeleteCar: %v", err)
	}
	if err := s.DeleteCar(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestBookingsScopedAndReserved(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := mustIdentity(t, s, "a@example.com", models.RoleCustomer)
	b := mustIdentity(t, s, "b@example.com", models.RoleCustomer)
	car1 := mustCar(t, s, "Swift")
	car2 := mustCar(t, s, "i20")

	bk := &models.Booking{CarID: car1, CustomerID: a.ID, Status: "pending"}
	if _, err := s.CreateBooking(ctx, bk); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if bk.AmountPaid != 25000 || bk.Status != models.BookingAdvancePaid || bk.NocStatus != models.NocPending {
		t.Fatalf("unexpected booking defaults %#v", bk)
	}

	// the car is now booked and cannot be booked again
	_, err := s.CreateBooking(ctx, &models.Booking{CarID: car1, CustomerID: b.ID})
	if !errors.Is(err, repository.ErrCarUnavailable) {
		t.Fatalf("expected ErrCarUnavailable, got %v", err)
	}
	c, _ := s.GetCar(ctx, car1)
	if c.Status != models.CarBooked {
		t.Fatalf("expected car booked, got %s", c.Status)
	}

	if _, err := s.CreateBooking(ctx, &models.Booking{CarID: car2, CustomerID: b.ID, AmountPaid: 1000}); err != nil {
		t.Fatalf("CreateBooking b: %v", err)
	}

	all, err := s.ListBookings(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListBookings: %d, %v", len(all), err)
	}

	mine, err := s.ListBookingsByCustomer(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListBookingsByCustomer: %v", err)
	}
	if len(mine) != 1 || mine[0].CustomerID != a.ID || mine[0].CarName != "Swift" {
		t.Fatalf("unexpected bookings for a: %#v", mine)
	}

	if err := s.UpdateBookingStatus(ctx, bk.ID, models.BookingConfirmed, models.NocInProcess); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if err := s.UpdateBookingStatus(ctx, bk.ID, "", models.NocReady); err != nil {
		t.Fatalf("UpdateBookingStatus noc only: %v", err)
	}
	mine, _ = s.ListBookingsByCustomer(ctx, a.ID)
	if mine[0].Status != models.BookingConfirmed || mine[0].NocStatus != models.NocReady {
		t.Fatalf("unexpected statuses %#v", mine[0])
	}
	if err := s.UpdateBookingStatus(ctx, bk.ID, "shipped", ""); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if err := s.UpdateBookingStatus(ctx, "missing", models.BookingCompleted, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCar(ctx, car1); !errors.Is(err, repository.ErrInUse) {
		t.Fatalf("expected ErrInUse deleting a booked car, got %v", err)
	}
}

func TestCancelBookingReleasesCar(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := mustIdentity(t, s, "a@example.com", models.RoleCustomer)
	b := mustIdentity(t, s, "b@example.com", models.RoleCustomer)
	car := mustCar(t, s, "Swift")

	first := &models.Booking{CarID: car, CustomerID: a.ID}
	if _, err := s.CreateBooking(ctx, first); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if err := s.UpdateBookingStatus(ctx, first.ID, models.BookingCancelled, ""); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}
	c, _ := s.GetCar(ctx, car)
	if c.Status != models.CarAvailable {
		t.Fatalf("cancelled booking should release the car, got %s", c.Status)
	}

	second := &models.Booking{CarID: car, CustomerID: b.ID}
	if _, err := s.CreateBooking(ctx, second); err != nil {
		t.Fatalf("rebooking a released car: %v", err)
	}

	// a repeated cancel of the old booking must not free the new one's car
	if err := s.UpdateBookingStatus(ctx, first.ID, models.BookingCancelled, ""); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	c, _ = s.GetCar(ctx, car)
	if c.Status != models.CarBooked {
		t.Fatalf("car should stay booked by the second booking, got %s", c.Status)
	}

	// a sold car stays sold
	if err := s.UpdateCarStatus(ctx, car, models.CarSold); err != nil {
		t.Fatalf("UpdateCarStatus: %v", err)
	}
	if err := s.UpdateBookingStatus(ctx, second.ID, models.BookingCancelled, ""); err != nil {
		t.Fatalf("cancel second: %v", err)
	}
	c, _ = s.GetCar(ctx, car)
	if c.Status != models.CarSold {
		t.Fatalf("sold car must not be released, got %s", c.Status)
	}

	if err := s.UpdateBookingStatus(ctx, "missing", models.BookingCancelled, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnquiries(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := mustIdentity(t, s, "a@example.com", models.RoleCustomer)
	b := mustIdentity(t, s, "b@example.com", models.RoleCustomer)
	carID := mustCar(t, s, "Innova")

	e := &models.Enquiry{CustomerID: a.ID, CarID: &carID, Subject: "Test drive", Message: "Saturday?"}
	if _, err := s.CreateEnquiry(ctx, e); err != nil {
		t.Fatalf("CreateEnquiry: %v", err)
	}
	empty := ""
	if _, err := s.CreateEnquiry(ctx, &models.Enquiry{CustomerID: b.ID, CarID: &empty, Subject: "General", Message: "Hi"}); err != nil {
		t.Fatalf("CreateEnquiry b: %v", err)
	}

	all, err := s.ListEnquiries(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListEnquiries: %d, %v", len(all), err)
	}
	if all[0].CustomerID != b.ID || all[0].CarID != nil {
		t.Fatalf("expected newest enquiry without car first, got %#v", all[0])
	}

	mine, err := s.ListEnquiriesByCustomer(ctx, a.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListEnquiriesByCustomer: %#v, %v", mine, err)
	}
	if mine[0].Status != models.EnquiryPending || mine[0].AdminReply != nil {
		t.Fatalf("unexpected new enquiry %#v", mine[0])
	}

	if err := s.ReplyEnquiry(ctx, e.ID, "  "); err == nil {
		t.Fatalf("expected error for empty reply")
	}
	if err := s.ReplyEnquiry(ctx, e.ID, "Yes, 10am"); err != nil {
		t.Fatalf("ReplyEnquiry: %v", err)
	}
	mine, _ = s.ListEnquiriesByCustomer(ctx, a.ID)
	if mine[0].Status != models.EnquiryReplied || mine[0].AdminReply == nil || *mine[0].AdminReply != "Yes, 10am" {
		t.Fatalf("reply not stored: %#v", mine[0])
	}
}
