// Package dashboard loads the role-scoped data behind the admin and customer
// dashboards. Slice reads run concurrently under a fixed limit and customer
// names are resolved with one batched profile lookup per load.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// Slice names reported in Failed.
const (
	SliceCars          = "cars"
	SliceBookings      = "bookings"
	SliceEnquiries     = "enquiries"
	SliceCustomers     = "customers"
	SliceCustomerNames = "customer_names"
)

// UnknownCustomer is shown when a customer name cannot be resolved.
const UnknownCustomer = "Unknown Customer"

var ErrForbidden = errors.New("dashboard: role not allowed")

type AdminSummary struct {
	TotalCars        int64 `json:"total_cars"`
	TotalPayments    int64 `json:"total_payments"`
	TotalCustomers   int64 `json:"total_customers"`
	PendingEnquiries int64 `json:"pending_enquiries"`
}

type BookingRow struct {
	models.Booking
	CustomerName string `json:"customer_name"`
}

type EnquiryRow struct {
	models.Enquiry
	CustomerName string `json:"customer_name"`
}

// Admin is the unscoped admin view. Failed lists slices that could not be
// read; those slices are empty rather than missing.
type Admin struct {
	Summary   AdminSummary `json:"summary"`
	Cars      []models.Car `json:"cars"`
	Bookings  []BookingRow `json:"bookings"`
	Enquiries []EnquiryRow `json:"enquiries"`
	Failed    []string     `json:"failed,omitempty"`
}

type CustomerSummary struct {
	Bookings         int64 `json:"bookings"`
	NocPending       int64 `json:"noc_pending"`
	RepliedEnquiries int64 `json:"replied_enquiries"`
}

// Customer holds only rows owned by the viewing customer.
type Customer struct {
	Summary   CustomerSummary  `json:"summary"`
	Bookings  []models.Booking `json:"bookings"`
	Enquiries []models.Enquiry `json:"enquiries"`
	Failed    []string         `json:"failed,omitempty"`
}

type Options struct {
	// MaxConcurrency caps in-flight slice reads. Defaults to 5.
	MaxConcurrency int
	// BatchCapacity caps the ids per batched profile lookup. Defaults to 100.
	BatchCapacity int
}

type Loader struct {
	cars      repository.CarRepo
	bookings  repository.BookingRepo
	enquiries repository.EnquiryRepo
	profiles  repository.ProfileRepo
	opts      Options
	logger    *slog.Logger
}

func NewLoader(cars repository.CarRepo, bookings repository.BookingRepo, enquiries repository.EnquiryRepo, profiles repository.ProfileRepo, opts Options, logger *slog.Logger) *Loader {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 5
	}
	if opts.BatchCapacity <= 0 {
		opts.BatchCapacity = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cars: cars, bookings: bookings, enquiries: enquiries, profiles: profiles, opts: opts, logger: logger}
}

// failures collects failed slice names from concurrent readers.
type failures struct {
	mu    sync.Mutex
	names []string
}

func (f *failures) add(name string) {
	f.mu.Lock()
	f.names = append(f.names, name)
	f.mu.Unlock()
}

func (f *failures) sorted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.names) == 0 {
		return nil
	}
	out := append([]string(nil), f.names...)
	sort.Strings(out)
	return out
}

// read runs fn on g and records a failure under name instead of returning it,
// so one failed slice never cancels the others.
func (l *Loader) read(g *errgroup.Group, fails *failures, name string, fn func() error) {
	g.Go(func() error {
		if err := fn(); err != nil {
			l.logger.Warn("dashboard slice failed", slog.String("slice", name), slog.Any("err", err))
			fails.add(name)
		}
		return nil
	})
}

// Admin loads the admin dashboard. viewer must be an admin.
func (l *Loader) Admin(ctx context.Context, viewer models.Profile) (*Admin, error) {
	if viewer.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	var (
		cars      []models.Car
		bookings  []models.Booking
		enquiries []models.Enquiry
		customers int64
		fails     failures
	)

	g := &errgroup.Group{}
	g.SetLimit(l.opts.MaxConcurrency)
	l.read(g, &fails, SliceCars, func() (err error) {
		cars, err = l.cars.ListCars(ctx)
		return err
	})
	l.read(g, &fails, SliceBookings, func() (err error) {
		bookings, err = l.bookings.ListBookings(ctx)
		return err
	})
	l.read(g, &fails, SliceEnquiries, func() (err error) {
		enquiries, err = l.enquiries.ListEnquiries(ctx)
		return err
	})
	l.read(g, &fails, SliceCustomers, func() (err error) {
		customers, err = l.profiles.CountByRole(ctx, models.RoleCustomer)
		return err
	})
	_ = g.Wait()

	ids := make([]string, 0, len(bookings)+len(enquiries))
	for _, b := range bookings {
		ids = append(ids, b.CustomerID)
	}
	for _, e := range enquiries {
		ids = append(ids, e.CustomerID)
	}
	names, err := l.customerNames(ctx, ids)
	if err != nil {
		l.logger.Warn("dashboard slice failed", slog.String("slice", SliceCustomerNames), slog.Any("err", err))
		fails.add(SliceCustomerNames)
	}
	nameOf := nameLookup(names)

	out := &Admin{
		Cars:      nonNil(cars),
		Bookings:  make([]BookingRow, 0, len(bookings)),
		Enquiries: make([]EnquiryRow, 0, len(enquiries)),
	}
	for _, b := range bookings {
		out.Bookings = append(out.Bookings, BookingRow{Booking: b, CustomerName: nameOf(b.CustomerID)})
		out.Summary.TotalPayments += b.AmountPaid
	}
	for _, e := range enquiries {
		out.Enquiries = append(out.Enquiries, EnquiryRow{Enquiry: e, CustomerName: nameOf(e.CustomerID)})
		if e.Status == models.EnquiryPending {
			out.Summary.PendingEnquiries++
		}
	}
	out.Summary.TotalCars = int64(len(cars))
	out.Summary.TotalCustomers = customers
	out.Failed = fails.sorted()
	return out, nil
}

func nameLookup(names map[string]string) func(string) string {
	return func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return UnknownCustomer
	}
}

// Bookings lists every booking with its customer name. viewer must be an
// admin. Unresolved names show as UnknownCustomer.
func (l *Loader) Bookings(ctx context.Context, viewer models.Profile) ([]BookingRow, error) {
	if viewer.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	bookings, err := l.bookings.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.CustomerID
	}
	names, err := l.customerNames(ctx, ids)
	if err != nil {
		l.logger.Warn("customer names unavailable", slog.Any("err", err))
	}
	nameOf := nameLookup(names)
	rows := make([]BookingRow, len(bookings))
	for i, b := range bookings {
		rows[i] = BookingRow{Booking: b, CustomerName: nameOf(b.CustomerID)}
	}
	return rows, nil
}

// Enquiries lists every enquiry with its customer name. viewer must be an admin.
func (l *Loader) Enquiries(ctx context.Context, viewer models.Profile) ([]EnquiryRow, error) {
	if viewer.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	enquiries, err := l.enquiries.ListEnquiries(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(enquiries))
	for i, e := range enquiries {
		ids[i] = e.CustomerID
	}
	names, err := l.customerNames(ctx, ids)
	if err != nil {
		l.logger.Warn("customer names unavailable", slog.Any("err", err))
	}
	nameOf := nameLookup(names)
	rows := make([]EnquiryRow, len(enquiries))
	for i, e := range enquiries {
		rows[i] = EnquiryRow{Enquiry: e, CustomerName: nameOf(e.CustomerID)}
	}
	return rows, nil
}

// Customer loads the dashboard of viewer. Every row is filtered to
// customer_id == viewer.ID.
func (l *Loader) Customer(ctx context.Context, viewer models.Profile) (*Customer, error) {
	if viewer.Role != models.RoleCustomer || viewer.ID == "" {
		return nil, ErrForbidden
	}

	var (
		bookings  []models.Booking
		enquiries []models.Enquiry
		fails     failures
	)

	g := &errgroup.Group{}
	g.SetLimit(l.opts.MaxConcurrency)
	l.read(g, &fails, SliceBookings, func() (err error) {
		bookings, err = l.bookings.ListBookingsByCustomer(ctx, viewer.ID)
		return err
	})
	l.read(g, &fails, SliceEnquiries, func() (err error) {
		enquiries, err = l.enquiries.ListEnquiriesByCustomer(ctx, viewer.ID)
		return err
	})
	_ = g.Wait()

	out := &Customer{
		Bookings:  ownedBy(bookings, viewer.ID, func(b models.Booking) string { return b.CustomerID }),
		Enquiries: ownedBy(enquiries, viewer.ID, func(e models.Enquiry) string { return e.CustomerID }),
		Failed:    fails.sorted(),
	}
	out.Summary.Bookings = int64(len(out.Bookings))
	for _, b := range out.Bookings {
		if b.NocStatus != models.NocReady {
			out.Summary.NocPending++
		}
	}
	for _, e := range out.Enquiries {
		if e.Status == models.EnquiryReplied {
			out.Summary.RepliedEnquiries++
		}
	}
	return out, nil
}

func ownedBy[T any](rows []T, owner string, customerID func(T) string) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if customerID(r) == owner {
			out = append(out, r)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
