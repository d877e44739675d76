// Package mock provides an in-memory implementation of every repository
// interface for tests, with per-method error injection and call counting.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// Mocks is an in-memory store. The zero value is not usable; call NewMocks.
type Mocks struct {
	mu sync.Mutex

	identities map[string]models.Identity
	hashes     map[string]string
	profiles   map[string]models.Profile
	cars       map[string]models.Car
	bookings   map[string]models.Booking
	enquiries  map[string]models.Enquiry

	errs  map[string]error
	calls map[string]int
	seq   int64
	ids   int

	// OnCall, when set, runs at the start of every method (outside the lock).
	OnCall func(method string)
}

var (
	_ repository.IdentityRepo = (*Mocks)(nil)
	_ repository.ProfileRepo  = (*Mocks)(nil)
	_ repository.CarRepo      = (*Mocks)(nil)
	_ repository.BookingRepo  = (*Mocks)(nil)
	_ repository.EnquiryRepo  = (*Mocks)(nil)
)

func NewMocks() *Mocks {
	return &Mocks{
		identities: make(map[string]models.Identity),
		hashes:     make(map[string]string),
		profiles:   make(map[string]models.Profile),
		cars:       make(map[string]models.Car),
		bookings:   make(map[string]models.Booking),
		enquiries:  make(map[string]models.Enquiry),
		errs:       make(map[string]error),
		calls:      make(map[string]int),
	}
}

// FailOn makes every later call to method return err. A nil err clears it.
func (m *Mocks) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, method)
		return
	}
	m.errs[method] = err
}

// Calls returns how many times method was invoked.
func (m *Mocks) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (m *Mocks) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// enter records the call and returns the injected error, holding the lock on success.
func (m *Mocks) enter(method string) error {
	if m.OnCall != nil {
		m.OnCall(method)
	}
	m.mu.Lock()
	m.calls[method]++
	if err := m.errs[method]; err != nil {
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Mocks) nextID(prefix string) string {
	m.ids++
	return fmt.Sprintf("%s-%d", prefix, m.ids)
}

func (m *Mocks) tick() int64 {
	m.seq++
	return m.seq
}

// AddIdentity seeds an identity with its profile and returns the identity.
func (m *Mocks) AddIdentity(email, passwordHash, fullName string, role models.Role) models.Identity {
	id, err := m.CreateIdentity(context.Background(), repository.NewIdentity{
		Email: email, PasswordHash: passwordHash, FullName: fullName, Role: role,
	})
	if err != nil {
		panic(err)
	}
	return id
}

// RemoveProfile deletes a profile row, leaving its identity in place.
func (m *Mocks) RemoveProfile(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, id)
}

// Identity

func (m *Mocks) CreateIdentity(_ context.Context, n repository.NewIdentity) (models.Identity, error) {
	if err := m.enter("CreateIdentity"); err != nil {
		return models.Identity{}, err
	}
	defer m.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(n.Email))
	for _, i := range m.identities {
		if i.Email == email {
			return models.Identity{}, repository.ErrDuplicateEmail
		}
	}
	role := n.Role
	if role.IsZero() {
		role = models.RoleCustomer
	}
	ts := m.tick()
	ident := models.Identity{ID: m.nextID("user"), Email: email}
	m.identities[ident.ID] = ident
	m.hashes[ident.ID] = n.PasswordHash
	m.profiles[ident.ID] = models.Profile{
		ID: ident.ID, FullName: n.FullName, Mobile: n.Mobile, Role: role, Created: ts, Updated: ts,
	}
	return ident, nil
}

func (m *Mocks) GetCredentials(_ context.Context, email string) (*repository.Credentials, error) {
	if err := m.enter("GetCredentials"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, i := range m.identities {
		if i.Email == email {
			return &repository.Credentials{Identity: i, PasswordHash: m.hashes[i.ID]}, nil
		}
	}
	return nil, nil
}

func (m *Mocks) GetIdentity(_ context.Context, id string) (*models.Identity, error) {
	if err := m.enter("GetIdentity"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	i, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

// Profile

func (m *Mocks) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	if err := m.enter("GetProfile"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Mocks) GetProfiles(_ context.Context, ids []string) ([]models.Profile, error) {
	if err := m.enter("GetProfiles"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	var out []models.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Mocks) UpdateContact(_ context.Context, id, fullName, mobile string) error {
	if err := m.enter("UpdateContact"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.FullName, p.Mobile, p.Updated = fullName, mobile, m.tick()
	m.profiles[id] = p
	return nil
}

func (m *Mocks) CountByRole(_ context.Context, role models.Role) (int64, error) {
	if err := m.enter("CountByRole"); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()

	var n int64
	for _, p := range m.profiles {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *Mocks) ListCustomers(_ context.Context) ([]models.CustomerSummary, error) {
	if err := m.enter("ListCustomers"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	var out []models.CustomerSummary
	for _, p := range m.profiles {
		if p.Role != models.RoleCustomer {
			continue
		}
		var n int64
		for _, b := range m.bookings {
			if b.CustomerID == p.ID {
				n++
			}
		}
		out = append(out, models.CustomerSummary{Profile: p, Email: m.identities[p.ID].Email, BookingCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created > out[j].Created })
	return out, nil
}

// Car

func (m *Mocks) CreateCar(_ context.Context, c *models.Car) (string, error) {
	if err := m.enter("CreateCar"); err != nil {
		return "", err
	}
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = m.nextID("car")
	}
	if c.Status == "" {
		c.Status = models.CarAvailable
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	ts := m.tick()
	c.Created, c.Updated = ts, ts
	m.cars[c.ID] = *c
	return c.ID, nil
}

func (m *Mocks) GetCar(_ context.Context, id string) (*models.Car, error) {
	if err := m.enter("GetCar"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	c, ok := m.cars[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Mocks) sortedCars(keep func(models.Car) bool) []models.Car {
	var out []models.Car
	for _, c := range m.cars {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created > out[j].Created })
	return out
}

func (m *Mocks) ListCars(_ context.Context) ([]models.Car, error) {
	if err := m.enter("ListCars"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	return m.sortedCars(func(models.Car) bool { return true }), nil
}

func (m *Mocks) ListAvailableCars(_ context.Context, limit int) ([]models.Car, error) {
	if err := m.enter("ListAvailableCars"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	out := m.sortedCars(func(c models.Car) bool { return c.Status == models.CarAvailable })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Mocks) UpdateCar(_ context.Context, c *models.Car) error {
	if err := m.enter("UpdateCar"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	old, ok := m.cars[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Created, c.Updated = old.Created, m.tick()
	m.cars[c.ID] = *c
	return nil
}

func (m *Mocks) UpdateCarStatus(_ context.Context, id, status string) error {
	if err := m.enter("UpdateCarStatus"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if !models.ValidCarStatus(status) {
		return fmt.Errorf("invalid car status %q", status)
	}
	c, ok := m.cars[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status, c.Updated = status, m.tick()
	m.cars[id] = c
	return nil
}

func (m *Mocks) DeleteCar(_ context.Context, id string) error {
	if err := m.enter("DeleteCar"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if _, ok := m.cars[id]; !ok {
		return repository.ErrNotFound
	}
	for _, b := range m.bookings {
		if b.CarID == id {
			return repository.ErrInUse
		}
	}
	delete(m.cars, id)
	return nil
}

// Booking

func (m *Mocks) CreateBooking(_ context.Context, b *models.Booking) (string, error) {
	if err := m.enter("CreateBooking"); err != nil {
		return "", err
	}
	defer m.mu.Unlock()

	car, ok := m.cars[b.CarID]
	if !ok || car.Status != models.CarAvailable {
		return "", repository.ErrCarUnavailable
	}
	car.Status = models.CarBooked
	m.cars[car.ID] = car

	if b.ID == "" {
		b.ID = m.nextID("booking")
	}
	if b.AmountPaid == 0 {
		b.AmountPaid = car.AdvanceAmount
	}
	if s, ok := models.NormalizeBookingStatus(b.Status); ok {
		b.Status = s
	} else {
		b.Status = models.BookingAdvancePaid
	}
	if b.NocStatus == "" {
		b.NocStatus = models.NocPending
	}
	ts := m.tick()
	if b.BookingDate == 0 {
		b.BookingDate = ts
	}
	b.Created, b.Updated, b.CarName = ts, ts, car.Name
	m.bookings[b.ID] = *b
	return b.ID, nil
}

func (m *Mocks) sortedBookings(keep func(models.Booking) bool) []models.Booking {
	var out []models.Booking
	for _, b := range m.bookings {
		if keep(b) {
			if c, ok := m.cars[b.CarID]; ok {
				b.CarName = c.Name
			}
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingDate != out[j].BookingDate {
			return out[i].BookingDate > out[j].BookingDate
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Mocks) ListBookings(_ context.Context) ([]models.Booking, error) {
	if err := m.enter("ListBookings"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	return m.sortedBookings(func(models.Booking) bool { return true }), nil
}

func (m *Mocks) ListBookingsByCustomer(_ context.Context, customerID string) ([]models.Booking, error) {
	if err := m.enter("ListBookingsByCustomer"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	return m.sortedBookings(func(b models.Booking) bool { return b.CustomerID == customerID }), nil
}

func (m *Mocks) UpdateBookingStatus(_ context.Context, id, status, nocStatus string) error {
	if err := m.enter("UpdateBookingStatus"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if status != "" {
		s, ok := models.NormalizeBookingStatus(status)
		if !ok {
			return fmt.Errorf("invalid booking status %q", status)
		}
		if s == models.BookingCancelled && b.Status != models.BookingCancelled {
			if c, ok := m.cars[b.CarID]; ok && c.Status == models.CarBooked {
				c.Status = models.CarAvailable
				c.Updated = m.tick()
				m.cars[b.CarID] = c
			}
		}
		b.Status = s
	}
	if nocStatus != "" {
		if !models.ValidNocStatus(nocStatus) {
			return fmt.Errorf("invalid noc status %q", nocStatus)
		}
		b.NocStatus = nocStatus
	}
	b.Updated = m.tick()
	m.bookings[id] = b
	return nil
}

// Enquiry

func (m *Mocks) CreateEnquiry(_ context.Context, e *models.Enquiry) (string, error) {
	if err := m.enter("CreateEnquiry"); err != nil {
		return "", err
	}
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = m.nextID("enquiry")
	}
	ts := m.tick()
	e.Status, e.AdminReply = models.EnquiryPending, nil
	e.Created, e.Updated = ts, ts
	m.enquiries[e.ID] = *e
	return e.ID, nil
}

func (m *Mocks) sortedEnquiries(keep func(models.Enquiry) bool) []models.Enquiry {
	var out []models.Enquiry
	for _, e := range m.enquiries {
		if keep(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b models.Enquiry) int {
		switch {
		case a.Created > b.Created:
			return -1
		case a.Created < b.Created:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
	return out
}

func (m *Mocks) ListEnquiries(_ context.Context) ([]models.Enquiry, error) {
	if err := m.enter("ListEnquiries"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	return m.sortedEnquiries(func(models.Enquiry) bool { return true }), nil
}

func (m *Mocks) ListEnquiriesByCustomer(_ context.Context, customerID string) ([]models.Enquiry, error) {
	if err := m.enter("ListEnquiriesByCustomer"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	return m.sortedEnquiries(func(e models.Enquiry) bool { return e.CustomerID == customerID }), nil
}

func (m *Mocks) ReplyEnquiry(_ context.Context, id, reply string) error {
	if err := m.enter("ReplyEnquiry"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	e, ok := m.enquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.AdminReply = &reply
	e.Status = models.EnquiryReplied
	e.Updated = m.tick()
	m.enquiries[id] = e
	return nil
}
