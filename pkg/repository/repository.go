package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/southwheels/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Single-row reads return (nil, nil) when the row does not exist.

// NewIdentity carries sign-up data. The identity and its profile are created together.
type NewIdentity struct {
	Email        string
	PasswordHash string
	FullName     string
	Mobile       string
	Role         models.Role
}

// Credentials is an identity together with its stored password hash.
type Credentials struct {
	Identity     models.Identity
	PasswordHash string
}

type IdentityRepo interface {
	CreateIdentity(ctx context.Context, n NewIdentity) (models.Identity, error)
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	GetIdentity(ctx context.Context, id string) (*models.Identity, error)
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	// GetProfiles returns the profiles for ids in one read; missing ids are absent from the result.
	GetProfiles(ctx context.Context, ids []string) ([]models.Profile, error)
	UpdateContact(ctx context.Context, id, fullName, mobile string) error
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	ListCustomers(ctx context.Context) ([]models.CustomerSummary, error)
}

type CarRepo interface {
	CreateCar(ctx context.Context, c *models.Car) (string, error)
	GetCar(ctx context.Context, id string) (*models.Car, error)
	ListCars(ctx context.Context) ([]models.Car, error)
	ListAvailableCars(ctx context.Context, limit int) ([]models.Car, error)
	UpdateCar(ctx context.Context, c *models.Car) error
	UpdateCarStatus(ctx context.Context, id, status string) error
	DeleteCar(ctx context.Context, id string) error
}

type BookingRepo interface {
	// CreateBooking stores the booking and marks the car booked in the same transaction.
	CreateBooking(ctx context.Context, b *models.Booking) (string, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID string) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status, nocStatus string) error
}

type EnquiryRepo interface {
	CreateEnquiry(ctx context.Context, e *models.Enquiry) (string, error)
	ListEnquiries(ctx context.Context) ([]models.Enquiry, error)
	ListEnquiriesByCustomer(ctx context.Context, customerID string) ([]models.Enquiry, error)
	ReplyEnquiry(ctx context.Context, id, reply string) error
}

var (
	// ErrDuplicateEmail is returned by CreateIdentity when the email is already registered.
	ErrDuplicateEmail = errors.New("repository: email already registered")
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("repository: not found")
	// ErrCarUnavailable is returned by CreateBooking when the car is not available.
	ErrCarUnavailable = errors.New("repository: car is not available")
	// ErrInUse is returned by deletes of rows other rows still reference.
	ErrInUse = errors.New("repository: still referenced")
)
