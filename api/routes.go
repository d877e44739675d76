package api

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/southwheels/internal/auth"
	"github.com/garnizeh/southwheels/internal/cache"
	"github.com/garnizeh/southwheels/internal/config"
	"github.com/garnizeh/southwheels/internal/dashboard"
	"github.com/garnizeh/southwheels/internal/db"
	"github.com/garnizeh/southwheels/internal/profile"
	"github.com/garnizeh/southwheels/internal/repository/sqlstore"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// Services are the dependencies behind the handlers.
type Services struct {
	Cars      repository.CarRepo
	Bookings  repository.BookingRepo
	Enquiries repository.EnquiryRepo
	Profiles  repository.ProfileRepo

	Gateway    *auth.Gateway
	Resolver   *profile.Resolver
	Dashboards *dashboard.Loader

	// DB is checked by /health when set.
	DB Pinger
}

type Options struct {
	Version      string
	BuildTime    string
	CookieSecure bool
	Timeout      time.Duration
	// CSRFKey signs the form token cookie. Empty picks a random key, which
	// invalidates open forms on restart.
	CSRFKey      []byte
}

// SetupRoutes wires the SQL store and the caches into the handlers. A nil
// shared cache keeps token revocations and profiles in process memory.
func SetupRoutes(cfg *config.Config, version, buildTime string, database *db.DB, shared cache.Cache) *mux.Router {
	repo := sqlstore.New(database, logger)

	if shared == nil {
		shared = cache.NewMemory()
	}
	svc := Services{
		Cars:      repo,
		Bookings:  repo,
		Enquiries: repo,
		Profiles:  repo,
		Gateway:   auth.New(repo, shared, cfg.JWTSecret, cfg.TokenDuration, logger),
		Resolver:  profile.NewResolver(repo, shared, cfg.Redis.ProfileTTL, logger),
		Dashboards: dashboard.NewLoader(repo, repo, repo, repo, dashboard.Options{
			MaxConcurrency: cfg.Dashboard.MaxConcurrency,
			BatchCapacity:  cfg.Dashboard.BatchCapacity,
		}, logger),
		DB: database.GetConn(),
	}
	return NewRouter(svc, Options{
		Version:      version,
		BuildTime:    buildTime,
		CookieSecure: cfg.CookieSecure,
		Timeout:      cfg.APITimeout,
		CSRFKey:      csrfKey(cfg.CSRFKey, cfg.JWTSecret),
	})
}

// csrfKey returns the 32-byte form token key. Without an explicit key it is
// derived from the JWT secret so every instance agrees on it.
func csrfKey(key, jwtSecret string) []byte {
	if key == "" {
		key = "csrf:" + jwtSecret
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

// NewRouter builds the page routes and mirrors them as JSON under /v1.
func NewRouter(svc Services, opts Options) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(TimeoutMiddleware(opts.Timeout))

	// Create handlers
	systemHandler := NewSystemHandler(svc.DB)
	authHandler := NewAuthHandler(svc.Gateway, opts.CookieSecure)
	dashboardHandler := NewDashboardHandler(svc.Dashboards)
	publicHandler := NewPublicHandler(svc.Cars)
	adminHandler := NewAdminHandler(svc.Cars, svc.Bookings, svc.Enquiries, svc.Profiles, svc.Dashboards)
	customerHandler := NewCustomerHandler(svc.Cars, svc.Bookings, svc.Enquiries, svc.Profiles, svc.Resolver)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(opts.Version, opts.BuildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	key := opts.CSRFKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("csrf key: %v", err))
		}
	}

	// Everything else runs with a per-request session
	app := r.PathPrefix("/").Subrouter()
	app.Use(SessionMiddleware(svc.Gateway, svc.Resolver))
	app.Use(CSRFMiddleware(key, opts.CookieSecure))

	app.HandleFunc("/", publicHandler.Landing).Methods("GET")
	app.HandleFunc("/auth", authHandler.Page).Methods("GET")
	app.HandleFunc("/v1/auth/session", authHandler.Session).Methods("GET")

	for _, prefix := range []string{"", "/v1"} {
		base := app
		if prefix != "" {
			base = app.PathPrefix(prefix).Subrouter()
		}

		base.HandleFunc("/cars", publicHandler.Cars).Methods("GET")
		base.HandleFunc("/auth/signin", authHandler.SignIn).Methods("POST")
		base.HandleFunc("/auth/signup", authHandler.SignUp).Methods("POST")
		base.HandleFunc("/auth/signout", authHandler.SignOut).Methods("POST")
		base.HandleFunc("/dashboard", dashboardHandler.Dashboard).Methods("GET")

		admin := base.PathPrefix("/admin").Subrouter()
		admin.Use(RequireRole(models.RoleAdmin))
		admin.HandleFunc("/cars", adminHandler.ListCars).Methods("GET")
		admin.HandleFunc("/cars", adminHandler.CreateCar).Methods("POST")
		admin.HandleFunc("/cars/{id}", adminHandler.GetCar).Methods("GET")
		admin.HandleFunc("/cars/{id}", adminHandler.UpdateCar).Methods("PUT", "POST")
		admin.HandleFunc("/cars/{id}", adminHandler.DeleteCar).Methods("DELETE")
		admin.HandleFunc("/cars/{id}/delete", adminHandler.DeleteCar).Methods("POST")
		admin.HandleFunc("/cars/{id}/status", adminHandler.UpdateCarStatus).Methods("POST", "PUT")
		admin.HandleFunc("/customers", adminHandler.ListCustomers).Methods("GET")
		admin.HandleFunc("/bookings", adminHandler.ListBookings).Methods("GET")
		admin.HandleFunc("/bookings/{id}/status", adminHandler.UpdateBooking).Methods("POST", "PUT")
		admin.HandleFunc("/enquiries", adminHandler.ListEnquiries).Methods("GET")
		admin.HandleFunc("/enquiries/{id}/reply", adminHandler.ReplyEnquiry).Methods("POST")

		customer := base.PathPrefix("/customer").Subrouter()
		customer.Use(RequireRole(models.RoleCustomer))
		customer.HandleFunc("/bookings", customerHandler.ListBookings).Methods("GET")
		customer.HandleFunc("/bookings", customerHandler.CreateBooking).Methods("POST")
		customer.HandleFunc("/enquiries", customerHandler.ListEnquiries).Methods("GET")
		customer.HandleFunc("/enquiries", customerHandler.CreateEnquiry).Methods("POST")
		customer.HandleFunc("/profile", customerHandler.Profile).Methods("GET")
		customer.HandleFunc("/profile", customerHandler.UpdateProfile).Methods("POST", "PUT")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusNotFound, "Page not found")
	})
	return r
}
