package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/southwheels/internal/dashboard"
	"github.com/garnizeh/southwheels/internal/validation"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// AdminHandler serves the admin management pages. Routes are mounted behind
// RequireRole(models.RoleAdmin).
type AdminHandler struct {
	cars      repository.CarRepo
	bookings  repository.BookingRepo
	enquiries repository.EnquiryRepo
	profiles  repository.ProfileRepo
	loader    *dashboard.Loader
}

func NewAdminHandler(cars repository.CarRepo, bookings repository.BookingRepo, enquiries repository.EnquiryRepo, profiles repository.ProfileRepo, loader *dashboard.Loader) *AdminHandler {
	return &AdminHandler{cars: cars, bookings: bookings, enquiries: enquiries, profiles: profiles, loader: loader}
}

func (h *AdminHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.cars.ListCars(r.Context())
	if err != nil {
		internalError(w, r, "list cars", err)
		return
	}
	if cars == nil {
		cars = []models.Car{}
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, cars)
		return
	}
	renderPage(w, r, http.StatusOK, "admin_cars", pageData{Title: "Manage cars", Data: cars})
}

func (h *AdminHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	car, err := decodeCar(r.Context(), r)
	if err != nil {
		h.carInputFailed(w, r, err, "admin_cars", nil)
		return
	}
	if car.Status == "" {
		car.Status = models.CarAvailable
	}
	if _, err := h.cars.CreateCar(r.Context(), car); err != nil {
		internalError(w, r, "create car", err)
		return
	}
	logger.Info("car created", slog.String("id", car.ID), slog.String("name", car.Name))
	done(w, r, http.StatusCreated, car, "/admin/cars", "Car added")
}

func (h *AdminHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	car, ok := h.car(w, r)
	if !ok {
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, car)
		return
	}
	renderPage(w, r, http.StatusOK, "admin_car", pageData{Title: car.Name, Data: car})
}

// UpdateCar replaces the editable fields of a car. An omitted status keeps the current one.
func (h *AdminHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.car(w, r)
	if !ok {
		return
	}
	car, err := decodeCar(r.Context(), r)
	if err != nil {
		h.carInputFailed(w, r, err, "admin_car", existing)
		return
	}
	car.ID = existing.ID
	if car.Status == "" {
		car.Status = existing.Status
	}
	if err := h.cars.UpdateCar(r.Context(), car); err != nil {
		h.writeFailed(w, r, "update car", err)
		return
	}
	done(w, r, http.StatusOK, car, "/admin/cars", "Car updated")
}

func (h *AdminHandler) UpdateCarStatus(w http.ResponseWriter, r *http.Request) {
	var form validation.CarStatusForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	if !validForm(w, r, form) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.cars.UpdateCarStatus(r.Context(), id, form.Status); err != nil {
		h.writeFailed(w, r, "update car status", err)
		return
	}
	done(w, r, http.StatusOK, map[string]string{"id": id, "status": form.Status}, "/admin/cars", "Status updated")
}

func (h *AdminHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.cars.DeleteCar(r.Context(), id); err != nil {
		h.writeFailed(w, r, "delete car", err)
		return
	}
	logger.Info("car deleted", slog.String("id", id))
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	done(w, r, http.StatusOK, nil, "/admin/cars", "Car deleted")
}

func (h *AdminHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.profiles.ListCustomers(r.Context())
	if err != nil {
		internalError(w, r, "list customers", err)
		return
	}
	if customers == nil {
		customers = []models.CustomerSummary{}
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, customers)
		return
	}
	renderPage(w, r, http.StatusOK, "admin_customers", pageData{Title: "Customers", Data: customers})
}

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.loader.Bookings(r.Context(), statusFrom(r).Profile)
	if err != nil {
		h.writeFailed(w, r, "list bookings", err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, rows)
		return
	}
	renderPage(w, r, http.StatusOK, "admin_bookings", pageData{Title: "Bookings", Data: rows})
}

// UpdateBooking changes the booking status, the NOC status, or both.
func (h *AdminHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var form validation.BookingStatusForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	if form.Status == "" && form.NocStatus == "" {
		invalid(w, r, &validation.ValidationError{Fields: map[string]string{
			"status": "status or noc_status is required",
		}}, "error", pageData{Title: "Bookings", Error: "Nothing to update"})
		return
	}
	if !validForm(w, r, form) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.bookings.UpdateBookingStatus(r.Context(), id, form.Status, form.NocStatus); err != nil {
		h.writeFailed(w, r, "update booking", err)
		return
	}
	done(w, r, http.StatusOK, map[string]string{"id": id, "status": form.Status, "noc_status": form.NocStatus},
		"/admin/bookings", "Booking updated")
}

func (h *AdminHandler) ListEnquiries(w http.ResponseWriter, r *http.Request) {
	rows, err := h.loader.Enquiries(r.Context(), statusFrom(r).Profile)
	if err != nil {
		h.writeFailed(w, r, "list enquiries", err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, rows)
		return
	}
	renderPage(w, r, http.StatusOK, "admin_enquiries", pageData{Title: "Enquiries", Data: rows})
}

// ReplyEnquiry stores the reply and marks the enquiry replied.
func (h *AdminHandler) ReplyEnquiry(w http.ResponseWriter, r *http.Request) {
	var form validation.ReplyForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	if !validForm(w, r, form) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.enquiries.ReplyEnquiry(r.Context(), id, form.Reply); err != nil {
		h.writeFailed(w, r, "reply enquiry", err)
		return
	}
	done(w, r, http.StatusOK, map[string]string{"id": id, "status": models.EnquiryReplied},
		"/admin/enquiries", "Reply sent")
}

func (h *AdminHandler) car(w http.ResponseWriter, r *http.Request) (*models.Car, bool) {
	car, err := h.cars.GetCar(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		internalError(w, r, "get car", err)
		return nil, false
	}
	if car == nil {
		fail(w, r, http.StatusNotFound, "Car not found")
		return nil, false
	}
	return car, true
}

func (h *AdminHandler) carInputFailed(w http.ResponseWriter, r *http.Request, err error, page string, car *models.Car) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		data := pageData{Title: "Manage cars", Error: "Please correct the highlighted fields"}
		switch {
		case wantsJSON(r):
		case car != nil:
			data.Title, data.Data = car.Name, car
		default:
			if cars, lerr := h.cars.ListCars(r.Context()); lerr == nil {
				data.Data = cars
			}
		}
		invalid(w, r, verr, page, data)
	case errors.Is(err, errBadRequest):
		fail(w, r, http.StatusBadRequest, "Invalid request")
	default:
		internalError(w, r, "decode car", err)
	}
}

// writeFailed maps store errors of write operations to responses.
func (h *AdminHandler) writeFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		fail(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrInUse):
		fail(w, r, http.StatusConflict, "This car has bookings and cannot be deleted")
	case errors.Is(err, dashboard.ErrForbidden):
		fail(w, r, http.StatusForbidden, "You do not have access to this page")
	default:
		internalError(w, r, op, err)
	}
}

// validForm runs the form rules and answers 422 on failure.
func validForm(w http.ResponseWriter, r *http.Request, form any) bool {
	err := validation.Struct(form)
	if err == nil {
		return true
	}
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		invalid(w, r, verr, "error", pageData{Title: "Invalid input", Error: verr.Error()})
		return false
	}
	internalError(w, r, "validate form", err)
	return false
}
