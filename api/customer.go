package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/southwheels/internal/profile"
	"github.com/garnizeh/southwheels/internal/validation"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// CustomerHandler serves the pages of the signed-in customer. Every read and
// write is keyed by the caller's own profile id.
type CustomerHandler struct {
	cars      repository.CarRepo
	bookings  repository.BookingRepo
	enquiries repository.EnquiryRepo
	profiles  repository.ProfileRepo
	resolver  *profile.Resolver
}

func NewCustomerHandler(cars repository.CarRepo, bookings repository.BookingRepo, enquiries repository.EnquiryRepo, profiles repository.ProfileRepo, resolver *profile.Resolver) *CustomerHandler {
	return &CustomerHandler{cars: cars, bookings: bookings, enquiries: enquiries, profiles: profiles, resolver: resolver}
}

func (h *CustomerHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	me := statusFrom(r).Profile
	bookings, err := h.bookings.ListBookingsByCustomer(r.Context(), me.ID)
	if err != nil {
		internalError(w, r, "list my bookings", err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, bookings)
		return
	}
	renderPage(w, r, http.StatusOK, "customer_bookings", pageData{Title: "My bookings", Data: bookings})
}

// CreateBooking books an available car. The advance amount is charged and
// the car is marked booked.
func (h *CustomerHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var form validation.BookingForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	if !validForm(w, r, form) {
		return
	}

	car, err := h.cars.GetCar(r.Context(), form.CarID)
	if err != nil {
		internalError(w, r, "get car", err)
		return
	}
	if car == nil {
		fail(w, r, http.StatusNotFound, "Car not found")
		return
	}

	me := statusFrom(r).Profile
	b := &models.Booking{CarID: car.ID, CustomerID: me.ID}
	if _, err := h.bookings.CreateBooking(r.Context(), b); err != nil {
		if errors.Is(err, repository.ErrCarUnavailable) {
			fail(w, r, http.StatusConflict, "This car is no longer available")
			return
		}
		internalError(w, r, "create booking", err)
		return
	}
	logger.Info("car booked", slog.String("booking", b.ID), slog.String("car", car.ID), slog.String("customer", me.ID))
	done(w, r, http.StatusCreated, b, "/customer/bookings", "Booking confirmed, advance paid")
}

func (h *CustomerHandler) ListEnquiries(w http.ResponseWriter, r *http.Request) {
	me := statusFrom(r).Profile
	enquiries, err := h.enquiries.ListEnquiriesByCustomer(r.Context(), me.ID)
	if err != nil {
		internalError(w, r, "list my enquiries", err)
		return
	}
	if enquiries == nil {
		enquiries = []models.Enquiry{}
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, enquiries)
		return
	}
	renderPage(w, r, http.StatusOK, "customer_enquiries", pageData{
		Title: "My enquiries",
		Data:  enquiries,
		Form:  validation.EnquiryForm{CarID: r.URL.Query().Get("car_id")},
	})
}

func (h *CustomerHandler) CreateEnquiry(w http.ResponseWriter, r *http.Request) {
	var form validation.EnquiryForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := validation.Struct(form); err != nil {
		h.enquiryInvalid(w, r, form, err)
		return
	}

	e := &models.Enquiry{CustomerID: statusFrom(r).Profile.ID, Subject: form.Subject, Message: form.Message}
	if form.CarID != "" {
		car, err := h.cars.GetCar(r.Context(), form.CarID)
		if err != nil {
			internalError(w, r, "get car", err)
			return
		}
		if car == nil {
			h.enquiryInvalid(w, r, form, &validation.ValidationError{Fields: map[string]string{"car_id": "unknown car"}})
			return
		}
		e.CarID = &car.ID
	}
	if _, err := h.enquiries.CreateEnquiry(r.Context(), e); err != nil {
		internalError(w, r, "create enquiry", err)
		return
	}
	done(w, r, http.StatusCreated, e, "/customer/enquiries", "Enquiry sent")
}

func (h *CustomerHandler) enquiryInvalid(w http.ResponseWriter, r *http.Request, form validation.EnquiryForm, err error) {
	var verr *validation.ValidationError
	if !errors.As(err, &verr) {
		internalError(w, r, "validate enquiry", err)
		return
	}
	data := pageData{Title: "My enquiries", Form: form, Error: "Please correct the highlighted fields"}
	if !wantsJSON(r) {
		if list, lerr := h.enquiries.ListEnquiriesByCustomer(r.Context(), statusFrom(r).Profile.ID); lerr == nil {
			data.Data = list
		}
	}
	invalid(w, r, verr, "customer_enquiries", data)
}

func (h *CustomerHandler) Profile(w http.ResponseWriter, r *http.Request) {
	st := statusFrom(r)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, st.Profile)
		return
	}
	renderPage(w, r, http.StatusOK, "customer_profile", pageData{
		Title: "My profile",
		Data:  st.Profile,
		Form:  validation.ProfileForm{FullName: st.Profile.FullName, Mobile: st.Profile.Mobile},
	})
}

// UpdateProfile changes the caller's name and mobile. The role is never
// writable here.
func (h *CustomerHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var form validation.ProfileForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	st := statusFrom(r)
	if err := validation.Struct(form); err != nil {
		var verr *validation.ValidationError
		if !errors.As(err, &verr) {
			internalError(w, r, "validate profile", err)
			return
		}
		invalid(w, r, verr, "customer_profile", pageData{Title: "My profile", Data: st.Profile, Form: form})
		return
	}

	if err := h.profiles.UpdateContact(r.Context(), st.Profile.ID, form.FullName, form.Mobile); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fail(w, r, http.StatusNotFound, "Profile not found")
			return
		}
		internalError(w, r, "update profile", err)
		return
	}
	h.resolver.Invalidate(r.Context(), st.Profile.ID)

	updated := st.Profile
	updated.FullName, updated.Mobile = form.FullName, form.Mobile
	done(w, r, http.StatusOK, updated, "/customer/profile", "Profile updated")
}
