package api

import (
	"log/slog"
	"net/http"

	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// RecentCars is how many cars the landing page shows.
const RecentCars = 6

type PublicHandler struct {
	cars repository.CarRepo
}

func NewPublicHandler(cars repository.CarRepo) *PublicHandler {
	return &PublicHandler{cars: cars}
}

// Landing shows the newest available cars. A failed read still renders the
// page, without cars.
func (h *PublicHandler) Landing(w http.ResponseWriter, r *http.Request) {
	cars, err := h.cars.ListAvailableCars(r.Context(), RecentCars)
	data := pageData{Title: "South Wheels"}
	if err != nil {
		logger.Error("list recent cars", slog.Any("err", err))
		data.Error = "Cars could not be loaded right now"
	}
	if cars == nil {
		cars = []models.Car{}
	}
	data.Data = cars
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, cars)
		return
	}
	renderPage(w, r, http.StatusOK, "landing", data)
}

// Cars lists every available car.
func (h *PublicHandler) Cars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.cars.ListAvailableCars(r.Context(), 0)
	if err != nil {
		internalError(w, r, "list available cars", err)
		return
	}
	if cars == nil {
		cars = []models.Car{}
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, cars)
		return
	}
	renderPage(w, r, http.StatusOK, "cars", pageData{Title: "Available cars", Data: cars})
}
