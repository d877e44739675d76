package api

import (
	"net/http"

	"github.com/garnizeh/southwheels/internal/dashboard"
	"github.com/garnizeh/southwheels/internal/router"
)

type DashboardHandler struct {
	loader *dashboard.Loader
}

func NewDashboardHandler(loader *dashboard.Loader) *DashboardHandler {
	return &DashboardHandler{loader: loader}
}

// Dashboard renders what the session's view calls for: the auth screen,
// the loading view, or the dashboard of the resolved role.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	st := statusFrom(r)
	switch st.View() {
	case router.ViewAuth:
		if wantsJSON(r) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		http.Redirect(w, r, "/auth", http.StatusSeeOther)

	case router.ViewAdminDashboard:
		d, err := h.loader.Admin(r.Context(), st.Profile)
		if err != nil {
			internalError(w, r, "load admin dashboard", err)
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, d)
			return
		}
		renderPage(w, r, http.StatusOK, "admin_dashboard", pageData{Title: "Admin dashboard", Data: d})

	case router.ViewCustomerDashboard:
		d, err := h.loader.Customer(r.Context(), st.Profile)
		if err != nil {
			internalError(w, r, "load customer dashboard", err)
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, d)
			return
		}
		renderPage(w, r, http.StatusOK, "customer_dashboard", pageData{Title: "My dashboard", Data: d})

	default:
		w.Header().Set("Retry-After", "1")
		if wantsJSON(r) {
			writeJSON(w, http.StatusAccepted, sessionResponse{State: st.State.String(), View: router.ViewLoading.String()})
			return
		}
		renderPage(w, r, http.StatusAccepted, "loading", pageData{Title: "Loading"})
	}
}
