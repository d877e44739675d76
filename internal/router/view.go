package router

import "github.com/garnizeh/southwheels/pkg/models"

// View is what the session renders.
type View int

const (
	ViewLoading View = iota
	ViewAuth
	ViewAdminDashboard
	ViewCustomerDashboard
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewAuth:
		return "auth"
	case ViewAdminDashboard:
		return "admin_dashboard"
	case ViewCustomerDashboard:
		return "customer_dashboard"
	default:
		return "invalid"
	}
}

// View maps the status to what gets rendered. Only Authenticated reaches a
// dashboard, and the dashboard is chosen by an exhaustive match on the role.
func (s Status) View() View {
	switch s.State {
	case Unauthenticated:
		return ViewAuth
	case Authenticated:
		return models.MatchRole(s.Profile.Role,
			func() View { return ViewAdminDashboard },
			func() View { return ViewCustomerDashboard },
		)
	default:
		return ViewLoading
	}
}
