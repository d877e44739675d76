package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/southwheels/internal/auth"
	"github.com/garnizeh/southwheels/internal/router"
	"github.com/garnizeh/southwheels/internal/session"
	"github.com/garnizeh/southwheels/internal/validation"
	"github.com/garnizeh/southwheels/pkg/models"
)

type AuthHandler struct {
	gateway      *auth.Gateway
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(gw *auth.Gateway, cookieSecure bool) *AuthHandler {
	return &AuthHandler{gateway: gw, cookieSecure: cookieSecure}
}

// authForm echoes non-secret input back into the auth page.
type authForm struct {
	Tab      string
	Email    string
	FullName string
	Mobile   string
}

type authResponse struct {
	Token    string          `json:"token"`
	Identity models.Identity `json:"identity"`
	Role     string          `json:"role"`
	View     string          `json:"view"`
}

type sessionResponse struct {
	State    string           `json:"state"`
	View     string           `json:"view"`
	Identity *models.Identity `json:"identity,omitempty"`
	Profile  *models.Profile  `json:"profile,omitempty"`
}

func tabOf(r *http.Request) string {
	tab := r.FormValue("tab")
	switch tab {
	case "admin", "register":
		return tab
	default:
		return "signin"
	}
}

// Page renders the auth screen. Authenticated sessions go to their dashboard.
func (h *AuthHandler) Page(w http.ResponseWriter, r *http.Request) {
	if statusFrom(r).State == router.Authenticated {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	renderPage(w, r, http.StatusOK, "auth", pageData{
		Title: "Sign in",
		Form:  authForm{Tab: tabOf(r)},
		Error: r.URL.Query().Get("error"),
	})
}

// Session reports the routing state of the caller.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	st := statusFrom(r)
	resp := sessionResponse{State: st.State.String(), View: st.View().String()}
	if st.State == router.Authenticated {
		resp.Identity, resp.Profile = &st.Identity, &st.Profile
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var form validation.SignInForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	page := pageData{Title: "Sign in", Form: authForm{Tab: tabOf(r), Email: form.Email}}
	if !h.validate(w, r, form, page) {
		return
	}

	store, ok := requestSession(w, r)
	if !ok {
		return
	}
	if _, err := h.gateway.SignIn(r.Context(), store, form.Email, form.Password); err != nil {
		h.authFailed(w, r, err, page)
		return
	}
	h.established(w, r, store, http.StatusOK, page)
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var form validation.RegisterForm
	if err := decodeInput(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	page := pageData{Title: "Create account", Form: authForm{
		Tab: "register", Email: form.Email, FullName: form.FullName, Mobile: form.Mobile,
	}}
	// nothing reaches the gateway unless the form is valid
	if !h.validate(w, r, form, page) {
		return
	}

	store, ok := requestSession(w, r)
	if !ok {
		return
	}
	if _, err := h.gateway.SignUp(r.Context(), store, form.Email, form.Password, form.FullName, form.Mobile); err != nil {
		h.authFailed(w, r, err, page)
		return
	}
	h.established(w, r, store, http.StatusCreated, page)
}

// SignOut revokes the request's token and clears the session cookie.
// The local session is cleared even when revocation fails.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	store, ok := requestSession(w, r)
	if !ok {
		return
	}
	token, _ := tokenFromRequest(r)
	if err := h.gateway.SignOut(r.Context(), store, token); err != nil {
		logger.Warn("sign out", slog.Any("err", err))
	}
	clearSessionCookie(w)
	done(w, r, http.StatusOK, map[string]string{"status": "signed_out"}, "/", "")
}

// requestSession returns the store SessionMiddleware attached to r.
func requestSession(w http.ResponseWriter, r *http.Request) (*session.Store, bool) {
	store := session.FromContext(r.Context())
	if store == nil || routerFrom(r.Context()) == nil {
		internalError(w, r, "auth", errors.New("request has no session"))
		return nil, false
	}
	return store, true
}

func (h *AuthHandler) validate(w http.ResponseWriter, r *http.Request, form any, page pageData) bool {
	err := validation.Struct(form)
	if err == nil {
		return true
	}
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		invalid(w, r, verr, "auth", page)
		return false
	}
	internalError(w, r, "validate form", err)
	return false
}

func (h *AuthHandler) authFailed(w http.ResponseWriter, r *http.Request, err error, page pageData) {
	var aerr *auth.AuthError
	if !errors.As(err, &aerr) {
		internalError(w, r, "auth", err)
		return
	}
	status := http.StatusUnauthorized
	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrBackendUnavailable):
		status = http.StatusServiceUnavailable
	}
	if wantsJSON(r) {
		writeError(w, status, aerr.Message)
		return
	}
	page.Error = aerr.Message
	renderPage(w, r, status, "auth", page)
}

// established resolves the profile of the session the gateway just wrote.
// Without a usable profile the session is signed out again and never
// reaches a dashboard.
func (h *AuthHandler) established(w http.ResponseWriter, r *http.Request, store *session.Store, status int, page pageData) {
	rt := routerFrom(r.Context())
	token := store.Token()
	st := rt.Resolve(r.Context())
	if st.State != router.Authenticated {
		logger.Warn("signed in without a usable profile",
			slog.String("identity", st.Identity.ID), slog.Any("err", st.Err))
		if err := h.gateway.SignOut(r.Context(), store, token); err != nil {
			logger.Warn("sign out", slog.Any("err", err))
		}
		msg := "Your profile could not be loaded, please try again"
		if wantsJSON(r) {
			writeError(w, http.StatusServiceUnavailable, msg)
			return
		}
		page.Error = msg
		renderPage(w, r, http.StatusServiceUnavailable, "auth", page)
		return
	}

	setSessionCookie(w, token, h.gateway.TokenDuration(), h.cookieSecure)
	if wantsJSON(r) {
		writeJSON(w, status, authResponse{
			Token:    token,
			Identity: st.Identity,
			Role:     st.Role().String(),
			View:     st.View().String(),
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
