package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/southwheels/api"
	"github.com/garnizeh/southwheels/internal/auth"
	"github.com/garnizeh/southwheels/internal/dashboard"
	"github.com/garnizeh/southwheels/internal/profile"
	"github.com/garnizeh/southwheels/internal/session"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository/mock"
)

const testSecret = "testsecret"

func TestMain(m *testing.M) {
	api.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// env is a full router over in-memory repositories.
type env struct {
	m  *mock.Mocks
	gw *auth.Gateway
	h  http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	m := mock.NewMocks()
	gw := auth.New(m, nil, testSecret, time.Hour, nil)
	svc := api.Services{
		Cars:       m,
		Bookings:   m,
		Enquiries:  m,
		Profiles:   m,
		Gateway:    gw,
		Resolver:   profile.NewResolver(m, nil, 0, nil),
		Dashboards: dashboard.NewLoader(m, m, m, m, dashboard.Options{}, nil),
	}
	return &env{m: m, gw: gw, h: api.NewRouter(svc, api.Options{Version: "test", Timeout: 5 * time.Second})}
}

// addUser seeds an identity and returns it with a valid session token.
func (e *env) addUser(t *testing.T, email, fullName string, role models.Role) (models.Identity, string) {
	t.Helper()
	const password = "s3cret!"
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	id := e.m.AddIdentity(email, hash, fullName, role)
	store := session.New()
	if _, err := e.gw.SignIn(context.Background(), store, email, password); err != nil {
		t.Fatalf("SignIn(%s): %v", email, err)
	}
	return id, store.Token()
}

func (e *env) addCar(t *testing.T, name string, price, advance int64) *models.Car {
	t.Helper()
	c := &models.Car{
		Name: name, Brand: "Maruti Suzuki", ModelYear: 2020, Price: price, AdvanceAmount: advance,
		KmDriven: 10000, FuelType: "petrol", Location: "Hyderabad",
	}
	if _, err := e.m.CreateCar(context.Background(), c); err != nil {
		t.Fatalf("CreateCar: %v", err)
	}
	return c
}

// do sends body as JSON, or as a form when it is url.Values.
func (e *env) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		rdr = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	case string:
		rdr = strings.NewReader(b)
		contentType = "application/json"
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
		contentType = "application/json"
	}
	req := httptest.NewRequest(method, path, rdr)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v; body %s", v, err, w.Body.String())
	}
	return v
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == api.SessionCookie {
			return c
		}
	}
	return nil
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// newPageRequest builds a browser request carrying an optional session cookie.
func newPageRequest(method, path string, c *http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Accept", "text/html")
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func serve(e *env, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

var csrfInput = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

// submit loads page like a browser, then posts form to action with the
// token and cookie that page handed out.
func (e *env) submit(t *testing.T, page, action string, form url.Values, c *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	w := serve(e, newPageRequest(http.MethodGet, page, c))
	m := csrfInput.FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatalf("no form token on %s (status %d)", page, w.Code)
	}

	values := url.Values{}
	for k, v := range form {
		values[k] = v
	}
	values.Set("gorilla.csrf.Token", m[1])

	req := httptest.NewRequest(http.MethodPost, action, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	if c != nil {
		req.AddCookie(c)
	}
	for _, pc := range w.Result().Cookies() {
		if pc.Name != api.SessionCookie {
			req.AddCookie(pc)
		}
	}
	return serve(e, req)
}
