package api

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/garnizeh/southwheels/internal/router"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is what every page template receives.
type pageData struct {
	Title    string
	SignedIn bool
	Role     string
	Name     string
	Flash    string
	Error    string
	Fields   map[string]string
	Form     any
	Data     any

	// CSRF is the hidden token input every page form carries.
	CSRF template.HTML
}

var funcs = template.FuncMap{
	"money": money,
	"date": func(ms int64) string {
		if ms == 0 {
			return "-"
		}
		return time.UnixMilli(ms).UTC().Format("02 Jan 2006")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"label": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"join": strings.Join,
	"list": func(items ...string) []string { return items },
	"has":  slices.Contains[[]string, string],
}

var pages = mustParsePages(
	"landing", "cars", "auth", "loading", "error",
	"admin_dashboard", "admin_cars", "admin_car", "admin_customers", "admin_bookings", "admin_enquiries",
	"customer_dashboard", "customer_bookings", "customer_enquiries", "customer_profile",
)

// mustParsePages pairs every page with the shared layout.
func mustParsePages(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return out
}

// money formats rupees with Indian digit grouping.
func money(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		s = strings.Join(parts, ",") + "," + tail
	}
	if neg {
		s = "-" + s
	}
	return "₹" + s
}

// renderPage executes a page into a buffer so a template error never
// leaves a half-written response.
func renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := pages[name]
	if !ok {
		logger.Error("unknown page", slog.String("page", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	st := statusFrom(r)
	if st.State == router.Authenticated {
		data.SignedIn = true
		data.Role = st.Role().String()
		data.Name = st.Profile.FullName
	}
	if data.Flash == "" {
		data.Flash = r.URL.Query().Get("ok")
	}
	data.CSRF = csrf.TemplateField(r)

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logger.Error("render page", slog.String("page", name), slog.Any("err", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("write page", slog.String("page", name), slog.Any("err", err))
	}
}
