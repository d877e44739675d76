package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/garnizeh/southwheels/internal/validation"
)

var errBadRequest = errors.New("malformed request")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// wantsJSON reports whether the response should be JSON rather than a page.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/v1/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail answers with an error in the representation the client asked for.
func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if wantsJSON(r) {
		writeError(w, status, msg)
		return
	}
	renderPage(w, r, status, "error", pageData{Title: http.StatusText(status), Error: msg})
}

// internalError logs err and answers with a generic 500.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.Error(msg, slog.String("path", r.URL.Path), slog.Any("err", err))
	fail(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
}

// done finishes a successful write: JSON clients get v, browsers are sent to redirect.
func done(w http.ResponseWriter, r *http.Request, status int, v any, redirect, flash string) {
	if wantsJSON(r) {
		writeJSON(w, status, v)
		return
	}
	if flash != "" {
		redirect += "?" + url.Values{"ok": {flash}}.Encode()
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// decodeInput fills dst from a JSON body or from form values keyed by the
// `form` struct tag. Only string and bool fields are read from forms.
func decodeInput(r *http.Request, dst any) error {
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		raw := strings.TrimSpace(r.PostFormValue(name))
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			f.SetString(raw)
		case reflect.Bool:
			f.SetBool(raw == "on" || cast.ToBool(raw))
		}
	}
	return nil
}

// invalid answers a failed validation with 422 and the field messages.
func invalid(w http.ResponseWriter, r *http.Request, verr *validation.ValidationError, page string, data pageData) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}
	data.Fields = verr.Fields
	renderPage(w, r, http.StatusUnprocessableEntity, page, data)
}
