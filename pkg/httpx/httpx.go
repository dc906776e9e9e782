package httpx

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// FieldError points at one invalid input field. Path is dot-joined through
// nested structures, with numeric indices for array elements.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the single failure shape every pipeline stage produces. Status is
// always a 4xx/5xx; Fields is set only for validation-class failures.
type Error struct {
	Status  int
	Message string
	Fields  []FieldError
	stack   string
}

func (e *Error) Error() string { return e.Message }

func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// ValidationError carries the full field-error list under a 400.
func ValidationError(message string, fields []FieldError) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Fields: fields}
}

// InvalidParam is the resource-id guard failure for one path parameter.
func InvalidParam(name string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Message: "invalid parameter",
		Fields:  []FieldError{{Path: name, Message: "Invalid " + name}},
	}
}

var production atomic.Bool

// SetProduction controls whether error responses include stack traces.
// Called once at startup before serving.
func SetProduction(v bool) { production.Store(v) }

type errorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Stack   string       `json:"stack,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError is the terminal error surface: every stage failure funnels here
// and nowhere else. Untyped errors become opaque 500s.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	he, ok := err.(*Error)
	if !ok {
		he = &Error{Status: http.StatusInternalServerError, Message: "internal server error"}
	}
	status := he.Status
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	body := errorBody{Message: he.Message, Errors: he.Fields}
	if !production.Load() {
		body.Stack = he.stack
	}
	WriteJSON(w, status, body)
}

// NotFoundHandler routes unmatched paths through the same error surface as
// explicit pipeline failures.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, NewError(http.StatusNotFound, "not found: "+r.URL.Path))
}

func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, NewError(http.StatusMethodNotAllowed, "method not allowed"))
}

// Recoverer maps downstream panics to a 500 through the error surface,
// attaching the stack for non-production builds.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				WriteError(w, r, &Error{
					Status:  http.StatusInternalServerError,
					Message: "internal server error",
					stack:   string(debug.Stack()),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

const RequestIDHeader = "X-Request-Id"

// RequestIDMiddleware tags each request with a UUID, honoring an inbound id.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// MaxBodyMiddleware caps request body size before any decoding happens.
func MaxBodyMiddleware(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 1 << 20
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware applies baseline hardening headers to API responses.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware enforces an explicit origin allowlist from comma-separated origins.
func CORSMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	allowAll := false
	for _, part := range strings.Split(allowedOrigins, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !allowAll {
				if _, ok := allowed[origin]; !ok {
					if r.Method == http.MethodOptions && strings.TrimSpace(r.Header.Get("Access-Control-Request-Method")) != "" {
						WriteError(w, r, NewError(http.StatusForbidden, "origin not allowed"))
						return
					}
					next.ServeHTTP(w, r)
					return
				}
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
			reqHeaders := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers"))
			if reqHeaders == "" {
				reqHeaders = "Authorization,Content-Type,X-Requested-With"
			}
			h.Set("Access-Control-Allow-Headers", reqHeaders)
			h.Set("Access-Control-Max-Age", "600")
			if r.Method == http.MethodOptions && strings.TrimSpace(r.Header.Get("Access-Control-Request-Method")) != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
