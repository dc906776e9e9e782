package validate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"quill/pkg/httpx"
	"quill/pkg/sanitize"
)

type contextKey string

const bodyContextKey contextKey = "quill.validated"

// Body decodes the JSON request body and applies the schema. Handlers below
// this middleware only ever see the accepted, sanitized map from FromContext.
func Body(schema Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var input map[string]any
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				httpx.WriteError(w, r, httpx.NewError(http.StatusBadRequest, "invalid json body"))
				return
			}
			clean, fieldErrs := schema.Apply(input)
			if len(fieldErrs) > 0 {
				httpx.WriteError(w, r, httpx.ValidationError("validation failed", fieldErrs))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyContextKey, clean)))
		})
	}
}

// FromContext returns the accepted body for the current request.
func FromContext(ctx context.Context) map[string]any {
	m, _ := ctx.Value(bodyContextKey).(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func Str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func StrOK(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func Strs(m map[string]any, key string) []string {
	s, _ := m[key].([]string)
	return s
}

func BoolVal(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Page normalizes a page query parameter defensively: missing, non-numeric,
// or non-positive values default to 1 rather than failing.
func Page(values url.Values) int {
	raw := strings.TrimSpace(values.Get("page"))
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Search normalizes a free-text filter: trimmed and text-sanitized, never
// rejected, since it feeds a substring query and not executable content.
func Search(values url.Values) string {
	return strings.TrimSpace(sanitize.TextString(values.Get("search")))
}
