package oid

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quill/pkg/httpx"
)

// RequireValid guards a path parameter: a malformed id short-circuits with a
// 400 before any handler, authorization check, or store lookup runs.
func RequireValid(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsValid(chi.URLParam(r, param)) {
				httpx.WriteError(w, r, httpx.InvalidParam(param))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Param returns the named path parameter in canonical form. Only meaningful
// below a RequireValid for the same parameter.
func Param(r *http.Request, param string) string {
	return Normalize(chi.URLParam(r, param))
}
