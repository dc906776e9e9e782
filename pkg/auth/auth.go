// Package auth resolves request identity and hosts the authorization
// predicates composed into route middleware chains.
package auth

import (
	"context"
	"net/http"
	"strings"

	"quill/pkg/httpx"
	"quill/pkg/models"
	"quill/pkg/oid"
	"quill/pkg/token"
)

// Principal is the resolved identity attached to a request. It lives only for
// the request and is always re-fetched from the user store, never trusted
// from the token payload alone.
type Principal struct {
	ID    string
	Name  string
	Email string
	Admin bool
}

type contextKey string

const principalContextKey contextKey = "quill.principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey)
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// UserFinder is the resolver's only store dependency. Implementations must
// exclude the credential field from the returned projection.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// Verifier is the single trust boundary of the pipeline: everything
// downstream trusts the context principal only because it was freshly
// resolved here.
type Verifier struct {
	Codec *token.Codec
	Users UserFinder
}

// Middleware authenticates the request: Bearer header, codec verification,
// then a live store lookup of the subject.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			httpx.WriteError(w, r, httpx.NewError(http.StatusUnauthorized, "no token provided"))
			return
		}
		raw := strings.TrimSpace(header[len("Bearer "):])
		claim, err := v.Codec.Verify(raw)
		if err != nil {
			httpx.WriteError(w, r, httpx.NewError(http.StatusUnauthorized, "invalid token"))
			return
		}
		user, err := v.Users.FindUserByID(r.Context(), oid.Normalize(claim.SubjectID))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if user == nil {
			// 404, not 401: a deleted account is distinguishable from a
			// forged token.
			httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "account not found"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Admin: user.Admin,
		})))
	})
}

// RequireAdmin passes iff the resolved principal is an administrator.
func RequireAdmin() func(http.Handler) http.Handler {
	return requirePredicate(func(p Principal, r *http.Request) bool {
		return p.Admin
	}, "admin access required")
}

// RequireSelf passes iff the principal owns the resource named by the path
// parameter. Mount only below a RequireValid guard for the same parameter.
func RequireSelf(param string) func(http.Handler) http.Handler {
	return requirePredicate(func(p Principal, r *http.Request) bool {
		return isSelf(p, r, param)
	}, "not the resource owner")
}

// RequireSelfOrAdmin passes for the owner or any administrator.
func RequireSelfOrAdmin(param string) func(http.Handler) http.Handler {
	return requirePredicate(func(p Principal, r *http.Request) bool {
		return p.Admin || isSelf(p, r, param)
	}, "not the resource owner or an admin")
}

func isSelf(p Principal, r *http.Request, param string) bool {
	target := oid.Param(r, param)
	return target != "" && oid.Normalize(p.ID) == target
}

func requirePredicate(pass func(Principal, *http.Request) bool, denied string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, r, httpx.NewError(http.StatusUnauthorized, "no token provided"))
				return
			}
			if !pass(principal, r) {
				httpx.WriteError(w, r, httpx.NewError(http.StatusForbidden, denied))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
