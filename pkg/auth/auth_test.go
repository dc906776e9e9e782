package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"quill/pkg/models"
	"quill/pkg/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeUsers struct {
	users map[string]*models.User
	err   error
	calls int
}

func (f *fakeUsers) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func newVerifier(t *testing.T, users *fakeUsers) *Verifier {
	t.Helper()
	codec, err := token.NewCodec(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return &Verifier{Codec: codec, Users: users}
}

func okHandler(calls *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(200)
	}
}

func errMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Message
}

func TestMiddlewareNoToken(t *testing.T) {
	v := newVerifier(t, &fakeUsers{})
	calls := 0
	h := v.Middleware(okHandler(&calls))

	for _, header := range []string{"", "Basic abc", "Bearer", "bearertok"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rec, req)
		if rec.Code != 401 {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
		if msg := errMessage(t, rec); msg != "no token provided" {
			t.Fatalf("header %q: unexpected message %q", header, msg)
		}
	}
	if calls != 0 {
		t.Fatalf("handler must not run without a token")
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	users := &fakeUsers{}
	v := newVerifier(t, users)
	calls := 0
	h := v.Middleware(okHandler(&calls))

	otherCodec, _ := token.NewCodec(strings.Repeat("z", 32), time.Hour)
	forged, _ := otherCodec.Issue("507f1f77bcf86cd799439011", false)

	for _, tok := range []string{"garbage", forged} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		h.ServeHTTP(rec, req)
		if rec.Code != 401 {
			t.Fatalf("token %q: expected 401, got %d", tok, rec.Code)
		}
		if msg := errMessage(t, rec); msg != "invalid token" {
			t.Fatalf("unexpected message %q", msg)
		}
	}
	if users.calls != 0 {
		t.Fatalf("store must not be queried for invalid tokens")
	}
}

func TestMiddlewareSubjectDeleted(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{}}
	v := newVerifier(t, users)
	calls := 0
	h := v.Middleware(okHandler(&calls))

	tok, _ := v.Codec.Issue("507f1f77bcf86cd799439011", false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	if rec.Code != 404 {
		t.Fatalf("expected 404 for deleted subject, got %d", rec.Code)
	}
	if msg := errMessage(t, rec); msg != "account not found" {
		t.Fatalf("unexpected message %q", msg)
	}
	if calls != 0 {
		t.Fatalf("handler must not run for a deleted subject")
	}
}

func TestMiddlewareStoreError(t *testing.T) {
	users := &fakeUsers{err: errors.New("connection refused")}
	v := newVerifier(t, users)
	calls := 0
	h := v.Middleware(okHandler(&calls))

	tok, _ := v.Codec.Issue("507f1f77bcf86cd799439011", false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	if rec.Code != 500 {
		t.Fatalf("expected 500 for store failure, got %d", rec.Code)
	}
	if msg := errMessage(t, rec); msg != "internal server error" {
		t.Fatalf("store error leaked: %q", msg)
	}
}

func TestMiddlewareAttachesFreshPrincipal(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"507f1f77bcf86cd799439011": {ID: "507f1f77bcf86cd799439011", Name: "Ada", Email: "ada@example.com", Admin: true},
	}}
	v := newVerifier(t, users)

	var got Principal
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(200)
	}))

	// token says non-admin; the store record wins
	tok, _ := v.Codec.Issue("507f1f77bcf86cd799439011", false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !got.Admin || got.Name != "Ada" {
		t.Fatalf("principal not resolved from store: %+v", got)
	}
	if users.calls != 1 {
		t.Fatalf("expected exactly one store lookup, got %d", users.calls)
	}
}

func mountPredicate(mw func(http.Handler) http.Handler, p Principal, calls *int) http.Handler {
	r := chi.NewRouter()
	r.Route("/users/{id}", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(WithPrincipal(req.Context(), p)))
			})
		})
		r.Use(mw)
		r.Delete("/", okHandler(calls))
	})
	return r
}

func TestRequireAdmin(t *testing.T) {
	t.Run("admin_passes_any_resource", func(t *testing.T) {
		calls := 0
		h := mountPredicate(RequireAdmin(), Principal{ID: "aaaaaaaaaaaaaaaaaaaaaaaa", Admin: true}, &calls)
		for _, id := range []string{"507f1f77bcf86cd799439011", "bbbbbbbbbbbbbbbbbbbbbbbb"} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/"+id, nil))
			if rec.Code != 200 {
				t.Fatalf("id %s: expected 200, got %d", id, rec.Code)
			}
		}
		if calls != 2 {
			t.Fatalf("expected 2 handler calls, got %d", calls)
		}
	})

	t.Run("non_admin_forbidden", func(t *testing.T) {
		calls := 0
		h := mountPredicate(RequireAdmin(), Principal{ID: "aaaaaaaaaaaaaaaaaaaaaaaa"}, &calls)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/507f1f77bcf86cd799439011", nil))
		if rec.Code != 403 || calls != 0 {
			t.Fatalf("expected 403 and no handler call, got %d / %d", rec.Code, calls)
		}
	})
}

func TestRequireSelf(t *testing.T) {
	self := "507f1f77bcf86cd799439011"

	t.Run("matching_id_passes", func(t *testing.T) {
		calls := 0
		h := mountPredicate(RequireSelf("id"), Principal{ID: self}, &calls)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/"+self, nil))
		if rec.Code != 200 || calls != 1 {
			t.Fatalf("expected pass, got %d / %d", rec.Code, calls)
		}
	})

	t.Run("case_differs_still_passes", func(t *testing.T) {
		calls := 0
		h := mountPredicate(RequireSelf("id"), Principal{ID: strings.ToUpper(self)}, &calls)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/"+self, nil))
		if rec.Code != 200 {
			t.Fatalf("ids equal after normalization must pass, got %d", rec.Code)
		}
	})

	t.Run("other_id_forbidden", func(t *testing.T) {
		calls := 0
		h := mountPredicate(RequireSelf("id"), Principal{ID: self, Admin: true}, &calls)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/bbbbbbbbbbbbbbbbbbbbbbbb", nil))
		if rec.Code != 403 || calls != 0 {
			t.Fatalf("admin does not satisfy RequireSelf, got %d / %d", rec.Code, calls)
		}
	})
}

func TestRequireSelfOrAdmin(t *testing.T) {
	self := "507f1f77bcf86cd799439011"
	other := "bbbbbbbbbbbbbbbbbbbbbbbb"

	cases := []struct {
		name      string
		principal Principal
		target    string
		want      int
	}{
		{"self", Principal{ID: self}, self, 200},
		{"admin_other", Principal{ID: other, Admin: true}, self, 200},
		{"stranger", Principal{ID: other}, self, 403},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			h := mountPredicate(RequireSelfOrAdmin("id"), tc.principal, &calls)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/"+tc.target, nil))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestPredicateWithoutResolver(t *testing.T) {
	calls := 0
	r := chi.NewRouter()
	r.With(RequireAdmin()).Get("/x", okHandler(&calls))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != 401 || calls != 0 {
		t.Fatalf("expected 401 when no principal resolved, got %d / %d", rec.Code, calls)
	}
}
