package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quill/pkg/auth"
	"quill/pkg/httpx"
	"quill/pkg/oid"
	"quill/pkg/ratelimit"
	"quill/pkg/telemetry"
	"quill/pkg/validate"
)

func (s *Server) routes(corsOrigins string, maxBody int64) http.Handler {
	r := chi.NewRouter()
	r.Use(httpx.RequestIDMiddleware)
	r.Use(httpx.CORSMiddleware(corsOrigins))
	r.Use(httpx.SecurityHeadersMiddleware)
	r.Use(telemetry.HTTPMiddleware("api"))
	r.Use(httpx.MaxBodyMiddleware(maxBody))
	r.Use(httpx.Recoverer)
	r.NotFound(httpx.NotFoundHandler)
	r.MethodNotAllowed(httpx.MethodNotAllowedHandler)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			authLimit := ratelimit.Middleware(s.RateLimiter, "auth", s.AuthRateLimit)
			r.With(authLimit, validate.Body(registerSchema)).Post("/register", s.handleRegister)
			r.With(authLimit, validate.Body(loginSchema)).Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(s.Verifier.Middleware, auth.RequireAdmin()).Get("/", s.handleListUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(oid.RequireValid("id"))
				r.Use(s.Verifier.Middleware)
				r.Get("/", s.handleGetUser)
				r.With(auth.RequireSelf("id"), validate.Body(profileSchema)).Patch("/", s.handleUpdateUser)
				r.With(auth.RequireSelfOrAdmin("id")).Delete("/", s.handleDeleteUser)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.With(s.Verifier.Middleware, validate.Body(postSchema)).Post("/", s.handleCreatePost)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(oid.RequireValid("id"))
				r.Get("/", s.handleGetPost)
				r.With(s.Verifier.Middleware, validate.Body(postPatchSchema)).Patch("/", s.handleUpdatePost)
				r.With(s.Verifier.Middleware).Delete("/", s.handleDeletePost)
				r.With(s.Verifier.Middleware).Put("/like", s.handleLikePost)
				r.Get("/comments", s.handleListComments)
				r.With(s.Verifier.Middleware, validate.Body(commentSchema)).Post("/comments", s.handleCreateComment)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.With(s.Verifier.Middleware, auth.RequireAdmin(), validate.Body(categorySchema)).Post("/", s.handleCreateCategory)
			r.With(oid.RequireValid("id"), s.Verifier.Middleware, auth.RequireAdmin()).Delete("/{id}", s.handleDeleteCategory)
		})

		r.With(oid.RequireValid("id"), s.Verifier.Middleware).Delete("/comments/{id}", s.handleDeleteComment)
	})

	return r
}
