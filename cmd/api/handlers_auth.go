package main

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"quill/pkg/httpx"
	"quill/pkg/models"
	"quill/pkg/store"
	"quill/pkg/validate"
)

const tokenCookie = "token"

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body := validate.FromContext(r.Context())

	hash, err := bcrypt.GenerateFromPassword([]byte(validate.Str(body, "password")), bcrypt.DefaultCost)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := s.Users.Create(r.Context(), validate.Str(body, "name"), validate.Str(body, "email"), string(hash))
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			httpx.WriteError(w, r, httpx.NewError(http.StatusConflict, "email already registered"))
			return
		}
		httpx.WriteError(w, r, err)
		return
	}

	s.issueSession(w, r, user, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body := validate.FromContext(r.Context())

	user, err := s.Users.FindByEmail(r.Context(), validate.Str(body, "email"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if user == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusUnauthorized, "invalid email or password"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(validate.Str(body, "password"))) != nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusUnauthorized, "invalid email or password"))
		return
	}

	s.issueSession(w, r, user, http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	tok, err := s.Codec.Issue(user.ID, user.Admin)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.Codec.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, status, map[string]any{"user": user, "token": tok})
}
