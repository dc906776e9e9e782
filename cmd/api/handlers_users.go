package main

import (
	"net/http"

	"quill/pkg/httpx"
	"quill/pkg/oid"
	"quill/pkg/validate"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.Users.List(r.Context(), validate.Page(r.URL.Query()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.Users.FindUserByID(r.Context(), oid.Param(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if user == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "user not found"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	body := validate.FromContext(r.Context())

	var name, bio *string
	if v, ok := validate.StrOK(body, "name"); ok {
		name = &v
	}
	if v, ok := validate.StrOK(body, "bio"); ok {
		bio = &v
	}

	user, err := s.Users.Update(r.Context(), oid.Param(r, "id"), name, bio)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if user == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "user not found"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.Users.Delete(r.Context(), oid.Param(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !deleted {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "user not found"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
