package main

import (
	"errors"
	"net/http"

	"quill/pkg/httpx"
	"quill/pkg/oid"
	"quill/pkg/store"
	"quill/pkg/validate"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.Categories.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	body := validate.FromContext(r.Context())

	category, err := s.Categories.Create(r.Context(), validate.Str(body, "name"))
	if err != nil {
		if errors.Is(err, store.ErrCategoryExists) {
			httpx.WriteError(w, r, httpx.NewError(http.StatusConflict, "category already exists"))
			return
		}
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.Categories.Delete(r.Context(), oid.Param(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !deleted {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "category not found"))
		return
	}
	s.invalidatePostCache(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}
