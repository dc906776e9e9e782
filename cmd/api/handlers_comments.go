package main

import (
	"net/http"

	"quill/pkg/httpx"
	"quill/pkg/oid"
	"quill/pkg/validate"
)

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID := oid.Param(r, "id")
	post, err := s.Posts.Get(r.Context(), postID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if post == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "post not found"))
		return
	}
	comments, err := s.Comments.ListByPost(r.Context(), postID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	postID := oid.Param(r, "id")
	post, err := s.Posts.Get(r.Context(), postID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if post == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "post not found"))
		return
	}

	body := validate.FromContext(r.Context())
	comment, err := s.Comments.Create(r.Context(), postID, oid.Normalize(p.ID), validate.Str(body, "body"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	comment, err := s.Comments.Get(r.Context(), oid.Param(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if comment == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "comment not found"))
		return
	}
	if !canModify(p, comment.AuthorID) {
		httpx.WriteError(w, r, httpx.NewError(http.StatusForbidden, "not the resource owner or an admin"))
		return
	}

	if _, err := s.Comments.Delete(r.Context(), comment.ID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}
