package main

import (
	"context"
	"encoding/json"
	"net/http"

	"quill/pkg/httpx"
	"quill/pkg/models"
	"quill/pkg/oid"
	"quill/pkg/store"
	"quill/pkg/validate"
)

const postListCacheKey = "quill:posts:front"

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PostFilter{
		Page:   validate.Page(q),
		Search: validate.Search(q),
	}
	if raw := q.Get("category"); raw != "" {
		if !oid.IsValid(raw) {
			httpx.WriteError(w, r, httpx.InvalidParam("category"))
			return
		}
		filter.CategoryID = oid.Normalize(raw)
	}

	// Only the unfiltered front page is hot enough to cache.
	cacheable := s.Cache != nil && filter.Page == 1 && filter.Search == "" && filter.CategoryID == ""
	if cacheable {
		if raw, err := s.Cache.Get(r.Context(), postListCacheKey); err == nil && raw != "" {
			var page models.PostPage
			if json.Unmarshal([]byte(raw), &page) == nil {
				httpx.WriteJSON(w, http.StatusOK, page)
				return
			}
		}
	}

	page, err := s.Posts.List(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if cacheable {
		if raw, err := json.Marshal(page); err == nil {
			_ = s.Cache.Set(r.Context(), postListCacheKey, string(raw), s.PostCacheTTL)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.Posts.Get(r.Context(), oid.Param(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if post == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "post not found"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	body := validate.FromContext(r.Context())

	in := store.NewPost{
		AuthorID: oid.Normalize(p.ID),
		Title:    validate.Str(body, "title"),
		Content:  validate.Str(body, "content"),
		Tags:     validate.Strs(body, "tags"),
	}
	if v, ok := validate.StrOK(body, "categoryId"); ok {
		in.CategoryID = v
	}

	post, err := s.Posts.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	s.invalidatePostCache(r.Context())
	httpx.WriteJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	post, err := s.Posts.Get(r.Context(), oid.Param(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if post == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "post not found"))
		return
	}
	if !canModify(p, post.AuthorID) {
		httpx.WriteError(w, r, httpx.NewError(http.StatusForbidden, "not the resource owner or an admin"))
		return
	}

	body := validate.FromContext(r.Context())
	var patch store.PostPatch
	if v, ok := validate.StrOK(body, "title"); ok {
		patch.Title = &v
	}
	if v, ok := validate.StrOK(body, "content"); ok {
		patch.Content = &v
	}
	if v, ok := validate.StrOK(body, "categoryId"); ok {
		patch.CategoryID = &v
	}
	if _, ok := body["tags"]; ok {
		patch.Tags = validate.Strs(body, "tags")
	}

	updated, err := s.Posts.Update(r.Context(), post.ID, patch)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	s.invalidatePostCache(r.Context())
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	post, err := s.Posts.Get(r.Context(), oid.Param(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if post == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "post not found"))
		return
	}
	if !canModify(p, post.AuthorID) {
		httpx.WriteError(w, r, httpx.NewError(http.StatusForbidden, "not the resource owner or an admin"))
		return
	}

	if _, err := s.Posts.Delete(r.Context(), post.ID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	s.invalidatePostCache(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	id := oid.Param(r, "id")
	post, err := s.Posts.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if post == nil {
		httpx.WriteError(w, r, httpx.NewError(http.StatusNotFound, "post not found"))
		return
	}

	likes, liked, err := s.Posts.ToggleLike(r.Context(), id, oid.Normalize(p.ID))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	s.invalidatePostCache(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"likes": likes, "liked": liked})
}

func (s *Server) invalidatePostCache(ctx context.Context) {
	if s.Cache != nil {
		_ = s.Cache.Del(ctx, postListCacheKey)
	}
}
