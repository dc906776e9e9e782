package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"quill/pkg/oid"
)

func TestCommentLifecycle(t *testing.T) {
	api := newTestAPI(t)
	author, authorTok := api.addUser(t, "Ada", false)
	_, otherTok := api.addUser(t, "Eve", false)
	_, adminTok := api.addUser(t, "Root", true)

	postID := oid.New().String()
	api.posts.add(postFixture(postID, author.ID))

	rec := api.do(t, http.MethodPost, "/v1/posts/"+postID+"/comments", authorTok, map[string]any{
		"body": "  nice <script>x()</script> post  ",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   string `json:"id"`
		Body string `json:"body"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Body != "nice  post" {
		t.Fatalf("body reached storage unsanitized: %q", created.Body)
	}

	rec = api.do(t, http.MethodGet, "/v1/posts/"+postID+"/comments", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var listing struct {
		Comments []struct{ ID string } `json:"comments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(listing.Comments))
	}

	rec = api.do(t, http.MethodDelete, "/v1/comments/"+created.ID, otherTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger delete status %d", rec.Code)
	}
	if b := decodeErr(t, rec); b.Message != "not the resource owner or an admin" {
		t.Fatalf("message %q", b.Message)
	}

	rec = api.do(t, http.MethodDelete, "/v1/comments/"+created.ID, adminTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete status %d", rec.Code)
	}

	rec = api.do(t, http.MethodDelete, "/v1/comments/"+created.ID, adminTok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", rec.Code)
	}
}

func TestCommentOnMissingPost(t *testing.T) {
	api := newTestAPI(t)
	_, tok := api.addUser(t, "Ada", false)

	rec := api.do(t, http.MethodPost, "/v1/posts/"+oid.New().String()+"/comments", tok, map[string]any{"body": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	if b := decodeErr(t, rec); b.Message != "post not found" {
		t.Fatalf("message %q", b.Message)
	}

	rec = api.do(t, http.MethodGet, "/v1/posts/"+oid.New().String()+"/comments", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("list status %d", rec.Code)
	}
}
