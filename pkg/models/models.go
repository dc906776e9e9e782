// Package models holds the wire and storage shapes shared across the service.
package models

import "time"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	Bio   string `json:"bio,omitempty"`

	// PasswordHash is never serialized and is populated only by the
	// credential lookup used at login.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Post struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	CategoryID string    `json:"categoryId,omitempty"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags,omitempty"`
	Likes      int       `json:"likes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostPage is one page of the public post listing.
type PostPage struct {
	Posts []Post `json:"posts"`
	Page  int    `json:"page"`
	Total int    `json:"total"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []User `json:"users"`
	Page  int    `json:"page"`
	Total int    `json:"total"`
}
