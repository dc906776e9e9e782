package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"quill/pkg/models"
	"quill/pkg/oid"
)

type Comments struct {
	DB DB
}

func (c *Comments) Create(ctx context.Context, postID, authorID, body string) (*models.Comment, error) {
	comment := &models.Comment{
		ID:        oid.New().String(),
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err := c.DB.Exec(ctx, `
		INSERT INTO comments (id, post_id, author_id, body, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, comment.ID, comment.PostID, comment.AuthorID, comment.Body, comment.CreatedAt)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (c *Comments) Get(ctx context.Context, id string) (*models.Comment, error) {
	row := c.DB.QueryRow(ctx, `
		SELECT id, post_id, author_id, body, created_at FROM comments WHERE id=$1
	`, id)
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Body, &comment.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Comments) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := c.DB.Query(ctx, `
		SELECT id, post_id, author_id, body, created_at
		FROM comments WHERE post_id=$1 ORDER BY created_at
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Comment{}
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, comment)
	}
	return out, rows.Err()
}

func (c *Comments) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := c.DB.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
