package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"quill/pkg/models"
	"quill/pkg/oid"
)

type Posts struct {
	DB DB
}

const postsPerPage = 10

type PostFilter struct {
	Page       int
	Search     string
	CategoryID string
}

type NewPost struct {
	AuthorID   string
	CategoryID string
	Title      string
	Content    string
	Tags       []string
}

func (p *Posts) Create(ctx context.Context, in NewPost) (*models.Post, error) {
	now := time.Now().UTC()
	post := &models.Post{
		ID:         oid.New().String(),
		AuthorID:   in.AuthorID,
		CategoryID: in.CategoryID,
		Title:      in.Title,
		Content:    in.Content,
		Tags:       in.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	var categoryID any
	if in.CategoryID != "" {
		categoryID = in.CategoryID
	}
	_, err := p.DB.Exec(ctx, `
		INSERT INTO posts (id, author_id, category_id, title, content, tags, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
	`, post.ID, post.AuthorID, categoryID, post.Title, post.Content, post.Tags, now)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (p *Posts) Get(ctx context.Context, id string) (*models.Post, error) {
	row := p.DB.QueryRow(ctx, `
		SELECT p.id, p.author_id, COALESCE(p.category_id, ''), p.title, p.content, p.tags,
		       (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
		       p.created_at, p.updated_at
		FROM posts p WHERE p.id=$1
	`, id)
	return scanPost(row)
}

func (p *Posts) List(ctx context.Context, f PostFilter) (models.PostPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	out := models.PostPage{Page: f.Page, Posts: []models.Post{}}
	where := `WHERE ($1 = '' OR p.title ILIKE '%' || $1 || '%')
		AND ($2 = '' OR p.category_id = $2)`
	if err := p.DB.QueryRow(ctx, `SELECT COUNT(*) FROM posts p `+where, f.Search, f.CategoryID).Scan(&out.Total); err != nil {
		return out, err
	}
	rows, err := p.DB.Query(ctx, `
		SELECT p.id, p.author_id, COALESCE(p.category_id, ''), p.title, p.content, p.tags,
		       (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
		       p.created_at, p.updated_at
		FROM posts p `+where+`
		ORDER BY p.created_at DESC LIMIT $3 OFFSET $4
	`, f.Search, f.CategoryID, postsPerPage, (f.Page-1)*postsPerPage)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return out, err
		}
		out.Posts = append(out.Posts, *post)
	}
	return out, rows.Err()
}

type PostPatch struct {
	Title      *string
	Content    *string
	CategoryID *string
	Tags       []string
}

func (p *Posts) Update(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	now := time.Now().UTC()
	if patch.Title != nil {
		if _, err := p.DB.Exec(ctx, `UPDATE posts SET title=$2, updated_at=$3 WHERE id=$1`, id, *patch.Title, now); err != nil {
			return nil, err
		}
	}
	if patch.Content != nil {
		if _, err := p.DB.Exec(ctx, `UPDATE posts SET content=$2, updated_at=$3 WHERE id=$1`, id, *patch.Content, now); err != nil {
			return nil, err
		}
	}
	if patch.CategoryID != nil {
		var categoryID any
		if *patch.CategoryID != "" {
			categoryID = *patch.CategoryID
		}
		if _, err := p.DB.Exec(ctx, `UPDATE posts SET category_id=$2, updated_at=$3 WHERE id=$1`, id, categoryID, now); err != nil {
			return nil, err
		}
	}
	if patch.Tags != nil {
		if _, err := p.DB.Exec(ctx, `UPDATE posts SET tags=$2, updated_at=$3 WHERE id=$1`, id, patch.Tags, now); err != nil {
			return nil, err
		}
	}
	return p.Get(ctx, id)
}

func (p *Posts) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := p.DB.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ToggleLike flips the user's like and returns the new count plus whether
// the post is now liked by the user.
func (p *Posts) ToggleLike(ctx context.Context, postID, userID string) (int, bool, error) {
	tag, err := p.DB.Exec(ctx, `DELETE FROM post_likes WHERE post_id=$1 AND user_id=$2`, postID, userID)
	if err != nil {
		return 0, false, err
	}
	liked := false
	if tag.RowsAffected() == 0 {
		if _, err := p.DB.Exec(ctx, `INSERT INTO post_likes (post_id, user_id) VALUES ($1,$2)`, postID, userID); err != nil {
			return 0, false, err
		}
		liked = true
	}
	var count int
	if err := p.DB.QueryRow(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id=$1`, postID).Scan(&count); err != nil {
		return 0, liked, err
	}
	return count, liked, nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.AuthorID, &post.CategoryID, &post.Title, &post.Content, &post.Tags,
		&post.Likes, &post.CreatedAt, &post.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return &post, nil
}
