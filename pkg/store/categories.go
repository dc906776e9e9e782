package store

import (
	"context"
	"errors"
	"time"

	"quill/pkg/models"
	"quill/pkg/oid"
)

type Categories struct {
	DB DB
}

var ErrCategoryExists = errors.New("category already exists")

func (c *Categories) Create(ctx context.Context, name string) (*models.Category, error) {
	var exists bool
	if err := c.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE lower(name)=lower($1))`, name).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCategoryExists
	}
	cat := &models.Category{
		ID:        oid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := c.DB.Exec(ctx, `INSERT INTO categories (id, name, created_at) VALUES ($1,$2,$3)`,
		cat.ID, cat.Name, cat.CreatedAt)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Categories) List(ctx context.Context) ([]models.Category, error) {
	rows, err := c.DB.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (c *Categories) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := c.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
