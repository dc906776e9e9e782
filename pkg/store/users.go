package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"quill/pkg/models"
	"quill/pkg/oid"
)

type Users struct {
	DB DB
}

const usersPerPage = 20

// ErrEmailTaken is returned by Create for a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

func (u *Users) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		ID:        oid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var exists bool
	if err := u.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}
	_, err := u.DB.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, admin, bio, created_at, updated_at)
		VALUES ($1,$2,$3,$4,FALSE,'',$5,$5)
	`, user.ID, user.Name, user.Email, passwordHash, now)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByID resolves a principal record. The projection deliberately
// excludes password_hash. A missing row is (nil, nil), not an error.
func (u *Users) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	row := u.DB.QueryRow(ctx, `
		SELECT id, name, email, admin, bio, created_at, updated_at
		FROM users WHERE id=$1
	`, id)
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Admin, &user.Bio, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail is the credential lookup used at login; the only query that
// reads password_hash.
func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := u.DB.QueryRow(ctx, `
		SELECT id, name, email, password_hash, admin, bio, created_at, updated_at
		FROM users WHERE email=$1
	`, email)
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Admin, &user.Bio, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *Users) List(ctx context.Context, page int) (models.UserPage, error) {
	if page < 1 {
		page = 1
	}
	out := models.UserPage{Page: page, Users: []models.User{}}
	if err := u.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&out.Total); err != nil {
		return out, err
	}
	rows, err := u.DB.Query(ctx, `
		SELECT id, name, email, admin, bio, created_at, updated_at
		FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, usersPerPage, (page-1)*usersPerPage)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Admin, &user.Bio, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return out, err
		}
		out.Users = append(out.Users, user)
	}
	return out, rows.Err()
}

// Update patches the mutable profile fields; nil means "leave unchanged".
func (u *Users) Update(ctx context.Context, id string, name, bio *string) (*models.User, error) {
	if name != nil {
		if _, err := u.DB.Exec(ctx, `UPDATE users SET name=$2, updated_at=$3 WHERE id=$1`, id, *name, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	if bio != nil {
		if _, err := u.DB.Exec(ctx, `UPDATE users SET bio=$2, updated_at=$3 WHERE id=$1`, id, *bio, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	return u.FindUserByID(ctx, id)
}

func (u *Users) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := u.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
