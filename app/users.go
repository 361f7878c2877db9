// Package app provides user persistence helpers for authenticated requests.
package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gpalras/bank-converter-pt/app/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CreateUser inserts a new user with a bcrypt password hash.
func CreateUser(ctx context.Context, email, name, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING;
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return models.User{}, ErrEmailTaken
	}

	return user, nil
}

// AuthenticateUser checks email/password and returns the matching user.
func AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := getUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}
	return user, nil
}

func getUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE email = $1;
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID resolves a token subject against the user store.
func GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE id = $1;
	`, id).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("user not found")
		}
		return models.User{}, err
	}
	return user, nil
}
