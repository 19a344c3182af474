package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
)

// UserRepo is the sqlx implementation of UserRepository.
type UserRepo struct {
	q queryer
}

// GetByUsername fetches one user record.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, r.q, &user,
		`SELECT id, username, email, status, last_seen, profile_picture, created_at
         FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, apperrors.StoreFailure("get user", err)
	}
	return user, nil
}

// Save upserts the user, refreshing presence fields on conflict.
func (r *UserRepo) Save(ctx context.Context, user *models.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, email, status, last_seen, profile_picture, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (username) DO UPDATE SET status = EXCLUDED.status,
             last_seen = EXCLUDED.last_seen,
             profile_picture = EXCLUDED.profile_picture`,
		user.ID, user.Username, user.Email, user.Status, user.LastSeen, user.ProfilePicture, user.CreatedAt)
	if err != nil {
		return apperrors.StoreFailure("save user", err)
	}
	return nil
}

// Search matches usernames and emails by substring, excluding the caller.
func (r *UserRepo) Search(ctx context.Context, query, exclude string) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := sqlx.SelectContext(ctx, r.q, &users,
		`SELECT username, email, profile_picture FROM users
         WHERE (username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
           AND username <> $2
         ORDER BY username`, query, exclude)
	if err != nil {
		return nil, apperrors.StoreFailure("search users", err)
	}
	return users, nil
}
