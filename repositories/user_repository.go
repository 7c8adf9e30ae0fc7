package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads accounts owned by the identity service.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type sqlUserRepository struct {
	db db.Gateway
}

func NewUserRepository(gateway db.Gateway) UserRepository {
	return &sqlUserRepository{db: gateway}
}

const selectUserSQL = `SELECT id, username, email, display_name, created_at FROM users`

func (r *sqlUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, selectUserSQL+` WHERE id = ?`, id)
}

func (r *sqlUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, selectUserSQL+` WHERE username = ?`, username)
}

func (r *sqlUserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.Get(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
