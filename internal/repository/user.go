package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/repository/postgres"
)

const (
	selectUserByIDQuery = `
						SELECT id, name, email, cart_items FROM users
						WHERE id = $1
`
	clearCartQuery = `
						UPDATE users
						SET cart_items = '{}'::jsonb
						WHERE id = $1
`
)

// UserRepository reads identity records
type UserRepository struct {
	db *postgres.DB
}

// NewUserRepository creates new UserRepository instance
func NewUserRepository(db *postgres.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser returns user by id
func (ur *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := models.User{}
	err := ur.db.QueryRow(ctx, selectUserByIDQuery, id).Scan(&u.ID, &u.Name, &u.Email, &u.Cart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &u, nil
}

// ClearCart empties the user cart
func (ur *UserRepository) ClearCart(ctx context.Context, id string) error {
	cmd, err := ur.db.Exec(ctx, clearCartQuery, id)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}
