package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/repository/postgres"
)

const (
	insertAddressQuery = `
						INSERT INTO addresses (id, user_id, first_name, last_name, email, street, apartment, city, state, zipcode, country, phone)
						values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	selectAddressByIDQuery = `
						SELECT id, user_id, first_name, last_name, email, street, apartment, city, state, zipcode, country, phone FROM addresses
						WHERE id = $1
`
	deleteAddressQuery = `
						DELETE FROM addresses
						WHERE id = $1
`
	addressExistsQuery = `
						SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1)
`
)

// AddressRepository stores shipping addresses
type AddressRepository struct {
	db *postgres.DB
}

// NewAddressRepository creates new AddressRepository instance
func NewAddressRepository(db *postgres.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// CreateAddress inserts new address, addr.ID must be set
func (ar *AddressRepository) CreateAddress(ctx context.Context, addr *models.Address) (*models.Address, error) {
	_, err := ar.db.Exec(ctx, insertAddressQuery, addr.ID, addr.UserID, addr.FirstName, addr.LastName, addr.Email,
		addr.Street, addr.Apartment, addr.City, addr.State, addr.Zipcode, addr.Country, addr.Phone)
	if err != nil {
		if errCode := ar.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	return addr, nil
}

// GetAddress returns address by id
func (ar *AddressRepository) GetAddress(ctx context.Context, id string) (*models.Address, error) {
	a := models.Address{}
	err := ar.db.QueryRow(ctx, selectAddressByIDQuery, id).Scan(&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.Email,
		&a.Street, &a.Apartment, &a.City, &a.State, &a.Zipcode, &a.Country, &a.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &a, nil
}

// AddressExists reports whether address exists
func (ar *AddressRepository) AddressExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := ar.db.QueryRow(ctx, addressExistsQuery, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteAddress removes address
func (ar *AddressRepository) DeleteAddress(ctx context.Context, id string) error {
	cmd, err := ar.db.Exec(ctx, deleteAddressQuery, id)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}
