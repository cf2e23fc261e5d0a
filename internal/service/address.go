package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rookgm/grocerycart/internal/models"
)

// AddressRepository is interface for interacting with address-related data
type AddressRepository interface {
	// GetAddress returns address by id
	GetAddress(ctx context.Context, id string) (*models.Address, error)
	// CreateAddress inserts new address
	CreateAddress(ctx context.Context, addr *models.Address) (*models.Address, error)
	// AddressExists reports whether address exists
	AddressExists(ctx context.Context, id string) (bool, error)
	// DeleteAddress removes address
	DeleteAddress(ctx context.Context, id string) error
}

// AddressResolver turns an address input into a stored address reference.
type AddressResolver struct {
	repo     AddressRepository
	validate *validator.Validate
}

// NewAddressResolver creates new AddressResolver instance
func NewAddressResolver(repo AddressRepository) *AddressResolver {
	v := validator.New()
	// report json names so that errors name the field the client sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &AddressResolver{repo: repo, validate: v}
}

// Check validates in without writing anything. A reference must exist and
// an inline value must have every required field.
func (ar *AddressResolver) Check(ctx context.Context, in models.AddressInput, ownerID *string) error {
	switch {
	case in.ID != "":
		ok, err := ar.repo.AddressExists(ctx, in.ID)
		if err != nil {
			return fmt.Errorf("check address: %w", err)
		}
		if !ok {
			return models.ErrAddressNotFound
		}
		return nil
	case in.Value != nil:
		addr := *in.Value
		addr.UserID = ownerID
		return ar.validateValue(&addr)
	}
	return models.ErrInvalidAddress.WithField("address")
}

// Resolve returns the id of the address in refers to. An inline value is stored
// owned by ownerID, or unowned when ownerID is nil.
func (ar *AddressResolver) Resolve(ctx context.Context, in models.AddressInput, ownerID *string) (string, error) {
	if err := ar.Check(ctx, in, ownerID); err != nil {
		return "", err
	}
	if in.ID != "" {
		return in.ID, nil
	}

	addr := *in.Value
	addr.ID = uuid.NewString()
	addr.UserID = ownerID
	trimAddress(&addr)

	stored, err := ar.repo.CreateAddress(ctx, &addr)
	if err != nil {
		return "", fmt.Errorf("create address: %w", err)
	}
	return stored.ID, nil
}

// Get returns a stored address.
func (ar *AddressResolver) Get(ctx context.Context, id string) (*models.Address, error) {
	addr, err := ar.repo.GetAddress(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrAddressNotFound
		}
		return nil, err
	}
	return addr, nil
}

// Discard removes an address stored by Resolve that no order refers to.
func (ar *AddressResolver) Discard(ctx context.Context, id string) error {
	if err := ar.repo.DeleteAddress(ctx, id); err != nil && !errors.Is(err, models.ErrDataNotFound) {
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}

func (ar *AddressResolver) validateValue(addr *models.Address) error {
	trimAddress(addr)

	err := ar.validate.Struct(addr)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return models.ErrInvalidAddress.WithField(verrs[0].Field())
	}
	return models.ErrInvalidAddress.Wrap(err)
}

func trimAddress(a *models.Address) {
	for _, f := range []*string{&a.FirstName, &a.LastName, &a.Email, &a.Street, &a.Apartment,
		&a.City, &a.State, &a.Zipcode, &a.Country, &a.Phone} {
		*f = strings.TrimSpace(*f)
	}
}
