package models

// Address is a shipping address. Addresses are never edited once an order references them.
type Address struct {
	ID        string  `json:"id,omitempty"`
	UserID    *string `json:"-"`
	FirstName string  `json:"firstName" validate:"required"`
	LastName  string  `json:"lastName" validate:"required"`
	Email     string  `json:"email" validate:"required_without=UserID"`
	Street    string  `json:"street" validate:"required"`
	Apartment string  `json:"apartment,omitempty"`
	City      string  `json:"city" validate:"required"`
	State     string  `json:"state" validate:"required"`
	Zipcode   string  `json:"zipcode" validate:"required"`
	Country   string  `json:"country" validate:"required"`
	Phone     string  `json:"phone" validate:"required"`
}

// AddressInput is either a reference to a stored address or an inline value.
type AddressInput struct {
	ID    string
	Value *Address
}
