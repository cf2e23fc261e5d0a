package models

import "time"

// MaxCartQuantity bounds the quantity of a single cart entry.
const MaxCartQuantity = 99

// Cart maps product ids to quantities in [1, MaxCartQuantity].
type Cart map[string]int

// Set puts qty of productID into the cart. A zero quantity removes the entry.
func (c Cart) Set(productID string, qty int) error {
	if productID == "" || qty < 0 || qty > MaxCartQuantity {
		return ErrInvalidCart.WithField(productID)
	}
	if qty == 0 {
		delete(c, productID)
		return nil
	}
	c[productID] = qty
	return nil
}

// Validate checks every entry of the cart.
func (c Cart) Validate() error {
	for id, qty := range c {
		if id == "" || qty < 1 || qty > MaxCartQuantity {
			return ErrInvalidCart.WithField(id)
		}
	}
	return nil
}

// User is the identity record the order core reads.
type User struct {
	ID    string
	Name  string
	Email string
	Cart  Cart
}

// Role of an authenticated caller.
type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
)

// TokenPayload is the payload carried by an auth token.
type TokenPayload struct {
	UserID    string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// Actor is the caller of an order operation. A zero Actor is an anonymous guest.
type Actor struct {
	UserID string
	Role   Role
	// GuestEmail proves ownership of a guest order for anonymous callers.
	GuestEmail string
}

// Authenticated reports whether the actor is signed in as a user.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// IsSeller reports whether the actor is the store seller.
func (a Actor) IsSeller() bool {
	return a.Role == RoleSeller
}
