package models

import (
	"errors"
	"fmt"
)

// storage level errors
var (
	ErrConflictData = errors.New("data conflicts with existing data")
	ErrDataNotFound = errors.New("data not found")
)

// Kind classifies domain errors so that transports can map them without
// knowing every individual error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindExternal
)

// Error is a domain error. Two errors are equal for errors.Is when their codes match,
// so a field-specific copy still matches its sentinel.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Field names the offending input field, if any.
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithField returns a copy of e naming the offending field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// Wrap returns a copy of e carrying the underlying cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// validation errors
var (
	ErrEmptyCart           = &Error{Kind: KindValidation, Code: "empty_cart", Message: "missing or invalid order items"}
	ErrInvalidLineItem     = &Error{Kind: KindValidation, Code: "invalid_line_item", Message: "each item must have a valid product id and a positive quantity"}
	ErrMissingGuestDetails = &Error{Kind: KindValidation, Code: "missing_guest_details", Message: "guest details (name, email, phone) are required for guest orders"}
	ErrInvalidAddress      = &Error{Kind: KindValidation, Code: "invalid_address", Message: "missing address field"}
	ErrInvalidPaymentType  = &Error{Kind: KindValidation, Code: "invalid_payment_type", Message: "invalid payment type"}
	ErrGuestOnlineDisabled = &Error{Kind: KindValidation, Code: "guest_online_disabled", Message: "online payment requires a signed in user"}
	ErrInvalidStatus       = &Error{Kind: KindValidation, Code: "invalid_status", Message: "invalid order status provided"}
	ErrInvalidCart         = &Error{Kind: KindValidation, Code: "invalid_cart", Message: "invalid cart quantity"}
	ErrMissingOrigin       = &Error{Kind: KindValidation, Code: "missing_origin", Message: "origin is required for payment redirects"}
	ErrInvalidStock        = &Error{Kind: KindValidation, Code: "invalid_stock", Message: "no valid stock or in-stock status provided for update"}
)

// conflict errors
var (
	ErrInsufficientStock  = &Error{Kind: KindConflict, Code: "insufficient_stock", Message: "insufficient stock"}
	ErrProductUnavailable = &Error{Kind: KindConflict, Code: "product_unavailable", Message: "product is currently not available"}
	ErrAddressNotFound    = &Error{Kind: KindConflict, Code: "address_not_found", Message: "address not found"}
	ErrAlreadyCancelled   = &Error{Kind: KindConflict, Code: "already_cancelled", Message: "order is already cancelled"}
	ErrInvalidTransition  = &Error{Kind: KindConflict, Code: "invalid_transition", Message: "order status transition is not allowed"}
	ErrOrderConflict      = &Error{Kind: KindConflict, Code: "order_conflict", Message: "order was modified concurrently"}
)

// lookup and authorization errors
var (
	ErrOrderNotFound   = &Error{Kind: KindNotFound, Code: "order_not_found", Message: "order not found"}
	ErrUserNotFound    = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrProductNotFound = &Error{Kind: KindNotFound, Code: "product_not_found", Message: "product not found"}
	ErrForbidden       = &Error{Kind: KindForbidden, Code: "forbidden", Message: "you are not authorized to manage this order"}
)

// external errors
var (
	ErrPaymentGateway   = &Error{Kind: KindExternal, Code: "payment_gateway", Message: "payment processing failed"}
	ErrInvalidSignature = &Error{Kind: KindExternal, Code: "invalid_signature", Message: "invalid signature"}
	ErrMissingMetadata  = &Error{Kind: KindExternal, Code: "missing_metadata", Message: "missing metadata"}
)

var ErrInvalidCredentials = errors.New("invalid login or password")
