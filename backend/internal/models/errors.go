package models

import "errors"

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidOrderState = errors.New("order is not in a cancellable state")

	ErrCustomerNotFound = errors.New("customer not found")
	ErrUsernameTaken    = errors.New("username already taken")
)
