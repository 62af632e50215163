package cart

import (
	"errors"
	"math"
)

// MaxLineQuantity is the largest quantity a single line can hold (the column is a Postgres integer).
const MaxLineQuantity = math.MaxInt32

var (
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrLineNotFound       = errors.New("cart line not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStorageUnavailable = errors.New("cart storage unavailable")
)
