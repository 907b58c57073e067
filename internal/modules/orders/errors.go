package orders

import "errors"

var (
	ErrEmptyOrder        = errors.New("order has no items")
	ErrMixedBrands       = errors.New("order items span multiple brands")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOutOfScope        = errors.New("order outside actor scope")
	ErrDuplicateRequest  = errors.New("duplicate checkout request")
	ErrConcurrentUpdate  = errors.New("order modified concurrently")
)
