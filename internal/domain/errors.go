package domain

import "errors"

// Error kinds shared by the settlement core, the stores and the HTTP layer.
// Detail is attached with fmt.Errorf("%w: ...") so callers classify with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrExpired            = errors.New("expired")
	ErrSequenceCorruption = errors.New("invoice sequence corrupted")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)
