package validator

import "errors"

var (
	ErrEmptyURL          = errors.New("URL cannot be empty")
	ErrInvalidURL        = errors.New("invalid URL format")
	ErrInvalidScheme     = errors.New("URL must use http or https scheme")
	ErrInvalidHost       = errors.New("URL must have a valid host")
	ErrInvalidCodeLength = errors.New("short code must be 4-20 characters")
	ErrInvalidCodeFormat = errors.New("short code must be alphanumeric")
)
