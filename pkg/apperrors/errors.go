package apperrors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrRateLimited    = errors.New("suggestion rate limit exceeded, retry later")
	ErrBodyTooShort   = errors.New("article body below minimum length")
	ErrBodyTooLong    = errors.New("article body above maximum length")
	ErrSiloMismatch   = errors.New("page does not belong to the requested silo")
	ErrEmptySilo      = errors.New("silo has no pages")
	ErrInvalidRequest = errors.New("invalid request")
)
