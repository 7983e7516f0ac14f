package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrSeedBusy     = errors.New("seeding in progress")
	ErrInvalid      = errors.New("invalid input")
)
