package repository

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadySold = errors.New("holding already sold")
)
