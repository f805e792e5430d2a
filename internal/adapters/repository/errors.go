package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrPersistence wraps every driver failure.
	ErrPersistence = errors.New("persistence failure")
	ErrUnsupported = errors.New("unsupported store url")
)
