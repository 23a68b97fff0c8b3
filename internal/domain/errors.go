package domain

import "errors"

var (
	// ErrInvalidIntent signals a malformed or out-of-range search intent change.
	ErrInvalidIntent = errors.New("invalid search intent")
	// ErrBackendUnavailable signals a transport failure reaching the search backend.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrMalformedRecord signals a backend hit missing required fields.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
