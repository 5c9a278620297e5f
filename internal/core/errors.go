package core

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("already exists")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedFile      = errors.New("only PDF files are supported")
	ErrNoText               = errors.New("no text could be extracted from the document")
	ErrNothingGenerated     = errors.New("no study material generated from the provided text")
	ErrUploadLimit          = errors.New("daily upload limit reached")
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrProvidersExhausted   = errors.New("failed to generate content with available AI providers")
)
