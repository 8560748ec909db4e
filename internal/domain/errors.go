package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownVenue    = errors.New("no adapter registered for venue")
	ErrNoQuote         = errors.New("no quote available")
	ErrTransactionOpen = errors.New("a transaction is already in flight")
)
