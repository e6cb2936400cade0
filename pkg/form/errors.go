package form

import "errors"

var (
	// ErrUnknownField is returned for a field id not in the current set.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrUnknownCoBrand is returned when selecting a product that is not an
	// offered co-brand.
	ErrUnknownCoBrand = errors.New("form: unknown co-brand")
	// ErrSessionExpired is returned once the resolver rejected the session.
	ErrSessionExpired = errors.New("form: session expired")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("form: closed")
	// ErrClassifierRequired is returned by New without a classifier.
	ErrClassifierRequired = errors.New("form: classifier is required")
)

// Messages set on the card number field by classification.
const (
	MessageUnsupported = "This creditcard is not supported"
	MessageInvalidCard = "Invalid creditcard number"
)
