package submit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrBusy is returned while a classification or another submission is in
	// flight.
	ErrBusy = errors.New("submit: form is busy")
	// ErrNoFields is returned when no field set has been resolved yet.
	ErrNoFields = errors.New("submit: no fields to submit")
	// ErrNoSession is returned by a coordinator built without a Session.
	ErrNoSession = errors.New("submit: session is required")
)

// EncryptError is returned by a Session that rejected individual values.
// Keys are field ids, dotted paths or JSON pointers.
type EncryptError struct {
	Fields map[string][]string
}

func (e *EncryptError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return fmt.Sprintf("submit: session rejected fields %s", strings.Join(keys, ", "))
}

// FieldErrors reports collaborator validation failures mapped onto the field
// set. Messages whose key matched no field are kept in Form.
type FieldErrors struct {
	Fields map[string][]string
	Form   []string
}

func (e *FieldErrors) Error() string {
	ids := make([]string, 0, len(e.Fields))
	for id := range e.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return fmt.Sprintf("submit: %s", strings.Join(e.Form, "; "))
	}
	return fmt.Sprintf("submit: invalid fields %s", strings.Join(ids, ", "))
}

// FatalError wraps a session or transport failure not attributable to a
// field.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("submit: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
