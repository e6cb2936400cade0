// Package submit gathers writable field values, hands them to the payment
// session collaborator and maps rejected values back onto the field set.
package submit

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/mask"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/overlay"
	"github.com/goliatone/go-cardform/pkg/validation"
)

// Payload is the opaque value produced by a Session for the transport layer.
type Payload string

// Session encrypts field values. Implementations report per-field
// rejections with *EncryptError; any other error is treated as fatal.
type Session interface {
	Encrypt(ctx context.Context, values map[string]string, rememberMe bool) (Payload, error)
}

// SessionFunc adapts a function into a Session.
type SessionFunc func(ctx context.Context, values map[string]string, rememberMe bool) (Payload, error)

// Encrypt calls fn.
func (fn SessionFunc) Encrypt(ctx context.Context, values map[string]string, rememberMe bool) (Payload, error) {
	return fn(ctx, values, rememberMe)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for fatal submission failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithValidator sets the validator used to re-check rejected fields.
func WithValidator(v *validation.Validator) Option {
	return func(c *Coordinator) {
		if v != nil {
			c.validator = v
		}
	}
}

// Coordinator runs one submission at a time.
type Coordinator struct {
	session   Session
	validator *validation.Validator
	logger    *zap.Logger
	inFlight  atomic.Bool
}

// NewCoordinator builds a coordinator around session.
func NewCoordinator(session Session, options ...Option) *Coordinator {
	c := &Coordinator{
		session:   session,
		validator: validation.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Values returns the unmasked values of the writable elements keyed by field
// id.
func Values(elements []*field.Element, account *model.AccountOverlay) map[string]string {
	values := make(map[string]string, len(elements))
	for _, el := range elements {
		if !overlay.Writable(el, account) {
			continue
		}
		m, err := mask.Parse(el.Definition.MaskPattern)
		if err != nil {
			m = mask.Mask{}
		}
		values[el.Definition.ID] = m.Clean(el.RawValue)
	}
	return values
}

// Submit sends the writable values of elements to the session. The caller
// owns elements and must not mutate them concurrently.
//
// Previous submission errors are cleared first. When the session rejects
// values, each named field gets the first message in its submission slot and
// is revalidated so a more specific local error still wins; the returned
// error is a *FieldErrors. Any other session failure is a *FatalError.
func (c *Coordinator) Submit(ctx context.Context, elements []*field.Element, account *model.AccountOverlay, rememberMe bool) (Payload, error) {
	if c.session == nil {
		return "", ErrNoSession
	}
	if len(elements) == 0 {
		return "", ErrNoFields
	}
	for _, el := range elements {
		if el != nil && el.Loading {
			return "", ErrBusy
		}
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer c.inFlight.Store(false)

	for _, el := range elements {
		if el != nil {
			el.Errors.Submission = ""
		}
	}

	payload, err := c.session.Encrypt(ctx, Values(elements, account), rememberMe)
	if err == nil {
		return payload, nil
	}

	var rejected *EncryptError
	if !errors.As(err, &rejected) {
		c.logger.Error("submission failed", zap.Error(err))
		return "", &FatalError{Err: err}
	}

	ids := make([]string, 0, len(elements))
	for _, el := range elements {
		ids = append(ids, el.ID())
	}
	mapping := MapErrors(ids, rejected.Fields)
	for id, messages := range mapping.Fields {
		el, ok := field.Find(elements, id)
		if !ok {
			continue
		}
		el.Errors.Submission = messages[0]
		c.revalidate(el)
	}
	if len(mapping.Form) > 0 {
		c.logger.Warn("submission rejected with form level errors",
			zap.String("errors", strings.Join(mapping.Form, "; ")))
	}
	return "", &FieldErrors{Fields: mapping.Fields, Form: mapping.Form}
}

// Busy reports whether a submission is in flight.
func (c *Coordinator) Busy() bool {
	return c.inFlight.Load()
}

func (c *Coordinator) revalidate(el *field.Element) {
	m, err := mask.Parse(el.Definition.MaskPattern)
	if err != nil {
		m = mask.Mask{}
	}
	el.Errors.Local = c.validator.Validate(el.Definition, m.Clean(el.RawValue))
}

func sortedKeys(payload map[string][]string) []string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
