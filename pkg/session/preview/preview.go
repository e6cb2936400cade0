// Package preview provides a submit.Session for demos and tests. It rechecks
// values against the active product and wraps them in a base64 JSON
// envelope. Nothing is encrypted.
package preview

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/goliatone/go-cardform/pkg/mask"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/submit"
	"github.com/goliatone/go-cardform/pkg/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the decoded payload.
type Envelope struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"productId,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	RememberMe bool              `json:"rememberMe"`
	Values     map[string]string `json:"values"`
}

// ProductSource returns the product values are checked against, nil when
// none is active.
type ProductSource func() *model.NetworkProduct

// Option configures a Session.
type Option func(*Session)

// WithProductSource enables server side rechecks against the active product.
func WithProductSource(src ProductSource) Option {
	return func(s *Session) {
		s.product = src
	}
}

// WithValidator sets the validator used for rechecks.
func WithValidator(v *validation.Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithClock sets the envelope timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the payload id source.
func WithIDGenerator(next func() string) Option {
	return func(s *Session) {
		if next != nil {
			s.nextID = next
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session implements submit.Session.
type Session struct {
	product   ProductSource
	validator *validation.Validator
	now       func() time.Time
	nextID    func() string
	logger    *zap.Logger
}

var _ submit.Session = (*Session)(nil)

// New returns a preview session.
func New(options ...Option) *Session {
	s := &Session{
		validator: validation.New(),
		now:       time.Now,
		nextID:    func() string { return uuid.NewString() },
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Encrypt validates values and returns the encoded envelope. Rejected values
// are reported as *submit.EncryptError keyed by field id. Fields absent from
// values are not checked; an account on file supplies them.
func (s *Session) Encrypt(ctx context.Context, values map[string]string, rememberMe bool) (submit.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var product *model.NetworkProduct
	if s.product != nil {
		product = s.product()
	}
	if product != nil {
		if rejected := s.check(*product, values); len(rejected) > 0 {
			return "", &submit.EncryptError{Fields: rejected}
		}
	}

	env := Envelope{
		ID:         s.nextID(),
		CreatedAt:  s.now().UTC(),
		RememberMe: rememberMe,
		Values:     values,
	}
	if product != nil {
		env.ProductID = product.ID
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("preview: encode envelope: %w", err)
	}
	s.logger.Info("payload created",
		zap.String("id", env.ID),
		zap.String("product", env.ProductID),
		zap.Strings("fields", sortedKeys(values)))
	return submit.Payload(base64.StdEncoding.EncodeToString(data)), nil
}

func (s *Session) check(product model.NetworkProduct, values map[string]string) map[string][]string {
	rejected := make(map[string][]string)
	for _, def := range product.Fields {
		value, present := values[def.ID]
		if !present {
			continue
		}
		m, err := mask.Parse(def.MaskPattern)
		if err != nil {
			m = mask.Mask{}
		}
		if msg := s.validator.Validate(def, m.Clean(value)); msg != "" {
			rejected[def.ID] = append(rejected[def.ID], msg)
		}
	}
	return rejected
}

// Decode reverses Encrypt.
func Decode(payload submit.Payload) (Envelope, error) {
	data, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return Envelope{}, fmt.Errorf("preview: decode payload: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("preview: unmarshal envelope: %w", err)
	}
	return env, nil
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
