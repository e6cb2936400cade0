// Package classify resolves a partial card number into a network product and
// its co-brand alternatives.
package classify

import (
	"context"
	"fmt"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-cardform/pkg/model"
)

// DefaultMinDigits is the number of digits required before a lookup is made.
const DefaultMinDigits = 6

// Resolver is the network lookup collaborator.
type Resolver interface {
	ClassifyCardNumber(ctx context.Context, raw string) (model.IINDetails, error)
	FetchProduct(ctx context.Context, id string) (model.NetworkProduct, error)
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMinDigits overrides DefaultMinDigits. Values below one are ignored.
func WithMinDigits(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.minDigits = n
		}
	}
}

// WithPolicy replaces the failure visibility table.
func WithPolicy(policy Policy) Option {
	return func(c *Classifier) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// WithLogger sets the logger used for failures whose policy asks for it.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Classifier composes the IIN lookup with the product fetches it implies.
// It is safe for concurrent use; supersession is the caller's concern (see
// Tracker).
type Classifier struct {
	resolver  Resolver
	minDigits int
	policy    Policy
	logger    *zap.Logger
	products  singleflight.Group
}

// New returns a classifier backed by resolver.
func New(resolver Resolver, options ...Option) *Classifier {
	c := &Classifier{
		resolver:  resolver,
		minDigits: DefaultMinDigits,
		policy:    DefaultPolicy(),
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// MinDigits returns the lookup threshold.
func (c *Classifier) MinDigits() int { return c.minDigits }

// Policy returns the failure visibility table.
func (c *Classifier) Policy() Policy { return c.policy }

// Eligible reports whether raw carries enough digits for a lookup.
func (c *Classifier) Eligible(raw string) bool {
	return countDigits(raw) >= c.minDigits
}

// Classify looks up raw. On SUPPORTED the main product is fetched, then the
// co-brands allowed in context are fetched concurrently; any fetch failure
// fails the whole classification.
func (c *Classifier) Classify(ctx context.Context, raw string) Result {
	if c.resolver == nil {
		return c.fail(raw, ErrNoResolver)
	}
	if !c.Eligible(raw) {
		return Failed(FailureNotEnoughDigits, ErrNotEnoughDigits)
	}

	details, err := c.resolver.ClassifyCardNumber(ctx, raw)
	if err != nil {
		return c.fail(raw, err)
	}
	switch details.Status {
	case model.IINSupported:
	case model.IINNotEnoughDigits:
		return Failed(FailureNotEnoughDigits, ErrNotEnoughDigits)
	default:
		c.logger.Debug("card not supported",
			zap.String("status", string(details.Status)),
			zap.String("product", details.ProductID))
		return Unsupported()
	}

	product, err := c.FetchProduct(ctx, details.ProductID)
	if err != nil {
		return c.fail(raw, err)
	}
	coBrands, err := c.fetchCoBrands(ctx, details.CoBrands)
	if err != nil {
		return c.fail(raw, err)
	}
	return Supported(product, coBrands)
}

// FetchProduct fetches one product. Concurrent requests for the same id
// share a single resolver call.
func (c *Classifier) FetchProduct(ctx context.Context, id string) (model.NetworkProduct, error) {
	if c.resolver == nil {
		return model.NetworkProduct{}, ErrNoResolver
	}
	v, err, _ := c.products.Do(id, func() (any, error) {
		return c.resolver.FetchProduct(ctx, id)
	})
	if err != nil {
		return model.NetworkProduct{}, fmt.Errorf("classify: fetch product %q: %w", id, err)
	}
	return v.(model.NetworkProduct), nil
}

func (c *Classifier) fetchCoBrands(ctx context.Context, coBrands []model.CoBrand) ([]model.NetworkProduct, error) {
	allowed := make([]string, 0, len(coBrands))
	for _, cb := range coBrands {
		if cb.AllowedInContext {
			allowed = append(allowed, cb.ProductID)
		}
	}
	if len(allowed) == 0 {
		return nil, nil
	}

	out := make([]model.NetworkProduct, len(allowed))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range allowed {
		i, id := i, id
		g.Go(func() error {
			product, err := c.FetchProduct(gctx, id)
			if err != nil {
				return err
			}
			out[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Classifier) fail(raw string, err error) Result {
	kind := KindOf(err)
	if c.policy.Lookup(kind).Log {
		c.logger.Warn("card classification failed",
			zap.String("kind", string(kind)),
			zap.Int("digits", countDigits(raw)),
			zap.Error(err))
	}
	return Failed(kind, err)
}

func countDigits(raw string) int {
	n := 0
	for _, r := range raw {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
