// Package httpresolver is a REST network resolver. It serves
//
//	GET {base}/iin/{digits}    -> model.IINDetails
//	GET {base}/products/{id}   -> model.NetworkProduct
//
// and maps 404 and 403 responses onto the failure kinds of package classify.
package httpresolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/resolver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxErrorBody = 4 << 10

// ErrBaseURL is returned by New for a missing or relative base URL.
var ErrBaseURL = errors.New("httpresolver: absolute base URL is required")

// Doer is the subset of *http.Client used by the resolver.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithRateLimit limits outgoing requests per second. Zero or less disables
// limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDecorators runs decorators on every fetched product. The markup
// sanitizer always runs first.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(c *Client) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// Client implements classify.Resolver over HTTP.
type Client struct {
	base       *url.URL
	http       Doer
	token      string
	limiter    *rate.Limiter
	logger     *zap.Logger
	decorators []model.Decorator
}

// New returns a client for baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || !base.IsAbs() {
		return nil, ErrBaseURL
	}
	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
		logger:     zap.NewNop(),
		decorators: []model.Decorator{resolver.Sanitizer{}},
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// IINDigits returns the prefix sent for a lookup: eight digits once at least
// eight are known, six otherwise. The full number never leaves the process.
func IINDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) >= 8:
		return digits[:8]
	case len(digits) >= 6:
		return digits[:6]
	default:
		return digits
	}
}

// ClassifyCardNumber implements classify.Resolver.
func (c *Client) ClassifyCardNumber(ctx context.Context, raw string) (model.IINDetails, error) {
	digits := IINDigits(raw)
	if len(digits) < 6 {
		return model.IINDetails{}, classify.ErrNotEnoughDigits
	}
	var details model.IINDetails
	if err := c.get(ctx, "iin lookup", []string{"iin", digits}, &details); err != nil {
		return model.IINDetails{}, err
	}
	if details.Status == "" {
		details.Status = model.IINUnknown
	}
	return details, nil
}

// FetchProduct implements classify.Resolver.
func (c *Client) FetchProduct(ctx context.Context, id string) (model.NetworkProduct, error) {
	var product model.NetworkProduct
	if err := c.get(ctx, "fetch product", []string{"products", id}, &product); err != nil {
		return model.NetworkProduct{}, err
	}
	if err := model.Decorate(&product, c.decorators...); err != nil {
		return model.NetworkProduct{}, fmt.Errorf("httpresolver: decorate product %q: %w", id, err)
	}
	return product, nil
}

func (c *Client) get(ctx context.Context, op string, segments []string, dest any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("httpresolver: %s: %w", op, err)
		}
	}

	endpoint := c.base.JoinPath(segments...)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("httpresolver: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &classify.ResolverError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("resolver request",
		zap.String("op", op),
		zap.String("path", endpoint.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &classify.ResolverError{Op: op, Status: resp.StatusCode, Err: errorFromBody(resp.Status, body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &classify.ResolverError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func errorFromBody(status string, body []byte) error {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return errors.New(parsed.Message)
		}
		if len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
			return errors.New(parsed.Errors[0].Message)
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return errors.New(text)
	}
	return errors.New(status)
}
