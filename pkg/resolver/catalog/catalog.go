// Package catalog is an offline network resolver backed by product and IIN
// range definitions stored as JSON or YAML files.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/model"
)

// DefaultLookupDigits is the number of leading digits compared against the
// range table. Shorter inputs report NOT_ENOUGH_DIGITS.
const DefaultLookupDigits = 6

var errNoProduct = errors.New("product not in catalog")

// Range maps an inclusive span of IIN prefixes onto a product. Start and End
// hold the same number of digits; a card matches when its leading digits of
// that width fall between them. Priority breaks overlaps, higher first.
type Range struct {
	Start    string          `json:"start" yaml:"start"`
	End      string          `json:"end" yaml:"end"`
	Product  string          `json:"product" yaml:"product"`
	Status   model.IINStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Priority int             `json:"priority,omitempty" yaml:"priority,omitempty"`
	CoBrands []model.CoBrand `json:"coBrands,omitempty" yaml:"coBrands,omitempty"`

	width int
	lo    int
	hi    int
}

func (r Range) contains(digits string) bool {
	if len(digits) < r.width {
		return false
	}
	n, err := strconv.Atoi(digits[:r.width])
	if err != nil {
		return false
	}
	return n >= r.lo && n <= r.hi
}

// Catalog implements classify.Resolver over in-memory data.
type Catalog struct {
	products     map[string]model.NetworkProduct
	ranges       []Range
	lookupDigits int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLookupDigits overrides DefaultLookupDigits.
func WithLookupDigits(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.lookupDigits = n
		}
	}
}

// New builds a catalog from products and ranges. Ranges must reference known
// products and carry numeric bounds of equal width.
func New(products []model.NetworkProduct, ranges []Range, options ...Option) (*Catalog, error) {
	c := &Catalog{
		products:     make(map[string]model.NetworkProduct, len(products)),
		lookupDigits: DefaultLookupDigits,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	for _, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, errors.New("catalog: product without id")
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %q", p.ID)
		}
		c.products[p.ID] = p
	}
	for i, r := range ranges {
		compiled, err := c.compileRange(r)
		if err != nil {
			return nil, fmt.Errorf("catalog: range %d: %w", i, err)
		}
		c.ranges = append(c.ranges, compiled)
	}
	sort.SliceStable(c.ranges, func(i, j int) bool {
		a, b := c.ranges[i], c.ranges[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.width != b.width {
			return a.width > b.width
		}
		return a.hi-a.lo < b.hi-b.lo
	})
	return c, nil
}

func (c *Catalog) compileRange(r Range) (Range, error) {
	r.Start = strings.TrimSpace(r.Start)
	r.End = strings.TrimSpace(r.End)
	if r.End == "" {
		r.End = r.Start
	}
	if r.Start == "" || len(r.Start) != len(r.End) {
		return Range{}, fmt.Errorf("bounds %q-%q must be non-empty and of equal width", r.Start, r.End)
	}
	lo, err := strconv.Atoi(r.Start)
	if err != nil {
		return Range{}, fmt.Errorf("start %q: %w", r.Start, err)
	}
	hi, err := strconv.Atoi(r.End)
	if err != nil {
		return Range{}, fmt.Errorf("end %q: %w", r.End, err)
	}
	if lo > hi {
		return Range{}, fmt.Errorf("start %q after end %q", r.Start, r.End)
	}
	if _, ok := c.products[r.Product]; !ok && r.Status != model.IINExistingNotAllowed {
		return Range{}, fmt.Errorf("unknown product %q", r.Product)
	}
	for _, cb := range r.CoBrands {
		if _, ok := c.products[cb.ProductID]; !ok {
			return Range{}, fmt.Errorf("unknown co-brand product %q", cb.ProductID)
		}
	}
	if r.Status == "" {
		r.Status = model.IINSupported
	}
	r.width, r.lo, r.hi = len(r.Start), lo, hi
	return r, nil
}

// ClassifyCardNumber implements classify.Resolver.
func (c *Catalog) ClassifyCardNumber(ctx context.Context, raw string) (model.IINDetails, error) {
	if err := ctx.Err(); err != nil {
		return model.IINDetails{}, err
	}
	digits := onlyDigits(raw)
	if len(digits) < c.lookupDigits {
		return model.IINDetails{Status: model.IINNotEnoughDigits}, nil
	}
	for _, r := range c.ranges {
		if !r.contains(digits) {
			continue
		}
		return model.IINDetails{
			Status:    r.Status,
			ProductID: r.Product,
			CoBrands:  append([]model.CoBrand(nil), r.CoBrands...),
		}, nil
	}
	return model.IINDetails{}, &classify.ResolverError{Op: "iin lookup", Status: http.StatusNotFound, Err: fmt.Errorf("no range for %s", digits[:c.lookupDigits])}
}

// FetchProduct implements classify.Resolver.
func (c *Catalog) FetchProduct(ctx context.Context, id string) (model.NetworkProduct, error) {
	if err := ctx.Err(); err != nil {
		return model.NetworkProduct{}, err
	}
	p, ok := c.products[id]
	if !ok {
		return model.NetworkProduct{}, &classify.ResolverError{Op: "fetch product", Status: http.StatusNotFound, Err: fmt.Errorf("%w: %s", errNoProduct, id)}
	}
	return cloneProduct(p), nil
}

// Products lists the catalog products ordered by id.
func (c *Catalog) Products() []model.NetworkProduct {
	out := make([]model.NetworkProduct, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneProduct(p model.NetworkProduct) model.NetworkProduct {
	out := p
	out.Fields = append([]model.FieldDefinition(nil), p.Fields...)
	if len(p.DisplayHints) > 0 {
		out.DisplayHints = make(map[string]string, len(p.DisplayHints))
		for k, v := range p.DisplayHints {
			out.DisplayHints[k] = v
		}
	}
	return out
}

func onlyDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
