package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/model"
)

// Mask patterns used by the fixture products.
const (
	CardNumberMask16 = "{{9999}} {{9999}} {{9999}} {{9999}} {{999}}"
	CardNumberMask15 = "{{9999}} {{999999}} {{99999}}"
	ExpiryMask       = "{{99}}/{{99}}"
	CVVMask          = "{{9999}}"
)

// CardNumberField is the card number definition shared by every fixture
// product.
func CardNumberField(mask string) model.FieldDefinition {
	return model.FieldDefinition{
		ID:                 "cardNumber",
		Kind:               model.KindNumeric,
		DisplayOrder:       0,
		Label:              "Card number",
		MaskPattern:        mask,
		Required:           true,
		PreferredInputType: "IntegerKeyboard",
		Rules: []model.Rule{
			{Kind: model.RuleLuhn},
		},
	}
}

// CardFields returns the four field card layout.
func CardFields(numberMask string) []model.FieldDefinition {
	return []model.FieldDefinition{
		CardNumberField(numberMask),
		{
			ID:           "expiryDate",
			Kind:         model.KindExpiry,
			DisplayOrder: 1,
			Label:        "Expiry date",
			Placeholder:  "MM/YY",
			MaskPattern:  ExpiryMask,
			Required:     true,
			Rules:        []model.Rule{{Kind: model.RuleExpirationDate}},
		},
		{
			ID:           "cvv",
			Kind:         model.KindNumeric,
			DisplayOrder: 2,
			Label:        "CVV",
			MaskPattern:  CVVMask,
			Required:     true,
			Obfuscate:    true,
			Rules:        []model.Rule{{Kind: model.RuleLength, MinLength: 3, MaxLength: 4}},
		},
		{
			ID:           "cardholderName",
			Kind:         model.KindText,
			DisplayOrder: 3,
			Label:        "Cardholder name",
			Required:     true,
		},
	}
}

// Visa is a product with the four field card layout.
func Visa() model.NetworkProduct {
	return model.NetworkProduct{
		ID:                 "1",
		Label:              "VISA",
		Fields:             CardFields(CardNumberMask16),
		AllowsTokenization: true,
	}
}

// Mastercard is a second product sharing Visa's layout.
func Mastercard() model.NetworkProduct {
	return model.NetworkProduct{
		ID:                 "3",
		Label:              "MasterCard",
		Fields:             CardFields(CardNumberMask16),
		AllowsTokenization: true,
		AutoTokenized:      true,
	}
}

// Amex uses a 15 digit mask and carries no cardholder name.
func Amex() model.NetworkProduct {
	fields := CardFields(CardNumberMask15)
	return model.NetworkProduct{
		ID:     "2",
		Label:  "American Express",
		Fields: fields[:3],
	}
}

// CartesBancaires is offered as a co-brand of Visa.
func CartesBancaires() model.NetworkProduct {
	fields := CardFields(CardNumberMask16)
	return model.NetworkProduct{
		ID:     "130",
		Label:  "Carte Bancaire",
		Fields: append(fields[:3:3], model.FieldDefinition{ID: "issuerCountry", Kind: model.KindText, DisplayOrder: 4, Label: "Issuer country"}),
	}
}

// Resolver is an in-memory classify.Resolver. Details are chosen by the
// longest matching prefix. Hold blocks lookups of one exact value until the
// returned function is called.
type Resolver struct {
	mu       sync.Mutex
	prefixes map[string]model.IINDetails
	products map[string]model.NetworkProduct
	failures map[string]error
	gates    map[string]chan struct{}
	lookups  []string
}

// NewResolver returns a resolver serving products.
func NewResolver(products ...model.NetworkProduct) *Resolver {
	r := &Resolver{
		prefixes: make(map[string]model.IINDetails),
		products: make(map[string]model.NetworkProduct),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Route answers lookups starting with prefix.
func (r *Resolver) Route(prefix string, details model.IINDetails) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes[prefix] = details
	return r
}

// Fail makes lookups starting with prefix return err.
func (r *Resolver) Fail(prefix string, err error) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[prefix] = err
	return r
}

// Hold blocks the lookup of value until release is called.
func (r *Resolver) Hold(value string) (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.gates[value] = gate
	r.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Lookups returns the values looked up so far.
func (r *Resolver) Lookups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lookups...)
}

// ClassifyCardNumber implements classify.Resolver.
func (r *Resolver) ClassifyCardNumber(ctx context.Context, raw string) (model.IINDetails, error) {
	r.mu.Lock()
	r.lookups = append(r.lookups, raw)
	gate := r.gates[raw]
	details, detailsOK := longestPrefix(r.prefixes, raw)
	failure, failureOK := longestPrefix(r.failures, raw)
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.IINDetails{}, ctx.Err()
		}
	}
	if failureOK {
		return model.IINDetails{}, failure
	}
	if !detailsOK {
		return model.IINDetails{Status: model.IINUnknown}, nil
	}
	return details, nil
}

// FetchProduct implements classify.Resolver.
func (r *Resolver) FetchProduct(_ context.Context, id string) (model.NetworkProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return model.NetworkProduct{}, &classify.ResolverError{Op: "fetch product", Status: http.StatusNotFound, Err: fmt.Errorf("product %s not found", id)}
	}
	return product, nil
}

func longestPrefix[T any](table map[string]T, raw string) (T, bool) {
	var (
		best  T
		found bool
		size  = -1
	)
	for prefix, value := range table {
		if strings.HasPrefix(raw, prefix) && len(prefix) > size {
			best, found, size = value, true, len(prefix)
		}
	}
	return best, found
}

// LoadProducts reads a JSON fixture holding a list of products.
func LoadProducts(path string) ([]model.NetworkProduct, error) {
	if path == "" {
		return nil, errors.New("testsupport: products path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read products: %w", err)
	}
	var out []model.NetworkProduct
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: unmarshal products: %w", err)
	}
	return out, nil
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CaptureOutput executes a render function that writes to an io.Writer and
// returns what was written.
func CaptureOutput(t *testing.T, render func(io.Writer) error) string {
	t.Helper()

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}
