package form

import (
	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/model"
)

// Fields returns a snapshot of the current field set in display order.
func (f *Form) Fields() []*field.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return field.CloneAll(f.elements)
}

// Field returns a snapshot of one field.
func (f *Form) Field(id string) (*field.Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := field.Find(f.elements, id)
	return el.Clone(), ok
}

// Product returns the active product, nil when none is resolved.
func (f *Form) Product() *model.NetworkProduct {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.product == nil {
		return nil
	}
	product := *f.product
	return &product
}

// CoBrands returns the selectable co-brand alternatives.
func (f *Form) CoBrands() []model.NetworkProduct {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NetworkProduct(nil), f.coBrands...)
}

// SessionExpired reports whether the resolver rejected the session.
func (f *Form) SessionExpired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired
}

// Loading reports whether a classification is in flight.
func (f *Form) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, el := range f.elements {
		if el.Loading {
			return true
		}
	}
	return false
}

// ShowRememberMe reports whether the active product offers the remember-me
// option. Recurring payments never do.
func (f *Form) ShowRememberMe() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.product != nil && !f.recurring && f.product.AllowsTokenization && !f.product.AutoTokenized
}

// FirstInteractive returns the id of the first field that is neither
// disabled nor readonly, the autofocus target.
func (f *Form) FirstInteractive() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, el := range f.elements {
		if el.Interactive() {
			return el.ID(), true
		}
	}
	return "", false
}

// Hints returns the input hints for a field.
func (f *Form) Hints(id string) (field.InputHints, bool) {
	f.mu.Lock()
	el, ok := field.Find(f.elements, id)
	var def model.FieldDefinition
	if ok {
		def = el.Definition
	}
	f.mu.Unlock()
	if !ok {
		return field.InputHints{}, false
	}
	hints, _ := f.hints.Resolve(def)
	return hints, true
}
