// Package overlay applies a stored account's prefilled values and write
// status onto reconciled form fields.
package overlay

import (
	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/mask"
	"github.com/goliatone/go-cardform/pkg/model"
)

// Apply updates elements in place. Fields without a matching attribute are
// left untouched. Every write is derived from the overlay alone, so applying
// the same overlay twice yields the same state.
//
//	READ_ONLY             readonly, shown with the wildcard mask
//	CAN_WRITE/MUST_WRITE  editable, raw value prefilled
//	anything else         disabled, shown with the wildcard mask
func Apply(elements []*field.Element, account *model.AccountOverlay) {
	if account == nil {
		return
	}
	for _, el := range elements {
		if el == nil {
			continue
		}
		attr, ok := account.Attribute(el.Definition.ID)
		if !ok {
			continue
		}
		applyAttribute(el, attr)
	}
}

func applyAttribute(el *field.Element, attr model.Attribute) {
	m := maskFor(el.Definition)

	switch {
	case attr.Status == model.StatusReadOnly:
		el.Readonly = true
		el.Disabled = false
		el.RawValue = m.UnformatWildcard(attr.Value)
		el.FormattedValue = m.FormatWildcard(el.RawValue)
	case attr.Status.Writable():
		el.Readonly = false
		el.Disabled = false
		el.RawValue = m.Unformat(attr.Value)
		el.FormattedValue = m.Format(el.RawValue)
	default:
		el.Readonly = false
		el.Disabled = true
		el.RawValue = m.UnformatWildcard(attr.Value)
		el.FormattedValue = m.FormatWildcard(el.RawValue)
	}
	el.Cursor = len([]rune(el.FormattedValue))
	el.Errors = field.Errors{}
}

// maskFor falls back to the identity mask when the definition carries a
// pattern that does not parse; the value is then shown verbatim.
func maskFor(def model.FieldDefinition) mask.Mask {
	m, err := mask.Parse(def.MaskPattern)
	if err != nil {
		return mask.Mask{}
	}
	return m
}

// Writable reports whether el contributes a value on submission. An overlay
// attribute decides when present; otherwise the element must be neither
// disabled nor readonly.
func Writable(el *field.Element, account *model.AccountOverlay) bool {
	if el == nil {
		return false
	}
	if attr, ok := account.Attribute(el.Definition.ID); ok {
		return attr.Status.Writable()
	}
	return !el.Disabled && !el.Readonly
}
