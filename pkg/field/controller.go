package field

import (
	"fmt"

	"github.com/goliatone/go-cardform/pkg/mask"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/validation"
)

// Controller exposes the masking and validation behaviour shared by every
// field widget. Widgets hold one by composition.
type Controller struct {
	element   *Element
	mask      mask.Mask
	validator *validation.Validator
}

// NewController binds a controller to el. A nil validator uses the package
// default.
func NewController(el *Element, v *validation.Validator) (*Controller, error) {
	if el == nil {
		return nil, fmt.Errorf("field: element is required")
	}
	m, err := mask.Parse(el.Definition.MaskPattern)
	if err != nil {
		return nil, fmt.Errorf("field: %s: %w", el.Definition.ID, err)
	}
	if v == nil {
		v = validation.New()
	}
	return &Controller{element: el, mask: m, validator: v}, nil
}

// Element returns the controlled element.
func (c *Controller) Element() *Element { return c.element }

// Mask returns the parsed mask of the current definition.
func (c *Controller) Mask() mask.Mask { return c.mask }

// Rebind swaps the definition after reconciliation. The raw value is kept
// verbatim and only the display value is regenerated with the new mask. A
// field is revalidated only when it already carried a local error, so
// untouched fields stay quiet.
func (c *Controller) Rebind(def model.FieldDefinition) error {
	m, err := mask.Parse(def.MaskPattern)
	if err != nil {
		return fmt.Errorf("field: %s: %w", def.ID, err)
	}
	c.mask = m
	c.element.Definition = def
	c.element.FormattedValue = m.Format(c.element.RawValue)
	if c.element.Cursor > len([]rune(c.element.FormattedValue)) {
		c.element.Cursor = len([]rune(c.element.FormattedValue))
	}
	if c.element.Errors.Local != "" {
		c.Validate()
	}
	return nil
}

// OnInput applies a user edit: text is the full control text after the edit
// and cursor the caret rune offset. It reformats, moves the caret, drops any
// submission error for the field and revalidates. It reports whether the raw
// value changed.
func (c *Controller) OnInput(text string, cursor int) bool {
	if !c.element.Interactive() {
		return false
	}
	edit := c.mask.Apply(text, cursor)
	changed := edit.Raw != c.element.RawValue

	c.element.RawValue = edit.Raw
	c.element.FormattedValue = edit.Formatted
	c.element.Cursor = edit.Cursor
	c.element.Errors.Submission = ""
	c.Validate()
	return changed
}

// SetValue replaces the raw value programmatically, as a picked option or
// a toggled checkbox does. raw is read as a raw value, not as control text.
// Like OnInput it drops the submission error, revalidates and reports
// whether the raw value changed.
func (c *Controller) SetValue(raw string) bool {
	if !c.element.Interactive() {
		return false
	}
	raw = c.mask.Clean(raw)
	changed := raw != c.element.RawValue

	c.element.RawValue = raw
	c.element.FormattedValue = c.mask.Format(raw)
	c.element.Cursor = len([]rune(c.element.FormattedValue))
	c.element.Errors.Submission = ""
	c.Validate()
	return changed
}

// OnBlur validates the current value.
func (c *Controller) OnBlur() string {
	return c.Validate()
}

// Validate runs the rule list against the raw value and stores the result in
// the local error slot. Classification and submission errors are left alone.
func (c *Controller) Validate() string {
	msg := c.validator.Validate(c.element.Definition, c.mask.Clean(c.element.RawValue))
	c.element.Errors.Local = msg
	return msg
}

// Unmasked returns the canonical value submitted for the field.
func (c *Controller) Unmasked() string {
	return c.mask.Clean(c.element.RawValue)
}
