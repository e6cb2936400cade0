// Package field holds the live, mutable state of one rendered form field and
// the Controller that widgets embed to drive it.
package field

import "github.com/goliatone/go-cardform/pkg/model"

// Errors keeps each error source in its own slot so neither source clears
// the other. ValidityError picks the one to show.
type Errors struct {
	Local          string `json:"local,omitempty"`
	Classification string `json:"classification,omitempty"`
	Submission     string `json:"submission,omitempty"`
}

// Active returns the message to display using the precedence
// Local > Classification > Submission.
func (e Errors) Active() string {
	switch {
	case e.Local != "":
		return e.Local
	case e.Classification != "":
		return e.Classification
	default:
		return e.Submission
	}
}

// Element is one live form field. It is owned by a single form instance.
type Element struct {
	Definition     model.FieldDefinition `json:"definition"`
	RawValue       string                `json:"rawValue"`
	FormattedValue string                `json:"formattedValue"`
	Cursor         int                   `json:"cursor"`
	Disabled       bool                  `json:"disabled"`
	Readonly       bool                  `json:"readonly"`
	Loading        bool                  `json:"loading"`
	Errors         Errors                `json:"errors"`
}

// New creates an empty element for def.
func New(def model.FieldDefinition) *Element {
	return &Element{Definition: def}
}

// ID is the definition id.
func (e *Element) ID() string {
	if e == nil {
		return ""
	}
	return e.Definition.ID
}

// ValidityError is the single message shown for the field, "" when valid.
func (e *Element) ValidityError() string {
	if e == nil {
		return ""
	}
	return e.Errors.Active()
}

// Valid reports whether no error is pending.
func (e *Element) Valid() bool {
	return e.ValidityError() == ""
}

// Interactive reports whether the user can edit the field.
func (e *Element) Interactive() bool {
	return e != nil && !e.Disabled && !e.Readonly
}

// Clone returns a deep copy. Definitions are immutable and shared.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// CloneAll copies a slice of elements.
func CloneAll(elements []*Element) []*Element {
	if elements == nil {
		return nil
	}
	out := make([]*Element, len(elements))
	for i, el := range elements {
		out[i] = el.Clone()
	}
	return out
}

// Find returns the element with the supplied id.
func Find(elements []*Element, id string) (*Element, bool) {
	for _, el := range elements {
		if el != nil && el.Definition.ID == id {
			return el, true
		}
	}
	return nil, false
}
