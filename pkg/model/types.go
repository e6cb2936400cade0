package model

import "strings"

// Kind is the closed set of form controls a field can render as.
type Kind string

const (
	KindText     Kind = "text"
	KindNumeric  Kind = "numeric"
	KindExpiry   Kind = "expiry"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindNumeric, KindExpiry, KindSelect, KindCheckbox, KindRadio:
		return true
	default:
		return false
	}
}

// RuleKind identifies a validation rule variant.
type RuleKind string

const (
	RuleRequired          RuleKind = "required"
	RuleRegularExpression RuleKind = "regularExpression"
	RuleLength            RuleKind = "length"
	RuleLuhn              RuleKind = "luhn"
	RuleExpirationDate    RuleKind = "expirationDate"
	RuleEmailAddress      RuleKind = "emailAddress"
	RuleIBAN              RuleKind = "iban"
)

// Rule is a tagged variant over the supported validation rules. Only the
// parameters relevant to Kind are read: MinLength/MaxLength for length rules
// and Pattern for regular expressions.
type Rule struct {
	Kind      RuleKind `json:"kind" yaml:"kind"`
	MinLength int      `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Option is a selectable value for select and radio fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldDefinition describes one form field as supplied by the network
// resolver. IDs are unique within one product's field set.
type FieldDefinition struct {
	ID                 string   `json:"id" yaml:"id"`
	Kind               Kind     `json:"kind" yaml:"kind"`
	DisplayOrder       int      `json:"displayOrder" yaml:"displayOrder"`
	Label              string   `json:"label,omitempty" yaml:"label,omitempty"`
	Tooltip            string   `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Placeholder        string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	MaskPattern        string   `json:"mask,omitempty" yaml:"mask,omitempty"`
	Required           bool     `json:"required" yaml:"required"`
	Obfuscate          bool     `json:"obfuscate,omitempty" yaml:"obfuscate,omitempty"`
	PreferredInputType string   `json:"preferredInputType,omitempty" yaml:"preferredInputType,omitempty"`
	Options            []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Rules              []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// NetworkProduct is a resolved card network together with its field set.
// CoBrands are mutually exclusive alternatives for the same card number.
type NetworkProduct struct {
	ID                 string            `json:"id" yaml:"id"`
	Label              string            `json:"label,omitempty" yaml:"label,omitempty"`
	Logo               string            `json:"logo,omitempty" yaml:"logo,omitempty"`
	Fields             []FieldDefinition `json:"fields" yaml:"fields"`
	CoBrands           []NetworkProduct  `json:"coBrands,omitempty" yaml:"coBrands,omitempty"`
	AllowsTokenization bool              `json:"allowsTokenization,omitempty" yaml:"allowsTokenization,omitempty"`
	AutoTokenized      bool              `json:"autoTokenized,omitempty" yaml:"autoTokenized,omitempty"`
	DisplayHints       map[string]string `json:"displayHints,omitempty" yaml:"displayHints,omitempty"`
}

// Field returns the definition with the supplied id.
func (p NetworkProduct) Field(id string) (FieldDefinition, bool) {
	for _, def := range p.Fields {
		if def.ID == id {
			return def, true
		}
	}
	return FieldDefinition{}, false
}

// IINStatus is the outcome of an IIN lookup.
type IINStatus string

const (
	IINSupported          IINStatus = "SUPPORTED"
	IINExistingNotAllowed IINStatus = "EXISTING_BUT_NOT_ALLOWED"
	IINNotEnoughDigits    IINStatus = "NOT_ENOUGH_DIGITS"
	IINUnknown            IINStatus = "UNKNOWN"
)

// CoBrand references an alternative product for the same card number.
type CoBrand struct {
	ProductID        string `json:"paymentProductId" yaml:"productId"`
	AllowedInContext bool   `json:"isAllowedInContext" yaml:"allowed"`
}

// IINDetails is the raw lookup answer for a partial card number.
type IINDetails struct {
	Status    IINStatus `json:"status"`
	ProductID string    `json:"paymentProductId,omitempty"`
	CoBrands  []CoBrand `json:"coBrands,omitempty"`
}

// AttributeStatus controls how an account-on-file attribute may be edited.
type AttributeStatus string

const (
	StatusReadOnly    AttributeStatus = "READ_ONLY"
	StatusCanWrite    AttributeStatus = "CAN_WRITE"
	StatusMustWrite   AttributeStatus = "MUST_WRITE"
	StatusNotWritable AttributeStatus = "NOT_WRITABLE"
)

// Writable reports whether the status lets the user supply a value.
func (s AttributeStatus) Writable() bool {
	return s == StatusCanWrite || s == StatusMustWrite
}

// Attribute is a single stored value for one field id.
type Attribute struct {
	Key    string          `json:"key" yaml:"key"`
	Status AttributeStatus `json:"status" yaml:"status"`
	Value  string          `json:"value" yaml:"value"`
}

// AccountOverlay is a previously stored, partially redacted payment account.
type AccountOverlay struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	ProductID  string      `json:"productId,omitempty" yaml:"productId,omitempty"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
}

// Attribute looks up the overlay attribute for a field id.
func (o *AccountOverlay) Attribute(key string) (Attribute, bool) {
	if o == nil {
		return Attribute{}, false
	}
	key = strings.TrimSpace(key)
	for _, attr := range o.Attributes {
		if attr.Key == key {
			return attr, true
		}
	}
	return Attribute{}, false
}
