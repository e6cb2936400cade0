package validation

import (
	"time"

	"github.com/goliatone/go-cardform/pkg/model"
)

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source used by expiration date checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithTranslator localizes failure messages for the given locale.
func WithTranslator(locale string, t Translator) Option {
	return func(v *Validator) {
		v.locale = locale
		v.translator = t
	}
}

// WithMissingTranslationHandler overrides the fallback used when a message
// cannot be translated.
func WithMissingTranslationHandler(fn MissingTranslationHandler) Option {
	return func(v *Validator) {
		v.onMissing = fn
	}
}

// Validator evaluates rule lists. It is safe for concurrent use.
type Validator struct {
	now        func() time.Time
	locale     string
	translator Translator
	onMissing  MissingTranslationHandler
}

// New returns a Validator with the supplied options applied.
func New(options ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

var defaultValidator = New()

// Validate checks raw against def using the default Validator.
func Validate(def model.FieldDefinition, raw string) string {
	return defaultValidator.Validate(def, raw)
}

// Validate walks def.Rules in declared order and returns the message of the
// first failing rule, or "" when the value is valid. An empty value on an
// optional field is always valid. A required field without an explicit
// required rule is checked for emptiness before its other rules.
func (v *Validator) Validate(def model.FieldDefinition, raw string) string {
	rule, failed := v.Failing(def, raw)
	if !failed {
		return ""
	}
	return v.message(rule)
}

// Failing returns the first failing rule, if any, without building a message.
func (v *Validator) Failing(def model.FieldDefinition, raw string) (model.Rule, bool) {
	if raw == "" && !def.Required {
		return model.Rule{}, false
	}
	now := v.now()
	if def.Required && !hasRule(def.Rules, model.RuleRequired) {
		required := model.Rule{Kind: model.RuleRequired}
		if !check(required, raw, now) {
			return required, true
		}
	}
	for _, rule := range def.Rules {
		if !check(rule, raw, now) {
			return rule, true
		}
	}
	return model.Rule{}, false
}

func hasRule(rules []model.Rule, kind model.RuleKind) bool {
	for _, rule := range rules {
		if rule.Kind == kind {
			return true
		}
	}
	return false
}
