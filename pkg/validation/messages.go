package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-cardform/pkg/model"
)

// ErrMissingTranslator is passed to the MissingTranslationHandler when no
// Translator is configured.
var ErrMissingTranslator = errors.New("validation: translator is not configured")

// Translator resolves localized strings for message keys such as
// "validation.required". Params carry rule details (minLength, maxLength).
type Translator interface {
	Translate(locale, key string, params ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, params ...any) (string, error)

// Translate calls the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, params ...any) (string, error) {
	return fn(locale, key, params...)
}

// MissingTranslationHandler decides the message used when translation fails.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

// MessageKey returns the translation key for a rule kind.
func MessageKey(kind model.RuleKind) string {
	return "validation." + string(kind)
}

// DefaultMessage is the English message shown for a failing rule.
func DefaultMessage(rule model.Rule) string {
	switch rule.Kind {
	case model.RuleEmailAddress:
		return "Please enter a valid email address"
	case model.RuleExpirationDate:
		return "Please enter a valid expiration date"
	case model.RuleIBAN:
		return "Please enter valid iban"
	case model.RuleLuhn:
		return "Please enter a valid credit card number"
	case model.RuleRequired:
		return "This field is required"
	case model.RuleRegularExpression:
		return "Please enter valid data"
	case model.RuleLength:
		if rule.MinLength == rule.MaxLength {
			return fmt.Sprintf("Please enter a value of length %d", rule.MinLength)
		}
		return fmt.Sprintf("Please enter a valid length between %d and %d", rule.MinLength, rule.MaxLength)
	default:
		return "Invalid value"
	}
}

func (v *Validator) message(rule model.Rule) string {
	fallback := DefaultMessage(rule)
	key := MessageKey(rule.Kind)
	params := []any{map[string]any{
		"default":   fallback,
		"minLength": rule.MinLength,
		"maxLength": rule.MaxLength,
	}}

	if v.translator == nil {
		if v.onMissing != nil {
			return v.onMissing(v.locale, key, params, ErrMissingTranslator)
		}
		return fallback
	}

	result, err := v.translator.Translate(v.locale, key, params...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	if v.onMissing != nil {
		return v.onMissing(v.locale, key, params, err)
	}
	return fallback
}
