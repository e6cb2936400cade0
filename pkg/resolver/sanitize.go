// Package resolver holds helpers shared by the network resolver
// implementations.
package resolver

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-cardform/pkg/model"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitizer is a model.Decorator that strips markup from resolver supplied
// display text. Labels, tooltips, placeholders and option labels end up in
// rendered output, so they are reduced to plain text.
type Sanitizer struct{}

// Decorate implements model.Decorator.
func (Sanitizer) Decorate(product *model.NetworkProduct) error {
	product.Label = SanitizeText(product.Label)
	fields := make([]model.FieldDefinition, len(product.Fields))
	for i, def := range product.Fields {
		def.Label = SanitizeText(def.Label)
		def.Tooltip = SanitizeText(def.Tooltip)
		def.Placeholder = SanitizeText(def.Placeholder)
		if len(def.Options) > 0 {
			options := make([]model.Option, len(def.Options))
			for j, opt := range def.Options {
				options[j] = model.Option{Value: opt.Value, Label: SanitizeText(opt.Label)}
			}
			def.Options = options
		}
		fields[i] = def
	}
	product.Fields = fields
	return nil
}

// SanitizeText removes every HTML element from raw and returns plain,
// unescaped text.
func SanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy().Sanitize(trimmed)))
}

func strictPolicy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
