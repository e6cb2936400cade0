// Package tui fills a card form from the terminal. Each interactive field is
// prompted in display order; fields added by classification are picked up
// as soon as they appear.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/form"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/submit"
)

// Renderer drives a form.Form through a PromptDriver.
type Renderer struct {
	driver      PromptDriver
	theme       Theme
	maxAttempts int
	logger      *zap.Logger
}

// New constructs a TUI renderer backed by the survey driver unless another
// driver is supplied.
func New(options ...Option) *Renderer {
	r := &Renderer{
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// Fill prompts until every interactive field holds a valid value, then
// submits. Fields rejected by the session are prompted again, up to the
// configured number of attempts.
func (r *Renderer) Fill(ctx context.Context, f *form.Form) (submit.Payload, error) {
	if ctx == nil {
		return "", errors.New("tui: context is required")
	}
	if f == nil {
		return "", errors.New("tui: form is required")
	}

	var only map[string]bool
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := r.collect(ctx, f, only); err != nil {
			return "", err
		}

		remember := false
		if f.ShowRememberMe() {
			ok, err := r.driver.Confirm(ctx, ConfirmConfig{
				Message: "Remember this card for future payments?",
			})
			if err != nil {
				return "", err
			}
			remember = ok
		}

		payload, err := f.Submit(ctx, remember)
		if err == nil {
			r.info(ctx, "Payment details accepted")
			return payload, nil
		}
		var rejected *submit.FieldErrors
		if !errors.As(err, &rejected) {
			return "", err
		}
		for _, msg := range rejected.Form {
			r.fail(ctx, msg)
		}
		only = make(map[string]bool, len(rejected.Fields))
		for id := range rejected.Fields {
			only[id] = true
		}
		r.logger.Debug("submission rejected",
			zap.Int("attempt", attempt),
			zap.Int("fields", len(rejected.Fields)),
			zap.Int("form", len(rejected.Form)))
	}
	return "", ErrTooManyAttempts
}

// collect prompts every pending field. A nil only means every interactive
// field is pending; otherwise only the listed ids and fields with an error
// are.
func (r *Renderer) collect(ctx context.Context, f *form.Form, only map[string]bool) error {
	r.showReadonly(ctx, f.Fields())

	done := make(map[string]bool)
	offered := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.Wait()
		if f.SessionExpired() {
			return form.ErrSessionExpired
		}
		if err := r.offerCoBrands(ctx, f, &offered); err != nil {
			return err
		}

		el, ok := nextField(f.Fields(), done, only)
		if !ok {
			return nil
		}
		done[el.ID()] = true
		if err := r.promptField(ctx, f, el); err != nil {
			return err
		}
	}
}

func nextField(elements []*field.Element, done, only map[string]bool) (*field.Element, bool) {
	for _, el := range elements {
		if !el.Interactive() || done[el.ID()] {
			continue
		}
		if only != nil && !only[el.ID()] && el.Valid() {
			continue
		}
		return el, true
	}
	return nil, false
}

func (r *Renderer) showReadonly(ctx context.Context, elements []*field.Element) {
	for _, el := range elements {
		if el.Readonly && !el.Disabled {
			r.info(ctx, fmt.Sprintf("%s: %s", displayLabel(el.Definition), el.FormattedValue))
		}
	}
}

func (r *Renderer) promptField(ctx context.Context, f *form.Form, el *field.Element) error {
	def := el.Definition
	if msg := el.ValidityError(); msg != "" {
		r.fail(ctx, fmt.Sprintf("%s: %s", displayLabel(def), msg))
	}

	switch def.Kind {
	case model.KindText, model.KindNumeric, model.KindExpiry:
		return r.promptText(ctx, f, el)
	case model.KindSelect, model.KindRadio:
		return r.promptChoice(ctx, f, el)
	case model.KindCheckbox:
		return r.promptCheckbox(ctx, f, el)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, def.Kind)
	}
}

func (r *Renderer) promptText(ctx context.Context, f *form.Form, el *field.Element) error {
	def := el.Definition
	label := displayLabel(def)
	defaultVal := el.FormattedValue

	for {
		cfg := InputConfig{
			Message: label,
			Default: defaultVal,
			Help:    displayHelp(def),
		}
		var text string
		var err error
		if def.Obfuscate {
			cfg.Default = ""
			text, err = r.driver.Password(ctx, cfg)
		} else {
			text, err = r.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}

		msg, err := apply(f, def.ID, text)
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		r.fail(ctx, fmt.Sprintf("%s: %s", label, msg))
		if current, ok := f.Field(def.ID); ok {
			defaultVal = current.FormattedValue
		}
	}
}

func (r *Renderer) promptChoice(ctx context.Context, f *form.Form, el *field.Element) error {
	def := el.Definition
	label := displayLabel(def)
	options := make([]string, len(def.Options))
	defaultIdx := -1
	for i, opt := range def.Options {
		options[i] = opt.Label
		if options[i] == "" {
			options[i] = opt.Value
		}
		if opt.Value == el.RawValue {
			defaultIdx = i
		}
	}

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      options,
			DefaultIndex: defaultIdx,
			Help:         displayHelp(def),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			r.fail(ctx, fmt.Sprintf("Invalid %s selection", label))
			continue
		}
		value := def.Options[idx].Value
		msg, err := choose(f, def.ID, value)
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		r.fail(ctx, fmt.Sprintf("%s: %s", label, msg))
	}
}

func (r *Renderer) promptCheckbox(ctx context.Context, f *form.Form, el *field.Element) error {
	def := el.Definition
	for {
		checked, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: displayLabel(def),
			Default: el.RawValue == checkboxOn,
			Help:    displayHelp(def),
		})
		if err != nil {
			return err
		}
		value := ""
		if checked {
			value = checkboxOn
		}
		msg, err := choose(f, def.ID, value)
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		r.fail(ctx, fmt.Sprintf("%s: %s", displayLabel(def), msg))
	}
}

// checkboxOn is the raw value of a checked box; unchecked is empty so the
// required rule rejects it.
const checkboxOn = "true"

// offerCoBrands asks for a network once per distinct co-brand list.
func (r *Renderer) offerCoBrands(ctx context.Context, f *form.Form, offered *string) error {
	coBrands := f.CoBrands()
	if len(coBrands) < 2 {
		return nil
	}
	ids := make([]string, len(coBrands))
	options := make([]string, len(coBrands))
	defaultIdx := 0
	current := f.Product()
	for i, product := range coBrands {
		ids[i] = product.ID
		options[i] = product.Label
		if options[i] == "" {
			options[i] = product.ID
		}
		if current != nil && current.ID == product.ID {
			defaultIdx = i
		}
	}
	key := strings.Join(ids, ",")
	if key == *offered {
		return nil
	}
	*offered = key

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      "Card network",
			Options:      options,
			DefaultIndex: defaultIdx,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(coBrands) {
			r.fail(ctx, "Invalid card network selection")
			continue
		}
		return f.SelectCoBrand(coBrands[idx].ID)
	}
}

// apply feeds text to the field as a single edit with the caret at the end
// and returns the error shown once classification has settled.
func apply(f *form.Form, id, text string) (string, error) {
	if err := f.OnInput(id, text, utf8.RuneCountInString(text)); err != nil {
		return "", err
	}
	f.Wait()
	return f.OnBlur(id)
}

// choose sets a picked value and returns the error shown once
// classification has settled.
func choose(f *form.Form, id, value string) (string, error) {
	if err := f.SetValue(id, value); err != nil {
		return "", err
	}
	f.Wait()
	return f.OnBlur(id)
}

func (r *Renderer) info(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) fail(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func displayLabel(def model.FieldDefinition) string {
	if strings.TrimSpace(def.Label) != "" {
		return def.Label
	}
	return def.ID
}

func displayHelp(def model.FieldDefinition) string {
	if def.Tooltip != "" {
		return def.Tooltip
	}
	return def.Placeholder
}
