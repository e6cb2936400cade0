// Package form owns the live field set of one card payment form and drives
// classification, reconciliation, account overlay and submission around it.
//
// All state is guarded by a single mutex that plays the role of a UI event
// loop. Classification runs on its own goroutine and re-enters the lock to
// apply its result only if no newer card number was entered meanwhile.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/overlay"
	"github.com/goliatone/go-cardform/pkg/reconcile"
	"github.com/goliatone/go-cardform/pkg/submit"
	"github.com/goliatone/go-cardform/pkg/validation"
)

// DefaultCardNumberField is the id of the field that drives classification.
const DefaultCardNumberField = "cardNumber"

// Option configures a Form.
type Option func(*Form)

// WithLogger sets the form logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithValidator sets the validator shared by every field controller.
func WithValidator(v *validation.Validator) Option {
	return func(f *Form) {
		if v != nil {
			f.validator = v
		}
	}
}

// WithCardNumberField overrides DefaultCardNumberField.
func WithCardNumberField(id string) Option {
	return func(f *Form) {
		if id != "" {
			f.cardField = id
		}
	}
}

// WithFields sets the initial field set used until a product is resolved.
func WithFields(defs ...model.FieldDefinition) Option {
	return func(f *Form) {
		f.initial = append(f.initial, defs...)
	}
}

// WithProduct starts the form with an active product.
func WithProduct(product model.NetworkProduct) Option {
	return func(f *Form) {
		f.initialProduct = &product
	}
}

// WithAccount starts the form with an account overlay.
func WithAccount(account *model.AccountOverlay) Option {
	return func(f *Form) {
		f.account = account
	}
}

// WithRecurring marks the payment as recurring, hiding the remember-me
// option.
func WithRecurring(recurring bool) Option {
	return func(f *Form) {
		f.recurring = recurring
	}
}

// WithHints replaces the input hint registry.
func WithHints(reg *field.HintRegistry) Option {
	return func(f *Form) {
		if reg != nil {
			f.hints = reg
		}
	}
}

// WithSubmitOptions forwards options to the submission coordinator.
func WithSubmitOptions(options ...submit.Option) Option {
	return func(f *Form) {
		f.submitOptions = append(f.submitOptions, options...)
	}
}

// Form is one payment form instance. Methods are safe for concurrent use.
type Form struct {
	mu          sync.Mutex
	elements    []*field.Element
	controllers map[string]*field.Controller
	product     *model.NetworkProduct
	coBrands    []model.NetworkProduct
	account     *model.AccountOverlay
	expired     bool

	cardField      string
	recurring      bool
	initial        []model.FieldDefinition
	initialProduct *model.NetworkProduct
	submitOptions  []submit.Option

	classifier  *classify.Classifier
	coordinator *submit.Coordinator
	validator   *validation.Validator
	hints       *field.HintRegistry
	tracker     classify.Tracker
	logger      *zap.Logger
	events      bus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a form. The classifier resolves card numbers; session encrypts
// values on submit.
func New(classifier *classify.Classifier, session submit.Session, options ...Option) (*Form, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	f := &Form{
		controllers: make(map[string]*field.Controller),
		cardField:   DefaultCardNumberField,
		classifier:  classifier,
		validator:   validation.New(),
		hints:       field.NewHintRegistry(),
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	f.coordinator = submit.NewCoordinator(session, append([]submit.Option{
		submit.WithLogger(f.logger),
		submit.WithValidator(f.validator),
	}, f.submitOptions...)...)
	f.ctx, f.cancel = context.WithCancel(context.Background())

	f.elements = reconcile.Reconcile(nil, f.initial)
	f.bindControllers()
	if f.initialProduct != nil {
		f.setProduct(f.initialProduct)
	}
	overlay.Apply(f.elements, f.account)
	return f, nil
}

// Subscribe registers fn for every event and returns a function that
// removes it.
func (f *Form) Subscribe(fn Listener) (unsubscribe func()) {
	return f.events.subscribe(fn)
}

// OnInput applies an edit to a field: text is the full control text and
// cursor the caret rune offset. Editing the card number starts a new
// classification.
func (f *Form) OnInput(fieldID, text string, cursor int) error {
	f.mu.Lock()
	ctrl, ok := f.controllers[fieldID]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, fieldID)
	}
	changed := ctrl.OnInput(text, cursor)
	var events []Event
	if changed && fieldID == f.cardField {
		events = f.startClassification(ctrl)
	}
	f.mu.Unlock()

	f.events.publish(events...)
	return nil
}

// SetValue sets a field's raw value without a caret, for choices that are
// picked rather than typed. Setting the card number starts a new
// classification.
func (f *Form) SetValue(fieldID, raw string) error {
	f.mu.Lock()
	ctrl, ok := f.controllers[fieldID]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, fieldID)
	}
	changed := ctrl.SetValue(raw)
	var events []Event
	if changed && fieldID == f.cardField {
		events = f.startClassification(ctrl)
	}
	f.mu.Unlock()

	f.events.publish(events...)
	return nil
}

// OnBlur validates a field and returns its active error.
func (f *Form) OnBlur(fieldID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctrl, ok := f.controllers[fieldID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, fieldID)
	}
	ctrl.OnBlur()
	return ctrl.Element().ValidityError(), nil
}

// SelectCoBrand makes one of the offered co-brands the active product.
func (f *Form) SelectCoBrand(productID string) error {
	f.mu.Lock()
	var selected *model.NetworkProduct
	for i := range f.coBrands {
		if f.coBrands[i].ID == productID {
			product := f.coBrands[i]
			selected = &product
			break
		}
	}
	if selected == nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownCoBrand, productID)
	}
	events := f.setProduct(selected)
	f.mu.Unlock()

	f.events.publish(events...)
	return nil
}

// SetOverlay replaces the account overlay and applies it to the current
// field set. A nil overlay only stops future applications.
func (f *Form) SetOverlay(account *model.AccountOverlay) {
	f.mu.Lock()
	f.account = account
	overlay.Apply(f.elements, account)
	f.mu.Unlock()
}

// Submit sends the writable values to the session. The lock is released
// while the session runs; rejected fields are mapped back onto the live set
// afterwards.
func (f *Form) Submit(ctx context.Context, rememberMe bool) (submit.Payload, error) {
	f.mu.Lock()
	if f.ctx.Err() != nil {
		f.mu.Unlock()
		return "", ErrClosed
	}
	if f.expired {
		f.mu.Unlock()
		return "", ErrSessionExpired
	}
	for _, el := range f.elements {
		el.Errors.Submission = ""
	}
	snapshot := field.CloneAll(f.elements)
	account := f.account
	f.mu.Unlock()

	payload, err := f.coordinator.Submit(ctx, snapshot, account, rememberMe)
	if err != nil {
		var fieldErrs *submit.FieldErrors
		if errors.As(err, &fieldErrs) {
			f.mu.Lock()
			for id, messages := range fieldErrs.Fields {
				ctrl, ok := f.controllers[id]
				if !ok {
					continue
				}
				ctrl.Element().Errors.Submission = messages[0]
				ctrl.Validate()
			}
			f.mu.Unlock()
		}
		return "", err
	}

	f.events.publish(Event{Type: EventSubmitted, Payload: payload})
	return payload, nil
}

// Wait blocks until every in-flight classification has been applied or
// discarded.
func (f *Form) Wait() {
	f.wg.Wait()
}

// Close cancels in-flight classifications and waits for them to return.
// Their results are discarded.
func (f *Form) Close() {
	f.mu.Lock()
	f.cancel()
	f.tracker.Invalidate()
	f.mu.Unlock()
	f.wg.Wait()
}
