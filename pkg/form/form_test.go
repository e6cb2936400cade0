package form_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/form"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/submit"
	"github.com/goliatone/go-cardform/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newResolver() *testsupport.Resolver {
	visa := testsupport.Visa()
	mc := testsupport.Mastercard()
	return testsupport.NewResolver(visa, mc, testsupport.Amex(), testsupport.CartesBancaires()).
		Route("4", model.IINDetails{Status: model.IINSupported, ProductID: visa.ID}).
		Route("5", model.IINDetails{Status: model.IINSupported, ProductID: mc.ID}).
		Route("34", model.IINDetails{Status: model.IINSupported, ProductID: "2"}).
		Route("37", model.IINDetails{Status: model.IINSupported, ProductID: "2"}).
		Route("6", model.IINDetails{Status: model.IINExistingNotAllowed, ProductID: "128"})
}

type recorder struct {
	mu     sync.Mutex
	events []form.Event
}

func (r *recorder) listen(e form.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []form.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]form.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newForm(t *testing.T, resolver classify.Resolver, session submit.Session, options ...form.Option) *form.Form {
	t.Helper()
	return newFormWith(t, classify.New(resolver, classify.WithMinDigits(4)), session, options...)
}

func newFormWith(t *testing.T, classifier *classify.Classifier, session submit.Session, options ...form.Option) *form.Form {
	t.Helper()
	options = append([]form.Option{form.WithFields(testsupport.CardNumberField(testsupport.CardNumberMask16))}, options...)
	f, err := form.New(classifier, session, options...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	t.Cleanup(f.Close)
	return f
}

func ids(elements []*field.Element) []string {
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		out = append(out, el.ID())
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestVisaClassificationReconcilesFields(t *testing.T) {
	f := newForm(t, newResolver(), nil)
	rec := &recorder{}
	f.Subscribe(rec.listen)

	if err := f.OnInput("cardNumber", "4111", 4); err != nil {
		t.Fatalf("input: %v", err)
	}
	f.Wait()

	fields := f.Fields()
	if diff := cmp.Diff([]string{"cardNumber", "expiryDate", "cvv", "cardholderName"}, ids(fields)); diff != "" {
		t.Fatalf("field set mismatch (-want +got):\n%s", diff)
	}
	for _, el := range fields {
		want := ""
		if el.ID() == "cardNumber" {
			want = "4111"
		}
		if el.RawValue != want {
			t.Fatalf("field %s: want raw %q, got %q", el.ID(), want, el.RawValue)
		}
		if el.Loading {
			t.Fatalf("field %s still loading", el.ID())
		}
	}
	if p := f.Product(); p == nil || p.ID != testsupport.Visa().ID {
		t.Fatalf("expected visa product, got %+v", p)
	}
	want := []form.EventType{form.EventProductChanged, form.EventFieldsReconciled}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSupersededResultIsDiscarded(t *testing.T) {
	resolver := newResolver()
	releaseA := resolver.Hold("4111")
	releaseB := resolver.Hold("5555")
	core, logs := observer.New(zapcore.DebugLevel)
	f := newForm(t, resolver, nil, form.WithLogger(zap.New(core)))

	_ = f.OnInput("cardNumber", "4111", 4)
	_ = f.OnInput("cardNumber", "5555", 4)

	releaseB()
	waitFor(t, func() bool { return f.Product() != nil })
	releaseA()
	f.Wait()

	if p := f.Product(); p.ID != testsupport.Mastercard().ID {
		t.Fatalf("stale result applied: got product %s", p.ID)
	}
	if logs.FilterMessage("discarding superseded classification").Len() != 1 {
		t.Fatalf("expected the stale result to be discarded")
	}
}

func TestSupersededResultWhileNewerPending(t *testing.T) {
	resolver := newResolver()
	releaseA := resolver.Hold("4111")
	releaseB := resolver.Hold("5555")
	core, logs := observer.New(zapcore.DebugLevel)
	f := newForm(t, resolver, nil, form.WithLogger(zap.New(core)))

	_ = f.OnInput("cardNumber", "4111", 4)
	_ = f.OnInput("cardNumber", "5555", 4)

	releaseA()
	waitFor(t, func() bool {
		return logs.FilterMessage("discarding superseded classification").Len() == 1
	})
	if p := f.Product(); p != nil {
		t.Fatalf("product must stay unset while the newer lookup is pending, got %s", p.ID)
	}
	if card, _ := f.Field("cardNumber"); !card.Loading {
		t.Fatalf("card number should still be loading")
	}

	releaseB()
	f.Wait()
	if p := f.Product(); p == nil || p.ID != testsupport.Mastercard().ID {
		t.Fatalf("expected mastercard, got %+v", p)
	}
}

func TestBelowThresholdSkipsLookupAndKeepsProduct(t *testing.T) {
	resolver := newResolver()
	f := newFormWith(t, classify.New(resolver), nil)

	_ = f.OnInput("cardNumber", "411111", 6)
	f.Wait()
	if f.Product() == nil {
		t.Fatalf("expected product after six digits")
	}

	release := resolver.Hold("4111112")
	_ = f.OnInput("cardNumber", "4111 112", 8)
	_ = f.OnInput("cardNumber", "4111", 4)
	release()
	f.Wait()

	if diff := cmp.Diff([]string{"411111", "4111112"}, resolver.Lookups()); diff != "" {
		t.Fatalf("lookups mismatch (-want +got):\n%s", diff)
	}
	card, _ := f.Field("cardNumber")
	if card.Loading || card.Errors.Classification != "" {
		t.Fatalf("below threshold input should clear classification state: %+v", card)
	}
	if p := f.Product(); p == nil || p.ID != testsupport.Visa().ID {
		t.Fatalf("active product should be kept below threshold, got %+v", p)
	}
	if len(f.Fields()) != 4 {
		t.Fatalf("field set should be kept below threshold")
	}
}

func TestUnsupportedClearsProductKeepsFields(t *testing.T) {
	f := newForm(t, newResolver(), nil)
	_ = f.OnInput("cardNumber", "4111", 4)
	f.Wait()

	_ = f.OnInput("cardNumber", "6011", 4)
	f.Wait()

	if f.Product() != nil {
		t.Fatalf("product should be cleared for unsupported card")
	}
	card, _ := f.Field("cardNumber")
	if card.Errors.Classification != form.MessageUnsupported {
		t.Fatalf("expected unsupported message, got %q", card.Errors.Classification)
	}
	if card.ValidityError() != "Please enter a valid credit card number" {
		t.Fatalf("local luhn error should take precedence, got %q", card.ValidityError())
	}
	if len(f.Fields()) != 4 {
		t.Fatalf("field set should be left unchanged")
	}

	_ = f.OnInput("cardNumber", "601", 3)
	card, _ = f.Field("cardNumber")
	if card.Errors.Classification != "" {
		t.Fatalf("input change should clear the classification error")
	}
}

func TestClassificationFailurePolicy(t *testing.T) {
	resolver := newResolver().
		Fail("9", &classify.ResolverError{Op: "iin", Status: http.StatusNotFound, Err: errors.New("no range")}).
		Fail("8", &classify.ResolverError{Op: "iin", Status: http.StatusForbidden, Err: errors.New("session rejected")})
	f := newForm(t, resolver, submit.SessionFunc(func(context.Context, map[string]string, bool) (submit.Payload, error) {
		return "unexpected", nil
	}))
	rec := &recorder{}
	f.Subscribe(rec.listen)

	_ = f.OnInput("cardNumber", "9999", 4)
	f.Wait()
	card, _ := f.Field("cardNumber")
	if card.Errors.Classification != form.MessageInvalidCard {
		t.Fatalf("not found should surface a field error, got %q", card.Errors.Classification)
	}

	_ = f.OnInput("cardNumber", "8888", 4)
	f.Wait()
	card, _ = f.Field("cardNumber")
	if card.Errors.Classification != "" {
		t.Fatalf("unauthorized should not flag the field, got %q", card.Errors.Classification)
	}
	if !f.SessionExpired() {
		t.Fatalf("expected session to expire")
	}
	want := []form.EventType{form.EventClassificationFailed, form.EventClassificationFailed, form.EventSessionExpired}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if _, err := f.Submit(context.Background(), false); !errors.Is(err, form.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestCoBrandSelection(t *testing.T) {
	visa := testsupport.Visa()
	cb := testsupport.CartesBancaires()
	resolver := newResolver().Route("4970", model.IINDetails{
		Status:    model.IINSupported,
		ProductID: visa.ID,
		CoBrands: []model.CoBrand{
			{ProductID: visa.ID, AllowedInContext: true},
			{ProductID: cb.ID, AllowedInContext: true},
		},
	})
	f := newForm(t, resolver, nil)
	rec := &recorder{}
	f.Subscribe(rec.listen)

	_ = f.OnInput("cardNumber", "4970 1012 3456 7890", 19)
	f.Wait()

	if diff := cmp.Diff([]string{visa.ID, cb.ID}, productIDs(f.CoBrands())); diff != "" {
		t.Fatalf("co-brands mismatch (-want +got):\n%s", diff)
	}
	if f.Product().ID != visa.ID {
		t.Fatalf("main product should stay active until a co-brand is picked")
	}

	if err := f.SelectCoBrand(cb.ID); err != nil {
		t.Fatalf("select co-brand: %v", err)
	}
	if diff := cmp.Diff([]string{"cardNumber", "expiryDate", "cvv", "issuerCountry"}, ids(f.Fields())); diff != "" {
		t.Fatalf("co-brand field set mismatch (-want +got):\n%s", diff)
	}
	card, _ := f.Field("cardNumber")
	if card.RawValue != "4970101234567890" {
		t.Fatalf("card number lost on co-brand switch: %q", card.RawValue)
	}

	if err := f.SelectCoBrand("does-not-exist"); !errors.Is(err, form.ErrUnknownCoBrand) {
		t.Fatalf("expected ErrUnknownCoBrand, got %v", err)
	}

	want := []form.EventType{
		form.EventProductChanged, form.EventFieldsReconciled, form.EventCoBrandsChanged,
		form.EventProductChanged, form.EventFieldsReconciled,
	}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestCoBrandSwitchKeepsUserEdits(t *testing.T) {
	visa := testsupport.Visa()
	cb := testsupport.CartesBancaires()
	resolver := newResolver().Route("4970", model.IINDetails{
		Status:    model.IINSupported,
		ProductID: visa.ID,
		CoBrands: []model.CoBrand{
			{ProductID: visa.ID, AllowedInContext: true},
			{ProductID: cb.ID, AllowedInContext: true},
		},
	})
	account := &model.AccountOverlay{
		ID: "aof-2",
		Attributes: []model.Attribute{
			{Key: "expiryDate", Status: model.StatusCanWrite, Value: "1230"},
			{Key: "cvv", Status: model.StatusMustWrite, Value: ""},
		},
	}
	f := newForm(t, resolver, nil, form.WithAccount(account))

	_ = f.OnInput("cardNumber", "4970 1012 3456 7890", 19)
	f.Wait()
	expiry, _ := f.Field("expiryDate")
	if expiry.RawValue != "1230" {
		t.Fatalf("account value should prefill the new expiry field, got %q", expiry.RawValue)
	}

	if err := f.OnInput("expiryDate", "01/29", 5); err != nil {
		t.Fatalf("input: %v", err)
	}
	if err := f.OnInput("cvv", "1", 1); err != nil {
		t.Fatalf("input: %v", err)
	}
	cvv, _ := f.Field("cvv")
	wantCVV := cvv.ValidityError()
	if wantCVV == "" {
		t.Fatalf("short cvv should carry a local error")
	}

	if err := f.SelectCoBrand(cb.ID); err != nil {
		t.Fatalf("select co-brand: %v", err)
	}
	expiry, _ = f.Field("expiryDate")
	if expiry.RawValue != "0129" || expiry.FormattedValue != "01/29" {
		t.Fatalf("user-entered expiry lost on co-brand switch: raw=%q formatted=%q", expiry.RawValue, expiry.FormattedValue)
	}
	cvv, _ = f.Field("cvv")
	if cvv.RawValue != "1" || cvv.ValidityError() != wantCVV {
		t.Fatalf("cvv state lost on co-brand switch: raw=%q error=%q", cvv.RawValue, cvv.ValidityError())
	}

	if err := f.SelectCoBrand(visa.ID); err != nil {
		t.Fatalf("select co-brand: %v", err)
	}
	if expiry, _ = f.Field("expiryDate"); expiry.RawValue != "0129" {
		t.Fatalf("user-entered expiry lost switching back: %q", expiry.RawValue)
	}
}

func TestInvalidMaskOnSurvivingFieldLeavesItUnmasked(t *testing.T) {
	broken := testsupport.Mastercard()
	for i := range broken.Fields {
		if broken.Fields[i].ID == "expiryDate" {
			broken.Fields[i].MaskPattern = "{{99"
		}
	}
	resolver := testsupport.NewResolver(testsupport.Visa(), broken).
		Route("4", model.IINDetails{Status: model.IINSupported, ProductID: "1"}).
		Route("5", model.IINDetails{Status: model.IINSupported, ProductID: broken.ID})
	core, logs := observer.New(zapcore.DebugLevel)
	f := newForm(t, resolver, nil, form.WithLogger(zap.New(core)), form.WithProduct(testsupport.Visa()))

	_ = f.OnInput("expiryDate", "12/30", 5)
	_ = f.OnInput("cardNumber", "5555", 4)
	f.Wait()

	if p := f.Product(); p == nil || p.ID != broken.ID {
		t.Fatalf("expected product %s, got %+v", broken.ID, p)
	}
	expiry, _ := f.Field("expiryDate")
	if expiry.Definition.MaskPattern != "" {
		t.Fatalf("unparsable mask should be stripped, got %q", expiry.Definition.MaskPattern)
	}
	if expiry.RawValue != "1230" || expiry.FormattedValue != "1230" {
		t.Fatalf("unmasked field should show the raw value: raw=%q formatted=%q", expiry.RawValue, expiry.FormattedValue)
	}
	if logs.FilterMessage("invalid mask, field left unmasked").Len() != 1 {
		t.Fatalf("expected the invalid mask to be logged once")
	}
}

func TestSetValueClassifiesCardNumber(t *testing.T) {
	f := newForm(t, newResolver(), nil)

	if err := f.SetValue("cardNumber", "5555555555554444"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	f.Wait()
	if p := f.Product(); p == nil || p.ID != testsupport.Mastercard().ID {
		t.Fatalf("expected mastercard, got %+v", p)
	}
	card, _ := f.Field("cardNumber")
	if card.FormattedValue != "5555 5555 5555 4444" {
		t.Fatalf("unexpected formatted value %q", card.FormattedValue)
	}
	if err := f.SetValue("iban", "x"); !errors.Is(err, form.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSubmitBusyWhileClassifying(t *testing.T) {
	calls := 0
	session := submit.SessionFunc(func(context.Context, map[string]string, bool) (submit.Payload, error) {
		calls++
		return "payload", nil
	})
	resolver := newResolver()
	release := resolver.Hold("5555")
	f := newForm(t, resolver, session, form.WithProduct(testsupport.Visa()))

	_ = f.OnInput("cardNumber", "5555", 4)
	if _, err := f.Submit(context.Background(), false); !errors.Is(err, submit.ErrBusy) {
		t.Fatalf("expected ErrBusy while classifying, got %v", err)
	}
	release()
	f.Wait()

	if calls != 0 {
		t.Fatalf("session must not be called while classifying")
	}
	if card, _ := f.Field("cardNumber"); card.Loading {
		t.Fatalf("card number should no longer be loading")
	}
}

func productIDs(products []model.NetworkProduct) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestReadOnlyAccountOverlay(t *testing.T) {
	resolver := newResolver()
	account := &model.AccountOverlay{
		ID:        "aof-1",
		ProductID: testsupport.Visa().ID,
		Attributes: []model.Attribute{
			{Key: "cardNumber", Status: model.StatusReadOnly, Value: "411111******1111"},
			{Key: "cardholderName", Status: model.StatusCanWrite, Value: "Jane Doe"},
		},
	}
	f := newForm(t, resolver, nil, form.WithProduct(testsupport.Visa()), form.WithAccount(account))

	card, _ := f.Field("cardNumber")
	if !card.Readonly || card.Disabled {
		t.Fatalf("card number should be readonly and enabled: %+v", card)
	}
	if card.FormattedValue != "4111 11** **** 1111" {
		t.Fatalf("unexpected redacted display %q", card.FormattedValue)
	}
	name, _ := f.Field("cardholderName")
	if name.Readonly || name.RawValue != "Jane Doe" {
		t.Fatalf("writable attribute should prefill an editable field: %+v", name)
	}

	if id, ok := f.FirstInteractive(); !ok || id != "expiryDate" {
		t.Fatalf("expected expiryDate to receive focus, got %q", id)
	}

	_ = f.OnInput("cardNumber", "5555", 4)
	f.Wait()
	if len(resolver.Lookups()) != 0 {
		t.Fatalf("readonly card number must not trigger classification")
	}
}

func TestSubmitMapsRejectedField(t *testing.T) {
	session := submit.SessionFunc(func(_ context.Context, values map[string]string, _ bool) (submit.Payload, error) {
		return "", &submit.EncryptError{Fields: map[string][]string{"cardholderName": {"Name not accepted"}}}
	})
	f := newForm(t, newResolver(), session, form.WithProduct(testsupport.Visa()))
	for id, value := range map[string]string{
		"cardNumber":     "4111111111111111",
		"expiryDate":     "1230",
		"cvv":            "123",
		"cardholderName": "J",
	} {
		if err := f.OnInput(id, value, len(value)); err != nil {
			t.Fatalf("input %s: %v", id, err)
		}
	}
	f.Wait()

	_, err := f.Submit(context.Background(), false)
	var fieldErrs *submit.FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected field errors, got %v", err)
	}
	for _, el := range f.Fields() {
		want := ""
		if el.ID() == "cardholderName" {
			want = "Name not accepted"
		}
		if el.ValidityError() != want {
			t.Fatalf("field %s: want %q, got %q", el.ID(), want, el.ValidityError())
		}
	}

	_ = f.OnInput("cardholderName", "Jane", 4)
	if name, _ := f.Field("cardholderName"); name.ValidityError() != "" {
		t.Fatalf("input should clear the submission error, got %q", name.ValidityError())
	}
}

func TestSubmitSuccessPublishes(t *testing.T) {
	var got map[string]string
	session := submit.SessionFunc(func(_ context.Context, values map[string]string, remember bool) (submit.Payload, error) {
		got = values
		return "payload", nil
	})
	f := newForm(t, newResolver(), session, form.WithProduct(testsupport.Amex()))
	rec := &recorder{}
	unsubscribe := f.Subscribe(rec.listen)

	_ = f.OnInput("cardNumber", "3714 496353 98431", 17)
	f.Wait()
	payload, err := f.Submit(context.Background(), true)
	if err != nil || payload != "payload" {
		t.Fatalf("submit: %q %v", payload, err)
	}
	if got["cardNumber"] != "371449635398431" {
		t.Fatalf("expected unmasked card number, got %+v", got)
	}
	unsubscribe()
	_, _ = f.Submit(context.Background(), true)

	events := rec.types()
	if events[len(events)-1] != form.EventSubmitted {
		t.Fatalf("expected submitted event, got %v", events)
	}
	count := 0
	for _, e := range events {
		if e == form.EventSubmitted {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("unsubscribed listener received events")
	}
}

func TestShowRememberMe(t *testing.T) {
	cases := map[string]struct {
		options []form.Option
		want    bool
	}{
		"no product":     {nil, false},
		"tokenizable":    {[]form.Option{form.WithProduct(testsupport.Visa())}, true},
		"auto tokenized": {[]form.Option{form.WithProduct(testsupport.Mastercard())}, false},
		"recurring":      {[]form.Option{form.WithProduct(testsupport.Visa()), form.WithRecurring(true)}, false},
		"not allowed":    {[]form.Option{form.WithProduct(testsupport.Amex())}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newForm(t, newResolver(), nil, tc.options...)
			if got := f.ShowRememberMe(); got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestHintsAndUnknownField(t *testing.T) {
	f := newForm(t, newResolver(), nil, form.WithProduct(testsupport.Visa()))

	hints, ok := f.Hints("cvv")
	if !ok || hints.Autocomplete != "cc-csc" || hints.InputMode != "numeric" {
		t.Fatalf("unexpected cvv hints %+v", hints)
	}
	if err := f.OnInput("iban", "x", 1); !errors.Is(err, form.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if msg, err := f.OnBlur("expiryDate"); err != nil || msg != "This field is required" {
		t.Fatalf("blur on empty required field: %q %v", msg, err)
	}
}

func TestCloseDiscardsPending(t *testing.T) {
	resolver := newResolver()
	resolver.Hold("4111")
	f, err := form.New(classify.New(resolver, classify.WithMinDigits(4)), nil,
		form.WithFields(testsupport.CardNumberField(testsupport.CardNumberMask16)))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}

	_ = f.OnInput("cardNumber", "4111", 4)
	f.Close()

	if f.Product() != nil {
		t.Fatalf("pending result must be discarded on close")
	}
	if _, err := f.Submit(context.Background(), false); !errors.Is(err, form.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
