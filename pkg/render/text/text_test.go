package text_test

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/form"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/render/text"
	"github.com/goliatone/go-cardform/pkg/testsupport"
)

func visaElements() []*field.Element {
	defs := testsupport.Visa().Fields
	card := field.New(defs[0])
	card.Readonly = true
	card.FormattedValue = "4111 11** **** 1111"

	expiry := field.New(defs[1])
	expiry.FormattedValue = "13/30"
	expiry.Errors.Local = "Please enter a valid expiration date"

	cvv := field.New(defs[2])
	cvv.FormattedValue = "123"

	return []*field.Element{card, expiry, cvv, field.New(defs[3])}
}

func TestRenderSummary(t *testing.T) {
	r, err := text.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	visa := testsupport.Visa()
	summary := text.Summarize(visaElements(), &visa, []model.NetworkProduct{visa, testsupport.CartesBancaires()})
	summary.RememberMe = true

	got := testsupport.CaptureOutput(t, func(w io.Writer) error {
		return r.Render(w, summary)
	})

	golden := filepath.Join("testdata", "summary.golden")
	if testsupport.WriteMaybeGolden(t, golden, []byte(got)) {
		return
	}
	want := string(testsupport.MustReadGolden(t, golden))
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderEmptySummary(t *testing.T) {
	r, err := text.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	got := testsupport.CaptureOutput(t, func(w io.Writer) error {
		return r.Render(w, text.Summary{Expired: true})
	})
	if want := "Product: none\nSession expired\n"; got != want {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestSummarizeHidesObfuscatedValues(t *testing.T) {
	summary := text.Summarize(visaElements(), nil, nil)
	if got := summary.Fields[2].Value; got != "***" {
		t.Fatalf("cvv should be hidden, got %q", got)
	}
	if summary.Product != "" || summary.CoBrands != nil {
		t.Fatalf("unexpected product data %+v", summary)
	}
}

func TestRenderCustomTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"short.tpl": &fstest.MapFile{Data: []byte("{{ product }}: {{ fields|length }} fields")},
	}
	r, err := text.New(text.WithFS(fsys), text.WithTemplate("short.tpl"))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	visa := testsupport.Visa()
	got := testsupport.CaptureOutput(t, func(w io.Writer) error {
		return r.Render(w, text.Summarize(visaElements(), &visa, nil))
	})
	if got != "VISA: 4 fields" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	r, err := text.New(text.WithTemplate("missing.tpl"))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if err := r.Render(io.Discard, text.Summary{}); err == nil {
		t.Fatalf("expected error for missing template")
	}
	var nilRenderer *text.Renderer
	if err := nilRenderer.Render(io.Discard, text.Summary{}); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected nil renderer error, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	f, err := form.New(classify.New(testsupport.NewResolver()), nil, form.WithProduct(testsupport.Visa()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	t.Cleanup(f.Close)

	summary := text.Snapshot(f)
	if summary.Product != "VISA" || !summary.RememberMe || summary.Expired {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Fields) != 4 || summary.Fields[0].State != "editable" {
		t.Fatalf("unexpected fields %+v", summary.Fields)
	}
}
