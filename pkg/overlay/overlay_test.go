package overlay_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/overlay"
)

func elements() []*field.Element {
	return []*field.Element{
		field.New(model.FieldDefinition{ID: "cardNumber", Kind: model.KindNumeric, MaskPattern: "{{9999}} {{9999}} {{9999}} {{9999}} {{999}}"}),
		field.New(model.FieldDefinition{ID: "expiryDate", Kind: model.KindExpiry, MaskPattern: "{{99}}/{{99}}", DisplayOrder: 1}),
		field.New(model.FieldDefinition{ID: "cvv", Kind: model.KindNumeric, DisplayOrder: 2}),
		field.New(model.FieldDefinition{ID: "cardholderName", Kind: model.KindText, DisplayOrder: 3}),
	}
}

func account() *model.AccountOverlay {
	return &model.AccountOverlay{
		ID: "acc-1",
		Attributes: []model.Attribute{
			{Key: "cardNumber", Status: model.StatusReadOnly, Value: "411111******1111"},
			{Key: "expiryDate", Status: model.StatusCanWrite, Value: "12/30"},
			{Key: "cvv", Status: model.StatusNotWritable, Value: "***"},
		},
	}
}

func TestApplyStatuses(t *testing.T) {
	els := elements()
	overlay.Apply(els, account())

	card := els[0]
	if !card.Readonly || card.Disabled {
		t.Fatalf("card number should be readonly and enabled: %+v", card)
	}
	if card.FormattedValue != "4111 11** **** 1111" {
		t.Fatalf("unexpected card display %q", card.FormattedValue)
	}

	exp := els[1]
	if exp.Readonly || exp.Disabled || exp.RawValue != "1230" || exp.FormattedValue != "12/30" {
		t.Fatalf("unexpected expiry state %+v", exp)
	}

	cvv := els[2]
	if !cvv.Disabled || cvv.Readonly {
		t.Fatalf("cvv should be disabled %+v", cvv)
	}

	name := els[3]
	if diff := cmp.Diff(field.New(name.Definition), name); diff != "" {
		t.Fatalf("unmatched field changed (-want +got):\n%s", diff)
	}
}

func TestApplyIdempotent(t *testing.T) {
	once := elements()
	overlay.Apply(once, account())

	twice := elements()
	overlay.Apply(twice, account())
	overlay.Apply(twice, account())

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second application changed state (-once +twice):\n%s", diff)
	}
}

func TestApplyNilOverlay(t *testing.T) {
	els := elements()
	overlay.Apply(els, nil)
	if diff := cmp.Diff(elements(), els); diff != "" {
		t.Fatalf("nil overlay changed state (-want +got):\n%s", diff)
	}
}

func TestWritable(t *testing.T) {
	els := elements()
	acc := account()
	overlay.Apply(els, acc)

	got := map[string]bool{}
	for _, el := range els {
		got[el.ID()] = overlay.Writable(el, acc)
	}
	want := map[string]bool{
		"cardNumber":     false,
		"expiryDate":     true,
		"cvv":            false,
		"cardholderName": true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("writable mismatch (-want +got):\n%s", diff)
	}

	plain := field.New(model.FieldDefinition{ID: "cardholderName"})
	plain.Readonly = true
	if overlay.Writable(plain, nil) {
		t.Fatalf("readonly field without attribute must not be writable")
	}
}
