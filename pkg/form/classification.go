package form

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/overlay"
	"github.com/goliatone/go-cardform/pkg/reconcile"
)

// startClassification starts a lookup for the card number held by ctrl.
// Must be called with f.mu held. Below the digit threshold no lookup is
// made: outstanding results become stale and the co-brand list is cleared,
// while the active product and its field set are kept.
func (f *Form) startClassification(ctrl *field.Controller) []Event {
	el := ctrl.Element()
	raw := ctrl.Unmasked()
	el.Errors.Classification = ""

	if f.expired || f.ctx.Err() != nil {
		return nil
	}
	if !f.classifier.Eligible(raw) {
		f.tracker.Invalidate()
		el.Loading = false
		return f.setCoBrands(nil)
	}

	ticket := f.tracker.Begin(raw)
	el.Loading = true
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		result := f.classifier.Classify(f.ctx, ticket.Value)
		f.complete(ticket, result)
	}()
	return nil
}

// complete applies a classification result if its ticket is still current.
func (f *Form) complete(ticket classify.Ticket, result classify.Result) {
	f.mu.Lock()
	if !f.tracker.Current(ticket) {
		f.mu.Unlock()
		f.logger.Debug("discarding superseded classification",
			zap.String("outcome", result.Outcome.String()))
		return
	}

	card, _ := field.Find(f.elements, f.cardField)
	if card != nil {
		card.Loading = false
	}

	var events []Event
	switch result.Outcome {
	case classify.OutcomeSupported:
		events = append(events, f.setProduct(result.Product)...)
		events = append(events, f.setCoBrands(result.CoBrands)...)
	case classify.OutcomeUnsupported:
		events = append(events, f.setProduct(nil)...)
		events = append(events, f.setCoBrands(nil)...)
		if card != nil {
			card.Errors.Classification = MessageUnsupported
		}
	default:
		visibility := f.classifier.Policy().Lookup(result.Kind)
		events = append(events, f.setProduct(nil)...)
		events = append(events, f.setCoBrands(nil)...)
		if visibility.ShowFieldError && card != nil {
			card.Errors.Classification = MessageInvalidCard
		}
		events = append(events, Event{Type: EventClassificationFailed, Failure: result.Kind, Err: result.Err})
		if visibility.ExpireSession && !f.expired {
			f.expired = true
			events = append(events, Event{Type: EventSessionExpired, Err: result.Err})
		}
	}
	f.mu.Unlock()

	f.events.publish(events...)
}

// setProduct changes the active product. A product with a new id
// reconciles the field set and overlays the account onto the fields it
// added before returning, so no caller can observe a field set that does
// not match the product. Surviving fields keep what the user entered. A nil
// product only clears the selection. Must be called with f.mu held.
func (f *Form) setProduct(product *model.NetworkProduct) []Event {
	if product == nil {
		if f.product == nil {
			return nil
		}
		f.product = nil
		return []Event{{Type: EventProductChanged}}
	}
	if f.product != nil && f.product.ID == product.ID {
		f.product = product
		return nil
	}

	f.product = product
	before := append([]*field.Element(nil), f.elements...)
	f.elements = reconcile.Reconcile(f.elements, product.Fields)
	f.bindControllers()

	diff := reconcile.Compare(before, f.elements)
	overlay.Apply(f.added(diff), f.account)
	f.logger.Debug("field set reconciled",
		zap.String("product", product.ID),
		zap.Strings("added", diff.Added),
		zap.Strings("removed", diff.Removed))

	snapshot := *product
	return []Event{
		{Type: EventProductChanged, Product: &snapshot},
		{Type: EventFieldsReconciled, Product: &snapshot, Diff: diff},
	}
}

// setCoBrands replaces the co-brand list, reporting a change only when the
// offered ids differ. Must be called with f.mu held.
func (f *Form) setCoBrands(coBrands []model.NetworkProduct) []Event {
	if sameProducts(f.coBrands, coBrands) {
		f.coBrands = coBrands
		return nil
	}
	f.coBrands = coBrands
	return []Event{{Type: EventCoBrandsChanged, CoBrands: append([]model.NetworkProduct(nil), coBrands...)}}
}

func sameProducts(a, b []model.NetworkProduct) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// added returns the elements whose ids diff reports as new.
func (f *Form) added(diff reconcile.Diff) []*field.Element {
	out := make([]*field.Element, 0, len(diff.Added))
	for _, id := range diff.Added {
		if el, ok := field.Find(f.elements, id); ok {
			out = append(out, el)
		}
	}
	return out
}

// bindControllers keeps one controller per element, rebinding those whose
// element survived reconciliation. Must be called with f.mu held.
func (f *Form) bindControllers() {
	next := make(map[string]*field.Controller, len(f.elements))
	for _, el := range f.elements {
		id := el.Definition.ID
		if ctrl, ok := f.controllers[id]; ok && ctrl.Element() == el {
			if err := ctrl.Rebind(el.Definition); err != nil {
				f.logger.Warn("invalid mask, field left unmasked", zap.String("field", id), zap.Error(err))
				def := el.Definition
				def.MaskPattern = ""
				_ = ctrl.Rebind(def)
			}
			next[id] = ctrl
			continue
		}
		ctrl, err := field.NewController(el, f.validator)
		if err != nil {
			f.logger.Warn("invalid mask, field left unmasked", zap.String("field", id), zap.Error(err))
			el.Definition.MaskPattern = ""
			ctrl, _ = field.NewController(el, f.validator)
		}
		next[id] = ctrl
	}
	f.controllers = next
}
