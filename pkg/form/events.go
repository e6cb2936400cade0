package form

import (
	"sync"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/reconcile"
	"github.com/goliatone/go-cardform/pkg/submit"
)

// EventType names a form state change.
type EventType string

const (
	EventProductChanged       EventType = "product-changed"
	EventCoBrandsChanged      EventType = "cobrands-changed"
	EventFieldsReconciled     EventType = "fields-reconciled"
	EventClassificationFailed EventType = "classification-failed"
	EventSessionExpired       EventType = "session-expired"
	EventSubmitted            EventType = "submitted"
)

// Event is delivered to subscribers after the change it describes has been
// fully applied. Only the fields relevant to Type are set.
type Event struct {
	Type     EventType
	Product  *model.NetworkProduct
	CoBrands []model.NetworkProduct
	Diff     reconcile.Diff
	Failure  classify.FailureKind
	Err      error
	Payload  submit.Payload
}

// Listener receives form events. Listeners may call back into the form.
type Listener func(Event)

type bus struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener
	order     []int
}

func (b *bus) subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]Listener)
	}
	id := b.next
	b.next++
	b.listeners[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *bus) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, event := range events {
		for _, fn := range listeners {
			fn(event)
		}
	}
}
