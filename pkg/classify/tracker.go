package classify

import "sync/atomic"

// Ticket identifies one classification request.
type Ticket struct {
	Value      string
	generation uint64
}

// Tracker hands out generations for the values of one field. Only the
// result of the most recent ticket may be applied.
type Tracker struct {
	generation atomic.Uint64
}

// Begin starts a new generation for value, making every earlier ticket
// stale.
func (t *Tracker) Begin(value string) Ticket {
	return Ticket{Value: value, generation: t.generation.Add(1)}
}

// Invalidate makes every outstanding ticket stale without starting a
// request.
func (t *Tracker) Invalidate() {
	t.generation.Add(1)
}

// Current reports whether ticket is still the latest generation.
func (t *Tracker) Current(ticket Ticket) bool {
	return ticket.generation != 0 && ticket.generation == t.generation.Load()
}
