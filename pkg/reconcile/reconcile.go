// Package reconcile merges a newly resolved field definition list into the
// live field elements of a form.
package reconcile

import (
	"sort"

	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/model"
)

// Reconcile groups both sides by field id. Elements present in both keep their
// state and take the incoming definition, incoming-only ids get fresh empty
// elements and existing-only ids are dropped. The result is ordered by
// DisplayOrder; ties keep the incoming order.
//
// Existing elements are reused by pointer so callers holding a reference (a
// widget, a controller) keep observing the same field.
func Reconcile(existing []*field.Element, incoming []model.FieldDefinition) []*field.Element {
	byID := make(map[string]*field.Element, len(existing))
	for _, el := range existing {
		if el == nil {
			continue
		}
		if _, dup := byID[el.Definition.ID]; dup {
			continue
		}
		byID[el.Definition.ID] = el
	}

	out := make([]*field.Element, 0, len(incoming))
	seen := make(map[string]struct{}, len(incoming))
	for _, def := range incoming {
		if _, dup := seen[def.ID]; dup {
			continue
		}
		seen[def.ID] = struct{}{}

		if el, ok := byID[def.ID]; ok {
			el.Definition = def
			out = append(out, el)
			continue
		}
		out = append(out, field.New(def))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Definition.DisplayOrder < out[j].Definition.DisplayOrder
	})
	return out
}

// Diff describes what a reconciliation changed, by field id.
type Diff struct {
	Kept    []string `json:"kept,omitempty"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Empty reports whether the field set is unchanged in membership.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Compare reports membership changes between two element lists. Ids are
// listed in the order they appear in their source list.
func Compare(before, after []*field.Element) Diff {
	prev := make(map[string]struct{}, len(before))
	for _, el := range before {
		prev[el.ID()] = struct{}{}
	}
	next := make(map[string]struct{}, len(after))
	var diff Diff
	for _, el := range after {
		id := el.ID()
		next[id] = struct{}{}
		if _, ok := prev[id]; ok {
			diff.Kept = append(diff.Kept, id)
		} else {
			diff.Added = append(diff.Added, id)
		}
	}
	for _, el := range before {
		if _, ok := next[el.ID()]; !ok {
			diff.Removed = append(diff.Removed, el.ID())
		}
	}
	return diff
}
