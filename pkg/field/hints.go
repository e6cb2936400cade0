package field

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-cardform/pkg/model"
)

// Built-in icon identifiers.
const (
	IconCard     = "card"
	IconCalendar = "calendar"
	IconLock     = "lock"
	IconUser     = "user"
)

// InputHints are browser/control attributes a widget applies to its input.
type InputHints struct {
	Autocomplete string `json:"autocomplete,omitempty"`
	InputMode    string `json:"inputMode,omitempty"`
	Icon         string `json:"icon,omitempty"`
}

// Matcher decides whether a hint rule applies to the supplied definition.
type Matcher func(def model.FieldDefinition) bool

type hintRule struct {
	name     string
	priority int
	match    Matcher
	hints    InputHints
	order    int
}

// HintRegistry selects input hints for definitions. Higher priority wins;
// ties fall back to registration order.
type HintRegistry struct {
	mu    sync.RWMutex
	rules []hintRule
}

// NewHintRegistry returns a registry with the card field defaults
// registered.
func NewHintRegistry() *HintRegistry {
	reg := &HintRegistry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a hint rule. Empty names and nil matchers are ignored.
func (r *HintRegistry) Register(name string, priority int, matcher Matcher, hints InputHints) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, hintRule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		hints:    hints,
		order:    len(r.rules),
	})
}

// Resolve returns the hints of the best matching rule. The input mode falls
// back to the definition's preferred input type when the rule leaves it
// empty.
func (r *HintRegistry) Resolve(def model.FieldDefinition) (InputHints, bool) {
	fallback := InputHints{InputMode: inputModeFor(def)}
	if r == nil {
		return fallback, false
	}
	r.mu.RLock()
	rules := append([]hintRule(nil), r.rules...)
	r.mu.RUnlock()
	if len(rules) == 0 {
		return fallback, false
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if !entry.match(def) {
			continue
		}
		hints := entry.hints
		if hints.InputMode == "" {
			hints.InputMode = fallback.InputMode
		}
		return hints, true
	}
	return fallback, false
}

func inputModeFor(def model.FieldDefinition) string {
	if def.PreferredInputType == "IntegerKeyboard" || def.Kind == model.KindNumeric {
		return "numeric"
	}
	return "text"
}

func byID(id string) Matcher {
	return func(def model.FieldDefinition) bool {
		return def.ID == id
	}
}

func (r *HintRegistry) registerBuiltins() {
	r.Register("cardNumber", 90, byID("cardNumber"), InputHints{Autocomplete: "cc-number", Icon: IconCard})
	r.Register("expiryDate", 90, byID("expiryDate"), InputHints{Autocomplete: "cc-exp", Icon: IconCalendar})
	r.Register("cvv", 90, byID("cvv"), InputHints{Autocomplete: "cc-csc", Icon: IconLock})
	r.Register("cardholderName", 90, byID("cardholderName"), InputHints{Autocomplete: "cc-name", Icon: IconUser})
	r.Register("expiry-kind", 50, func(def model.FieldDefinition) bool {
		return def.Kind == model.KindExpiry
	}, InputHints{Autocomplete: "cc-exp", Icon: IconCalendar})
	r.Register("obfuscated", 40, func(def model.FieldDefinition) bool {
		return def.Obfuscate
	}, InputHints{Autocomplete: "off", Icon: IconLock})
}
