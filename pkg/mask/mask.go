// Package mask formats raw field values for display and strips the
// formatting back off. Patterns use the resolver syntax: literal text with
// {{...}} groups, where every character inside a group is an input slot
// ('9' digit, 'a' letter, '*' letter or digit).
package mask

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Wildcard is the redaction character accepted by FormatWildcard.
const Wildcard = '*'

var errUnclosedGroup = errors.New("mask: unclosed {{ group")

type slotClass byte

const (
	slotDigit slotClass = '9'
	slotAlpha slotClass = 'a'
	slotAny   slotClass = '*'
)

func (c slotClass) accepts(r rune) bool {
	switch c {
	case slotDigit:
		return unicode.IsDigit(r)
	case slotAlpha:
		return unicode.IsLetter(r)
	default:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
}

type token struct {
	literal rune
	slot    slotClass
}

func (t token) isSlot() bool { return t.slot != 0 }

// Mask is a parsed pattern. The zero value is the identity mask.
type Mask struct {
	pattern string
	tokens  []token
}

// Parse compiles a pattern. An empty pattern yields the identity mask.
func Parse(pattern string) (Mask, error) {
	m := Mask{pattern: pattern}
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '{' && i+1 < len(runes) && runes[i+1] == '{' {
			end := indexOfClose(runes, i+2)
			if end < 0 {
				return Mask{}, fmt.Errorf("%w in %q", errUnclosedGroup, pattern)
			}
			for _, r := range runes[i+2 : end] {
				m.tokens = append(m.tokens, token{slot: toSlot(r)})
			}
			i = end + 1
			continue
		}
		m.tokens = append(m.tokens, token{literal: runes[i]})
	}
	return m, nil
}

// MustParse is Parse for patterns known at compile time.
func MustParse(pattern string) Mask {
	m, err := Parse(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func indexOfClose(runes []rune, from int) int {
	for i := from; i+1 < len(runes); i++ {
		if runes[i] == '}' && runes[i+1] == '}' {
			return i
		}
	}
	return -1
}

func toSlot(r rune) slotClass {
	switch r {
	case '9':
		return slotDigit
	case 'a', 'A':
		return slotAlpha
	default:
		return slotAny
	}
}

// Pattern returns the source pattern.
func (m Mask) Pattern() string { return m.pattern }

// IsIdentity reports whether the mask leaves values untouched.
func (m Mask) IsIdentity() bool { return len(m.tokens) == 0 }

// Capacity is the number of input slots, zero for the identity mask.
func (m Mask) Capacity() int {
	n := 0
	for _, t := range m.tokens {
		if t.isSlot() {
			n++
		}
	}
	return n
}

// Format lays raw out over the pattern. Characters a slot does not accept are
// dropped; literals are only emitted while raw input remains, so a partial
// value carries no trailing separator.
func (m Mask) Format(raw string) string {
	return m.format(raw, false)
}

// FormatWildcard is Format with every slot additionally accepting Wildcard,
// used to redisplay redacted account values.
func (m Mask) FormatWildcard(raw string) string {
	return m.format(raw, true)
}

func (m Mask) format(raw string, wildcard bool) string {
	if m.IsIdentity() {
		return raw
	}
	in := []rune(m.clean(raw, wildcard))
	var b strings.Builder
	pending := strings.Builder{}
	pos := 0
	for _, t := range m.tokens {
		if pos >= len(in) {
			break
		}
		if !t.isSlot() {
			pending.WriteRune(t.literal)
			continue
		}
		b.WriteString(pending.String())
		pending.Reset()
		b.WriteRune(in[pos])
		pos++
	}
	return b.String()
}

// Unformat strips mask literals and anything the slots would reject,
// returning the canonical raw value. The input is read as formatted text: a
// rune equal to the next expected literal is taken as that literal. Use
// Clean for values that are already raw.
func (m Mask) Unformat(formatted string) string {
	return m.unformat(formatted, false)
}

// UnformatWildcard is Unformat keeping Wildcard characters.
func (m Mask) UnformatWildcard(formatted string) string {
	return m.unformat(formatted, true)
}

func (m Mask) unformat(text string, wildcard bool) string {
	if m.IsIdentity() {
		return text
	}
	var out strings.Builder
	ti := 0
	for _, r := range text {
		if ti < len(m.tokens) && !m.tokens[ti].isSlot() {
			if r == m.tokens[ti].literal {
				ti++
				continue
			}
			for ti < len(m.tokens) && !m.tokens[ti].isSlot() {
				ti++
			}
		}
		if ti >= len(m.tokens) {
			break
		}
		if m.tokens[ti].slot.accepts(r) || (wildcard && r == Wildcard) {
			out.WriteRune(r)
			ti++
		}
	}
	return out.String()
}

// Clean keeps the runes of a raw value that fill the mask slots in order,
// dropping what a slot rejects and anything past the capacity. Literals get
// no special treatment, so a slot may hold a rune that also appears as a
// separator.
func (m Mask) Clean(raw string) string {
	return m.clean(raw, false)
}

func (m Mask) clean(raw string, wildcard bool) string {
	if m.IsIdentity() {
		return raw
	}
	var out strings.Builder
	ti := 0
	for _, r := range raw {
		for ti < len(m.tokens) && !m.tokens[ti].isSlot() {
			ti++
		}
		if ti >= len(m.tokens) {
			break
		}
		if m.tokens[ti].slot.accepts(r) || (wildcard && r == Wildcard) {
			out.WriteRune(r)
			ti++
		}
	}
	return out.String()
}

// Accepts reports whether raw belongs to the mask's character class and fits
// its capacity.
func (m Mask) Accepts(raw string) bool {
	return m.Clean(raw) == raw
}
