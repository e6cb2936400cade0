package mask

// Edit is the outcome of applying the mask to a user edit.
type Edit struct {
	Raw       string
	Formatted string
	Cursor    int
}

// Apply reformats text after the user edited it with the caret at cursor
// (a rune offset into text). The text before the caret and the remainder are
// unformatted separately and the caret lands at the end of the reformatted
// prefix, so it keeps following the character just typed even when
// separators are inserted or removed.
func (m Mask) Apply(text string, cursor int) Edit {
	runes := []rune(text)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(runes) {
		cursor = len(runes)
	}

	before := m.Unformat(string(runes[:cursor]))
	after := m.Unformat(string(runes[cursor:]))

	raw := m.Clean(before + after)
	formatted := m.Format(raw)
	prefix := []rune(m.Format(before))

	caret := len(prefix)
	if total := len([]rune(formatted)); caret > total {
		caret = total
	}
	return Edit{Raw: raw, Formatted: formatted, Cursor: caret}
}
