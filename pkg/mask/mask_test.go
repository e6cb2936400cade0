package mask_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardform/pkg/mask"
)

const cardPattern = "{{9999}} {{9999}} {{9999}} {{9999}} {{999}}"

func TestFormat(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		raw     string
		want    string
	}{
		{name: "partial card", pattern: cardPattern, raw: "41111", want: "4111 1"},
		{name: "exact group", pattern: cardPattern, raw: "4111", want: "4111"},
		{name: "full card", pattern: cardPattern, raw: "4111111111111111", want: "4111 1111 1111 1111"},
		{name: "expiry", pattern: "{{99}}/{{99}}", raw: "1228", want: "12/28"},
		{name: "drops rejected characters", pattern: "{{99}}/{{99}}", raw: "1a2-2b8", want: "12/28"},
		{name: "truncates to capacity", pattern: "{{999}}", raw: "12345", want: "123"},
		{name: "leading literal", pattern: "+31 {{999}}", raw: "612", want: "+31 612"},
		{name: "identity", pattern: "", raw: "John Doe", want: "John Doe"},
		{name: "empty raw", pattern: cardPattern, raw: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := mask.MustParse(tc.pattern)
			if got := m.Format(tc.raw); got != tc.want {
				t.Fatalf("Format(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestUnformatFormatRoundTrip(t *testing.T) {
	patterns := []string{cardPattern, "{{99}}/{{99}}", "{{aaaa}}-{{****}}", "+31 {{999}}", "{{aa}}X{{aa}}", ""}
	values := []string{"", "4", "4111", "41111", "4111111111111111", "1228", "ABCD12z9", "612", "abXc", "XXXX"}

	for _, pattern := range patterns {
		m := mask.MustParse(pattern)
		for _, raw := range values {
			if !m.Accepts(raw) {
				continue
			}
			if got := m.Unformat(m.Format(raw)); got != raw {
				t.Fatalf("pattern %q: Unformat(Format(%q)) = %q", pattern, raw, got)
			}
		}
	}
}

func TestRawValueMayHoldLiteralRune(t *testing.T) {
	m := mask.MustParse("{{aa}}X{{aa}}")

	if !m.Accepts("abXc") {
		t.Fatalf("a slot accepting the separator rune should accept raw %q", "abXc")
	}
	formatted := m.Format("abXc")
	if formatted != "abXXc" {
		t.Fatalf("Format = %q, want %q", formatted, "abXXc")
	}
	if got := m.Unformat(formatted); got != "abXc" {
		t.Fatalf("Unformat(%q) = %q, want %q", formatted, got, "abXc")
	}
	if got := m.Clean("abXc"); got != "abXc" {
		t.Fatalf("Clean = %q", got)
	}

	edit := m.Apply("abXXc", 5)
	if diff := cmp.Diff(mask.Edit{Raw: "abXc", Formatted: "abXXc", Cursor: 5}, edit); diff != "" {
		t.Fatalf("Apply mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatWildcard(t *testing.T) {
	m := mask.MustParse(cardPattern)

	got := m.FormatWildcard("411111******1111")
	if want := "4111 11** **** 1111"; got != want {
		t.Fatalf("FormatWildcard = %q, want %q", got, want)
	}
	if got := m.Format("411111******1111"); got != "4111 1111 11" {
		t.Fatalf("Format should drop wildcards, got %q", got)
	}
}

func TestParseUnclosedGroup(t *testing.T) {
	if _, err := mask.Parse("{{99"); err == nil {
		t.Fatalf("expected error for unclosed group")
	}
}

func TestApplyCursor(t *testing.T) {
	m := mask.MustParse(cardPattern)

	cases := []struct {
		name   string
		text   string
		cursor int
		want   mask.Edit
	}{
		{
			name:   "typing past a group inserts separator before caret",
			text:   "41111",
			cursor: 5,
			want:   mask.Edit{Raw: "41111", Formatted: "4111 1", Cursor: 6},
		},
		{
			name:   "insert in the middle shifts separators",
			text:   "41711 1111",
			cursor: 3,
			want:   mask.Edit{Raw: "417111111", Formatted: "4171 1111 1", Cursor: 3},
		},
		{
			name:   "insert just before a separator",
			text:   "41117 1111",
			cursor: 5,
			want:   mask.Edit{Raw: "411171111", Formatted: "4111 7111 1", Cursor: 6},
		},
		{
			name:   "deleting a separator keeps the caret in place",
			text:   "41111111",
			cursor: 4,
			want:   mask.Edit{Raw: "41111111", Formatted: "4111 1111", Cursor: 4},
		},
		{
			name:   "rejected character does not move caret",
			text:   "411x1",
			cursor: 4,
			want:   mask.Edit{Raw: "4111", Formatted: "4111", Cursor: 3},
		},
		{
			name:   "cursor clamped",
			text:   "4111",
			cursor: 99,
			want:   mask.Edit{Raw: "4111", Formatted: "4111", Cursor: 4},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Apply(tc.text, tc.cursor)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Apply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyCursorNeverBeforeTypedCharacter(t *testing.T) {
	m := mask.MustParse(cardPattern)
	base := "4111111111111111"

	for p := 0; p <= len(base); p++ {
		text := base[:p] + "5" + base[p:]
		edit := m.Apply(text, p+1)
		formatted := []rune(edit.Formatted)
		if edit.Cursor < 1 || edit.Cursor > len(formatted) {
			t.Fatalf("insert at %d: cursor %d out of range for %q", p, edit.Cursor, edit.Formatted)
		}
		if p >= m.Capacity() {
			continue
		}
		if formatted[edit.Cursor-1] != '5' {
			t.Fatalf("insert at %d: caret %d does not follow typed char in %q", p, edit.Cursor, edit.Formatted)
		}
	}
}
