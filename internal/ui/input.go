package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// field is a minimal single-line text input.
type field struct {
	label       string
	placeholder string
	masked      bool

	value   []rune
	focused bool
}

func newField(label, placeholder string) *field {
	return &field{label: label, placeholder: placeholder}
}

func newMaskedField(label, placeholder string) *field {
	return &field{label: label, placeholder: placeholder, masked: true}
}

func (f *field) Focus()        { f.focused = true }
func (f *field) Blur()         { f.focused = false }
func (f *field) Focused() bool { return f.focused }

func (f *field) Value() string { return string(f.value) }

func (f *field) SetValue(v string) { f.value = []rune(v) }

func (f *field) Reset() { f.value = nil }

// Handle applies one key press. Navigation keys are left to the caller.
func (f *field) Handle(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyBackspace:
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
	case tea.KeySpace:
		f.value = append(f.value, ' ')
	case tea.KeyRunes:
		f.value = append(f.value, msg.Runes...)
	}
}

func (f *field) View(styles *Styles) string {
	shown := string(f.value)
	if f.masked {
		shown = strings.Repeat("*", len(f.value))
	}
	if shown == "" && !f.focused {
		shown = styles.Subtle.Render(f.placeholder)
	}
	cursor := " "
	if f.focused {
		cursor = styles.Title.Render("▌")
	}

	label := f.label
	if f.focused {
		label = styles.Title.Render(label)
	} else {
		label = styles.Subtle.Render(label)
	}
	return label + " " + shown + cursor
}
