package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestInputModelEnter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		typed string
		want  string
	}{
		{name: "surrounding spaces kept", typed: " pass word ", want: " pass word "},
		{name: "blank takes default", typed: "   ", want: "ddevadmin"},
		{name: "empty takes default", typed: "", want: "ddevadmin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newInputModel("userpass", "ddevadmin", nil)
			m.input.SetValue(tt.typed)
			next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			got := next.(inputModel)
			if !got.done || cmd == nil {
				t.Fatalf("enter did not finish the prompt")
			}
			if got.value != tt.want {
				t.Fatalf("value=%q; want %q", got.value, tt.want)
			}
		})
	}
}
