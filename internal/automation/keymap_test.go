package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Return", "enter"},
		{"ESCAPE", "esc"},
		{"  ctrl ", "ctrl"},
		{"Control", "ctrl"},
		{"super", "cmd"},
		{"f5", "f5"},
		{"enter", "enter"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeKey(tc.in), "NormalizeKey(%q)", tc.in)
	}
}

func TestSplitChord(t *testing.T) {
	assert.Equal(t, []string{"ctrl", "shift", "s"}, SplitChord("Control+Shift+S"))
	assert.Equal(t, []string{"cmd", "tab"}, SplitChord("super+tab"))
	assert.Equal(t, []string{"enter"}, SplitChord("return"))
}
