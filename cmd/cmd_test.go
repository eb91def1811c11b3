package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestActionsCmd_ListsVocabulary verifies the actions command prints the
// registry contents.
func TestActionsCmd_ListsVocabulary(t *testing.T) {
	// Arrange
	actionsCmd := newActionsCmd()
	var out bytes.Buffer
	actionsCmd.SetOut(&out)
	actionsCmd.SetErr(&out)

	// Act
	err := actionsCmd.ExecuteContext(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out.String(), "click")
	assert.Contains(t, out.String(), "type_text")
	assert.Contains(t, out.String(), "open_app")
}

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "lang with encoding suffix",
			env:  map[string]string{"LANG": "de_DE.UTF-8"},
			want: "de_DE",
		},
		{
			name: "lc_all takes precedence",
			env:  map[string]string{"LC_ALL": "fr_FR.UTF-8", "LANG": "en_US.UTF-8"},
			want: "fr_FR",
		},
		{
			name: "posix locale falls back to default",
			env:  map[string]string{"LANG": "C"},
			want: "en_US",
		},
		{
			name: "nothing set",
			env:  map[string]string{},
			want: "en_US",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
				t.Setenv(key, "")
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tc.want, detectLocale())
		})
	}
}
