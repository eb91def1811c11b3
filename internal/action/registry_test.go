package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveCanonicalNames(t *testing.T) {
	r := NewRegistry()

	for _, name := range r.Names() {
		k, ok := r.Resolve(name)
		require.True(t, ok, "canonical name %q must resolve", name)
		assert.Equal(t, name, string(k))
	}
}

func TestRegistry_ResolveAliases(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		in   string
		want Kind
	}{
		{"launch", KindOpenApp},
		{"type", KindTypeText},
		{"Input Text", KindTypeText},
		{"FOCUS", KindFocusWindow},
		{"double-click", KindDoubleClick},
		{"sleep", KindWait},
		{"shortcut", KindHotkey},
	}
	for _, tc := range tests {
		k, ok := r.Resolve(tc.in)
		require.True(t, ok, "alias %q must resolve", tc.in)
		assert.Equal(t, tc.want, k)
	}
}

func TestRegistry_UnknownNameDoesNotResolve(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Resolve("teleport")
	assert.False(t, ok)
}

func TestRegistry_SuggestTypo(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, "click", r.Suggest("clikc"))
	assert.Equal(t, "type_text", r.Suggest("type_txt"))
	assert.Equal(t, "screenshot", r.Suggest("screnshot"))
}

func TestRegistry_SuggestIsDeterministic(t *testing.T) {
	r := NewRegistry()

	first := r.Suggest("clikc")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Suggest("clikc"), "same input must always yield the same suggestion")
	}
}

func TestRegistry_SuggestNothingForGarbage(t *testing.T) {
	r := NewRegistry()

	assert.Empty(t, r.Suggest("zzzzzzzzzzzz"))
	assert.Empty(t, r.Suggest(""))
}

func TestRegistry_NamesIsSortedCopy(t *testing.T) {
	r := NewRegistry()

	names := r.Names()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)

	names[0] = "mutated"
	assert.NotEqual(t, "mutated", r.Names()[0], "Names must return a copy")
}
