// Package action maintains the closed vocabulary of desktop actions and the
// executor that runs them with normalized telemetry.
package action

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Kind identifies one registered action. The vocabulary is closed: planners
// pick from these names and nothing else reaches the automation layer.
type Kind string

const (
	KindOpenApp        Kind = "open_app"
	KindCloseApp       Kind = "close_app"
	KindFocusWindow    Kind = "focus_window"
	KindMinimizeWindow Kind = "minimize_window"
	KindMaximizeWindow Kind = "maximize_window"
	KindClick          Kind = "click"
	KindDoubleClick    Kind = "double_click"
	KindRightClick     Kind = "right_click"
	KindDrag           Kind = "drag"
	KindMoveMouse      Kind = "move_mouse"
	KindScroll         Kind = "scroll"
	KindTypeText       Kind = "type_text"
	KindPressKey       Kind = "press_key"
	KindHotkey         Kind = "hotkey"
	KindNavigateTo     Kind = "navigate_to"
	KindWait           Kind = "wait"
	KindScreenshot     Kind = "screenshot"
	KindVerify         Kind = "verify"
	KindFindElement    Kind = "find_element"
	KindCopy           Kind = "copy"
	KindPaste          Kind = "paste"
	KindSelectAll      Kind = "select_all"
	KindSave           Kind = "save"
	KindReadText       Kind = "read_text"
	KindGetClipboard   Kind = "get_clipboard"
	KindSetClipboard   Kind = "set_clipboard"
)

// aliases maps alternate spellings the planner tends to produce onto
// canonical kinds.
var aliases = map[string]Kind{
	"open":            KindOpenApp,
	"launch":          KindOpenApp,
	"launch_app":      KindOpenApp,
	"start":           KindOpenApp,
	"close":           KindCloseApp,
	"quit":            KindCloseApp,
	"focus":           KindFocusWindow,
	"switch_to":       KindFocusWindow,
	"activate_window": KindFocusWindow,
	"minimize":        KindMinimizeWindow,
	"maximize":        KindMaximizeWindow,
	"left_click":      KindClick,
	"doubleclick":     KindDoubleClick,
	"rightclick":      KindRightClick,
	"context_click":   KindRightClick,
	"move_cursor":     KindMoveMouse,
	"type":            KindTypeText,
	"input_text":      KindTypeText,
	"write":           KindTypeText,
	"key":             KindPressKey,
	"keypress":        KindPressKey,
	"press":           KindPressKey,
	"shortcut":        KindHotkey,
	"key_combo":       KindHotkey,
	"goto":            KindNavigateTo,
	"open_url":        KindNavigateTo,
	"sleep":           KindWait,
	"pause":           KindWait,
	"capture_screen":  KindScreenshot,
	"take_screenshot": KindScreenshot,
	"check":           KindVerify,
	"locate":          KindFindElement,
	"read":            KindReadText,
	"clipboard_get":   KindGetClipboard,
	"clipboard_set":   KindSetClipboard,
}

// Registry is the read-only action vocabulary. It is populated once at
// startup and never mutated afterwards.
type Registry struct {
	lookup map[string]Kind
	names  []string
}

// NewRegistry builds the registry from the canonical kinds and alias table.
func NewRegistry() *Registry {
	kinds := []Kind{
		KindOpenApp, KindCloseApp, KindFocusWindow, KindMinimizeWindow,
		KindMaximizeWindow, KindClick, KindDoubleClick, KindRightClick,
		KindDrag, KindMoveMouse, KindScroll, KindTypeText, KindPressKey,
		KindHotkey, KindNavigateTo, KindWait, KindScreenshot, KindVerify,
		KindFindElement, KindCopy, KindPaste, KindSelectAll, KindSave,
		KindReadText, KindGetClipboard, KindSetClipboard,
	}

	r := &Registry{lookup: make(map[string]Kind, len(kinds)+len(aliases))}
	for _, k := range kinds {
		r.lookup[string(k)] = k
		r.names = append(r.names, string(k))
	}
	for alias, k := range aliases {
		r.lookup[alias] = k
	}
	sort.Strings(r.names)
	return r
}

// Normalize folds an action name to the registry's canonical spelling
// convention: lowercase, trimmed, separators collapsed to underscores.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.ReplaceAll(n, " ", "_")
	return n
}

// Resolve looks up a (possibly aliased) action name. Exact lookup only after
// normalization; fuzzy matching is reserved for suggestions.
func (r *Registry) Resolve(name string) (Kind, bool) {
	k, ok := r.lookup[Normalize(name)]
	return k, ok
}

// Names returns the sorted canonical action names.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// suggestionCutoff is the minimum Levenshtein similarity for a name to count
// as "close enough" to offer.
const suggestionCutoff = 0.6

// Suggest returns the registered name closest to an unknown input, or "" when
// nothing is plausibly close. Ties break toward the lexicographically
// smallest name so the same input always yields the same suggestion.
func (r *Registry) Suggest(name string) string {
	n := Normalize(name)
	if n == "" {
		return ""
	}

	best := ""
	bestScore := 0.0
	for _, candidate := range r.names {
		score := levenshtein.Match(n, candidate, nil)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore < suggestionCutoff {
		return ""
	}
	return best
}
