package automation

import "strings"

// keyAliases maps common planner spellings onto the key names robotgo
// understands. Lookups are case-insensitive.
var keyAliases = map[string]string{
	"return":     "enter",
	"escape":     "esc",
	"del":        "delete",
	"ins":        "insert",
	"win":        "cmd",
	"windows":    "cmd",
	"super":      "cmd",
	"meta":       "cmd",
	"control":    "ctrl",
	"option":     "alt",
	"page_up":    "pageup",
	"page_down":  "pagedown",
	"spacebar":   "space",
	"arrowup":    "up",
	"arrow_up":   "up",
	"arrowdown":  "down",
	"arrow_down": "down",
	"arrowleft":  "left",
	"arrowright": "right",
}

// NormalizeKey resolves a key name to its canonical robotgo spelling.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := keyAliases[k]; ok {
		return canonical
	}
	return k
}

// SplitChord parses a "+"-separated chord ("ctrl+shift+s") into normalized
// key names, preserving order.
func SplitChord(chord string) []string {
	parts := strings.Split(chord, "+")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := NormalizeKey(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
