package schemas

// WindowInfo describes one enumerated top-level window.
type WindowInfo struct {
	Handle      string `json:"handle"`
	Title       string `json:"title"`
	ProcessName string `json:"process_name,omitempty"`
	PID         int    `json:"pid,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// LocatorTier identifies which strategy of the escalation ladder produced a
// match. Ordering is significant: lower tiers are cheaper and are always
// attempted first.
type LocatorTier int

const (
	TierExact       LocatorTier = iota + 1 // exact title equality
	TierPattern                            // case-insensitive substring/regex
	TierProcess                            // owning-process name correlation
	TierPlatform                           // normalized containment fallback
	TierAIAssisted                         // model picks from candidate titles
)

func (t LocatorTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPattern:
		return "pattern"
	case TierProcess:
		return "process"
	case TierPlatform:
		return "platform"
	case TierAIAssisted:
		return "ai_assisted"
	default:
		return "unknown"
	}
}

// LocatorQuery is a fuzzy target description to resolve against the live
// window enumeration.
type LocatorQuery struct {
	Title  string `json:"title"`
	Locale string `json:"locale,omitempty"`
}

// LocatorResult reports the resolved window and the tier that found it.
// FromAI marks resolutions whose confidence rests on a model answer rather
// than a deterministic match.
type LocatorResult struct {
	Window WindowInfo  `json:"window"`
	Tier   LocatorTier `json:"tier"`
	FromAI bool        `json:"from_ai"`
}
