// Package locator resolves fuzzy window descriptions against the live
// desktop through an escalating ladder of matching strategies. Cheap
// deterministic tiers run first; the model is consulted only when every
// deterministic tier has failed.
package locator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
)

// ErrNotResolved is returned when every tier, including the AI-assisted one,
// failed to produce a single confident match. Callers report it up; the
// resolver never retries internally.
var ErrNotResolved = errors.New("target could not be resolved")

// WindowSource enumerates the current top-level windows. Satisfied by the
// automation driver.
type WindowSource interface {
	ListWindows(ctx context.Context) ([]schemas.WindowInfo, error)
}

// WindowChooser is the model-side collaborator for the last tier: given the
// requested target and the candidate titles, it answers with exactly one of
// the candidates.
type WindowChooser interface {
	ChooseWindow(ctx context.Context, target string, candidates []string, locale string) (string, error)
}

// Resolver walks the tier ladder. Tier order is fixed; a tier that matches
// more than one window is ambiguous and counts as failed.
type Resolver struct {
	source  WindowSource
	chooser WindowChooser
	logger  *zap.Logger
}

// NewResolver builds a Resolver. chooser may be nil, which disables the AI
// tier (resolution then fails after tier 4).
func NewResolver(source WindowSource, chooser WindowChooser, logger *zap.Logger) *Resolver {
	return &Resolver{
		source:  source,
		chooser: chooser,
		logger:  logger.Named("locator"),
	}
}

// Resolve runs the ladder for one query.
func (r *Resolver) Resolve(ctx context.Context, query schemas.LocatorQuery) (schemas.LocatorResult, error) {
	target := strings.TrimSpace(query.Title)
	if target == "" {
		return schemas.LocatorResult{}, fmt.Errorf("%w: empty target", ErrNotResolved)
	}

	windows, err := r.source.ListWindows(ctx)
	if err != nil {
		return schemas.LocatorResult{}, fmt.Errorf("enumerating windows: %w", err)
	}

	type tier struct {
		id    schemas.LocatorTier
		match func([]schemas.WindowInfo, string) []schemas.WindowInfo
	}
	tiers := []tier{
		{schemas.TierExact, matchExact},
		{schemas.TierPattern, matchPattern},
		{schemas.TierProcess, matchProcess},
		{schemas.TierPlatform, matchNormalized},
	}

	for _, t := range tiers {
		candidates := t.match(windows, target)
		switch len(candidates) {
		case 1:
			r.logger.Debug("Target resolved",
				zap.String("target", target),
				zap.String("tier", t.id.String()),
				zap.String("title", candidates[0].Title))
			return schemas.LocatorResult{Window: candidates[0], Tier: t.id}, nil
		case 0:
			continue
		default:
			// Ambiguity at a tier is failure, never arbitrary choice.
			r.logger.Debug("Tier ambiguous, escalating",
				zap.String("target", target),
				zap.String("tier", t.id.String()),
				zap.Int("candidates", len(candidates)))
		}
	}

	return r.resolveWithAI(ctx, query, windows)
}

// resolveWithAI is the final tier: the model picks one candidate title. The
// answer is only trusted when it is exactly one of the offered titles.
func (r *Resolver) resolveWithAI(ctx context.Context, query schemas.LocatorQuery, windows []schemas.WindowInfo) (schemas.LocatorResult, error) {
	if r.chooser == nil || len(windows) == 0 {
		return schemas.LocatorResult{}, fmt.Errorf("%w: %q", ErrNotResolved, query.Title)
	}

	titles := make([]string, len(windows))
	for i, w := range windows {
		titles[i] = w.Title
	}

	answer, err := r.chooser.ChooseWindow(ctx, query.Title, titles, query.Locale)
	if err != nil {
		return schemas.LocatorResult{}, fmt.Errorf("%w: %q: ai selection failed: %v", ErrNotResolved, query.Title, err)
	}

	answer = strings.TrimSpace(answer)
	for _, w := range windows {
		if w.Title == answer {
			r.logger.Info("Target resolved by model",
				zap.String("target", query.Title),
				zap.String("title", w.Title))
			return schemas.LocatorResult{Window: w, Tier: schemas.TierAIAssisted, FromAI: true}, nil
		}
	}
	return schemas.LocatorResult{}, fmt.Errorf("%w: %q: model answer %q is not a candidate", ErrNotResolved, query.Title, answer)
}

func matchExact(windows []schemas.WindowInfo, target string) []schemas.WindowInfo {
	var out []schemas.WindowInfo
	for _, w := range windows {
		if w.Title == target {
			out = append(out, w)
		}
	}
	return out
}

// matchPattern does a case-insensitive substring check, or a regexp match
// when the target compiles as one and contains metacharacters.
func matchPattern(windows []schemas.WindowInfo, target string) []schemas.WindowInfo {
	lower := strings.ToLower(target)

	var re *regexp.Regexp
	if strings.ContainsAny(target, ".*+?[](){}|^$\\") {
		re, _ = regexp.Compile("(?i)" + target)
	}

	var out []schemas.WindowInfo
	for _, w := range windows {
		if strings.Contains(strings.ToLower(w.Title), lower) {
			out = append(out, w)
			continue
		}
		if re != nil && re.MatchString(w.Title) {
			out = append(out, w)
		}
	}
	return out
}

// matchProcess correlates by owning-process name for cases where window
// titles carry no trace of the application name. The target must equal the
// whole normalized process name or one of its tokens ("gnome-calculator"
// matches "calculator" but not "calc"); containment is deliberately not
// enough, or unrelated processes sharing a word fragment would correlate.
func matchProcess(windows []schemas.WindowInfo, target string) []schemas.WindowInfo {
	want := normalize(target)
	if want == "" {
		return nil
	}

	var out []schemas.WindowInfo
	for _, w := range windows {
		proc := processToken(w.ProcessName)
		if proc == "" {
			continue
		}
		if proc == want {
			out = append(out, w)
			continue
		}
		for _, token := range processTokens(w.ProcessName) {
			if token == want {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// matchNormalized strips punctuation and whitespace from both sides and
// checks containment either way.
func matchNormalized(windows []schemas.WindowInfo, target string) []schemas.WindowInfo {
	t := normalize(target)
	if t == "" {
		return nil
	}

	var out []schemas.WindowInfo
	for _, w := range windows {
		wt := normalize(w.Title)
		if wt == "" {
			continue
		}
		if strings.Contains(wt, t) || strings.Contains(t, wt) {
			out = append(out, w)
		}
	}
	return out
}

func processToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".exe")
	return normalize(s)
}

// processTokens splits a process name on its separators, so hyphenated and
// underscored binary names expose their words individually.
func processTokens(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".exe")
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
