package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xvetrov/deskpilot/api/schemas"
)

type fakeSource struct {
	windows []schemas.WindowInfo
	calls   int
	err     error
}

func (f *fakeSource) ListWindows(ctx context.Context) ([]schemas.WindowInfo, error) {
	f.calls++
	return f.windows, f.err
}

type fakeChooser struct {
	answer string
	err    error
	calls  int

	gotTarget     string
	gotCandidates []string
}

func (f *fakeChooser) ChooseWindow(ctx context.Context, target string, candidates []string, locale string) (string, error) {
	f.calls++
	f.gotTarget = target
	f.gotCandidates = candidates
	return f.answer, f.err
}

func win(title, proc string) schemas.WindowInfo {
	return schemas.WindowInfo{Handle: title, Title: title, ProcessName: proc}
}

func TestResolve_ExactMatchSkipsAllOtherTiers(t *testing.T) {
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("Untitled - Notepad", "notepad.exe"),
		win("Calculator", "calc.exe"),
	}}
	chooser := &fakeChooser{}
	r := NewResolver(src, chooser, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "Calculator"})
	require.NoError(t, err)

	assert.Equal(t, "Calculator", res.Window.Title)
	assert.Equal(t, schemas.TierExact, res.Tier)
	assert.False(t, res.FromAI)
	assert.Zero(t, chooser.calls, "AI tier must not run when a cheaper tier matches")
}

func TestResolve_SubstringMatch(t *testing.T) {
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("report.txt - Notepad", "notepad.exe"),
		win("Calculator", "calc.exe"),
	}}
	r := NewResolver(src, &fakeChooser{}, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "notepad"})
	require.NoError(t, err)
	assert.Equal(t, "report.txt - Notepad", res.Window.Title)
	assert.Equal(t, schemas.TierPattern, res.Tier)
}

func TestResolve_AmbiguousTierFallsThrough(t *testing.T) {
	// No title contains "gedit", so the title tiers fail; the process tier
	// narrows to the window owned by the requested process.
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("editor - main.go", "goland"),
		win("editor - notes.md", "gedit"),
	}}
	r := NewResolver(src, &fakeChooser{}, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "gedit"})
	require.NoError(t, err)
	assert.Equal(t, "editor - notes.md", res.Window.Title)
	assert.Equal(t, schemas.TierProcess, res.Tier)
}

func TestResolve_NormalizedContainment(t *testing.T) {
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("V.L.C. Media Player", "unrelated"),
		win("Files", "nautilus"),
	}}
	r := NewResolver(src, &fakeChooser{}, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "vlc media"})
	require.NoError(t, err)
	assert.Equal(t, "V.L.C. Media Player", res.Window.Title)
	assert.Equal(t, schemas.TierPlatform, res.Tier)
}

func TestResolve_ProcessTierMatchesHyphenatedNames(t *testing.T) {
	// The process tier splits binary names on separators, so "Calculator"
	// correlates with the gnome-calculator process even though the German
	// title carries no trace of it.
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("Rechner", "gnome-calculator"),
		win("Editor", "gedit"),
	}}
	chooser := &fakeChooser{}
	r := NewResolver(src, chooser, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "Calculator"})
	require.NoError(t, err)

	assert.Equal(t, "Rechner", res.Window.Title)
	assert.Equal(t, schemas.TierProcess, res.Tier)
	assert.Zero(t, chooser.calls, "AI tier must not run when the process tier matches")
}

func TestResolve_ProcessTierRequiresWholeTokenEquality(t *testing.T) {
	// A shared word fragment is not a correlation: "calc" must not pull in
	// gnome-calculator, and resolution falls through to the model.
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("Rechner", "gnome-calculator"),
	}}
	chooser := &fakeChooser{answer: "Rechner"}
	r := NewResolver(src, chooser, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "calc"})
	require.NoError(t, err)
	assert.Equal(t, schemas.TierAIAssisted, res.Tier)
	assert.Equal(t, 1, chooser.calls)
}

func TestResolve_AITierHandlesLocalizedTitles(t *testing.T) {
	// "Calculator" on a fully localized German desktop is "Rechner" run by a
	// "taschenrechner" binary: every deterministic tier fails and the model
	// picks the right candidate.
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("Rechner", "taschenrechner"),
		win("Editor", "gedit"),
	}}
	chooser := &fakeChooser{answer: "Rechner"}
	r := NewResolver(src, chooser, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "Calculator", Locale: "de_DE"})
	require.NoError(t, err)

	assert.Equal(t, "Rechner", res.Window.Title)
	assert.Equal(t, schemas.TierAIAssisted, res.Tier)
	assert.True(t, res.FromAI)
	assert.Equal(t, 1, chooser.calls)
	assert.Equal(t, "Calculator", chooser.gotTarget)
	assert.Equal(t, []string{"Rechner", "Editor"}, chooser.gotCandidates)
}

func TestResolve_AIAnswerMustBeACandidate(t *testing.T) {
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("Rechner", "taschenrechner"),
	}}
	chooser := &fakeChooser{answer: "Some Invented Window"}
	r := NewResolver(src, chooser, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "Calculator"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestResolve_AIFailureIsTerminal(t *testing.T) {
	src := &fakeSource{windows: []schemas.WindowInfo{
		win("Rechner", "taschenrechner"),
	}}
	chooser := &fakeChooser{err: errors.New("model unavailable")}
	r := NewResolver(src, chooser, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "Calculator"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotResolved)
	assert.Equal(t, 1, chooser.calls, "the resolver must not retry the AI tier")
}

func TestResolve_NoChooserNoCandidates(t *testing.T) {
	r := NewResolver(&fakeSource{}, nil, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestResolve_EmptyTarget(t *testing.T) {
	r := NewResolver(&fakeSource{}, nil, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), schemas.LocatorQuery{Title: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotResolved)
}
