package action

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/automation"
)

// Invocation is one handler call: the resolved kind plus the step's operands.
type Invocation struct {
	Kind   Kind
	Target string
	Args   map[string]any
}

// HandlerFunc performs one action and returns action-specific metadata.
// Returned errors are converted into failed ActionResults by the executor.
type HandlerFunc func(ctx context.Context, inv Invocation) (map[string]any, error)

// TargetResolver narrows the locator to what handlers need.
type TargetResolver interface {
	Resolve(ctx context.Context, query schemas.LocatorQuery) (schemas.LocatorResult, error)
}

// handlers binds the vocabulary to the automation driver and locator.
type handlers struct {
	driver        automation.Driver
	resolver      TargetResolver
	screenshotDir string
	locale        string
	logger        *zap.Logger
}

func (h *handlers) build() map[Kind]HandlerFunc {
	return map[Kind]HandlerFunc{
		KindOpenApp:        h.openApp,
		KindCloseApp:       h.closeApp,
		KindFocusWindow:    h.focusWindow,
		KindMinimizeWindow: h.windowChord([]string{"super", "down"}),
		KindMaximizeWindow: h.windowChord([]string{"super", "up"}),
		KindClick:          h.clicker(automation.ButtonLeft, false),
		KindDoubleClick:    h.clicker(automation.ButtonLeft, true),
		KindRightClick:     h.clicker(automation.ButtonRight, false),
		KindDrag:           h.drag,
		KindMoveMouse:      h.moveMouse,
		KindScroll:         h.scroll,
		KindTypeText:       h.typeText,
		KindPressKey:       h.pressKey,
		KindHotkey:         h.hotkey,
		KindNavigateTo:     h.navigateTo,
		KindWait:           h.wait,
		KindScreenshot:     h.screenshot,
		KindVerify:         h.screenshot,
		KindFindElement:    h.findElement,
		KindCopy:           h.chord([]string{"ctrl", "c"}),
		KindPaste:          h.chord([]string{"ctrl", "v"}),
		KindSelectAll:      h.chord([]string{"ctrl", "a"}),
		KindSave:           h.chord([]string{"ctrl", "s"}),
		KindReadText:       h.readText,
		KindGetClipboard:   h.getClipboard,
		KindSetClipboard:   h.setClipboard,
	}
}

func (h *handlers) openApp(ctx context.Context, inv Invocation) (map[string]any, error) {
	app := firstString(inv.Target, inv.Args, "app", "name", "path")
	if app == "" {
		return nil, fmt.Errorf("open_app requires an application name")
	}
	if err := h.driver.OpenApplication(ctx, app); err != nil {
		return nil, err
	}
	return map[string]any{"app": app}, nil
}

func (h *handlers) closeApp(ctx context.Context, inv Invocation) (map[string]any, error) {
	meta, err := h.focusWindow(ctx, inv)
	if err != nil {
		return meta, err
	}
	if err := h.driver.Hotkey([]string{"alt", "f4"}); err != nil {
		return meta, err
	}
	return meta, nil
}

func (h *handlers) focusWindow(ctx context.Context, inv Invocation) (map[string]any, error) {
	title := firstString(inv.Target, inv.Args, "window", "title")
	if title == "" {
		return nil, fmt.Errorf("focus_window requires a window title")
	}

	res, err := h.resolver.Resolve(ctx, schemas.LocatorQuery{Title: title, Locale: h.locale})
	if err != nil {
		return nil, err
	}
	if err := h.driver.FocusWindow(ctx, res.Window); err != nil {
		return locatorMeta(res), err
	}
	return locatorMeta(res), nil
}

// windowChord focuses the target window and then sends a window-management
// chord. Minimize and maximize have no portable automation primitive, so the
// desktop environment's keyboard shortcut does the work.
func (h *handlers) windowChord(keys []string) HandlerFunc {
	return func(ctx context.Context, inv Invocation) (map[string]any, error) {
		meta, err := h.focusWindow(ctx, inv)
		if err != nil {
			return meta, err
		}
		if err := h.driver.Hotkey(keys); err != nil {
			return meta, err
		}
		return meta, nil
	}
}

func (h *handlers) clicker(button string, double bool) HandlerFunc {
	return func(ctx context.Context, inv Invocation) (map[string]any, error) {
		x, y, meta, err := h.resolveCoordinates(ctx, inv)
		if err != nil {
			return meta, err
		}
		if err := h.driver.Click(x, y, button, double); err != nil {
			return meta, err
		}
		return meta, nil
	}
}

func (h *handlers) drag(ctx context.Context, inv Invocation) (map[string]any, error) {
	fromX, okX1 := intArg(inv.Args, "from_x", "x1")
	fromY, okY1 := intArg(inv.Args, "from_y", "y1")
	toX, okX2 := intArg(inv.Args, "to_x", "x2")
	toY, okY2 := intArg(inv.Args, "to_y", "y2")
	if !okX1 || !okY1 || !okX2 || !okY2 {
		return nil, fmt.Errorf("drag requires from_x/from_y/to_x/to_y coordinates")
	}
	if err := h.driver.Drag(fromX, fromY, toX, toY); err != nil {
		return nil, err
	}
	return map[string]any{"from_x": fromX, "from_y": fromY, "to_x": toX, "to_y": toY}, nil
}

func (h *handlers) moveMouse(ctx context.Context, inv Invocation) (map[string]any, error) {
	x, y, meta, err := h.resolveCoordinates(ctx, inv)
	if err != nil {
		return meta, err
	}
	if err := h.driver.MoveMouse(x, y); err != nil {
		return meta, err
	}
	return meta, nil
}

func (h *handlers) scroll(ctx context.Context, inv Invocation) (map[string]any, error) {
	amount, ok := intArg(inv.Args, "amount", "clicks")
	if !ok {
		amount = 3
	}
	switch strings.ToLower(inv.Target) {
	case "down":
		amount = -abs(amount)
	case "up", "":
		amount = abs(amount)
	}
	if err := h.driver.Scroll(amount); err != nil {
		return nil, err
	}
	return map[string]any{"amount": amount}, nil
}

func (h *handlers) typeText(ctx context.Context, inv Invocation) (map[string]any, error) {
	text := firstString(inv.Target, inv.Args, "text", "value")
	if text == "" {
		return nil, fmt.Errorf("type_text requires text")
	}
	if err := h.driver.TypeText(text); err != nil {
		return nil, err
	}
	return map[string]any{"chars": len(text)}, nil
}

func (h *handlers) pressKey(ctx context.Context, inv Invocation) (map[string]any, error) {
	key := firstString(inv.Target, inv.Args, "key")
	if key == "" {
		return nil, fmt.Errorf("press_key requires a key name")
	}
	if strings.Contains(key, "+") {
		return h.hotkey(ctx, inv)
	}
	if err := h.driver.PressKey(key); err != nil {
		return nil, err
	}
	return map[string]any{"key": automation.NormalizeKey(key)}, nil
}

func (h *handlers) hotkey(ctx context.Context, inv Invocation) (map[string]any, error) {
	chord := firstString(inv.Target, inv.Args, "keys", "combo", "key")
	keys := automation.SplitChord(chord)
	if len(keys) == 0 {
		return nil, fmt.Errorf("hotkey requires a key combination")
	}
	if err := h.driver.Hotkey(keys); err != nil {
		return nil, err
	}
	return map[string]any{"keys": strings.Join(keys, "+")}, nil
}

// navigateTo drives the focused browser: focus the address bar, type the
// URL, submit.
func (h *handlers) navigateTo(ctx context.Context, inv Invocation) (map[string]any, error) {
	url := firstString(inv.Target, inv.Args, "url")
	if url == "" {
		return nil, fmt.Errorf("navigate_to requires a url")
	}
	if err := h.driver.Hotkey([]string{"ctrl", "l"}); err != nil {
		return nil, err
	}
	if err := h.driver.TypeText(url); err != nil {
		return nil, err
	}
	if err := h.driver.PressKey("enter"); err != nil {
		return nil, err
	}
	return map[string]any{"url": url}, nil
}

func (h *handlers) wait(ctx context.Context, inv Invocation) (map[string]any, error) {
	seconds, ok := floatArg(inv.Args, "seconds", "duration")
	if !ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(inv.Target), 64); err == nil {
			seconds, ok = parsed, true
		}
	}
	if !ok || seconds <= 0 {
		seconds = 1
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return map[string]any{"seconds": seconds}, nil
}

func (h *handlers) screenshot(ctx context.Context, inv Invocation) (map[string]any, error) {
	img, err := h.driver.Screenshot(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(h.screenshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshot dir: %w", err)
	}
	path := filepath.Join(h.screenshotDir, fmt.Sprintf("shot_%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return nil, fmt.Errorf("writing screenshot: %w", err)
	}
	return map[string]any{"path": path, "bytes": len(img)}, nil
}

func (h *handlers) findElement(ctx context.Context, inv Invocation) (map[string]any, error) {
	title := firstString(inv.Target, inv.Args, "title", "description")
	if title == "" {
		return nil, fmt.Errorf("find_element requires a target description")
	}
	res, err := h.resolver.Resolve(ctx, schemas.LocatorQuery{Title: title, Locale: h.locale})
	if err != nil {
		return nil, err
	}
	return locatorMeta(res), nil
}

// chord returns a handler that sends a fixed key combination.
func (h *handlers) chord(keys []string) HandlerFunc {
	return func(ctx context.Context, inv Invocation) (map[string]any, error) {
		if err := h.driver.Hotkey(keys); err != nil {
			return nil, err
		}
		return map[string]any{"keys": strings.Join(keys, "+")}, nil
	}
}

// readText selects everything in the focused control, copies it, and reads
// the clipboard. Destructive to the selection but not the content.
func (h *handlers) readText(ctx context.Context, inv Invocation) (map[string]any, error) {
	if err := h.driver.Hotkey([]string{"ctrl", "a"}); err != nil {
		return nil, err
	}
	if err := h.driver.Hotkey([]string{"ctrl", "c"}); err != nil {
		return nil, err
	}
	// Clipboard propagation is asynchronous on most platforms.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(150 * time.Millisecond):
	}

	text, err := h.driver.ReadClipboard()
	if err != nil {
		return nil, fmt.Errorf("reading clipboard: %w", err)
	}
	return map[string]any{"text": text, "chars": len(text)}, nil
}

func (h *handlers) getClipboard(ctx context.Context, inv Invocation) (map[string]any, error) {
	text, err := h.driver.ReadClipboard()
	if err != nil {
		return nil, err
	}
	return map[string]any{"text": text}, nil
}

func (h *handlers) setClipboard(ctx context.Context, inv Invocation) (map[string]any, error) {
	text := firstString(inv.Target, inv.Args, "text", "value")
	if err := h.driver.WriteClipboard(text); err != nil {
		return nil, err
	}
	return map[string]any{"chars": len(text)}, nil
}

// resolveCoordinates finds the screen position for a mouse action: explicit
// x/y arguments first, then a "x,y" target string, then the locator (the
// matched window is focused and its center used).
func (h *handlers) resolveCoordinates(ctx context.Context, inv Invocation) (int, int, map[string]any, error) {
	if x, okX := intArg(inv.Args, "x"); okX {
		if y, okY := intArg(inv.Args, "y"); okY {
			return x, y, map[string]any{"x": x, "y": y}, nil
		}
	}

	if x, y, ok := parseCoordinates(inv.Target); ok {
		return x, y, map[string]any{"x": x, "y": y}, nil
	}

	if inv.Target == "" {
		return 0, 0, nil, fmt.Errorf("%s requires coordinates or a target", inv.Kind)
	}

	res, err := h.resolver.Resolve(ctx, schemas.LocatorQuery{Title: inv.Target, Locale: h.locale})
	if err != nil {
		return 0, 0, nil, err
	}
	if err := h.driver.FocusWindow(ctx, res.Window); err != nil {
		return 0, 0, locatorMeta(res), err
	}
	if res.Window.Width <= 0 || res.Window.Height <= 0 {
		return 0, 0, locatorMeta(res), fmt.Errorf("window %q has no known geometry to click into", res.Window.Title)
	}

	x, y := res.Window.Width/2, res.Window.Height/2
	meta := locatorMeta(res)
	meta["x"], meta["y"] = x, y
	return x, y, meta, nil
}

func parseCoordinates(target string) (int, int, bool) {
	parts := strings.Split(target, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

func locatorMeta(res schemas.LocatorResult) map[string]any {
	return map[string]any{
		"matched_title": res.Window.Title,
		"window_handle": res.Window.Handle,
		"locator_tier":  res.Tier.String(),
		"from_ai":       res.FromAI,
	}
}

// firstString returns the target if set, otherwise the first present string
// argument among the given keys.
func firstString(target string, args map[string]any, keys ...string) string {
	if strings.TrimSpace(target) != "" {
		return target
	}
	for _, k := range keys {
		if v, ok := args[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// intArg reads the first present argument among keys as an int. JSON decoding
// yields float64, so both numeric shapes and numeric strings are accepted.
func intArg(args map[string]any, keys ...string) (int, bool) {
	if f, ok := floatArg(args, keys...); ok {
		return int(f), true
	}
	return 0, false
}

func floatArg(args map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := args[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
