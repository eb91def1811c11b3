// Package automation wraps the OS-level input and window primitives behind a
// single Driver interface so the rest of the system never talks to the
// desktop directly. The production implementation is robotgo-backed; tests
// substitute fakes.
package automation

import (
	"context"

	"github.com/xvetrov/deskpilot/api/schemas"
)

// MouseButton names for Click.
const (
	ButtonLeft   = "left"
	ButtonRight  = "right"
	ButtonCenter = "center"
)

// Driver is the boundary between the agent and the live desktop. Methods take
// a context so callers can bound slow automation calls, but implementations
// are not required to interrupt a primitive already in flight.
type Driver interface {
	// ScreenSize returns the primary display dimensions in pixels.
	ScreenSize() (width, height int)

	// ListWindows enumerates top-level windows with their owning process.
	ListWindows(ctx context.Context) ([]schemas.WindowInfo, error)

	// ActiveWindowTitle returns the title of the currently focused window.
	ActiveWindowTitle() (string, error)

	// FocusWindow raises and focuses the given window.
	FocusWindow(ctx context.Context, win schemas.WindowInfo) error

	// OpenApplication launches an application by name or path and returns
	// without waiting for it to exit.
	OpenApplication(ctx context.Context, nameOrPath string) error

	// MoveMouse moves the pointer to absolute screen coordinates.
	MoveMouse(x, y int) error

	// MousePosition returns the pointer's current screen coordinates.
	MousePosition() (x, y int)

	// Click moves to the coordinates and presses the given button.
	Click(x, y int, button string, double bool) error

	// Drag presses at the start coordinates and releases at the end.
	Drag(fromX, fromY, toX, toY int) error

	// Scroll scrolls vertically; positive amounts scroll up.
	Scroll(amount int) error

	// TypeText types a string through synthetic key events.
	TypeText(text string) error

	// PressKey taps a single named key ("enter", "tab", "f5", ...).
	PressKey(key string) error

	// Hotkey presses a chord such as ctrl+s. The last element is the key,
	// the rest are modifiers.
	Hotkey(keys []string) error

	// Screenshot captures the primary display as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// ReadClipboard returns the current text clipboard contents.
	ReadClipboard() (string, error)

	// WriteClipboard replaces the text clipboard contents.
	WriteClipboard(text string) error
}
