package automation

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os/exec"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/config"
)

// RobotDriver is the production Driver backed by robotgo and the system
// clipboard. It is safe for use from a single goroutine; the agent loop never
// issues concurrent automation calls.
type RobotDriver struct {
	cfg    config.AutomationConfig
	logger *zap.Logger
}

// NewRobotDriver constructs the robotgo-backed driver.
func NewRobotDriver(cfg config.AutomationConfig, logger *zap.Logger) *RobotDriver {
	if cfg.TypingIntervalMs > 0 {
		robotgo.KeySleep = cfg.TypingIntervalMs
	}
	return &RobotDriver{
		cfg:    cfg,
		logger: logger.Named("automation"),
	}
}

func (d *RobotDriver) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

func (d *RobotDriver) ListWindows(ctx context.Context) ([]schemas.WindowInfo, error) {
	pids, err := robotgo.Pids()
	if err != nil {
		return nil, fmt.Errorf("enumerating processes: %w", err)
	}

	windows := make([]schemas.WindowInfo, 0, len(pids))
	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		title := robotgo.GetTitle(pid)
		if title == "" {
			continue
		}
		name, _ := robotgo.FindName(pid)
		windows = append(windows, schemas.WindowInfo{
			Handle:      strconv.Itoa(int(pid)),
			Title:       title,
			ProcessName: name,
			PID:         int(pid),
		})
	}
	return windows, nil
}

func (d *RobotDriver) ActiveWindowTitle() (string, error) {
	title := robotgo.GetTitle()
	if title == "" {
		return "", fmt.Errorf("no active window title available")
	}
	return title, nil
}

func (d *RobotDriver) FocusWindow(ctx context.Context, win schemas.WindowInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if win.PID <= 0 {
		return fmt.Errorf("cannot focus window %q: no pid", win.Title)
	}
	if err := robotgo.ActivePid(int(win.PID)); err != nil {
		return fmt.Errorf("activating pid %d (%q): %w", win.PID, win.Title, err)
	}
	d.settle()
	return nil
}

func (d *RobotDriver) OpenApplication(ctx context.Context, nameOrPath string) error {
	if nameOrPath == "" {
		return fmt.Errorf("no application name given")
	}
	cmd := exec.CommandContext(ctx, nameOrPath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %q: %w", nameOrPath, err)
	}
	d.logger.Info("Launched application", zap.String("app", nameOrPath), zap.Int("pid", cmd.Process.Pid))

	// Detach; the application outlives the agent's interest in it.
	go func() { _ = cmd.Wait() }()
	return nil
}

func (d *RobotDriver) MoveMouse(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (d *RobotDriver) MousePosition() (int, int) {
	return robotgo.Location()
}

func (d *RobotDriver) Click(x, y int, button string, double bool) error {
	if button == "" {
		button = ButtonLeft
	}
	robotgo.Move(x, y)
	d.settle()
	robotgo.Click(button, double)
	return nil
}

func (d *RobotDriver) Drag(fromX, fromY, toX, toY int) error {
	robotgo.Move(fromX, fromY)
	d.settle()
	robotgo.DragSmooth(toX, toY)
	return nil
}

func (d *RobotDriver) Scroll(amount int) error {
	robotgo.Scroll(0, amount)
	return nil
}

func (d *RobotDriver) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (d *RobotDriver) PressKey(key string) error {
	return robotgo.KeyTap(NormalizeKey(key))
}

func (d *RobotDriver) Hotkey(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("empty key chord")
	}
	normalized := make([]string, len(keys))
	for i, k := range keys {
		normalized[i] = NormalizeKey(k)
	}
	// robotgo takes the key first, modifiers after.
	key := normalized[len(normalized)-1]
	modifiers := make([]interface{}, 0, len(normalized)-1)
	for _, m := range normalized[:len(normalized)-1] {
		modifiers = append(modifiers, m)
	}
	return robotgo.KeyTap(key, modifiers...)
}

func (d *RobotDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("capturing screen: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *RobotDriver) ReadClipboard() (string, error) {
	return clipboard.ReadAll()
}

func (d *RobotDriver) WriteClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// settle pauses briefly after pointer or focus changes so the window system
// catches up before the next synthetic event.
func (d *RobotDriver) settle() {
	if d.cfg.MouseSettle > 0 {
		time.Sleep(d.cfg.MouseSettle)
	}
}
