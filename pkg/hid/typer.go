/*
Package hid types text and sends media keys through a USB HID keyboard.

The [Typer] drives a [ReportWriter] attached to a HID device node. Only a US layout is
supported; bytes outside printable ASCII, newline and tab are skipped.
*/
package hid

import (
	"context"
	"fmt"
	"time"

	"github.com/chaz8081/gostt-kbd/internal/log"
)

var logger = log.New("hid")

// Timing controls keystroke cadence.
type Timing struct {
	Press         time.Duration
	Gap           time.Duration
	ShortcutHold  time.Duration
	ConsumerPress time.Duration
}

// DefaultTiming matches what common hosts accept without dropping keys.
var DefaultTiming = Timing{
	Press:         5 * time.Millisecond,
	Gap:           2 * time.Millisecond,
	ShortcutHold:  10 * time.Millisecond,
	ConsumerPress: 10 * time.Millisecond,
}

// Typer turns text into keystrokes.
type Typer struct {
	reports *ReportWriter
	timing  Timing
}

// NewTyper returns a Typer using timing.
func NewTyper(reports *ReportWriter, timing Timing) *Typer {
	return &Typer{reports: reports, timing: timing}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Typer) stroke(ctx context.Context, key Key, hold time.Duration) error {
	if err := t.reports.Keyboard(key); err != nil {
		return fmt.Errorf("key press: %w", err)
	}
	holdErr := wait(ctx, hold)
	// Always release so an aborted stroke does not leave a key held down.
	if err := t.reports.ReleaseKeyboard(); err != nil {
		return fmt.Errorf("key release: %w", err)
	}
	if holdErr != nil {
		return holdErr
	}
	return wait(ctx, t.timing.Gap)
}

// TypeText types text one byte at a time. It stops between keystrokes when ctx is done and
// returns ctx's error.
func (t *Typer) TypeText(ctx context.Context, text []byte) error {
	skipped := 0
	for _, c := range text {
		key, ok := Lookup(c)
		if !ok {
			skipped++
			continue
		}
		if err := t.stroke(ctx, key, t.timing.Press); err != nil {
			return err
		}
	}
	if skipped > 0 {
		logger.Debug("skipped %d untypeable bytes", skipped)
	}
	return nil
}

// Shortcut presses a key combination, holding it longer than a typed character.
func (t *Typer) Shortcut(ctx context.Context, modifier, keycode uint8) error {
	return t.stroke(ctx, Key{modifier, keycode}, t.timing.Press+t.timing.ShortcutHold)
}

// ConsumerControl presses and releases a consumer control usage such as Mute (0x00E2).
func (t *Typer) ConsumerControl(ctx context.Context, usage uint16) error {
	if err := t.reports.Consumer(usage); err != nil {
		return fmt.Errorf("consumer press: %w", err)
	}
	holdErr := wait(ctx, t.timing.ConsumerPress)
	if err := t.reports.Consumer(0); err != nil {
		return fmt.Errorf("consumer release: %w", err)
	}
	return holdErr
}
