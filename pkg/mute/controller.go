package mute

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/protocol"
	"github.com/chaz8081/gostt-kbd/pkg/store"
)

var logger = log.New("mute")

// ErrUnknownCommand is returned by HandleCommand for command kinds other than mute toggle and
// mute configure.
var ErrUnknownCommand = errors.New("mute: unknown command")

// Keyboard performs the HID side of an Action. It is implemented by *hid.Typer.
type Keyboard interface {
	Shortcut(ctx context.Context, modifier, keycode uint8) error
	ConsumerControl(ctx context.Context, usage uint16) error
}

// Controller executes and configures the mute action.
type Controller struct {
	keyboard Keyboard
	store    store.Store
	lock     sync.Mutex
	action   Action
}

// NewController returns a Controller using the action persisted in st, or Default.
func NewController(keyboard Keyboard, st store.Store) *Controller {
	c := &Controller{keyboard: keyboard, store: st, action: Default()}
	payload, err := st.Get(store.KeyMuteConfig)
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Info("no stored mute config, using %s", c.action)
	case err != nil:
		logger.Warning("failed to read mute config: %s", err)
	default:
		if action, err := Parse(payload); err != nil {
			logger.Warning("stored mute config invalid, using default: %s", err)
		} else {
			c.action = action
			logger.Info("loaded mute config: %s", action)
		}
	}
	return c
}

// Action returns the current action.
func (c *Controller) Action() Action {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.action
}

// Toggle performs the configured action.
func (c *Controller) Toggle(ctx context.Context) error {
	action := c.Action()
	logger.Info("mute: %s", action)
	switch a := action.(type) {
	case ConsumerControl:
		return c.keyboard.ConsumerControl(ctx, a.UsageID)
	case KeyboardShortcut:
		return c.keyboard.Shortcut(ctx, a.Modifier, a.Keycode)
	}
	return fmt.Errorf("%w: %T", ErrUnknownKind, action)
}

// Configure parses payload, persists it and makes it the current action. A persistence failure is
// logged and the new action is still installed.
func (c *Controller) Configure(payload []byte) error {
	action, err := Parse(payload)
	if err != nil {
		return err
	}
	if err := c.store.Set(store.KeyMuteConfig, action.Encode()); err != nil {
		logger.Warning("failed to save mute config: %s", err)
	} else if err := c.store.Commit(); err != nil {
		logger.Warning("failed to commit mute config: %s", err)
	}
	c.lock.Lock()
	c.action = action
	c.lock.Unlock()
	logger.Info("mute config updated: %s", action)
	return nil
}

// Reset restores the default action in memory. It does not touch the store.
func (c *Controller) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.action = Default()
}

// HandleCommand dispatches a decrypted non-text command.
func (c *Controller) HandleCommand(ctx context.Context, kind uint32, payload []byte) error {
	switch kind {
	case protocol.CommandMuteToggle:
		return c.Toggle(ctx)
	case protocol.CommandMuteConfigure:
		return c.Configure(payload)
	}
	return fmt.Errorf("%w: %d", ErrUnknownCommand, kind)
}
