package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chaz8081/gostt-kbd/pkg/connector"
	"github.com/chaz8081/gostt-kbd/pkg/hid"
	"github.com/chaz8081/gostt-kbd/pkg/mute"
	"github.com/chaz8081/gostt-kbd/pkg/peer"
	"github.com/chaz8081/gostt-kbd/pkg/store"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrRequiresKey     = errors.New("command requires a paired keyboard (run pair first)")
	ErrRequiresLink    = errors.New("command requires a connection to the keyboard")
	ErrInvalidUsage    = errors.New("invalid consumer control usage")
	ErrInvalidModifier = errors.New("invalid modifier")
	ErrInvalidKey      = errors.New("invalid key")

	usageNames = map[string]uint16{
		"MUTE":        mute.DefaultUsageID,
		"PLAY-PAUSE":  0x00CD,
		"VOLUME-UP":   0x00E9,
		"VOLUME-DOWN": 0x00EA,
	}
	modifierNames = map[string]uint8{
		"CTRL":    hid.ModifierLeftCtrl,
		"CONTROL": hid.ModifierLeftCtrl,
		"SHIFT":   hid.ModifierLeftShift,
		"ALT":     hid.ModifierLeftAlt,
		"OPTION":  hid.ModifierLeftAlt,
		"GUI":     hid.ModifierLeftGUI,
		"CMD":     hid.ModifierLeftGUI,
		"SUPER":   hid.ModifierLeftGUI,
		"WIN":     hid.ModifierLeftGUI,
	}
	keyNames = map[string]uint8{
		"ENTER": hid.KeyEnter,
		"TAB":   hid.KeyTab,
		"SPACE": hid.KeySpace,
	}
)

// Session is the state shared by commands run from the command line or the interactive shell.
type Session struct {
	conn       connector.Connector
	store      store.Store
	client     *peer.Client
	chunkDelay time.Duration
}

// NewSession loads the stored key, if any. conn may be nil for commands that never touch the link.
func NewSession(conn connector.Connector, st store.Store, chunkDelay time.Duration) (*Session, error) {
	s := &Session{conn: conn, store: st, chunkDelay: chunkDelay}
	key, err := st.Get(store.KeySymmetricKey)
	if errors.Is(err, store.ErrNotFound) || conn == nil {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	return s, s.useKey(key)
}

func (s *Session) useKey(key []byte) error {
	client, err := peer.NewClient(s.conn, key)
	if err != nil {
		return err
	}
	client.SetChunkDelay(s.chunkDelay)
	s.client = client
	return nil
}

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, s *Session, args map[string]string) error

type Command struct {
	help        string
	requiresKey bool // True if command is encrypted with the paired key
	local       bool // True if command does not need a connection to the keyboard
	args        []Argument
	optional    []Argument
	handler     Handler
}

// ParseUsage accepts a consumer control usage as a name (see usageNames) or a number, such as
// 0xE2 or 226.
func ParseUsage(s string) (uint16, error) {
	if usage, ok := usageNames[strings.ToUpper(s)]; ok {
		return usage, nil
	}
	usage, err := strconv.ParseUint(s, 0, 16)
	if err != nil || usage == 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidUsage, s)
	}
	return uint16(usage), nil
}

// ParseModifiers accepts modifier names joined by '+', such as "ctrl+shift".
func ParseModifiers(s string) (uint8, error) {
	var mask uint8
	for _, name := range strings.Split(s, "+") {
		bit, ok := modifierNames[strings.TrimSpace(strings.ToUpper(name))]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidModifier, name)
		}
		mask |= bit
	}
	return mask, nil
}

// ParseKeycode accepts a single character on a US layout, a key name, or a raw usage ID such as
// 0x10. Characters that need Shift are rejected because the shortcut modifier is given separately.
func ParseKeycode(s string) (uint8, error) {
	if code, ok := keyNames[strings.ToUpper(s)]; ok {
		return code, nil
	}
	if len(s) == 1 {
		c := s[0]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if key, ok := hid.Lookup(c); ok && key.Modifier == 0 {
			return key.Keycode, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	code, err := strconv.ParseUint(s, 0, 8)
	if err != nil || code == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return uint8(code), nil
}

// MuteAction builds the action described by configure-mute's arguments.
func MuteAction(kind, value, key string) (mute.Action, error) {
	switch strings.ToLower(kind) {
	case "consumer":
		if key != "" {
			return nil, fmt.Errorf("%w: consumer actions take a single USAGE", ErrCommandLineArgs)
		}
		usage, err := ParseUsage(value)
		if err != nil {
			return nil, err
		}
		return mute.ConsumerControl{UsageID: usage}, nil
	case "shortcut":
		if key == "" {
			return nil, fmt.Errorf("%w: shortcut actions need MODIFIERS and KEY", ErrCommandLineArgs)
		}
		modifier, err := ParseModifiers(value)
		if err != nil {
			return nil, err
		}
		keycode, err := ParseKeycode(key)
		if err != nil {
			return nil, err
		}
		return mute.KeyboardShortcut{Modifier: modifier, Keycode: keycode}, nil
	case "default":
		return mute.Default(), nil
	}
	return nil, fmt.Errorf("%w: unknown KIND %q", ErrCommandLineArgs, kind)
}

func checkReadiness(commandName string, haveLink, haveKey bool) (*Command, error) {
	info, ok := commands[commandName]
	if !ok {
		return nil, ErrUnknownCommand
	}
	if !info.local && !haveLink {
		return nil, ErrRequiresLink
	}
	if info.requiresKey && !haveKey {
		return nil, ErrRequiresKey
	}
	return info, nil
}

func execute(ctx context.Context, s *Session, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}

	info, err := checkReadiness(args[0], s != nil && s.conn != nil, s != nil && s.client != nil)
	if err != nil {
		return err
	}

	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(ctx, s, keywords)
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" [")
	}
	for _, arg := range c.optional {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" ]")
	}
	fmt.Printf("\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

func readText(text string) (string, error) {
	if text != "-" {
		return text, nil
	}
	buf, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

var commands = map[string]*Command{
	"pair": &Command{
		help: "Pair with the keyboard and store the shared key. The keyboard accepts a new pairing at any time.",
		handler: func(ctx context.Context, s *Session, args map[string]string) error {
			key, err := peer.Pair(ctx, s.conn, nil)
			if err != nil {
				return err
			}
			if err := s.store.Set(store.KeySymmetricKey, key); err != nil {
				return err
			}
			if err := s.store.Commit(); err != nil {
				return fmt.Errorf("paired, but failed to save key: %w", err)
			}
			if err := s.useKey(key); err != nil {
				return err
			}
			fmt.Println("Paired.")
			return nil
		},
	},
	"unpair": &Command{
		help:  "Forget the locally stored key. The keyboard keeps its copy until it pairs again or is reset.",
		local: true,
		handler: func(ctx context.Context, s *Session, args map[string]string) error {
			if err := s.store.Erase(store.KeySymmetricKey); err != nil {
				return err
			}
			s.client = nil
			return s.store.Commit()
		},
	},
	"type": &Command{
		help:        "Type TEXT on the host the keyboard is plugged into",
		requiresKey: true,
		args: []Argument{
			Argument{name: "TEXT", help: "text to type, or - to read from standard input"},
		},
		handler: func(ctx context.Context, s *Session, args map[string]string) error {
			text, err := readText(args["TEXT"])
			if err != nil {
				return err
			}
			return s.client.SendText(ctx, text)
		},
	},
	"mute": &Command{
		help:        "Trigger the keyboard's mute action",
		requiresKey: true,
		handler: func(ctx context.Context, s *Session, args map[string]string) error {
			return s.client.MuteToggle(ctx)
		},
	},
	"configure-mute": &Command{
		help:        "Change the keyboard's mute action",
		requiresKey: true,
		args: []Argument{
			Argument{name: "KIND", help: "'consumer', 'shortcut' or 'default'"},
		},
		optional: []Argument{
			Argument{name: "VALUE", help: "consumer usage (mute, play-pause, volume-up, volume-down or a number) or shortcut modifiers such as ctrl+shift"},
			Argument{name: "KEY", help: "shortcut key, such as m or 0x10"},
		},
		handler: func(ctx context.Context, s *Session, args map[string]string) error {
			kind := strings.ToLower(args["KIND"])
			if kind != "default" && args["VALUE"] == "" {
				return fmt.Errorf("%w: missing VALUE", ErrCommandLineArgs)
			}
			action, err := MuteAction(kind, args["VALUE"], args["KEY"])
			if err != nil {
				return err
			}
			if err := s.client.ConfigureMute(ctx, action); err != nil {
				return err
			}
			fmt.Printf("Mute action set to %s.\n", action)
			return nil
		},
	},
}
