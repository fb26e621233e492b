/*
Package cli facilitates building the keyboard daemon and its companion tools. It defines a
[Config] type that can be used to register common command-line flags (using the Golang flag
package) and environment variable equivalents.

Pairing material is kept in a [store.Store]. By default that is the OS credential store, reached
through [keyring]'s platform-agnostic interface; a JSON file can be used instead on hosts without
one.

# Examples

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for the store and transports
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables

	st, err := config.OpenStore()     // Prompts for a keyring password if needed

The device daemon then calls [Config.Transport] to obtain the link it serves, and the companion
calls [Config.Connect] to reach a keyboard. Both use WebSockets when an address is configured and
BLE otherwise.
*/
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/99designs/keyring"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/connector"
	"github.com/chaz8081/gostt-kbd/pkg/connector/ble"
	wsconnector "github.com/chaz8081/gostt-kbd/pkg/connector/ws"
	"github.com/chaz8081/gostt-kbd/pkg/store"
	"github.com/chaz8081/gostt-kbd/pkg/transport"
	"github.com/chaz8081/gostt-kbd/pkg/transport/gatt"
	"github.com/chaz8081/gostt-kbd/pkg/transport/ws"
)

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvStoreFile    = "GOSTT_STORE_FILE"
	EnvKeyringType  = "GOSTT_KEYRING_TYPE"
	EnvKeyringPass  = "GOSTT_KEYRING_PASSWORD"
	EnvKeyringPath  = "GOSTT_KEYRING_PATH"
	EnvKeyringDebug = "GOSTT_KEYRING_DEBUG"
	EnvDeviceName   = "GOSTT_DEVICE_NAME"
	EnvBtAdapter    = "GOSTT_BT_ADAPTER"
	EnvWebSocket    = "GOSTT_WS"
	EnvMDNSInstance = "GOSTT_MDNS_INSTANCE"
)

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagStore     Flag = 1 // Enable store options. Required for pairing material.
	FlagBLE       Flag = 2 // Enable BLE options.
	FlagWebSocket Flag = 4 // Enable WebSocket and mDNS options.
	FlagAll       Flag = FlagStore | FlagBLE | FlagWebSocket
)

var (
	ErrNoAvailableTransports = errors.New("no available transports (configuration must permit BLE and/or WebSockets)")
	ErrNoStore               = errors.New("store options are not enabled")
)

// Config fields determine where pairing material lives and how the keyboard is reached.
type Config struct {
	Flags         Flag   // Controls which set of environment variables/CLI flags to use.
	StoreFilename string // JSON file used instead of the system keyring when set.
	Backend       keyring.Config
	BackendType   backendType
	Debug         bool // Enable keyring debug messages

	DeviceName  string // BLE local name
	BtAdapterID int    // HCI index (hci0 is 0)

	// WebSocket is a listen address for the device and a ws:// URL for the companion. When empty
	// the companion may still find a WebSocket keyboard through MDNSInstance.
	WebSocket    string
	MDNSInstance string

	password *string
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags:      flags,
		DeviceName: gatt.DeviceName,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

// RegisterCommandLineFlags registers c's flags on flag.CommandLine.
func (c *Config) RegisterCommandLineFlags() {
	c.RegisterFlags(flag.CommandLine)
}

// RegisterFlags registers c's flags on fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	if c.Flags.isSet(FlagStore) {
		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		fs.StringVar(&c.StoreFilename, "store-file", "", "Keep pairing material in `file` instead of the system keyring. Defaults to $GOSTT_STORE_FILE.")
		fs.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $GOSTT_KEYRING_TYPE.")
		fs.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		fs.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
	if c.Flags.isSet(FlagBLE) {
		fs.StringVar(&c.DeviceName, "name", gatt.DeviceName, "BLE local `name` of the keyboard. Defaults to $GOSTT_DEVICE_NAME.")
		c.registerFlagsOsSpecific(fs)
	}
	if c.Flags.isSet(FlagWebSocket) {
		fs.StringVar(&c.WebSocket, "ws", "", "Use the WebSocket transport at `address` instead of BLE. Defaults to $GOSTT_WS.")
		fs.StringVar(&c.MDNSInstance, "mdns", "", "mDNS `instance` name of the WebSocket keyboard. Defaults to $GOSTT_MDNS_INSTANCE.")
	}
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if c.Flags.isSet(FlagStore) {
		if c.StoreFilename == "" {
			c.StoreFilename = os.Getenv(EnvStoreFile)
			log.Debug("Set store file to '%s'", c.StoreFilename)
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvKeyringPass)
			c.password = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvKeyringPath)
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
	}
	if c.Flags.isSet(FlagBLE) {
		if name := os.Getenv(EnvDeviceName); name != "" && (c.DeviceName == "" || c.DeviceName == gatt.DeviceName) {
			c.DeviceName = name
			log.Debug("Set device name to '%s'", c.DeviceName)
		}
		if c.BtAdapterID == 0 {
			if id, err := strconv.Atoi(os.Getenv(EnvBtAdapter)); err == nil {
				c.BtAdapterID = id
				log.Debug("Set Bluetooth adapter to hci%d", c.BtAdapterID)
			}
		}
	}
	if c.Flags.isSet(FlagWebSocket) {
		if c.WebSocket == "" {
			c.WebSocket = os.Getenv(EnvWebSocket)
			log.Debug("Set WebSocket address to '%s'", c.WebSocket)
		}
		if c.MDNSInstance == "" {
			c.MDNSInstance = os.Getenv(EnvMDNSInstance)
			log.Debug("Set mDNS instance to '%s'", c.MDNSInstance)
		}
	}
}

// OpenStore opens the configured store: c.StoreFilename if set and the system keyring otherwise.
func (c *Config) OpenStore() (store.Store, error) {
	if !c.Flags.isSet(FlagStore) {
		return nil, ErrNoStore
	}
	if c.StoreFilename != "" {
		log.Debug("Opening store file %s...", c.StoreFilename)
		return store.OpenFile(c.StoreFilename)
	}
	if c.Debug {
		keyring.Debug = true
	}
	st, err := store.OpenKeyring(c.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return st, nil
}

func (c *Config) useWebSocket() bool {
	return c.Flags.isSet(FlagWebSocket) && (c.WebSocket != "" || c.MDNSInstance != "")
}

// Transport returns the link the device serves: a WebSocket server if an address is configured and
// a BLE GATT peripheral otherwise.
func (c *Config) Transport() (transport.Server, error) {
	if c.useWebSocket() {
		address := c.WebSocket
		if address == "" {
			address = ":0"
		}
		return ws.Listen(ws.Config{Address: address, Instance: c.MDNSInstance})
	}
	if !c.Flags.isSet(FlagBLE) {
		return nil, ErrNoAvailableTransports
	}
	return gatt.Open(c.BtAdapterID, c.DeviceName)
}

// Connect reaches a keyboard. A ws:// URL is dialed directly; a bare mDNS instance is resolved
// first. Otherwise the keyboard is found over BLE by its local name.
func (c *Config) Connect(ctx context.Context) (connector.Connector, error) {
	if c.useWebSocket() {
		url := c.WebSocket
		if url == "" {
			browser, err := wsconnector.NewBrowser()
			if err != nil {
				return nil, err
			}
			log.Debug("Resolving %s over mDNS...", c.MDNSInstance)
			if url, err = wsconnector.Resolve(ctx, browser, c.MDNSInstance); err != nil {
				return nil, err
			}
		}
		return wsconnector.Dial(ctx, url)
	}
	if !c.Flags.isSet(FlagBLE) {
		return nil, ErrNoAvailableTransports
	}
	device, err := ble.NewDevice(c.BtAdapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to open Bluetooth adapter hci%d: %w", c.BtAdapterID, err)
	}
	log.Debug("Scanning for %s...", c.DeviceName)
	return ble.NewConnection(ctx, device, c.DeviceName)
}
