// Package ble connects the companion to a keyboard over BLE.
package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ble/ble"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/connector"
	"github.com/chaz8081/gostt-kbd/pkg/transport/gatt"
)

var logger = log.New("ble")

var (
	serviceUUID  = ble.MustParse(gatt.ServiceUUID)
	txUUID       = ble.MustParse(gatt.TxUUID)
	responseUUID = ble.MustParse(gatt.ResponseUUID)
	macUUID      = ble.MustParse(gatt.MacUUID)
)

var (
	ErrNotConnectable = errors.New("ble: keyboard is not accepting connections")
	ErrWriteTooLong   = errors.New("ble: write exceeds negotiated MTU")
)

// Beacon is a keyboard advertisement.
type Beacon struct {
	Address     string
	LocalName   string
	RSSI        int
	Connectable bool
}

// Device is the subset of ble.Device used to find and dial keyboards.
type Device interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
	Dial(ctx context.Context, a ble.Addr) (ble.Client, error)
}

// client is the subset of ble.Client used by an established Connection.
type client interface {
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	ClearSubscriptions() error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// Connection is a connector.Connector to one keyboard.
type Connection struct {
	client  client
	txChar  *ble.Characteristic
	macChar *ble.Characteristic

	blockLength int
	lock        sync.Mutex

	inbox     chan []byte
	rxLock    sync.Mutex
	closed    bool
	closeOnce sync.Once
}

var _ connector.Connector = (*Connection)(nil)

// ScanBeacon returns the first advertisement carrying localName.
func ScanBeacon(ctx context.Context, device Device, localName string) (*Beacon, error) {
	ctx2, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan ble.Advertisement, 1)
	fn := func(a ble.Advertisement) {
		if a.LocalName() != localName {
			return
		}
		select {
		case ch <- a:
			cancel()
		case <-ctx2.Done():
		}
	}

	// Scan returns once ctx2 is canceled, whether by a match or by the caller.
	if err := device.Scan(ctx2, false, fn); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	select {
	case a := <-ch:
		return &Beacon{
			Address:     a.Addr().String(),
			LocalName:   a.LocalName(),
			RSSI:        a.RSSI(),
			Connectable: a.Connectable(),
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NewConnection scans for a keyboard advertising localName and connects to it.
func NewConnection(ctx context.Context, device Device, localName string) (*Connection, error) {
	beacon, err := ScanBeacon(ctx, device, localName)
	if err != nil {
		return nil, err
	}
	return NewConnectionFromBeacon(ctx, device, beacon)
}

// NewConnectionFromBeacon connects to beacon, retrying until ctx is done.
func NewConnectionFromBeacon(ctx context.Context, device Device, beacon *Beacon) (*Connection, error) {
	if !beacon.Connectable {
		return nil, ErrNotConnectable
	}

	var lastError error
	for {
		conn, err := tryToConnect(ctx, device, beacon)
		if err == nil {
			return conn, nil
		}

		logger.Warning("connection attempt failed: %s", err)
		if err := ctx.Err(); err != nil {
			if lastError != nil {
				return nil, lastError
			}
			return nil, err
		}
		lastError = err
	}
}

func tryToConnect(ctx context.Context, device Device, beacon *Beacon) (*Connection, error) {
	logger.Debug("dialing %s (%s)", beacon.Address, beacon.LocalName)
	cln, err := device.Dial(ctx, ble.NewAddr(beacon.Address))
	if err != nil {
		return nil, fmt.Errorf("ble: failed to dial %s: %w", beacon.Address, err)
	}

	services, err := cln.DiscoverServices([]ble.UUID{serviceUUID})
	if err != nil {
		_ = cln.CancelConnection()
		return nil, fmt.Errorf("ble: failed to enumerate services: %w", err)
	}
	if len(services) == 0 {
		_ = cln.CancelConnection()
		return nil, fmt.Errorf("ble: keyboard service not found")
	}

	characteristics, err := cln.DiscoverCharacteristics([]ble.UUID{txUUID, responseUUID, macUUID}, services[0])
	if err != nil {
		_ = cln.CancelConnection()
		return nil, fmt.Errorf("ble: failed to discover characteristics: %w", err)
	}

	var txChar, rxChar, macChar *ble.Characteristic
	for _, characteristic := range characteristics {
		switch {
		case characteristic.UUID.Equal(txUUID):
			txChar = characteristic
		case characteristic.UUID.Equal(responseUUID):
			rxChar = characteristic
		case characteristic.UUID.Equal(macUUID):
			macChar = characteristic
		}
		if _, err := cln.DiscoverDescriptors(nil, characteristic); err != nil {
			_ = cln.CancelConnection()
			return nil, fmt.Errorf("ble: couldn't fetch descriptors: %w", err)
		}
	}
	if txChar == nil || rxChar == nil {
		_ = cln.CancelConnection()
		return nil, fmt.Errorf("ble: failed to find required characteristics")
	}

	blockLength := ble.DefaultMTU - 3
	if txMtu, err := cln.ExchangeMTU(ble.MaxMTU); err != nil {
		logger.Warning("failed to exchange MTU: %s", err)
	} else {
		blockLength = txMtu - 3
		logger.Debug("MTU size: %d", txMtu)
	}

	conn := newConnection(cln, txChar, macChar, blockLength)
	if err := cln.Subscribe(rxChar, false, conn.rx); err != nil {
		_ = cln.CancelConnection()
		return nil, fmt.Errorf("ble: failed to subscribe to responses: %w", err)
	}
	logger.Info("connected to %s", beacon.LocalName)
	return conn, nil
}

func newConnection(cln client, txChar, macChar *ble.Characteristic, blockLength int) *Connection {
	conn := &Connection{
		client:      cln,
		txChar:      txChar,
		macChar:     macChar,
		blockLength: blockLength,
		inbox:       make(chan []byte, connector.BufferSize),
	}
	go func() {
		<-cln.Disconnected()
		conn.closeInbox()
	}()
	return conn
}

func (c *Connection) Receive() <-chan []byte {
	return c.inbox
}

// Send writes buffer to the TX characteristic. Writes must fit in a single ATT PDU.
func (c *Connection) Send(ctx context.Context, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if len(buffer) > c.blockLength {
		return fmt.Errorf("%w: %d > %d bytes", ErrWriteTooLong, len(buffer), c.blockLength)
	}
	logger.Debug("TX: %02x", buffer)
	return c.client.WriteCharacteristic(c.txChar, buffer, false)
}

// MAC reads the keyboard's BLE address from the MAC characteristic.
func (c *Connection) MAC() ([]byte, error) {
	if c.macChar == nil {
		return nil, fmt.Errorf("ble: keyboard has no MAC characteristic")
	}
	return c.client.ReadCharacteristic(c.macChar)
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if err := c.client.ClearSubscriptions(); err != nil {
			logger.Debug("failed to clear subscriptions: %s", err)
		}
		if err := c.client.CancelConnection(); err != nil {
			logger.Warning("failed to close connection: %s", err)
		}
		c.closeInbox()
	})
}

func (c *Connection) closeInbox() {
	c.rxLock.Lock()
	defer c.rxLock.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbox)
	}
}

func (c *Connection) rx(p []byte) {
	c.rxLock.Lock()
	defer c.rxLock.Unlock()
	if c.closed {
		return
	}
	logger.Debug("RX: %02x", p)
	select {
	case c.inbox <- append([]byte(nil), p...):
	default:
		logger.Warning("inbox full; dropping notification")
	}
}
