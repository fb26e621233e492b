/*
Package channel implements the device side of the pairing and encrypted command protocol.

A [Channel] is driven by a transport through the [transport.Handler] interface. Writes that look
like a compressed P-256 public key start pairing; everything else is treated as an encrypted
DataPacket once a key exists. Decrypted text is typed through a [TextSink] and other commands go
to a [CommandSink]. While a peer is connected the Channel sends a keepalive notification every
[Config.KeepaliveInterval].

Malformed, unauthentic or unexpected input is dropped and reported through the status indicator.
It never disconnects the peer.
*/
package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chaz8081/gostt-kbd/internal/authentication"
	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/protocol"
	"github.com/chaz8081/gostt-kbd/pkg/status"
	"github.com/chaz8081/gostt-kbd/pkg/transport"
)

var logger = log.New("channel")

// TextSink types decrypted text.
type TextSink interface {
	// TypeText types text and returns early with ctx's error when ctx is done.
	TypeText(ctx context.Context, text []byte) error
}

// CommandSink handles decrypted commands other than text.
type CommandSink interface {
	HandleCommand(ctx context.Context, kind uint32, payload []byte) error
}

// Resetter is implemented by sinks that hold configuration cleared by a factory reset.
type Resetter interface {
	Reset()
}

// Config tunes a Channel.
type Config struct {
	// KeepaliveInterval is the period of keepalive notifications while connected.
	KeepaliveInterval time.Duration
	// DispatchQueueSize bounds the number of decrypted commands waiting for the sinks. Commands
	// arriving while the queue is full are dropped.
	DispatchQueueSize int
}

// DefaultConfig is used for zero fields of the Config passed to New.
var DefaultConfig = Config{
	KeepaliveInterval: 5000 * time.Millisecond,
	DispatchQueueSize: 16,
}

// Longest ResponsePacket the Channel sends: a peer status carrying a compressed public key.
const maxResponseSize = 64

// notifyTimeout bounds a single notification so a stalled link cannot block the handler.
const notifyTimeout = 2 * time.Second

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("channel: closed")

// connection holds per-connection state. It is replaced on every OnConnect.
type connection struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan job
	window authentication.SequenceWindow
	wg     sync.WaitGroup
}

// Channel is the device's protocol state machine. All methods are safe for concurrent use.
type Channel struct {
	session    *authentication.Session
	peripheral transport.Peripheral
	text       TextSink
	commands   CommandSink
	indicator  status.Indicator
	config     Config

	ctx    context.Context
	cancel context.CancelFunc

	lock  sync.Mutex
	state State
	conn  *connection

	sendLock sync.Mutex
}

// New returns a Disconnected Channel.
func New(session *authentication.Session, peripheral transport.Peripheral, text TextSink, commands CommandSink, indicator status.Indicator, config Config) *Channel {
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = DefaultConfig.KeepaliveInterval
	}
	if config.DispatchQueueSize <= 0 {
		config.DispatchQueueSize = DefaultConfig.DispatchQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		session:    session,
		peripheral: peripheral,
		text:       text,
		commands:   commands,
		indicator:  indicator,
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Start makes the device discoverable.
func (c *Channel) Start(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	if err := c.peripheral.StartDiscoverable(ctx); err != nil {
		c.indicator.SetStatus(status.Error)
		return err
	}
	c.indicator.SetStatus(status.Advertising)
	return nil
}

// Close stops any connection goroutines. The Channel must not be used afterwards.
func (c *Channel) Close() {
	c.cancel()
	c.lock.Lock()
	conn := c.conn
	c.conn = nil
	c.state = Disconnected
	c.lock.Unlock()
	if conn != nil {
		conn.cancel()
		conn.wg.Wait()
	}
}

// OnConnect starts a new connection. The state resolves to ConnectedPaired if the session
// already holds a key and ConnectedUnpaired otherwise.
func (c *Channel) OnConnect() {
	c.lock.Lock()
	previous := c.conn
	c.state = Connecting
	ctx, cancel := context.WithCancel(c.ctx)
	conn := &connection{ctx: ctx, cancel: cancel, queue: make(chan job, c.config.DispatchQueueSize)}
	c.conn = conn
	paired := c.session.HasKey()
	if paired {
		c.state = ConnectedPaired
	} else {
		c.state = ConnectedUnpaired
	}
	conn.wg.Add(2)
	go c.keepalive(conn)
	go c.drain(conn)
	c.lock.Unlock()

	if previous != nil {
		logger.Warning("connect while already connected; dropping previous connection")
		previous.cancel()
	}
	if paired {
		logger.Info("paired peer connected")
		c.indicator.SetStatus(status.Paired)
	} else {
		logger.Info("unpaired peer connected")
		c.indicator.SetStatus(status.Connected)
	}
}

// OnDisconnect ends the current connection, cancels pending commands and makes the device
// discoverable again. Pairing material is kept.
func (c *Channel) OnDisconnect(reason error) {
	c.lock.Lock()
	conn := c.conn
	c.conn = nil
	c.state = Disconnected
	c.lock.Unlock()

	if conn == nil {
		logger.Debug("disconnect without connection")
		return
	}
	conn.cancel()
	if reason != nil {
		logger.Info("peer disconnected: %s", reason)
	} else {
		logger.Info("peer disconnected")
	}
	if c.ctx.Err() != nil {
		return
	}
	c.indicator.SetStatus(status.Advertising)
	if err := c.peripheral.StartDiscoverable(c.ctx); err != nil {
		logger.Error("failed to restart advertising: %s", err)
		c.indicator.SetStatus(status.Error)
	}
}

// current returns the active connection and state.
func (c *Channel) current() (*connection, State) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.conn, c.state
}

// OnWrite handles a single write from the peer.
func (c *Channel) OnWrite(buf []byte) {
	conn, state := c.current()
	if conn == nil || !state.Connected() {
		logger.Debug("dropping %d-byte write while %s", len(buf), state)
		return
	}
	if protocol.IsPairingRequest(buf) {
		c.pair(conn, buf)
		return
	}
	if !c.session.HasKey() {
		logger.Debug("dropping %d-byte write: not paired", len(buf))
		return
	}
	if err := c.receive(conn, buf); err != nil {
		logger.Warning("dropping packet: %s", err)
		c.indicator.SetStatus(status.Error)
	}
}

func (c *Channel) pair(conn *connection, peerPublic []byte) {
	ownPublic, err := c.session.Pair(peerPublic)
	if err != nil {
		logger.Warning("pairing failed: %s", err)
		c.indicator.SetStatus(status.Error)
		return
	}
	if err := c.send(conn.ctx, protocol.ResponsePeerStatus, protocol.PeerKnown, ownPublic); err != nil {
		logger.Warning("failed to send pairing response: %s", err)
	}

	c.lock.Lock()
	if c.conn == conn {
		c.state = ConnectedPaired
		conn.window.Reset()
	}
	c.lock.Unlock()
	c.indicator.SetStatus(status.Paired)
}

// send encodes and notifies a ResponsePacket. Sends are serialized.
func (c *Channel) send(ctx context.Context, kind protocol.ResponseKind, peer protocol.PeerStatus, payload []byte) error {
	var buf [maxResponseSize]byte
	n, err := protocol.EncodeResponsePacket(buf[:], kind, peer, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	return c.peripheral.Notify(ctx, buf[:n])
}

func (c *Channel) keepalive(conn *connection) {
	defer conn.wg.Done()
	ticker := time.NewTicker(c.config.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-conn.ctx.Done():
			return
		case <-ticker.C:
			if err := c.send(conn.ctx, protocol.ResponseKeepalive, protocol.PeerUnknown, nil); err != nil && conn.ctx.Err() == nil {
				logger.Debug("keepalive failed: %s", err)
			}
		}
	}
}

// FactoryReset erases all pairing material and configuration. A connected peer stays connected
// but must pair again.
func (c *Channel) FactoryReset() error {
	logger.Warning("factory reset")
	err := c.session.Erase()
	if r, ok := c.commands.(Resetter); ok {
		r.Reset()
	}
	c.lock.Lock()
	if c.state == ConnectedPaired {
		c.state = ConnectedUnpaired
	}
	c.lock.Unlock()
	c.indicator.SetStatus(status.FactoryReset)
	return err
}
