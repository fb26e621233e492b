/*
Package gatt exposes the keyboard's command channel as a BLE GATT service.

The service has three characteristics: TX (write) carries pairing requests and encrypted
commands, RESPONSE (notify) carries ResponsePackets, and MAC (read) returns the device's BLE
address. A peer counts as connected from the controller's connection event, or from its first
write or RESPONSE subscription when no event was delivered, until its link drops. Only one peer is
served at a time.
*/
package gatt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-ble/ble"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/transport"
)

var logger = log.New("gatt")

const (
	ServiceUUID  = "19b10000-e8f2-537e-4f6c-d104768a1214"
	TxUUID       = "6856e119-2c7b-455a-bf42-cf7ddd2c5907"
	ResponseUUID = "6856e119-2c7b-455a-bf42-cf7ddd2c5908"
	MacUUID      = "19b10002-e8f2-537e-4f6c-d104768a1214"

	// DeviceName is the advertised local name.
	DeviceName = "GOSTT-KBD"
)

var (
	serviceUUID  = ble.MustParse(ServiceUUID)
	txUUID       = ble.MustParse(TxUUID)
	responseUUID = ble.MustParse(ResponseUUID)
	macUUID      = ble.MustParse(MacUUID)
)

// ErrDisconnected is passed to Handler.OnDisconnect when the peer's link drops.
var ErrDisconnected = errors.New("gatt: link disconnected")

// Device is the subset of ble.Device the server uses.
type Device interface {
	AddService(svc *ble.Service) error
	AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error
	Stop() error
}

// link identifies a connected peer. ble.Conn satisfies it.
type link interface {
	Disconnected() <-chan struct{}
}

// notifier is the part of ble.Notifier used to push notifications.
type notifier interface {
	Write(b []byte) (int, error)
}

// handleLink is a peer known only by its controller connection handle. It stands in until the
// peer's first request supplies the ble.Conn.
type handleLink struct {
	handle uint16
	done   chan struct{}
	once   sync.Once
}

func newHandleLink(handle uint16) *handleLink {
	return &handleLink{handle: handle, done: make(chan struct{})}
}

func (l *handleLink) Disconnected() <-chan struct{} {
	return l.done
}

func (l *handleLink) close() {
	l.once.Do(func() { close(l.done) })
}

// Events relays controller connection events to the Server bound to it. Events that arrive
// before a Server is bound are dropped.
type Events struct {
	lock   sync.Mutex
	server *Server
}

func (e *Events) bind(s *Server) {
	e.lock.Lock()
	e.server = s
	e.lock.Unlock()
}

func (e *Events) target() *Server {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.server
}

// Connected reports that the controller accepted a connection with the given handle.
func (e *Events) Connected(handle uint16) {
	if s := e.target(); s != nil {
		s.connected(handle)
	}
}

// Disconnected reports that the connection with the given handle is gone.
func (e *Events) Disconnected(handle uint16) {
	if s := e.target(); s != nil {
		s.disconnected(handle)
	}
}

// Server implements transport.Server on top of a BLE device.
type Server struct {
	device Device
	name   string

	lock      sync.Mutex
	handler   transport.Handler
	peer      link
	notifier  notifier
	advCancel context.CancelFunc

	// Serializes notifications.
	notifyLock sync.Mutex
}

// New registers the keyboard service on device. An empty name advertises DeviceName.
func New(device Device, name string) (*Server, error) {
	if name == "" {
		name = DeviceName
	}
	s := &Server{device: device, name: name}
	if err := device.AddService(s.service()); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens HCI adapter id and serves the keyboard service on it. Connection events from the
// adapter are delivered to the returned Server.
func Open(id int, name string) (*Server, error) {
	events := &Events{}
	device, err := NewDevice(id, events)
	if err != nil {
		return nil, fmt.Errorf("failed to open Bluetooth adapter hci%d: %w", id, err)
	}
	s, err := New(device, name)
	if err != nil {
		return nil, err
	}
	events.bind(s)
	return s, nil
}

func (s *Server) service() *ble.Service {
	svc := ble.NewService(serviceUUID)
	svc.NewCharacteristic(txUUID).HandleWrite(ble.WriteHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		if err := s.write(req.Conn(), req.Data()); err != nil {
			logger.Debug("rejecting write: %s", err)
			if errors.Is(err, transport.ErrBusy) {
				rsp.SetStatus(ble.ErrWriteNotPerm)
			} else {
				rsp.SetStatus(ble.ErrInvalAttrValueLen)
			}
		}
	}))
	svc.NewCharacteristic(responseUUID).HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
		if err := s.subscribe(req.Conn(), n); err != nil {
			logger.Debug("rejecting subscription: %s", err)
			return
		}
		// Returning ends the subscription.
		<-n.Context().Done()
		s.unsubscribe(n)
	}))
	svc.NewCharacteristic(macUUID).HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		mac, err := hardwareAddress(req.Conn().LocalAddr())
		if err != nil {
			logger.Warning("failed to read local address: %s", err)
			rsp.SetStatus(ble.ErrUnlikely)
			return
		}
		_, _ = rsp.Write(mac)
	}))
	return svc
}

// hardwareAddress returns the 6-byte form of a BLE address.
func hardwareAddress(addr ble.Addr) ([]byte, error) {
	mac, err := net.ParseMAC(addr.String())
	if err != nil {
		return nil, err
	}
	return mac, nil
}

// Serve delivers link events to h until ctx is done, then stops advertising and the device.
func (s *Server) Serve(ctx context.Context, h transport.Handler) error {
	s.lock.Lock()
	s.handler = h
	s.lock.Unlock()

	<-ctx.Done()

	s.lock.Lock()
	s.handler = nil
	s.stopAdvertisingLocked()
	s.lock.Unlock()
	if err := s.device.Stop(); err != nil {
		logger.Warning("failed to stop device: %s", err)
	}
	return ctx.Err()
}

// StartDiscoverable starts advertising in the background. Advertising stops when ctx is done or
// a peer connects.
func (s *Server) StartDiscoverable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.peer != nil {
		return transport.ErrBusy
	}
	s.stopAdvertisingLocked()

	advCtx, cancel := context.WithCancel(ctx)
	s.advCancel = cancel
	go func() {
		logger.Info("advertising as %s", s.name)
		err := s.device.AdvertiseNameAndServices(advCtx, s.name, serviceUUID)
		if err != nil && advCtx.Err() == nil {
			logger.Error("advertising stopped: %s", err)
		}
	}()
	return nil
}

func (s *Server) stopAdvertisingLocked() {
	if s.advCancel != nil {
		s.advCancel()
		s.advCancel = nil
	}
}

// Notify sends buf on the RESPONSE characteristic.
func (s *Server) Notify(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	n := s.notifier
	s.lock.Unlock()
	if n == nil {
		return transport.ErrNotConnected
	}

	s.notifyLock.Lock()
	defer s.notifyLock.Unlock()
	_, err := n.Write(buf)
	return err
}

// attach makes l the current peer, reporting a connection the first time l is seen. A request
// link replaces a handleLink peer without reporting the connection again.
func (s *Server) attach(l link) (transport.Handler, error) {
	s.lock.Lock()
	if s.peer == l {
		h := s.handler
		s.lock.Unlock()
		return h, nil
	}
	if pending, ok := s.peer.(*handleLink); ok {
		if _, incoming := l.(*handleLink); !incoming {
			s.peer = l
			h := s.handler
			s.lock.Unlock()
			pending.close()
			go s.watch(l)
			return h, nil
		}
	}
	if s.peer != nil {
		s.lock.Unlock()
		return nil, transport.ErrBusy
	}
	s.peer = l
	s.stopAdvertisingLocked()
	h := s.handler
	s.lock.Unlock()

	logger.Info("peer connected")
	if h != nil {
		h.OnConnect()
	}
	go s.watch(l)
	return h, nil
}

// watch reports the end of l's link.
func (s *Server) watch(l link) {
	<-l.Disconnected()
	s.lock.Lock()
	if s.peer != l {
		s.lock.Unlock()
		return
	}
	s.peer = nil
	s.notifier = nil
	h := s.handler
	s.lock.Unlock()

	logger.Info("peer disconnected")
	if h != nil {
		h.OnDisconnect(ErrDisconnected)
	}
}

func (s *Server) connected(handle uint16) {
	if _, err := s.attach(newHandleLink(handle)); err != nil {
		logger.Debug("ignoring connection %d: %s", handle, err)
	}
}

func (s *Server) disconnected(handle uint16) {
	s.lock.Lock()
	pending, ok := s.peer.(*handleLink)
	s.lock.Unlock()
	if ok && pending.handle == handle {
		pending.close()
	}
}

func (s *Server) write(l link, data []byte) error {
	if len(data) > transport.MaxWriteLength {
		return errors.New("gatt: write exceeds maximum length")
	}
	h, err := s.attach(l)
	if err != nil {
		return err
	}
	if h != nil {
		// The stack reuses its receive buffer.
		h.OnWrite(append([]byte(nil), data...))
	}
	return nil
}

func (s *Server) subscribe(l link, n notifier) error {
	if _, err := s.attach(l); err != nil {
		return err
	}
	s.lock.Lock()
	s.notifier = n
	s.lock.Unlock()
	return nil
}

func (s *Server) unsubscribe(n notifier) {
	s.lock.Lock()
	if s.notifier == n {
		s.notifier = nil
	}
	s.lock.Unlock()
}
