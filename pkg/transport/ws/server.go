/*
Package ws carries the command channel over a WebSocket, for development hosts without a BLE
adapter. Each binary message from the peer is one write; each notification is one binary message
to the peer. Only one peer is served at a time. While no peer is connected the server can be
announced over mDNS so companions find it without an address.
*/
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/transport"
)

var logger = log.New("ws")

const (
	// Path is the HTTP path of the WebSocket endpoint.
	Path = "/ws"
	// ServiceType is the DNS-SD service type announced by StartDiscoverable.
	ServiceType = "_gostt-kbd._tcp"
	// Domain is the DNS-SD domain.
	Domain = "local."
)

const (
	writeTimeout = 2 * time.Second
	// Larger messages close the connection. Messages between MaxWriteLength and this are dropped.
	readLimit = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  transport.MaxWriteLength,
	WriteBufferSize: 256,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Announcement is an active mDNS registration.
type Announcement interface {
	Shutdown()
}

// Registrar announces a service over mDNS.
type Registrar interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Announcement, error)
}

type zeroconfRegistrar struct{}

func (zeroconfRegistrar) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Announcement, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// Config configures a Server.
type Config struct {
	// Address is the TCP listen address, such as ":8765".
	Address string
	// Instance is the mDNS instance name. Announcements are disabled when empty.
	Instance string
	// Registrar announces the service. Defaults to grandcat/zeroconf.
	Registrar Registrar
}

// Server implements transport.Server over WebSockets.
type Server struct {
	config   Config
	listener net.Listener

	lock         sync.Mutex
	handler      transport.Handler
	conn         *websocket.Conn
	announcement Announcement

	writeLock sync.Mutex
}

// Listen opens the listening socket. Connections are accepted once Serve is called.
func Listen(config Config) (*Server, error) {
	if config.Registrar == nil {
		config.Registrar = zeroconfRegistrar{}
	}
	listener, err := net.Listen("tcp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("ws: failed to listen on %s: %w", config.Address, err)
	}
	return &Server{config: config, listener: listener}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// URL returns the ws:// URL of the endpoint.
func (s *Server) URL() string {
	return "ws://" + s.listener.Addr().String() + Path
}

// Serve accepts peers and delivers their events to h until ctx is done.
func (s *Server) Serve(ctx context.Context, h transport.Handler) error {
	s.lock.Lock()
	s.handler = h
	s.lock.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWS)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	result := make(chan error, 1)
	go func() {
		result <- srv.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
	case err := <-result:
		if !errors.Is(err, http.ErrServerClosed) {
			s.shutdown()
			return err
		}
	}
	s.shutdown()
	if err := srv.Close(); err != nil {
		logger.Debug("closing server: %s", err)
	}
	return ctx.Err()
}

func (s *Server) shutdown() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handler = nil
	s.stopAnnouncingLocked()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("upgrade failed: %s", err)
		return
	}
	conn.SetReadLimit(readLimit)

	s.lock.Lock()
	if s.conn != nil || s.handler == nil {
		s.lock.Unlock()
		logger.Info("rejecting %s: %s", r.RemoteAddr, transport.ErrBusy)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"),
			time.Now().Add(writeTimeout))
		conn.Close()
		return
	}
	s.conn = conn
	s.stopAnnouncingLocked()
	h := s.handler
	s.lock.Unlock()

	logger.Info("peer %s connected", r.RemoteAddr)
	h.OnConnect()
	reason := s.readLoop(conn, h)

	s.lock.Lock()
	s.conn = nil
	s.lock.Unlock()
	conn.Close()
	logger.Info("peer %s disconnected", r.RemoteAddr)
	h.OnDisconnect(reason)
}

func (s *Server) readLoop(conn *websocket.Conn, h transport.Handler) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.BinaryMessage {
			logger.Debug("ignoring non-binary message")
			continue
		}
		if len(data) > transport.MaxWriteLength {
			logger.Warning("dropping %d-byte message", len(data))
			continue
		}
		h.OnWrite(data)
	}
}

// Notify sends buf to the peer as a binary message.
func (s *Server) Notify(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	conn := s.conn
	s.lock.Unlock()
	if conn == nil {
		return transport.ErrNotConnected
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, buf)
}

// StartDiscoverable announces the server over mDNS until a peer connects. It does nothing when
// no instance name is configured.
func (s *Server) StartDiscoverable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.config.Instance == "" {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.conn != nil {
		return transport.ErrBusy
	}
	if s.announcement != nil {
		return nil
	}
	port := s.listener.Addr().(*net.TCPAddr).Port
	announcement, err := s.config.Registrar.Register(s.config.Instance, ServiceType, Domain, port,
		[]string{"path=" + Path}, nil)
	if err != nil {
		return fmt.Errorf("ws: mDNS registration failed: %w", err)
	}
	logger.Info("announcing %s.%s on port %d", s.config.Instance, ServiceType, port)
	s.announcement = announcement
	return nil
}

func (s *Server) stopAnnouncingLocked() {
	if s.announcement != nil {
		s.announcement.Shutdown()
		s.announcement = nil
	}
}
