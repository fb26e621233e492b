package ws

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/mock/gomock"

	"github.com/chaz8081/gostt-kbd/mocks"
	"github.com/chaz8081/gostt-kbd/pkg/transport"
)

type testAnnouncement struct {
	lock     sync.Mutex
	shutdown bool
}

func (a *testAnnouncement) Shutdown() {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.shutdown = true
}

func (a *testAnnouncement) isShutdown() bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.shutdown
}

type testRegistrar struct {
	instance string
	service  string
	port     int
	last     *testAnnouncement
}

func (r *testRegistrar) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Announcement, error) {
	r.instance = instance
	r.service = service
	r.port = port
	r.last = &testAnnouncement{}
	return r.last, nil
}

type harness struct {
	server  *Server
	handler *mocks.TransportHandler
	cancel  context.CancelFunc
	result  chan error
}

func startServer(t *testing.T, config Config) *harness {
	if config.Address == "" {
		config.Address = "127.0.0.1:0"
	}
	server, err := Listen(config)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	h := &harness{
		server:  server,
		handler: mocks.NewTransportHandler(gomock.NewController(t)),
		result:  make(chan error, 1),
	}
	var ctx context.Context
	ctx, h.cancel = context.WithCancel(context.Background())
	go func() {
		h.result <- server.Serve(ctx, h.handler)
	}()
	deadline := time.Now().Add(time.Second)
	for {
		server.lock.Lock()
		ready := server.handler != nil
		server.lock.Unlock()
		if ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Serve did not start")
		}
		time.Sleep(time.Millisecond)
	}
	t.Cleanup(h.cancel)
	return h
}

func dial(t *testing.T, server *Server) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(server.URL(), nil)
	if err != nil {
		t.Fatalf("Dial failed: %s", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRoundTrip(t *testing.T) {
	h := startServer(t, Config{})
	connected := make(chan struct{})
	received := make(chan []byte, 1)
	h.handler.EXPECT().OnConnect().Do(func() { close(connected) })
	h.handler.EXPECT().OnWrite(gomock.Any()).Do(func(buf []byte) { received <- buf })
	h.handler.EXPECT().OnDisconnect(gomock.Any()).AnyTimes()

	conn := dial(t, h.server)
	<-connected

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x0a, 0x00}); err != nil {
		t.Fatalf("Write failed: %s", err)
	}
	select {
	case buf := <-received:
		if !bytes.Equal(buf, []byte{0x0a, 0x00}) {
			t.Errorf("Received %02x", buf)
		}
	case <-time.After(time.Second):
		t.Fatal("OnWrite not called")
	}

	if err := h.server.Notify(context.Background(), []byte{8, 0, 16, 0}); err != nil {
		t.Fatalf("Notify failed: %s", err)
	}
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %s", err)
	}
	if kind != websocket.BinaryMessage || !bytes.Equal(data, []byte{8, 0, 16, 0}) {
		t.Errorf("Unexpected notification %d %02x", kind, data)
	}
}

func TestTextAndOversizeMessagesDropped(t *testing.T) {
	h := startServer(t, Config{})
	connected := make(chan struct{})
	received := make(chan []byte, 4)
	h.handler.EXPECT().OnConnect().Do(func() { close(connected) })
	h.handler.EXPECT().OnWrite(gomock.Any()).Do(func(buf []byte) { received <- buf }).AnyTimes()
	h.handler.EXPECT().OnDisconnect(gomock.Any()).AnyTimes()

	conn := dial(t, h.server)
	<-connected
	_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	_ = conn.WriteMessage(websocket.BinaryMessage, make([]byte, transport.MaxWriteLength+1))
	_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1})

	select {
	case buf := <-received:
		if !bytes.Equal(buf, []byte{1}) {
			t.Errorf("Expected only the valid write, got %d bytes", len(buf))
		}
	case <-time.After(time.Second):
		t.Fatal("OnWrite not called")
	}
}

func TestSecondPeerRejected(t *testing.T) {
	h := startServer(t, Config{})
	connected := make(chan struct{})
	h.handler.EXPECT().OnConnect().Do(func() { close(connected) })
	h.handler.EXPECT().OnDisconnect(gomock.Any()).AnyTimes()

	dial(t, h.server)
	<-connected

	second := dial(t, h.server)
	_, _, err := second.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Errorf("Expected policy violation close, got %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	h := startServer(t, Config{})
	connected := make(chan struct{})
	disconnected := make(chan struct{})
	h.handler.EXPECT().OnConnect().Do(func() { close(connected) })
	h.handler.EXPECT().OnDisconnect(gomock.Any()).Do(func(error) { close(disconnected) })

	conn := dial(t, h.server)
	<-connected
	conn.Close()

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect not called")
	}
	if err := h.server.Notify(context.Background(), []byte{0}); !errors.Is(err, transport.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestAnnouncement(t *testing.T) {
	registrar := &testRegistrar{}
	h := startServer(t, Config{Instance: "desk", Registrar: registrar})

	if err := h.server.StartDiscoverable(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if registrar.instance != "desk" || registrar.service != ServiceType {
		t.Errorf("Registered %q %q", registrar.instance, registrar.service)
	}
	if registrar.port != h.server.Addr().(*net.TCPAddr).Port {
		t.Errorf("Registered port %d", registrar.port)
	}

	connected := make(chan struct{})
	h.handler.EXPECT().OnConnect().Do(func() { close(connected) })
	h.handler.EXPECT().OnDisconnect(gomock.Any()).AnyTimes()
	dial(t, h.server)
	<-connected
	if !registrar.last.isShutdown() {
		t.Error("Announcement not withdrawn on connect")
	}
}

func TestAnnouncementDisabled(t *testing.T) {
	registrar := &testRegistrar{}
	h := startServer(t, Config{Registrar: registrar})
	if err := h.server.StartDiscoverable(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if registrar.last != nil {
		t.Error("Registered without an instance name")
	}
}

func TestServeReturnsOnCancel(t *testing.T) {
	h := startServer(t, Config{})
	h.cancel()
	select {
	case err := <-h.result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}
