package peer_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/chaz8081/gostt-kbd/internal/authentication"
	"github.com/chaz8081/gostt-kbd/mocks"
	"github.com/chaz8081/gostt-kbd/pkg/channel"
	"github.com/chaz8081/gostt-kbd/pkg/connector"
	"github.com/chaz8081/gostt-kbd/pkg/hid"
	"github.com/chaz8081/gostt-kbd/pkg/mute"
	"github.com/chaz8081/gostt-kbd/pkg/peer"
	"github.com/chaz8081/gostt-kbd/pkg/protocol"
	"github.com/chaz8081/gostt-kbd/pkg/status"
	"github.com/chaz8081/gostt-kbd/pkg/store"
	"github.com/chaz8081/gostt-kbd/pkg/transport"
)

// loopback connects a companion Connector directly to a device Channel.
type loopback struct {
	device *channel.Channel
	inbox  chan []byte

	lock   sync.Mutex
	writes [][]byte
	closed bool
}

var (
	_ connector.Connector  = (*loopback)(nil)
	_ transport.Peripheral = (*loopback)(nil)
)

func newLoopback() *loopback {
	return &loopback{inbox: make(chan []byte, 16)}
}

func (l *loopback) Receive() <-chan []byte {
	return l.inbox
}

func (l *loopback) Send(_ context.Context, buf []byte) error {
	l.lock.Lock()
	l.writes = append(l.writes, bytes.Clone(buf))
	device := l.device
	l.lock.Unlock()
	if device != nil {
		device.OnWrite(bytes.Clone(buf))
	}
	return nil
}

func (l *loopback) Writes() [][]byte {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([][]byte(nil), l.writes...)
}

func (l *loopback) Close() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.closed {
		l.closed = true
		close(l.inbox)
	}
}

func (l *loopback) Notify(_ context.Context, buf []byte) error {
	select {
	case l.inbox <- bytes.Clone(buf):
		return nil
	default:
		return transport.ErrBusy
	}
}

func (l *loopback) StartDiscoverable(context.Context) error {
	return nil
}

type discard struct{}

func (discard) SetStatus(status.Status) {}

var _ = Describe("Peer", func() {
	var (
		ctrl     *gomock.Controller
		link     *loopback
		text     *mocks.ChannelTextSink
		keyboard *mocks.MuteKeyboard
		st       *store.Memory
		typed    chan string
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		DeferCleanup(ctrl.Finish)
		link = newLoopback()
		text = mocks.NewChannelTextSink(ctrl)
		keyboard = mocks.NewMuteKeyboard(ctrl)
		st = store.NewMemory()
		typed = make(chan string, 16)

		text.EXPECT().TypeText(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, buf []byte) error {
			typed <- string(buf)
			return nil
		}).AnyTimes()

		session, err := authentication.NewSession(st, nil)
		Expect(err).ToNot(HaveOccurred())
		device := channel.New(session, link, text, mute.NewController(keyboard, st), discard{},
			channel.Config{KeepaliveInterval: time.Hour})
		DeferCleanup(device.Close)
		link.device = device
		device.OnConnect()
	})

	pair := func() *peer.Client {
		key, err := peer.Pair(context.Background(), link, nil)
		Expect(err).ToNot(HaveOccurred())
		client, err := peer.NewClient(link, key)
		Expect(err).ToNot(HaveOccurred())
		client.SetChunkDelay(0)
		return client
	}

	Describe("Pair", func() {
		It("derives the key the keyboard stores", func() {
			key, err := peer.Pair(context.Background(), link, nil)
			Expect(err).ToNot(HaveOccurred())
			stored, err := st.Get(store.KeySymmetricKey)
			Expect(err).ToNot(HaveOccurred())
			Expect(key).To(Equal(stored))
			Expect(link.Writes()[0]).To(HaveLen(protocol.PublicKeyLength))
		})

		It("ignores keepalives while waiting", func() {
			link.inbox <- protocol.AppendResponsePacket(nil, protocol.ResponseKeepalive, protocol.PeerUnknown, nil)
			link.inbox <- []byte{0xff}
			_, err := peer.Pair(context.Background(), link, nil)
			Expect(err).ToNot(HaveOccurred())
		})

		It("times out when the keyboard never answers", func() {
			silent := newLoopback()
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err := peer.Pair(ctx, silent, nil)
			Expect(err).To(MatchError(peer.ErrPairingTimeout))
		})

		It("fails when the link closes", func() {
			closed := newLoopback()
			closed.Close()
			_, err := peer.Pair(context.Background(), closed, nil)
			Expect(err).To(MatchError(peer.ErrLinkClosed))
		})
	})

	Describe("Client", func() {
		It("rejects keys of the wrong length", func() {
			_, err := peer.NewClient(link, make([]byte, 16))
			Expect(err).To(MatchError(peer.ErrBadKeyLength))
		})

		It("types text", func() {
			client := pair()
			Expect(client.SendText(context.Background(), "hello")).To(Succeed())
			Eventually(typed).Should(Receive(Equal("hello")))
		})

		It("splits long text into chunks that reassemble", func() {
			client := pair()
			long := strings.Repeat("lorem ipsum dolor sit amet ", 30)
			Expect(client.SendText(context.Background(), long)).To(Succeed())

			chunks := protocol.ChunkText(long, protocol.MaxPayloadBytes)
			Expect(len(chunks)).To(BeNumerically(">", 1))
			var got strings.Builder
			for range chunks {
				var chunk string
				Eventually(typed).Should(Receive(&chunk))
				got.WriteString(chunk)
			}
			Expect(got.String()).To(Equal(long))
		})

		It("numbers packets in order", func() {
			client := pair()
			Expect(client.SendText(context.Background(), "a")).To(Succeed())
			Expect(client.SendText(context.Background(), "b")).To(Succeed())
			Eventually(typed).Should(Receive())
			Eventually(typed).Should(Receive())

			writes := link.Writes()[1:]
			Expect(writes).To(HaveLen(2))
			for i, buf := range writes {
				pkt, err := protocol.DecodeDataPacket(buf)
				Expect(err).ToNot(HaveOccurred())
				Expect(pkt.SequenceNumber).To(Equal(uint32(i + 1)))
			}
		})

		It("toggles mute with the default action", func() {
			client := pair()
			done := make(chan struct{})
			keyboard.EXPECT().ConsumerControl(gomock.Any(), mute.DefaultUsageID).DoAndReturn(func(context.Context, uint16) error {
				close(done)
				return nil
			})
			Expect(client.MuteToggle(context.Background())).To(Succeed())
			Eventually(done).Should(BeClosed())
		})

		It("configures a shortcut mute action", func() {
			client := pair()
			m, ok := hid.Lookup('m')
			Expect(ok).To(BeTrue())
			shortcut := mute.KeyboardShortcut{Modifier: hid.ModifierLeftCtrl | hid.ModifierLeftShift, Keycode: m.Keycode}
			Expect(client.ConfigureMute(context.Background(), shortcut)).To(Succeed())
			Eventually(func() []byte {
				cfg, _ := st.Get(store.KeyMuteConfig)
				return cfg
			}).Should(Equal(shortcut.Encode()))

			done := make(chan struct{})
			keyboard.EXPECT().Shortcut(gomock.Any(), shortcut.Modifier, shortcut.Keycode).DoAndReturn(func(context.Context, uint8, uint8) error {
				close(done)
				return nil
			})
			Expect(client.MuteToggle(context.Background())).To(Succeed())
			Eventually(done).Should(BeClosed())
		})
	})
})
