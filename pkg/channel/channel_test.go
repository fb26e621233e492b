package channel_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/chaz8081/gostt-kbd/internal/authentication"
	"github.com/chaz8081/gostt-kbd/mocks"
	"github.com/chaz8081/gostt-kbd/pkg/channel"
	"github.com/chaz8081/gostt-kbd/pkg/protocol"
	"github.com/chaz8081/gostt-kbd/pkg/status"
	"github.com/chaz8081/gostt-kbd/pkg/store"
)

type statusRecorder struct {
	lock sync.Mutex
	seen []status.Status
}

func (r *statusRecorder) SetStatus(s status.Status) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.seen = append(r.seen, s)
}

func (r *statusRecorder) Seen() []status.Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]status.Status(nil), r.seen...)
}

func (r *statusRecorder) Last() status.Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.seen) == 0 {
		return status.Idle
	}
	return r.seen[len(r.seen)-1]
}

type sinkWithReset struct {
	*mocks.ChannelCommandSink
	*mocks.ChannelResetter
}

var keepaliveBytes = []byte{0x08, 0x00, 0x10, 0x00}

func seal(key []byte, sequence uint32, plaintext []byte) []byte {
	iv, ciphertext, tag, err := authentication.Encrypt(key, plaintext, rand.Reader)
	Expect(err).ToNot(HaveOccurred())
	buf, err := protocol.MarshalDataPacket(iv, tag, ciphertext, sequence)
	Expect(err).ToNot(HaveOccurred())
	return buf
}

func textPacket(key []byte, sequence uint32, text string) []byte {
	return seal(key, sequence, protocol.MarshalEncryptedData(protocol.MarshalKeyboardPacket([]byte(text))))
}

func commandPacket(key []byte, sequence uint32, kind protocol.CommandKind, payload []byte) []byte {
	return seal(key, sequence, protocol.MarshalCommand(kind, payload))
}

var _ = Describe("Channel", func() {
	var (
		ctrl       *gomock.Controller
		peripheral *mocks.TransportPeripheral
		text       *mocks.ChannelTextSink
		commands   *mocks.ChannelCommandSink
		resetter   *mocks.ChannelResetter
		indicator  *statusRecorder
		st         *store.Memory
		session    *authentication.Session
		config     channel.Config
		ch         *channel.Channel
	)

	newChannel := func() *channel.Channel {
		c := channel.New(session, peripheral, text, sinkWithReset{commands, resetter}, indicator, config)
		DeferCleanup(c.Close)
		return c
	}

	// pair performs the companion side of pairing through ch and returns the derived key.
	pair := func() []byte {
		peer, err := authentication.GenerateKeyPair(rand.Reader)
		Expect(err).ToNot(HaveOccurred())
		replies := make(chan []byte, 1)
		peripheral.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, buf []byte) error {
			replies <- bytes.Clone(buf)
			return nil
		})
		ch.OnWrite(authentication.CompressPublicKey(peer.PublicKey()))

		var reply []byte
		Eventually(replies).Should(Receive(&reply))
		rsp, err := protocol.DecodeResponsePacket(reply)
		Expect(err).ToNot(HaveOccurred())
		Expect(rsp.Kind).To(Equal(protocol.ResponsePeerStatus))
		Expect(rsp.PeerStatus).To(Equal(protocol.PeerKnown))
		Expect(rsp.Payload).To(HaveLen(protocol.PublicKeyLength))
		devicePublic, err := authentication.ParseCompressedPublicKey(rsp.Payload)
		Expect(err).ToNot(HaveOccurred())
		key, err := authentication.DeriveKey(peer, devicePublic)
		Expect(err).ToNot(HaveOccurred())
		return key
	}

	BeforeEach(func() {
		var err error
		ctrl = gomock.NewController(GinkgoT())
		DeferCleanup(ctrl.Finish)
		peripheral = mocks.NewTransportPeripheral(ctrl)
		text = mocks.NewChannelTextSink(ctrl)
		commands = mocks.NewChannelCommandSink(ctrl)
		resetter = mocks.NewChannelResetter(ctrl)
		indicator = &statusRecorder{}
		st = store.NewMemory()
		session, err = authentication.NewSession(st, nil)
		Expect(err).ToNot(HaveOccurred())
		config = channel.Config{KeepaliveInterval: time.Hour}
	})

	JustBeforeEach(func() {
		ch = newChannel()
	})

	It("starts disconnected and advertises on Start", func() {
		Expect(ch.State()).To(Equal(channel.Disconnected))
		peripheral.EXPECT().StartDiscoverable(gomock.Any()).Return(nil)
		Expect(ch.Start(context.Background())).To(Succeed())
		Expect(indicator.Last()).To(Equal(status.Advertising))
	})

	It("reports advertising failures", func() {
		peripheral.EXPECT().StartDiscoverable(gomock.Any()).Return(errors.New("adapter down"))
		Expect(ch.Start(context.Background())).ToNot(Succeed())
		Expect(indicator.Last()).To(Equal(status.Error))
	})

	Context("without a key", func() {
		JustBeforeEach(func() {
			ch.OnConnect()
		})

		It("connects unpaired", func() {
			Expect(ch.State()).To(Equal(channel.ConnectedUnpaired))
			Expect(indicator.Last()).To(Equal(status.Connected))
		})

		It("pairs and then accepts encrypted text", func() {
			key := pair()
			Expect(ch.State()).To(Equal(channel.ConnectedPaired))
			Expect(indicator.Last()).To(Equal(status.Paired))

			typed := make(chan struct{})
			text.EXPECT().TypeText(gomock.Any(), []byte("hello")).DoAndReturn(func(context.Context, []byte) error {
				close(typed)
				return nil
			})
			ch.OnWrite(textPacket(key, 1, "hello"))
			Eventually(typed).Should(BeClosed())
			Expect(indicator.Seen()).To(ContainElement(status.Typing))
		})

		It("silently drops packets that are not pairing requests", func() {
			ch.OnWrite(textPacket(bytes.Repeat([]byte{1}, 32), 1, "hello"))
			ch.OnWrite([]byte{0x04, 0x01})
			Consistently(indicator.Last, 50*time.Millisecond).Should(Equal(status.Connected))
			Expect(ch.State()).To(Equal(channel.ConnectedUnpaired))
		})

		It("reports an invalid public key without changing state", func() {
			point := append([]byte{0x02}, bytes.Repeat([]byte{0xff}, 32)...)
			ch.OnWrite(point)
			Expect(ch.State()).To(Equal(channel.ConnectedUnpaired))
			Expect(indicator.Last()).To(Equal(status.Error))
			Expect(session.HasKey()).To(BeFalse())
		})
	})

	Context("when paired", func() {
		var key []byte

		JustBeforeEach(func() {
			ch.OnConnect()
			key = pair()
		})

		It("forwards commands to the command sink", func() {
			handled := make(chan struct{})
			commands.EXPECT().HandleCommand(gomock.Any(), uint32(protocol.CommandMuteConfigure), []byte{1, 0x08, 0x10}).DoAndReturn(func(context.Context, uint32, []byte) error {
				close(handled)
				return nil
			})
			ch.OnWrite(commandPacket(key, 2, protocol.CommandMuteConfigure, []byte{1, 0x08, 0x10}))
			Eventually(handled).Should(BeClosed())
		})

		It("drops tampered packets and stays connected", func() {
			packet := textPacket(key, 3, "hello")
			packet[len(packet)-3] ^= 0x01
			ch.OnWrite(packet)
			Expect(indicator.Last()).To(Equal(status.Error))
			Expect(ch.State()).To(Equal(channel.ConnectedPaired))
		})

		It("drops undecodable packets", func() {
			ch.OnWrite([]byte{0x0a, 0x05, 0x01})
			Expect(indicator.Last()).To(Equal(status.Error))
			Expect(ch.State()).To(Equal(channel.ConnectedPaired))
		})

		It("reports sink failures", func() {
			failed := make(chan struct{})
			commands.EXPECT().HandleCommand(gomock.Any(), uint32(protocol.CommandMuteToggle), gomock.Any()).DoAndReturn(func(context.Context, uint32, []byte) error {
				defer close(failed)
				return errors.New("usb not mounted")
			})
			ch.OnWrite(commandPacket(key, 4, protocol.CommandMuteToggle, nil))
			Eventually(failed).Should(BeClosed())
			Eventually(indicator.Last).Should(Equal(status.Error))
		})

		It("accepts re-pairing with a new peer", func() {
			second := pair()
			Expect(second).ToNot(Equal(key))
			Expect(ch.State()).To(Equal(channel.ConnectedPaired))

			typed := make(chan struct{})
			text.EXPECT().TypeText(gomock.Any(), []byte("again")).DoAndReturn(func(context.Context, []byte) error {
				close(typed)
				return nil
			})
			ch.OnWrite(textPacket(key, 5, "stale"))
			ch.OnWrite(textPacket(second, 6, "again"))
			Eventually(typed).Should(BeClosed())
		})

		It("cancels in-flight typing and advertises on disconnect", func() {
			started := make(chan struct{})
			aborted := make(chan struct{})
			text.EXPECT().TypeText(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ []byte) error {
				close(started)
				<-ctx.Done()
				close(aborted)
				return ctx.Err()
			})
			peripheral.EXPECT().StartDiscoverable(gomock.Any()).Return(nil)

			ch.OnWrite(textPacket(key, 7, "a long dictation"))
			Eventually(started).Should(BeClosed())
			ch.OnDisconnect(errors.New("link lost"))
			Eventually(aborted).Should(BeClosed())
			Expect(ch.State()).To(Equal(channel.Disconnected))
			Expect(indicator.Last()).To(Equal(status.Advertising))
			Expect(session.HasKey()).To(BeTrue())
		})

		It("reconnects paired with the persisted key", func() {
			peripheral.EXPECT().StartDiscoverable(gomock.Any()).Return(nil)
			ch.OnDisconnect(nil)
			ch.OnConnect()
			Expect(ch.State()).To(Equal(channel.ConnectedPaired))
			Expect(indicator.Last()).To(Equal(status.Paired))
		})

		It("ignores writes after disconnect", func() {
			peripheral.EXPECT().StartDiscoverable(gomock.Any()).Return(nil)
			ch.OnDisconnect(nil)
			ch.OnWrite(textPacket(key, 8, "late"))
			Consistently(indicator.Last, 50*time.Millisecond).Should(Equal(status.Advertising))
		})

		It("erases everything on factory reset", func() {
			Expect(st.Set(store.KeyMuteConfig, []byte{1, 2, 3})).To(Succeed())
			resetter.EXPECT().Reset()
			Expect(ch.FactoryReset()).To(Succeed())
			Expect(session.HasKey()).To(BeFalse())
			Expect(ch.State()).To(Equal(channel.ConnectedUnpaired))
			Expect(indicator.Last()).To(Equal(status.FactoryReset))
			_, err := st.Get(store.KeyMuteConfig)
			Expect(err).To(MatchError(store.ErrNotFound))

			ch.OnWrite(textPacket(key, 9, "dropped"))
			Consistently(indicator.Last, 50*time.Millisecond).Should(Equal(status.FactoryReset))
		})
	})

	Context("with a small dispatch queue", func() {
		BeforeEach(func() {
			config.DispatchQueueSize = 1
		})

		It("drops packets when the sinks fall behind", func() {
			ch.OnConnect()
			key := pair()

			started := make(chan struct{})
			release := make(chan struct{})
			done := make(chan struct{})
			gomock.InOrder(
				text.EXPECT().TypeText(gomock.Any(), []byte("one")).DoAndReturn(func(context.Context, []byte) error {
					close(started)
					<-release
					return nil
				}),
				text.EXPECT().TypeText(gomock.Any(), []byte("two")).DoAndReturn(func(context.Context, []byte) error {
					close(done)
					return nil
				}),
			)

			ch.OnWrite(textPacket(key, 1, "one"))
			Eventually(started).Should(BeClosed())
			ch.OnWrite(textPacket(key, 2, "two"))
			ch.OnWrite(textPacket(key, 3, "three"))
			Expect(indicator.Last()).To(Equal(status.Error))
			close(release)
			Eventually(done).Should(BeClosed())
		})
	})

	Context("with a short keepalive interval", func() {
		BeforeEach(func() {
			config.KeepaliveInterval = 10 * time.Millisecond
		})

		It("sends keepalives only while connected", func() {
			var lock sync.Mutex
			count := 0
			peripheral.EXPECT().Notify(gomock.Any(), keepaliveBytes).DoAndReturn(func(context.Context, []byte) error {
				lock.Lock()
				defer lock.Unlock()
				count++
				return nil
			}).MinTimes(2)
			counted := func() int {
				lock.Lock()
				defer lock.Unlock()
				return count
			}

			Consistently(counted, 30*time.Millisecond).Should(BeZero())
			ch.OnConnect()
			Eventually(counted).Should(BeNumerically(">=", 2))

			peripheral.EXPECT().StartDiscoverable(gomock.Any()).Return(nil)
			ch.OnDisconnect(nil)
			// Allow a tick already in flight to finish.
			time.Sleep(20 * time.Millisecond)
			after := counted()
			Consistently(counted, 50*time.Millisecond).Should(Equal(after))
		})
	})
})
