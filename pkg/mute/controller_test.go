package mute_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/chaz8081/gostt-kbd/mocks"
	"github.com/chaz8081/gostt-kbd/pkg/mute"
	"github.com/chaz8081/gostt-kbd/pkg/protocol"
	"github.com/chaz8081/gostt-kbd/pkg/store"
)

var _ = Describe("Parse", func() {
	It("decodes a little-endian consumer usage", func() {
		action, err := mute.Parse([]byte{0, 0xCD, 0x00})
		Expect(err).ToNot(HaveOccurred())
		Expect(action).To(Equal(mute.ConsumerControl{UsageID: 0x00CD}))
	})

	It("decodes a keyboard shortcut", func() {
		action, err := mute.Parse([]byte{1, 0x0A, 0x10, 0xFF})
		Expect(err).ToNot(HaveOccurred())
		Expect(action).To(Equal(mute.KeyboardShortcut{Modifier: 0x0A, Keycode: 0x10}))
	})

	It("rejects short payloads", func() {
		for _, payload := range [][]byte{nil, {0}, {0, 0xE2}, {1, 0x08}} {
			_, err := mute.Parse(payload)
			Expect(err).To(MatchError(mute.ErrTooShort))
		}
	})

	It("rejects macros and unknown kinds", func() {
		_, err := mute.Parse([]byte{2, 0, 0})
		Expect(err).To(MatchError(mute.ErrUnsupported))
		_, err = mute.Parse([]byte{7, 0, 0})
		Expect(errors.Is(err, mute.ErrUnknownKind)).To(BeTrue())
	})

	It("round trips through Encode", func() {
		for _, action := range []mute.Action{mute.Default(), mute.KeyboardShortcut{Modifier: 1, Keycode: 2}} {
			parsed, err := mute.Parse(action.Encode())
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed).To(Equal(action))
		}
	})
})

var _ = Describe("Controller", func() {
	var (
		ctrl     *gomock.Controller
		keyboard *mocks.MuteKeyboard
		st       *store.Memory
		ctx      context.Context
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		keyboard = mocks.NewMuteKeyboard(ctrl)
		st = store.NewMemory()
		ctx = context.Background()
		DeferCleanup(func() {
			ctrl.Finish()
		})
	})

	It("uses consumer control mute by default", func() {
		c := mute.NewController(keyboard, st)
		keyboard.EXPECT().ConsumerControl(gomock.Any(), uint16(0x00E2)).Return(nil)
		Expect(c.HandleCommand(ctx, protocol.CommandMuteToggle, nil)).To(Succeed())
	})

	It("loads a persisted configuration", func() {
		Expect(st.Set(store.KeyMuteConfig, []byte{1, 0x08, 0x10})).To(Succeed())
		c := mute.NewController(keyboard, st)
		keyboard.EXPECT().Shortcut(gomock.Any(), uint8(0x08), uint8(0x10)).Return(nil)
		Expect(c.Toggle(ctx)).To(Succeed())
	})

	It("falls back to the default when the stored configuration is invalid", func() {
		Expect(st.Set(store.KeyMuteConfig, []byte{2, 0, 0})).To(Succeed())
		c := mute.NewController(keyboard, st)
		Expect(c.Action()).To(Equal(mute.Default()))
	})

	It("persists and installs a new configuration", func() {
		c := mute.NewController(keyboard, st)
		Expect(c.HandleCommand(ctx, protocol.CommandMuteConfigure, []byte{1, 0x0A, 0x10})).To(Succeed())
		Expect(c.Action()).To(Equal(mute.KeyboardShortcut{Modifier: 0x0A, Keycode: 0x10}))

		saved, err := st.Get(store.KeyMuteConfig)
		Expect(err).ToNot(HaveOccurred())
		Expect(saved).To(Equal([]byte{1, 0x0A, 0x10}))
		Expect(st.Commits()).To(Equal(1))

		keyboard.EXPECT().Shortcut(gomock.Any(), uint8(0x0A), uint8(0x10)).Return(nil)
		Expect(c.HandleCommand(ctx, protocol.CommandMuteToggle, nil)).To(Succeed())
	})

	It("keeps the current configuration when the new one is invalid", func() {
		c := mute.NewController(keyboard, st)
		Expect(c.Configure([]byte{0, 0xE9})).To(MatchError(mute.ErrTooShort))
		Expect(c.Action()).To(Equal(mute.Default()))
		_, err := st.Get(store.KeyMuteConfig)
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("restores the default on Reset", func() {
		c := mute.NewController(keyboard, st)
		Expect(c.Configure([]byte{1, 0x01, 0x02})).To(Succeed())
		c.Reset()
		Expect(c.Action()).To(Equal(mute.Default()))
	})

	It("rejects unknown commands", func() {
		c := mute.NewController(keyboard, st)
		err := c.HandleCommand(ctx, 9, nil)
		Expect(errors.Is(err, mute.ErrUnknownCommand)).To(BeTrue())
	})

	It("propagates keyboard failures", func() {
		c := mute.NewController(keyboard, st)
		keyboard.EXPECT().ConsumerControl(gomock.Any(), gomock.Any()).Return(errors.New("not mounted"))
		Expect(c.Toggle(ctx)).ToNot(Succeed())
	})
})
