package gatt

import (
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci/evt"
)

const bleTimeout = 20 * time.Second

// NewDevice opens the HCI adapter with index id (hci0 is 0). Connection events are passed to
// events when it is not nil.
func NewDevice(id int, events *Events) (ble.Device, error) {
	opts := []ble.Option{ble.OptDeviceID(id), ble.OptListenerTimeout(bleTimeout)}
	if events != nil {
		opts = append(opts,
			ble.OptConnectHandler(func(e evt.LEConnectionComplete) {
				if e.Status() != 0 {
					return
				}
				events.Connected(e.ConnectionHandle())
			}),
			ble.OptDisconnectHandler(func(e evt.DisconnectionComplete) {
				events.Disconnected(e.ConnectionHandle())
			}),
		)
	}
	device, err := linux.NewDevice(opts...)
	if err != nil {
		return nil, err
	}
	return device, nil
}
