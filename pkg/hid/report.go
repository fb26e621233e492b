package hid

import (
	"encoding/binary"
	"io"
	"sync"
)

// Report IDs of the composite keyboard and consumer control descriptor.
const (
	ReportIDKeyboard = 1
	ReportIDConsumer = 2
)

const keyboardReportSize = 8

// ReportWriter writes input reports to a HID device node, such as a Linux USB gadget's
// /dev/hidg0. Each write is a single report prefixed by its report ID.
type ReportWriter struct {
	lock sync.Mutex
	w    io.Writer
}

// NewReportWriter returns a ReportWriter that writes to w.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: w}
}

func (r *ReportWriter) write(report []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, err := r.w.Write(report)
	return err
}

// Keyboard sends a boot keyboard report with a single key held.
func (r *ReportWriter) Keyboard(key Key) error {
	var report [1 + keyboardReportSize]byte
	report[0] = ReportIDKeyboard
	report[1] = key.Modifier
	report[3] = key.Keycode
	return r.write(report[:])
}

// ReleaseKeyboard sends an empty keyboard report.
func (r *ReportWriter) ReleaseKeyboard() error {
	return r.Keyboard(Key{})
}

// Consumer sends a consumer control report with usage held. A zero usage releases.
func (r *ReportWriter) Consumer(usage uint16) error {
	var report [3]byte
	report[0] = ReportIDConsumer
	binary.LittleEndian.PutUint16(report[1:], usage)
	return r.write(report[:])
}
