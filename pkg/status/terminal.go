package status

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// FlashDuration is how long a transient status stays on screen before the steady status is
// redrawn.
const FlashDuration = 200 * time.Millisecond

// TerminalIndicator renders the status as a coloured line on a terminal, standing in for the
// device's RGB LED.
type TerminalIndicator struct {
	lock   sync.Mutex
	out    io.Writer
	steady Status
	timer  *time.Timer
	flash  time.Duration
}

// NewTerminalIndicator returns an indicator writing to w, or to os.Stdout when w is nil.
func NewTerminalIndicator(w io.Writer) *TerminalIndicator {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalIndicator{out: w, flash: FlashDuration}
}

func printerFor(s Status) pterm.PrefixPrinter {
	switch s {
	case Advertising:
		return *pterm.Info.WithPrefix(pterm.Prefix{Text: "BLE", Style: pterm.NewStyle(pterm.BgBlue, pterm.FgBlack)})
	case Connected:
		return *pterm.Info.WithPrefix(pterm.Prefix{Text: "LINK", Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack)})
	case Paired:
		return pterm.Success
	case Typing:
		return *pterm.Info.WithPrefix(pterm.Prefix{Text: "TYPE", Style: pterm.NewStyle(pterm.BgWhite, pterm.FgBlack)})
	case Error:
		return pterm.Error
	case FactoryReset:
		return *pterm.Warning.WithPrefix(pterm.Prefix{Text: "RESET", Style: pterm.NewStyle(pterm.BgMagenta, pterm.FgBlack)})
	}
	return pterm.Description
}

func (t *TerminalIndicator) render(s Status) {
	printerFor(s).WithWriter(t.out).Println(s.String())
}

func (t *TerminalIndicator) SetStatus(s Status) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.render(s)
	if !s.Transient() {
		t.steady = s
		return
	}
	steady := t.steady
	t.timer = time.AfterFunc(t.flash, func() {
		t.lock.Lock()
		defer t.lock.Unlock()
		if t.steady == steady {
			t.render(steady)
		}
	})
}
