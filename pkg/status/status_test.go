package status

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/pterm/pterm"
)

type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.buf.String()
}

func TestStatusString(t *testing.T) {
	if Paired.String() != "paired" || FactoryReset.String() != "factory-reset" {
		t.Error("Unexpected status names")
	}
	if Status(42).String() != "Status(42)" {
		t.Errorf("Unknown status rendered as %s", Status(42))
	}
}

func TestLogIndicatorTracksSteadyState(t *testing.T) {
	var output syncBuffer
	log.SetOutput(&output)
	defer log.SetOutput(nil)

	var indicator LogIndicator
	indicator.SetStatus(Advertising)
	indicator.SetStatus(Paired)
	indicator.SetStatus(Typing)
	indicator.SetStatus(Error)
	indicator.SetStatus(Paired)

	if indicator.Steady() != Paired {
		t.Errorf("Steady() = %s, want paired", indicator.Steady())
	}
	if n := strings.Count(output.String(), "status: paired"); n != 1 {
		t.Errorf("Expected a single paired line, got %d in %q", n, output.String())
	}
	if !strings.Contains(output.String(), "status: error") {
		t.Error("Error status not logged")
	}
}

func TestTerminalIndicatorRestoresAfterFlash(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var output syncBuffer
	indicator := NewTerminalIndicator(&output)
	indicator.flash = 10 * time.Millisecond
	indicator.SetStatus(Paired)
	indicator.SetStatus(Typing)

	deadline := time.Now().Add(2 * time.Second)
	for strings.Count(output.String(), "paired") < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	lines := output.String()
	if strings.Count(lines, "paired") != 2 || !strings.Contains(lines, "typing") {
		t.Errorf("Unexpected terminal output %q", lines)
	}
}

type recorder struct {
	seen []Status
}

func (r *recorder) SetStatus(s Status) {
	r.seen = append(r.seen, s)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b}.SetStatus(Connected)
	if len(a.seen) != 1 || len(b.seen) != 1 || b.seen[0] != Connected {
		t.Error("Multi did not fan out")
	}
}
