package status

import (
	"sync"

	"github.com/chaz8081/gostt-kbd/internal/log"
)

var logger = log.New("status")

// LogIndicator writes status changes to the log. Repeated identical steady states are not logged.
type LogIndicator struct {
	lock sync.Mutex
	last Status
	set  bool
}

func (l *LogIndicator) SetStatus(s Status) {
	l.lock.Lock()
	defer l.lock.Unlock()
	switch {
	case s == Error:
		logger.Warning("%s", s)
	case s.Transient():
		logger.Debug("%s", s)
	case !l.set || s != l.last:
		logger.Info("%s", s)
	}
	if !s.Transient() {
		l.last = s
		l.set = true
	}
}

// Steady returns the last non-transient status reported.
func (l *LogIndicator) Steady() Status {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.last
}
