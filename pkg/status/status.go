// Package status reports the device's connection state to the user.
package status

import "fmt"

// Status is the user-visible state of the device.
type Status int

const (
	Idle Status = iota
	Advertising
	Connected
	Paired
	// Typing is a transient flash shown while a text payload is being typed. Indicators restore
	// the previous steady status afterwards.
	Typing
	Error
	FactoryReset
)

var statusNames = map[Status]string{
	Idle:         "idle",
	Advertising:  "advertising",
	Connected:    "connected",
	Paired:       "paired",
	Typing:       "typing",
	Error:        "error",
	FactoryReset: "factory-reset",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Transient reports whether s is a momentary indication rather than a steady state.
func (s Status) Transient() bool {
	return s == Typing || s == Error
}

// Indicator displays a Status. Implementations must be safe for concurrent use.
type Indicator interface {
	SetStatus(Status)
}

// Multi fans out each status to several indicators.
type Multi []Indicator

func (m Multi) SetStatus(s Status) {
	for _, indicator := range m {
		indicator.SetStatus(s)
	}
}
