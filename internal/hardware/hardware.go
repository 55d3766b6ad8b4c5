// Package hardware abstracts the three gate peripherals and their backends.
//
// The gate only ever sees a button level, a two-position actuator and an on/off alert. Backends:
// Raspberry Pi GPIO (periph.io), a microcontroller bridge on a serial line, and a console simulator.
package hardware

import (
	"errors"
	"time"
)

// Button reports the current level of the trigger input
type Button interface {
	Pressed() bool
}

// Actuator drives the lock between its two end positions
type Actuator interface {
	Min() error // locked
	Max() error // unlocked
}

// Alert is the rejection buzzer
type Alert interface {
	On() error
	Off() error
}

// Devices bundles one backend's peripherals
type Devices struct {
	Button   Button
	Actuator Actuator
	Alert    Alert

	// Stop is closed when the backend asks the process to exit (console "q"). Nil if never.
	Stop <-chan struct{}

	close func() error
}

// Close releases the backend. Safe on a zero Devices.
func (d *Devices) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// DefaultBounce matches the button setup of the reference door rig
const DefaultBounce = time.Second

// DebouncedTrigger turns a button level into discrete presses: one per accepted rising edge.
// A rising edge within the bounce window after the last accepted press is swallowed.
// Releases are tracked immediately and never open a window of their own.
// Not safe for concurrent use; the gate loop is its only caller.
type DebouncedTrigger struct {
	button    Button
	bounce    time.Duration
	level     bool
	lastPress time.Time
}

// NewDebouncedTrigger samples the button once, so a button held at startup is not a press
func NewDebouncedTrigger(b Button, bounce time.Duration) *DebouncedTrigger {
	return &DebouncedTrigger{button: b, bounce: bounce, level: b.Pressed()}
}

// Poll reads the button and reports whether a new press started at now
func (t *DebouncedTrigger) Poll(now time.Time) bool {
	level := t.button.Pressed()
	if level == t.level {
		return false
	}
	t.level = level
	if !level {
		return false
	}
	if !t.lastPress.IsZero() && now.Sub(t.lastPress) < t.bounce {
		return false
	}
	t.lastPress = now
	return true
}

var errClosed = errors.New("device closed")
