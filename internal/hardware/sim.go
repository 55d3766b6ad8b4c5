package hardware

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console simulates the rig on a terminal: Enter presses the button, "q" asks to stop.
// Actuator and alert changes are printed to out.
type Console struct {
	out io.Writer

	mu      sync.Mutex
	pending int
	high    bool

	stop chan struct{}
}

// NewConsole starts reading commands from in
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, stop: make(chan struct{})}
	go c.read(in)
	return c
}

func (c *Console) read(in io.Reader) {
	defer close(c.stop)
	scan := bufio.NewScanner(in)
	for scan.Scan() {
		if strings.EqualFold(strings.TrimSpace(scan.Text()), "q") {
			return
		}
		c.mu.Lock()
		c.pending++
		c.mu.Unlock()
	}
}

// Pressed turns each queued Enter into one high reading followed by a low one
func (c *Console) Pressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.high {
		c.high = false
		return false
	}
	if c.pending > 0 {
		c.pending--
		c.high = true
	}
	return c.high
}

func (c *Console) Min() error { return c.print("🔒 servo min (locked)") }
func (c *Console) Max() error { return c.print("🔓 servo max (unlocked)") }
func (c *Console) On() error  { return c.print("🔊 alert on") }
func (c *Console) Off() error { return c.print("🔇 alert off") }

func (c *Console) print(msg string) error {
	_, err := fmt.Fprintln(c.out, msg)
	return err
}

// Devices exposes the console as the three peripherals
func (c *Console) Devices() *Devices {
	return &Devices{Button: c, Actuator: c, Alert: c, Stop: c.stop}
}
