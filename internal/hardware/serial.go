package hardware

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// Line protocol spoken with the microcontroller bridge, one command per line
const (
	cmdServoMin = "SERVO MIN"
	cmdServoMax = "SERVO MAX"
	cmdAlertOn  = "ALERT ON"
	cmdAlertOff = "ALERT OFF"

	reportPressed  = "BTN 1"
	reportReleased = "BTN 0"
)

// PortOptions describes the serial connection to the bridge
type PortOptions struct {
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// SerialMode validates the options, fills defaults (115200 8N1) and converts them for go.bug.st/serial
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: o.BaudRate, DataBits: o.DataBits}
	if mode.BaudRate <= 0 {
		mode.BaudRate = 115200
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits %d: must be between 5 and 8", mode.DataBits)
	}

	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(o.Parity)) {
	case "", "N", "NONE":
		mode.Parity = serial.NoParity
	case "E", "EVEN":
		mode.Parity = serial.EvenParity
	case "O", "ODD":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return mode, nil
}

// Bridge talks to a microcontroller that owns the physical pins
type Bridge struct {
	port io.ReadWriteCloser

	writeMu sync.Mutex
	pressed atomic.Bool
	done    chan struct{}

	log zerolog.Logger
}

// OpenSerial opens the bridge on path, e.g. /dev/ttyACM0
func OpenSerial(path string, opts PortOptions, log zerolog.Logger) (*Devices, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	return NewBridge(port, log).Devices(), nil
}

// NewBridge starts reading button reports from port
func NewBridge(port io.ReadWriteCloser, log zerolog.Logger) *Bridge {
	b := &Bridge{port: port, done: make(chan struct{}), log: log}
	go b.monitor()
	return b
}

func (b *Bridge) monitor() {
	defer close(b.done)
	scan := bufio.NewScanner(b.port)
	for scan.Scan() {
		switch line := strings.TrimSpace(scan.Text()); line {
		case reportPressed:
			b.pressed.Store(true)
		case reportReleased:
			b.pressed.Store(false)
		case "":
		default:
			b.log.Debug().Str("line", line).Msg("ignoring bridge output")
		}
	}
	// A dead link must not leave the trigger stuck high
	b.pressed.Store(false)
	if err := scan.Err(); err != nil {
		b.log.Warn().Err(err).Msg("serial bridge read stopped")
	}
}

func (b *Bridge) send(command string) error {
	select {
	case <-b.done:
		return errClosed
	default:
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := io.WriteString(b.port, command+"\n")
	return err
}

func (b *Bridge) Pressed() bool { return b.pressed.Load() }
func (b *Bridge) Min() error    { return b.send(cmdServoMin) }
func (b *Bridge) Max() error    { return b.send(cmdServoMax) }
func (b *Bridge) On() error     { return b.send(cmdAlertOn) }
func (b *Bridge) Off() error    { return b.send(cmdAlertOff) }

// Close silences the alert, closes the port and waits for the reader to finish
func (b *Bridge) Close() error {
	_ = b.Off()
	err := b.port.Close()
	<-b.done
	return err
}

// Devices exposes the bridge as the three peripherals
func (b *Bridge) Devices() *Devices {
	return &Devices{Button: b, Actuator: b, Alert: b, close: b.Close}
}
