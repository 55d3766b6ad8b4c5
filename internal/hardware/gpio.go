package hardware

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Hobby servo timing: 50Hz frame, 1ms pulse at one end and 2ms at the other
const (
	servoFrequency = 50 * physic.Hertz
	servoMinDuty   = gpio.DutyMax / 20     // 1ms of 20ms
	servoMaxDuty   = gpio.DutyMax * 2 / 20 // 2ms of 20ms
)

// GPIOPins names the header pins, e.g. "GPIO17"
type GPIOPins struct {
	Servo  string
	Button string
	Buzzer string
}

// DefaultGPIOPins is the wiring of the reference door rig
func DefaultGPIOPins() GPIOPins {
	return GPIOPins{Servo: "GPIO17", Button: "GPIO27", Buzzer: "GPIO22"}
}

type gpioButton struct{ pin gpio.PinIO }

func (b gpioButton) Pressed() bool { return b.pin.Read() == gpio.High }

type gpioServo struct{ pin gpio.PinIO }

func (s gpioServo) Min() error { return s.pin.PWM(servoMinDuty, servoFrequency) }
func (s gpioServo) Max() error { return s.pin.PWM(servoMaxDuty, servoFrequency) }

type gpioBuzzer struct{ pin gpio.PinIO }

func (b gpioBuzzer) On() error  { return b.pin.Out(gpio.High) }
func (b gpioBuzzer) Off() error { return b.pin.Out(gpio.Low) }

// OpenGPIO initializes the host drivers and claims the three pins.
// The button is a pull-down input: pressed reads high.
func OpenGPIO(pins GPIOPins) (*Devices, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	lookup := func(name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown pin %q", name)
		}
		return p, nil
	}

	servo, err := lookup(pins.Servo)
	if err != nil {
		return nil, err
	}
	button, err := lookup(pins.Button)
	if err != nil {
		return nil, err
	}
	buzzer, err := lookup(pins.Buzzer)
	if err != nil {
		return nil, err
	}

	if err := button.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button %s: %w", pins.Button, err)
	}
	if err := buzzer.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("buzzer %s: %w", pins.Buzzer, err)
	}

	return &Devices{
		Button:   gpioButton{pin: button},
		Actuator: gpioServo{pin: servo},
		Alert:    gpioBuzzer{pin: buzzer},
		close: func() error {
			return errors.Join(buzzer.Out(gpio.Low), servo.Halt(), button.Halt())
		},
	}, nil
}
