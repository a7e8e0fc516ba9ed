package emberglow

import (
	"encoding"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config is the configuration for the emberglow daemon.
type Config struct {
	// Listen is the address the HTTP API listens on.
	Listen string `toml:"listen"`
	// NumLEDs is the number of LEDs on the strip.
	NumLEDs int `toml:"num_leds"`
	// Output is where frames are sent.
	Output OutputKind `toml:"output"`
	// Serial configures the serial link to the LED controller. It is only
	// used when Output is SerialOutput.
	Serial SerialConfig `toml:"serial"`
	// Preview configures the live previews.
	Preview PreviewConfig `toml:"preview"`
}

// OutputKind is the kind of output frames are flushed to.
type OutputKind string

const (
	// SerialOutput sends frames to a microcontroller over a serial port.
	SerialOutput OutputKind = "serial"
	// TerminalOutput draws frames in the terminal. Useful without hardware.
	TerminalOutput OutputKind = "terminal"
	// NoOutput drops frames. Previews still receive them.
	NoOutput OutputKind = "none"
)

// SerialConfig is the configuration for the serial link.
type SerialConfig struct {
	// Device is the path to the device file of the controller.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// AckTimeout is how long to wait for the controller to acknowledge a
	// packet. Zero disables waiting for acknowledgements.
	AckTimeout TOMLDuration `toml:"ack_timeout"`
}

// PreviewConfig is the configuration for the live previews.
type PreviewConfig struct {
	// WebSocket enables streaming frames to browsers on /ws.
	WebSocket bool `toml:"websocket"`
}

const (
	defaultListen     = ":8080"
	defaultBaud       = 115200
	defaultAckTimeout = TOMLDuration(500 * time.Millisecond)
)

func (c *Config) setDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Output == "" {
		c.Output = SerialOutput
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = defaultBaud
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.NumLEDs < 1 {
		return errors.New("no LEDs configured")
	}
	if c.NumLEDs > math.MaxUint16 {
		return fmt.Errorf("too many LEDs: %d > %d", c.NumLEDs, math.MaxUint16)
	}
	if c.Listen == "" {
		return errors.New("no listen address configured")
	}

	switch c.Output {
	case SerialOutput:
		if c.Serial.Device == "" {
			return errors.New("serial output requires serial.device")
		}
		if c.Serial.Baud < 1 {
			return fmt.Errorf("invalid baud rate %d", c.Serial.Baud)
		}
		if c.Serial.AckTimeout < 0 {
			return errors.New("serial.ack_timeout must not be negative")
		}
	case TerminalOutput, NoOutput:
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}

	return nil
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Missing optional values
// are filled with defaults; the result is not validated.
func ParseConfig(r io.Reader) (*Config, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := tree.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.setDefaults()
	if !tree.Has("serial.ack_timeout") {
		config.Serial.AckTimeout = defaultAckTimeout
	}

	return &config, nil
}
