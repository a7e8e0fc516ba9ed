package emberglow

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
listen = "127.0.0.1:9000"
num_leds = 60
output = "serial"

[serial]
device = "/dev/ttyACM0"
baud = 9600
ack_timeout = "1s"

[preview]
websocket = true
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, &Config{
		Listen:  "127.0.0.1:9000",
		NumLEDs: 60,
		Output:  SerialOutput,
		Serial: SerialConfig{
			Device:     "/dev/ttyACM0",
			Baud:       9600,
			AckTimeout: TOMLDuration(time.Second),
		},
		Preview: PreviewConfig{WebSocket: true},
	}, cfg)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
num_leds = 30

[serial]
device = "/dev/ttyUSB0"
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, SerialOutput, cfg.Output)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, TOMLDuration(500*time.Millisecond), cfg.Serial.AckTimeout)
	assert.False(t, cfg.Preview.WebSocket)
}

func TestParseConfigZeroAckTimeout(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
num_leds = 30

[serial]
device = "/dev/ttyUSB0"
ack_timeout = "0s"
`))
	require.NoError(t, err)
	assert.Equal(t, TOMLDuration(0), cfg.Serial.AckTimeout)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig(strings.NewReader(`num_leds = `))
	assert.Error(t, err)

	_, err = ParseConfig(strings.NewReader(`
num_leds = 30
[serial]
ack_timeout = "soon"
`))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Listen:  ":8080",
			NumLEDs: 10,
			Output:  NoOutput,
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"no LEDs", func(c *Config) { c.NumLEDs = 0 }, "no LEDs configured"},
		{"too many LEDs", func(c *Config) { c.NumLEDs = 70000 }, "too many LEDs"},
		{"no listen", func(c *Config) { c.Listen = "" }, "no listen address"},
		{"unknown output", func(c *Config) { c.Output = "hologram" }, `unknown output "hologram"`},
		{"serial without device", func(c *Config) { c.Output = SerialOutput; c.Serial.Baud = 9600 }, "serial.device"},
		{"serial without baud", func(c *Config) { c.Output = SerialOutput; c.Serial.Device = "/dev/null" }, "invalid baud rate"},
		{"negative ack timeout", func(c *Config) {
			c.Output = SerialOutput
			c.Serial.Device = "/dev/null"
			c.Serial.Baud = 9600
			c.Serial.AckTimeout = -1
		}, "must not be negative"},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.modify(&cfg)
			assert.ErrorContains(t, cfg.Validate(), test.errMsg)
		})
	}

	terminal := valid()
	terminal.Output = TerminalOutput
	assert.NoError(t, terminal.Validate())
}
