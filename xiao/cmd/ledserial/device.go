package main

import (
	"fmt"
	"machine"

	"libdb.so/emberglow/ledserial"
	"tinygo.org/x/drivers/ws2812"
)

// Device is the firmware side of the emberglow serial link. It owns the
// strip and answers every packet it handles with an ack.
type Device struct {
	serial SerialReadWriter
	strip  ws2812.Device
	rctx   ledserial.ReadContext
}

// NewDevice creates a new device driving the strip on stripPin.
func NewDevice(serial machine.Serialer, stripPin machine.Pin) *Device {
	stripPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Device{
		serial: WrapSerial(serial),
		strip:  ws2812.New(stripPin),
	}
}

// Run runs the device loop forever.
func (d *Device) Run() {
	for {
		p, err := d.readPacket()
		if err != nil {
			d.sendPacket(ledserial.ErrorPacket{Message: err.Error()})
			continue
		}

		if err := d.handlePacket(p); err != nil {
			d.sendPacket(ledserial.ErrorPacket{Message: err.Error()})
			continue
		}

		d.sendPacket(ledserial.AckPacket{IncomingPacketType: p.Type()})
	}
}

func (d *Device) sendPacket(p ledserial.OutgoingPacket) {
	ledserial.WriteOutgoingPacket(d.serial, p)
}

func (d *Device) readPacket() (ledserial.IncomingPacket, error) {
	p, err := ledserial.ReadIncomingPacket(d.serial, d.rctx)

	// Blink the onboard LED for every packet received.
	turnOnStatusLED(0, 32, 0)
	defer turnOffStatusLED()

	return p, err
}

func (d *Device) handlePacket(p ledserial.IncomingPacket) error {
	switch p := p.(type) {
	case ledserial.InitializePacket:
		if p.NumLEDs < 1 {
			return fmt.Errorf("invalid number of LEDs: %d", p.NumLEDs)
		}
		d.rctx.NumLEDs = p.NumLEDs
		d.clear()
		d.sendPacket(ledserial.LogPacket{
			Message: fmt.Sprintf("initialized %d LEDs", p.NumLEDs),
		})

	case ledserial.ClearPacket:
		if d.rctx.NumLEDs == 0 {
			return fmt.Errorf("clear before initialize")
		}
		d.clear()

	case ledserial.SetPacket:
		if d.rctx.NumLEDs == 0 {
			return fmt.Errorf("set before initialize")
		}
		for _, b := range p.Pix {
			d.strip.WriteByte(b)
		}

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	return nil
}

func (d *Device) clear() {
	for i := 0; i < 3*int(d.rctx.NumLEDs); i++ {
		d.strip.WriteByte(0)
	}
}
