// Command ledserial is the XIAO RP2040 firmware for emberglow. It drives a
// WS2812 strip on D10 with frames received over USB serial.
package main

import "machine"

func main() {
	machine.Serial.Configure(machine.UARTConfig{})

	d := NewDevice(machine.Serial, machine.D10)
	d.Run()
}
