package serialmux

import (
	"io"

	"go.bug.st/serial"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// PortOpener opens the device at path. OpenPort uses serial.Open unless a
// test substitutes its own.
type PortOpener func(path string, mode *serial.Mode) (SerialPorter, error)

func openSerial(path string, mode *serial.Mode) (SerialPorter, error) {
	return serial.Open(path, mode)
}

// OpenPort opens the sensor at path with opts and wraps it in a SerialMux.
// A nil opener uses go.bug.st/serial.
func OpenPort(path string, opts PortOptions, opener PortOpener) (*SerialMux[SerialPorter], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	if opener == nil {
		opener = openSerial
	}
	port, err := opener(path, mode)
	if err != nil {
		return nil, err
	}
	return NewSerialMux(port), nil
}
