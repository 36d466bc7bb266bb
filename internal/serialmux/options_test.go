package serialmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptionsNormalize(t *testing.T) {
	t.Parallel()
	got, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, got)

	got, err = PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: " even "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"}, got)

	for _, bad := range []PortOptions{
		{DataBits: 9},
		{DataBits: 4},
		{StopBits: 3},
		{Parity: "mark"},
	} {
		_, err := bad.Normalize()
		assert.Error(t, err, "%+v", bad)
	}
}

func TestPortOptionsSerialMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		opts PortOptions
		want serial.Mode
	}{
		{PortOptions{}, serial.Mode{BaudRate: DefaultBaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}},
		{PortOptions{BaudRate: 19200, Parity: "O", StopBits: 2}, serial.Mode{BaudRate: 19200, DataBits: 8, Parity: serial.OddParity, StopBits: serial.TwoStopBits}},
		{PortOptions{Parity: "none"}, serial.Mode{BaudRate: DefaultBaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}},
		{PortOptions{Parity: "e"}, serial.Mode{BaudRate: DefaultBaudRate, DataBits: 8, Parity: serial.EvenParity, StopBits: serial.OneStopBit}},
	}
	for _, tt := range tests {
		mode, err := tt.opts.SerialMode()
		require.NoError(t, err)
		assert.Equal(t, tt.want, *mode)
	}

	_, err := PortOptions{Parity: "x"}.SerialMode()
	assert.Error(t, err)
}
