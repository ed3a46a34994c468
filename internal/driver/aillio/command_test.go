// internal/driver/aillio/command_test.go
package aillio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validStatusBuffer builds a 128-byte status buffer with the validity
// marker set, then lets the caller poke fields in.
func validStatusBuffer(mutate func([]byte)) []byte {
	buf := make([]byte, statusLen)
	buf[offValidMarker] = validMarker
	if mutate != nil {
		mutate(buf)
	}
	return buf
}

func putFloat32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
}

func putInt16(buf []byte, off int, v int16) {
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(v))
}

func TestDecodeStatusFields(t *testing.T) {
	buf := validStatusBuffer(func(b []byte) {
		putFloat32(b, offProbeTemp, 150.5)
		putFloat32(b, offBeanROR, 12.25)
		putFloat32(b, offDrumTemp, 180.0)
		b[offFan] = 5
		b[offHeater] = 7
		b[offDrum] = 8
		b[offState] = byte(StateRoasting)
		putFloat32(b, offBeanTemp, 200.75)
		putInt16(b, offFanRPM, 1450)
		putInt16(b, offVoltage, 230)
	})

	snapshot, err := decodeStatus(buf)
	require.NoError(t, err)

	assert.InDelta(t, 200.75, snapshot.BeanTemp, 0.001)
	assert.InDelta(t, 12.25, snapshot.BeanROR, 0.001)
	assert.InDelta(t, 180.0, snapshot.DrumTemp, 0.001)
	assert.InDelta(t, 150.5, snapshot.ProbeTemp, 0.001)
	assert.Equal(t, uint8(5), snapshot.Fan)
	assert.Equal(t, uint8(7), snapshot.Heater)
	assert.Equal(t, uint8(8), snapshot.Drum)
	assert.Equal(t, StateRoasting, snapshot.State)
	assert.Equal(t, int16(1450), snapshot.FanRPM)
	assert.Equal(t, int16(230), snapshot.Voltage)
}

func TestDecodeStatusNegativeReadings(t *testing.T) {
	buf := validStatusBuffer(func(b []byte) {
		putInt16(b, offFanRPM, -1)
		putInt16(b, offVoltage, -120)
	})

	snapshot, err := decodeStatus(buf)
	require.NoError(t, err)
	assert.Equal(t, int16(-1), snapshot.FanRPM)
	assert.Equal(t, int16(-120), snapshot.Voltage)
}

func TestDecodeStatusShortBuffer(t *testing.T) {
	for _, size := range []int{0, 1, 64, 127} {
		_, err := decodeStatus(make([]byte, size))
		require.Error(t, err)

		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	}
}

func TestDecodeStatusInvalidMarker(t *testing.T) {
	buf := validStatusBuffer(nil)
	buf[offValidMarker] = 9

	_, err := decodeStatus(buf)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Reason, "validity marker")
}

func TestEncodeDrumRoundTrip(t *testing.T) {
	cmd := encodeDrumCommand(5)
	require.Equal(t, []byte{0x32, 0x01, 0x05, 0x00}, cmd)

	// A synthetic reply echoing the drum value at its status offset
	// decodes back to the same setting.
	buf := validStatusBuffer(func(b []byte) {
		b[offDrum] = cmd[2]
	})
	snapshot, err := decodeStatus(buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), snapshot.Drum)
}

func TestDecodeInfo1(t *testing.T) {
	buf := make([]byte, info1ReplyLen)
	putInt16(buf, 0, 4711)
	putInt16(buf, 24, 612)

	serial, firmware, err := decodeInfo1(buf)
	require.NoError(t, err)
	assert.Equal(t, int16(4711), serial)
	assert.Equal(t, int16(612), firmware)

	_, _, err = decodeInfo1(buf[:10])
	require.Error(t, err)
}

func TestDecodeInfo2(t *testing.T) {
	buf := make([]byte, info2ReplyLen)
	// The roast counter is the one big-endian field in the protocol.
	binary.BigEndian.PutUint32(buf[27:31], 300)

	roasts, err := decodeInfo2(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), roasts)

	_, err = decodeInfo2(buf[:20])
	require.Error(t, err)
}

func TestStateLabels(t *testing.T) {
	tests := []struct {
		state DeviceState
		label string
	}{
		{StateOff, "off"},
		{StatePreheat, "pre-heating"},
		{StateCharge, "charge"},
		{StateRoasting, "roasting"},
		{StateCooling, "cooling"},
		{StateShutdown, "shutdown"},
	}
	for _, tt := range tests {
		label, ok := tt.state.label()
		assert.True(t, ok)
		assert.Equal(t, tt.label, label)
	}

	_, ok := DeviceState(0x0A).label()
	assert.False(t, ok)
}
