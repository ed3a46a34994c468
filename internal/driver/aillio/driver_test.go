// internal/driver/aillio/driver_test.go
package aillio

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTransport records writes and serves scripted replies keyed by the
// last request frame.
type fakeTransport struct {
	openErr  error
	writeErr error

	writes  [][]byte
	replies map[string][]byte
	lastCmd string
	opened  bool
	closes  int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{replies: make(map[string][]byte)}
}

func (f *fakeTransport) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	return nil
}

func (f *fakeTransport) Write(data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), data...))
	f.lastCmd = string(data)
	return nil
}

func (f *fakeTransport) Read(length int) ([]byte, error) {
	reply, ok := f.replies[f.lastCmd]
	if !ok {
		return nil, &IoError{Op: "read", Err: errors.New("no reply scripted")}
	}
	if len(reply) > length {
		reply = reply[:length]
	}
	return reply, nil
}

func (f *fakeTransport) Close() error {
	f.closes++
	f.opened = false
	return nil
}

// scriptStatus installs the two status reply frames built from one
// 128-byte buffer.
func (f *fakeTransport) scriptStatus(buf []byte) {
	f.replies[string(cmdStatus1)] = buf[:statusReplyLen]
	f.replies[string(cmdStatus2)] = buf[statusReplyLen:]
}

func (f *fakeTransport) writesSince(n int) [][]byte {
	return f.writes[n:]
}

func newTestDriver(transport Transport, opts Options) *Driver {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = time.Microsecond
	}
	return New(transport, zap.NewNop(), opts)
}

func drain(t *testing.T, d *Driver, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		assert.False(t, d.UpdateReadings(), "drain tick must not report fresh readings")
	}
}

func TestSetHeaterQueuesIncrements(t *testing.T) {
	ft := newFakeTransport()
	d := newTestDriver(ft, Options{PollInterval: time.Hour})
	require.NoError(t, d.Connect())

	d.SetHeater(3)
	require.Equal(t, 3, d.QueueLen())

	d.SetHeater(9)
	assert.Equal(t, 9, d.QueueLen())
	assert.Equal(t, 9, d.Heater(), "local value updates before the hardware confirms")

	base := len(ft.writes)
	drain(t, d, 9)
	require.Equal(t, 0, d.QueueLen())
	for _, w := range ft.writesSince(base) {
		assert.True(t, bytes.Equal(cmdHeaterIncr, w))
	}
}

func TestSetHeaterQueuesDecrements(t *testing.T) {
	ft := newFakeTransport()
	d := newTestDriver(ft, Options{PollInterval: time.Hour})
	require.NoError(t, d.Connect())

	d.SetHeater(5)
	drain(t, d, 5)

	base := len(ft.writes)
	d.SetHeater(2)
	require.Equal(t, 3, d.QueueLen())
	assert.Equal(t, 2, d.Heater())

	drain(t, d, 3)
	for _, w := range ft.writesSince(base) {
		assert.True(t, bytes.Equal(cmdHeaterDecr, w))
	}
}

func TestSettersAreIdempotent(t *testing.T) {
	d := newTestDriver(newFakeTransport(), Options{})

	d.SetHeater(0)
	d.SetFan(1)
	d.SetDrum(1)
	assert.Equal(t, 0, d.QueueLen())
}

func TestSetFanClampsTarget(t *testing.T) {
	ft := newFakeTransport()
	d := newTestDriver(ft, Options{PollInterval: time.Hour})
	require.NoError(t, d.Connect())

	// Fan starts at 1; an out-of-range target clamps to 12.
	d.SetFan(20)
	assert.Equal(t, 12, d.Fan())
	require.Equal(t, 11, d.QueueLen())

	base := len(ft.writes)
	drain(t, d, 11)
	for _, w := range ft.writesSince(base) {
		assert.True(t, bytes.Equal(cmdFanIncr, w))
	}
}

func TestSetDrumEnqueuesAbsoluteCommand(t *testing.T) {
	ft := newFakeTransport()
	d := newTestDriver(ft, Options{PollInterval: time.Hour})
	require.NoError(t, d.Connect())

	d.SetDrum(5)
	require.Equal(t, 1, d.QueueLen())
	assert.Equal(t, 5, d.Drum())

	base := len(ft.writes)
	drain(t, d, 1)
	require.Len(t, ft.writesSince(base), 1)
	assert.Equal(t, []byte{0x32, 0x01, 0x05, 0x00}, ft.writesSince(base)[0])

	// Same clamped value is a no-op; out-of-range clamps.
	d.SetDrum(5)
	assert.Equal(t, 0, d.QueueLen())
	d.SetDrum(100)
	assert.Equal(t, 9, d.Drum())
	assert.Equal(t, 1, d.QueueLen())
}

func TestTickNeverMixesDrainAndPoll(t *testing.T) {
	ft := newFakeTransport()
	ft.scriptStatus(validStatusBuffer(nil))
	d := newTestDriver(ft, Options{PollInterval: time.Millisecond})
	require.NoError(t, d.Connect())

	d.SetDrum(3)
	base := len(ft.writes)

	// The drain tick transmits the queued command and nothing else.
	assert.False(t, d.UpdateReadings())
	require.Len(t, ft.writesSince(base), 1)

	// The next tick is free to poll.
	time.Sleep(2 * time.Millisecond)
	assert.True(t, d.UpdateReadings())
	assert.Len(t, ft.writesSince(base), 3)
}

func TestPollUpdatesSnapshot(t *testing.T) {
	ft := newFakeTransport()
	ft.scriptStatus(validStatusBuffer(func(b []byte) {
		putFloat32(b, offBeanTemp, 200.0)
		putFloat32(b, offBeanROR, 8.5)
		putFloat32(b, offDrumTemp, 175.0)
		b[offFan] = 4
		b[offHeater] = 6
		b[offDrum] = 7
		b[offState] = byte(StateRoasting)
		putInt16(b, offFanRPM, 1500)
		putInt16(b, offVoltage, 229)
	}))
	d := newTestDriver(ft, Options{PollInterval: time.Hour})
	require.NoError(t, d.Connect())

	require.True(t, d.UpdateReadings())
	assert.InDelta(t, 200.0, d.BeanTemp(), 0.001)
	assert.InDelta(t, 8.5, d.RateOfRise(), 0.001)
	assert.InDelta(t, 175.0, d.DrumTemp(), 0.001)
	assert.Equal(t, 4, d.Fan())
	assert.Equal(t, 6, d.Heater())
	assert.Equal(t, 7, d.Drum())
	assert.Equal(t, 1500, d.FanRPM())
	assert.Equal(t, 229, d.Voltage())
	assert.Equal(t, "ROASTING", d.StateLabel())
}

func TestPollIntervalGatesRoundTrips(t *testing.T) {
	ft := newFakeTransport()
	ft.scriptStatus(validStatusBuffer(nil))
	d := newTestDriver(ft, Options{PollInterval: time.Hour})
	require.NoError(t, d.Connect())

	require.True(t, d.UpdateReadings())
	afterFirst := len(ft.writes)

	// Second tick inside the interval performs no round trip at all.
	assert.False(t, d.UpdateReadings())
	assert.Equal(t, afterFirst, len(ft.writes))
}

func TestRejectedDecodeKeepsPriorSnapshot(t *testing.T) {
	ft := newFakeTransport()
	ft.scriptStatus(validStatusBuffer(func(b []byte) {
		putFloat32(b, offBeanTemp, 200.0)
		b[offState] = byte(StateRoasting)
	}))
	d := newTestDriver(ft, Options{PollInterval: time.Nanosecond})
	require.NoError(t, d.Connect())
	require.True(t, d.UpdateReadings())
	require.InDelta(t, 200.0, d.BeanTemp(), 0.001)

	// Reply with a bad validity marker: everything stays as it was.
	bad := validStatusBuffer(func(b []byte) {
		putFloat32(b, offBeanTemp, 999.0)
		b[offState] = byte(StateOff)
	})
	bad[offValidMarker] = 0
	ft.scriptStatus(bad)

	time.Sleep(time.Millisecond)
	assert.False(t, d.UpdateReadings())
	assert.InDelta(t, 200.0, d.BeanTemp(), 0.001)
	assert.Equal(t, "ROASTING", d.StateLabel())
}

func TestUnknownStateKeepsPriorLabel(t *testing.T) {
	ft := newFakeTransport()
	ft.scriptStatus(validStatusBuffer(func(b []byte) {
		b[offState] = byte(StateRoasting)
	}))
	d := newTestDriver(ft, Options{PollInterval: time.Nanosecond})
	require.NoError(t, d.Connect())
	require.True(t, d.UpdateReadings())
	require.Equal(t, "ROASTING", d.StateLabel())

	// A valid frame with an unrecognized state byte still applies, but
	// the label does not reset.
	ft.scriptStatus(validStatusBuffer(func(b []byte) {
		b[offState] = 0x0A
	}))
	time.Sleep(time.Millisecond)
	assert.True(t, d.UpdateReadings())
	assert.Equal(t, "ROASTING", d.StateLabel())
}

func TestReadFailureIsNoUpdate(t *testing.T) {
	ft := newFakeTransport() // no replies scripted: every read fails
	d := newTestDriver(ft, Options{PollInterval: time.Nanosecond})
	require.NoError(t, d.Connect())

	assert.False(t, d.UpdateReadings())

	// A failed poll does not advance the clock, so the next tick retries.
	time.Sleep(time.Millisecond)
	before := len(ft.writes)
	assert.False(t, d.UpdateReadings())
	assert.Greater(t, len(ft.writes), before)
}

func TestConnectReadsIdentity(t *testing.T) {
	ft := newFakeTransport()

	info1 := make([]byte, info1ReplyLen)
	putInt16(info1, 0, 1234)
	putInt16(info1, 24, 591)
	ft.replies[string(cmdInfo1)] = info1

	info2 := make([]byte, info2ReplyLen)
	info2[29] = 0x01
	info2[30] = 0x2C // 300 big-endian
	ft.replies[string(cmdInfo2)] = info2

	d := newTestDriver(ft, Options{})
	require.NoError(t, d.Connect())

	info := d.Info()
	assert.Equal(t, 1234, info.SerialNumber)
	assert.Equal(t, 591, info.FirmwareVersion)
	assert.Equal(t, uint32(300), info.RoastCount)
	assert.True(t, d.IsConnected())
}

func TestConnectPropagatesOpenFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.openErr = ErrDeviceNotFound

	d := newTestDriver(ft, Options{})
	err := d.Connect()
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.False(t, d.IsConnected())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	ft := newFakeTransport()
	d := newTestDriver(ft, Options{})

	d.Disconnect()
	d.Disconnect()
	assert.Equal(t, 2, ft.closes)

	require.NoError(t, d.Connect())
	d.Disconnect()
	assert.False(t, d.IsConnected())
	assert.False(t, d.UpdateReadings(), "ticks are no-ops once disconnected")
}
