// internal/driver/aillio/driver.go
package aillio

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tick pacing defaults. The settle delay caps the command issue rate so
// the device's receive buffer is never overrun; the poll interval bounds
// how often a full status round trip happens.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultSettleDelay  = 10 * time.Millisecond
)

// Options tune the driver's tick pacing. Zero values fall back to the
// defaults.
type Options struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
}

// Info is the identity block read from the device at connect time.
type Info struct {
	SerialNumber    int    `json:"serial_number"`
	FirmwareVersion int    `json:"firmware_version"`
	RoastCount      uint32 `json:"roast_count"`
}

// Driver holds the complete session state for one roaster: the command
// queue, the last accepted status snapshot, the locally requested
// setpoints and the poll clock. All device I/O happens inside
// UpdateReadings; the setters only enqueue.
type Driver struct {
	mu        sync.Mutex
	transport Transport
	logger    *zap.Logger

	pollInterval time.Duration
	settleDelay  time.Duration

	connected bool

	// queue is drained one command per tick, FIFO.
	queue [][]byte

	// Requested setpoints. Setters update these optimistically before
	// the hardware confirms.
	heater int
	fan    int
	drum   int

	// Latest accepted snapshot values.
	beanTemp   float32
	beanROR    float32
	drumTemp   float32
	probeTemp  float32
	fanRPM     int16
	voltage    int16
	state      DeviceState
	stateLabel string

	serial     int16
	firmware   int16
	roastCount uint32

	lastPoll time.Time
}

// New creates a Driver on top of the given transport.
func New(transport Transport, logger *zap.Logger, opts Options) *Driver {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	return &Driver{
		transport:    transport,
		logger:       logger.With(zap.String("driver", "aillio-r1")),
		pollInterval: opts.PollInterval,
		settleDelay:  opts.SettleDelay,
		fan:          FanMin,
		drum:         DrumMin,
		stateLabel:   "off",
	}
}

// Connect opens the USB session and reads the device identity. Info read
// failures are logged and skipped: the device is usable without them.
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}
	if err := d.transport.Open(); err != nil {
		return err
	}
	d.connected = true

	d.readIdentity()
	return nil
}

// readIdentity issues the two info requests and decodes whatever comes
// back. Called with the lock held.
func (d *Driver) readIdentity() {
	if reply := d.requestReply(cmdInfo1, info1ReplyLen); reply != nil {
		serial, firmware, err := decodeInfo1(reply)
		if err != nil {
			d.logger.Debug("Info1 reply rejected", zap.Error(err))
		} else {
			d.serial = serial
			d.firmware = firmware
			d.logger.Info("Roaster identified",
				zap.Int16("serial_number", serial),
				zap.Int16("firmware_version", firmware),
			)
		}
	}

	if reply := d.requestReply(cmdInfo2, info2ReplyLen); reply != nil {
		roasts, err := decodeInfo2(reply)
		if err != nil {
			d.logger.Debug("Info2 reply rejected", zap.Error(err))
		} else {
			d.roastCount = roasts
			d.logger.Info("Roast counter read", zap.Uint32("roast_count", roasts))
		}
	}
}

// Disconnect releases the USB session. Safe to call when never
// connected.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.transport.Close(); err != nil {
		d.logger.Warn("Transport close failed", zap.Error(err))
	}
	if d.connected {
		d.connected = false
		d.logger.Info("Roaster disconnected")
	}
}

// IsConnected reports whether a session is open.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// UpdateReadings advances the session by one tick: it either transmits
// one queued command or, if the queue is idle and the poll interval has
// elapsed, performs one status round trip. It never does both, which
// bounds the I/O latency of a single call. The return value reports
// whether fresh readings were decoded this tick.
func (d *Driver) UpdateReadings() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return false
	}
	if d.drainOne() {
		return false
	}
	return d.pollStatus()
}

// drainOne sends at most one queued command. Write failures are logged
// and swallowed; the next enqueue or poll is the retry mechanism.
func (d *Driver) drainOne() bool {
	if len(d.queue) == 0 {
		return false
	}
	cmd := d.queue[0]
	d.queue = d.queue[1:]

	if err := d.transport.Write(cmd); err != nil {
		d.logger.Warn("Command write failed", zap.Error(err))
	}
	// Give the device time to absorb the command before the next tick.
	time.Sleep(d.settleDelay)
	return true
}

// pollStatus performs one status round trip when the poll interval has
// elapsed since the last successful poll.
func (d *Driver) pollStatus() bool {
	if time.Since(d.lastPoll) < d.pollInterval {
		return false
	}

	frame1 := d.requestReply(cmdStatus1, statusReplyLen)
	frame2 := d.requestReply(cmdStatus2, statusReplyLen)
	if frame1 == nil || frame2 == nil {
		return false
	}

	snapshot, err := decodeStatus(append(frame1, frame2...))
	if err != nil {
		d.logger.Debug("Status frame rejected", zap.Error(err))
		return false
	}

	d.apply(snapshot)
	d.lastPoll = time.Now()
	return true
}

// requestReply writes a request frame and reads its fixed-length reply.
// Any failure means "no data this tick" and returns nil.
func (d *Driver) requestReply(cmd []byte, replyLen int) []byte {
	if err := d.transport.Write(cmd); err != nil {
		d.logger.Warn("Request write failed", zap.Error(err))
		return nil
	}
	reply, err := d.transport.Read(replyLen)
	if err != nil {
		d.logger.Warn("Reply read failed", zap.Error(err))
		return nil
	}
	return reply
}

// apply installs an accepted snapshot. Unknown state bytes keep the
// previous label.
func (d *Driver) apply(s *StatusSnapshot) {
	d.beanTemp = s.BeanTemp
	d.beanROR = s.BeanROR
	d.drumTemp = s.DrumTemp
	d.probeTemp = s.ProbeTemp
	d.fan = int(s.Fan)
	d.heater = int(s.Heater)
	d.drum = int(s.Drum)
	d.fanRPM = s.FanRPM
	d.voltage = s.Voltage
	d.state = s.State
	if label, ok := s.State.label(); ok {
		d.stateLabel = label
	}
}

// SetHeater requests an absolute heater level in [0,9]. The device only
// accepts single-step changes, so the full delta against the last
// requested value is enqueued as step commands and the local value
// updated immediately for a responsive caller.
func (d *Driver) SetHeater(target int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	steps := stepPlan(d.heater, target, HeaterMin, HeaterMax)
	if len(steps) == 0 {
		return
	}
	for _, step := range steps {
		if step > 0 {
			d.queue = append(d.queue, cmdHeaterIncr)
		} else {
			d.queue = append(d.queue, cmdHeaterDecr)
		}
	}
	previous := d.heater
	d.heater = clamp(target, HeaterMin, HeaterMax)
	d.logger.Debug("Heater setpoint queued",
		zap.Int("from", previous),
		zap.Int("to", d.heater),
		zap.Int("steps", len(steps)),
	)
}

// SetFan requests an absolute fan speed in [1,12], bridged through step
// commands like the heater.
func (d *Driver) SetFan(target int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	steps := stepPlan(d.fan, target, FanMin, FanMax)
	if len(steps) == 0 {
		return
	}
	for _, step := range steps {
		if step > 0 {
			d.queue = append(d.queue, cmdFanIncr)
		} else {
			d.queue = append(d.queue, cmdFanDecr)
		}
	}
	previous := d.fan
	d.fan = clamp(target, FanMin, FanMax)
	d.logger.Debug("Fan setpoint queued",
		zap.Int("from", previous),
		zap.Int("to", d.fan),
		zap.Int("steps", len(steps)),
	)
}

// SetDrum requests an absolute drum speed in [1,9]. Drum is the one
// setting with a native absolute-set command, so a single frame carries
// the clamped value.
func (d *Driver) SetDrum(target int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	clamped := clamp(target, DrumMin, DrumMax)
	if clamped == d.drum {
		return
	}
	d.queue = append(d.queue, encodeDrumCommand(uint8(clamped)))
	d.drum = clamped
	d.logger.Debug("Drum setpoint queued", zap.Int("to", clamped))
}

// BeanTemp returns the IBTS bean temperature in degrees Celsius.
func (d *Driver) BeanTemp() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.beanTemp)
}

// DrumTemp returns the NTC drum temperature in degrees Celsius.
func (d *Driver) DrumTemp() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.drumTemp)
}

// RateOfRise returns the bean temperature rate of rise.
func (d *Driver) RateOfRise() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.beanROR)
}

// Heater returns the last requested heater level.
func (d *Driver) Heater() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.heater
}

// Fan returns the last requested fan speed.
func (d *Driver) Fan() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fan
}

// Drum returns the last requested drum speed.
func (d *Driver) Drum() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drum
}

// FanRPM returns the measured fan speed.
func (d *Driver) FanRPM() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.fanRPM)
}

// Voltage returns the measured supply voltage.
func (d *Driver) Voltage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.voltage)
}

// StateLabel returns the upper-cased state string. Unknown states keep
// whatever label was last known.
func (d *Driver) StateLabel() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.ToUpper(d.stateLabel)
}

// Info returns the identity block read during Connect.
func (d *Driver) Info() Info {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Info{
		SerialNumber:    int(d.serial),
		FirmwareVersion: int(d.firmware),
		RoastCount:      d.roastCount,
	}
}

// QueueLen returns the number of commands still waiting to be sent.
func (d *Driver) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
