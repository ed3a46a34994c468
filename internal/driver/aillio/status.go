// internal/driver/aillio/status.go
package aillio

// DeviceState is the roaster state byte from the status reply.
type DeviceState uint8

const (
	StateOff      DeviceState = 0x00
	StatePreheat  DeviceState = 0x02
	StateCharge   DeviceState = 0x04
	StateRoasting DeviceState = 0x06
	StateCooling  DeviceState = 0x08
	StateShutdown DeviceState = 0x09
)

// label maps the known states to their display strings. The second
// return is false for raw bytes outside the known set; callers keep the
// previous label in that case.
func (s DeviceState) label() (string, bool) {
	switch s {
	case StateOff:
		return "off", true
	case StatePreheat:
		return "pre-heating", true
	case StateCharge:
		return "charge", true
	case StateRoasting:
		return "roasting", true
	case StateCooling:
		return "cooling", true
	case StateShutdown:
		return "shutdown", true
	default:
		return "", false
	}
}

// StatusSnapshot is one decoded status round trip. Fields mirror the
// wire layout. BeanTemp comes from the IBTS sensor and is the
// authoritative bean reading; ProbeTemp is the legacy NTC bean probe,
// decoded but not surfaced.
type StatusSnapshot struct {
	BeanTemp  float32
	BeanROR   float32
	DrumTemp  float32
	ProbeTemp float32
	Fan       uint8
	Heater    uint8
	Drum      uint8
	State     DeviceState
	FanRPM    int16
	Voltage   int16
}
