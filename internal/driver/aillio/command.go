// internal/driver/aillio/command.go
package aillio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// USB identity of the Aillio Bullet R1. Revision 3 hardware enumerates
// with the second product ID.
const (
	vendorID      = 0x0483
	productID     = 0x5741
	productIDRev3 = 0xA27E

	endpointWrite = 0x03
	endpointRead  = 0x81
	usbInterface  = 1
	usbConfig     = 1
)

// Reply lengths in bytes. The two status frames are concatenated in
// request order before decoding.
const (
	info1ReplyLen  = 32
	info2ReplyLen  = 36
	statusReplyLen = 64
	statusLen      = 2 * statusReplyLen
)

// Status frame layout: offsets into the concatenated 128-byte buffer.
const (
	offProbeTemp   = 0  // legacy NTC bean probe, float32
	offBeanROR     = 4  // bean temperature rate of rise, float32
	offDrumTemp    = 8  // NTC drum temperature, float32
	offFan         = 26 // uint8
	offHeater      = 27 // uint8
	offDrum        = 28 // uint8
	offState       = 29 // uint8
	offBeanTemp    = 36 // IBTS bean temperature, float32
	offValidMarker = 41
	offFanRPM      = 44 // int16
	offVoltage     = 48 // int16

	validMarker = 10
)

// Command frames. The protocol has no response correlation ID; ordering
// on the wire is the only correlation mechanism.
var (
	cmdInfo1      = []byte{0x30, 0x02}
	cmdInfo2      = []byte{0x89, 0x01}
	cmdStatus1    = []byte{0x30, 0x01}
	cmdStatus2    = []byte{0x30, 0x03}
	cmdHeaterIncr = []byte{0x34, 0x01, 0xAA, 0xAA}
	cmdHeaterDecr = []byte{0x34, 0x02, 0xAA, 0xAA}
	cmdFanIncr    = []byte{0x31, 0x01, 0xAA, 0xAA}
	cmdFanDecr    = []byte{0x31, 0x02, 0xAA, 0xAA}
)

// encodeDrumCommand builds the drum absolute-set frame. Drum is the only
// setting the device accepts as an absolute value.
func encodeDrumCommand(value uint8) []byte {
	return []byte{0x32, 0x01, value, 0x00}
}

// decodeStatus parses the two concatenated 64-byte status replies. The
// frame is accepted only when the validity marker matches; on any error
// the caller keeps its previous snapshot.
func decodeStatus(buf []byte) (*StatusSnapshot, error) {
	if len(buf) < statusLen {
		return nil, &DecodeError{Reason: fmt.Sprintf("short status buffer: %d bytes", len(buf))}
	}
	if buf[offValidMarker] != validMarker {
		return nil, &DecodeError{Reason: fmt.Sprintf("validity marker %d", buf[offValidMarker])}
	}

	return &StatusSnapshot{
		ProbeTemp: float32At(buf, offProbeTemp),
		BeanROR:   float32At(buf, offBeanROR),
		DrumTemp:  float32At(buf, offDrumTemp),
		Fan:       buf[offFan],
		Heater:    buf[offHeater],
		Drum:      buf[offDrum],
		State:     DeviceState(buf[offState]),
		BeanTemp:  float32At(buf, offBeanTemp),
		FanRPM:    int16At(buf, offFanRPM),
		Voltage:   int16At(buf, offVoltage),
	}, nil
}

// decodeInfo1 parses the first info reply into serial number and firmware
// version.
func decodeInfo1(buf []byte) (serial, firmware int16, err error) {
	if len(buf) < info1ReplyLen {
		return 0, 0, &DecodeError{Reason: fmt.Sprintf("short info1 buffer: %d bytes", len(buf))}
	}
	return int16At(buf, 0), int16At(buf, 24), nil
}

// decodeInfo2 parses the second info reply into the roast counter. Unlike
// every other multi-byte field this one is big-endian.
func decodeInfo2(buf []byte) (uint32, error) {
	if len(buf) < info2ReplyLen {
		return 0, &DecodeError{Reason: fmt.Sprintf("short info2 buffer: %d bytes", len(buf))}
	}
	return binary.BigEndian.Uint32(buf[27:31]), nil
}

func float32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func int16At(buf []byte, off int) int16 {
	return int16(binary.LittleEndian.Uint16(buf[off : off+2]))
}
