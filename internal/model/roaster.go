// internal/model/roaster.go
package model

import "time"

// RoasterReading is one telemetry snapshot exposed to API and WebSocket
// consumers. BeanTemp is the IBTS sensor reading; DrumTemp comes from
// the NTC probe.
type RoasterReading struct {
	BeanTemp        float64   `json:"bean_temp"`
	DrumTemp        float64   `json:"drum_temp"`
	RateOfRise      float64   `json:"rate_of_rise"`
	Heater          int       `json:"heater"`
	Fan             int       `json:"fan"`
	Drum            int       `json:"drum"`
	FanRPM          int       `json:"fan_rpm"`
	Voltage         int       `json:"voltage"`
	State           string    `json:"state"`
	PendingCommands int       `json:"pending_commands"`
	Timestamp       time.Time `json:"timestamp"`
}

// ControlRequest carries absolute setpoints. Absent fields are left
// untouched; values outside the device ranges are clamped by the driver.
type ControlRequest struct {
	Heater *int `json:"heater,omitempty"`
	Fan    *int `json:"fan,omitempty"`
	Drum   *int `json:"drum,omitempty"`
}

// RoasterInfo is the identity block read from the device at connect
// time.
type RoasterInfo struct {
	Connected       bool   `json:"connected"`
	SerialNumber    int    `json:"serial_number"`
	FirmwareVersion int    `json:"firmware_version"`
	RoastCount      uint32 `json:"roast_count"`
}
