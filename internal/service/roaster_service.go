// internal/service/roaster_service.go
package service

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"roaster-service/internal/config"
	"roaster-service/internal/driver/aillio"
	"roaster-service/internal/model"
	"roaster-service/internal/utils"
)

// RoasterService owns the device driver and drives its tick loop. The
// driver itself performs no background work; this service's ticker is
// the periodic caller that drains queued commands and refreshes
// readings.
type RoasterService struct {
	driver *aillio.Driver
	config *config.Config
	logger *utils.DeviceLogger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	// onReading receives every fresh telemetry snapshot; nil when no
	// consumer is attached.
	onReading func(model.RoasterReading)
}

// NewRoasterService creates the service around an existing driver.
func NewRoasterService(driver *aillio.Driver, cfg *config.Config, logger *zap.Logger) *RoasterService {
	return &RoasterService{
		driver: driver,
		config: cfg,
		logger: utils.NewDeviceLogger(logger, "aillio-r1", "Bullet R1 V2"),
	}
}

// SetReadingSink attaches the telemetry consumer. Must be called before
// Connect.
func (s *RoasterService) SetReadingSink(fn func(model.RoasterReading)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReading = fn
}

// Connect opens the device session and starts the tick loop.
func (s *RoasterService) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := s.driver.Connect(); err != nil {
		s.logger.LogConnection("connect", false, err)
		return fmt.Errorf("roaster connect: %w", err)
	}
	s.logger.LogConnection("connect", true, nil)

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	go s.run(s.stop, s.done)

	return nil
}

// Disconnect stops the tick loop and releases the device. Safe to call
// when never connected.
func (s *RoasterService) Disconnect() {
	s.mu.Lock()
	running := s.running
	stop, done := s.stop, s.done
	s.running = false
	s.mu.Unlock()

	// The tick loop takes the mutex, so wait for it outside the lock.
	if running {
		close(stop)
		<-done
	}

	s.driver.Disconnect()
	s.logger.LogConnection("disconnect", true, nil)
}

// IsConnected reports whether a device session is active.
func (s *RoasterService) IsConnected() bool {
	return s.driver.IsConnected()
}

// run is the periodic tick loop. Each tick either transmits one queued
// command or performs one status poll; fresh readings go to the sink.
func (s *RoasterService) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Roaster.TickInterval)
	defer ticker.Stop()

	s.logger.Info("Roaster tick loop started",
		zap.Duration("tick_interval", s.config.Roaster.TickInterval),
	)

	for {
		select {
		case <-stop:
			s.logger.Info("Roaster tick loop stopped")
			return
		case <-ticker.C:
			if !s.driver.UpdateReadings() {
				continue
			}
			s.mu.Lock()
			sink := s.onReading
			s.mu.Unlock()
			if sink != nil {
				sink(s.Reading())
			}
		}
	}
}

// Reading builds the current telemetry snapshot.
func (s *RoasterService) Reading() model.RoasterReading {
	return model.RoasterReading{
		BeanTemp:        s.driver.BeanTemp(),
		DrumTemp:        s.driver.DrumTemp(),
		RateOfRise:      s.driver.RateOfRise(),
		Heater:          s.driver.Heater(),
		Fan:             s.driver.Fan(),
		Drum:            s.driver.Drum(),
		FanRPM:          s.driver.FanRPM(),
		Voltage:         s.driver.Voltage(),
		State:           s.driver.StateLabel(),
		PendingCommands: s.driver.QueueLen(),
		Timestamp:       time.Now(),
	}
}

// Info returns the device identity block.
func (s *RoasterService) Info() model.RoasterInfo {
	info := s.driver.Info()
	return model.RoasterInfo{
		Connected:       s.driver.IsConnected(),
		SerialNumber:    info.SerialNumber,
		FirmwareVersion: info.FirmwareVersion,
		RoastCount:      info.RoastCount,
	}
}

// SetControls applies the setpoints present in the request. The driver
// clamps values to the device ranges and bridges heater/fan through
// step commands.
func (s *RoasterService) SetControls(req *model.ControlRequest) error {
	if !s.driver.IsConnected() {
		return fmt.Errorf("roaster not connected")
	}

	if req.Heater != nil {
		s.driver.SetHeater(*req.Heater)
	}
	if req.Fan != nil {
		s.driver.SetFan(*req.Fan)
	}
	if req.Drum != nil {
		s.driver.SetDrum(*req.Drum)
	}
	return nil
}
