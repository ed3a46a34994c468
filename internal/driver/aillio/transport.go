// internal/driver/aillio/transport.go
package aillio

import (
	"fmt"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// Transport is the byte-level link to the roaster. The production
// implementation talks USB bulk transfers; tests substitute a fake.
type Transport interface {
	// Open discovers and claims the device. It returns ErrDeviceNotFound
	// when no roaster is reachable and a *ConnectError when configuration
	// selection or interface claim fails.
	Open() error
	// Write sends one command frame on the write endpoint.
	Write(data []byte) error
	// Read receives up to length bytes from the read endpoint.
	Read(length int) ([]byte, error)
	// Close releases the interface and all USB resources. Safe to call
	// repeatedly or before Open.
	Close() error
}

// usbTransport owns the gousb session for one roaster.
type usbTransport struct {
	logger *zap.Logger

	ctx    *gousb.Context
	device *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	out    *gousb.OutEndpoint
	in     *gousb.InEndpoint
}

// NewUSBTransport creates the production USB transport.
func NewUSBTransport(logger *zap.Logger) Transport {
	return &usbTransport{
		logger: logger.With(
			zap.String("transport", "usb"),
			zap.String("vendor_id", fmt.Sprintf("%04x", vendorID)),
		),
	}
}

// Open scans for the roaster, detaches any kernel-owned claim, selects
// the configuration and claims the interface exclusively.
func (t *usbTransport) Open() error {
	t.ctx = gousb.NewContext()

	device, err := t.findDevice()
	if err != nil {
		t.Close()
		return err
	}
	t.device = device

	// Best effort: some environments have a kernel driver bound to the
	// interface, others pre-release it.
	if err := device.SetAutoDetach(true); err != nil {
		t.logger.Debug("Kernel driver auto-detach unavailable", zap.Error(err))
	}

	config, err := device.Config(usbConfig)
	if err != nil {
		t.Close()
		return &ConnectError{Op: "set configuration", Err: err}
	}
	t.config = config

	intf, err := config.Interface(usbInterface, 0)
	if err != nil {
		t.Close()
		return &ConnectError{Op: "claim interface", Err: err}
	}
	t.intf = intf

	out, err := intf.OutEndpoint(endpointWrite)
	if err != nil {
		t.Close()
		return &ConnectError{Op: "open write endpoint", Err: err}
	}
	in, err := intf.InEndpoint(endpointRead & 0x0F)
	if err != nil {
		t.Close()
		return &ConnectError{Op: "open read endpoint", Err: err}
	}
	t.out = out
	t.in = in

	t.logger.Info("Roaster USB link opened",
		zap.String("product_id", fmt.Sprintf("%04x", uint16(t.device.Desc.Product))),
	)
	return nil
}

// findDevice probes the primary product ID first, then the revision 3
// fallback. Permission problems and absence both end up as
// ErrDeviceNotFound; the distinction only shows in the debug log.
func (t *usbTransport) findDevice() (*gousb.Device, error) {
	for _, pid := range []gousb.ID{productID, productIDRev3} {
		device, err := t.ctx.OpenDeviceWithVIDPID(vendorID, pid)
		if err != nil {
			t.logger.Debug("USB probe failed",
				zap.String("product_id", fmt.Sprintf("%04x", uint16(pid))),
				zap.Error(err),
			)
			continue
		}
		if device != nil {
			return device, nil
		}
	}
	return nil, ErrDeviceNotFound
}

// Write sends one command frame. Failures are recoverable; the next tick
// is the retry mechanism.
func (t *usbTransport) Write(data []byte) error {
	if t.out == nil {
		return &IoError{Op: "write", Err: fmt.Errorf("transport not open")}
	}
	if _, err := t.out.Write(data); err != nil {
		return &IoError{Op: "write", Err: err}
	}
	return nil
}

// Read receives up to length bytes from the read endpoint.
func (t *usbTransport) Read(length int) ([]byte, error) {
	if t.in == nil {
		return nil, &IoError{Op: "read", Err: fmt.Errorf("transport not open")}
	}
	buf := make([]byte, length)
	n, err := t.in.Read(buf)
	if err != nil {
		return nil, &IoError{Op: "read", Err: err}
	}
	return buf[:n], nil
}

// Close releases everything Open claimed. Idempotent.
func (t *usbTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.config != nil {
		t.config.Close()
		t.config = nil
	}
	if t.device != nil {
		t.device.Close()
		t.device = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	t.out = nil
	t.in = nil
	return nil
}
