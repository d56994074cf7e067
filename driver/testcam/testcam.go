/*
DESCRIPTION
  testcam.go provides a deterministic implementation of the driver.Driver
  interface for testing and simulation. The testcam serves canned JPEG
  frames and can be scripted to fail early attempts, queue stale frames,
  or never run dry of stale frames, so that orchestrator retry, flush and
  ownership behaviour can be exercised without hardware.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package testcam provides a deterministic driver.Driver for testing and
// simulated operation.
package testcam

import (
	"errors"
	"sync"
	"time"

	"github.com/ausocean/snapcam/cam/config"
	"github.com/ausocean/snapcam/driver"
)

// Default sensor product ID reported by the testcam (OV2640).
const sensorPID = 0x26

var errNotInitialized = errors.New("testcam not initialized")

// A minimal but structurally valid JPEG (SOI, quantisation, SOF0, SOS,
// a little entropy data, EOI), served when no frames are scripted.
var defaultFrame = []byte{
	0xff, 0xd8, 0xff, 0xdb, 0x00, 0x43, 0x00,
	0x10, 0x0b, 0x0c, 0x0e, 0x0c, 0x0a, 0x10, 0x0e, 0x0d, 0x0e, 0x12,
	0x11, 0x10, 0x13, 0x18, 0x28, 0x1a, 0x18, 0x16, 0x16, 0x18, 0x31,
	0x23, 0x25, 0x1d, 0x28, 0x3a, 0x33, 0x3d, 0x3c, 0x39, 0x33, 0x38,
	0x37, 0x40, 0x48, 0x5c, 0x4e, 0x40, 0x44, 0x57, 0x45, 0x37, 0x38,
	0x50, 0x6d, 0x51, 0x57, 0x5f, 0x62, 0x67, 0x68, 0x67, 0x3e, 0x4d,
	0x71, 0x79, 0x70, 0x64, 0x78, 0x5c, 0x65, 0x67, 0x63,
	0xff, 0xc0, 0x00, 0x0b, 0x08, 0x00, 0x08, 0x00, 0x08, 0x01, 0x01,
	0x11, 0x00,
	0xff, 0xda, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3f, 0x00,
	0x54, 0xdd, 0x22, 0xb1, 0x94, 0x2c, 0x33,
	0xff, 0xd9,
}

// Camera is a scriptable driver.Driver implementation.
type Camera struct {
	// Frames holds the payloads served by successive successful Frame
	// calls, cycled when exhausted. When empty a built-in JPEG is served.
	Frames [][]byte

	// FailBefore causes the first FailBefore calls to Frame to return an
	// empty frame, as marginal hardware does.
	FailBefore int

	// NilBefore causes the first NilBefore calls to Frame to return a nil
	// frame with no error, modelling a peripheral that times out silently.
	NilBefore int

	// InitErr, when non-nil, is returned (wrapped in a driver.Error) by
	// Init.
	InitErr error

	// StaleFrames is the number of stale frames queued for Stale to
	// serve. EndlessStale makes Stale never run dry, for exercising the
	// drain bounds.
	StaleFrames  int
	EndlessStale bool

	mu          sync.Mutex
	cfg         config.Config
	initialized bool
	frameCalls  int
	idx         int
	releases    int
	outstanding int
	inFrame     int
	overlapped  bool
	sensor      *Sensor
}

// New returns a new Camera.
func New() *Camera { return &Camera{} }

// Name returns the name of the driver.
func (c *Camera) Name() string { return "Testcam" }

// Init records the config and marks the camera ready.
func (c *Camera) Init(cfg config.Config) error {
	if c.InitErr != nil {
		return &driver.Error{Code: driver.CodeInitFailed, Err: c.InitErr}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.initialized = true
	c.sensor = &Sensor{pid: sensorPID, Applied: make(map[string]int)}
	return nil
}

// exposureWindow is how long Frame holds its simulated exposure open;
// overlapping callers are observable within it.
const exposureWindow = 2 * time.Millisecond

// Frame serves the next scripted frame. Scripted failures are consumed
// before any success.
func (c *Camera) Frame() (*driver.Frame, error) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return nil, &driver.Error{Code: driver.CodeNotReady, Err: errNotInitialized}
	}
	c.frameCalls++
	c.inFrame++
	if c.inFrame > 1 {
		c.overlapped = true
	}
	c.mu.Unlock()

	time.Sleep(exposureWindow)

	c.mu.Lock()
	defer func() {
		c.inFrame--
		c.mu.Unlock()
	}()

	switch {
	case c.NilBefore > 0:
		c.NilBefore--
		return nil, nil
	case c.FailBefore > 0:
		c.FailBefore--
		c.outstanding++
		return &driver.Frame{Data: nil, Format: c.cfg.PixelFormat}, nil
	}

	data := defaultFrame
	if len(c.Frames) != 0 {
		data = c.Frames[c.idx%len(c.Frames)]
		c.idx++
	}
	c.outstanding++
	return &driver.Frame{Data: data, Format: c.cfg.PixelFormat}, nil
}

// Stale serves queued stale frames until the scripted count runs out.
func (c *Camera) Stale() *driver.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil
	}
	if !c.EndlessStale {
		if c.StaleFrames == 0 {
			return nil
		}
		c.StaleFrames--
	}
	c.outstanding++
	return &driver.Frame{Data: defaultFrame, Format: c.cfg.PixelFormat}
}

// Release returns a frame to the ring.
func (c *Camera) Release(f *driver.Frame) {
	if f == nil {
		return
	}
	c.mu.Lock()
	c.releases++
	c.outstanding--
	c.mu.Unlock()
}

// Sensor returns the recording fake sensor.
func (c *Camera) Sensor() (driver.Sensor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, errNotInitialized
	}
	return c.sensor, nil
}

// Deinit marks the camera uninitialised.
func (c *Camera) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = false
	return nil
}

// Releases returns the number of Release calls made so far.
func (c *Camera) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

// Outstanding returns the number of frames handed out and not yet
// released.
func (c *Camera) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

// FrameCalls returns the number of Frame calls made so far.
func (c *Camera) FrameCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCalls
}

// Overlapped reports whether two Frame calls were ever in flight at once.
func (c *Camera) Overlapped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlapped
}

// TuningSensor returns the fake sensor for inspection of applied tuning.
func (c *Camera) TuningSensor() *Sensor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sensor
}

// Sensor is a fake driver.Sensor that records the tuning applied to it.
// It also implements driver.LensCorrector.
type Sensor struct {
	pid     int
	Applied map[string]int
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Sensor) ID() int { return s.pid }

func (s *Sensor) SetFrameSize(fs config.FrameSize) error {
	s.Applied["framesize"] = int(fs)
	return nil
}

func (s *Sensor) SetAutoGain(on bool) error {
	s.Applied["agc"] = b2i(on)
	return nil
}

func (s *Sensor) SetAutoExposure(on bool) error {
	s.Applied["aec"] = b2i(on)
	return nil
}

func (s *Sensor) SetExposureLevel(level int) error {
	s.Applied["ae_level"] = level
	return nil
}

func (s *Sensor) SetManualGain(gain int) error {
	s.Applied["agc_gain"] = gain
	return nil
}

func (s *Sensor) SetManualExposure(value int) error {
	s.Applied["aec_value"] = value
	return nil
}

func (s *Sensor) SetAutoWhiteBalance(on bool) error {
	s.Applied["awb"] = b2i(on)
	return nil
}

func (s *Sensor) SetAWBGain(on bool) error {
	s.Applied["awb_gain"] = b2i(on)
	return nil
}

func (s *Sensor) SetWhiteBalanceMode(mode int) error {
	s.Applied["wb_mode"] = mode
	return nil
}

func (s *Sensor) SetBrightness(v int) error {
	s.Applied["brightness"] = v
	return nil
}

func (s *Sensor) SetContrast(v int) error {
	s.Applied["contrast"] = v
	return nil
}

func (s *Sensor) SetSaturation(v int) error {
	s.Applied["saturation"] = v
	return nil
}

func (s *Sensor) SetPixelCorrection(black, white bool) error {
	s.Applied["bpc"] = b2i(black)
	s.Applied["wpc"] = b2i(white)
	return nil
}

func (s *Sensor) SetDownsizeCrop(on bool) error {
	s.Applied["dcw"] = b2i(on)
	return nil
}

func (s *Sensor) SetSpecialEffect(e int) error {
	s.Applied["special_effect"] = e
	return nil
}

func (s *Sensor) SetMirror(horizontal, vertical bool) error {
	s.Applied["hmirror"] = b2i(horizontal)
	s.Applied["vflip"] = b2i(vertical)
	return nil
}

// SetLensCorrection implements driver.LensCorrector.
func (s *Sensor) SetLensCorrection(on bool) error {
	s.Applied["lenc"] = b2i(on)
	return nil
}

// Light is a fake driver.Light that records every state transition.
type Light struct {
	mu     sync.Mutex
	on     bool
	States []bool
}

// NewLight returns a new fake Light.
func NewLight() *Light { return &Light{} }

// Set records the requested state.
func (l *Light) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = on
	l.States = append(l.States, on)
	return nil
}

// On reports the current state.
func (l *Light) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Close is a no-op to satisfy driver.Light.
func (l *Light) Close() error { return nil }
