/*
DESCRIPTION
  cam.go provides Camera, the camera manager at the centre of snapcam. A
  Camera owns the imaging peripheral's lifecycle, the single-permit gate
  serializing all capture paths, the memory-tiered allocator, and the
  illumination line. Capture orchestration lives in capture.go and the
  transport encoder in encode.go.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cam provides the camera manager: peripheral lifecycle, gated
// and rate-limited capture with bounded retries, memory-tiered buffer
// allocation, and base64 transport encoding.
package cam

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/snapcam/cam/config"
	"github.com/ausocean/snapcam/driver"
	"github.com/ausocean/utils/logging"
)

// To indicate package when logging.
const pkg = "cam: "

// The fixed sensor tuning profile applied on init. Fully automatic
// settings proved unstable in the field; this is an explicit snapshot of
// known-good values with automatic exposure and gain bounded by moderate
// manual fallbacks.
const (
	tuneAGCGain    = 6   // Moderate gain ceiling.
	tuneAECValue   = 400 // Moderate exposure fallback.
	tuneAELevel    = 0   // Neutral auto-exposure level.
	tuneBrightness = 0
	tuneContrast   = 0
	tuneSaturation = 0
	tuneWBMode     = 0 // Auto white balance mode.
)

// Status describes the camera manager's current state.
type Status struct {
	Initialized     bool
	FreeDefaultTier int
	FreeLargeTier   int
	SensorID        int
}

// Camera is the camera manager. It is safe for concurrent use; all
// capture paths serialize through a single-permit gate. Create with New,
// then Init before capturing.
type Camera struct {
	drv   driver.Driver
	light driver.Light
	log   logging.Logger

	cfg   config.Config
	alloc *Allocator

	// gate is the single-permit lock serializing peripheral access.
	// Sending occupies the permit; receiving releases it. lastCapture is
	// only touched while the permit is held.
	gate        chan struct{}
	lastCapture time.Time

	mu          sync.Mutex // Guards initialized and sensorID.
	initialized bool
	sensorID    int
}

// New returns a new Camera over the given driver. light may be nil when
// no illumination line is fitted.
func New(d driver.Driver, light driver.Light, l logging.Logger) *Camera {
	return &Camera{drv: d, light: light, log: l}
}

// Init configures the peripheral and applies the fixed tuning profile.
// Init is idempotent: a second call warns and returns nil. The
// illumination line is driven low before the peripheral is touched, so
// the light source is off on every init path, including after a crash
// or reset.
func (c *Camera) Init(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config must not be nil", ErrInvalidArg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		c.log.Warning(pkg + "init called, but camera already initialized")
		return nil
	}

	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArg, err)
	}

	c.setLight(false)

	c.alloc = NewAllocator(cfg.DefaultTierBudget, cfg.LargeTierBudget, cfg.LargeTierThreshold, c.log)
	c.log.Info(pkg+"large memory tier", "available", c.alloc.LargeAvailable())
	if !c.alloc.LargeAvailable() && cfg.FrameSize > config.FrameVGA {
		c.log.Warning(pkg+"large frame size without large memory tier; consider reducing size", "frameSize", int(cfg.FrameSize))
	}

	c.gate = make(chan struct{}, 1)

	err = c.drv.Init(*cfg)
	if err != nil {
		c.gate = nil
		c.alloc = nil
		var de *driver.Error
		if errors.As(err, &de) {
			c.log.Error(pkg+"peripheral init failed", "code", de.Code, "error", err.Error())
			return &PeripheralError{Code: de.Code, Err: err}
		}
		c.log.Error(pkg+"peripheral init failed", "error", err.Error())
		return &PeripheralError{Err: err}
	}

	s, err := c.drv.Sensor()
	if err != nil {
		c.log.Warning(pkg+"could not get sensor handle", "error", err.Error())
	} else {
		c.tune(s, cfg)
		c.sensorID = s.ID()
		c.log.Info(pkg+"sensor configured", "pid", fmt.Sprintf("0x%02x", s.ID()))
	}

	c.cfg = *cfg
	c.lastCapture = time.Time{}
	c.initialized = true

	c.log.Info(pkg+"camera initialized",
		"frameSize", int(cfg.FrameSize),
		"quality", cfg.JPEGQuality,
		"frameBuffers", cfg.FrameBuffers,
		"freeDefaultTier", c.alloc.FreeDefault(),
		"freeLargeTier", c.alloc.FreeLarge(),
	)
	return nil
}

// tune applies the fixed tuning profile to the sensor. Individual
// failures are logged and skipped; a partially tuned sensor still
// produces usable frames.
func (c *Camera) tune(s driver.Sensor, cfg *config.Config) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"framesize", func() error { return s.SetFrameSize(cfg.FrameSize) }},
		{"agc", func() error { return s.SetAutoGain(true) }},
		{"aec", func() error { return s.SetAutoExposure(true) }},
		{"ae_level", func() error { return s.SetExposureLevel(tuneAELevel) }},
		{"agc_gain", func() error { return s.SetManualGain(tuneAGCGain) }},
		{"aec_value", func() error { return s.SetManualExposure(tuneAECValue) }},
		{"brightness", func() error { return s.SetBrightness(tuneBrightness) }},
		{"contrast", func() error { return s.SetContrast(tuneContrast) }},
		{"saturation", func() error { return s.SetSaturation(tuneSaturation) }},
		{"awb", func() error { return s.SetAutoWhiteBalance(true) }},
		{"awb_gain", func() error { return s.SetAWBGain(true) }},
		{"wb_mode", func() error { return s.SetWhiteBalanceMode(tuneWBMode) }},
		{"pixel_correction", func() error { return s.SetPixelCorrection(false, true) }},
		{"dcw", func() error { return s.SetDownsizeCrop(true) }},
		{"special_effect", func() error { return s.SetSpecialEffect(0) }},
		{"mirror", func() error { return s.SetMirror(false, false) }},
	}
	for _, step := range steps {
		err := step.fn()
		if err != nil {
			c.log.Warning(pkg+"tuning step failed", "step", step.name, "error", err.Error())
		}
	}

	if lc, ok := s.(driver.LensCorrector); ok {
		err := lc.SetLensCorrection(true)
		if err != nil {
			c.log.Warning(pkg+"tuning step failed", "step", "lenc", "error", err.Error())
		}
	}
}

// IsInitialized reports whether the camera has been initialized.
func (c *Camera) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// SetIllumination switches the illumination source. It is fire-and-forget
// and does not serialize through the capture gate.
func (c *Camera) SetIllumination(on bool) error {
	if !c.IsInitialized() {
		return ErrNotInitialized
	}
	if c.light == nil {
		return fmt.Errorf("%w: no illumination line fitted", ErrInvalidArg)
	}
	err := c.light.Set(on)
	if err != nil {
		return fmt.Errorf("could not set illumination: %w", err)
	}
	c.log.Info(pkg+"illumination", "on", on)
	return nil
}

// setLight is the internal best-effort illumination switch used on
// capture and lifecycle paths.
func (c *Camera) setLight(on bool) {
	if c.light == nil {
		return
	}
	err := c.light.Set(on)
	if err != nil {
		c.log.Error(pkg+"could not switch illumination", "on", on, "error", err.Error())
	}
}

// Status returns the camera manager's current state. When the camera is
// not initialized a zeroed status and ErrNotInitialized are returned.
func (c *Camera) Status() (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return Status{}, ErrNotInitialized
	}
	return Status{
		Initialized:     true,
		FreeDefaultTier: c.alloc.FreeDefault(),
		FreeLargeTier:   c.alloc.FreeLarge(),
		SensorID:        c.sensorID,
	}, nil
}

// Deinit powers down the peripheral and resets the manager to the
// uninitialized state. The gate is acquired with the configured bound so
// an in-flight capture resolves first; teardown proceeds even if the
// peripheral deinit errors.
func (c *Camera) Deinit() error {
	if !c.IsInitialized() {
		c.log.Warning(pkg + "deinit called, but camera not initialized")
		return ErrNotInitialized
	}

	err := c.acquireGate()
	if err != nil {
		c.log.Warning(pkg+"could not acquire gate for deinit, tearing down anyway", "error", err.Error())
	} else {
		defer c.releaseGate()
	}

	c.setLight(false)
	cleared := c.flushStale(deinitFlushCap, c.cfg.FlushDelay)
	c.log.Info(pkg+"cleared buffers during deinit", "cleared", cleared)

	derr := c.drv.Deinit()
	if derr != nil {
		c.log.Error(pkg+"peripheral deinit failed", "error", derr.Error())
	}

	c.mu.Lock()
	c.initialized = false
	c.sensorID = 0
	c.mu.Unlock()
	c.lastCapture = time.Time{}

	if derr != nil {
		var de *driver.Error
		if errors.As(derr, &de) {
			return &PeripheralError{Code: de.Code, Err: derr}
		}
		return &PeripheralError{Err: derr}
	}
	c.log.Info(pkg + "camera deinitialized")
	return nil
}

// Diagnostic logs the camera manager's state in enough detail to diagnose
// field failures without reproducing them, including a frame round-trip
// test through the gate.
func (c *Camera) Diagnostic() {
	c.mu.Lock()
	initialized := c.initialized
	c.mu.Unlock()

	c.log.Info(pkg+"diagnostic", "initialized", initialized)
	if !initialized {
		return
	}

	c.log.Info(pkg+"diagnostic memory",
		"freeDefaultTier", c.alloc.FreeDefault(),
		"freeLargeTier", c.alloc.FreeLarge(),
		"largeAvailable", c.alloc.LargeAvailable(),
	)

	err := c.acquireGate()
	if err != nil {
		c.log.Warning(pkg+"diagnostic could not acquire gate, skipping buffer test", "error", err.Error())
		return
	}
	defer c.releaseGate()

	f, err := c.drv.Frame()
	if err != nil || f == nil {
		c.log.Warning(pkg+"diagnostic buffer test failed", "error", fmt.Sprint(err))
		if f != nil {
			c.drv.Release(f)
		}
		return
	}
	c.log.Info(pkg+"diagnostic buffer test", "bytes", f.Len())
	c.drv.Release(f)

	if !c.lastCapture.IsZero() {
		c.log.Info(pkg+"diagnostic last capture", "ago", time.Since(c.lastCapture).String())
	}
}

// acquireGate takes the single permit, waiting at most GateTimeout.
func (c *Camera) acquireGate() error {
	select {
	case c.gate <- struct{}{}:
		return nil
	case <-time.After(c.cfg.GateTimeout):
		return fmt.Errorf("%w after %v", ErrTimeout, c.cfg.GateTimeout)
	}
}

// releaseGate returns the permit.
func (c *Camera) releaseGate() { <-c.gate }
