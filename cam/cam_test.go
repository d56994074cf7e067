/*
DESCRIPTION
  cam_test.go provides testing for the Camera lifecycle: initialisation,
  tuning, status, illumination control and deinitialisation. Shared test
  fixtures for the cam package also live here.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cam

import (
	"errors"
	"testing"
	"time"

	"github.com/ausocean/snapcam/cam/config"
	"github.com/ausocean/snapcam/driver/testcam"
)

// fastConfig returns a config with all orchestration delays shrunk so the
// full retry machinery runs in milliseconds.
func fastConfig() *config.Config {
	return &config.Config{
		Logger:             &dumbLogger{},
		PixelFormat:        config.JPEG,
		FrameSize:          config.FrameQVGA,
		JPEGQuality:        12,
		FrameBuffers:       2,
		MinCaptureInterval: 40 * time.Millisecond,
		GateTimeout:        500 * time.Millisecond,
		MaxCaptureRetries:  3,
		RetryBaseDelay:     time.Millisecond,
		FlashWarmup:        time.Millisecond,
		FlashStabilize:     time.Millisecond,
		FirstAttemptSettle: time.Millisecond,
		AttemptSettle:      time.Millisecond,
		FlushCap:           5,
		FlushDelay:         time.Millisecond,
		FlushTimeout:       200 * time.Millisecond,
		ReflushCap:         3,
		ReflushDelay:       time.Millisecond,
		LargeTierThreshold: 1024,
		DefaultTierBudget:  64 << 10,
		LargeTierBudget:    256 << 10,
		ExpansionFactor:    1.4,
		EncodeMargin:       64,
	}
}

// newTestCamera returns an initialized Camera over a fresh testcam and
// fake light.
func newTestCamera(t *testing.T, cfg *config.Config) (*Camera, *testcam.Camera, *testcam.Light) {
	t.Helper()
	drv := testcam.New()
	light := testcam.NewLight()
	c := New(drv, light, &dumbLogger{})
	err := c.Init(cfg)
	if err != nil {
		t.Fatalf("could not init camera: %v", err)
	}
	return c, drv, light
}

func TestInitNilConfig(t *testing.T) {
	c := New(testcam.New(), nil, &dumbLogger{})
	err := c.Init(nil)
	if !errors.Is(err, ErrInvalidArg) {
		t.Errorf("expected ErrInvalidArg, got %v", err)
	}
	if c.IsInitialized() {
		t.Error("camera reported initialized after failed init")
	}
}

func TestInitIdempotent(t *testing.T) {
	c, drv, _ := newTestCamera(t, fastConfig())
	err := c.Init(fastConfig())
	if err != nil {
		t.Fatalf("second init returned error: %v", err)
	}
	if !c.IsInitialized() {
		t.Error("camera not initialized after double init")
	}
	// The second init must not have re-tuned the peripheral.
	if got := drv.TuningSensor().Applied["agc_gain"]; got != tuneAGCGain {
		t.Errorf("unexpected gain after double init: got %d, want %d", got, tuneAGCGain)
	}
}

func TestInitPeripheralFailure(t *testing.T) {
	drv := testcam.New()
	drv.InitErr = errors.New("no camera on bus")
	c := New(drv, nil, &dumbLogger{})

	err := c.Init(fastConfig())
	var pe *PeripheralError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PeripheralError, got %v", err)
	}
	if pe.Code == 0 {
		t.Error("peripheral error code not propagated")
	}
	if c.IsInitialized() {
		t.Error("camera reported initialized after peripheral failure")
	}
}

func TestInitTuning(t *testing.T) {
	cfg := fastConfig()
	cfg.FrameSize = config.FrameVGA
	_, drv, _ := newTestCamera(t, cfg)

	applied := drv.TuningSensor().Applied
	for k, want := range map[string]int{
		"framesize":      int(config.FrameVGA),
		"agc":            1,
		"aec":            1,
		"ae_level":       tuneAELevel,
		"agc_gain":       tuneAGCGain,
		"aec_value":      tuneAECValue,
		"awb":            1,
		"awb_gain":       1,
		"wb_mode":        tuneWBMode,
		"bpc":            0,
		"wpc":            1,
		"dcw":            1,
		"special_effect": 0,
		"hmirror":        0,
		"vflip":          0,
		"lenc":           1,
	} {
		got, ok := applied[k]
		if !ok {
			t.Errorf("tuning step %s never applied", k)
			continue
		}
		if got != want {
			t.Errorf("tuning step %s: got %d, want %d", k, got, want)
		}
	}
}

func TestStatus(t *testing.T) {
	c, _, _ := newTestCamera(t, fastConfig())

	s, err := c.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !s.Initialized {
		t.Error("status not initialized")
	}
	if s.SensorID == 0 {
		t.Error("sensor ID not reported")
	}
	if s.FreeDefaultTier <= 0 || s.FreeLargeTier <= 0 {
		t.Errorf("tier headroom not reported: default %d, large %d", s.FreeDefaultTier, s.FreeLargeTier)
	}
}

func TestStatusNotInitialized(t *testing.T) {
	c := New(testcam.New(), nil, &dumbLogger{})
	_, err := c.Status()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestSetIllumination(t *testing.T) {
	c, _, light := newTestCamera(t, fastConfig())

	err := c.SetIllumination(true)
	if err != nil {
		t.Fatalf("could not set illumination: %v", err)
	}
	if !light.On() {
		t.Error("light not on after SetIllumination(true)")
	}
	err = c.SetIllumination(false)
	if err != nil {
		t.Fatalf("could not clear illumination: %v", err)
	}
	if light.On() {
		t.Error("light still on after SetIllumination(false)")
	}
}

func TestSetIlluminationNotInitialized(t *testing.T) {
	c := New(testcam.New(), testcam.NewLight(), &dumbLogger{})
	err := c.SetIllumination(true)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestDeinit(t *testing.T) {
	c, _, light := newTestCamera(t, fastConfig())

	err := c.Deinit()
	if err != nil {
		t.Fatalf("deinit failed: %v", err)
	}
	if c.IsInitialized() {
		t.Error("camera reported initialized after deinit")
	}
	if light.On() {
		t.Error("light on after deinit")
	}
	_, err = c.Capture()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after deinit, got %v", err)
	}

	err = c.Deinit()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized on double deinit, got %v", err)
	}
}

func TestDeinitReinit(t *testing.T) {
	c, _, _ := newTestCamera(t, fastConfig())
	err := c.Deinit()
	if err != nil {
		t.Fatalf("deinit failed: %v", err)
	}
	err = c.Init(fastConfig())
	if err != nil {
		t.Fatalf("reinit failed: %v", err)
	}
	f, err := c.Capture()
	if err != nil {
		t.Fatalf("capture after reinit failed: %v", err)
	}
	c.Release(f)
}
