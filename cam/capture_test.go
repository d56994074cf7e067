/*
DESCRIPTION
  capture_test.go provides testing for capture orchestration: gate
  serialization, rate limiting, bounded retries, stale-buffer flushing,
  buffer ownership and illumination sequencing.

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
	"sync"
	"testing"
	"time"
)

func TestCapture(t *testing.T) {
	c, drv, light := newTestCamera(t, fastConfig())

	f, err := c.Capture()
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if f == nil || f.Len() == 0 {
		t.Fatal("capture returned empty frame")
	}
	if light.On() {
		t.Error("light still on after capture")
	}

	c.Release(f)
	if got := drv.Outstanding(); got != 0 {
		t.Errorf("frames still outstanding after release: %d", got)
	}
}

func TestCaptureNotInitialized(t *testing.T) {
	c := New(nil, nil, &dumbLogger{})
	_, err := c.Capture()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestCaptureRetriesThenSucceeds(t *testing.T) {
	c, drv, _ := newTestCamera(t, fastConfig())
	drv.FailBefore = 2

	f, err := c.Capture()
	if err != nil {
		t.Fatalf("capture failed despite retry budget: %v", err)
	}
	if got := drv.FrameCalls(); got != 3 {
		t.Errorf("unexpected attempt count: got %d, want 3", got)
	}
	c.Release(f)
	if got := drv.Outstanding(); got != 0 {
		t.Errorf("failed attempts leaked buffers: %d outstanding", got)
	}
}

func TestCaptureExhaustsRetries(t *testing.T) {
	c, drv, light := newTestCamera(t, fastConfig())
	drv.FailBefore = 10 // More than the retry budget.

	_, err := c.Capture()
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	if got := drv.FrameCalls(); got != 3 {
		t.Errorf("retry bound not honoured: %d attempts", got)
	}
	if got := drv.Outstanding(); got != 0 {
		t.Errorf("failed capture leaked buffers: %d outstanding", got)
	}
	if light.On() {
		t.Error("light still on after failed capture")
	}
}

func TestCaptureNilFrames(t *testing.T) {
	c, drv, _ := newTestCamera(t, fastConfig())
	drv.NilBefore = 1

	f, err := c.Capture()
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	c.Release(f)
	if got := drv.Outstanding(); got != 0 {
		t.Errorf("nil frame handling leaked buffers: %d outstanding", got)
	}
}

func TestCaptureGateTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.GateTimeout = 20 * time.Millisecond
	c, _, _ := newTestCamera(t, cfg)

	// Occupy the gate so the capture cannot acquire it.
	c.gate <- struct{}{}
	defer func() { <-c.gate }()

	_, err := c.Capture()
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestCaptureSerialized(t *testing.T) {
	cfg := fastConfig()
	cfg.MinCaptureInterval = time.Millisecond
	cfg.GateTimeout = 5 * time.Second
	c, drv, _ := newTestCamera(t, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := c.Capture()
			if err != nil {
				t.Errorf("concurrent capture failed: %v", err)
				return
			}
			c.Release(f)
		}()
	}
	wg.Wait()

	if drv.Overlapped() {
		t.Error("two captures reached the peripheral at once")
	}
	if got := drv.Outstanding(); got != 0 {
		t.Errorf("concurrent captures leaked buffers: %d outstanding", got)
	}
}

func TestCaptureRateFloor(t *testing.T) {
	cfg := fastConfig()
	cfg.MinCaptureInterval = 60 * time.Millisecond
	c, _, _ := newTestCamera(t, cfg)

	f, err := c.Capture()
	if err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
	c.Release(f)

	start := time.Now()
	f, err = c.Capture()
	if err != nil {
		t.Fatalf("second capture failed: %v", err)
	}
	c.Release(f)

	if elapsed := time.Since(start); elapsed < cfg.MinCaptureInterval {
		t.Errorf("second capture completed in %v, rate floor is %v", elapsed, cfg.MinCaptureInterval)
	}
}

func TestCaptureFlushesStale(t *testing.T) {
	c, drv, _ := newTestCamera(t, fastConfig())
	drv.StaleFrames = 3

	f, err := c.Capture()
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	c.Release(f)

	// The three stale frames plus the captured frame must all be back.
	if got := drv.Outstanding(); got != 0 {
		t.Errorf("stale flush leaked buffers: %d outstanding", got)
	}
	if got := drv.Releases(); got != 4 {
		t.Errorf("unexpected release count: got %d, want 4", got)
	}
}

func TestCaptureFlushBounded(t *testing.T) {
	c, drv, _ := newTestCamera(t, fastConfig())
	drv.EndlessStale = true

	f, err := c.Capture()
	if err != nil {
		t.Fatalf("capture failed against endless stale frames: %v", err)
	}
	c.Release(f)

	// One attempt drains at most FlushCap + ReflushCap stale frames.
	maxStale := c.cfg.FlushCap + c.cfg.ReflushCap
	if got := drv.Releases(); got > maxStale+1 {
		t.Errorf("flush not bounded: %d releases, want at most %d", got, maxStale+1)
	}
}

func TestCaptureIlluminationSequence(t *testing.T) {
	c, _, light := newTestCamera(t, fastConfig())

	f, err := c.Capture()
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	c.Release(f)

	states := light.States
	if len(states) == 0 {
		t.Fatal("light never driven")
	}
	var lit bool
	for _, s := range states {
		if s {
			lit = true
		}
	}
	if !lit {
		t.Error("light never turned on during capture")
	}
	if states[len(states)-1] {
		t.Error("light left on after capture")
	}
}

func TestCaptureBase64(t *testing.T) {
	c, drv, _ := newTestCamera(t, fastConfig())

	enc, err := c.CaptureBase64()
	if err != nil {
		t.Fatalf("capture and encode failed: %v", err)
	}
	defer enc.Free()

	if enc.Len() == 0 {
		t.Error("empty encoding")
	}
	// The raw frame must already be back with the peripheral.
	if got := drv.Outstanding(); got != 0 {
		t.Errorf("raw frame not released: %d outstanding", got)
	}
}
