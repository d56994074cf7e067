/*
DESCRIPTION
  still.go provides an implementation of the driver.Driver interface that
  uses the libcamera-still camera interfacing utility to capture single
  JPEG frames on demand. A fixed ring of frame tokens models the
  peripheral's buffer pool: frames handed out and never released exhaust
  the ring.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package still provides an implementation of the driver.Driver interface
// for the libcamera-still camera interfacing utility, capturing a single
// frame per request.
package still

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ausocean/snapcam/cam/config"
	"github.com/ausocean/snapcam/driver"
	"github.com/ausocean/utils/logging"
)

// To indicate package when logging.
const pkg = "still: "

// Capture command and bounds.
const (
	captureCmd     = "libcamera-still"
	captureTimeout = 15 * time.Second
	shutterWait    = 5 // ms given to the utility for AE/AWB before capture.
)

// Misc errors.
var (
	errNotInitialized = errors.New("peripheral not initialized")
	errRingExhausted  = errors.New("no free frame buffer; unreleased frames have starved the ring")
)

// Still is an implementation of driver.Driver that runs the
// libcamera-still utility once per frame request.
type Still struct {
	mu          sync.Mutex
	cfg         config.Config
	log         logging.Logger
	ring        chan struct{} // One token per frame buffer.
	sensor      *sensor
	initialized bool
}

// New returns a new Still.
func New(l logging.Logger) *Still { return &Still{log: l} }

// Name returns the name of the driver.
func (s *Still) Name() string { return "Still" }

// Init validates the config and prepares the frame ring. The peripheral
// itself is probed lazily on first capture; libcamera-still holds no
// persistent device state between invocations.
func (s *Still) Init(c config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.PixelFormat != config.JPEG {
		return &driver.Error{Code: driver.CodeInitFailed, Err: fmt.Errorf("unsupported pixel format: %v", c.PixelFormat)}
	}

	if _, err := exec.LookPath(captureCmd); err != nil {
		return &driver.Error{Code: driver.CodeInitFailed, Err: fmt.Errorf("capture utility unavailable: %w", err)}
	}

	s.cfg = c
	s.ring = make(chan struct{}, c.FrameBuffers)
	for i := 0; i < c.FrameBuffers; i++ {
		s.ring <- struct{}{}
	}
	s.sensor = newSensor()
	s.initialized = true
	s.log.Info(pkg+"initialized", "frameBuffers", c.FrameBuffers, "frameSize", int(c.FrameSize), "quality", c.JPEGQuality)
	return nil
}

// Frame captures a single JPEG by invoking the capture utility, consuming
// a frame token from the ring for the lifetime of the returned frame.
func (s *Still) Frame() (*driver.Frame, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil, &driver.Error{Code: driver.CodeNotReady, Err: errNotInitialized}
	}
	args := s.args()
	ring := s.ring
	s.mu.Unlock()

	select {
	case <-ring:
	default:
		return nil, &driver.Error{Code: driver.CodeNoFreeBuf, Err: errRingExhausted}
	}

	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	s.log.Debug(pkg+"capture args", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, captureCmd, args...)
	out, err := cmd.Output()
	if err != nil {
		// Failed capture; the token goes straight back.
		ring <- struct{}{}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			s.log.Error(pkg+"capture utility failed", "stderr", string(ee.Stderr))
		}
		return nil, &driver.Error{Code: driver.CodeCapture, Err: fmt.Errorf("could not run capture utility: %w", err)}
	}

	return &driver.Frame{Data: out, Format: config.JPEG}, nil
}

// Stale returns nil; the capture utility holds no frame backlog between
// invocations.
func (s *Still) Stale() *driver.Frame { return nil }

// Release returns the frame's token to the ring.
func (s *Still) Release(f *driver.Frame) {
	if f == nil {
		return
	}
	s.mu.Lock()
	ring := s.ring
	s.mu.Unlock()
	select {
	case ring <- struct{}{}:
	default:
		s.log.Error(pkg + "release of frame not owned by ring")
	}
}

// Sensor returns the tuning handle. Tuning values are applied as command
// line arguments on subsequent captures.
func (s *Still) Sensor() (driver.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, errNotInitialized
	}
	return s.sensor, nil
}

// Deinit marks the peripheral uninitialised. Captures already issued are
// allowed to resolve.
func (s *Still) Deinit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.log.Info(pkg + "deinitialized")
	return nil
}

// args builds the capture utility's argument list from the config and the
// current sensor tuning.
func (s *Still) args() []string {
	w, h := s.cfg.FrameSize.Dims()
	args := []string{
		"--output", "-",
		"--nopreview",
		"--encoding", "jpg",
		"--width", fmt.Sprint(w),
		"--height", fmt.Sprint(h),
		"--quality", fmt.Sprint(jpegQualityPercent(s.cfg.JPEGQuality)),
		"--timeout", fmt.Sprint(shutterWait),
		"--immediate",
	}
	return append(args, s.sensor.args()...)
}

// jpegQualityPercent maps the 2-63 lower-is-better peripheral quality
// scale onto the utility's 0-100 higher-is-better percentage.
func jpegQualityPercent(q int) int {
	if q < 2 {
		q = 2
	}
	if q > 63 {
		q = 63
	}
	return 100 - ((q - 2) * 100 / 61)
}
