/*
DESCRIPTION
  driver.go provides Driver, an interface that describes an imaging
  peripheral from which single frames may be obtained, along with the
  Frame type exchanged with it and the Light interface for illumination
  control.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package driver provides an interface and supporting types for imaging
// peripherals that produce single frames on request, owning a fixed ring
// of frame buffers.
package driver

import (
	"fmt"

	"github.com/ausocean/snapcam/cam/config"
)

// Frame represents one exposure's worth of compressed or raw pixel data.
// A Frame is owned by the driver's fixed buffer ring; a caller given a
// Frame must release it back to the driver exactly once. Frames withheld
// from Release permanently starve the ring.
type Frame struct {
	// Data holds the frame payload. For config.JPEG format this is a
	// complete peripheral-encoded JPEG.
	Data []byte

	// Format tags the payload's pixel format.
	Format config.PixelFormat
}

// Len returns the payload length in bytes.
func (f *Frame) Len() int { return len(f.Data) }

// Driver describes a configurable imaging peripheral from which frames
// can be obtained one at a time.
type Driver interface {
	// Name returns the name of the driver.
	Name() string

	// Init configures and powers the peripheral. All, some or none of the
	// fields of the Config struct may be used by an implementation.
	Init(c config.Config) error

	// Frame acquires the next frame from the peripheral. The returned
	// Frame remains owned by the driver's buffer ring and must be passed
	// to Release exactly once, on every path, success or failure.
	Frame() (*Frame, error)

	// Stale pops a frame already queued by the peripheral without
	// triggering a new exposure, or nil if none is queued. Stale frames
	// must be released like any other.
	Stale() *Frame

	// Release returns a frame to the driver's buffer ring.
	Release(f *Frame)

	// Sensor returns a handle for tuning the underlying image sensor.
	Sensor() (Sensor, error)

	// Deinit powers down the peripheral. Frames must not be requested
	// after Deinit.
	Deinit() error
}

// Error is a driver-level failure carrying the peripheral's error code.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("driver error 0x%x", e.Code)
	}
	return fmt.Sprintf("driver error 0x%x: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Driver error codes.
const (
	CodeInitFailed = 0x101
	CodeNoFreeBuf  = 0x102
	CodeCapture    = 0x103
	CodeNotReady   = 0x104
)

// Light controls an illumination source, typically a GPIO-driven LED.
// Set is fire-and-forget; it does not serialize with capture.
type Light interface {
	Set(on bool) error
	Close() error
}
