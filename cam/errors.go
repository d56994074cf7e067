/*
DESCRIPTION
  errors.go provides the camera manager's error taxonomy: sentinel errors
  for caller-input, lifecycle, timeout, memory, capture and encoding
  failures, and PeripheralError for surfacing driver-level codes.

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
	"fmt"
)

// Sentinel errors. Callers are expected to branch with errors.Is.
var (
	// ErrInvalidArg indicates bad caller input; never retried.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrNotInitialized indicates an operation attempted before Init or
	// after Deinit; never retried, the caller must reorder calls.
	ErrNotInitialized = errors.New("camera not initialized")

	// ErrTimeout indicates the capture gate could not be acquired within
	// its bound; the caller may retry the whole operation later.
	ErrTimeout = errors.New("timed out waiting for capture gate")

	// ErrOutOfMemory indicates both memory tiers are exhausted; the
	// caller should back off rather than busy-retry.
	ErrOutOfMemory = errors.New("both memory tiers exhausted")

	// ErrCaptureFailed indicates all in-component capture attempts were
	// exhausted; recoverable, the caller should wait the configured
	// interval and try again.
	ErrCaptureFailed = errors.New("all capture attempts failed")

	// ErrEncoding indicates the transport encoding transform rejected the
	// frame; the frame is discarded.
	ErrEncoding = errors.New("transport encoding failed")
)

// PeripheralError wraps a driver-level failure with its underlying code.
// Potentially fatal if it recurs.
type PeripheralError struct {
	Code int
	Err  error
}

func (e *PeripheralError) Error() string {
	return fmt.Sprintf("peripheral error 0x%x: %v", e.Code, e.Err)
}

func (e *PeripheralError) Unwrap() error { return e.Err }
