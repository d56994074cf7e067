/*
DESCRIPTION
  capture.go provides the Camera capture orchestration: gated, rate-limited
  capture with stale-buffer flushing, illumination sequencing, bounded
  retries with exponential backoff, and the combined capture-and-encode
  convenience.

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

package cam

import (
	"fmt"
	"time"

	"github.com/ausocean/snapcam/driver"
)

// deinitFlushCap bounds the buffer drain performed during deinit, which
// uses the same cap as a pre-capture flush.
const deinitFlushCap = 5

// Capture acquires the capture gate and takes a fresh, lit frame from the
// peripheral, retrying with exponential backoff up to MaxCaptureRetries.
// The returned frame must be handed back with Release once consumed;
// unreleased frames permanently starve the peripheral's fixed buffer ring.
//
// Capture enforces the minimum interval between consecutive captures while
// holding the gate, so the floor holds across callers. The illumination
// source is off by the time Capture returns, success or failure.
func (c *Camera) Capture() (*driver.Frame, error) {
	if !c.IsInitialized() {
		return nil, ErrNotInitialized
	}

	err := c.acquireGate()
	if err != nil {
		c.log.Warning(pkg+"could not acquire gate for capture", "error", err.Error())
		return nil, err
	}
	defer c.releaseGate()

	c.enforceRateFloor()

	f, err := c.captureLocked()
	if err != nil {
		return nil, err
	}
	c.lastCapture = time.Now()
	return f, nil
}

// captureLocked runs the bounded attempt loop. The gate must be held.
func (c *Camera) captureLocked() (*driver.Frame, error) {
	defer c.setLight(false)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxCaptureRetries; attempt++ {
		cleared := c.flushStale(c.cfg.FlushCap, c.cfg.FlushDelay)
		if cleared > 0 {
			c.log.Debug(pkg+"cleared stale buffers", "cleared", cleared, "attempt", attempt)
		}

		// First-attempt peripheral state is the least predictable, so it
		// gets the longer settle.
		if attempt == 1 {
			time.Sleep(c.cfg.FirstAttemptSettle)
		} else {
			time.Sleep(c.cfg.AttemptSettle)
		}

		c.setLight(true)
		time.Sleep(c.cfg.FlashWarmup)

		// Frames buffered before the light came on are unlit; drain the
		// small re-flush allowance so the captured frame is a lit one.
		c.flushStale(c.cfg.ReflushCap, c.cfg.ReflushDelay)
		time.Sleep(c.cfg.FlashStabilize)

		f, err := c.drv.Frame()
		switch {
		case err != nil:
			lastErr = err
			c.log.Warning(pkg+"capture attempt failed", "attempt", attempt, "error", err.Error())
		case f == nil || f.Len() == 0:
			lastErr = fmt.Errorf("peripheral returned empty frame")
			if f != nil {
				c.drv.Release(f)
			}
			c.log.Warning(pkg+"capture attempt returned empty frame", "attempt", attempt)
		default:
			c.setLight(false)
			c.log.Debug(pkg+"captured frame", "attempt", attempt, "bytes", f.Len())
			return f, nil
		}

		c.setLight(false)
		if attempt < c.cfg.MaxCaptureRetries {
			backoff := c.cfg.RetryBaseDelay * (1 << (attempt - 1))
			time.Sleep(backoff)
		}
	}

	c.log.Error(pkg+"capture failed after all attempts", "attempts", c.cfg.MaxCaptureRetries, "error", fmt.Sprint(lastErr))
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrCaptureFailed, c.cfg.MaxCaptureRetries, lastErr)
}

// enforceRateFloor sleeps out the remainder of the minimum capture
// interval. The gate must be held; lastCapture is only read and written
// under the gate, so the floor holds across concurrent callers.
func (c *Camera) enforceRateFloor() {
	if c.lastCapture.IsZero() {
		return
	}
	since := time.Since(c.lastCapture)
	if since < c.cfg.MinCaptureInterval {
		wait := c.cfg.MinCaptureInterval - since
		c.log.Debug(pkg+"rate limiting capture", "wait", wait.String())
		time.Sleep(wait)
	}
}

// flushStale drains up to max buffered frames from the peripheral,
// releasing each immediately. The drain is doubly bounded: by the count
// cap and by the FlushTimeout wall clock, so a misbehaving peripheral
// cannot stall the capture path. Returns the number of frames cleared.
// The gate must be held.
func (c *Camera) flushStale(max int, delay time.Duration) int {
	deadline := time.Now().Add(c.cfg.FlushTimeout)
	var cleared int
	for cleared < max && time.Now().Before(deadline) {
		f := c.drv.Stale()
		if f == nil {
			break
		}
		c.drv.Release(f)
		cleared++
		time.Sleep(delay)
	}
	return cleared
}

// Release hands a captured frame's buffer back to the peripheral. Every
// frame returned by Capture must be released exactly once.
func (c *Camera) Release(f *driver.Frame) {
	if f == nil {
		return
	}
	c.drv.Release(f)
}

// CaptureBase64 captures a frame and returns it base64 encoded for
// transport, releasing the raw frame buffer before returning. The caller
// owns the returned encoding and must Free it once consumed.
func (c *Camera) CaptureBase64() (*Encoded, error) {
	f, err := c.Capture()
	if err != nil {
		return nil, err
	}
	defer c.Release(f)
	return c.EncodeFrame(f)
}
