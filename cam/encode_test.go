/*
DESCRIPTION
  encode_test.go provides testing for the transport encoder: output
  sizing, round-tripping, memory exhaustion and bad input.

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
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/ausocean/snapcam/driver"
)

func TestEncodeFrameSizing(t *testing.T) {
	c, _, _ := newTestCamera(t, fastConfig())

	// Payload lengths straddling every base64 padding case.
	for _, n := range []int{1, 2, 3, 4, 57, 100, 4096, 10000} {
		data := bytes.Repeat([]byte{0xa5}, n)
		enc, err := c.EncodeFrame(&driver.Frame{Data: data})
		if err != nil {
			t.Fatalf("encode failed for %d bytes: %v", n, err)
		}

		want := base64.StdEncoding.EncodedLen(n)
		if enc.Len() != want {
			t.Errorf("unexpected encoded length for %d bytes: got %d, want %d", n, enc.Len(), want)
		}
		if size := len(enc.blk.Bytes()); size < want {
			t.Errorf("buffer below encoded length for %d bytes: have %d, need %d", n, size, want)
		}

		got, err := base64.StdEncoding.DecodeString(enc.String())
		if err != nil {
			t.Fatalf("encoded output does not decode for %d bytes: %v", n, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("round trip mismatch for %d bytes", n)
		}
		enc.Free()
	}
}

func TestEncodeFrameTierRouting(t *testing.T) {
	cfg := fastConfig()
	cfg.LargeTierThreshold = 1024
	c, _, _ := newTestCamera(t, cfg)

	small, err := c.EncodeFrame(&driver.Frame{Data: make([]byte, 100)})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if small.Large() {
		t.Error("small payload routed to large tier")
	}
	small.Free()

	big, err := c.EncodeFrame(&driver.Frame{Data: make([]byte, 4096)})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !big.Large() {
		t.Error("large payload not routed to large tier")
	}
	big.Free()
}

func TestEncodeFrameOutOfMemory(t *testing.T) {
	cfg := fastConfig()
	cfg.DefaultTierBudget = 64
	cfg.LargeTierBudget = -1
	c, _, _ := newTestCamera(t, cfg)

	_, err := c.EncodeFrame(&driver.Frame{Data: make([]byte, 4096)})
	if !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("expected ErrOutOfMemory, got %v", err)
	}

	// Exhaustion must not leak budget.
	free := c.alloc.FreeDefault()
	if free != 64 {
		t.Errorf("failed allocation leaked budget: free %d, want 64", free)
	}
}

func TestEncodeFrameBadInput(t *testing.T) {
	c, _, _ := newTestCamera(t, fastConfig())

	_, err := c.EncodeFrame(nil)
	if !errors.Is(err, ErrInvalidArg) {
		t.Errorf("expected ErrInvalidArg for nil frame, got %v", err)
	}
	_, err = c.EncodeFrame(&driver.Frame{Data: nil})
	if !errors.Is(err, ErrInvalidArg) {
		t.Errorf("expected ErrInvalidArg for nil payload, got %v", err)
	}
}
