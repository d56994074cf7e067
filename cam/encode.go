/*
DESCRIPTION
  encode.go provides the transport encoder: it transforms a raw
  peripheral-encoded frame into base64 text suitable for embedding in a
  document body, sizing its output buffer conservatively and allocating
  it via the memory-tiered allocator.

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
	"encoding/base64"
	"fmt"

	"github.com/ausocean/snapcam/driver"
)

// Encoded holds a transport-encoded frame. Ownership transfers to the
// caller on success; the caller must call Free when done with it.
type Encoded struct {
	blk *Block
	n   int
}

// Bytes returns the encoded payload, truncated to the actual encoded
// length.
func (e *Encoded) Bytes() []byte { return e.blk.Bytes()[:e.n] }

// String returns the encoded payload as a string.
func (e *Encoded) String() string { return string(e.Bytes()) }

// Len returns the encoded length, which may be less than the allocated
// capacity.
func (e *Encoded) Len() int { return e.n }

// Large reports whether the payload lives in the large memory tier.
func (e *Encoded) Large() bool { return e.blk.Large() }

// Free returns the payload's bytes to its memory tier. Free is
// idempotent.
func (e *Encoded) Free() { e.blk.Free() }

// EncodeFrame encodes the frame's payload to base64. The output buffer is
// sized at len*ExpansionFactor + EncodeMargin + 1, deliberately looser
// than the exact 4*ceil(n/3) so encoder variance can never truncate. On
// any failure the buffer is freed before returning; on success ownership
// of the Encoded transfers to the caller. The raw frame remains owned by
// the caller throughout.
func (c *Camera) EncodeFrame(f *driver.Frame) (*Encoded, error) {
	if f == nil || f.Data == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidArg)
	}

	need := int(float64(len(f.Data))*c.cfg.ExpansionFactor) + c.cfg.EncodeMargin + 1
	exact := base64.StdEncoding.EncodedLen(len(f.Data))

	blk := c.alloc.Alloc(need)
	if blk == nil {
		c.log.Error("encode buffer allocation failed",
			"bytesNeeded", need,
			"freeDefault", c.alloc.FreeDefault(),
			"freeLarge", c.alloc.FreeLarge(),
		)
		return nil, fmt.Errorf("%w: need %d bytes", ErrOutOfMemory, need)
	}

	if exact > len(blk.Bytes()) {
		blk.Free()
		return nil, fmt.Errorf("%w: buffer %d short of encoded length %d", ErrEncoding, len(blk.Bytes()), exact)
	}

	base64.StdEncoding.Encode(blk.Bytes(), f.Data)

	c.log.Debug("transport encoding complete",
		"in", len(f.Data),
		"out", exact,
		"largeTier", blk.Large(),
	)
	return &Encoded{blk: blk, n: exact}, nil
}
