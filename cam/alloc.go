/*
DESCRIPTION
  alloc.go provides the memory-tiered allocator used for transport
  encoding buffers. Two fixed byte budgets model the device's two
  physically distinct memory pools: a large slow tier and a small fast
  default tier. Allocation policy is stateless: large requests go to the
  large tier first with fallback to the default tier; small requests skip
  the large tier entirely.

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
	"sync"

	"github.com/ausocean/utils/logging"
)

// tier is one memory pool with a fixed byte budget. The tier is safe for
// concurrent use.
type tier struct {
	mu     sync.Mutex
	budget int
	used   int
}

// take reserves n bytes against the tier's budget, reporting success.
func (t *tier) take(n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.used+n > t.budget {
		return false
	}
	t.used += n
	return true
}

// give returns n bytes to the tier's budget.
func (t *tier) give(n int) {
	t.mu.Lock()
	t.used -= n
	if t.used < 0 {
		t.used = 0
	}
	t.mu.Unlock()
}

// free returns the tier's remaining headroom in bytes.
func (t *tier) free() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.budget - t.used
}

// Allocator chooses between the two memory tiers for encoding buffers.
// It holds no state across calls beyond tier accounting and is safe to
// call from any context that already holds the capture gate.
type Allocator struct {
	def       *tier
	large     *tier // nil when the large tier is unavailable.
	threshold int
	log       logging.Logger
}

// NewAllocator returns an allocator over the given tier budgets. A
// non-positive largeBudget leaves the large tier uninitialised, as on
// hardware without the large pool fitted.
func NewAllocator(defBudget, largeBudget, threshold int, l logging.Logger) *Allocator {
	a := &Allocator{
		def:       &tier{budget: defBudget},
		threshold: threshold,
		log:       l,
	}
	if largeBudget > 0 {
		a.large = &tier{budget: largeBudget}
	}
	return a
}

// LargeAvailable reports whether the large tier is initialised.
func (a *Allocator) LargeAvailable() bool { return a.large != nil }

// FreeDefault returns the default tier's headroom in bytes.
func (a *Allocator) FreeDefault() int { return a.def.free() }

// FreeLarge returns the large tier's headroom in bytes, 0 when the tier
// is unavailable.
func (a *Allocator) FreeLarge() int {
	if a.large == nil {
		return 0
	}
	return a.large.free()
}

// Block is a buffer held against one tier's budget. Free must be called
// exactly once when the block is no longer needed; Free is idempotent.
type Block struct {
	data  []byte
	large bool
	alloc *Allocator
	freed bool
	mu    sync.Mutex
}

// Bytes returns the block's full backing buffer.
func (b *Block) Bytes() []byte { return b.data }

// Large reports whether the block was allocated from the large tier.
func (b *Block) Large() bool { return b.large }

// Free returns the block's bytes to its tier.
func (b *Block) Free() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return
	}
	b.freed = true
	t := b.alloc.def
	if b.large {
		t = b.alloc.large
	}
	t.give(len(b.data))
}

// Alloc returns a block of the requested size, and reports which tier
// served it via Block.Large. It returns nil only on true exhaustion of
// both tiers.
func (a *Allocator) Alloc(size int) *Block {
	if size <= 0 {
		return nil
	}

	if a.large != nil && size > a.threshold {
		if a.large.take(size) {
			a.log.Debug("allocated from large tier", "bytes", size)
			return &Block{data: make([]byte, size), large: true, alloc: a}
		}
		a.log.Warning("large tier allocation failed, trying default tier", "bytes", size, "freeLarge", a.large.free())
	}

	if a.def.take(size) {
		a.log.Debug("allocated from default tier", "bytes", size)
		return &Block{data: make([]byte, size), alloc: a}
	}

	a.log.Warning("default tier allocation failed", "bytes", size, "freeDefault", a.def.free())
	return nil
}
