/*
DESCRIPTION
  config.go contains the configuration settings for the snapcam camera
  manager: the immutable-after-init camera parameters, and the named
  orchestration tuning values with their documented defaults.

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

// Package config contains the configuration settings for the snapcam
// camera manager.
package config

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// PixelFormat defines the pixel format produced by the imaging peripheral.
type PixelFormat int

// Valid pixel formats. JPEG is the only format the capture pipeline
// currently uploads; the others are provided for raw capture consumers.
const (
	JPEG PixelFormat = iota
	YUV422
	RGB565
	Grayscale
)

// FrameSize defines the capture resolution. Values are ordered by pixel
// count, so frame sizes may be compared with < and >.
type FrameSize int

// Valid frame sizes, smallest to largest.
const (
	Frame96x96 FrameSize = iota
	FrameQQVGA
	FrameQCIF
	FrameHQVGA
	Frame240x240
	FrameQVGA
	FrameCIF
	FrameHVGA
	FrameVGA
	FrameSVGA
	FrameXGA
	FrameHD
	FrameSXGA
	FrameUXGA
)

// frameDims maps frame sizes to pixel dimensions.
var frameDims = map[FrameSize][2]int{
	Frame96x96:   {96, 96},
	FrameQQVGA:   {160, 120},
	FrameQCIF:    {176, 144},
	FrameHQVGA:   {240, 176},
	Frame240x240: {240, 240},
	FrameQVGA:    {320, 240},
	FrameCIF:     {400, 296},
	FrameHVGA:    {480, 320},
	FrameVGA:     {640, 480},
	FrameSVGA:    {800, 600},
	FrameXGA:     {1024, 768},
	FrameHD:      {1280, 720},
	FrameSXGA:    {1280, 1024},
	FrameUXGA:    {1600, 1200},
}

// Dims returns the pixel width and height of the frame size.
func (fs FrameSize) Dims() (w, h int) {
	d := frameDims[fs]
	return d[0], d[1]
}

// Camera configuration defaults.
const (
	defaultPixelFormat  = JPEG
	defaultFrameSize    = FrameQVGA
	defaultJPEGQuality  = 12 // Lower is higher quality.
	defaultFrameBuffers = 1
)

// Capture orchestration defaults. These are an explicit snapshot of
// known-good values; back-to-back captures, unlit sensors and unsettled
// peripherals all produce corrupt frames on this class of hardware.
const (
	defaultMinCaptureInterval = 500 * time.Millisecond
	defaultGateTimeout        = 10 * time.Second
	defaultMaxCaptureRetries  = 3
	defaultRetryBaseDelay     = 100 * time.Millisecond
	defaultFlashWarmup        = 200 * time.Millisecond
	defaultFlashStabilize     = 100 * time.Millisecond
	defaultFirstAttemptSettle = 300 * time.Millisecond
	defaultAttemptSettle      = 100 * time.Millisecond
	defaultFlushCap           = 5
	defaultFlushDelay         = 5 * time.Millisecond
	defaultFlushTimeout       = 2 * time.Second
	defaultReflushCap         = 3
	defaultReflushDelay       = 10 * time.Millisecond
)

// Memory tier and encoding defaults. The expansion factor is deliberately
// looser than the exact 4*ceil(n/3) base64 bound to tolerate encoder
// variance, and the safety margin covers termination and rounding.
const (
	defaultLargeTierThreshold = 8192
	defaultDefaultTierBudget  = 320 << 10 // 320KiB, the small fast pool.
	defaultLargeTierBudget    = 4 << 20   // 4MiB, the large slow pool.
	defaultExpansionFactor    = 1.4
	defaultEncodeMargin       = 64
)

// Quality bounds for the peripheral JPEG encoder.
const (
	minJPEGQuality = 2
	maxJPEGQuality = 63
)

// Config provides parameters relevant to a snapcam camera manager
// instance. A new config must be passed at initialisation; it is not
// mutated afterwards. Default values for these fields are defined as
// consts above.
type Config struct {
	// PixelFormat is the format the peripheral delivers frames in. The
	// capture-and-upload path requires JPEG.
	PixelFormat PixelFormat

	// FrameSize is the capture resolution, ordered by pixel count.
	FrameSize FrameSize

	// JPEGQuality controls peripheral JPEG compression, 2-63 inclusive,
	// where lower values mean higher quality.
	JPEGQuality int

	// FrameBuffers is the number of frame buffers in the peripheral's
	// fixed ring. Unreleased frames starve this ring permanently.
	FrameBuffers int

	// MinCaptureInterval is the hard floor between consecutive captures.
	MinCaptureInterval time.Duration

	// GateTimeout bounds the wait to acquire the capture gate before a
	// capture call fails with a timeout.
	GateTimeout time.Duration

	// MaxCaptureRetries is the bounded number of capture attempts per
	// capture call.
	MaxCaptureRetries int

	// RetryBaseDelay is the base for exponential backoff between failed
	// attempts: RetryBaseDelay * 2^(n-1) after attempt n.
	RetryBaseDelay time.Duration

	// FlashWarmup is the wait after illumination is enabled before the
	// sensor is considered lit.
	FlashWarmup time.Duration

	// FlashStabilize is the wait after the pre-capture re-flush, directly
	// before the frame is requested.
	FlashStabilize time.Duration

	// FirstAttemptSettle and AttemptSettle are the pre-illumination
	// settling delays; the first attempt gets the longer settle as the
	// peripheral state is least predictable then.
	FirstAttemptSettle time.Duration
	AttemptSettle      time.Duration

	// FlushCap, FlushDelay and FlushTimeout bound the stale-buffer drain
	// performed before each attempt; ReflushCap and ReflushDelay bound the
	// brief re-flush performed after illumination warm-up.
	FlushCap     int
	FlushDelay   time.Duration
	FlushTimeout time.Duration
	ReflushCap   int
	ReflushDelay time.Duration

	// LargeTierThreshold is the allocation size above which the large
	// memory tier is attempted first.
	LargeTierThreshold int

	// DefaultTierBudget and LargeTierBudget are the byte budgets of the
	// two memory tiers. A negative LargeTierBudget disables the large tier.
	DefaultTierBudget int
	LargeTierBudget   int

	// ExpansionFactor and EncodeMargin control conservative sizing of
	// transport-encoding buffers: cap = len*ExpansionFactor + EncodeMargin.
	ExpansionFactor float64
	EncodeMargin    int

	// IlluminationPin is the GPIO line offset of the illumination source.
	IlluminationPin int

	// Logger holds an implementation of the logging.Logger interface.
	// This must be set for the camera manager to work correctly.
	Logger logging.Logger

	// LogLevel is the logging verbosity level. Valid values are defined
	// by enums from the logging package.
	LogLevel int8

	// Suppress holds logger suppression state.
	Suppress bool
}

// Validate checks for any errors in the config fields and defaults
// settings if particular parameters have not been defined or are out of
// bounds.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their
// corresponding values, parses the string values into the correct types,
// and sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
