/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name,
  type in a string format, a function for updating the variable in the
  Config struct from a string, and finally, a validation function to check
  the validity of the corresponding field value in the Config.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

// Config map keys.
const (
	KeyPixelFormat        = "PixelFormat"
	KeyFrameSize          = "FrameSize"
	KeyJPEGQuality        = "JPEGQuality"
	KeyFrameBuffers       = "FrameBuffers"
	KeyMinCaptureInterval = "MinCaptureInterval"
	KeyGateTimeout        = "GateTimeout"
	KeyMaxCaptureRetries  = "MaxCaptureRetries"
	KeyRetryBaseDelay     = "RetryBaseDelay"
	KeyFlashWarmup        = "FlashWarmup"
	KeyFlashStabilize     = "FlashStabilize"
	KeyFirstAttemptSettle = "FirstAttemptSettle"
	KeyAttemptSettle      = "AttemptSettle"
	KeyFlushCap           = "FlushCap"
	KeyFlushDelay         = "FlushDelay"
	KeyFlushTimeout       = "FlushTimeout"
	KeyReflushCap         = "ReflushCap"
	KeyReflushDelay       = "ReflushDelay"
	KeyLargeTierThreshold = "LargeTierThreshold"
	KeyDefaultTierBudget  = "DefaultTierBudget"
	KeyLargeTierBudget    = "LargeTierBudget"
	KeyExpansionFactor    = "ExpansionFactor"
	KeyEncodeMargin       = "EncodeMargin"
	KeyIlluminationPin    = "IlluminationPin"
	KeyLogging            = "logging"
	KeySuppress           = "Suppress"
)

// Config map parameter types.
const (
	typeString = "string"
	typeInt    = "int"
	typeUint   = "uint"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Variables describes the variables that can be used for camera manager
// control. These structs provide the name and type of variable, a function
// for updating this variable in a Config, and a function for validating
// the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name: KeyPixelFormat,
		Type: "enum:jpeg,yuv422,rgb565,grayscale",
		Update: func(c *Config, v string) {
			c.PixelFormat = PixelFormat(parseEnum(
				KeyPixelFormat,
				v,
				map[string]uint8{
					"jpeg":      uint8(JPEG),
					"yuv422":    uint8(YUV422),
					"rgb565":    uint8(RGB565),
					"grayscale": uint8(Grayscale),
				},
				c,
			))
		},
		Validate: func(c *Config) {
			if c.PixelFormat < JPEG || c.PixelFormat > Grayscale {
				c.LogInvalidField(KeyPixelFormat, defaultPixelFormat)
				c.PixelFormat = defaultPixelFormat
			}
		},
	},
	{
		Name: KeyFrameSize,
		Type: "enum:96x96,qqvga,qcif,hqvga,240x240,qvga,cif,hvga,vga,svga,xga,hd,sxga,uxga",
		Update: func(c *Config, v string) {
			c.FrameSize = FrameSize(parseEnum(
				KeyFrameSize,
				v,
				map[string]uint8{
					"96x96":   uint8(Frame96x96),
					"qqvga":   uint8(FrameQQVGA),
					"qcif":    uint8(FrameQCIF),
					"hqvga":   uint8(FrameHQVGA),
					"240x240": uint8(Frame240x240),
					"qvga":    uint8(FrameQVGA),
					"cif":     uint8(FrameCIF),
					"hvga":    uint8(FrameHVGA),
					"vga":     uint8(FrameVGA),
					"svga":    uint8(FrameSVGA),
					"xga":     uint8(FrameXGA),
					"hd":      uint8(FrameHD),
					"sxga":    uint8(FrameSXGA),
					"uxga":    uint8(FrameUXGA),
				},
				c,
			))
		},
		Validate: func(c *Config) {
			if c.FrameSize < Frame96x96 || c.FrameSize > FrameUXGA {
				c.LogInvalidField(KeyFrameSize, defaultFrameSize)
				c.FrameSize = defaultFrameSize
			}
		},
	},
	{
		Name:   KeyJPEGQuality,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.JPEGQuality = parseInt(KeyJPEGQuality, v, c) },
		Validate: func(c *Config) {
			if c.JPEGQuality < minJPEGQuality || c.JPEGQuality > maxJPEGQuality {
				c.LogInvalidField(KeyJPEGQuality, defaultJPEGQuality)
				c.JPEGQuality = defaultJPEGQuality
			}
		},
	},
	{
		Name:   KeyFrameBuffers,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.FrameBuffers = parseInt(KeyFrameBuffers, v, c) },
		Validate: func(c *Config) {
			if c.FrameBuffers <= 0 {
				c.LogInvalidField(KeyFrameBuffers, defaultFrameBuffers)
				c.FrameBuffers = defaultFrameBuffers
			}
		},
	},
	{
		Name:   KeyMinCaptureInterval,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MinCaptureInterval = parseMillis(KeyMinCaptureInterval, v, c) },
		Validate: func(c *Config) {
			if c.MinCaptureInterval <= 0 {
				c.LogInvalidField(KeyMinCaptureInterval, defaultMinCaptureInterval)
				c.MinCaptureInterval = defaultMinCaptureInterval
			}
		},
	},
	{
		Name:   KeyGateTimeout,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.GateTimeout = parseMillis(KeyGateTimeout, v, c) },
		Validate: func(c *Config) {
			if c.GateTimeout <= 0 {
				c.LogInvalidField(KeyGateTimeout, defaultGateTimeout)
				c.GateTimeout = defaultGateTimeout
			}
		},
	},
	{
		Name:   KeyMaxCaptureRetries,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.MaxCaptureRetries = parseInt(KeyMaxCaptureRetries, v, c) },
		Validate: func(c *Config) {
			if c.MaxCaptureRetries <= 0 {
				c.LogInvalidField(KeyMaxCaptureRetries, defaultMaxCaptureRetries)
				c.MaxCaptureRetries = defaultMaxCaptureRetries
			}
		},
	},
	{
		Name:   KeyRetryBaseDelay,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RetryBaseDelay = parseMillis(KeyRetryBaseDelay, v, c) },
		Validate: func(c *Config) {
			if c.RetryBaseDelay <= 0 {
				c.LogInvalidField(KeyRetryBaseDelay, defaultRetryBaseDelay)
				c.RetryBaseDelay = defaultRetryBaseDelay
			}
		},
	},
	{
		Name:   KeyFlashWarmup,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FlashWarmup = parseMillis(KeyFlashWarmup, v, c) },
		Validate: func(c *Config) {
			if c.FlashWarmup <= 0 {
				c.LogInvalidField(KeyFlashWarmup, defaultFlashWarmup)
				c.FlashWarmup = defaultFlashWarmup
			}
		},
	},
	{
		Name:   KeyFlashStabilize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FlashStabilize = parseMillis(KeyFlashStabilize, v, c) },
		Validate: func(c *Config) {
			if c.FlashStabilize <= 0 {
				c.LogInvalidField(KeyFlashStabilize, defaultFlashStabilize)
				c.FlashStabilize = defaultFlashStabilize
			}
		},
	},
	{
		Name:   KeyFirstAttemptSettle,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FirstAttemptSettle = parseMillis(KeyFirstAttemptSettle, v, c) },
		Validate: func(c *Config) {
			if c.FirstAttemptSettle <= 0 {
				c.LogInvalidField(KeyFirstAttemptSettle, defaultFirstAttemptSettle)
				c.FirstAttemptSettle = defaultFirstAttemptSettle
			}
		},
	},
	{
		Name:   KeyAttemptSettle,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.AttemptSettle = parseMillis(KeyAttemptSettle, v, c) },
		Validate: func(c *Config) {
			if c.AttemptSettle <= 0 {
				c.LogInvalidField(KeyAttemptSettle, defaultAttemptSettle)
				c.AttemptSettle = defaultAttemptSettle
			}
		},
	},
	{
		Name:   KeyFlushCap,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.FlushCap = parseInt(KeyFlushCap, v, c) },
		Validate: func(c *Config) {
			if c.FlushCap <= 0 {
				c.LogInvalidField(KeyFlushCap, defaultFlushCap)
				c.FlushCap = defaultFlushCap
			}
		},
	},
	{
		Name:   KeyFlushDelay,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FlushDelay = parseMillis(KeyFlushDelay, v, c) },
		Validate: func(c *Config) {
			if c.FlushDelay <= 0 {
				c.LogInvalidField(KeyFlushDelay, defaultFlushDelay)
				c.FlushDelay = defaultFlushDelay
			}
		},
	},
	{
		Name:   KeyFlushTimeout,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FlushTimeout = parseMillis(KeyFlushTimeout, v, c) },
		Validate: func(c *Config) {
			if c.FlushTimeout <= 0 {
				c.LogInvalidField(KeyFlushTimeout, defaultFlushTimeout)
				c.FlushTimeout = defaultFlushTimeout
			}
		},
	},
	{
		Name:   KeyReflushCap,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.ReflushCap = parseInt(KeyReflushCap, v, c) },
		Validate: func(c *Config) {
			if c.ReflushCap <= 0 {
				c.LogInvalidField(KeyReflushCap, defaultReflushCap)
				c.ReflushCap = defaultReflushCap
			}
		},
	},
	{
		Name:   KeyReflushDelay,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.ReflushDelay = parseMillis(KeyReflushDelay, v, c) },
		Validate: func(c *Config) {
			if c.ReflushDelay <= 0 {
				c.LogInvalidField(KeyReflushDelay, defaultReflushDelay)
				c.ReflushDelay = defaultReflushDelay
			}
		},
	},
	{
		Name:   KeyLargeTierThreshold,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.LargeTierThreshold = parseInt(KeyLargeTierThreshold, v, c) },
		Validate: func(c *Config) {
			if c.LargeTierThreshold <= 0 {
				c.LogInvalidField(KeyLargeTierThreshold, defaultLargeTierThreshold)
				c.LargeTierThreshold = defaultLargeTierThreshold
			}
		},
	},
	{
		Name:   KeyDefaultTierBudget,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.DefaultTierBudget = parseInt(KeyDefaultTierBudget, v, c) },
		Validate: func(c *Config) {
			if c.DefaultTierBudget <= 0 {
				c.LogInvalidField(KeyDefaultTierBudget, defaultDefaultTierBudget)
				c.DefaultTierBudget = defaultDefaultTierBudget
			}
		},
	},
	{
		Name:   KeyLargeTierBudget,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.LargeTierBudget = parseInt(KeyLargeTierBudget, v, c) },
		Validate: func(c *Config) {
			// Negative values deliberately disable the large tier; only the
			// unset zero value is defaulted.
			if c.LargeTierBudget == 0 {
				c.LogInvalidField(KeyLargeTierBudget, defaultLargeTierBudget)
				c.LargeTierBudget = defaultLargeTierBudget
			}
		},
	},
	{
		Name: KeyExpansionFactor,
		Type: typeFloat,
		Update: func(c *Config, v string) {
			_v, err := strconv.ParseFloat(v, 64)
			if err != nil {
				c.Logger.Warning("invalid ExpansionFactor param", "value", v)
			}
			c.ExpansionFactor = _v
		},
		Validate: func(c *Config) {
			// Anything below the true base64 bound of 4/3 risks truncation.
			if c.ExpansionFactor < 4.0/3.0 {
				c.LogInvalidField(KeyExpansionFactor, defaultExpansionFactor)
				c.ExpansionFactor = defaultExpansionFactor
			}
		},
	},
	{
		Name:   KeyEncodeMargin,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.EncodeMargin = parseInt(KeyEncodeMargin, v, c) },
		Validate: func(c *Config) {
			if c.EncodeMargin <= 0 {
				c.LogInvalidField(KeyEncodeMargin, defaultEncodeMargin)
				c.EncodeMargin = defaultEncodeMargin
			}
		},
	},
	{
		Name:   KeyIlluminationPin,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.IlluminationPin = parseInt(KeyIlluminationPin, v, c) },
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid logging param", "value", v)
			}
		},
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
}

func parseInt(n, v string, c *Config) int {
	_v, err := strconv.Atoi(v)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected integer for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}

// parseMillis parses an unsigned integer millisecond count into a duration.
func parseMillis(n, v string, c *Config) time.Duration {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected millisecond count for param %s", n), "value", v)
	}
	return time.Duration(_v) * time.Millisecond
}
