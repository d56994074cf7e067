/*
DESCRIPTION
  config_test.go provides testing for the Config struct methods (Validate
  and Update).

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

package config

import (
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestValidate(t *testing.T) {
	dl := &dumbLogger{}

	want := Config{
		Logger:             dl,
		PixelFormat:        defaultPixelFormat,
		FrameSize:          defaultFrameSize,
		JPEGQuality:        defaultJPEGQuality,
		FrameBuffers:       defaultFrameBuffers,
		MinCaptureInterval: defaultMinCaptureInterval,
		GateTimeout:        defaultGateTimeout,
		MaxCaptureRetries:  defaultMaxCaptureRetries,
		RetryBaseDelay:     defaultRetryBaseDelay,
		FlashWarmup:        defaultFlashWarmup,
		FlashStabilize:     defaultFlashStabilize,
		FirstAttemptSettle: defaultFirstAttemptSettle,
		AttemptSettle:      defaultAttemptSettle,
		FlushCap:           defaultFlushCap,
		FlushDelay:         defaultFlushDelay,
		FlushTimeout:       defaultFlushTimeout,
		ReflushCap:         defaultReflushCap,
		ReflushDelay:       defaultReflushDelay,
		LargeTierThreshold: defaultLargeTierThreshold,
		DefaultTierBudget:  defaultDefaultTierBudget,
		LargeTierBudget:    defaultLargeTierBudget,
		ExpansionFactor:    defaultExpansionFactor,
		EncodeMargin:       defaultEncodeMargin,
	}

	got := Config{Logger: dl}
	err := (&got).Validate()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if !cmp.Equal(got, want) {
		t.Errorf("configs not equal\nwant: %v\ngot: %v", want, got)
	}
}

func TestValidateBounds(t *testing.T) {
	dl := &dumbLogger{}

	got := Config{
		Logger:          dl,
		JPEGQuality:     100, // Above the encoder maximum.
		ExpansionFactor: 1.2, // Below the true base64 bound.
		LargeTierBudget: -1,  // Deliberately disabled.
	}
	err := (&got).Validate()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if got.JPEGQuality != defaultJPEGQuality {
		t.Errorf("out of range JPEGQuality not defaulted: got %d", got.JPEGQuality)
	}
	if got.ExpansionFactor != defaultExpansionFactor {
		t.Errorf("unsafe ExpansionFactor not defaulted: got %v", got.ExpansionFactor)
	}
	if got.LargeTierBudget != -1 {
		t.Errorf("disabled LargeTierBudget was overridden: got %d", got.LargeTierBudget)
	}
}

func TestUpdate(t *testing.T) {
	updateMap := map[string]string{
		"PixelFormat":        "jpeg",
		"FrameSize":          "vga",
		"JPEGQuality":        "10",
		"FrameBuffers":       "2",
		"MinCaptureInterval": "500",
		"GateTimeout":        "10000",
		"MaxCaptureRetries":  "3",
		"RetryBaseDelay":     "100",
		"FlashWarmup":        "200",
		"FlashStabilize":     "100",
		"FirstAttemptSettle": "300",
		"AttemptSettle":      "100",
		"FlushCap":           "5",
		"FlushDelay":         "5",
		"FlushTimeout":       "2000",
		"ReflushCap":         "3",
		"ReflushDelay":       "10",
		"LargeTierThreshold": "8192",
		"DefaultTierBudget":  "327680",
		"LargeTierBudget":    "4194304",
		"ExpansionFactor":    "1.4",
		"EncodeMargin":       "64",
		"IlluminationPin":    "4",
		"logging":            "Error",
		"Suppress":           "true",
	}

	dl := &dumbLogger{}

	want := Config{
		Logger:             dl,
		PixelFormat:        JPEG,
		FrameSize:          FrameVGA,
		JPEGQuality:        10,
		FrameBuffers:       2,
		MinCaptureInterval: 500 * time.Millisecond,
		GateTimeout:        10 * time.Second,
		MaxCaptureRetries:  3,
		RetryBaseDelay:     100 * time.Millisecond,
		FlashWarmup:        200 * time.Millisecond,
		FlashStabilize:     100 * time.Millisecond,
		FirstAttemptSettle: 300 * time.Millisecond,
		AttemptSettle:      100 * time.Millisecond,
		FlushCap:           5,
		FlushDelay:         5 * time.Millisecond,
		FlushTimeout:       2 * time.Second,
		ReflushCap:         3,
		ReflushDelay:       10 * time.Millisecond,
		LargeTierThreshold: 8192,
		DefaultTierBudget:  320 << 10,
		LargeTierBudget:    4 << 20,
		ExpansionFactor:    1.4,
		EncodeMargin:       64,
		IlluminationPin:    4,
		LogLevel:           logging.Error,
		Suppress:           true,
	}

	got := Config{Logger: dl}
	got.Update(updateMap)
	if !cmp.Equal(want, got) {
		t.Errorf("configs not equal\nwant: %v\ngot: %v", want, got)
	}
}

func TestFrameSizeDims(t *testing.T) {
	w, h := FrameUXGA.Dims()
	if w != 1600 || h != 1200 {
		t.Errorf("unexpected dims for UXGA: got %dx%d", w, h)
	}
	if !(FrameQVGA < FrameVGA && FrameVGA < FrameUXGA) {
		t.Error("frame sizes not ordered by pixel count")
	}
}
