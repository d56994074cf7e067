/*
DESCRIPTION
  still_test.go provides testing for the Still driver's argument building
  and quality scale mapping.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package still

import (
	"testing"

	"github.com/ausocean/snapcam/cam/config"
	"github.com/google/go-cmp/cmp"
)

func TestJPEGQualityPercent(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{2, 100},  // Best peripheral quality maps to best percentage.
		{63, 0},   // Worst to worst.
		{-5, 100}, // Clamped low.
		{100, 0},  // Clamped high.
	}
	for _, tt := range tests {
		if got := jpegQualityPercent(tt.in); got != tt.want {
			t.Errorf("jpegQualityPercent(%d): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestArgs(t *testing.T) {
	s := &Still{
		cfg: config.Config{
			FrameSize:   config.FrameVGA,
			JPEGQuality: 2,
		},
		sensor: newSensor(),
	}

	want := []string{
		"--output", "-",
		"--nopreview",
		"--encoding", "jpg",
		"--width", "640",
		"--height", "480",
		"--quality", "100",
		"--timeout", "5",
		"--immediate",
	}
	got := s.args()
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected args\ngot: %v\nwant: %v", got, want)
	}
}

func TestSensorArgs(t *testing.T) {
	s := newSensor()

	// Fresh sensor with everything automatic renders no overrides.
	if got := s.args(); len(got) != 0 {
		t.Errorf("expected no args for automatic sensor, got %v", got)
	}

	s.SetAutoGain(false)
	s.SetManualGain(6)
	s.SetAutoExposure(false)
	s.SetManualExposure(400)
	s.SetExposureLevel(-1)
	s.SetAutoWhiteBalance(false)
	s.SetMirror(true, true)

	want := []string{
		"--gain", "3.0",
		"--shutter", "400",
		"--ev", "-1",
		"--awb", "custom",
		"--hflip",
		"--vflip",
	}
	got := s.args()
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected sensor args\ngot: %v\nwant: %v", got, want)
	}
}
