/*
DESCRIPTION
  sensor.go provides the Still driver's Sensor implementation. The capture
  utility exposes no persistent register interface, so tuning calls are
  recorded and rendered as command line arguments on each capture.

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
	"fmt"
	"sync"

	"github.com/ausocean/snapcam/cam/config"
)

// Manual gain on the utility's scale roughly equivalent to one AGC step.
const gainPerStep = 0.5

type sensor struct {
	mu         sync.Mutex
	autoGain   bool
	autoExpose bool
	gain       int
	exposure   int
	evLevel    int
	awb        bool
	brightness int
	contrast   int
	saturation int
	hmirror    bool
	vflip      bool
}

func newSensor() *sensor {
	return &sensor{autoGain: true, autoExpose: true, awb: true}
}

func (s *sensor) ID() int { return 0 }

func (s *sensor) SetFrameSize(fs config.FrameSize) error {
	// Frame size is taken from the config at capture time.
	return nil
}

func (s *sensor) SetAutoGain(on bool) error {
	s.mu.Lock()
	s.autoGain = on
	s.mu.Unlock()
	return nil
}

func (s *sensor) SetAutoExposure(on bool) error {
	s.mu.Lock()
	s.autoExpose = on
	s.mu.Unlock()
	return nil
}

func (s *sensor) SetExposureLevel(level int) error {
	s.mu.Lock()
	s.evLevel = level
	s.mu.Unlock()
	return nil
}

func (s *sensor) SetManualGain(gain int) error {
	s.mu.Lock()
	s.gain = gain
	s.mu.Unlock()
	return nil
}

func (s *sensor) SetManualExposure(value int) error {
	s.mu.Lock()
	s.exposure = value
	s.mu.Unlock()
	return nil
}

func (s *sensor) SetAutoWhiteBalance(on bool) error {
	s.mu.Lock()
	s.awb = on
	s.mu.Unlock()
	return nil
}

// SetAWBGain and SetWhiteBalanceMode have no distinct utility mapping
// beyond the awb toggle.
func (s *sensor) SetAWBGain(on bool) error        { return nil }
func (s *sensor) SetWhiteBalanceMode(m int) error { return nil }

func (s *sensor) SetBrightness(v int) error {
	s.mu.Lock()
	s.brightness = v
	s.mu.Unlock()
	return nil
}

func (s *sensor) SetContrast(v int) error {
	s.mu.Lock()
	s.contrast = v
	s.mu.Unlock()
	return nil
}

func (s *sensor) SetSaturation(v int) error {
	s.mu.Lock()
	s.saturation = v
	s.mu.Unlock()
	return nil
}

// SetPixelCorrection, SetDownsizeCrop and SetSpecialEffect are fixed in
// the utility's ISP pipeline and cannot be driven from the command line.
func (s *sensor) SetPixelCorrection(black, white bool) error { return nil }
func (s *sensor) SetDownsizeCrop(on bool) error              { return nil }
func (s *sensor) SetSpecialEffect(e int) error               { return nil }

func (s *sensor) SetMirror(horizontal, vertical bool) error {
	s.mu.Lock()
	s.hmirror = horizontal
	s.vflip = vertical
	s.mu.Unlock()
	return nil
}

// args renders the current tuning as capture utility arguments.
func (s *sensor) args() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var a []string
	if !s.autoGain && s.gain != 0 {
		a = append(a, "--gain", fmt.Sprintf("%.1f", float64(s.gain)*gainPerStep))
	}
	if !s.autoExpose && s.exposure != 0 {
		a = append(a, "--shutter", fmt.Sprint(s.exposure))
	}
	if s.evLevel != 0 {
		a = append(a, "--ev", fmt.Sprint(s.evLevel))
	}
	if !s.awb {
		a = append(a, "--awb", "custom")
	}
	if s.brightness != 0 {
		a = append(a, "--brightness", fmt.Sprintf("%.2f", float64(s.brightness)/2))
	}
	if s.contrast != 0 {
		a = append(a, "--contrast", fmt.Sprintf("%.2f", 1+float64(s.contrast)/2))
	}
	if s.saturation != 0 {
		a = append(a, "--saturation", fmt.Sprintf("%.2f", 1+float64(s.saturation)/2))
	}
	if s.hmirror {
		a = append(a, "--hflip")
	}
	if s.vflip {
		a = append(a, "--vflip")
	}
	return a
}
