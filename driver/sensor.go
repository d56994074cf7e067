/*
DESCRIPTION
  sensor.go provides the Sensor interface for tuning the image sensor
  behind a Driver, and the optional LensCorrector capability.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package driver

import "github.com/ausocean/snapcam/cam/config"

// Sensor is a handle on the image sensor behind a Driver, used to apply
// a tuning profile after initialisation. Implementations map these calls
// onto whatever register or command interface the hardware exposes.
type Sensor interface {
	// ID returns the sensor's product identifier, 0 if unknown.
	ID() int

	SetFrameSize(fs config.FrameSize) error

	// Automatic control toggles. When automatic gain or exposure is
	// enabled, the manual values below act as bounded fallbacks.
	SetAutoGain(on bool) error
	SetAutoExposure(on bool) error
	SetExposureLevel(level int) error
	SetManualGain(gain int) error
	SetManualExposure(value int) error

	// White balance.
	SetAutoWhiteBalance(on bool) error
	SetAWBGain(on bool) error
	SetWhiteBalanceMode(mode int) error

	// Image adjustments.
	SetBrightness(v int) error
	SetContrast(v int) error
	SetSaturation(v int) error

	// Pixel correction and downsize cropping.
	SetPixelCorrection(black, white bool) error
	SetDownsizeCrop(on bool) error

	// Stability settings.
	SetSpecialEffect(e int) error
	SetMirror(horizontal, vertical bool) error
}

// LensCorrector is implemented by sensors that support lens shading
// correction.
type LensCorrector interface {
	SetLensCorrection(on bool) error
}
