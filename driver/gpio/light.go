/*
DESCRIPTION
  light.go provides an implementation of the driver.Light interface over a
  GPIO character device output line, for illumination (flash LED) control.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package gpio provides a driver.Light implementation backed by a GPIO
// character device output line.
package gpio

import (
	"fmt"

	"github.com/ausocean/utils/logging"
	"github.com/warthog618/go-gpiocdev"
)

// To indicate package when logging.
const pkg = "gpio: "

// DefaultChip is the GPIO character device used when none is specified.
const DefaultChip = "gpiochip0"

// Light drives an illumination source on a single GPIO output line.
// The line is requested output-low, so the source is guaranteed off at
// construction regardless of prior state.
type Light struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	log  logging.Logger
}

// NewLight requests the given line offset on the given chip as an output,
// driven low.
func NewLight(chip string, offset int, l logging.Logger) (*Light, error) {
	if chip == "" {
		chip = DefaultChip
	}

	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("could not open GPIO chip %s: %w", chip, err)
	}

	line, err := c.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not request line %d as output: %w", offset, err)
	}

	l.Info(pkg+"illumination line ready", "chip", chip, "offset", offset)
	return &Light{chip: c, line: line, log: l}, nil
}

// Set drives the line high or low.
func (l *Light) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	err := l.line.SetValue(v)
	if err != nil {
		return fmt.Errorf("could not set illumination line: %w", err)
	}
	l.log.Debug(pkg+"illumination set", "on", on)
	return nil
}

// Close drives the line low and releases it.
func (l *Light) Close() error {
	err := l.line.SetValue(0)
	if err != nil {
		l.log.Error(pkg+"could not lower line on close", "error", err.Error())
	}
	err = l.line.Close()
	if err != nil {
		return fmt.Errorf("could not close line: %w", err)
	}
	return l.chip.Close()
}
