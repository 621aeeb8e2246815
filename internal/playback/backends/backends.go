// Package backends constructs playback drivers by name.
package backends

import (
	"fmt"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
	"github.com/tphakala/pcmplay/internal/playback"
	"github.com/tphakala/pcmplay/internal/playback/malgo"
	"github.com/tphakala/pcmplay/internal/playback/oto"
)

// Driver is a playback driver that can also list its devices
type Driver interface {
	playback.Driver
	playback.DeviceLister
}

// Names lists the backends New accepts
var Names = []string{malgo.DriverName, oto.DriverName, playback.HeadlessDriverName}

// New returns the driver registered under name. The null backend is clocked
// so it consumes audio in real time without hardware.
func New(name string, log logger.Logger) (Driver, error) {
	switch name {
	case malgo.DriverName:
		return malgo.NewDriver(log), nil
	case oto.DriverName:
		return oto.NewDriver(log), nil
	case playback.HeadlessDriverName:
		d := playback.NewHeadlessDriver()
		d.Clocked = true
		return d, nil
	default:
		return nil, errors.New(fmt.Errorf("%w: unknown backend %q", playback.ErrInvalidConfig, name)).
			Component(playback.ComponentPlayback).
			Category(errors.CategoryConfiguration).
			Context("backend", name).
			Build()
	}
}
