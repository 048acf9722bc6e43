package mpris

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"gitlab.com/tinyland/lab/frostbar/pkg/config"
)

// Controller sends media-control verbs to a player over the session
// bus.
type Controller struct {
	conn *dbus.Conn
}

// NewController wraps an existing session bus connection.
func NewController(conn *dbus.Conn) *Controller {
	return &Controller{conn: conn}
}

// Do dispatches one control to the named player. Relative and absolute
// volume changes are clamped to non-negative.
func (c *Controller) Do(player string, ctrl config.MediaControl) error {
	obj := c.conn.Object(player, playerPath)

	switch ctrl.Verb {
	case config.MediaPlay:
		return c.call(obj, "Play")
	case config.MediaPause:
		return c.call(obj, "Pause")
	case config.MediaPlayPause:
		return c.call(obj, "PlayPause")
	case config.MediaStop:
		return c.call(obj, "Stop")
	case config.MediaNext:
		return c.call(obj, "Next")
	case config.MediaPrevious:
		return c.call(obj, "Previous")
	case config.MediaSeek:
		return c.call(obj, "Seek", ctrl.SeekOffset)
	case config.MediaVolume:
		return c.adjustVolume(obj, ctrl.VolumeDelta)
	case config.MediaSetVolume:
		return c.setVolume(obj, ctrl.Volume)
	}
	return fmt.Errorf("mpris: unknown media verb %v", ctrl.Verb)
}

func (c *Controller) call(obj dbus.BusObject, method string, args ...any) error {
	call := obj.Call(playerInterface+"."+method, 0, args...)
	if call.Err != nil {
		return fmt.Errorf("mpris: %s: %w", method, call.Err)
	}
	return nil
}

func (c *Controller) adjustVolume(obj dbus.BusObject, delta float64) error {
	v, err := obj.GetProperty(playerInterface + ".Volume")
	if err != nil {
		return fmt.Errorf("mpris: get volume: %w", err)
	}
	var current float64
	if err := v.Store(&current); err != nil {
		return fmt.Errorf("mpris: volume type: %w", err)
	}
	return c.setVolume(obj, current+delta)
}

func (c *Controller) setVolume(obj dbus.BusObject, volume float64) error {
	if volume < 0 {
		volume = 0
	}
	if err := obj.SetProperty(playerInterface+".Volume", dbus.MakeVariant(volume)); err != nil {
		return fmt.Errorf("mpris: set volume: %w", err)
	}
	return nil
}
