// Package app is the FrostBar UI core: a bubbletea model that owns all
// service state, dispatches producer events, and renders the bar as a
// pure function over the services.
package app

import (
	"time"

	"gitlab.com/tinyland/lab/frostbar/pkg/audio"
	"gitlab.com/tinyland/lab/frostbar/pkg/battery"
	"gitlab.com/tinyland/lab/frostbar/pkg/config"
	"gitlab.com/tinyland/lab/frostbar/pkg/mpris"
	"gitlab.com/tinyland/lab/frostbar/pkg/niri"
	"gitlab.com/tinyland/lab/frostbar/pkg/systray"
	"gitlab.com/tinyland/lab/frostbar/pkg/watcher"
)

// TickMsg is the 1 Hz clock tick; it also drives the battery poll.
type TickMsg struct {
	Time time.Time
}

// WatcherMsg carries a file-watcher check result.
type WatcherMsg struct {
	Result watcher.CheckResult
}

// NiriMsg carries one compositor event.
type NiriMsg struct {
	Event niri.Event
}

// NiriClosedMsg reports that the compositor event stream ended. The
// last known state is kept; there is no reconnect.
type NiriClosedMsg struct{}

// MprisMsg carries one media-player event from the bus listener.
type MprisMsg struct {
	Event mpris.Event
}

// ArtMsg carries a finished album-art fetch. It routes through the
// same aggregator as MprisMsg but must not re-arm the bus listener.
type ArtMsg struct {
	Event mpris.Event
}

// AudioFrameMsg carries one captured audio block. OK is false when the
// wait timed out, which re-arms the listener without processing.
type AudioFrameMsg struct {
	Frame audio.CapturedAudio
	OK    bool
}

// AudioTickMsg is one 60 Hz animation frame for the visualizer.
type AudioTickMsg struct{}

// TrayMsg carries a republished tray item list.
type TrayMsg struct {
	Event systray.Event
}

// BatteryMsg carries a fresh battery snapshot.
type BatteryMsg struct {
	Snapshot battery.Snapshot
}

// OpenTooltipMsg asks for the tooltip of a widget to be shown; the
// widget's measured bounds decide the overlay position.
type OpenTooltipMsg struct {
	ID string
}

// CloseTooltipMsg closes the tooltip if it is still owned by ID.
type CloseTooltipMsg struct {
	ID string
}

// MediaControlMsg dispatches a media-control verb to a player.
type MediaControlMsg struct {
	Player  string
	Control config.MediaControl
}

// CommandMsg spawns an external process for a mouse bind.
type CommandMsg struct {
	Argv []string
}

// CommandDoneMsg reports a finished bind command.
type CommandDoneMsg struct {
	Argv   []string
	Stdout string
	Stderr string
	Err    error
}

// ErrorMsg is a service-degradation report; the dispatcher logs it.
type ErrorMsg struct {
	Text string
}

// NoOpMsg is returned by failed side-effect dispatches.
type NoOpMsg struct{}
