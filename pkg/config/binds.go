package config

import (
	"fmt"
	"strconv"
	"strings"
)

// MouseButton identifies one of the recognized mouse-bind slots.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	DoubleClick
	ScrollUp
	ScrollDown
	ScrollLeft
	ScrollRight
)

func (b MouseButton) String() string {
	switch b {
	case MouseLeft:
		return "mouse_left"
	case MouseRight:
		return "mouse_right"
	case MouseMiddle:
		return "mouse_middle"
	case DoubleClick:
		return "double_click"
	case ScrollUp:
		return "scroll_up"
	case ScrollDown:
		return "scroll_down"
	case ScrollLeft:
		return "scroll_left"
	case ScrollRight:
		return "scroll_right"
	}
	return "unknown"
}

// Binds is a module's mouse-bind table.
type Binds struct {
	MouseLeft   *Bind `toml:"mouse_left"`
	MouseRight  *Bind `toml:"mouse_right"`
	MouseMiddle *Bind `toml:"mouse_middle"`
	DoubleClick *Bind `toml:"double_click"`
	ScrollUp    *Bind `toml:"scroll_up"`
	ScrollDown  *Bind `toml:"scroll_down"`
	ScrollLeft  *Bind `toml:"scroll_left"`
	ScrollRight *Bind `toml:"scroll_right"`
}

// For returns the bind configured for the given button, or nil.
func (b Binds) For(button MouseButton) *Bind {
	switch button {
	case MouseLeft:
		return b.MouseLeft
	case MouseRight:
		return b.MouseRight
	case MouseMiddle:
		return b.MouseMiddle
	case DoubleClick:
		return b.DoubleClick
	case ScrollUp:
		return b.ScrollUp
	case ScrollDown:
		return b.ScrollDown
	case ScrollLeft:
		return b.ScrollLeft
	case ScrollRight:
		return b.ScrollRight
	}
	return nil
}

// Bind is a single mouse binding: either an external command invocation
// or, for Mpris modules only, a media control verb.
type Bind struct {
	// Command is an argv-style command invocation.
	Command []string `toml:"command,omitempty"`
	// Sh, when non-empty, is shorthand for `sh -c <Sh>`.
	Sh string `toml:"sh,omitempty"`
	// Media is a media control verb ("play-pause", "seek 5000000", ...).
	Media string `toml:"media,omitempty"`
}

// Argv returns the command to spawn for a command-style bind, applying
// the sh shorthand. Returns nil for media binds and empty binds.
func (b *Bind) Argv() []string {
	if b == nil {
		return nil
	}
	if b.Sh != "" {
		return []string{"sh", "-c", b.Sh}
	}
	if len(b.Command) > 0 {
		return b.Command
	}
	return nil
}

// validate checks the bind shape. Media verbs are only allowed when
// mpris is true (the bind belongs to an Mpris module).
func (b *Bind) validate(button MouseButton, mpris bool) error {
	if b == nil {
		return nil
	}
	set := 0
	if len(b.Command) > 0 {
		set++
	}
	if b.Sh != "" {
		set++
	}
	if b.Media != "" {
		set++
	}
	if set == 0 {
		return fmt.Errorf("config: bind %s is empty", button)
	}
	if set > 1 {
		return fmt.Errorf("config: bind %s mixes command, sh, and media forms", button)
	}
	if b.Media != "" {
		if !mpris {
			return fmt.Errorf("config: bind %s: media verbs are only valid on mpris modules", button)
		}
		if _, err := ParseMediaControl(b.Media); err != nil {
			return fmt.Errorf("config: bind %s: %w", button, err)
		}
	}
	return nil
}

// MediaVerb enumerates the media control verbs.
type MediaVerb int

const (
	MediaPlay MediaVerb = iota
	MediaPause
	MediaPlayPause
	MediaStop
	MediaNext
	MediaPrevious
	MediaSeek
	MediaVolume
	MediaSetVolume
)

func (v MediaVerb) String() string {
	switch v {
	case MediaPlay:
		return "play"
	case MediaPause:
		return "pause"
	case MediaPlayPause:
		return "play-pause"
	case MediaStop:
		return "stop"
	case MediaNext:
		return "next"
	case MediaPrevious:
		return "previous"
	case MediaSeek:
		return "seek"
	case MediaVolume:
		return "volume"
	case MediaSetVolume:
		return "set-volume"
	}
	return "unknown"
}

// MediaControl is a parsed media control verb with its argument.
// SeekOffset is in microseconds; VolumeDelta is a relative volume change
// and Volume an absolute target.
type MediaControl struct {
	Verb        MediaVerb
	SeekOffset  int64
	VolumeDelta float64
	Volume      float64
}

// ParseMediaControl parses the textual bind form, e.g. "play-pause",
// "seek 5000000", "volume -0.05", "set-volume 0.5".
func ParseMediaControl(s string) (MediaControl, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return MediaControl{}, fmt.Errorf("empty media verb")
	}
	verb, rest := fields[0], fields[1:]

	arg := func() (string, error) {
		if len(rest) != 1 {
			return "", fmt.Errorf("media verb %q takes exactly one argument", verb)
		}
		return rest[0], nil
	}
	noArg := func(v MediaVerb) (MediaControl, error) {
		if len(rest) != 0 {
			return MediaControl{}, fmt.Errorf("media verb %q takes no argument", verb)
		}
		return MediaControl{Verb: v}, nil
	}

	switch verb {
	case "play":
		return noArg(MediaPlay)
	case "pause":
		return noArg(MediaPause)
	case "play-pause":
		return noArg(MediaPlayPause)
	case "stop":
		return noArg(MediaStop)
	case "next":
		return noArg(MediaNext)
	case "previous":
		return noArg(MediaPrevious)
	case "seek":
		a, err := arg()
		if err != nil {
			return MediaControl{}, err
		}
		us, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return MediaControl{}, fmt.Errorf("seek offset %q: %w", a, err)
		}
		return MediaControl{Verb: MediaSeek, SeekOffset: us}, nil
	case "volume":
		a, err := arg()
		if err != nil {
			return MediaControl{}, err
		}
		delta, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return MediaControl{}, fmt.Errorf("volume delta %q: %w", a, err)
		}
		return MediaControl{Verb: MediaVolume, VolumeDelta: delta}, nil
	case "set-volume":
		a, err := arg()
		if err != nil {
			return MediaControl{}, err
		}
		abs, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return MediaControl{}, fmt.Errorf("volume %q: %w", a, err)
		}
		return MediaControl{Verb: MediaSetVolume, Volume: abs}, nil
	}
	return MediaControl{}, fmt.Errorf("unknown media verb %q", verb)
}
