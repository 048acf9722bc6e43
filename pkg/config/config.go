// Package config defines the FrostBar configuration model and its TOML
// decoding. A configuration is split across two files in the config
// directory: config.toml (bar geometry, global style, and the ordered
// module lists for the three bar sections) and colors.toml (a palette of
// named colors referenced from the config as "$name" variables).
//
// Decoding yields a validated Config whose color fields may still contain
// variable references; Hydrate resolves them against a Palette. After
// hydration no unresolved variable remains: unknown names are replaced by
// a loud fallback color and reported to the caller.
package config

import (
	"fmt"
	"strings"
)

// Anchor selects the monitor edge the bar is attached to.
type Anchor int

const (
	AnchorLeft Anchor = iota
	AnchorRight
	AnchorTop
	AnchorBottom
)

// Vertical reports whether the bar runs along a vertical edge, i.e. its
// primary axis is top-to-bottom.
func (a Anchor) Vertical() bool {
	return a == AnchorLeft || a == AnchorRight
}

func (a Anchor) String() string {
	switch a {
	case AnchorLeft:
		return "left"
	case AnchorRight:
		return "right"
	case AnchorTop:
		return "top"
	case AnchorBottom:
		return "bottom"
	}
	return "unknown"
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (a *Anchor) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "left":
		*a = AnchorLeft
	case "right":
		*a = AnchorRight
	case "top":
		*a = AnchorTop
	case "bottom":
		*a = AnchorBottom
	default:
		return fmt.Errorf("config: unknown anchor %q", text)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Anchor) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Layer is the z-ordering hint handed to the window surface.
type Layer int

const (
	LayerBackground Layer = iota
	LayerBottom
	LayerTop
	LayerOverlay
)

func (l Layer) String() string {
	switch l {
	case LayerBackground:
		return "background"
	case LayerBottom:
		return "bottom"
	case LayerTop:
		return "top"
	case LayerOverlay:
		return "overlay"
	}
	return "unknown"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layer) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "background":
		*l = LayerBackground
	case "bottom":
		*l = LayerBottom
	case "top":
		*l = LayerTop
	case "overlay":
		*l = LayerOverlay
	default:
		return fmt.Errorf("config: unknown layer %q", text)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (l Layer) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Section is one of the three layout slots along the bar's primary axis.
type Section int

const (
	SectionStart Section = iota
	SectionMiddle
	SectionEnd
)

func (s Section) String() string {
	switch s {
	case SectionStart:
		return "start"
	case SectionMiddle:
		return "middle"
	case SectionEnd:
		return "end"
	}
	return "unknown"
}

// Layout holds the bar geometry. Width is the bar thickness in pixels
// (terminal cells in this rendition); Gaps is the margin between the bar
// and the screen edges.
type Layout struct {
	Width  uint32 `toml:"width"`
	Gaps   int32  `toml:"gaps"`
	Anchor Anchor `toml:"anchor"`
	Layer  Layer  `toml:"layer"`
}

// DefaultLayout mirrors the defaults applied when the layout section is
// absent.
func DefaultLayout() Layout {
	return Layout{Width: 42, Gaps: 3, Anchor: AnchorLeft, Layer: LayerTop}
}

// Style holds bar-global presentation options.
type Style struct {
	Background   Color   `toml:"background"`
	BorderRadius Corners `toml:"border_radius"`
}

// Corners is a per-corner border radius. The TOML form is either a single
// integer applied to all corners or a table with per-corner keys.
type Corners struct {
	TopLeft     uint16 `toml:"top_left"`
	TopRight    uint16 `toml:"top_right"`
	BottomLeft  uint16 `toml:"bottom_left"`
	BottomRight uint16 `toml:"bottom_right"`
}

// Uniform returns a Corners with every corner set to r.
func Uniform(r uint16) Corners {
	return Corners{TopLeft: r, TopRight: r, BottomLeft: r, BottomRight: r}
}

// UnmarshalTOML accepts either an integer or a per-corner table.
func (c *Corners) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case int64:
		if val < 0 {
			return fmt.Errorf("config: border_radius must be >= 0, got %d", val)
		}
		*c = Uniform(uint16(val))
		return nil
	case map[string]any:
		read := func(key string) (uint16, error) {
			raw, ok := val[key]
			if !ok {
				return 0, nil
			}
			n, ok := raw.(int64)
			if !ok || n < 0 {
				return 0, fmt.Errorf("config: border_radius.%s must be a non-negative integer", key)
			}
			return uint16(n), nil
		}
		var err error
		if c.TopLeft, err = read("top_left"); err != nil {
			return err
		}
		if c.TopRight, err = read("top_right"); err != nil {
			return err
		}
		if c.BottomLeft, err = read("bottom_left"); err != nil {
			return err
		}
		if c.BottomRight, err = read("bottom_right"); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("config: border_radius must be an integer or a table, got %T", v)
	}
}

// Kind discriminates the module variants.
type Kind int

const (
	KindBattery Kind = iota
	KindTime
	KindCava
	KindMpris
	KindNiri
	KindLabel
	KindSystemTray
)

func (k Kind) String() string {
	switch k {
	case KindBattery:
		return "battery"
	case KindTime:
		return "time"
	case KindCava:
		return "cava"
	case KindMpris:
		return "mpris"
	case KindNiri:
		return "niri"
	case KindLabel:
		return "label"
	case KindSystemTray:
		return "system_tray"
	}
	return "unknown"
}

// KindFromString maps a config "type" value to a Kind.
func KindFromString(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "battery":
		return KindBattery, nil
	case "time":
		return KindTime, nil
	case "cava":
		return KindCava, nil
	case "mpris":
		return KindMpris, nil
	case "niri":
		return KindNiri, nil
	case "label":
		return KindLabel, nil
	case "system_tray", "systemtray":
		return KindSystemTray, nil
	}
	return 0, fmt.Errorf("config: unknown module type %q", s)
}

// Module is one configured occurrence of a module kind at a specific
// section and position index. Exactly one of the option pointers matching
// Kind is non-nil.
type Module struct {
	Kind    Kind
	Section Section
	Index   int
	Binds   Binds

	Battery    *BatteryOptions
	Time       *TimeOptions
	Cava       *CavaOptions
	Mpris      *MprisOptions
	Niri       *NiriOptions
	Label      *LabelOptions
	SystemTray *SystemTrayOptions
}

// BatteryOptions configures the battery module.
type BatteryOptions struct {
	IconSize      uint32 `toml:"icon_size"`
	ChargingColor Color  `toml:"charging_color"`
}

// DefaultBatteryOptions mirrors the original defaults.
func DefaultBatteryOptions() BatteryOptions {
	return BatteryOptions{IconSize: 22, ChargingColor: "#73F5AB"}
}

// TimeOptions configures the clock module. Format strings use Go
// reference-time layouts; a newline splits the compact display into
// stacked lines on vertical bars.
type TimeOptions struct {
	Format        string `toml:"format"`
	TooltipFormat string `toml:"tooltip_format"`
}

// DefaultTimeOptions returns the stock clock formats.
func DefaultTimeOptions() TimeOptions {
	return TimeOptions{Format: "03\n04", TooltipFormat: "Mon Jan 2\n1/2/06"}
}

// CavaOptions configures the audio visualizer module.
type CavaOptions struct {
	VolumePercent int32   `toml:"volume_percent"`
	Spacing       float64 `toml:"spacing"`
}

// DefaultCavaOptions returns the stock visualizer options.
func DefaultCavaOptions() CavaOptions {
	return CavaOptions{VolumePercent: 3, Spacing: 0.1}
}

// MprisOptions configures the media-player module.
type MprisOptions struct {
	Placeholder string `toml:"placeholder"`
}

// DefaultMprisOptions returns the stock placeholder glyph.
func DefaultMprisOptions() MprisOptions {
	return MprisOptions{Placeholder: "♪"}
}

// NiriOptions configures the workspace/window switcher module.
type NiriOptions struct {
	Spacing         uint32 `toml:"spacing"`
	WorkspaceOffset int8   `toml:"workspace_offset"`
}

// DefaultNiriOptions returns the stock switcher options.
func DefaultNiriOptions() NiriOptions {
	return NiriOptions{Spacing: 10, WorkspaceOffset: 0}
}

// LabelOptions configures a static text module.
type LabelOptions struct {
	Text    string `toml:"text"`
	Size    uint32 `toml:"size"`
	Tooltip string `toml:"tooltip"`
}

// DefaultLabelOptions returns the stock label options.
func DefaultLabelOptions() LabelOptions {
	return LabelOptions{Size: 18}
}

// SystemTrayOptions configures the status-notifier tray module.
type SystemTrayOptions struct {
	IconSize uint32 `toml:"icon_size"`
	Spacing  uint32 `toml:"spacing"`
}

// DefaultSystemTrayOptions returns the stock tray options.
func DefaultSystemTrayOptions() SystemTrayOptions {
	return SystemTrayOptions{IconSize: 22, Spacing: 6}
}

// Config is the decoded, validated bar configuration.
type Config struct {
	Layout  Layout
	Style   Style
	Modules []Module
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Layout: DefaultLayout(),
		Style:  Style{Background: "#1A1B26", BorderRadius: Uniform(0)},
	}
}

// ModulesIn returns the modules of one section in position order.
func (c *Config) ModulesIn(s Section) []Module {
	var out []Module
	for _, m := range c.Modules {
		if m.Section == s {
			out = append(out, m)
		}
	}
	return out
}

// HasKind reports whether any module instance of kind k is configured.
// Services are torn down only when no instance of their kind remains.
func (c *Config) HasKind(k Kind) bool {
	for _, m := range c.Modules {
		if m.Kind == k {
			return true
		}
	}
	return false
}
