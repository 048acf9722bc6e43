package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName and PaletteFileName are the two files FrostBar reads
// from its config directory.
const (
	ConfigFileName  = "config.toml"
	PaletteFileName = "colors.toml"
)

// Dir resolves the config directory: an explicit override, else
// $XDG_CONFIG_HOME/frostbar, else ~/.config/frostbar.
func Dir(override string) string {
	if override != "" {
		return override
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "frostbar")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "frostbar")
}

// Paths returns the config and palette file paths under dir.
func Paths(dir string) (configPath, palettePath string) {
	return filepath.Join(dir, ConfigFileName), filepath.Join(dir, PaletteFileName)
}

// Load reads and decodes the config file at path. A missing file yields
// the default config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadPalette reads and decodes the palette file at path. A missing file
// yields an empty palette.
func LoadPalette(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Palette{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParsePalette(data)
}

// ParsePalette decodes palette bytes. Top-level keys are variable names,
// values are hex color literals.
func ParsePalette(data []byte) (Palette, error) {
	var p Palette
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse palette: %w", err)
	}
	if p == nil {
		p = Palette{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// rawConfig is the TOML document shape. Module nodes are kept as
// primitives so each can be decoded twice: once for the discriminator
// and binds, once for its kind-specific options.
type rawConfig struct {
	Layout *Layout          `toml:"layout"`
	Style  *Style           `toml:"style"`
	Start  []toml.Primitive `toml:"start"`
	Middle []toml.Primitive `toml:"middle"`
	End    []toml.Primitive `toml:"end"`
}

// moduleHeader is the part of a module node shared by all kinds.
type moduleHeader struct {
	Type  string `toml:"type"`
	Binds Binds  `toml:"binds"`
}

// Parse decodes config bytes into a validated Config. Color fields may
// still contain palette references; call Hydrate before use.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	cfg := Default()
	if raw.Layout != nil {
		cfg.Layout = *raw.Layout
	}
	if raw.Style != nil {
		cfg.Style = *raw.Style
	}

	sections := []struct {
		section Section
		nodes   []toml.Primitive
	}{
		{SectionStart, raw.Start},
		{SectionMiddle, raw.Middle},
		{SectionEnd, raw.End},
	}
	for _, s := range sections {
		for i, prim := range s.nodes {
			mod, err := decodeModule(md, prim, s.section, i)
			if err != nil {
				return nil, err
			}
			cfg.Modules = append(cfg.Modules, mod)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeModule decodes one module node: the shared header first, then the
// kind-specific options on top of that kind's defaults.
func decodeModule(md toml.MetaData, prim toml.Primitive, section Section, index int) (Module, error) {
	var hdr moduleHeader
	if err := md.PrimitiveDecode(prim, &hdr); err != nil {
		return Module{}, fmt.Errorf("config: %s module %d: %w", section, index, err)
	}
	kind, err := KindFromString(hdr.Type)
	if err != nil {
		return Module{}, fmt.Errorf("config: %s module %d: %w", section, index, err)
	}

	mod := Module{Kind: kind, Section: section, Index: index, Binds: hdr.Binds}

	decodeOpts := func(dst any) error {
		if err := md.PrimitiveDecode(prim, dst); err != nil {
			return fmt.Errorf("config: %s module %d (%s): %w", section, index, kind, err)
		}
		return nil
	}

	switch kind {
	case KindBattery:
		opts := DefaultBatteryOptions()
		if err := decodeOpts(&opts); err != nil {
			return Module{}, err
		}
		mod.Battery = &opts
	case KindTime:
		opts := DefaultTimeOptions()
		if err := decodeOpts(&opts); err != nil {
			return Module{}, err
		}
		mod.Time = &opts
	case KindCava:
		opts := DefaultCavaOptions()
		if err := decodeOpts(&opts); err != nil {
			return Module{}, err
		}
		mod.Cava = &opts
	case KindMpris:
		opts := DefaultMprisOptions()
		if err := decodeOpts(&opts); err != nil {
			return Module{}, err
		}
		mod.Mpris = &opts
	case KindNiri:
		opts := DefaultNiriOptions()
		if err := decodeOpts(&opts); err != nil {
			return Module{}, err
		}
		mod.Niri = &opts
	case KindLabel:
		opts := DefaultLabelOptions()
		if err := decodeOpts(&opts); err != nil {
			return Module{}, err
		}
		mod.Label = &opts
	case KindSystemTray:
		opts := DefaultSystemTrayOptions()
		if err := decodeOpts(&opts); err != nil {
			return Module{}, err
		}
		mod.SystemTray = &opts
	}
	return mod, nil
}

// Validate checks structural invariants that TOML decoding cannot
// express: color shapes and bind tables.
func (c *Config) Validate() error {
	if c.Style.Background != "" && !c.Style.Background.Valid() {
		return fmt.Errorf("config: style.background has invalid color %q", c.Style.Background)
	}
	for _, m := range c.Modules {
		mpris := m.Kind == KindMpris
		for _, button := range []MouseButton{
			MouseLeft, MouseRight, MouseMiddle, DoubleClick,
			ScrollUp, ScrollDown, ScrollLeft, ScrollRight,
		} {
			if err := m.Binds.For(button).validate(button, mpris); err != nil {
				return fmt.Errorf("%s module %d: %w", m.Section, m.Index, err)
			}
		}
		if b := m.Battery; b != nil && b.ChargingColor != "" && !b.ChargingColor.Valid() {
			return fmt.Errorf("config: %s module %d: invalid charging_color %q", m.Section, m.Index, b.ChargingColor)
		}
	}
	return nil
}

// Encode serializes the config back to TOML. Parse(Encode(c)) yields a
// config equal to c modulo default fill-in.
func (c *Config) Encode() ([]byte, error) {
	doc := map[string]any{
		"layout": c.Layout,
		"style":  c.Style,
	}
	for _, section := range []Section{SectionStart, SectionMiddle, SectionEnd} {
		var nodes []map[string]any
		for _, m := range c.ModulesIn(section) {
			nodes = append(nodes, encodeModule(m))
		}
		if len(nodes) > 0 {
			doc[section.String()] = nodes
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeModule(m Module) map[string]any {
	node := map[string]any{"type": m.Kind.String()}
	switch {
	case m.Battery != nil:
		node["icon_size"] = m.Battery.IconSize
		node["charging_color"] = m.Battery.ChargingColor
	case m.Time != nil:
		node["format"] = m.Time.Format
		node["tooltip_format"] = m.Time.TooltipFormat
	case m.Cava != nil:
		node["volume_percent"] = m.Cava.VolumePercent
		node["spacing"] = m.Cava.Spacing
	case m.Mpris != nil:
		node["placeholder"] = m.Mpris.Placeholder
	case m.Niri != nil:
		node["spacing"] = m.Niri.Spacing
		node["workspace_offset"] = m.Niri.WorkspaceOffset
	case m.Label != nil:
		node["text"] = m.Label.Text
		node["size"] = m.Label.Size
		if m.Label.Tooltip != "" {
			node["tooltip"] = m.Label.Tooltip
		}
	case m.SystemTray != nil:
		node["icon_size"] = m.SystemTray.IconSize
		node["spacing"] = m.SystemTray.Spacing
	}
	if binds := encodeBinds(m.Binds); len(binds) > 0 {
		node["binds"] = binds
	}
	return node
}

func encodeBinds(b Binds) map[string]any {
	out := map[string]any{}
	for _, button := range []MouseButton{
		MouseLeft, MouseRight, MouseMiddle, DoubleClick,
		ScrollUp, ScrollDown, ScrollLeft, ScrollRight,
	} {
		if bind := b.For(button); bind != nil {
			out[button.String()] = *bind
		}
	}
	return out
}
