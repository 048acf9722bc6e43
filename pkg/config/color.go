package config

import (
	"fmt"
	"regexp"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// FallbackColor is substituted for unresolved palette references so that
// a misconfigured color is loudly visible instead of silently black.
const FallbackColor Color = "#FF00FF"

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Color is either a hex literal ("#RRGGBB") or a palette variable
// reference ("$name"). After Config.Hydrate every Color is a literal.
type Color string

// IsRef reports whether the color is a palette variable reference.
func (c Color) IsRef() bool {
	return strings.HasPrefix(string(c), "$")
}

// Valid reports whether the color is a well-formed literal or reference.
func (c Color) Valid() bool {
	if c == "" {
		return false
	}
	if c.IsRef() {
		return len(c) > 1
	}
	return hexColorRe.MatchString(string(c))
}

// RGB parses the color literal. Unparseable values (including not-yet-
// hydrated references) return the fallback color.
func (c Color) RGB() colorful.Color {
	parsed, err := colorful.Hex(string(c))
	if err != nil {
		fallback, _ := colorful.Hex(string(FallbackColor))
		return fallback
	}
	return parsed
}

// Palette maps variable names (without the leading "$") to color
// literals. It is decoded from colors.toml.
type Palette map[string]Color

// Resolve looks up a color against the palette. Literals pass through
// untouched; references resolve to their palette entry. The second return
// is false when a reference names an unknown variable, in which case the
// loud fallback is returned.
func (p Palette) Resolve(c Color) (Color, bool) {
	if !c.IsRef() {
		return c, true
	}
	name := strings.TrimPrefix(string(c), "$")
	if lit, ok := p[name]; ok {
		return lit, true
	}
	return FallbackColor, false
}

// Validate checks that every palette entry is a hex literal. Palette
// entries may not themselves be references.
func (p Palette) Validate() error {
	for name, c := range p {
		if c.IsRef() {
			return fmt.Errorf("config: palette entry %q references another variable", name)
		}
		if !c.Valid() {
			return fmt.Errorf("config: palette entry %q has invalid color %q", name, c)
		}
	}
	return nil
}

// Hydrate resolves every color variable in the config against the
// palette, in place. It returns the names of unresolved references;
// each such field has been set to the loud fallback color. Hydrating a
// literal-only config is a no-op, so hydration is idempotent.
func (c *Config) Hydrate(p Palette) []string {
	var unresolved []string
	resolve := func(col *Color) {
		if col == nil || *col == "" {
			return
		}
		was := *col
		lit, ok := p.Resolve(*col)
		*col = lit
		if !ok {
			unresolved = append(unresolved, strings.TrimPrefix(string(was), "$"))
		}
	}

	resolve(&c.Style.Background)
	for i := range c.Modules {
		if b := c.Modules[i].Battery; b != nil {
			resolve(&b.ChargingColor)
		}
	}
	return unresolved
}
