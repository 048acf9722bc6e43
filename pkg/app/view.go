package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/frostbar/pkg/config"
	"gitlab.com/tinyland/lab/frostbar/pkg/icons"
)

// levelGlyphs is the eight-step bar ramp used by the battery gauge and
// the audio visualizer.
const levelGlyphs = "▁▂▃▄▅▆▇█"

// moduleZoneID names a module instance's hit-test zone. Section and
// index keep two modules of the same kind apart.
func moduleZoneID(m config.Module) string {
	return fmt.Sprintf("mod/%s/%s/%d", m.Section, m.Kind, m.Index)
}

func workspaceZoneID(id uint64) string {
	return fmt.Sprintf("niri/ws/%d", id)
}

func windowZoneID(id uint64) string {
	return fmt.Sprintf("niri/win/%d", id)
}

func trayZoneID(service string) string {
	return "tray/" + service
}

// View renders the whole bar as a pure function of the model. The
// result is scanned by the zone manager so Update can hit-test the
// pointer against what was actually drawn.
func (b *Bar) View() string {
	if !b.barOpen {
		return ""
	}

	vertical := b.cfg.Layout.Anchor.Vertical()
	sections := [3]string{
		b.renderSection(config.SectionStart, vertical),
		b.renderSection(config.SectionMiddle, vertical),
		b.renderSection(config.SectionEnd, vertical),
	}

	var bar string
	if vertical {
		bar = distribute(sections, b.monitorH, lipgloss.Height, verticalSpacer, joinVertical)
	} else {
		bar = distribute(sections, b.monitorW, lipgloss.Width, horizontalSpacer, joinHorizontal)
	}

	style := lipgloss.NewStyle()
	if bg := b.cfg.Style.Background; bg != "" {
		style = style.Background(lipgloss.Color(string(bg)))
	}
	out := style.Render(bar)

	if b.tooltip != nil {
		out = lipgloss.JoinVertical(lipgloss.Left, out, b.renderTooltip())
	}
	return b.zones.Scan(out)
}

func joinVertical(parts ...string) string {
	return lipgloss.JoinVertical(lipgloss.Center, parts...)
}

func joinHorizontal(parts ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

// distribute lays the three sections along the bar's primary axis:
// start flush at the head, middle centered, end flush at the tail.
func distribute(sections [3]string, axis int, measure func(string) int, spacer func(int) string, join func(...string) string) string {
	used := measure(sections[0]) + measure(sections[1]) + measure(sections[2])
	slack := axis - used
	if slack < 0 {
		slack = 0
	}
	lead := slack / 2
	return join(sections[0], spacer(lead), sections[1], spacer(slack-lead), sections[2])
}

func verticalSpacer(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" \n", n-1) + " "
}

func horizontalSpacer(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// renderSection draws one layout slot's modules in position order.
func (b *Bar) renderSection(s config.Section, vertical bool) string {
	var parts []string
	for _, m := range b.cfg.ModulesIn(s) {
		if rendered := b.renderModule(m, vertical); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if vertical {
		return joinVertical(parts...)
	}
	return joinHorizontal(parts...)
}

func (b *Bar) renderModule(m config.Module, vertical bool) string {
	var body string
	switch m.Kind {
	case config.KindBattery:
		body = b.renderBattery(m)
	case config.KindTime:
		body = b.renderTime(m)
	case config.KindCava:
		body = b.renderCava(m, vertical)
	case config.KindMpris:
		body = b.renderMpris(m, vertical)
	case config.KindNiri:
		body = b.renderNiri(m, vertical)
	case config.KindLabel:
		body = b.renderLabel(m)
	case config.KindSystemTray:
		body = b.renderTray(m, vertical)
	}
	if body == "" {
		return ""
	}
	return b.zones.Mark(moduleZoneID(m), body)
}

// renderBattery shows a charge gauge glyph. A fraction outside [0, 1]
// means no readable battery and renders as "?".
func (b *Bar) renderBattery(m config.Module) string {
	opts := config.DefaultBatteryOptions()
	if m.Battery != nil {
		opts = *m.Battery
	}

	frac := b.power.Fraction()
	if frac < 0 || frac > 1 {
		return "?"
	}
	idx := int(frac * float64(len([]rune(levelGlyphs))-1))
	glyph := string([]rune(levelGlyphs)[idx])

	if b.power.Charging() && opts.ChargingColor.Valid() {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(string(opts.ChargingColor))).
			Render(glyph)
	}
	return glyph
}

func (b *Bar) renderTime(m config.Module) string {
	opts := config.DefaultTimeOptions()
	if m.Time != nil {
		opts = *m.Time
	}
	return b.now.Format(opts.Format)
}

// renderCava draws one glyph per spectrum bar, colored by the dominant
// album-art gradient when one is published.
func (b *Bar) renderCava(m config.Module, vertical bool) string {
	if b.svc.Audio == nil {
		return ""
	}
	bars := b.svc.Audio.Bars()
	gradient := b.svc.Audio.Gradient
	ramp := []rune(levelGlyphs)

	glyphs := make([]string, len(bars))
	for i, v := range bars {
		idx := int(v * float64(len(ramp)))
		if idx >= len(ramp) {
			idx = len(ramp) - 1
		}
		if idx < 0 {
			idx = 0
		}
		g := string(ramp[idx])
		if i < len(gradient) {
			g = lipgloss.NewStyle().
				Foreground(lipgloss.Color(gradient[i].Hex())).
				Render(g)
		}
		glyphs[i] = g
	}
	if vertical {
		return joinVertical(glyphs...)
	}
	return strings.Join(glyphs, "")
}

// renderMpris shows the displayed player's track, or the configured
// placeholder glyph when nothing is playing.
func (b *Bar) renderMpris(m config.Module, vertical bool) string {
	opts := config.DefaultMprisOptions()
	if m.Mpris != nil {
		opts = *m.Mpris
	}
	p := b.displayedPlayer()
	if p == nil {
		return opts.Placeholder
	}

	title, artist := "", ""
	if p.Title != nil {
		title = *p.Title
	}
	if p.Artists != nil {
		artist = *p.Artists
	}
	switch {
	case title == "" && artist == "":
		return opts.Placeholder
	case vertical:
		// A vertical bar has no room for text; show initials instead.
		return icons.Placeholder(title, artist)
	case artist == "":
		return title
	default:
		return title + " - " + artist
	}
}

// renderNiri draws the workspace switcher: one numbered cell per
// workspace with the active one highlighted, followed by a two-letter
// chip per window on the active workspace.
func (b *Bar) renderNiri(m config.Module, vertical bool) string {
	if b.svc.Niri == nil {
		return ""
	}
	opts := config.DefaultNiriOptions()
	if m.Niri != nil {
		opts = *m.Niri
	}

	active := lipgloss.NewStyle().Reverse(true)
	focused := lipgloss.NewStyle().Underline(true)
	hovered := lipgloss.NewStyle().Bold(true)

	var parts []string
	for _, ws := range b.svc.Niri.SortedWorkspaces() {
		label := fmt.Sprintf("%d", int(ws.Index)+1+int(opts.WorkspaceOffset))
		if ws.IsActive {
			label = active.Render(label)
		}
		if hov := b.svc.Niri.HoveredWorkspaceID; hov != nil && *hov == ws.ID {
			label = hovered.Render(label)
		}
		parts = append(parts, b.zones.Mark(workspaceZoneID(ws.ID), label))

		if !ws.IsActive {
			continue
		}
		for _, w := range ws.SortedWindows() {
			chip := icons.Placeholder(deref(w.Title), deref(w.AppID))
			if b.svc.Niri.FocusedWindowID != nil && *b.svc.Niri.FocusedWindowID == w.ID {
				chip = focused.Render(chip)
			}
			parts = append(parts, b.zones.Mark(windowZoneID(w.ID), chip))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if vertical {
		return joinVertical(parts...)
	}
	return strings.Join(parts, " ")
}

func (b *Bar) renderLabel(m config.Module) string {
	if m.Label == nil {
		return ""
	}
	return m.Label.Text
}

// renderTray shows one chip per registered item.
func (b *Bar) renderTray(m config.Module, vertical bool) string {
	if len(b.tray) == 0 {
		return ""
	}
	parts := make([]string, 0, len(b.tray))
	for _, item := range b.tray {
		chip := icons.Placeholder(item.Title, item.Service)
		parts = append(parts, b.zones.Mark(trayZoneID(item.Service), chip))
	}
	if vertical {
		return joinVertical(parts...)
	}
	return strings.Join(parts, " ")
}

func (b *Bar) renderTooltip() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Render(b.tooltip.Text)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
