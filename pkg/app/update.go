package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/frostbar/pkg/battery"
	"gitlab.com/tinyland/lab/frostbar/pkg/config"
	"gitlab.com/tinyland/lab/frostbar/pkg/mpris"
	"gitlab.com/tinyland/lab/frostbar/pkg/niri"
	"gitlab.com/tinyland/lab/frostbar/pkg/watcher"
)

// Update is the single dispatcher. Every service mutation happens here.
func (b *Bar) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.monitorW, b.monitorH = msg.Width, msg.Height
		if !b.barOpen {
			b.openBar()
		}
		return b, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return b, tea.Quit
		}
		return b, nil

	case tea.MouseMsg:
		return b, b.handleMouse(msg)

	case TickMsg:
		b.now = msg.Time
		cmds := []tea.Cmd{tickCmd(msg.Time)}
		if b.svc.Battery != nil {
			cmds = append(cmds, pollBattery(b.svc.Battery))
		}
		return b, tea.Batch(cmds...)

	case BatteryMsg:
		b.power = msg.Snapshot
		return b, nil

	case WatcherMsg:
		return b, b.handleWatcher(msg.Result)

	case NiriMsg:
		if b.svc.Niri != nil {
			b.svc.Niri.Apply(msg.Event)
		}
		return b, listenNiri(b.ch.Niri)

	case NiriClosedMsg:
		// The compositor went away; keep showing the last known state.
		b.log.Warn("compositor event stream closed")
		return b, nil

	case MprisMsg:
		cmds := append(b.applyMpris(msg.Event), listenMpris(b.ch.Mpris))
		return b, tea.Batch(cmds...)

	case ArtMsg:
		return b, tea.Batch(b.applyMpris(msg.Event)...)

	case AudioFrameMsg:
		return b, b.handleAudioFrame(msg)

	case AudioTickMsg:
		return b, b.handleAudioTick()

	case TrayMsg:
		b.tray = msg.Event.Items
		return b, listenTray(b.ch.Tray)

	case OpenTooltipMsg:
		b.openTooltip(msg.ID)
		return b, nil

	case CloseTooltipMsg:
		if b.tooltip != nil && b.tooltip.WidgetID == msg.ID {
			b.tooltip = nil
		}
		return b, nil

	case MediaControlMsg:
		return b, runMediaControl(b.svc.Media, b.log, msg.Player, msg.Control)

	case CommandMsg:
		return b, runBind(msg.Argv)

	case CommandDoneMsg:
		if msg.Err != nil {
			b.log.Warn("bind command failed", "argv", msg.Argv, "error", msg.Err, "stderr", msg.Stderr)
		} else {
			b.log.Debug("bind command finished", "argv", msg.Argv, "stdout", msg.Stdout, "stderr", msg.Stderr)
		}
		return b, nil

	case ErrorMsg:
		b.log.Error(msg.Text)
		return b, nil
	}

	return b, nil
}

// openBar maps the bar surface and assigns a fresh window identity.
func (b *Bar) openBar() {
	b.barOpen = true
	b.window++
	b.log.Info("bar window opened",
		"window", b.window,
		"anchor", b.cfg.Layout.Anchor,
		"width", b.cfg.Layout.Width,
		"monitor_w", b.monitorW,
		"monitor_h", b.monitorH,
	)
}

// reopenBar tears the surface down and maps a new one. The tooltip is
// its own overlay and survives the swap.
func (b *Bar) reopenBar() {
	b.barOpen = false
	b.openBar()
}

// handleWatcher applies one file-watcher check. The palette reload runs
// before the config reload so a simultaneous change hydrates against
// the new palette. A reload that fails to parse or validate keeps the
// running config and raises a notification instead.
func (b *Bar) handleWatcher(res watcher.CheckResult) tea.Cmd {
	cmds := []tea.Cmd{listenWatcher(b.ch.Watch)}

	if res.Colors == watcher.Changed {
		pal, err := config.LoadPalette(b.palettePath)
		if err != nil {
			b.log.Error("palette reload failed", "error", err)
			cmds = append(cmds, notifyCmd(b, "Palette reload failed", err.Error()))
		} else {
			b.palette = pal
			if cmd := b.reloadConfig(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}

	if res.Config == watcher.Changed {
		if cmd := b.reloadConfig(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if res.Config == watcher.Disappeared {
		cmds = append(cmds, notifyCmd(b, "Config file disappeared", b.configPath))
	}
	if res.Colors == watcher.Disappeared {
		cmds = append(cmds, notifyCmd(b, "Palette file disappeared", b.palettePath))
	}

	return tea.Batch(cmds...)
}

// reloadConfig loads, validates, and hydrates the config from disk.
// Hydration resolves palette refs in place, so a palette change re-reads
// the pristine file rather than re-resolving an already-hydrated config.
func (b *Bar) reloadConfig() tea.Cmd {
	cfg, err := config.Load(b.configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		b.log.Error("config reload failed", "error", err)
		return notifyCmd(b, "Config reload failed", err.Error())
	}
	if missing := cfg.Hydrate(b.palette); len(missing) > 0 {
		b.log.Warn("unknown palette references", "names", missing)
	}

	layoutChanged := cfg.Layout != b.cfg.Layout
	b.cfg = cfg
	if layoutChanged && b.barOpen {
		b.reopenBar()
	}
	b.log.Info("config reloaded", "modules", len(cfg.Modules), "layout_changed", layoutChanged)
	return nil
}

// applyMpris routes one media event through the aggregator and pushes
// the resulting gradient into the visualizer.
func (b *Bar) applyMpris(ev mpris.Event) []tea.Cmd {
	if b.svc.Players == nil {
		return nil
	}
	res := b.svc.Players.Update(ev)
	if res.Gradient != nil && b.svc.Audio != nil {
		b.svc.Audio.SetGradient(*res.Gradient)
	}
	if res.Fetch != nil {
		return []tea.Cmd{fetchArt(res.Fetch)}
	}
	return nil
}

// handleAudioFrame ingests one captured block and arms the 60 Hz frame
// timer if the visualizer just woke up.
func (b *Bar) handleAudioFrame(msg AudioFrameMsg) tea.Cmd {
	if b.svc.Audio == nil {
		return nil
	}
	cmds := []tea.Cmd{waitAudioFrame(b.svc.Audio)}
	if msg.OK {
		b.svc.Audio.Ingest(msg.Frame.Samples)
		if b.svc.Audio.Animating() && !b.frameTimer {
			b.frameTimer = true
			cmds = append(cmds, frameTick())
		}
	}
	return tea.Batch(cmds...)
}

// handleAudioTick advances the drain animation. The timer disarms once
// every bar has settled, so a silent bar costs no wakeups.
func (b *Bar) handleAudioTick() tea.Cmd {
	if b.svc.Audio == nil {
		b.frameTimer = false
		return nil
	}
	b.svc.Audio.Tick()
	if b.svc.Audio.Animating() {
		return frameTick()
	}
	b.frameTimer = false
	return nil
}

// openTooltip measures the widget's zone and records the tooltip as the
// single active overlay.
func (b *Bar) openTooltip(id string) {
	text := b.tooltipText(id)
	if text == "" {
		return
	}
	z := b.zones.Get(id)
	if z.IsZero() {
		return
	}
	b.tooltip = &Tooltip{
		WidgetID: id,
		Text:     text,
		Bounds: Bounds{
			X:      z.StartX,
			Y:      z.StartY,
			Width:  z.EndX - z.StartX,
			Height: z.EndY - z.StartY,
		},
	}
}

// handleMouse hit-tests the pointer against module zones: presses and
// wheel events run mouse binds, motion drives tooltip hover.
func (b *Bar) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if !b.barOpen {
		return nil
	}

	mod, id, hit := b.moduleAt(msg)

	if msg.Action == tea.MouseActionMotion {
		b.trackWorkspaceHover(msg)
		return b.hoverCmd(mod, id, hit)
	}

	button, ok := bindButton(msg)
	if !ok || !hit {
		return nil
	}
	bind := mod.Binds.For(button)
	if bind == nil {
		return b.defaultAction(mod, msg, button)
	}

	if bind.Media != "" {
		ctrl, err := config.ParseMediaControl(bind.Media)
		if err != nil {
			b.log.Error("invalid media bind", "media", bind.Media, "error", err)
			return nil
		}
		player := ""
		if p := b.displayedPlayer(); p != nil {
			player = p.Name
		}
		return func() tea.Msg {
			return MediaControlMsg{Player: player, Control: ctrl}
		}
	}

	argv := bind.Argv()
	return func() tea.Msg {
		return CommandMsg{Argv: argv}
	}
}

// moduleAt finds the configured module whose zone contains the pointer.
func (b *Bar) moduleAt(msg tea.MouseMsg) (config.Module, string, bool) {
	for _, m := range b.cfg.Modules {
		id := moduleZoneID(m)
		if z := b.zones.Get(id); !z.IsZero() && z.InBounds(msg) {
			return m, id, true
		}
	}
	return config.Module{}, "", false
}

// trackWorkspaceHover mirrors the pointed-at workspace into the
// compositor state so the switcher can highlight it.
func (b *Bar) trackWorkspaceHover(msg tea.MouseMsg) {
	if b.svc.Niri == nil {
		return
	}
	b.svc.Niri.HoveredWorkspaceID = nil
	for _, ws := range b.svc.Niri.SortedWorkspaces() {
		if z := b.zones.Get(workspaceZoneID(ws.ID)); !z.IsZero() && z.InBounds(msg) {
			id := ws.ID
			b.svc.Niri.HoveredWorkspaceID = &id
			return
		}
	}
}

// hoverCmd opens the hovered module's tooltip and closes a tooltip
// whose owner the pointer has left.
func (b *Bar) hoverCmd(mod config.Module, id string, hit bool) tea.Cmd {
	if hit && b.tooltipText(id) != "" {
		if b.tooltip == nil || b.tooltip.WidgetID != id {
			return func() tea.Msg { return OpenTooltipMsg{ID: id} }
		}
		return nil
	}
	if b.tooltip != nil && (!hit || b.tooltip.WidgetID != id) {
		open := b.tooltip.WidgetID
		return func() tea.Msg { return CloseTooltipMsg{ID: open} }
	}
	return nil
}

// defaultAction covers interactions that work without explicit binds:
// workspace and window focus on the niri module, tray item activation.
func (b *Bar) defaultAction(mod config.Module, msg tea.MouseMsg, button config.MouseButton) tea.Cmd {
	switch mod.Kind {
	case config.KindNiri:
		return b.niriClick(msg, button)
	case config.KindSystemTray:
		return b.trayClick(msg, button)
	}
	return nil
}

// niriClick resolves clicks on individual workspace and window zones.
func (b *Bar) niriClick(msg tea.MouseMsg, button config.MouseButton) tea.Cmd {
	if b.svc.Niri == nil || b.svc.NiriSend == nil {
		return nil
	}
	send := b.svc.NiriSend

	for _, ws := range b.svc.Niri.SortedWorkspaces() {
		wsID := workspaceZoneID(ws.ID)
		if z := b.zones.Get(wsID); !z.IsZero() && z.InBounds(msg) && button == config.MouseLeft {
			id := ws.ID
			return func() tea.Msg {
				action := niri.Action{FocusWorkspace: &niri.FocusWorkspace{Reference: niri.WorkspaceReference{ID: id}}}
				if err := send(action); err != nil {
					return ErrorMsg{Text: fmt.Sprintf("focus workspace %d: %v", id, err)}
				}
				return NoOpMsg{}
			}
		}

		for _, w := range ws.SortedWindows() {
			z := b.zones.Get(windowZoneID(w.ID))
			if z.IsZero() || !z.InBounds(msg) {
				continue
			}
			id := w.ID
			switch button {
			case config.MouseLeft:
				return func() tea.Msg {
					if err := send(niri.Action{FocusWindow: &niri.FocusWindow{ID: id}}); err != nil {
						return ErrorMsg{Text: fmt.Sprintf("focus window %d: %v", id, err)}
					}
					return NoOpMsg{}
				}
			case config.MouseMiddle:
				return func() tea.Msg {
					if err := send(niri.Action{CloseWindow: &niri.CloseWindow{ID: &id}}); err != nil {
						return ErrorMsg{Text: fmt.Sprintf("close window %d: %v", id, err)}
					}
					return NoOpMsg{}
				}
			}
		}
	}
	return nil
}

// trayClick forwards primary and middle clicks to the item under the
// pointer.
func (b *Bar) trayClick(msg tea.MouseMsg, button config.MouseButton) tea.Cmd {
	if b.svc.Tray == nil {
		return nil
	}
	for _, item := range b.tray {
		z := b.zones.Get(trayZoneID(item.Service))
		if z.IsZero() || !z.InBounds(msg) {
			continue
		}
		host, service := b.svc.Tray, item.Service
		x, y := int32(msg.X), int32(msg.Y)
		switch button {
		case config.MouseLeft:
			return func() tea.Msg {
				if err := host.Activate(service, x, y); err != nil {
					return ErrorMsg{Text: err.Error()}
				}
				return NoOpMsg{}
			}
		case config.MouseMiddle:
			return func() tea.Msg {
				if err := host.SecondaryActivate(service, x, y); err != nil {
					return ErrorMsg{Text: err.Error()}
				}
				return NoOpMsg{}
			}
		}
	}
	return nil
}

// bindButton maps a terminal mouse event to a bind slot. Motion and
// releases carry no bind.
func bindButton(msg tea.MouseMsg) (config.MouseButton, bool) {
	if msg.Action == tea.MouseActionRelease {
		return 0, false
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		return config.MouseLeft, true
	case tea.MouseButtonRight:
		return config.MouseRight, true
	case tea.MouseButtonMiddle:
		return config.MouseMiddle, true
	case tea.MouseButtonWheelUp:
		return config.ScrollUp, true
	case tea.MouseButtonWheelDown:
		return config.ScrollDown, true
	case tea.MouseButtonWheelLeft:
		return config.ScrollLeft, true
	case tea.MouseButtonWheelRight:
		return config.ScrollRight, true
	}
	return 0, false
}

// tooltipText returns the hover text a module advertises, empty when
// the module has none.
func (b *Bar) tooltipText(id string) string {
	for _, m := range b.cfg.Modules {
		if moduleZoneID(m) != id {
			continue
		}
		switch m.Kind {
		case config.KindTime:
			opts := config.DefaultTimeOptions()
			if m.Time != nil {
				opts = *m.Time
			}
			return b.now.Format(opts.TooltipFormat)
		case config.KindLabel:
			if m.Label != nil {
				return m.Label.Tooltip
			}
		case config.KindBattery:
			if b.svc.Battery == nil {
				return ""
			}
			return batteryTooltip(b.power)
		}
		return ""
	}
	return ""
}

// batteryTooltip summarizes every tracked battery.
func batteryTooltip(s battery.Snapshot) string {
	if len(s.Batteries) == 0 {
		return "No battery"
	}
	lines := make([]string, len(s.Batteries))
	for i, info := range s.Batteries {
		lines[i] = fmt.Sprintf("%s: %.0f%% (%s)", info.Name, info.Fraction*100, info.State)
	}
	return strings.Join(lines, "\n")
}
