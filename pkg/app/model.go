package app

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/frostbar/pkg/audio"
	"gitlab.com/tinyland/lab/frostbar/pkg/battery"
	"gitlab.com/tinyland/lab/frostbar/pkg/config"
	"gitlab.com/tinyland/lab/frostbar/pkg/icons"
	"gitlab.com/tinyland/lab/frostbar/pkg/mpris"
	"gitlab.com/tinyland/lab/frostbar/pkg/niri"
	"gitlab.com/tinyland/lab/frostbar/pkg/notify"
	"gitlab.com/tinyland/lab/frostbar/pkg/systray"
	"gitlab.com/tinyland/lab/frostbar/pkg/watcher"
)

// Bounds is a widget's measured screen rectangle in cells.
type Bounds struct {
	X, Y          int
	Width, Height int
}

// Tooltip is the single open tooltip overlay, keyed by the owning
// widget so a stale close request cannot dismiss a newer tooltip.
type Tooltip struct {
	WidgetID string
	Text     string
	Bounds   Bounds
}

// Services bundles the long-running producers the bar reads from. Any
// field may be nil when no configured module needs it.
type Services struct {
	Battery *battery.Poller
	Audio   *audio.Service
	Players *mpris.Aggregator
	Media   *mpris.Controller
	Niri    *niri.State
	Tray    *systray.Host
	Icons   *icons.Cache
	Notify  *notify.Notifier

	// NiriSend queues a compositor action; nil when niri is absent.
	NiriSend func(niri.Action) error
}

// Channels are the producer event streams. A nil channel simply never
// arms a listener.
type Channels struct {
	Watch <-chan watcher.CheckResult
	Niri  <-chan niri.Event
	Mpris <-chan mpris.Event
	Tray  <-chan systray.Event
}

// Bar is the single-writer UI model. All service state mutates here,
// on the program's update loop; producers only send messages.
type Bar struct {
	log *slog.Logger

	cfg         *config.Config
	palette     config.Palette
	configPath  string
	palettePath string

	svc Services
	ch  Channels

	now   time.Time
	power battery.Snapshot
	tray  []systray.Item

	monitorW, monitorH int
	barOpen            bool
	// window is the logical surface identity; reopening the bar after a
	// layout change bumps it so stale per-window messages are dropped.
	window int

	tooltip *Tooltip

	// frameTimer is true while a 60 Hz visualizer tick is in flight.
	frameTimer bool

	zones *zone.Manager
}

// New builds the bar model around already-constructed services.
func New(cfg *config.Config, palette config.Palette, configPath, palettePath string, svc Services, ch Channels, log *slog.Logger) *Bar {
	if log == nil {
		log = slog.Default()
	}
	return &Bar{
		log:         log,
		cfg:         cfg,
		palette:     palette,
		configPath:  configPath,
		palettePath: palettePath,
		svc:         svc,
		ch:          ch,
		now:         time.Now(),
		zones:       zone.New(),
	}
}

// Init arms the clock and every producer listener.
func (b *Bar) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(time.Now())}
	if b.svc.Battery != nil {
		cmds = append(cmds, pollBattery(b.svc.Battery))
	}
	if b.ch.Watch != nil {
		cmds = append(cmds, listenWatcher(b.ch.Watch))
	}
	if b.ch.Niri != nil {
		cmds = append(cmds, listenNiri(b.ch.Niri))
	}
	if b.ch.Mpris != nil {
		cmds = append(cmds, listenMpris(b.ch.Mpris))
	}
	if b.ch.Tray != nil {
		cmds = append(cmds, listenTray(b.ch.Tray))
	}
	if b.svc.Audio != nil {
		cmds = append(cmds, waitAudioFrame(b.svc.Audio))
	}
	return tea.Batch(cmds...)
}

// Window reports the current logical window identity.
func (b *Bar) Window() int {
	return b.window
}

// Open reports whether the bar surface is mapped.
func (b *Bar) Open() bool {
	return b.barOpen
}

// displayedPlayer is the media player the mpris module renders and the
// target for media-control binds. The list is insertion ordered, so
// this is simply the oldest surviving player.
func (b *Bar) displayedPlayer() *mpris.Player {
	if b.svc.Players == nil {
		return nil
	}
	players := b.svc.Players.Players()
	if len(players) == 0 {
		return nil
	}
	return players[0]
}
