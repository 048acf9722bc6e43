// frostbar is a status bar core for the niri Wayland compositor.
//
// It renders a clock, battery gauge, audio visualizer, media player,
// workspace switcher, labels, and a status-notifier tray, configured
// through a TOML file that reloads live.
//
// Usage:
//
//	frostbar [flags]
//	frostbar [flags] validate
//
// Flags:
//
//	-config string  Configuration directory (default: $XDG_CONFIG_HOME/frostbar)
//	-verbose        Enable verbose logging
//	-version        Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/frostbar/pkg/app"
	"gitlab.com/tinyland/lab/frostbar/pkg/audio"
	"gitlab.com/tinyland/lab/frostbar/pkg/battery"
	"gitlab.com/tinyland/lab/frostbar/pkg/config"
	"gitlab.com/tinyland/lab/frostbar/pkg/icons"
	"gitlab.com/tinyland/lab/frostbar/pkg/logging"
	"gitlab.com/tinyland/lab/frostbar/pkg/mpris"
	"gitlab.com/tinyland/lab/frostbar/pkg/niri"
	"gitlab.com/tinyland/lab/frostbar/pkg/notify"
	"gitlab.com/tinyland/lab/frostbar/pkg/systray"
	"gitlab.com/tinyland/lab/frostbar/pkg/watcher"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// batterySysDir is the kernel's power-supply class directory.
const batterySysDir = "/sys/class/power_supply"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configDir   = flag.String("config", "", "Configuration directory")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("frostbar %s (%s)\n", version, commit)
		return 0
	}

	dir := config.Dir(*configDir)
	configPath, palettePath := config.Paths(dir)

	switch flag.Arg(0) {
	case "":
	case "validate":
		return validate(configPath, palettePath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		return 2
	}

	log, closeLog := logging.Setup(*verbose)
	defer closeLog()

	cfg, palette, err := loadConfig(configPath, palettePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		log.Warn("stdout is not a terminal; rendering may be degraded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, ch := buildServices(ctx, cfg, configPath, palettePath, log)

	bar := app.New(cfg, palette, configPath, palettePath, svc, ch, log)
	if termenv.EnvNoColor() {
		log.Info("color output disabled by environment")
	}
	p := tea.NewProgram(bar, tea.WithAltScreen(), tea.WithMouseAllMotion())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			log.Info("received shutdown signal")
			p.Quit()
		case <-ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil {
		log.Error("bar exited", "error", err)
		return 1
	}

	log.Info("clean shutdown")
	return 0
}

// validate parses and checks both config files without starting the
// bar. Missing files validate clean, matching the bar's fall back to
// defaults.
func validate(configPath, palettePath string) int {
	if _, _, err := loadConfig(configPath, palettePath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Println("ok")
	return 0
}

// loadConfig reads, validates, and hydrates the startup configuration.
// A missing config file yields the built-in default bar.
func loadConfig(configPath, palettePath string) (*config.Config, config.Palette, error) {
	palette := config.Palette{}
	if _, err := os.Stat(palettePath); err == nil {
		palette, err = config.LoadPalette(palettePath)
		if err != nil {
			return nil, nil, err
		}
	}

	cfg := config.Default()
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	cfg.Hydrate(palette)
	return cfg, palette, nil
}

// buildServices starts one producer per configured module kind. A
// producer that cannot start logs and leaves its module inert rather
// than failing the whole bar.
func buildServices(ctx context.Context, cfg *config.Config, configPath, palettePath string, log *slog.Logger) (app.Services, app.Channels) {
	var svc app.Services
	var ch app.Channels

	ch.Watch = watcher.Run(ctx, watcher.Paths{Config: configPath, Colors: palettePath})

	if cfg.HasKind(config.KindBattery) {
		svc.Battery = battery.New(batterySysDir, log)
	}

	if cfg.HasKind(config.KindCava) {
		buf := audio.NewCaptureBuffer()
		svc.Audio = audio.NewService(buf, audio.NewFormat(audio.DefaultSampleRate, audio.DefaultChannels))
		capture := audio.NewCapture(buf, log)
		go func() {
			if err := capture.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("audio capture stopped", "error", err)
			}
		}()
	}

	if cfg.HasKind(config.KindNiri) {
		client, err := niri.Dial(log)
		if err != nil {
			log.Error("niri unavailable", "error", err)
		} else {
			svc.Niri = niri.NewState()
			svc.NiriSend = client.Send
			ch.Niri = client.Events()
			go func() {
				if err := client.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error("niri event stream stopped", "error", err)
				}
			}()
		}
	}

	needsTray := cfg.HasKind(config.KindSystemTray)
	needsMpris := cfg.HasKind(config.KindMpris) || cfg.HasKind(config.KindCava)

	var cache *icons.Cache
	if needsTray || cfg.HasKind(config.KindNiri) {
		cache = icons.NewCache(icons.NewLookup(os.Getenv("FROSTBAR_ICON_THEME")), log)
		svc.Icons = cache
	}

	if conn, err := dbus.ConnectSessionBus(); err != nil {
		log.Error("session bus unavailable", "error", err)
	} else {
		svc.Notify = notify.New(conn)
		if needsMpris {
			svc.Media = mpris.NewController(conn)
		}
	}

	if needsMpris {
		listener, err := mpris.NewListener(log)
		if err != nil {
			log.Error("mpris unavailable", "error", err)
		} else {
			svc.Players = mpris.NewAggregator(mpris.NewArtCache(log), log)
			ch.Mpris = listener.Events()
			go func() {
				if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error("mpris listener stopped", "error", err)
				}
			}()
		}
	}

	if needsTray && cache != nil {
		host, err := systray.NewHost(cache, log)
		if err != nil {
			log.Error("systray unavailable", "error", err)
		} else {
			svc.Tray = host
			ch.Tray = host.Events()
			go func() {
				if err := host.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error("systray host stopped", "error", err)
				}
			}()
		}
	}

	return svc, ch
}
