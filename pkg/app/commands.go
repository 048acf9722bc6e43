package app

import (
	"bytes"
	"log/slog"
	"os/exec"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/frostbar/pkg/audio"
	"gitlab.com/tinyland/lab/frostbar/pkg/battery"
	"gitlab.com/tinyland/lab/frostbar/pkg/config"
	"gitlab.com/tinyland/lab/frostbar/pkg/mpris"
	"gitlab.com/tinyland/lab/frostbar/pkg/niri"
	"gitlab.com/tinyland/lab/frostbar/pkg/systray"
	"gitlab.com/tinyland/lab/frostbar/pkg/watcher"
)

// audioPopTimeout bounds one frame wait so the listener re-arms and
// notices shutdown even when capture goes quiet.
const audioPopTimeout = time.Second

// tickCmd schedules the next whole-second clock tick.
func tickCmd(now time.Time) tea.Cmd {
	next := now.Truncate(time.Second).Add(time.Second)
	return tea.Tick(time.Until(next), func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// frameTick schedules one visualizer animation frame.
func frameTick() tea.Cmd {
	return tea.Tick(audio.FrameInterval, func(time.Time) tea.Msg {
		return AudioTickMsg{}
	})
}

func pollBattery(p *battery.Poller) tea.Cmd {
	return func() tea.Msg {
		return BatteryMsg{Snapshot: p.Poll()}
	}
}

// The listen commands block on one channel receive each and re-arm
// from Update. A closed channel yields nil, which bubbletea discards,
// ending that listener for good.

func listenWatcher(ch <-chan watcher.CheckResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return WatcherMsg{Result: res}
	}
}

func listenNiri(ch <-chan niri.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return NiriClosedMsg{}
		}
		return NiriMsg{Event: ev}
	}
}

func listenMpris(ch <-chan mpris.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return MprisMsg{Event: ev}
	}
}

func listenTray(ch <-chan systray.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return TrayMsg{Event: ev}
	}
}

// waitAudioFrame pops one captured block from the ring. Timeouts come
// back with OK false and just re-arm.
func waitAudioFrame(s *audio.Service) tea.Cmd {
	return func() tea.Msg {
		frame, ok := s.PopFrame(audioPopTimeout)
		return AudioFrameMsg{Frame: frame, OK: ok}
	}
}

// fetchArt runs a deferred album-art download off the update loop.
func fetchArt(fetch func() mpris.Event) tea.Cmd {
	return func() tea.Msg {
		return ArtMsg{Event: fetch()}
	}
}

// runBind spawns a mouse-bind command. The process runs detached from
// the update loop; its outcome comes back as a CommandDoneMsg.
func runBind(argv []string) tea.Cmd {
	return func() tea.Msg {
		if len(argv) == 0 {
			return NoOpMsg{}
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		return CommandDoneMsg{
			Argv:   argv,
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Err:    err,
		}
	}
}

// runMediaControl dispatches a media verb over the bus. Failures only
// log; the bar itself never degrades over a flaky player.
func runMediaControl(media *mpris.Controller, log *slog.Logger, player string, ctrl config.MediaControl) tea.Cmd {
	return func() tea.Msg {
		if media == nil || player == "" {
			return NoOpMsg{}
		}
		if err := media.Do(player, ctrl); err != nil {
			log.Warn("media control failed", "player", player, "verb", ctrl.Verb, "error", err)
			return NoOpMsg{}
		}
		return NoOpMsg{}
	}
}

// notifyCmd raises a desktop notification without blocking updates.
func notifyCmd(b *Bar, summary, body string) tea.Cmd {
	return func() tea.Msg {
		if b.svc.Notify == nil {
			return NoOpMsg{}
		}
		if err := b.svc.Notify.Send(summary, body); err != nil {
			return ErrorMsg{Text: err.Error()}
		}
		return NoOpMsg{}
	}
}
