package app

import (
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/frostbar/pkg/audio"
	"gitlab.com/tinyland/lab/frostbar/pkg/config"
	"gitlab.com/tinyland/lab/frostbar/pkg/mpris"
	"gitlab.com/tinyland/lab/frostbar/pkg/niri"
	"gitlab.com/tinyland/lab/frostbar/pkg/watcher"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func timeConfig(format string) *config.Config {
	cfg := config.Default()
	opts := config.DefaultTimeOptions()
	opts.Format = format
	cfg.Modules = []config.Module{{
		Kind:    config.KindTime,
		Section: config.SectionStart,
		Time:    &opts,
	}}
	return cfg
}

func newBar(cfg *config.Config, svc Services) *Bar {
	return New(cfg, config.Palette{}, "", "", svc, Channels{}, discard())
}

func update(b *Bar, msg tea.Msg) (*Bar, tea.Cmd) {
	m, cmd := b.Update(msg)
	return m.(*Bar), cmd
}

func openBar(t *testing.T, b *Bar) *Bar {
	t.Helper()
	b, _ = update(b, tea.WindowSizeMsg{Width: 4, Height: 60})
	if !b.Open() {
		t.Fatal("bar should open on the first window size message")
	}
	return b
}

func TestFirstWindowSizeOpensBar(t *testing.T) {
	b := newBar(timeConfig("15:04"), Services{})

	if b.Open() || b.View() != "" {
		t.Fatal("bar should render nothing before its window opens")
	}

	b = openBar(t, b)
	if b.Window() != 1 {
		t.Errorf("window = %d, want 1", b.Window())
	}

	b, _ = update(b, tea.WindowSizeMsg{Width: 4, Height: 50})
	if b.Window() != 1 {
		t.Error("a resize must not reopen the window")
	}
}

func TestTickRendersClock(t *testing.T) {
	b := openBar(t, newBar(timeConfig("15:04"), Services{}))

	at := time.Date(2026, 8, 25, 13, 37, 0, 0, time.UTC)
	b, cmd := update(b, TickMsg{Time: at})

	if cmd == nil {
		t.Error("a tick must schedule the next tick")
	}
	if !strings.Contains(b.View(), "13:37") {
		t.Errorf("view should show the clock, got %q", b.View())
	}
}

func TestBatteryRendersQuestionMarkWithoutBattery(t *testing.T) {
	cfg := config.Default()
	cfg.Modules = []config.Module{{Kind: config.KindBattery, Section: config.SectionEnd}}
	b := openBar(t, newBar(cfg, Services{}))

	if !strings.Contains(b.View(), "?") {
		t.Errorf("no battery should render as ?, got %q", b.View())
	}
}

func writeConfig(t *testing.T, path string, width int) {
	t.Helper()
	body := "[layout]\nwidth = " + strconv.Itoa(width) + "\nanchor = \"left\"\n\n[[start]]\ntype = \"time\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLayoutChangeReopensWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, 30)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	b := New(cfg, config.Palette{}, path, filepath.Join(dir, "colors.toml"), Services{}, Channels{}, discard())
	b = openBar(t, b)
	before := b.Window()
	b.tooltip = &Tooltip{WidgetID: "mod/start/time/0", Text: "now"}

	writeConfig(t, path, 50)
	b, _ = update(b, WatcherMsg{Result: watcher.CheckResult{Config: watcher.Changed}})

	if b.cfg.Layout.Width != 50 {
		t.Errorf("width = %d, want 50 after reload", b.cfg.Layout.Width)
	}
	if b.Window() != before+1 {
		t.Errorf("window = %d, want %d: a layout change must reopen the bar", b.Window(), before+1)
	}
	if b.tooltip == nil {
		t.Error("the tooltip overlay must survive a bar reopen")
	}
}

func TestBrokenReloadKeepsRunningConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, 30)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	b := New(cfg, config.Palette{}, path, "", Services{}, Channels{}, discard())
	b = openBar(t, b)

	if err := os.WriteFile(path, []byte("[[start]\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, _ = update(b, WatcherMsg{Result: watcher.CheckResult{Config: watcher.Changed}})

	if b.cfg.Layout.Width != 30 {
		t.Errorf("width = %d, want the previous 30 after a failed reload", b.cfg.Layout.Width)
	}
	if b.Window() != 1 {
		t.Error("a failed reload must not touch the window")
	}
}

func TestTooltipCloseChecksIdentity(t *testing.T) {
	b := openBar(t, newBar(timeConfig("15:04"), Services{}))
	b.tooltip = &Tooltip{WidgetID: "mod/start/time/0", Text: "now"}

	b, _ = update(b, CloseTooltipMsg{ID: "mod/end/battery/0"})
	if b.tooltip == nil {
		t.Fatal("a stale close must not dismiss another widget's tooltip")
	}

	b, _ = update(b, CloseTooltipMsg{ID: "mod/start/time/0"})
	if b.tooltip != nil {
		t.Error("a matching close must dismiss the tooltip")
	}
}

func artURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "art.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return "file://" + path
}

func TestMprisGradientReachesVisualizer(t *testing.T) {
	svc := Services{
		Audio:   audio.NewService(audio.NewCaptureBuffer(), audio.NewFormat(audio.DefaultSampleRate, audio.DefaultChannels)),
		Players: mpris.NewAggregator(mpris.NewArtCache(discard()), discard()),
	}
	b := openBar(t, newBar(timeConfig("15:04"), svc))

	url := artURL(t)
	b, _ = update(b, MprisMsg{Event: mpris.PlayerAppeared{
		Name:     mpris.BusPrefix + "p",
		Status:   mpris.StatusPlaying,
		Metadata: mpris.Metadata{ArtURL: &url},
	}})

	if len(svc.Audio.Gradient) != mpris.BarSteps*2 {
		t.Fatalf("gradient length = %d, want %d", len(svc.Audio.Gradient), mpris.BarSteps*2)
	}

	b, _ = update(b, MprisMsg{Event: mpris.PlayerVanished{Name: mpris.BusPrefix + "p"}})
	if svc.Audio.Gradient != nil {
		t.Error("the gradient must clear when the dominant player leaves")
	}
}

func TestMprisModuleShowsTrackTitle(t *testing.T) {
	cfg := config.Default()
	cfg.Layout.Anchor = config.AnchorTop
	cfg.Modules = []config.Module{{Kind: config.KindMpris, Section: config.SectionStart}}
	svc := Services{Players: mpris.NewAggregator(mpris.NewArtCache(discard()), discard())}
	b := openBar(t, newBar(cfg, svc))

	if !strings.Contains(b.View(), config.DefaultMprisOptions().Placeholder) {
		t.Errorf("view without players should show the placeholder, got %q", b.View())
	}

	title, artist := "Track", "Band"
	b, _ = update(b, MprisMsg{Event: mpris.PlayerAppeared{
		Name:     mpris.BusPrefix + "p",
		Status:   mpris.StatusPlaying,
		Metadata: mpris.Metadata{Title: &title, Artist: &artist},
	}})

	if !strings.Contains(b.View(), "Track - Band") {
		t.Errorf("view should show the playing track, got %q", b.View())
	}
}

func TestMotionClearsWorkspaceHoverOutsideZones(t *testing.T) {
	state := niri.NewState()
	state.Apply(niri.Event{WorkspacesChanged: &niri.WorkspacesChanged{
		Workspaces: []niri.Workspace{{ID: 1, Index: 0, IsActive: true}},
	}})
	id := uint64(1)
	state.HoveredWorkspaceID = &id

	cfg := config.Default()
	cfg.Modules = []config.Module{{Kind: config.KindNiri, Section: config.SectionStart}}
	b := openBar(t, newBar(cfg, Services{Niri: state}))

	b, _ = update(b, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})

	if state.HoveredWorkspaceID != nil {
		t.Error("motion outside every workspace zone must clear the hover")
	}
}

func TestAudioFrameArmsAndDrainsTimer(t *testing.T) {
	svc := Services{
		Audio: audio.NewService(audio.NewCaptureBuffer(), audio.NewFormat(audio.DefaultSampleRate, 1)),
	}
	b := openBar(t, newBar(timeConfig("15:04"), svc))

	samples := make([]float32, 512)
	for i := range samples {
		samples[i] = 0.5
	}
	b, cmd := update(b, AudioFrameMsg{Frame: audio.CapturedAudio{Samples: samples}, OK: true})
	if cmd == nil || !b.frameTimer {
		t.Fatal("a real frame must arm the animation timer")
	}

	for i := 0; i < 100 && b.frameTimer; i++ {
		b, _ = update(b, AudioTickMsg{})
	}
	if b.frameTimer {
		t.Error("the timer must disarm once the bars settle")
	}
}

func TestAudioTimeoutOnlyRearms(t *testing.T) {
	svc := Services{
		Audio: audio.NewService(audio.NewCaptureBuffer(), audio.NewFormat(audio.DefaultSampleRate, 1)),
	}
	b := openBar(t, newBar(timeConfig("15:04"), svc))

	b, cmd := update(b, AudioFrameMsg{OK: false})
	if cmd == nil {
		t.Error("a timed-out pop must re-arm the listener")
	}
	if b.frameTimer {
		t.Error("a timed-out pop must not start the animation")
	}
}

func TestBindButtonMapping(t *testing.T) {
	cases := []struct {
		name   string
		msg    tea.MouseMsg
		want   config.MouseButton
		wantOK bool
	}{
		{"left", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}, config.MouseLeft, true},
		{"right", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonRight}, config.MouseRight, true},
		{"middle", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonMiddle}, config.MouseMiddle, true},
		{"wheel up", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp}, config.ScrollUp, true},
		{"wheel left", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelLeft}, config.ScrollLeft, true},
		{"release ignored", tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := bindButton(tc.msg)
			if ok != tc.wantOK || (ok && got != tc.want) {
				t.Errorf("bindButton = %v, %v; want %v, %v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestCommandDoneSchedulesNothing(t *testing.T) {
	b := openBar(t, newBar(timeConfig("15:04"), Services{}))
	before := b.View()

	b, cmd := update(b, CommandDoneMsg{Argv: []string{"true"}})
	if cmd != nil {
		t.Error("a finished command must not schedule follow-ups")
	}
	if b.View() != before {
		t.Error("a finished command must not change the view")
	}
}
