package config

import (
	"reflect"
	"strings"
	"testing"
)

const sampleConfig = `
[layout]
width = 30
gaps = 4
anchor = "left"
layer = "top"

[style]
background = "$base"
border_radius = 8

[[start]]
type = "niri"
spacing = 12

[[middle]]
type = "time"
format = "15:04"

[[end]]
type = "battery"
charging_color = "$green"

[[end]]
type = "mpris"

[end.binds.mouse_left]
media = "play-pause"
`

const samplePalette = `
base = "#1A1B26"
green = "#73F5AB"
`

func parseSample(t *testing.T) *Config {
	t.Helper()
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestParseLayoutAndStyle(t *testing.T) {
	cfg := parseSample(t)

	if cfg.Layout.Width != 30 {
		t.Errorf("width = %d, want 30", cfg.Layout.Width)
	}
	if cfg.Layout.Gaps != 4 {
		t.Errorf("gaps = %d, want 4", cfg.Layout.Gaps)
	}
	if cfg.Layout.Anchor != AnchorLeft {
		t.Errorf("anchor = %v, want left", cfg.Layout.Anchor)
	}
	if cfg.Layout.Layer != LayerTop {
		t.Errorf("layer = %v, want top", cfg.Layout.Layer)
	}
	if cfg.Style.BorderRadius != Uniform(8) {
		t.Errorf("border_radius = %+v, want uniform 8", cfg.Style.BorderRadius)
	}
}

func TestParseModuleOrderAndSections(t *testing.T) {
	cfg := parseSample(t)

	if len(cfg.Modules) != 4 {
		t.Fatalf("got %d modules, want 4", len(cfg.Modules))
	}
	want := []struct {
		kind    Kind
		section Section
		index   int
	}{
		{KindNiri, SectionStart, 0},
		{KindTime, SectionMiddle, 0},
		{KindBattery, SectionEnd, 0},
		{KindMpris, SectionEnd, 1},
	}
	for i, w := range want {
		m := cfg.Modules[i]
		if m.Kind != w.kind || m.Section != w.section || m.Index != w.index {
			t.Errorf("module %d = (%v, %v, %d), want (%v, %v, %d)",
				i, m.Kind, m.Section, m.Index, w.kind, w.section, w.index)
		}
	}
}

func TestParseFillsDefaults(t *testing.T) {
	cfg := parseSample(t)

	niri := cfg.Modules[0].Niri
	if niri == nil {
		t.Fatal("niri options missing")
	}
	if niri.Spacing != 12 {
		t.Errorf("niri spacing = %d, want 12 (explicit)", niri.Spacing)
	}
	if niri.WorkspaceOffset != 0 {
		t.Errorf("workspace_offset = %d, want default 0", niri.WorkspaceOffset)
	}

	mpris := cfg.Modules[3].Mpris
	if mpris == nil || mpris.Placeholder != DefaultMprisOptions().Placeholder {
		t.Errorf("mpris placeholder not defaulted: %+v", mpris)
	}
}

func TestParseMediaBindOnMpris(t *testing.T) {
	cfg := parseSample(t)

	bind := cfg.Modules[3].Binds.MouseLeft
	if bind == nil {
		t.Fatal("mpris mouse_left bind missing")
	}
	ctl, err := ParseMediaControl(bind.Media)
	if err != nil {
		t.Fatalf("ParseMediaControl: %v", err)
	}
	if ctl.Verb != MediaPlayPause {
		t.Errorf("verb = %v, want play-pause", ctl.Verb)
	}
}

func TestMediaBindRejectedOnNonMpris(t *testing.T) {
	src := `
[[start]]
type = "label"
text = "x"
[start.binds.mouse_left]
media = "next"
`
	if _, err := Parse([]byte(src)); err == nil {
		t.Fatal("expected error for media bind on label module")
	}
}

func TestUnknownModuleTypeFails(t *testing.T) {
	src := `
[[start]]
type = "frobnicator"
`
	_, err := Parse([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "unknown module type") {
		t.Fatalf("err = %v, want unknown module type", err)
	}
}

func TestPerCornerBorderRadius(t *testing.T) {
	src := `
[style]
[style.border_radius]
top_left = 4
bottom_right = 2
`
	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Corners{TopLeft: 4, BottomRight: 2}
	if cfg.Style.BorderRadius != want {
		t.Errorf("border_radius = %+v, want %+v", cfg.Style.BorderRadius, want)
	}
}

func TestHydrateResolvesVariables(t *testing.T) {
	cfg := parseSample(t)
	palette, err := ParsePalette([]byte(samplePalette))
	if err != nil {
		t.Fatalf("ParsePalette: %v", err)
	}

	unresolved := cfg.Hydrate(palette)
	if len(unresolved) != 0 {
		t.Fatalf("unresolved = %v, want none", unresolved)
	}
	if cfg.Style.Background != "#1A1B26" {
		t.Errorf("background = %q, want #1A1B26", cfg.Style.Background)
	}
	if got := cfg.Modules[2].Battery.ChargingColor; got != "#73F5AB" {
		t.Errorf("charging_color = %q, want #73F5AB", got)
	}
}

func TestHydrateUnresolvedUsesFallback(t *testing.T) {
	cfg := parseSample(t)

	unresolved := cfg.Hydrate(Palette{})
	if len(unresolved) != 2 {
		t.Fatalf("unresolved = %v, want [base green]", unresolved)
	}
	if cfg.Style.Background != FallbackColor {
		t.Errorf("background = %q, want loud fallback", cfg.Style.Background)
	}
}

func TestHydrateIdempotentOnLiterals(t *testing.T) {
	cfg := parseSample(t)
	palette, _ := ParsePalette([]byte(samplePalette))
	cfg.Hydrate(palette)

	before := *cfg
	beforeModules := append([]Module(nil), cfg.Modules...)

	if unresolved := cfg.Hydrate(palette); len(unresolved) != 0 {
		t.Fatalf("second hydrate unresolved = %v", unresolved)
	}
	if cfg.Layout != before.Layout || cfg.Style != before.Style {
		t.Error("hydrate of literal-only config changed layout/style")
	}
	if !reflect.DeepEqual(cfg.Modules, beforeModules) {
		t.Error("hydrate of literal-only config changed modules")
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	cfg := parseSample(t)

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Encode): %v\n%s", err, data)
	}

	if again.Layout != cfg.Layout {
		t.Errorf("layout mismatch: %+v vs %+v", again.Layout, cfg.Layout)
	}
	if again.Style != cfg.Style {
		t.Errorf("style mismatch: %+v vs %+v", again.Style, cfg.Style)
	}
	if !reflect.DeepEqual(again.Modules, cfg.Modules) {
		t.Errorf("modules mismatch:\n got %+v\nwant %+v", again.Modules, cfg.Modules)
	}
}

func TestPaletteRejectsReferences(t *testing.T) {
	if _, err := ParsePalette([]byte(`a = "$b"` + "\n" + `b = "#000000"`)); err == nil {
		t.Fatal("expected error for palette entry referencing a variable")
	}
}

func TestParseMediaControlArguments(t *testing.T) {
	tests := []struct {
		in      string
		want    MediaControl
		wantErr bool
	}{
		{in: "play", want: MediaControl{Verb: MediaPlay}},
		{in: "seek 5000000", want: MediaControl{Verb: MediaSeek, SeekOffset: 5000000}},
		{in: "seek -250000", want: MediaControl{Verb: MediaSeek, SeekOffset: -250000}},
		{in: "volume -0.05", want: MediaControl{Verb: MediaVolume, VolumeDelta: -0.05}},
		{in: "set-volume 0.5", want: MediaControl{Verb: MediaSetVolume, Volume: 0.5}},
		{in: "seek", wantErr: true},
		{in: "play extra", wantErr: true},
		{in: "louder", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMediaControl(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMediaControl(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMediaControl(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMediaControl(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
