package icons

import (
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeIconFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
}

func testLookup(t *testing.T, theme string) (*Lookup, string) {
	t.Helper()
	root := t.TempDir()
	return &Lookup{dataDirs: []string{root}, theme: theme}, root
}

func TestDesktopEntryWinsOverRawName(t *testing.T) {
	l, root := testLookup(t, "")
	desktop := filepath.Join(root, "applications", "org.example.App.desktop")
	if err := os.MkdirAll(filepath.Dir(desktop), 0o755); err != nil {
		t.Fatal(err)
	}
	entry := "[Desktop Entry]\nName=Example\nIcon=example-icon\n"
	if err := os.WriteFile(desktop, []byte(entry), 0o644); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "icons", "hicolor", "48x48", "apps", "example-icon.svg")
	writeIconFile(t, want)
	// Decoy named after the app id itself.
	writeIconFile(t, filepath.Join(root, "icons", "hicolor", "48x48", "apps", "org.example.App.svg"))

	got, ok := l.IconPath("org.example.App")
	if !ok || got != want {
		t.Errorf("got %q ok=%v, want %q", got, ok, want)
	}
}

func TestRawNameFallback(t *testing.T) {
	l, root := testLookup(t, "")
	want := filepath.Join(root, "icons", "hicolor", "48x48", "apps", "firefox.png")
	writePNG(t, want)

	got, ok := l.IconPath("firefox")
	if !ok || got != want {
		t.Errorf("got %q ok=%v, want %q", got, ok, want)
	}
}

func TestPreferredThemeBeatsHicolor(t *testing.T) {
	l, root := testLookup(t, "Adwaita")
	themed := filepath.Join(root, "icons", "Adwaita", "scalable", "apps", "term.svg")
	writeIconFile(t, themed)
	writeIconFile(t, filepath.Join(root, "icons", "hicolor", "48x48", "apps", "term.svg"))

	got, ok := l.IconPath("term")
	if !ok || got != themed {
		t.Errorf("got %q ok=%v, want themed path %q", got, ok, themed)
	}
}

func TestSteamAppAliasing(t *testing.T) {
	l, root := testLookup(t, "")
	want := filepath.Join(root, "icons", "hicolor", "48x48", "apps", "steam_icon_440.png")
	writePNG(t, want)

	got, ok := l.IconPath("steam_app_440")
	if !ok || got != want {
		t.Errorf("got %q ok=%v, want %q", got, ok, want)
	}
}

func TestPixmapsFallback(t *testing.T) {
	l, root := testLookup(t, "")
	want := filepath.Join(root, "pixmaps", "legacy.png")
	writePNG(t, want)

	got, ok := l.IconPath("legacy")
	if !ok || got != want {
		t.Errorf("got %q ok=%v, want %q", got, ok, want)
	}
}

func TestCacheResolvesOnce(t *testing.T) {
	l, root := testLookup(t, "")
	path := filepath.Join(root, "icons", "hicolor", "48x48", "apps", "app.svg")
	writeIconFile(t, path)

	c := NewCache(l, slog.New(slog.DiscardHandler))
	first := c.Get("app")
	if first.SvgPath != path {
		t.Fatalf("svg path = %q, want %q", first.SvgPath, path)
	}

	// Remove the file; the cached entry must survive.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if again := c.Get("app"); again.SvgPath != path {
		t.Errorf("cached lookup = %q, want %q", again.SvgPath, path)
	}
}

func TestCacheDecodesRaster(t *testing.T) {
	l, root := testLookup(t, "")
	writePNG(t, filepath.Join(root, "icons", "hicolor", "48x48", "apps", "bitmap.png"))

	icon := NewCache(l, slog.New(slog.DiscardHandler)).Get("bitmap")
	if icon.Raster == nil {
		t.Fatal("raster icon not decoded")
	}
	if b := icon.Raster.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("bounds = %v, want 2x2", b)
	}
}

func TestCacheMissIsCached(t *testing.T) {
	l, _ := testLookup(t, "")
	c := NewCache(l, slog.New(slog.DiscardHandler))
	if !c.Get("nothing").IsZero() {
		t.Error("expected zero icon for unknown app id")
	}
}

func TestPlaceholder(t *testing.T) {
	cases := []struct {
		title, appID, want string
	}{
		{"Firefox", "org.mozilla.firefox", "Fi"},
		{"", "kitty", "Ki"},
		{"", "", "??"},
		{"x", "", "X?"},
	}
	for _, tc := range cases {
		if got := Placeholder(tc.title, tc.appID); got != tc.want {
			t.Errorf("Placeholder(%q, %q) = %q, want %q", tc.title, tc.appID, got, tc.want)
		}
	}
}
