package icons

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// lookupSize is the pixel size requested from icon themes.
const lookupSize = "48x48"

// Lookup resolves icon names against the freedesktop desktop-entry and
// icon-theme directory layout. Construct with NewLookup; tests override
// the search roots.
type Lookup struct {
	// dataDirs are XDG data roots containing applications/ and icons/.
	dataDirs []string
	// theme is the preferred icon theme name, empty for none.
	theme string
}

// NewLookup builds a lookup over $XDG_DATA_HOME and $XDG_DATA_DIRS.
func NewLookup(theme string) *Lookup {
	return &Lookup{dataDirs: xdgDataDirs(), theme: theme}
}

func xdgDataDirs() []string {
	var dirs []string
	if home := os.Getenv("XDG_DATA_HOME"); home != "" {
		dirs = append(dirs, home)
	} else if h, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(h, ".local", "share"))
	}
	extra := os.Getenv("XDG_DATA_DIRS")
	if extra == "" {
		extra = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(extra, ":") {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// IconPath resolves an application id to an icon file. Desktop entries
// win over raw icon-name lookup because they map window app ids to the
// icon the application actually ships.
func (l *Lookup) IconPath(appID string) (string, bool) {
	if name, ok := l.desktopEntryIcon(appID); ok {
		// An absolute Icon= value is used as-is.
		if filepath.IsAbs(name) {
			if _, err := os.Stat(name); err == nil {
				return name, true
			}
		} else if path, ok := l.themedIcon(name); ok {
			return path, true
		}
	}
	return l.themedIcon(appID)
}

// desktopEntryIcon scans applications/ directories for <appID>.desktop
// and returns its Icon= field.
func (l *Lookup) desktopEntryIcon(appID string) (string, bool) {
	for _, dir := range l.dataDirs {
		path := filepath.Join(dir, "applications", appID+".desktop")
		if name, ok := readIconField(path); ok {
			return name, true
		}
	}
	return "", false
}

func readIconField(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	inDesktopGroup := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "["):
			inDesktopGroup = line == "[Desktop Entry]"
		case inDesktopGroup && strings.HasPrefix(line, "Icon="):
			name := strings.TrimSpace(strings.TrimPrefix(line, "Icon="))
			if name != "" {
				return name, true
			}
		}
	}
	return "", false
}

// themedIcon searches icon themes for a named icon: the preferred theme
// first, then hicolor, then any theme, then pixmaps. Steam games report
// steam_app_<id> while the icon ships as steam_icon_<id>.
func (l *Lookup) themedIcon(name string) (string, bool) {
	candidates := []string{name}
	if strings.Contains(name, "steam_app_") {
		candidates = append(candidates, strings.Replace(name, "steam_app_", "steam_icon_", 1))
	}

	for _, cand := range candidates {
		if l.theme != "" {
			if path, ok := l.searchTheme(l.theme, cand); ok {
				return path, true
			}
		}
		if path, ok := l.searchTheme("hicolor", cand); ok {
			return path, true
		}
		if path, ok := l.searchAnyTheme(cand); ok {
			return path, true
		}
		for _, dir := range l.dataDirs {
			if path, ok := findIconFile(filepath.Join(dir, "pixmaps"), cand); ok {
				return path, true
			}
		}
	}
	return "", false
}

func (l *Lookup) searchTheme(theme, name string) (string, bool) {
	for _, dir := range l.dataDirs {
		root := filepath.Join(dir, "icons", theme)
		for _, size := range []string{lookupSize, "scalable"} {
			sizeDir := filepath.Join(root, size)
			entries, err := os.ReadDir(sizeDir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				if path, ok := findIconFile(filepath.Join(sizeDir, e.Name()), name); ok {
					return path, true
				}
			}
		}
	}
	return "", false
}

func (l *Lookup) searchAnyTheme(name string) (string, bool) {
	for _, dir := range l.dataDirs {
		iconsRoot := filepath.Join(dir, "icons")
		themes, err := os.ReadDir(iconsRoot)
		if err != nil {
			continue
		}
		for _, t := range themes {
			if !t.IsDir() || t.Name() == l.theme || t.Name() == "hicolor" {
				continue
			}
			if path, ok := l.searchTheme(t.Name(), name); ok {
				return path, true
			}
		}
	}
	return "", false
}

var iconExts = []string{".svg", ".png", ".jpg"}

func findIconFile(dir, name string) (string, bool) {
	for _, ext := range iconExts {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func isSvg(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".svg")
}

// Placeholder derives the two-letter fallback shown when no icon
// resolves, from the window title or app id.
func Placeholder(title, appID string) string {
	src := strings.TrimSpace(title)
	if src == "" {
		src = strings.TrimSpace(appID)
	}
	runes := []rune(src)
	if len(runes) == 0 {
		return "??"
	}
	if len(runes) == 1 {
		return strings.ToUpper(string(runes[0])) + "?"
	}
	return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1]))
}
