// Package icons resolves application ids to themed icon files and
// caches the decoded results. The cache is shared between the niri and
// systray services, so lookups go through a read lock and inserts are
// idempotent.
package icons

import (
	"image"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"
)

// Icon is a resolved application icon. Exactly one field is set.
type Icon struct {
	// SvgPath points at a vector icon on disk.
	SvgPath string
	// Raster holds a decoded bitmap icon.
	Raster image.Image
}

// IsZero reports whether no icon was resolved.
func (i Icon) IsZero() bool {
	return i.SvgPath == "" && i.Raster == nil
}

// Cache maps application ids to resolved icons. Entries are only ever
// inserted; a failed lookup is cached too so the filesystem walk runs
// once per app id.
type Cache struct {
	mu     sync.RWMutex
	icons  map[string]Icon
	lookup *Lookup
	log    *slog.Logger
}

// NewCache builds a cache backed by the given lookup paths.
func NewCache(lookup *Lookup, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		icons:  make(map[string]Icon),
		lookup: lookup,
		log:    log,
	}
}

// Get returns the icon for appID, resolving and decoding it on first
// use. A zero Icon means nothing was found; callers fall back to a
// placeholder.
func (c *Cache) Get(appID string) Icon {
	c.mu.RLock()
	icon, ok := c.icons[appID]
	c.mu.RUnlock()
	if ok {
		return icon
	}

	icon = c.resolve(appID)

	c.mu.Lock()
	// Another goroutine may have raced us here; first insert wins.
	if prior, ok := c.icons[appID]; ok {
		icon = prior
	} else {
		c.icons[appID] = icon
	}
	c.mu.Unlock()
	return icon
}

func (c *Cache) resolve(appID string) Icon {
	path, ok := c.lookup.IconPath(appID)
	if !ok {
		c.log.Debug("icons: no icon found", "app_id", appID)
		return Icon{}
	}
	if isSvg(path) {
		return Icon{SvgPath: path}
	}
	img, err := imaging.Open(path)
	if err != nil {
		c.log.Error("icons: decode", "path", path, "error", err)
		return Icon{}
	}
	return Icon{Raster: img}
}
