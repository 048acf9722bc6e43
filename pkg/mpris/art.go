package mpris

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	// Some players hand out art in formats the stdlib does not decode.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// base64Prefix marks embedded jpeg art in an art URL.
const base64Prefix = "data:image/jpeg;base64,"

// fetchTimeout bounds a remote art download.
const fetchTimeout = 15 * time.Second

type artKind int

const (
	artNone artKind = iota
	artSync
	artAsync
)

// Art is the outcome of routing an art URL.
type Art struct {
	Kind     artKind
	Image    image.Image
	Gradient []colorful.Color
	Fetch    func() Event
}

// ArtCache resolves art URLs to decoded images and gradients. Results
// are keyed by URL so metadata churn on the same track does not decode
// the same art twice.
type ArtCache struct {
	entries map[string]Art
	client  *http.Client
	log     *slog.Logger
}

// NewArtCache builds an empty cache.
func NewArtCache(log *slog.Logger) *ArtCache {
	if log == nil {
		log = slog.Default()
	}
	return &ArtCache{
		entries: make(map[string]Art),
		client:  &http.Client{Timeout: fetchTimeout},
		log:     log,
	}
}

// Resolve routes an art URL. Embedded and file art decodes here, on
// the caller's task; http(s) art returns an async fetch whose result
// event is tagged with the player name. Unknown schemes resolve to no
// art.
func (c *ArtCache) Resolve(player, url string) Art {
	if cached, ok := c.entries[url]; ok && cached.Kind == artSync {
		return cached
	}

	switch {
	case strings.HasPrefix(url, base64Prefix):
		art := c.decodeEmbedded(url)
		c.entries[url] = art
		return art

	case strings.HasPrefix(url, "file://"):
		art := c.decodeFile(strings.TrimPrefix(url, "file://"))
		c.entries[url] = art
		return art

	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return Art{Kind: artAsync, Fetch: func() Event {
			return c.fetchRemote(player, url)
		}}

	default:
		return Art{Kind: artNone}
	}
}

func (c *ArtCache) decodeEmbedded(url string) Art {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, base64Prefix))
	if err != nil {
		c.log.Error("mpris: decode embedded art", "error", err)
		return Art{Kind: artNone}
	}
	return c.decodeBytes(raw)
}

func (c *ArtCache) decodeFile(path string) Art {
	img, err := imaging.Open(path)
	if err != nil {
		c.log.Error("mpris: open album art", "path", path, "error", err)
		return Art{Kind: artNone}
	}
	return Art{Kind: artSync, Image: img, Gradient: ExtractGradient(img, BarSteps)}
}

func (c *ArtCache) decodeBytes(raw []byte) Art {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		c.log.Error("mpris: decode album art", "error", err)
		return Art{Kind: artNone}
	}
	return Art{Kind: artSync, Image: img, Gradient: ExtractGradient(img, BarSteps)}
}

// fetchRemote downloads art over http(s). Failures log and yield an
// ArtFetched with no art, which clears the player's gradient.
func (c *ArtCache) fetchRemote(player, url string) Event {
	img, gradient, err := c.download(url)
	if err != nil {
		c.log.Error("mpris: fetch album art", "url", url, "error", err)
		return ArtFetched{Name: player}
	}
	return ArtFetched{Name: player, Art: img, Gradient: gradient}
}

func (c *ArtCache) download(url string) (image.Image, []colorful.Color, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	return img, ExtractGradient(img, BarSteps), nil
}
