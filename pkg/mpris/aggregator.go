// Package mpris tracks media players on the session bus, maintains
// per-player playback state and album art, and publishes the dominant
// color gradient consumed by the audio visualizer.
package mpris

import (
	"image"
	"log/slog"

	"github.com/lucasb-eyer/go-colorful"
)

// BusPrefix is the well-known name prefix of media-player endpoints.
const BusPrefix = "org.mpris.MediaPlayer2."

// StatusPlaying is the playback status that makes a player eligible as
// the gradient source.
const StatusPlaying = "Playing"

// Metadata is the subset of player metadata the bar cares about.
type Metadata struct {
	Title  *string
	Artist *string
	ArtURL *string
}

// Player is one tracked media player.
type Player struct {
	Name    string
	Status  string
	Artists *string
	Title   *string
	Art     image.Image
	Colors  []colorful.Color
}

// Event is a message from the bus listener or an art fetch.
type Event interface{ mprisEvent() }

type PlayerAppeared struct {
	Name     string
	Status   string
	Metadata Metadata
}

type PlayerVanished struct {
	Name string
}

type PlaybackStatusChanged struct {
	Name   string
	Status string
}

type MetadataChanged struct {
	Name     string
	Metadata Metadata
}

// ArtFetched reports a completed asynchronous art download. Art is nil
// when the fetch failed.
type ArtFetched struct {
	Name     string
	Art      image.Image
	Gradient []colorful.Color
}

func (PlayerAppeared) mprisEvent()        {}
func (PlayerVanished) mprisEvent()        {}
func (PlaybackStatusChanged) mprisEvent() {}
func (MetadataChanged) mprisEvent()       {}
func (ArtFetched) mprisEvent()            {}

// UpdateResult is what an event produced beyond state mutation.
type UpdateResult struct {
	// Gradient, when non-nil, is a dominant-gradient publication. The
	// inner slice is nil when no player qualifies.
	Gradient *[]colorful.Color
	// Fetch, when non-nil, is an asynchronous art download to run off
	// the UI task; its Event feeds back into Update.
	Fetch func() Event
}

func publish(g []colorful.Color) UpdateResult {
	return UpdateResult{Gradient: &g}
}

// Aggregator owns the ordered player list. Insertion order is
// significant: it breaks ties in the dominant-gradient rule.
type Aggregator struct {
	players []*Player
	art     *ArtCache
	log     *slog.Logger
}

// NewAggregator builds an aggregator with the given art cache.
func NewAggregator(art *ArtCache, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	if art == nil {
		art = NewArtCache(log)
	}
	return &Aggregator{art: art, log: log}
}

// Players is the tracked player list in insertion order.
func (a *Aggregator) Players() []*Player {
	return a.players
}

// Dominant returns the gradient of the first player in insertion order
// that is playing and has colors, or nil.
func (a *Aggregator) Dominant() []colorful.Color {
	for _, p := range a.players {
		if p.Status == StatusPlaying && p.Colors != nil {
			return p.Colors
		}
	}
	return nil
}

func (a *Aggregator) find(name string) *Player {
	for _, p := range a.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Update routes one event into the player list. Every change that can
// affect the dominant gradient re-runs the rule and publishes the
// outcome, so the visualizer never reads a stale gradient.
func (a *Aggregator) Update(ev Event) UpdateResult {
	switch ev := ev.(type) {
	case PlayerAppeared:
		a.log.Debug("mpris: player appeared", "player", ev.Name)
		p := &Player{Name: ev.Name, Status: ev.Status}
		a.players = append(a.players, p)
		fetch := a.applyMetadata(p, ev.Metadata)
		res := publish(a.Dominant())
		res.Fetch = fetch
		return res

	case PlayerVanished:
		a.log.Debug("mpris: player vanished", "player", ev.Name)
		kept := a.players[:0]
		for _, p := range a.players {
			if p.Name != ev.Name {
				kept = append(kept, p)
			}
		}
		a.players = kept
		return publish(a.Dominant())

	case PlaybackStatusChanged:
		p := a.find(ev.Name)
		if p == nil {
			return UpdateResult{}
		}
		p.Status = ev.Status
		return publish(a.Dominant())

	case MetadataChanged:
		p := a.find(ev.Name)
		if p == nil {
			return UpdateResult{}
		}
		fetch := a.applyMetadata(p, ev.Metadata)
		res := publish(a.Dominant())
		res.Fetch = fetch
		return res

	case ArtFetched:
		p := a.find(ev.Name)
		if p == nil {
			return UpdateResult{}
		}
		p.Art = ev.Art
		p.Colors = ev.Gradient
		return publish(a.Dominant())
	}
	return UpdateResult{}
}

// applyMetadata folds new metadata into the player. Local and embedded
// art resolves synchronously; remote art returns a fetch closure and
// leaves the current art in place until the download lands.
func (a *Aggregator) applyMetadata(p *Player, md Metadata) func() Event {
	if md.Title != nil {
		p.Title = md.Title
	}
	if md.Artist != nil {
		p.Artists = md.Artist
	}

	if md.ArtURL == nil {
		p.Art = nil
		p.Colors = nil
		return nil
	}

	switch art := a.art.Resolve(p.Name, *md.ArtURL); art.Kind {
	case artSync:
		p.Art = art.Image
		p.Colors = art.Gradient
		return nil
	case artAsync:
		return art.Fetch
	default:
		p.Art = nil
		p.Colors = nil
		return nil
	}
}
