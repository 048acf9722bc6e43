package mpris

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// eventQueueSize bounds the outward event channel.
const eventQueueSize = 100

const (
	playerInterface = "org.mpris.MediaPlayer2.Player"
	playerPath      = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	busName         = "org.freedesktop.DBus"
	busPath         = dbus.ObjectPath("/org/freedesktop/DBus")
)

// Listener discovers media players on the session bus and streams
// their status and metadata changes as aggregator events.
type Listener struct {
	conn   *dbus.Conn
	events chan Event
	log    *slog.Logger

	// owners maps unique bus names to the well-known player name, so
	// PropertiesChanged signals can be attributed to a player.
	owners map[string]string
}

// NewListener connects to the session bus.
func NewListener(log *slog.Logger) (*Listener, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("mpris: connect session bus: %w", err)
	}
	return &Listener{
		conn:   conn,
		events: make(chan Event, eventQueueSize),
		log:    log,
	}, nil
}

// Events is the outward event stream. It is closed when Run returns.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Run scans for existing players, subscribes to ownership and property
// signals, and pumps events until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.events)
	defer l.conn.Close()

	l.owners = make(map[string]string)

	if err := l.subscribe(); err != nil {
		return err
	}

	signals := make(chan *dbus.Signal, 64)
	l.conn.Signal(signals)

	if err := l.scanExisting(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("mpris: session bus signal stream closed")
			}
			l.dispatch(ctx, sig)
		}
	}
}

func (l *Listener) subscribe() error {
	if err := l.conn.AddMatchSignal(
		dbus.WithMatchSender(busName),
		dbus.WithMatchInterface(busName),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return fmt.Errorf("mpris: match NameOwnerChanged: %w", err)
	}
	if err := l.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(playerPath),
	); err != nil {
		return fmt.Errorf("mpris: match PropertiesChanged: %w", err)
	}
	return nil
}

// scanExisting lists current bus names and emits a PlayerAppeared for
// every media player already running.
func (l *Listener) scanExisting(ctx context.Context) error {
	var names []string
	err := l.conn.BusObject().Call(busName+".ListNames", 0).Store(&names)
	if err != nil {
		return fmt.Errorf("mpris: list names: %w", err)
	}
	for _, name := range names {
		if !isPlayerName(name) {
			continue
		}
		var owner string
		if err := l.conn.BusObject().Call(busName+".GetNameOwner", 0, name).Store(&owner); err == nil {
			l.owners[owner] = name
		}
		l.emit(ctx, l.initialState(name))
	}
	return nil
}

// initialState queries a player's current status and metadata.
func (l *Listener) initialState(name string) Event {
	obj := l.conn.Object(name, playerPath)

	ev := PlayerAppeared{Name: name}
	if v, err := obj.GetProperty(playerInterface + ".PlaybackStatus"); err == nil {
		v.Store(&ev.Status)
	} else {
		l.log.Debug("mpris: playback status query", "player", name, "error", err)
	}
	if v, err := obj.GetProperty(playerInterface + ".Metadata"); err == nil {
		var raw map[string]dbus.Variant
		if v.Store(&raw) == nil {
			ev.Metadata = ParseMetadata(raw)
		}
	}
	return ev
}

func (l *Listener) dispatch(ctx context.Context, sig *dbus.Signal) {
	switch sig.Name {
	case busName + ".NameOwnerChanged":
		l.nameOwnerChanged(ctx, sig)
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		l.propertiesChanged(ctx, sig)
	}
}

func (l *Listener) nameOwnerChanged(ctx context.Context, sig *dbus.Signal) {
	if len(sig.Body) != 3 {
		return
	}
	name, ok1 := sig.Body[0].(string)
	oldOwner, ok2 := sig.Body[1].(string)
	newOwner, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 || !isPlayerName(name) {
		return
	}

	switch {
	case oldOwner == "" && newOwner != "":
		l.owners[newOwner] = name
		l.emit(ctx, l.initialState(name))
	case newOwner == "" && oldOwner != "":
		delete(l.owners, oldOwner)
		l.emit(ctx, PlayerVanished{Name: name})
	}
}

func (l *Listener) propertiesChanged(ctx context.Context, sig *dbus.Signal) {
	player, ok := l.owners[string(sig.Sender)]
	if !ok {
		return
	}
	if len(sig.Body) < 2 {
		return
	}
	iface, _ := sig.Body[0].(string)
	if iface != playerInterface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if v, ok := changed["PlaybackStatus"]; ok {
		var status string
		if v.Store(&status) == nil {
			l.emit(ctx, PlaybackStatusChanged{Name: player, Status: status})
		}
	}
	if v, ok := changed["Metadata"]; ok {
		var raw map[string]dbus.Variant
		if v.Store(&raw) == nil {
			l.emit(ctx, MetadataChanged{Name: player, Metadata: ParseMetadata(raw)})
		}
	}
}

func (l *Listener) emit(ctx context.Context, ev Event) {
	select {
	case l.events <- ev:
	case <-ctx.Done():
	}
}

func isPlayerName(name string) bool {
	return len(name) > len(BusPrefix) && name[:len(BusPrefix)] == BusPrefix
}

// ParseMetadata extracts the fields the bar uses from a raw metadata
// map. Artists collapse into one comma-separated string.
func ParseMetadata(raw map[string]dbus.Variant) Metadata {
	var md Metadata
	if v, ok := raw["xesam:title"]; ok {
		var title string
		if v.Store(&title) == nil {
			md.Title = &title
		}
	}
	if v, ok := raw["xesam:artist"]; ok {
		var artists []string
		if v.Store(&artists) == nil && len(artists) > 0 {
			joined := artists[0]
			for _, a := range artists[1:] {
				joined += ", " + a
			}
			md.Artist = &joined
		}
	}
	if v, ok := raw["mpris:artUrl"]; ok {
		var url string
		if v.Store(&url) == nil && url != "" {
			md.ArtURL = &url
		}
	}
	return md
}
