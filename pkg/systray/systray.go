// Package systray hosts StatusNotifierItem entries from the session
// bus: it registers as a host with the StatusNotifierWatcher, tracks
// item registrations, and forwards activation clicks back to the
// owning applications.
package systray

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"

	"gitlab.com/tinyland/lab/frostbar/pkg/icons"
)

const (
	watcherName = "org.kde.StatusNotifierWatcher"
	watcherPath = dbus.ObjectPath("/StatusNotifierWatcher")
	itemIface   = "org.kde.StatusNotifierItem"
	defaultPath = dbus.ObjectPath("/StatusNotifierItem")
)

// Item is one tray entry.
type Item struct {
	// Service is the item's bus address, "name" or "name/path".
	Service string
	Title   string
	Icon    icons.Icon
}

// Event reports a tray change to the UI.
type Event struct {
	Items []Item
}

// Host tracks registered items. Bus traffic runs in Run; the item list
// is republished wholesale on every change, so the UI never merges.
type Host struct {
	conn   *dbus.Conn
	cache  *icons.Cache
	log    *slog.Logger
	events chan Event

	items map[string]Item
}

// NewHost connects to the session bus and registers as a tray host.
func NewHost(cache *icons.Cache, log *slog.Logger) (*Host, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("systray: connect session bus: %w", err)
	}

	hostName := fmt.Sprintf("org.kde.StatusNotifierHost-%d", os.Getpid())
	if _, err := conn.RequestName(hostName, dbus.NameFlagDoNotQueue); err != nil {
		conn.Close()
		return nil, fmt.Errorf("systray: request host name: %w", err)
	}

	return &Host{
		conn:   conn,
		cache:  cache,
		log:    log,
		events: make(chan Event, 16),
		items:  make(map[string]Item),
	}, nil
}

// Events delivers the current item list after every change.
func (h *Host) Events() <-chan Event {
	return h.events
}

// Run registers with the watcher, loads existing items, and tracks
// registrations until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.events)
	defer h.conn.Close()

	watcher := h.conn.Object(watcherName, watcherPath)
	hostName := fmt.Sprintf("org.kde.StatusNotifierHost-%d", os.Getpid())
	if call := watcher.Call(watcherName+".RegisterStatusNotifierHost", 0, hostName); call.Err != nil {
		return fmt.Errorf("systray: register host: %w", call.Err)
	}

	if err := h.conn.AddMatchSignal(
		dbus.WithMatchInterface(watcherName),
		dbus.WithMatchObjectPath(watcherPath),
	); err != nil {
		return fmt.Errorf("systray: match watcher signals: %w", err)
	}

	var existing []string
	if v, err := watcher.GetProperty(watcherName + ".RegisteredStatusNotifierItems"); err == nil {
		v.Store(&existing)
	}
	for _, service := range existing {
		h.addItem(service)
	}
	h.publish(ctx)

	signals := make(chan *dbus.Signal, 16)
	h.conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("systray: signal stream closed")
			}
			h.handleSignal(ctx, sig)
		}
	}
}

func (h *Host) handleSignal(ctx context.Context, sig *dbus.Signal) {
	if len(sig.Body) != 1 {
		return
	}
	service, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	switch sig.Name {
	case watcherName + ".StatusNotifierItemRegistered":
		h.addItem(service)
		h.publish(ctx)
	case watcherName + ".StatusNotifierItemUnregistered":
		delete(h.items, service)
		h.publish(ctx)
	}
}

// addItem queries an item's title and icon name and resolves the icon
// through the shared cache.
func (h *Host) addItem(service string) {
	name, path := splitService(service)
	obj := h.conn.Object(name, path)

	item := Item{Service: service}
	if v, err := obj.GetProperty(itemIface + ".Title"); err == nil {
		v.Store(&item.Title)
	}
	var iconName string
	if v, err := obj.GetProperty(itemIface + ".IconName"); err == nil {
		v.Store(&iconName)
	}
	if iconName != "" {
		item.Icon = h.cache.Get(iconName)
	}

	h.items[service] = item
	h.log.Debug("systray: item registered", "service", service, "title", item.Title)
}

// publish blocks until the UI drains the channel or ctx ends, so the
// final item-list state is never dropped.
func (h *Host) publish(ctx context.Context) {
	out := make([]Item, 0, len(h.items))
	for _, item := range h.items {
		out = append(out, item)
	}
	select {
	case h.events <- Event{Items: out}:
	case <-ctx.Done():
	}
}

// Activate forwards a primary click to the item.
func (h *Host) Activate(service string, x, y int32) error {
	name, path := splitService(service)
	call := h.conn.Object(name, path).Call(itemIface+".Activate", 0, x, y)
	if call.Err != nil {
		return fmt.Errorf("systray: activate %s: %w", service, call.Err)
	}
	return nil
}

// SecondaryActivate forwards a middle click to the item.
func (h *Host) SecondaryActivate(service string, x, y int32) error {
	name, path := splitService(service)
	call := h.conn.Object(name, path).Call(itemIface+".SecondaryActivate", 0, x, y)
	if call.Err != nil {
		return fmt.Errorf("systray: secondary activate %s: %w", service, call.Err)
	}
	return nil
}

// splitService parses the watcher's "busname/objectpath" registration
// format; a bare bus name gets the conventional item path.
func splitService(service string) (string, dbus.ObjectPath) {
	if i := strings.Index(service, "/"); i > 0 {
		return service[:i], dbus.ObjectPath(service[i:])
	}
	return service, defaultPath
}
