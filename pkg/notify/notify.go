// Package notify raises desktop notifications over the session bus.
// The bar uses it for configuration problems the user must act on.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	service   = "org.freedesktop.Notifications"
	path      = dbus.ObjectPath("/org/freedesktop/Notifications")
	appName   = "frostbar"
	noTimeout = int32(-1)
)

// Notifier sends notifications on an existing session bus connection.
type Notifier struct {
	conn *dbus.Conn
}

// New wraps a session bus connection.
func New(conn *dbus.Conn) *Notifier {
	return &Notifier{conn: conn}
}

// Send raises a notification with the server's default timeout.
func (n *Notifier) Send(summary, body string) error {
	obj := n.conn.Object(service, path)
	call := obj.Call(service+".Notify", 0,
		appName,
		uint32(0), // no replacement
		"",        // no icon
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		noTimeout,
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
