// Package battery polls the kernel power-supply interface and derives
// the aggregate charge state shown by the battery module.
package battery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSysDir is the kernel power-supply directory. Tests point the
// poller at a fixture directory instead.
const DefaultSysDir = "/sys/class/power_supply"

// State mirrors the kernel's power-supply status strings.
type State int

const (
	Unknown State = iota
	Charging
	Discharging
	Full
	Empty
)

func (s State) String() string {
	switch s {
	case Charging:
		return "charging"
	case Discharging:
		return "discharging"
	case Full:
		return "full"
	case Empty:
		return "empty"
	}
	return "unknown"
}

func parseState(s string) State {
	switch strings.TrimSpace(s) {
	case "Charging":
		return Charging
	case "Discharging":
		return Discharging
	case "Full":
		return Full
	case "Empty":
		return Empty
	}
	return Unknown
}

// Info is one battery's snapshot.
type Info struct {
	Name     string
	Fraction float64
	State    State
}

// Snapshot is the result of one polling pass over all batteries.
type Snapshot struct {
	Batteries []Info
}

// Fraction is the aggregate charge fraction across all batteries, or -1
// when no battery is present.
func (s Snapshot) Fraction() float64 {
	if len(s.Batteries) == 0 {
		return -1
	}
	var sum float64
	for _, b := range s.Batteries {
		sum += b.Fraction
	}
	return sum / float64(len(s.Batteries))
}

// Charging reports whether the machine is effectively on external power:
// true when no battery is Discharging or Empty.
func (s Snapshot) Charging() bool {
	for _, b := range s.Batteries {
		if b.State == Discharging || b.State == Empty {
			return false
		}
	}
	return true
}

// Poller reads battery state from a power-supply directory. The zero
// value is not usable; construct with New.
type Poller struct {
	sysDir string
	log    *slog.Logger
	last   Snapshot
}

// New creates a poller over sysDir (DefaultSysDir in production).
func New(sysDir string, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{sysDir: sysDir, log: log}
}

// Poll enumerates power supplies and refreshes each battery's record.
// Any step-level error is logged and the previous snapshot is returned
// intact, so a transient sysfs hiccup never blanks the module.
func (p *Poller) Poll() Snapshot {
	entries, err := os.ReadDir(p.sysDir)
	if err != nil {
		p.log.Error("battery: enumerate power supplies", "error", err)
		return p.last
	}

	var batteries []Info
	for _, e := range entries {
		dir := filepath.Join(p.sysDir, e.Name())
		kind, err := readTrimmed(filepath.Join(dir, "type"))
		if err != nil || kind != "Battery" {
			continue
		}
		info, err := readBattery(dir, e.Name())
		if err != nil {
			p.log.Error("battery: refresh", "supply", e.Name(), "error", err)
			return p.last
		}
		batteries = append(batteries, info)
	}

	p.last = Snapshot{Batteries: batteries}
	return p.last
}

// readBattery reads one battery's charge fraction and state. Supplies
// exposing charge_* instead of energy_* are handled the same way.
func readBattery(dir, name string) (Info, error) {
	status, err := readTrimmed(filepath.Join(dir, "status"))
	if err != nil {
		return Info{}, fmt.Errorf("status: %w", err)
	}

	now, errNow := readInt(filepath.Join(dir, "energy_now"))
	full, errFull := readInt(filepath.Join(dir, "energy_full"))
	if errNow != nil || errFull != nil {
		now, errNow = readInt(filepath.Join(dir, "charge_now"))
		full, errFull = readInt(filepath.Join(dir, "charge_full"))
	}
	if errNow != nil {
		return Info{}, fmt.Errorf("energy_now: %w", errNow)
	}
	if errFull != nil {
		return Info{}, fmt.Errorf("energy_full: %w", errFull)
	}
	if full <= 0 {
		return Info{}, fmt.Errorf("energy_full is %d", full)
	}

	return Info{
		Name:     name,
		Fraction: float64(now) / float64(full),
		State:    parseState(status),
	}, nil
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readInt(path string) (int64, error) {
	s, err := readTrimmed(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}
