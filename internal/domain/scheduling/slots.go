package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clinic/frontdesk/internal/domain/clinic"
)

const (
	DefaultSessions    = "09:00-12:00,14:00-18:00"
	DefaultSlotMinutes = 10
)

// SlotGrid is the ordered set of bookable start times of a clinic day.
type SlotGrid struct {
	times   []string
	allowed map[string]bool
}

// ParseSessions builds the grid from sessions like "09:00-12:00,14:00-18:00".
// Each session's end is exclusive; a slot starts every step minutes.
func ParseSessions(sessions string, stepMinutes int) (*SlotGrid, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("slot length must be positive, got %d", stepMinutes)
	}
	step := time.Duration(stepMinutes) * time.Minute

	g := &SlotGrid{allowed: make(map[string]bool)}
	for _, raw := range strings.Split(sessions, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		startStr, endStr, ok := strings.Cut(raw, "-")
		if !ok {
			return nil, fmt.Errorf("session %q: expected HH:MM-HH:MM", raw)
		}
		start, err := time.Parse(clinic.TimeLayout, strings.TrimSpace(startStr))
		if err != nil {
			return nil, fmt.Errorf("session %q: invalid start: %w", raw, err)
		}
		end, err := time.Parse(clinic.TimeLayout, strings.TrimSpace(endStr))
		if err != nil {
			return nil, fmt.Errorf("session %q: invalid end: %w", raw, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("session %q: start must be before end", raw)
		}
		for t := start; t.Before(end); t = t.Add(step) {
			slot := t.Format(clinic.TimeLayout)
			if !g.allowed[slot] {
				g.allowed[slot] = true
				g.times = append(g.times, slot)
			}
		}
	}
	if len(g.times) == 0 {
		return nil, fmt.Errorf("no sessions configured")
	}
	sort.Strings(g.times)
	return g, nil
}

// DefaultGrid is 09:00-12:00 and 14:00-18:00 in 10 minute slots.
func DefaultGrid() *SlotGrid {
	g, err := ParseSessions(DefaultSessions, DefaultSlotMinutes)
	if err != nil {
		panic(err)
	}
	return g
}

// Times returns the slot start times in order.
func (g *SlotGrid) Times() []string {
	out := make([]string, len(g.times))
	copy(out, g.times)
	return out
}

func (g *SlotGrid) Allowed(t string) bool {
	return g.allowed[t]
}

func (g *SlotGrid) Len() int { return len(g.times) }
