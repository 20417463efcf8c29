package recommend

import (
	"fmt"
	"time"

	"github.com/raterudder/solaradvisor/pkg/types"
)

// Window selects which forecast slots a query is about.
type Window string

const (
	// WindowNext selects the single slot closest to one hour from now.
	WindowNext Window = "next"
	// WindowTomorrow selects every slot on the next calendar day.
	WindowTomorrow Window = "tomorrow"
	// WindowDayAhead selects the first slot on the next calendar day.
	WindowDayAhead Window = "dayahead"
	// WindowAll selects the whole forecast.
	WindowAll Window = "all"
)

// ParseWindow validates a window name, defaulting to WindowNext.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case "":
		return WindowNext, nil
	case WindowNext, WindowTomorrow, WindowDayAhead, WindowAll:
		return w, nil
	default:
		return "", fmt.Errorf("%w: unknown window %q", types.ErrMalformedProfile, s)
	}
}

// Select returns the slots of the window relative to now, keeping their order.
func (w Window) Select(slots []types.ForecastSlot, now time.Time) []types.ForecastSlot {
	switch w {
	case WindowAll:
		return slots
	case WindowTomorrow:
		return FilterTomorrow(slots, now)
	case WindowDayAhead:
		tomorrow := FilterTomorrow(slots, now)
		if len(tomorrow) == 0 {
			return nil
		}
		return tomorrow[:1]
	default:
		if slot, ok := NearestSlot(slots, now.Add(time.Hour)); ok {
			return []types.ForecastSlot{slot}
		}
		return nil
	}
}

// NearestSlot returns the slot whose time is closest to target. Ties go to the
// earlier slot in the sequence.
func NearestSlot(slots []types.ForecastSlot, target time.Time) (types.ForecastSlot, bool) {
	var (
		best     types.ForecastSlot
		bestDist time.Duration
		found    bool
	)
	for _, s := range slots {
		dist := s.Time.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < bestDist {
			best = s
			bestDist = dist
			found = true
		}
	}
	return best, found
}

// FilterTomorrow returns the slots on the calendar day after now, judged in
// each slot's own time zone.
func FilterTomorrow(slots []types.ForecastSlot, now time.Time) []types.ForecastSlot {
	var out []types.ForecastSlot
	for _, s := range slots {
		if sameDay(s.Time, now.In(s.Time.Location()).AddDate(0, 0, 1)) {
			out = append(out, s)
		}
	}
	return out
}

// FilterDay returns the slots on the same calendar day as day, judged in
// day's time zone.
func FilterDay(slots []types.ForecastSlot, day time.Time) []types.ForecastSlot {
	var out []types.ForecastSlot
	for _, s := range slots {
		if sameDay(s.Time.In(day.Location()), day) {
			out = append(out, s)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
