package promo

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// DailyWindow is a recurring clock-time window in minutes since local
// midnight, inclusive on both ends. A window whose End precedes its Start
// never matches: overnight ranges (e.g. 22:00-02:00) are not supported.
type DailyWindow struct {
	Start int
	End   int
}

// ParseDailyWindow parses "HH:MM" start/end strings. Both empty yields a nil
// window (always on); exactly one empty is an error.
func ParseDailyWindow(start, end string) (*DailyWindow, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("daily window requires both start and end times")
	}

	s, err := parseClock(start)
	if err != nil {
		return nil, errors.Wrap(err, "start time")
	}
	e, err := parseClock(end)
	if err != nil {
		return nil, errors.Wrap(err, "end time")
	}
	return &DailyWindow{Start: s, End: e}, nil
}

// Contains reports whether t's local clock time lies within the window.
func (w *DailyWindow) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return w.Start <= m && m <= w.End
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, errors.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, errors.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, errors.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
