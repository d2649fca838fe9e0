package hours

import (
	"fmt"
	"time"
)

// DayKey is the canonical day identifier used to scope every ticket and
// counter query. All components derive it from the same Schedule so a
// ticket issued just before midnight and a sweeper running just after
// agree on which day it belongs to.
type DayKey string

const dayKeyLayout = "2006-01-02"

func (d DayKey) String() string {
	return string(d)
}

// MinutesOfDay is a clock time expressed as minutes since midnight.
type MinutesOfDay int

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (MinutesOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return MinutesOfDay(t.Hour()*60 + t.Minute()), nil
}

// Schedule decides whether the queue is open and what "today" means.
// It owns the single timezone basis for the whole process.
type Schedule struct {
	OpenStart  MinutesOfDay
	OpenEnd    MinutesOfDay
	LunchStart MinutesOfDay
	LunchEnd   MinutesOfDay

	loc *time.Location
	now func() time.Time
}

// Option configures a Schedule.
type Option func(*Schedule)

// WithNowFunc overrides the clock source. Used by tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Schedule) { s.now = now }
}

// NewSchedule builds a Schedule from "HH:MM" boundaries and an IANA
// timezone name. An empty timezone selects the system local zone.
func NewSchedule(openStart, openEnd, lunchStart, lunchEnd, timezone string, opts ...Option) (*Schedule, error) {
	s := &Schedule{
		loc: time.Local,
		now: time.Now,
	}

	var err error
	if s.OpenStart, err = ParseClock(openStart); err != nil {
		return nil, err
	}
	if s.OpenEnd, err = ParseClock(openEnd); err != nil {
		return nil, err
	}
	if s.LunchStart, err = ParseClock(lunchStart); err != nil {
		return nil, err
	}
	if s.LunchEnd, err = ParseClock(lunchEnd); err != nil {
		return nil, err
	}

	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
		s.loc = loc
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Now returns the current time in the canonical timezone.
func (s *Schedule) Now() time.Time {
	return s.now().In(s.loc)
}

// Today returns the canonical day key for the current time.
func (s *Schedule) Today() DayKey {
	return DayKey(s.Now().Format(dayKeyLayout))
}

// DayKeyFor returns the canonical day key for an arbitrary instant.
func (s *Schedule) DayKeyFor(t time.Time) DayKey {
	return DayKey(t.In(s.loc).Format(dayKeyLayout))
}

// IsOpenNow reports whether the current time falls within operating hours
// and outside the lunch break. Boundaries are inclusive on both windows,
// so a request at exactly the opening minute is accepted and one at
// exactly the first lunch minute is not.
func (s *Schedule) IsOpenNow() bool {
	return s.isOpenAt(s.Now())
}

// CutoffPassed reports whether the current time is past the daily cut-off
// (the end of operating hours). The cut-off sweep and the manual
// cancel-all-waiting path are both gated on this.
func (s *Schedule) CutoffPassed() bool {
	return minutesOf(s.Now()) > s.OpenEnd
}

func (s *Schedule) isOpenAt(t time.Time) bool {
	m := minutesOf(t)
	if m < s.OpenStart || m > s.OpenEnd {
		return false
	}
	if m >= s.LunchStart && m <= s.LunchEnd {
		return false
	}
	return true
}

func minutesOf(t time.Time) MinutesOfDay {
	return MinutesOfDay(t.Hour()*60 + t.Minute())
}
