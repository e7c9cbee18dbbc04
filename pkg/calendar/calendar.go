package calendar

import (
	"errors"
	"time"
)

// Offset is the fixed Tashkent offset. Uzbekistan has no DST, so the zone
// is a constant rather than a tz database lookup.
const Offset = 5 * time.Hour

const (
	dayLayout = "2006-01-02"
	dayLength = 24 * time.Hour
)

var ErrInvalidDay = errors.New("invalid calendar day")

var zone = time.FixedZone("UTC+5", int(Offset.Seconds()))

// Day is a YYYY-MM-DD token of one Tashkent calendar day.
type Day string

func (d Day) String() string {
	return string(d)
}

type Calendar struct {
	now func() time.Time
}

func New() *Calendar {
	return &Calendar{now: time.Now}
}

// NewWithClock is used by tests and jobs that need a frozen or shifted clock.
func NewWithClock(now func() time.Time) *Calendar {
	if now == nil {
		now = time.Now
	}
	return &Calendar{now: now}
}

func (c *Calendar) Now() time.Time {
	return c.now().UTC()
}

func (c *Calendar) Today() Day {
	return DayOf(c.now())
}

// IsStale reports whether a stored day token belongs to an earlier (or any
// other) day than today. Both the request path and the reset job use it.
func (c *Calendar) IsStale(stored Day) bool {
	return stored != c.Today()
}

// NextMidnight returns the first local midnight strictly after t, as UTC.
func (c *Calendar) NextMidnight(t time.Time) time.Time {
	local := t.In(zone)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, zone).UTC()
}

func DayOf(t time.Time) Day {
	return Day(t.In(zone).Format(dayLayout))
}

func Parse(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", ErrInvalidDay
	}
	return Day(s), nil
}

// DayDistance is the absolute number of whole days between two tokens.
func DayDistance(a, b Day) (int, error) {
	ta, err := time.Parse(dayLayout, string(a))
	if err != nil {
		return 0, ErrInvalidDay
	}
	tb, err := time.Parse(dayLayout, string(b))
	if err != nil {
		return 0, ErrInvalidDay
	}

	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / dayLength), nil
}

// EndOfDay is the UTC instant at which day closes, i.e. local midnight of day+1.
func EndOfDay(day Day) (time.Time, error) {
	start, err := time.ParseInLocation(dayLayout, string(day), zone)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	y, m, d := start.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, zone).UTC(), nil
}
