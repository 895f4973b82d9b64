package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidMonthOrYear = errors.New("invalid month or year")

// Month identifies a calendar month of a specific year.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates month (1-12) and year (1-9999).
func NewMonth(month, year int) (Month, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return Month{}, fmt.Errorf("%w: %d/%d", ErrInvalidMonthOrYear, month, year)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// ParseMonth parses month and year as they appear in a request path.
func ParseMonth(monthStr, yearStr string) (Month, error) {
	m, err := strconv.Atoi(strings.TrimSpace(monthStr))
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q", ErrInvalidMonthOrYear, monthStr)
	}
	y, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return Month{}, fmt.Errorf("%w: year %q", ErrInvalidMonthOrYear, yearStr)
	}
	return NewMonth(m, y)
}

// MonthOf returns the month t falls in, evaluated in loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	t = t.In(location(loc))
	return Month{Year: t.Year(), Month: t.Month()}
}

// Range returns [start, end): the first instant of the month and the first
// instant of the following month.
func (m Month) Range(loc *time.Location) (start, end time.Time) {
	loc = location(loc)
	start = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	end = time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, loc)
	return start, end
}

// Contains reports whether t lies in the month's half-open range.
func (m Month) Contains(t time.Time, loc *time.Location) bool {
	start, end := m.Range(loc)
	return !t.Before(start) && t.Before(end)
}

// String renders the month as M/YYYY.
func (m Month) String() string {
	return fmt.Sprintf("%d/%d", int(m.Month), m.Year)
}

// Key is a stable cache key, e.g. "2024-03".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
