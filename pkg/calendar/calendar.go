// Package calendar implements business-day arithmetic over the Brazilian
// national holiday calendar.
//
// A business day is any weekday that is not a national holiday (fixed or
// Easter-based) and not one of the extra dates configured on the Calendar.
// All results are normalised to midnight in the location of the input.
package calendar

import (
	"sync"
	"time"

	"github.com/rickar/cal/v2"
)

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{y, m, d}
}

// Calendar answers business-day questions. It is safe for concurrent use.
type Calendar struct {
	bc *cal.BusinessCalendar

	mu    sync.RWMutex
	years map[int]map[dayKey]*cal.Holiday
}

const recessName = "Recesso"

// New creates a Calendar. Extra dates (e.g. municipal holidays or company
// recess days) are treated as non-business days in addition to the national
// calendar.
func New(extra ...time.Time) *Calendar {
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(publicHolidays()...)
	bc.AddHoliday(nationalHolidays...)
	for _, d := range extra {
		bc.AddHoliday(&cal.Holiday{
			Name:      recessName,
			Type:      cal.ObservanceOther,
			Month:     d.Month(),
			Day:       d.Day(),
			StartYear: d.Year(),
			EndYear:   d.Year(),
			Func:      cal.CalcDayOfMonth,
		})
	}
	return &Calendar{
		bc:    bc,
		years: make(map[int]map[dayKey]*cal.Holiday),
	}
}

// Default is a Calendar with only the national holidays.
var Default = New()

// yearTable indexes the named national holidays of a year.
func (c *Calendar) yearTable(year int) map[dayKey]*cal.Holiday {
	c.mu.RLock()
	table, ok := c.years[year]
	c.mu.RUnlock()
	if ok {
		return table
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if table, ok = c.years[year]; ok {
		return table
	}
	table = make(map[dayKey]*cal.Holiday)
	for _, h := range nationalHolidays {
		if actual, _ := h.Calc(year); !actual.IsZero() {
			table[keyOf(actual)] = h
		}
	}
	c.years[year] = table
	return table
}

// Truncate returns midnight of t's day in t's location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HolidayName returns the holiday name for d, if any.
func (c *Calendar) HolidayName(d time.Time) (string, bool) {
	k := keyOf(d)
	if h, ok := c.yearTable(k.year)[k]; ok {
		return h.Name, true
	}
	if actual, observed, h := c.bc.IsHoliday(Truncate(d)); (actual || observed) && h != nil {
		return h.Name, true
	}
	return "", false
}

// IsHoliday reports whether d is a national holiday or a configured extra day.
func (c *Calendar) IsHoliday(d time.Time) bool {
	_, ok := c.HolidayName(d)
	return ok
}

// IsWeekend reports whether d falls on Saturday or Sunday.
func (c *Calendar) IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsBusinessDay reports whether d is neither a weekend nor a holiday.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	return c.bc.IsWorkday(Truncate(d))
}

// NextBusinessDay returns the first business day strictly after d.
func (c *Calendar) NextBusinessDay(d time.Time) time.Time {
	next := Truncate(d).AddDate(0, 0, 1)
	for !c.IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PreviousBusinessDay returns the last business day strictly before d.
func (c *Calendar) PreviousBusinessDay(d time.Time) time.Time {
	prev := Truncate(d).AddDate(0, 0, -1)
	for !c.IsBusinessDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// RollForward returns d itself when it is a business day, otherwise the next one.
func (c *Calendar) RollForward(d time.Time) time.Time {
	d = Truncate(d)
	if c.IsBusinessDay(d) {
		return d
	}
	return c.NextBusinessDay(d)
}

// AddBusinessDays returns the n-th business day after d. With n == 0 it
// returns d rolled forward to a business day; a negative n walks backwards.
func (c *Calendar) AddBusinessDays(d time.Time, n int) time.Time {
	if n == 0 {
		return c.RollForward(d)
	}
	cur := Truncate(d)
	if n > 0 {
		for i := 0; i < n; i++ {
			cur = c.NextBusinessDay(cur)
		}
		return cur
	}
	for i := 0; i > n; i-- {
		cur = c.PreviousBusinessDay(cur)
	}
	return cur
}

// BusinessDaysBetween counts business days in the half-open interval (a, b].
// The result is negative when b is before a.
func (c *Calendar) BusinessDaysBetween(a, b time.Time) int {
	a, b = Truncate(a), Truncate(b)
	sign := 1
	if b.Before(a) {
		a, b = b, a
		sign = -1
	}
	count := 0
	for cur := a.AddDate(0, 0, 1); !cur.After(b); cur = cur.AddDate(0, 0, 1) {
		if c.IsBusinessDay(cur) {
			count++
		}
	}
	return sign * count
}

// HolidaysBetween lists holidays (national and extra) falling within [a, b].
func (c *Calendar) HolidaysBetween(a, b time.Time) []Holiday {
	a, b = Truncate(a), Truncate(b)
	var out []Holiday
	for cur := a; !cur.After(b); cur = cur.AddDate(0, 0, 1) {
		if h, ok := c.yearTable(cur.Year())[keyOf(cur)]; ok {
			out = append(out, Holiday{Date: cur, Name: h.Name, Movable: isMovable(h)})
			continue
		}
		if name, ok := c.HolidayName(cur); ok {
			out = append(out, Holiday{Date: cur, Name: name})
		}
	}
	return out
}
