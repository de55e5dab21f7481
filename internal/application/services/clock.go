package services

import (
	"time"

	"github.com/devstudio/backoffice/pkg/calendar"
)

// Clock reads the current time. Tests replace it.
type Clock func() time.Time

// dateIn returns t's calendar day in loc as a UTC midnight, the form DATE
// columns and the calendar package work with.
func dateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// businessDay holds the calendar and the local day boundary shared by the
// date-aware services.
type businessDay struct {
	cal *calendar.Calendar
	loc *time.Location
	now Clock
}

func (b businessDay) today() time.Time {
	return dateIn(b.now(), b.loc)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// dateLayout is how dates are shown to clients.
const dateLayout = "02/01/2006"
