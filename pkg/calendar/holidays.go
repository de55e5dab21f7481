package calendar

import (
	"sort"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/br"
)

// Holiday is a national non-working day.
type Holiday struct {
	Date    time.Time `json:"date"`
	Name    string    `json:"name"`
	Movable bool      `json:"movable"`
}

// Dia da Consciência Negra became a national holiday with Lei 14.759/2023.
const blackConsciousnessFirstYear = 2024

func fixed(month time.Month, day int, name string) *cal.Holiday {
	return &cal.Holiday{Name: name, Type: cal.ObservancePublic, Month: month, Day: day, Func: cal.CalcDayOfMonth}
}

func fromEaster(offset int, name string) *cal.Holiday {
	return &cal.Holiday{Name: name, Type: cal.ObservancePublic, Offset: offset, Func: cal.CalcEasterOffset}
}

// nationalHolidays are the days the studio never works. Carnaval and Corpus
// Christi are optional days nationally but closed here.
var nationalHolidays = []*cal.Holiday{
	fixed(time.January, 1, "Confraternização Universal"),
	fixed(time.April, 21, "Tiradentes"),
	fixed(time.May, 1, "Dia do Trabalho"),
	fixed(time.September, 7, "Independência do Brasil"),
	fixed(time.October, 12, "Nossa Senhora Aparecida"),
	fixed(time.November, 2, "Finados"),
	fixed(time.November, 15, "Proclamação da República"),
	{
		Name: "Dia Nacional de Zumbi e da Consciência Negra", Type: cal.ObservancePublic,
		Month: time.November, Day: 20, StartYear: blackConsciousnessFirstYear, Func: cal.CalcDayOfMonth,
	},
	fixed(time.December, 25, "Natal"),
	fromEaster(-48, "Carnaval (segunda-feira)"),
	fromEaster(-47, "Carnaval (terça-feira)"),
	fromEaster(-2, "Sexta-feira Santa"),
	fromEaster(60, "Corpus Christi"),
}

var easterSunday = fromEaster(0, "Páscoa")

// publicHolidays are the public holidays shipped with the library's
// Brazilian calendar. They back the business-day checks together with
// nationalHolidays, which only adds names and the optional days.
func publicHolidays() []*cal.Holiday {
	out := make([]*cal.Holiday, 0, len(br.Holidays))
	for _, h := range br.Holidays {
		if h.Type == cal.ObservancePublic {
			out = append(out, h)
		}
	}
	return out
}

// isMovable reports whether h is counted from Easter.
func isMovable(h *cal.Holiday) bool {
	return h.Month == 0
}

// midnightUTC drops the location the library computed in.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Easter returns Easter Sunday of the given year (Gregorian calendar, UTC).
func Easter(year int) time.Time {
	actual, _ := easterSunday.Calc(year)
	return midnightUTC(actual)
}

// Holidays lists the Brazilian national holidays of a year, sorted by date.
func Holidays(year int) []Holiday {
	holidays := make([]Holiday, 0, len(nationalHolidays))
	for _, h := range nationalHolidays {
		actual, _ := h.Calc(year)
		if actual.IsZero() {
			continue
		}
		holidays = append(holidays, Holiday{
			Date:    midnightUTC(actual),
			Name:    h.Name,
			Movable: isMovable(h),
		})
	}
	sort.Slice(holidays, func(i, j int) bool {
		return holidays[i].Date.Before(holidays[j].Date)
	})
	return holidays
}
