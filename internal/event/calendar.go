package event

import (
	"fmt"
	"time"
)

const ReminderTitle = "Напоминание"

// UpcomingWindowDays is how far ahead the reminder looks, today included.
const UpcomingWindowDays = 7

// Day is one cell of the month grid.
type Day struct {
	Date   time.Time `json:"date"`
	Events []Event   `json:"events"`
}

// Month is a Monday-first month grid. Leading is the number of blank cells
// before the 1st.
type Month struct {
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Leading int        `json:"leading"`
	Days    []Day      `json:"days"`
}

func BuildMonth(events []Event, year int, month time.Month, loc *time.Location) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	m := Month{Year: year, Month: month, Leading: mondayOffset(first.Weekday())}
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		m.Days = append(m.Days, Day{Date: d, Events: EventsOn(events, d)})
	}
	return m
}

// Weeks lays the days out in rows of seven. Blank cells are nil.
func (m Month) Weeks() [][]*Day {
	cells := make([]*Day, m.Leading, m.Leading+len(m.Days))
	for i := range m.Days {
		cells = append(cells, &m.Days[i])
	}
	for len(cells)%7 != 0 {
		cells = append(cells, nil)
	}

	weeks := make([][]*Day, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}

func mondayOffset(wd time.Weekday) int {
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// EventsOn returns the events planned on date's calendar day.
func EventsOn(events []Event, date time.Time) []Event {
	var out []Event
	for _, e := range events {
		day, ok := e.PlannedDay(date.Location())
		if ok && sameDay(day, date) {
			out = append(out, e)
		}
	}
	return out
}

// Upcoming returns the not completed events planned between today and
// UpcomingWindowDays days ahead.
func Upcoming(events []Event, today time.Time) []Event {
	var out []Event
	for _, e := range events {
		if e.Status == StatusCompleted {
			continue
		}
		day, ok := e.PlannedDay(today.Location())
		if !ok {
			continue
		}
		if diff := daysBetween(today, day); diff >= 0 && diff <= UpcomingWindowDays {
			out = append(out, e)
		}
	}
	return out
}

// IsOverdue reports a not completed event whose planned day has passed.
func IsOverdue(e Event, today time.Time) bool {
	if e.Status == StatusCompleted {
		return false
	}
	day, ok := e.PlannedDay(today.Location())
	return ok && daysBetween(today, day) < 0
}

func ReminderMessage(n int) string {
	return fmt.Sprintf("У вас %d предстоящих мероприятий на этой неделе", n)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// daysBetween counts calendar days from a to b, ignoring clock time and DST.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
