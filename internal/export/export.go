// Package export renders a derived pump schedule as a plain-text report and
// as an iCalendar subscription document. It consumes the schedule as-is and
// re-derives no analytics.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/moritzmair/water-usage-tracker/internal/usage"
)

// Text renders the schedule as a human-readable report.
func Text(schedule *usage.PumpSchedule) string {
	var b strings.Builder

	b.WriteString("Circulation pump schedule\n")
	b.WriteString("=========================\n\n")

	if len(schedule.Days) == 0 {
		b.WriteString("No active hours.\n")
	}
	for _, day := range schedule.Days {
		b.WriteString(day.Name)
		b.WriteString(": ")
		parts := make([]string, 0, len(day.Ranges))
		for _, r := range day.Ranges {
			parts = append(parts, fmt.Sprintf("%02d:00 - %02d:00", r.StartHour, r.EndHour))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}

	stats := schedule.Stats
	b.WriteString("\n")
	fmt.Fprintf(&b, "Active hours per day:  %.1f\n", stats.ActiveHoursPerDay)
	fmt.Fprintf(&b, "Usage coverage:        %.1f%%\n", stats.CoverageAchievedPercent)
	fmt.Fprintf(&b, "Energy savings:        %.1f%%\n", stats.EnergySavingsPercent)

	return b.String()
}

var icalWeekdays = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// ICS renders the schedule as an iCalendar document with one weekly
// recurring event per contiguous on-window, anchored on the next occurrence
// of each range's weekday.
func ICS(schedule *usage.PumpSchedule, now time.Time) string {
	var b strings.Builder

	writeLine := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//water-usage-tracker//pump-schedule//EN")
	writeLine("CALSCALE:GREGORIAN")

	stamp := now.UTC().Format("20060102T150405Z")

	for _, day := range schedule.Days {
		anchor := nextWeekday(now, day.Weekday)
		for _, r := range day.Ranges {
			start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), r.StartHour, 0, 0, 0, now.Location())
			end := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), r.EndHour, 0, 0, 0, now.Location())

			writeLine("BEGIN:VEVENT")
			writeLine(fmt.Sprintf("UID:pump-%s-%02d00@water-usage-tracker", strings.ToLower(day.Name), r.StartHour))
			writeLine("DTSTAMP:" + stamp)
			writeLine("DTSTART:" + start.Format("20060102T150405"))
			writeLine("DTEND:" + end.Format("20060102T150405"))
			writeLine("RRULE:FREQ=WEEKLY;BYDAY=" + icalWeekdays[int(day.Weekday)])
			writeLine("SUMMARY:Circulation pump on")
			writeLine("END:VEVENT")
		}
	}

	writeLine("END:VCALENDAR")
	return b.String()
}

// nextWeekday returns the first day at or after t that falls on w.
func nextWeekday(t time.Time, w time.Weekday) time.Time {
	days := (int(w) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, days)
}
