// Package usage turns a sparse sequence of meter readings into consumption
// series and a pump on/off schedule. All functions are pure: they take a
// snapshot of readings and return freshly allocated results.
package usage

import (
	"fmt"
	"sort"
	"time"

	"github.com/moritzmair/water-usage-tracker/internal/models"
)

// Series is one chart-ready set of labeled buckets.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Title  string    `json:"title"`
}

// sortByTime returns a copy of readings ordered ascending by RecordedAt.
func sortByTime(readings []models.Reading) []models.Reading {
	sorted := make([]models.Reading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})
	return sorted
}

// dayBounds returns the inclusive [00:00:00, 23:59:59] window of t's day.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end := time.Date(y, m, d, 23, 59, 59, 0, t.Location())
	return start, end
}

// HourlyToday buckets today's consumption by hour of day. Each positive
// delta between consecutive readings is credited entirely to the hour of the
// later reading. Returns nil when fewer than two readings exist.
func HourlyToday(readings []models.Reading, now time.Time) *Series {
	if len(readings) < 2 {
		return nil
	}
	sorted := sortByTime(readings)

	start, end := dayBounds(now)
	var today []models.Reading
	for _, r := range sorted {
		at := r.RecordedAt.In(now.Location())
		if !at.Before(start) && !at.After(end) {
			today = append(today, r)
		}
	}

	values := make([]float64, 24)
	for i := 0; i < len(today)-1; i++ {
		delta := today[i+1].Value - today[i].Value
		if delta > 0 {
			hour := today[i+1].RecordedAt.In(now.Location()).Hour()
			values[hour] += delta
		}
	}

	labels := make([]string, 24)
	for h := range labels {
		labels[h] = fmt.Sprintf("%d:00", h)
	}

	return &Series{Labels: labels, Values: values, Title: "Water usage today (m³)"}
}

// DailyTrailing computes per-day consumption for the trailing days calendar
// days including today, oldest first. A day needs at least two readings;
// its usage is last minus first within the day, floored at zero. Returns nil
// when fewer than two readings exist.
func DailyTrailing(readings []models.Reading, days int, now time.Time) *Series {
	if len(readings) < 2 {
		return nil
	}
	sorted := sortByTime(readings)

	labels := make([]string, 0, days)
	values := make([]float64, days)

	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		labels = append(labels, day.Format("Mon 2.1."))

		start, end := dayBounds(day)
		var first, last *models.Reading
		n := 0
		for j := range sorted {
			at := sorted[j].RecordedAt.In(now.Location())
			if at.Before(start) || at.After(end) {
				continue
			}
			if first == nil {
				first = &sorted[j]
			}
			last = &sorted[j]
			n++
		}

		if n >= 2 {
			if used := last.Value - first.Value; used > 0 {
				values[days-1-i] = used
			}
		}
	}

	return &Series{Labels: labels, Values: values, Title: "Water usage (m³)"}
}

// WeekdayHourMatrix accumulates consumption by weekday and hour of day over
// the whole reading history. Weekday index 0 is Sunday. Counts track how
// many consuming intervals landed in each cell; only positive deltas are
// recorded.
type WeekdayHourMatrix struct {
	Sum   [7][24]float64
	Count [7][24]int
}

// BuildWeekdayHourMatrix pairs consecutive readings across the entire
// time-ordered history and credits each positive delta to the weekday and
// hour of the later reading.
func BuildWeekdayHourMatrix(readings []models.Reading, loc *time.Location) *WeekdayHourMatrix {
	sorted := sortByTime(readings)

	var m WeekdayHourMatrix
	for i := 0; i < len(sorted)-1; i++ {
		delta := sorted[i+1].Value - sorted[i].Value
		if delta <= 0 {
			continue
		}
		at := sorted[i+1].RecordedAt.In(loc)
		day := int(at.Weekday())
		hour := at.Hour()
		m.Sum[day][hour] += delta
		m.Count[day][hour]++
	}
	return &m
}

// Averages divides each occupied cell by its observation count. Cells with
// no observations average zero.
func (m *WeekdayHourMatrix) Averages() [7][24]float64 {
	var avg [7][24]float64
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			if m.Count[day][hour] > 0 {
				avg[day][hour] = m.Sum[day][hour] / float64(m.Count[day][hour])
			}
		}
	}
	return avg
}

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayAverageSeries sums each weekday's averaged hourly usage into a
// daily total. Returns nil when fewer than two readings exist.
func WeekdayAverageSeries(readings []models.Reading, loc *time.Location) *Series {
	if len(readings) < 2 {
		return nil
	}

	avg := BuildWeekdayHourMatrix(readings, loc).Averages()

	values := make([]float64, 7)
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			values[day] += avg[day][hour]
		}
	}

	return &Series{Labels: weekdayNames[:], Values: values, Title: "Average usage per weekday (m³)"}
}
