package usage

import (
	"errors"
	"time"

	"github.com/moritzmair/water-usage-tracker/internal/models"
)

// MinReadingsForSchedule is the fewest readings the schedule builder will
// work from. Below this the weekday averages are too sparse to be advice.
const MinReadingsForSchedule = 10

var (
	ErrInsufficientHistory = errors.New("not enough readings to derive a schedule")
	ErrCoverageOutOfRange  = errors.New("coverage percentage must be between 1 and 100")
)

// TimeRange is a contiguous on-window. EndHour is exclusive, so {6, 9}
// means 06:00 up to 09:00.
type TimeRange struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// WeekdaySchedule holds the on-windows for one weekday.
type WeekdaySchedule struct {
	Weekday time.Weekday `json:"weekday"`
	Name    string       `json:"name"`
	Ranges  []TimeRange  `json:"ranges"`
}

// ScheduleStats summarises a schedule across the whole week.
type ScheduleStats struct {
	TotalActiveHours        int     `json:"total_active_hours"`
	ActiveHoursPerDay       float64 `json:"active_hours_per_day"`
	CoverageAchievedPercent float64 `json:"coverage_achieved_percent"`
	EnergySavingsPercent    float64 `json:"energy_savings_percent"`
}

// PumpSchedule is the derived on/off recommendation for a circulation pump.
// Weekdays with no qualifying hours carry no entry in Days.
type PumpSchedule struct {
	Days  []WeekdaySchedule `json:"days"`
	Stats ScheduleStats     `json:"stats"`
}

const hoursPerWeek = 7 * 24

// BuildPumpSchedule derives on/off windows covering coveragePercent of
// historical consumption from the reading history. Hours whose average usage
// is at or above the coverage threshold run; ties at the threshold are
// included.
func BuildPumpSchedule(readings []models.Reading, coveragePercent float64, loc *time.Location) (*PumpSchedule, error) {
	if coveragePercent <= 0 || coveragePercent > 100 {
		return nil, ErrCoverageOutOfRange
	}
	if len(readings) < MinReadingsForSchedule {
		return nil, ErrInsufficientHistory
	}

	averages := BuildWeekdayHourMatrix(readings, loc).Averages()
	threshold, total := CoverageThreshold(averages, coveragePercent)

	schedule := &PumpSchedule{}
	totalActive := 0
	var covered float64

	for day := 0; day < 7; day++ {
		var ranges []TimeRange
		open := -1
		for hour := 0; hour < 24; hour++ {
			on := averages[day][hour] >= threshold && averages[day][hour] > 0
			if on {
				totalActive++
				covered += averages[day][hour]
				if open < 0 {
					open = hour
				}
			} else if open >= 0 {
				ranges = append(ranges, TimeRange{StartHour: open, EndHour: hour})
				open = -1
			}
		}
		if open >= 0 {
			ranges = append(ranges, TimeRange{StartHour: open, EndHour: 24})
		}

		if len(ranges) > 0 {
			schedule.Days = append(schedule.Days, WeekdaySchedule{
				Weekday: time.Weekday(day),
				Name:    weekdayNames[day],
				Ranges:  ranges,
			})
		}
	}

	schedule.Stats.TotalActiveHours = totalActive
	schedule.Stats.ActiveHoursPerDay = float64(totalActive) / 7
	if total > 0 {
		schedule.Stats.CoverageAchievedPercent = covered / total * 100
	}
	schedule.Stats.EnergySavingsPercent = float64(hoursPerWeek-totalActive) / hoursPerWeek * 100

	return schedule, nil
}
