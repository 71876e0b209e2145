package usage

import (
	"errors"
	"testing"
	"time"

	"github.com/moritzmair/water-usage-tracker/internal/models"
)

// tuesdayReadings builds n+1 readings on consecutive Tuesday hours starting
// at startHour, each consuming perHour.
func hourlyRun(day time.Time, startHour, n int, start, perHour float64) []models.Reading {
	readings := make([]models.Reading, 0, n+1)
	v := start
	for i := 0; i <= n; i++ {
		readings = append(readings, models.Reading{
			Value:      v,
			RecordedAt: day.Add(time.Duration(startHour+i) * time.Hour),
		})
		v += perHour
	}
	return readings
}

func TestBuildPumpSchedule_SingleRange(t *testing.T) {
	// Usage in hours 2..4 of a Tuesday only. The deltas land on hours
	// 2, 3 and 4 (end-of-interval crediting), so the schedule for Tuesday
	// must be exactly {2, 5}.
	tue := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	readings := hourlyRun(tue, 1, 3, 100.0, 0.5)

	// Pad history with flat readings so the 10-reading floor is met without
	// adding usage.
	mon := tue.AddDate(0, 0, -1)
	for i := 0; i < 7; i++ {
		readings = append(readings, models.Reading{
			Value:      100.0,
			RecordedAt: mon.Add(time.Duration(i) * time.Hour),
		})
	}

	schedule, err := BuildPumpSchedule(readings, 80, time.UTC)
	if err != nil {
		t.Fatalf("BuildPumpSchedule: %v", err)
	}

	if len(schedule.Days) != 1 {
		t.Fatalf("len(Days) = %d, want 1 (quiet weekdays omitted)", len(schedule.Days))
	}
	day := schedule.Days[0]
	if day.Weekday != time.Tuesday {
		t.Errorf("Weekday = %v, want Tuesday", day.Weekday)
	}
	if len(day.Ranges) != 1 {
		t.Fatalf("len(Ranges) = %d, want 1", len(day.Ranges))
	}
	if r := day.Ranges[0]; r.StartHour != 2 || r.EndHour != 5 {
		t.Errorf("range = {%d, %d}, want {2, 5}", r.StartHour, r.EndHour)
	}
}

func TestBuildPumpSchedule_RangeOpenAtMidnight(t *testing.T) {
	// Usage in the last hours of a Friday: the final range closes at 24.
	fri := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	readings := hourlyRun(fri, 20, 3, 50.0, 0.2)

	thu := fri.AddDate(0, 0, -1)
	for i := 0; i < 7; i++ {
		readings = append(readings, models.Reading{
			Value:      50.0,
			RecordedAt: thu.Add(time.Duration(i) * time.Hour),
		})
	}

	schedule, err := BuildPumpSchedule(readings, 100, time.UTC)
	if err != nil {
		t.Fatalf("BuildPumpSchedule: %v", err)
	}

	if len(schedule.Days) != 1 {
		t.Fatalf("len(Days) = %d, want 1", len(schedule.Days))
	}
	ranges := schedule.Days[0].Ranges
	if len(ranges) != 1 {
		t.Fatalf("len(Ranges) = %d, want 1", len(ranges))
	}
	if r := ranges[0]; r.StartHour != 21 || r.EndHour != 24 {
		t.Errorf("range = {%d, %d}, want {21, 24}", r.StartHour, r.EndHour)
	}
}

func TestBuildPumpSchedule_Stats(t *testing.T) {
	tue := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	readings := hourlyRun(tue, 5, 9, 10.0, 0.5)

	schedule, err := BuildPumpSchedule(readings, 100, time.UTC)
	if err != nil {
		t.Fatalf("BuildPumpSchedule: %v", err)
	}

	stats := schedule.Stats
	if stats.TotalActiveHours != 9 {
		t.Errorf("TotalActiveHours = %d, want 9", stats.TotalActiveHours)
	}
	if got := stats.ActiveHoursPerDay * 7; got != float64(stats.TotalActiveHours) {
		t.Errorf("ActiveHoursPerDay*7 = %v, want %d exactly", got, stats.TotalActiveHours)
	}
	if !almostEqual(stats.CoverageAchievedPercent, 100) {
		t.Errorf("CoverageAchievedPercent = %v, want 100", stats.CoverageAchievedPercent)
	}
	wantSavings := float64(168-9) / 168 * 100
	if !almostEqual(stats.EnergySavingsPercent, wantSavings) {
		t.Errorf("EnergySavingsPercent = %v, want %v", stats.EnergySavingsPercent, wantSavings)
	}
}

func TestBuildPumpSchedule_InsufficientHistory(t *testing.T) {
	tue := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	readings := hourlyRun(tue, 5, 8, 10.0, 0.5) // 9 readings, one short

	_, err := BuildPumpSchedule(readings, 80, time.UTC)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("err = %v, want ErrInsufficientHistory", err)
	}
}

func TestBuildPumpSchedule_CoverageOutOfRange(t *testing.T) {
	tue := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	readings := hourlyRun(tue, 5, 9, 10.0, 0.5)

	for _, percent := range []float64{0, -5, 101} {
		if _, err := BuildPumpSchedule(readings, percent, time.UTC); !errors.Is(err, ErrCoverageOutOfRange) {
			t.Errorf("coverage %v: err = %v, want ErrCoverageOutOfRange", percent, err)
		}
	}
}

func TestBuildPumpSchedule_Idempotent(t *testing.T) {
	tue := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	readings := hourlyRun(tue, 5, 9, 10.0, 0.5)

	a, err := BuildPumpSchedule(readings, 80, time.UTC)
	if err != nil {
		t.Fatalf("BuildPumpSchedule: %v", err)
	}
	b, err := BuildPumpSchedule(readings, 80, time.UTC)
	if err != nil {
		t.Fatalf("BuildPumpSchedule: %v", err)
	}

	if len(a.Days) != len(b.Days) || a.Stats != b.Stats {
		t.Fatalf("recompute differs: %+v vs %+v", a, b)
	}
}
