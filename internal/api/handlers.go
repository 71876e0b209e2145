package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/moritzmair/water-usage-tracker/internal/export"
	"github.com/moritzmair/water-usage-tracker/internal/metrics"
	"github.com/moritzmair/water-usage-tracker/internal/models"
	"github.com/moritzmair/water-usage-tracker/internal/store"
	"github.com/moritzmair/water-usage-tracker/internal/usage"
)

// ReadingRow is a reading annotated with the consumption since the previous
// reading, when positive.
type ReadingRow struct {
	models.Reading
	Usage *float64 `json:"usage,omitempty"`
}

// readingRows returns all readings newest first, annotated with per-row
// usage against the next-older reading.
func (s *Server) readingRows() ([]ReadingRow, error) {
	readings, err := s.store.ListReadings()
	if err != nil {
		return nil, err
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].RecordedAt.After(readings[j].RecordedAt)
	})

	rows := make([]ReadingRow, 0, len(readings))
	for i, r := range readings {
		row := ReadingRow{Reading: r}
		if i < len(readings)-1 {
			if used := r.Value - readings[i+1].Value; used > 0 {
				row.Usage = &used
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	rows, err := s.readingRows()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		Readings        []ReadingRow
		Latest          *ReadingRow
		DefaultCoverage int
		CaptureEnabled  bool
	}{
		Readings:        rows,
		DefaultCoverage: s.defaultCoverage,
		CaptureEnabled:  s.capturer != nil,
	}
	if len(rows) > 0 {
		data.Latest = &rows[0]
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rows, err := s.readingRows()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var body struct {
			Value json.Number `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		value, err := body.Value.Float64()
		if err != nil || value <= 0 {
			http.Error(w, "reading must be a positive number", http.StatusBadRequest)
			return
		}

		reading, err := s.store.InsertReading(value, false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.ReadingsIngested.WithLabelValues("manual").Inc()
		writeJSON(w, http.StatusCreated, reading)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleReadingByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/readings/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid reading id", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteReading(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.capturer == nil {
		http.Error(w, "no camera configured", http.StatusServiceUnavailable)
		return
	}

	value, err := s.capturer.CaptureOnce(r.Context())
	if err != nil {
		log.Printf("api: manual capture: %v", err)
		http.Error(w, "no reading recognized, please enter the value manually", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"value": value})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	readings, err := s.store.ListReadings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now().In(s.loc)

	var series *usage.Series
	switch view := r.URL.Query().Get("view"); view {
	case "", "today":
		series = usage.HourlyToday(readings, now)
	case "trailing-week":
		series = usage.DailyTrailing(readings, 7, now)
	case "weekday-average":
		series = usage.WeekdayAverageSeries(readings, s.loc)
	default:
		http.Error(w, fmt.Sprintf("unknown chart view %q", view), http.StatusBadRequest)
		return
	}

	if series == nil {
		// Fewer than two readings: nothing to draw.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// buildSchedule parses the coverage parameter and derives the schedule from
// a fresh snapshot.
func (s *Server) buildSchedule(r *http.Request) (*usage.PumpSchedule, int, error) {
	coverage := float64(s.defaultCoverage)
	if raw := r.URL.Query().Get("coverage"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("coverage must be an integer between 1 and 100")
		}
		coverage = float64(v)
	}

	readings, err := s.store.ListReadings()
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	schedule, err := usage.BuildPumpSchedule(readings, coverage, s.loc)
	switch {
	case errors.Is(err, usage.ErrCoverageOutOfRange):
		return nil, http.StatusBadRequest, err
	case errors.Is(err, usage.ErrInsufficientHistory):
		return nil, http.StatusUnprocessableEntity,
			fmt.Errorf("%w (need at least %d)", err, usage.MinReadingsForSchedule)
	case err != nil:
		return nil, http.StatusInternalServerError, err
	}
	return schedule, http.StatusOK, nil
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, status, err := s.buildSchedule(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (s *Server) handleScheduleText(w http.ResponseWriter, r *http.Request) {
	schedule, status, err := s.buildSchedule(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(export.Text(schedule)))
}

func (s *Server) handleScheduleICS(w http.ResponseWriter, r *http.Request) {
	schedule, status, err := s.buildSchedule(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pump-schedule.ics"`)
	w.Write([]byte(export.ICS(schedule, time.Now().In(s.loc))))
}

type healthStatus struct {
	Status       string     `json:"status"`
	ReadingCount int        `json:"reading_count"`
	LastReading  *time.Time `json:"last_reading,omitempty"`
	AgeHours     float64    `json:"age_hours,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountReadings()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := healthStatus{Status: "ok", ReadingCount: count}

	latest, err := s.store.LatestReading()
	if err == nil && latest != nil {
		health.LastReading = &latest.RecordedAt
		health.AgeHours = time.Since(latest.RecordedAt).Hours()
	}

	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}
