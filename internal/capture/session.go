package capture

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/moritzmair/water-usage-tracker/internal/metrics"
	"github.com/moritzmair/water-usage-tracker/internal/models"
	"github.com/moritzmair/water-usage-tracker/internal/recognize"
)

// Recognizer turns a meter photograph into free-form text.
type Recognizer interface {
	ReadMeter(ctx context.Context, image []byte) (string, error)
}

// ReadingStore persists accepted automatic readings.
type ReadingStore interface {
	InsertReading(value float64, automatic bool) (*models.Reading, error)
}

// Session owns the recurring automatic-capture cycle: its ticker, its
// in-flight state, and the snapshot/recognize/store pipeline for one camera.
type Session struct {
	store      ReadingStore
	source     Source
	recognizer Recognizer
	interval   time.Duration

	inFlight atomic.Bool
}

func NewSession(store ReadingStore, source Source, recognizer Recognizer, interval time.Duration) *Session {
	return &Session{
		store:      store,
		source:     source,
		recognizer: recognizer,
		interval:   interval,
	}
}

// Run captures immediately, then once per interval until ctx is cancelled.
// Cancellation is deterministic: no tick fires after Run returns, and a
// capture already in flight finishes its work but does not re-arm anything.
func (s *Session) Run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("capture: shutting down")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick launches one capture cycle unless the previous one is still pending,
// in which case the tick is skipped rather than overlapped.
func (s *Session) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.CaptureCyclesSkipped.Inc()
		log.Println("capture: previous cycle still in flight, skipping tick")
		return
	}

	go func() {
		defer s.inFlight.Store(false)
		if err := s.captureAndStore(ctx); err != nil {
			// Automatic cycles fail quietly; the next tick tries again.
			log.Printf("capture: %v", err)
		}
	}()
}

func (s *Session) captureAndStore(ctx context.Context) error {
	reading, err := s.CaptureOnce(ctx)
	if err != nil {
		return err
	}

	value, err := strconv.ParseFloat(reading, 64)
	if err != nil {
		return fmt.Errorf("parse extracted reading %q: %w", reading, err)
	}

	if _, err := s.store.InsertReading(value, true); err != nil {
		return fmt.Errorf("store reading: %w", err)
	}

	metrics.ReadingsIngested.WithLabelValues("auto").Inc()
	log.Printf("capture: stored automatic reading %s", reading)
	return nil
}

// CaptureOnce runs a single snapshot-recognize-extract cycle and returns the
// normalized reading without persisting it. The manual capture flow uses
// this so the user can confirm the value before it is saved.
func (s *Session) CaptureOnce(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	text, err := s.recognizer.ReadMeter(ctx, downscaleSnapshot(snapshot))
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	reading, err := recognize.ExtractReading(text)
	if err != nil {
		return "", fmt.Errorf("extract from %q: %w", text, err)
	}
	return reading, nil
}
