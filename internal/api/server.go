package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moritzmair/water-usage-tracker/internal/store"
)

// Capturer runs one manual snapshot-recognize-extract cycle.
type Capturer interface {
	CaptureOnce(ctx context.Context) (string, error)
}

type Server struct {
	store           *store.Store
	capturer        Capturer // nil when no camera is configured
	port            string
	loc             *time.Location
	defaultCoverage int
	tmpl            *template.Template
}

func NewServer(st *store.Store, capturer Capturer, port string, loc *time.Location, defaultCoverage int) *Server {
	return &Server{
		store:           st,
		capturer:        capturer,
		port:            port,
		loc:             loc,
		defaultCoverage: defaultCoverage,
		tmpl:            newTemplates(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/readings", s.handleReadings)
	mux.HandleFunc("/api/readings/", s.handleReadingByID)
	mux.HandleFunc("/api/capture", s.handleCapture)
	mux.HandleFunc("/api/chart", s.handleChart)
	mux.HandleFunc("/api/schedule", s.handleSchedule)
	mux.HandleFunc("/api/schedule.txt", s.handleScheduleText)
	mux.HandleFunc("/api/schedule.ics", s.handleScheduleICS)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
