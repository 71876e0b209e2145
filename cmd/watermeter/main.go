package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/moritzmair/water-usage-tracker/internal/api"
	"github.com/moritzmair/water-usage-tracker/internal/capture"
	"github.com/moritzmair/water-usage-tracker/internal/recognize"
	"github.com/moritzmair/water-usage-tracker/internal/store"
)

var cli struct {
	DB       string `name:"db" default:"data/watermeter.db" help:"Path to SQLite database."`
	Port     string `name:"port" default:"8080" help:"HTTP server port."`
	Timezone string `name:"timezone" default:"Europe/Berlin" help:"Timezone for day boundaries and schedules."`

	CameraURL       string        `name:"camera-url" env:"CAMERA_URL" help:"Snapshot source (http://, ftp:// or file://). Empty disables capture."`
	CaptureInterval time.Duration `name:"capture-interval" default:"1h" help:"Interval between automatic captures."`
	NoCapture       bool          `name:"no-capture" help:"Disable automatic capture (server only, for local dev)."`
	Once            bool          `name:"once" help:"Capture and store one reading, then exit."`

	APIKey  string `name:"api-key" env:"OPENROUTER_API_KEY" help:"OpenRouter API key for meter recognition."`
	Model   string `name:"model" env:"RECOGNITION_MODEL" default:"openai/gpt-4o" help:"Vision model used to read the meter."`
	BaseURL string `name:"base-url" default:"https://openrouter.ai/api/v1" help:"OpenAI-compatible API endpoint."`

	Coverage int `name:"coverage" default:"80" help:"Default usage coverage percent for pump schedules."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("watermeter"),
		kong.Description("Water meter tracker: camera capture, usage analytics and pump schedules."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	// Load timezone once at startup
	loc, err := time.LoadLocation(cli.Timezone)
	if err != nil {
		log.Printf("Warning: could not load %s timezone, using UTC: %v", cli.Timezone, err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	session, err := buildSession(st)
	if err != nil {
		log.Fatalf("capture: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cli.Once {
		if session == nil {
			log.Fatal("--once requires --camera-url and an API key")
		}
		value, err := session.CaptureOnce(ctx)
		if err != nil {
			log.Fatalf("capture: %v", err)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.Fatalf("parse reading %q: %v", value, err)
		}
		if _, err := st.InsertReading(v, true); err != nil {
			log.Fatalf("store reading: %v", err)
		}
		log.Printf("stored reading %s", value)
		return
	}

	if session != nil && !cli.NoCapture {
		go session.Run(ctx)
	} else if session == nil {
		log.Println("capture disabled: no camera configured")
	} else {
		log.Println("capture disabled (--no-capture)")
	}

	var capturer api.Capturer
	if session != nil {
		capturer = session
	}
	server := api.NewServer(st, capturer, cli.Port, loc, cli.Coverage)

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// buildSession wires camera and recognition together. Returns nil when no
// camera URL is configured so the server can run in manual-entry mode.
func buildSession(st *store.Store) (*capture.Session, error) {
	if cli.CameraURL == "" {
		return nil, nil
	}
	if cli.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY required when a camera URL is set")
	}

	source, err := capture.NewSource(cli.CameraURL)
	if err != nil {
		return nil, err
	}
	recognizer, err := recognize.NewClient(cli.APIKey, cli.BaseURL, cli.Model)
	if err != nil {
		return nil, err
	}
	return capture.NewSession(st, source, recognizer, cli.CaptureInterval), nil
}
