package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "modernc.org/sqlite"

	"github.com/dbgovernor/db-access-governor-go/governance"
	"github.com/dbgovernor/db-access-governor-go/governance/oteladapters"
	"github.com/dbgovernor/db-access-governor-go/governance/promadapters"
	"github.com/dbgovernor/db-access-governor-go/governance/sqlengine"
)

const (
	defaultRate        = 200
	defaultWriteShare  = 20
	defaultMetricsAddr = ":9091"
)

// Config carries the load generator command line settings.
type Config struct {
	Rate                 int
	WriteShare           int
	ConnString           string
	MetricsAddr          string
	ObservabilityEnabled bool
	ReportIntervalSec    int
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	db, err := sql.Open("sqlite", cfg.ConnString)
	if err != nil {
		log.Fatalf("Failed to open database handle: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err = db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	options := buildObservabilityOptions(cfg)

	accessContext, err := sqlengine.NewAccessContextFromSQLDB(
		db,
		governance.CapabilitiesFor(governance.EngineSQLite),
		cfg.ConnString,
		governance.ModeStandard,
		options...,
	)
	if err != nil {
		log.Fatalf("Failed to create access context: %v", err)
	}
	defer accessContext.Close()

	log.Printf("Access context opened: engine=%s mode=%s", accessContext.Engine(), accessContext.Mode())

	if cfg.ObservabilityEnabled {
		go serveMetrics(cfg.MetricsAddr)
	}

	generator := NewLoadGenerator(accessContext, cfg)
	generator.Start(ctx)

	log.Printf("Load generator running: rate=%d/s write_share=%d%%", cfg.Rate, cfg.WriteShare)

	<-sigChan
	log.Println("Shutting down...")

	cancel()
	generator.Stop()
	generator.PrintReport()
}

func parseFlags() Config {
	cfg := Config{}

	flag.IntVar(&cfg.Rate, "rate", defaultRate, "Target acquisitions per second")
	flag.IntVar(&cfg.WriteShare, "write-share", defaultWriteShare, "Percentage of acquisitions that are writes (0-100)")
	flag.StringVar(&cfg.ConnString, "conn", "file::memory:?mode=memory&cache=shared", "Connection string")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", defaultMetricsAddr, "Prometheus scrape endpoint address")
	flag.BoolVar(&cfg.ObservabilityEnabled, "observability", false, "Enable logging and Prometheus metrics")
	flag.IntVar(&cfg.ReportIntervalSec, "report-interval", 10, "Seconds between snapshot reports")
	flag.Parse()

	if cfg.WriteShare < 0 || cfg.WriteShare > 100 {
		log.Fatalf("write-share must be between 0 and 100, got %d", cfg.WriteShare)
	}

	return cfg
}

func buildObservabilityOptions(cfg Config) []sqlengine.Option {
	if !cfg.ObservabilityEnabled {
		return nil
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	contextualLogger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)

	collector := promadapters.NewMetricsCollector(prometheus.DefaultRegisterer)

	return []sqlengine.Option{
		sqlengine.WithContextualLogger(contextualLogger),
		sqlengine.WithMetrics(collector),
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Prometheus metrics on http://localhost%s/metrics", addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("Metrics server stopped: %v", err)
	}
}
