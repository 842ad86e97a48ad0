package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-operators/config"
	"github.com/aluiziolira/go-scrape-operators/models"
	"github.com/aluiziolira/go-scrape-operators/pipeline"
	"github.com/aluiziolira/go-scrape-operators/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"
)

type options struct {
	configPath  string
	output      string
	format      string
	parallel    int
	timeout     time.Duration
	pretty      bool
	verbose     bool
	logFile     string
	metricsAddr string
	indexURL    string
}

func main() {
	defaults := config.DefaultConfig()
	opts := options{}

	flag.StringVar(&opts.configPath, "config", "", "Optional YAML configuration file")
	flag.StringVar(&opts.output, "output", defaults.OutputFile, "Output file path")
	flag.StringVar(&opts.format, "format", defaults.OutputFormat, "Output format: json, csv, or dual")
	flag.IntVar(&opts.parallel, "parallel", defaults.Parallelism, "Concurrent detail fetches (1 keeps strict sequential order of requests)")
	flag.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	flag.BoolVar(&opts.pretty, "pretty", defaults.Pretty, "Indent JSON output")
	flag.BoolVar(&opts.verbose, "v", defaults.Verbose, "Enable verbose logging")
	flag.StringVar(&opts.logFile, "log-file", defaults.LogFile, "Write logs to a rotating file instead of stderr")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.StringVar(&opts.indexURL, "index-url", defaults.IndexURL, "Operator index page")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := buildConfig(opts, set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg)
	slog.SetDefault(logger)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stdout)
	stop()
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

// buildConfig layers defaults, the optional YAML file, environment
// variables and explicitly set flags, in that order.
func buildConfig(opts options, set map[string]bool) (*config.Config, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if set["output"] {
		cfg.OutputFile = opts.output
	}
	if set["format"] {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if set["parallel"] {
		cfg.Parallelism = opts.parallel
	}
	if set["timeout"] {
		cfg.Timeout = opts.timeout
	}
	if set["pretty"] {
		cfg.Pretty = opts.pretty
	}
	if set["v"] {
		cfg.Verbose = opts.verbose
	}
	if set["log-file"] {
		cfg.LogFile = opts.logFile
	}
	if set["metrics-addr"] {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if set["index-url"] {
		cfg.IndexURL = opts.indexURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *config.Config) error {
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		return fmt.Errorf("invalid SCRAPER_PARALLEL: %w", err)
	} else if ok {
		cfg.Parallelism = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	slog.Info("starting scrape",
		slog.String("index_url", cfg.IndexURL),
		slog.Int("workers", cfg.Parallelism),
		slog.String("format", cfg.OutputFormat),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}
	s.SetOutput(stdout)

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	writer, target, err := createWriter(cfg)
	if err != nil {
		return err
	}
	p := pipeline.NewPipeline(writer, cfg)

	result, err := s.Run(ctx, p)
	if err != nil {
		logSummary(result, p.GetMetrics())
		return err
	}

	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	fmt.Fprintf(stdout, "Writing to %s...\n", target)
	if err := p.Write(result.Operators); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "- Done!")

	logSummary(result, p.GetMetrics())
	return nil
}

// createWriter returns the writer for cfg and the path reported as the
// primary output.
func createWriter(cfg *config.Config) (pipeline.OutputWriter, string, error) {
	switch cfg.OutputFormat {
	case "json":
		return pipeline.NewJSONWriter(cfg.OutputFile, cfg.Pretty), cfg.OutputFile, nil
	case "csv":
		filename := cfg.OutputFile
		if strings.EqualFold(filepath.Ext(filename), ".json") {
			filename = csvSibling(filename)
		}
		return pipeline.NewCSVWriter(filename), filename, nil
	case "dual":
		return pipeline.NewDualWriter(csvSibling(cfg.OutputFile), cfg.OutputFile, cfg.Pretty), cfg.OutputFile, nil
	default:
		return nil, "", fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
}

// csvSibling swaps the extension of a JSON output path for .csv.
func csvSibling(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".csv"
}

func logSummary(result *models.ScraperResult, metrics map[string]interface{}) {
	if result == nil {
		return
	}
	attrs := []any{
		slog.Int("operators", result.TotalCount),
		slog.Int("requests", result.RequestCount),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)),
	}
	if len(result.ErrorsByType) > 0 {
		attrs = append(attrs, slog.Any("error_types", result.ErrorsByType))
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		attrs = append(attrs, slog.Any("validation", valErrors))
	}
	slog.Info("scrape summary", attrs...)
}

func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	level := &slog.LevelVar{}
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		return slog.New(slog.NewJSONHandler(rotator, opts)), func() { rotator.Close() }
	}

	// Progress lines own stdout; structured logs go to stderr.
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler), func() {}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
