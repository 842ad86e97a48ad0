package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-operators/config"
	"github.com/aluiziolira/go-scrape-operators/models"
	"github.com/aluiziolira/go-scrape-operators/parser"
	"github.com/aluiziolira/go-scrape-operators/pipeline"
)

// Scraper walks the operator index and every detail page it links to.
type Scraper struct {
	cfg     *config.Config
	fetcher *Fetcher
	Metrics *Metrics

	out   io.Writer
	outMu sync.Mutex

	mu           sync.Mutex
	errorCount   int
	errorsByType map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:          cfg,
		fetcher:      fetcher,
		Metrics:      metrics,
		out:          os.Stdout,
		errorsByType: make(map[string]int),
	}, nil
}

// SetOutput redirects progress lines, which go to stdout by default.
func (s *Scraper) SetOutput(w io.Writer) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	s.out = w
}

// Run fetches the index, processes every operator through p and returns the
// collected records. On error the returned result still carries counters.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.ScraperResult{StartTime: time.Now()}
	finish := func(err error) (*models.ScraperResult, error) {
		if err != nil {
			s.recordError(err)
		}
		result.EndTime = time.Now()
		result.RequestCount = s.fetcher.RequestCount()
		result.ErrorCount, result.ErrorsByType = s.snapshotErrors()
		return result, err
	}

	s.progress("Fetching operator list...")
	summaries, err := s.FetchList(ctx)
	if err != nil {
		return finish(err)
	}
	s.progress(fmt.Sprintf("- %d operators found.", len(summaries)))

	operators, err := p.Run(ctx, summaries, s.processOperator)
	if err != nil {
		return finish(err)
	}
	s.progress(fmt.Sprintf("- %d operators processed.", len(operators)))

	result.Operators = operators
	result.TotalCount = len(operators)
	return finish(nil)
}

// FetchList downloads the index page and reads its operator cards.
func (s *Scraper) FetchList(ctx context.Context) ([]models.Summary, error) {
	doc, err := s.fetcher.Fetch(ctx, phaseIndex, s.cfg.IndexURL)
	if err != nil {
		return nil, err
	}
	return ParseOperatorList(doc, s.cfg.Selectors, s.cfg.SiteOrigin)
}

func (s *Scraper) processOperator(ctx context.Context, summary models.Summary) (*models.Operator, error) {
	s.progress(fmt.Sprintf("Fetching %s...", Slug(summary.URL)))

	slug, payload, err := s.FetchDetail(ctx, summary)
	if err != nil {
		return nil, err
	}

	op, err := parser.Normalize(summary, slug, payload)
	if err != nil {
		return nil, err
	}

	s.Metrics.IncOperators()
	s.Metrics.AddLoadoutEntries(string(parser.LoadoutPrimary), len(op.Loadout.Primary))
	s.Metrics.AddLoadoutEntries(string(parser.LoadoutSecondary), len(op.Loadout.Secondary))
	s.Metrics.AddLoadoutEntries(string(parser.LoadoutGadget), len(op.Loadout.Gadgets))
	if op.Loadout.Unique != nil {
		s.Metrics.AddLoadoutEntries(string(parser.LoadoutUniqueAbility), 1)
	}

	slog.Debug("operator processed",
		slog.String("slug", slug),
		slog.String("side", op.Info.Side),
		slog.Int("primary", len(op.Loadout.Primary)),
		slog.Int("secondary", len(op.Loadout.Secondary)),
		slog.Int("gadgets", len(op.Loadout.Gadgets)),
	)
	return op, nil
}

func (s *Scraper) progress(line string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintln(s.out, line)
}

func (s *Scraper) recordError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	category := errorTypeLabel(err)

	s.mu.Lock()
	s.errorCount++
	s.errorsByType[category]++
	s.mu.Unlock()

	s.Metrics.IncError(category)
	slog.Error("scrape failed",
		slog.String("category", category),
		slog.Any("error", err),
	)
}

func (s *Scraper) snapshotErrors() (int, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return s.errorCount, out
}
