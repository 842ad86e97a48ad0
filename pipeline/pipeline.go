package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-operators/config"
	"github.com/aluiziolira/go-scrape-operators/models"
	"github.com/aluiziolira/go-scrape-operators/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultDedupeSize = 1024

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(operators []*models.Operator) error
	Close() error
	Validate() error
}

// DetailFunc turns one index summary into a normalized operator.
type DetailFunc func(ctx context.Context, summary models.Summary) (*models.Operator, error)

// Pipeline drives detail processing for every summary and hands the
// finished collection to the writer.
type Pipeline struct {
	writer  OutputWriter
	workers int
	seen    *lru.Cache[string, struct{}]

	metrics *metrics
}

// NewPipeline builds a pipeline; cfg.Parallelism above one enables ordered fan-out.
func NewPipeline(writer OutputWriter, cfg *config.Config) *Pipeline {
	workers, size := 1, defaultDedupeSize
	if cfg != nil {
		if cfg.Parallelism > 1 {
			workers = cfg.Parallelism
		}
		if cfg.DedupeSize > 0 {
			size = cfg.DedupeSize
		}
	}

	// lru.New only fails for a non-positive size.
	seen, _ := lru.New[string, struct{}](size)

	return &Pipeline{
		writer:  writer,
		workers: workers,
		seen:    seen,
		metrics: newMetrics(),
	}
}

// Run processes items with fetch and returns the operators in item order.
// The first error stops the run and is returned with no partial result.
func (p *Pipeline) Run(ctx context.Context, items []models.Summary, fetch DetailFunc) ([]*models.Operator, error) {
	if p.workers <= 1 || len(items) <= 1 {
		return p.runSequential(ctx, items, fetch)
	}
	return p.runParallel(ctx, items, fetch)
}

func (p *Pipeline) runSequential(ctx context.Context, items []models.Summary, fetch DetailFunc) ([]*models.Operator, error) {
	results := make([]*models.Operator, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, err := fetch(ctx, item)
		if err != nil {
			p.metrics.incrementFailed()
			return nil, err
		}
		p.accept(op)
		results = append(results, op)
	}
	return results, nil
}

func (p *Pipeline) runParallel(ctx context.Context, items []models.Summary, fetch DetailFunc) ([]*models.Operator, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*models.Operator, len(items))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := p.workers
	if workers > len(items) {
		workers = len(items)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				op, err := fetch(ctx, items[i])
				if err != nil {
					p.metrics.incrementFailed()
					fail(err)
					continue
				}
				p.accept(op)
				results[i] = op
			}
		}()
	}

feed:
	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) accept(op *models.Operator) {
	if op == nil {
		return
	}
	if err := parser.ValidateOperator(op); err != nil {
		slog.Warn("operator record failed validation", slog.Any("error", err))
		p.metrics.addValidation("invalid_record")
	}
	if found, _ := p.seen.ContainsOrAdd(op.Info.Name, struct{}{}); found {
		slog.Warn("duplicate operator slug", slog.String("slug", op.Info.Name))
		p.metrics.addValidation("duplicate_slug")
	}
	p.metrics.incrementProcessed()
}

// Write hands the full collection to the writer in one call, closes it and
// checks the result on disk.
func (p *Pipeline) Write(operators []*models.Operator) error {
	if err := p.writer.Write(operators); err != nil {
		return fmt.Errorf("write operators: %w", err)
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	if err := p.writer.Validate(); err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	failed     int64
	validation map[string]int
}

func newMetrics() *metrics {
	return &metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) incrementFailed() {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_operators": m.processed,
		"failed_operators":    m.failed,
		"validation_errors":   copyValidation,
	}
}
