package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-operators/config"
	"github.com/aluiziolira/go-scrape-operators/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.Operator
	closed      bool
	validateErr error
}

func (mw *mockWriter) Write(operators []*models.Operator) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	copyBatch := make([]*models.Operator, len(operators))
	copy(copyBatch, operators)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func summaries(n int) []models.Summary {
	items := make([]models.Summary, n)
	for i := range items {
		items[i] = models.Summary{
			Name: fmt.Sprintf("Op %d", i),
			URL:  fmt.Sprintf("http://r6.test/operators/op%d", i),
		}
	}
	return items
}

func echoDetail(ctx context.Context, summary models.Summary) (*models.Operator, error) {
	return &models.Operator{
		Info: models.Info{
			Name:       summary.URL[len("http://r6.test/operators/"):],
			PrettyName: summary.Name,
			Side:       models.SideDefender,
			URL:        summary.URL,
		},
		Loadout: models.NewLoadout(),
	}, nil
}

func TestPipelineRunSequentialOrder(t *testing.T) {
	p := NewPipeline(&mockWriter{}, config.DefaultConfig())

	var order []string
	fetch := func(ctx context.Context, summary models.Summary) (*models.Operator, error) {
		order = append(order, summary.Name)
		return echoDetail(ctx, summary)
	}

	ops, err := p.Run(context.Background(), summaries(5), fetch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ops) != 5 {
		t.Fatalf("operators=%d, want 5", len(ops))
	}
	for i, op := range ops {
		if want := fmt.Sprintf("op%d", i); op.Info.Name != want {
			t.Fatalf("operator %d = %s, want %s", i, op.Info.Name, want)
		}
		if order[i] != fmt.Sprintf("Op %d", i) {
			t.Fatalf("fetch order = %v", order)
		}
	}

	metrics := p.GetMetrics()
	if processed := metrics["processed_operators"].(int64); processed != 5 {
		t.Fatalf("processed=%d, want 5", processed)
	}
}

func TestPipelineRunParallelKeepsOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Parallelism = 8
	p := NewPipeline(&mockWriter{}, cfg)

	var inFlight, peak int64
	fetch := func(ctx context.Context, summary models.Summary) (*models.Operator, error) {
		current := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if current <= old || atomic.CompareAndSwapInt64(&peak, old, current) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return echoDetail(ctx, summary)
	}

	ops, err := p.Run(context.Background(), summaries(40), fetch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, op := range ops {
		if want := fmt.Sprintf("op%d", i); op.Info.Name != want {
			t.Fatalf("operator %d = %s, want %s", i, op.Info.Name, want)
		}
	}
	if got := atomic.LoadInt64(&peak); got > 8 {
		t.Fatalf("peak concurrency = %d, want <= 8", got)
	}
}

func TestPipelineRunStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")

	for _, parallelism := range []int{1, 4} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Parallelism = parallelism
			writer := &mockWriter{}
			p := NewPipeline(writer, cfg)

			var calls int64
			fetch := func(ctx context.Context, summary models.Summary) (*models.Operator, error) {
				atomic.AddInt64(&calls, 1)
				if summary.Name == "Op 2" {
					return nil, boom
				}
				return echoDetail(ctx, summary)
			}

			ops, err := p.Run(context.Background(), summaries(20), fetch)
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			if ops != nil {
				t.Fatalf("expected no operators on failure, got %d", len(ops))
			}
			if parallelism == 1 && atomic.LoadInt64(&calls) != 3 {
				t.Fatalf("sequential run made %d calls, want 3", calls)
			}
			if len(writer.batches) != 0 {
				t.Fatalf("writer should not be called by Run")
			}
			if failed := p.GetMetrics()["failed_operators"].(int64); failed < 1 {
				t.Fatalf("failed=%d, want at least 1", failed)
			}
		})
	}
}

func TestPipelineRunCanceled(t *testing.T) {
	p := NewPipeline(&mockWriter{}, config.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := p.Run(ctx, summaries(3), func(ctx context.Context, summary models.Summary) (*models.Operator, error) {
		called = true
		return echoDetail(ctx, summary)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("fetch should not run after cancellation")
	}
}

func TestPipelineFlagsDuplicateSlugs(t *testing.T) {
	p := NewPipeline(&mockWriter{}, config.DefaultConfig())
	items := append(summaries(2), summaries(1)...)

	ops, err := p.Run(context.Background(), items, echoDetail)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("duplicates are kept: operators=%d, want 3", len(ops))
	}

	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["duplicate_slug"] != 1 {
		t.Fatalf("duplicate_slug=%d, want 1", validation["duplicate_slug"])
	}
	if validation["invalid_record"] != 0 {
		t.Fatalf("invalid_record=%d, want 0", validation["invalid_record"])
	}
}

func TestPipelineCountsInvalidRecords(t *testing.T) {
	p := NewPipeline(&mockWriter{}, config.DefaultConfig())
	fetch := func(ctx context.Context, summary models.Summary) (*models.Operator, error) {
		return &models.Operator{Info: models.Info{Name: "ghost"}, Loadout: models.NewLoadout()}, nil
	}

	ops, err := p.Run(context.Background(), summaries(1), fetch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("invalid records are still kept: operators=%d, want 1", len(ops))
	}
	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["invalid_record"] != 1 {
		t.Fatalf("invalid_record=%d, want 1", validation["invalid_record"])
	}
}

func TestPipelineWrite(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer, config.DefaultConfig())

	ops, err := p.Run(context.Background(), summaries(3), echoDetail)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Write(ops); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(writer.batches) != 1 || len(writer.batches[0]) != 3 {
		t.Fatalf("expected a single write of 3 operators, got %v", writer.batches)
	}
	if !writer.closed {
		t.Fatalf("writer should be closed")
	}

	failing := &mockWriter{validateErr: errors.New("short file")}
	if err := NewPipeline(failing, config.DefaultConfig()).Write(ops); err == nil {
		t.Fatalf("expected validation error to surface")
	}
}
