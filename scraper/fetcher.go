package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-operators/config"
	"github.com/gocolly/colly/v2"
)

const (
	phaseIndex  = "index"
	phaseDetail = "detail"
)

// Fetcher issues GET requests through a single colly collector so every
// page shares one transport and connection pool.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics

	requestCount int64
}

// NewFetcher builds a synchronous collector restricted to the configured hosts.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	hosts := cfg.AllowedHosts()
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no allowed hosts in index URL %q or site origin %q", cfg.IndexURL, cfg.SiteOrigin)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(hosts...),
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.ParseHTTPErrorResponse = true
	// colly caps bodies at 10 MiB by default and truncates silently.
	collector.MaxBodySize = cfg.MaxBodySize
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &Fetcher{collector: collector, metrics: metrics}
	f.configureHandlers()
	return f, nil
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&f.requestCount, 1)
		f.metrics.IncRequest(r.Ctx.Get("phase"))
		slog.Debug("request", slog.String("phase", r.Ctx.Get("phase")), slog.String("url", r.URL.String()))
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("status", r.StatusCode)
		r.Ctx.Put("body", r.Body)
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(r.Ctx.Get("phase"), time.Since(start))
		}
	})
}

// Fetch retrieves rawURL and parses the body into a document. Any non-2xx
// status is an error.
func (f *Fetcher) Fetch(ctx context.Context, phase, rawURL string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cctx := colly.NewContext()
	cctx.Put("phase", phase)

	if err := f.collector.Request(http.MethodGet, rawURL, nil, cctx, nil); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, classifyError(err, 0, rawURL))
	}

	status, _ := cctx.GetAny("status").(int)
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		slog.Error("non-2xx response", slog.Int("status", status), slog.String("url", rawURL))
		classified := classifyError(nil, status, rawURL)
		if classified == nil {
			classified = &HTTPStatusError{StatusCode: status, URL: rawURL}
		}
		return nil, fmt.Errorf("fetch %s: %w", rawURL, classified)
	}

	body, _ := cctx.GetAny("body").([]byte)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

// RequestCount reports how many requests the collector has issued.
func (f *Fetcher) RequestCount() int {
	return int(atomic.LoadInt64(&f.requestCount))
}

func classifyError(err error, statusCode int, rawURL string) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		status := &HTTPStatusError{StatusCode: statusCode, URL: rawURL}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: status}
		case http.StatusNotFound:
			return ErrNotFound{Err: status}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: status}
		}
		return status
	}

	return err
}
