package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultShortsURL = "https://www.youtube.com/shorts/"

// ShortsChecker detects Shorts by requesting youtube.com/shorts/{id}.
//
// A Short answers 200; a regular video redirects to /watch. Redirects are not followed.
type ShortsChecker struct {
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	logger      *log.Logger
}

// ShortsOption configures a [ShortsChecker].
type ShortsOption func(*ShortsChecker)

// WithShortsBaseURL points the checker at another host; the video id is appended.
func WithShortsBaseURL(u string) ShortsOption {
	return func(p *ShortsChecker) { p.baseURL = u }
}

// WithShortsLimits bounds in-flight requests and requests per second.
func WithShortsLimits(concurrency int, rps float64) ShortsOption {
	return func(p *ShortsChecker) {
		if concurrency > 0 {
			p.concurrency = concurrency
		}
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// NewShortsChecker creates a checker with 16 concurrent requests at 20 requests per second.
func NewShortsChecker(logger *log.Logger, opts ...ShortsOption) *ShortsChecker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	p := &ShortsChecker{
		baseURL: defaultShortsURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter:     rate.NewLimiter(rate.Limit(20), 20),
		concurrency: 16,
		logger:      shared.WithLogger(logger, "component", "shorts"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Shorts returns the subset of videoIDs that are Shorts.
//
// Failed checks count as "not a Short"; the feed keeps those videos.
func (p *ShortsChecker) Shorts(ctx context.Context, videoIDs []string) map[string]struct{} {
	var (
		mu     sync.Mutex
		shorts = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, id := range videoIDs {
		g.Go(func() error {
			if p.isShort(gctx, id) {
				mu.Lock()
				shorts[id] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug("checked shorts", "videos", len(videoIDs), "shorts", len(shorts))
	return shorts
}

func (p *ShortsChecker) isShort(ctx context.Context, id string) bool {
	if err := p.limiter.Wait(ctx); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.baseURL+id, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("shorts check failed", "video", id, "error", err)
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
