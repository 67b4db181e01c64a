package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/metrics"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxContentChars caps the transcript or description sent to the model.
const DefaultMaxContentChars = 10000

const descriptionNote = "\n\n(Summary based on video description as captions were unavailable)"

const curatorPrompt = "You are an expert video curator. Your task is to provide a concise summary of the video's subject matter. " +
	"CRITICAL INSTRUCTIONS:\n" +
	"1. **IGNORE** all promotional content, links, merchandise, social media handles, and requests to subscribe.\n" +
	"2. **USE EXTERNAL KNOWLEDGE**: If the Title/Channel mentions a person or event (e.g., 'Gabriel', 'Arsenal'), explain who they are and the context, even if the description doesn't.\n" +
	"3. **BE DIRECT**: State the facts. Do not say 'The video discusses...'. Just say what happened.\n" +
	"4. **FORMAT**: Return the result as a clean HTML unordered list (<ul>) with <li> items. Do NOT use markdown or code blocks.\n" +
	"Keep it under 100 words."

// SummaryCache stores summaries by video id; implemented by repositories.SummaryRepository.
type SummaryCache interface {
	Get(ctx context.Context, videoID string) (*models.Summary, error)
	Save(ctx context.Context, summary *models.Summary) error
}

// SummaryService turns a video's captions (or its description) into a short HTML list.
type SummaryService struct {
	cache       SummaryCache
	transcripts Transcripts
	providers   []Provider
	maxChars    int
	metrics     *metrics.Metrics
	logger      *log.Logger
	group       singleflight.Group
}

// NewSummaryService wires the summary pipeline. providers are tried in order.
func NewSummaryService(cache SummaryCache, transcripts Transcripts, providers []Provider, logger *log.Logger) *SummaryService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SummaryService{
		cache:       cache,
		transcripts: transcripts,
		providers:   providers,
		maxChars:    DefaultMaxContentChars,
		logger:      shared.WithLogger(logger, "component", "summary"),
	}
}

// WithMaxContentChars overrides the content cap; non-positive values are ignored.
func (s *SummaryService) WithMaxContentChars(n int) *SummaryService {
	if n > 0 {
		s.maxChars = n
	}
	return s
}

// WithMetrics records cache and LLM events on m.
func (s *SummaryService) WithMetrics(m *metrics.Metrics) *SummaryService {
	s.metrics = m
	return s
}

type summaryResult struct {
	summary *models.Summary
	cached  bool
}

// Summarize returns the summary for videoID and whether it came from the cache.
//
// details may be nil (mock sessions); the prompt then uses placeholder title and channel.
// Concurrent calls for the same video share one generation. The generation is not cancelled with the
// caller that started it; each caller stops waiting when its own ctx is done.
func (s *SummaryService) Summarize(ctx context.Context, videoID string, details VideoDetailer) (*models.Summary, bool, error) {
	if videoID == "" {
		return nil, false, fmt.Errorf("%w: video id is required", shared.ErrInvalidInput)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(videoID, func() (any, error) {
		ctx := flightCtx
		if cached, err := s.cache.Get(ctx, videoID); err == nil {
			s.metrics.SummaryLookup(true)
			return summaryResult{summary: cached, cached: true}, nil
		} else if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("summary cache lookup failed", "video", videoID, "error", err)
		}
		s.metrics.SummaryLookup(false)

		summary, err := s.generate(ctx, videoID, details)
		if err != nil {
			return nil, err
		}

		if err := s.cache.Save(ctx, summary); err != nil {
			s.logger.Error("failed to cache summary", "video", videoID, "error", err)
		}
		return summaryResult{summary: summary}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		out := res.Val.(summaryResult)
		return out.summary, out.cached, nil
	}
}

func (s *SummaryService) generate(ctx context.Context, videoID string, details VideoDetailer) (*models.Summary, error) {
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or OPENAI_API_KEY", shared.ErrNoLLMKey)
	}

	title, channel, description := unknownTitle, unknownChannel, ""
	if details != nil {
		video, err := details.VideoDetails(ctx, videoID)
		switch {
		case err != nil:
			s.logger.Warn("could not fetch video details", "video", videoID, "error", err)
		default:
			if video.Title != "" {
				title = video.Title
			}
			if video.ChannelTitle != "" {
				channel = video.ChannelTitle
			}
			description = video.Description
		}
	}

	content, source, err := s.content(ctx, videoID, description)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(title, channel, shared.Truncate(content, s.maxChars))

	text, provider, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if source == models.SourceDescription {
		text += descriptionNote
	}
	return models.NewSummary(videoID, text, source, provider), nil
}

// content prefers the transcript and falls back to the description.
func (s *SummaryService) content(ctx context.Context, videoID, description string) (string, string, error) {
	if s.transcripts != nil {
		text, err := s.transcripts.Transcript(ctx, videoID)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, models.SourceTranscript, nil
		}
		if err != nil {
			s.logger.Warn("transcript fetch failed", "video", videoID, "error", err)
		}
	}

	if strings.TrimSpace(description) == "" {
		return "", "", fmt.Errorf("%w: no transcript and no description for %s", shared.ErrNoContent, videoID)
	}
	s.logger.Info("falling back to video description", "video", videoID)
	return description, models.SourceDescription, nil
}

// complete walks the provider chain and returns the first non-empty answer.
func (s *SummaryService) complete(ctx context.Context, prompt string) (string, string, error) {
	var errs []error
	for _, p := range s.providers {
		start := time.Now()
		answer, err := p.Complete(ctx, curatorPrompt, prompt)
		s.metrics.LLMCall(p.Name(), err, time.Since(start))

		if err != nil {
			s.logger.Error("provider failed", "provider", p.Name(), "error", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if text := stripFences(answer); text != "" {
			return text, p.Name(), nil
		}
		errs = append(errs, fmt.Errorf("%s returned an empty answer", p.Name()))
	}

	return "", "", fmt.Errorf("%w: %w", shared.ErrEmptySummary, errors.Join(errs...))
}

func buildPrompt(title, channel, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video Title: %s\n", title)
	fmt.Fprintf(&b, "Channel Name: %s\n\n", channel)
	fmt.Fprintf(&b, "Content to Summarize:\n%s\n\n", content)
	b.WriteString("Instructions:\n")
	b.WriteString("Summarize the actual news or event in an HTML list. Ignore all promotional fluff.")
	return b.String()
}
