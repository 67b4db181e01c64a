package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/tubeswipe/internal/shared"
)

const defaultTimedtextURL = "https://www.youtube.com/api/timedtext"

// TranscriptLanguages are tried in order before falling back to the first listed track.
var TranscriptLanguages = []string{"en", "en-US", "en-GB"}

// Transcripts fetches caption text for a video.
type Transcripts interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// TimedtextClient reads caption tracks from YouTube's timedtext endpoint in json3 format.
type TimedtextClient struct {
	baseURL    string
	httpClient *http.Client
	languages  []string
}

// NewTimedtextClient creates a client for baseURL; empty uses the public endpoint.
func NewTimedtextClient(baseURL string) *TimedtextClient {
	if baseURL == "" {
		baseURL = defaultTimedtextURL
	}
	return &TimedtextClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		languages:  TranscriptLanguages,
	}
}

type trackList struct {
	Tracks []struct {
		LangCode string `xml:"lang_code,attr"`
	} `xml:"track"`
}

type timedtextResponse struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Transcript returns the caption text of the first available language joined by spaces.
// When none of the preferred languages has captions, the first other listed track is used.
// [shared.ErrNoTranscript] means no language had captions.
func (c *TimedtextClient) Transcript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("%w: video id is required", shared.ErrInvalidInput)
	}

	var lastErr error
	for _, lang := range c.languages {
		text, err := c.fetch(ctx, videoID, lang)
		if err == nil && text != "" {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err != nil {
			lastErr = err
		}
	}

	if lang, err := c.fallbackTrack(ctx, videoID); err != nil {
		lastErr = err
	} else if lang != "" {
		text, err := c.fetch(ctx, videoID, lang)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %s: %v", shared.ErrNoTranscript, videoID, lastErr)
	}
	return "", fmt.Errorf("%w: %s", shared.ErrNoTranscript, videoID)
}

// Tracks lists the caption languages published for a video, in listing order.
func (c *TimedtextClient) Tracks(ctx context.Context, videoID string) ([]string, error) {
	params := url.Values{}
	params.Set("type", "list")
	params.Set("v", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("track list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("track list returned status %d", resp.StatusCode)
	}

	var list trackList
	if err := xml.NewDecoder(resp.Body).Decode(&list); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode track list: %w", err)
	}

	langs := make([]string, 0, len(list.Tracks))
	for _, track := range list.Tracks {
		if track.LangCode != "" {
			langs = append(langs, track.LangCode)
		}
	}
	return langs, nil
}

// fallbackTrack returns the first listed language not already tried, or "" when there is none.
func (c *TimedtextClient) fallbackTrack(ctx context.Context, videoID string) (string, error) {
	langs, err := c.Tracks(ctx, videoID)
	if err != nil {
		return "", err
	}
	for _, lang := range langs {
		if !slices.Contains(c.languages, lang) {
			return lang, nil
		}
	}
	return "", nil
}

func (c *TimedtextClient) fetch(ctx context.Context, videoID, lang string) (string, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)
	params.Set("fmt", "json3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("timedtext request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("captions not found in language %s", lang)
	case http.StatusTooManyRequests:
		return "", errors.New("rate limited by YouTube")
	default:
		return "", fmt.Errorf("timedtext returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}

	return parseTimedtext(body)
}

func parseTimedtext(data []byte) (string, error) {
	var tt timedtextResponse
	if err := json.Unmarshal(data, &tt); err != nil {
		return "", fmt.Errorf("failed to decode captions: %w", err)
	}

	parts := make([]string, 0, len(tt.Events))
	for _, event := range tt.Events {
		var line strings.Builder
		for _, seg := range event.Segs {
			line.WriteString(seg.UTF8)
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
