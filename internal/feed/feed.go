// package feed composes the swipe feed from the user's subscriptions.
//
// Composition emits progress updates via channels for non-blocking status reporting to the CLI and TUI.
package feed

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/metrics"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

const (
	DefaultWindow   = 48 * time.Hour
	DefaultCacheTTL = 5 * time.Minute
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// MutedSource lists muted channel ids; implemented by preferences.Store.
type MutedSource interface {
	MutedIDs() map[string]struct{}
}

// ShortsDetector reports which videos are Shorts; implemented by services.ShortsChecker.
type ShortsDetector interface {
	Shorts(ctx context.Context, videoIDs []string) map[string]struct{}
}

// CannedFeed is implemented by YouTube clients that serve a fixed feed (mock mode).
// Canned feeds skip the age and Shorts filters and are never cached.
type CannedFeed interface {
	Feed() []models.Video
}

// Options select what a single [Composer.Compose] call returns.
type Options struct {
	SessionID     string // cache partition
	IncludeShorts bool
	PlaylistID    string        // when set, only this playlist is checked for saved status and the result is not cached
	Refresh       bool          // bypass the cache
	Window        time.Duration // zero uses the composer default
}

// Config tunes a [Composer]. Zero values use the package defaults.
type Config struct {
	Window     time.Duration
	PerChannel int
	CacheTTL   time.Duration
}

// Composer builds feeds and caches them per session.
type Composer struct {
	muted      MutedSource
	shorts     ShortsDetector
	window     time.Duration
	perChannel int
	ttl        time.Duration
	metrics    *metrics.Metrics
	logger     *log.Logger
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	cards []models.FeedCard
	at    time.Time
}

// NewComposer creates a composer reading muted channels from muted and probing Shorts with shorts.
func NewComposer(muted MutedSource, shorts ShortsDetector, cfg Config, logger *log.Logger) *Composer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.PerChannel <= 0 {
		cfg.PerChannel = services.DefaultPerPlaylist
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &Composer{
		muted:      muted,
		shorts:     shorts,
		window:     cfg.Window,
		perChannel: cfg.PerChannel,
		ttl:        cfg.CacheTTL,
		logger:     shared.WithLogger(logger, "component", "feed"),
		now:        time.Now,
		cache:      make(map[string]cacheEntry),
	}
}

// WithMetrics records feed builds on m.
func (c *Composer) WithMetrics(m *metrics.Metrics) *Composer {
	c.metrics = m
	return c
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func cacheKey(sessionID string, includeShorts bool) string {
	return sessionID + "|shorts:" + strconv.FormatBool(includeShorts)
}

// Compose returns the feed for the user behind yt, newest first.
//
// Muted channels are always removed. Videos older than the window (or with unparsable dates) are dropped,
// and Shorts are dropped unless opts.IncludeShorts is set. Each card is marked with the playlists it is
// already saved to.
func (c *Composer) Compose(ctx context.Context, yt services.YouTube, opts Options, progress chan<- ProgressUpdate) ([]models.FeedCard, error) {
	start := time.Now()
	key := cacheKey(opts.SessionID, opts.IncludeShorts)

	if !opts.Refresh && opts.PlaylistID == "" {
		if cards, ok := c.cached(key); ok {
			c.logger.Debug("serving feed from cache", "key", key, "videos", len(cards))
			c.metrics.FeedServed(true, len(cards), 0)
			sendProgress(progress, cacheHitUpdate(len(cards)))
			return cards, nil
		}
	}

	if canned, ok := yt.(CannedFeed); ok {
		cards := c.markSaved(ctx, yt, c.dropMuted(canned.Feed()), opts.PlaylistID, progress)
		sendProgress(progress, doneUpdate(len(cards)))
		return cards, nil
	}

	sendProgress(progress, subscriptionsUpdate(0))
	subs, err := yt.Subscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	sendProgress(progress, subscriptionsUpdate(len(subs)))
	if len(subs) == 0 {
		sendProgress(progress, doneUpdate(0))
		return []models.FeedCard{}, nil
	}

	uploads, err := yt.UploadPlaylists(ctx, services.ChannelIDs(subs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload playlists: %w", err)
	}

	sendProgress(progress, uploadsUpdate(len(uploads)))
	raw, err := yt.RecentUploads(ctx, uploads, c.perChannel)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent uploads: %w", err)
	}

	window := opts.Window
	if window <= 0 {
		window = c.window
	}
	videos := c.filterRecent(c.dropMuted(raw), window)
	sendProgress(progress, filterUpdate(len(videos), len(raw)-len(videos)))

	if !opts.IncludeShorts && c.shorts != nil && len(videos) > 0 {
		ids := make([]string, len(videos))
		for i, v := range videos {
			ids[i] = v.ID
		}
		shorts := c.shorts.Shorts(ctx, ids)
		videos = slices.DeleteFunc(videos, func(v models.Video) bool {
			_, short := shorts[v.ID]
			return short
		})
		sendProgress(progress, shortsUpdate(len(ids), len(shorts)))
	}

	sortNewestFirst(videos)
	c.addDurations(ctx, yt, videos, progress)

	cards := c.markSaved(ctx, yt, videos, opts.PlaylistID, progress)

	if opts.PlaylistID == "" {
		c.store(key, cards)
		c.logger.Info("feed cache updated", "key", key, "videos", len(cards))
	}

	c.metrics.FeedServed(false, len(cards), time.Since(start))
	sendProgress(progress, doneUpdate(len(cards)))
	return cards, nil
}

// Invalidate drops every cached feed of a session.
func (c *Composer) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, shorts := range []bool{true, false} {
		delete(c.cache, cacheKey(sessionID, shorts))
	}
}

// InvalidateAll drops every cached feed, used when muted channels change.
func (c *Composer) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cache)
}

func (c *Composer) cached(key string) ([]models.FeedCard, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.at) >= c.ttl {
		delete(c.cache, key)
		return nil, false
	}
	return entry.cards, true
}

func (c *Composer) store(key string, cards []models.FeedCard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{cards: cards, at: c.now()}
}

func (c *Composer) dropMuted(videos []models.Video) []models.Video {
	if c.muted == nil {
		return videos
	}
	muted := c.muted.MutedIDs()
	if len(muted) == 0 {
		return videos
	}

	kept := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if _, ok := muted[v.ChannelID]; !ok {
			kept = append(kept, v)
		}
	}
	return kept
}

func (c *Composer) filterRecent(videos []models.Video, window time.Duration) []models.Video {
	cutoff := c.now().Add(-window)

	kept := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		published, err := v.Published()
		if err != nil {
			c.logger.Warn("dropping video with unparsable date", "video", v.ID, "published_at", v.PublishedAt)
			continue
		}
		if !published.Before(cutoff) {
			kept = append(kept, v)
		}
	}
	return kept
}

func (c *Composer) addDurations(ctx context.Context, yt services.YouTube, videos []models.Video, progress chan<- ProgressUpdate) {
	if len(videos) == 0 {
		return
	}

	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}

	sendProgress(progress, durationsUpdate(len(ids)))
	durations, err := yt.Durations(ctx, ids)
	if err != nil {
		c.logger.Warn("could not fetch durations", "error", err)
		return
	}
	for i := range videos {
		if d, ok := durations[videos[i].ID]; ok {
			videos[i].DurationSeconds = d
		}
	}
}

// markSaved turns videos into cards, looking up which playlists already contain each video.
// Playlist lookup failures are logged and leave cards unmarked.
func (c *Composer) markSaved(ctx context.Context, yt services.YouTube, videos []models.Video, onlyPlaylist string, progress chan<- ProgressUpdate) []models.FeedCard {
	saved := make(map[string][]models.PlaylistRef)

	playlists, err := yt.Playlists(ctx)
	if err != nil {
		c.logger.Error("failed to fetch user playlists", "error", err)
		playlists = nil
	}

	if onlyPlaylist != "" {
		ref := models.Playlist{ID: onlyPlaylist, Title: onlyPlaylist}
		for _, p := range playlists {
			if p.ID == onlyPlaylist {
				ref = p
			}
		}
		playlists = []models.Playlist{ref}
	}

	for i, p := range playlists {
		sendProgress(progress, markSavedUpdate(i+1, len(playlists), p.Title))

		ids, err := yt.PlaylistVideoIDs(ctx, p.ID)
		if err != nil {
			c.logger.Warn("could not fetch items for playlist", "playlist", p.Title, "error", err)
			continue
		}
		for id := range ids {
			saved[id] = append(saved[id], models.PlaylistRef{ID: p.ID, Title: p.Title})
		}
	}

	cards := make([]models.FeedCard, len(videos))
	for i, v := range videos {
		refs := saved[v.ID]
		if refs == nil {
			refs = []models.PlaylistRef{}
		}
		cards[i] = models.FeedCard{Video: v, Saved: len(refs) > 0, SavedTo: refs}
	}
	return cards
}

func sortNewestFirst(videos []models.Video) {
	slices.SortStableFunc(videos, func(a, b models.Video) int {
		ta, _ := a.Published()
		tb, _ := b.Published()
		return tb.Compare(ta)
	})
}

// Page returns cards[cursor:cursor+limit] and the cursor of the next page, or -1 when there is none.
//
// limit defaults to 20 and is capped at 50; a negative cursor starts from the beginning.
func Page(cards []models.FeedCard, cursor, limit int) ([]models.FeedCard, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	cursor = max(cursor, 0)

	if cursor >= len(cards) {
		return []models.FeedCard{}, -1
	}

	end := min(cursor+limit, len(cards))
	next := end
	if end >= len(cards) {
		next = -1
	}
	return cards[cursor:end], next
}
