package feed

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
	tu "github.com/desertthunder/tubeswipe/internal/testing"
)

type mutedSet map[string]struct{}

func (m mutedSet) MutedIDs() map[string]struct{} { return m }

type shortsSet map[string]struct{}

func (s shortsSet) Shorts(_ context.Context, ids []string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func video(id, channel string, age time.Duration) models.Video {
	return models.Video{
		ID:           id,
		Title:        "Video " + id,
		ChannelID:    channel,
		ChannelTitle: "Channel " + channel,
		PublishedAt:  baseTime.Add(-age).Format(time.RFC3339),
	}
}

func newTestComposer(muted mutedSet, shorts shortsSet) (*Composer, *time.Time) {
	c := NewComposer(muted, shorts, Config{}, shared.NewLogger(io.Discard))
	clock := baseTime
	c.now = func() time.Time { return clock }
	return c, &clock
}

func newFake() *tu.FakeYouTube {
	return &tu.FakeYouTube{
		Subs: []services.Subscription{{ChannelID: "UCa", Title: "A"}, {ChannelID: "UCb", Title: "B"}},
		Videos: []models.Video{
			video("old", "UCa", 72*time.Hour),
			video("v1", "UCa", 2*time.Hour),
			video("v2", "UCb", 1*time.Hour),
			video("short", "UCb", 30*time.Minute),
			video("bad", "UCa", 0),
		},
		DurationsMap: map[string]int{"v1": 120, "v2": 45},
		Lists:        []models.Playlist{{ID: "PL1", Title: "Later"}, {ID: "PL2", Title: "Music"}},
		Items:        map[string][]string{"PL1": {"v1"}, "PL2": {"v1", "zzz"}},
	}
}

func ids(cards []models.FeedCard) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompose(t *testing.T) {
	ctx := context.Background()

	t.Run("filters, sorts and marks saved", func(t *testing.T) {
		c, _ := newTestComposer(nil, shortsSet{"short": {}})
		yt := newFake()
		yt.Videos[4].PublishedAt = "not a date"

		cards, err := c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := ids(cards); !equal(got, []string{"v2", "v1"}) {
			t.Fatalf("expected [v2 v1], got %v", got)
		}
		if cards[1].DurationSeconds != 120 || cards[0].DurationSeconds != 45 {
			t.Errorf("expected durations to be attached, got %d and %d", cards[1].DurationSeconds, cards[0].DurationSeconds)
		}
		if !cards[1].Saved || len(cards[1].SavedTo) != 2 {
			t.Errorf("expected v1 saved to two playlists, got %+v", cards[1].SavedTo)
		}
		if cards[0].Saved || cards[0].SavedTo == nil {
			t.Errorf("expected v2 unsaved with an empty list, got %+v", cards[0].SavedTo)
		}
	})

	t.Run("keeps shorts when asked", func(t *testing.T) {
		c, _ := newTestComposer(nil, shortsSet{"short": {}})

		cards, err := c.Compose(ctx, newFake(), Options{SessionID: "s1", IncludeShorts: true}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := ids(cards); !equal(got, []string{"bad", "short", "v2", "v1"}) {
			t.Errorf("unexpected feed %v", got)
		}
	})

	t.Run("drops muted channels", func(t *testing.T) {
		c, _ := newTestComposer(mutedSet{"UCa": {}}, nil)

		cards, err := c.Compose(ctx, newFake(), Options{SessionID: "s1"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, card := range cards {
			if card.ChannelID == "UCa" {
				t.Errorf("muted channel leaked into feed: %s", card.ID)
			}
		}
	})

	t.Run("custom window", func(t *testing.T) {
		c, _ := newTestComposer(nil, nil)

		cards, err := c.Compose(ctx, newFake(), Options{SessionID: "s1", Window: 96 * time.Hour, IncludeShorts: true}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cards) != 5 || cards[len(cards)-1].ID != "old" {
			t.Errorf("expected old video within window, got %v", ids(cards))
		}
	})

	t.Run("no subscriptions", func(t *testing.T) {
		c, _ := newTestComposer(nil, nil)
		yt := newFake()
		yt.Subs = nil

		cards, err := c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cards == nil || len(cards) != 0 {
			t.Errorf("expected an empty non-nil feed, got %v", cards)
		}
		if yt.CallCount("RecentUploads") != 0 {
			t.Error("expected no upload lookups without subscriptions")
		}
	})

	t.Run("subscription failure", func(t *testing.T) {
		c, _ := newTestComposer(nil, nil)
		yt := newFake()
		yt.SubscriptionsErr = shared.ErrRefreshFailed

		if _, err := c.Compose(ctx, yt, Options{SessionID: "s1"}, nil); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("playlist failure leaves cards unmarked", func(t *testing.T) {
		c, _ := newTestComposer(nil, nil)
		yt := newFake()
		yt.PlaylistsErr = shared.ErrAPIRequest

		cards, err := c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, card := range cards {
			if card.Saved {
				t.Errorf("expected %s unmarked", card.ID)
			}
		}
	})

	t.Run("single playlist check is not cached", func(t *testing.T) {
		c, _ := newTestComposer(nil, nil)
		yt := newFake()

		cards, err := c.Compose(ctx, yt, Options{SessionID: "s1", PlaylistID: "PL1"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, card := range cards {
			if card.ID == "v1" && (len(card.SavedTo) != 1 || card.SavedTo[0].Title != "Later") {
				t.Errorf("expected v1 saved only to Later, got %+v", card.SavedTo)
			}
		}

		if _, err := c.Compose(ctx, yt, Options{SessionID: "s1"}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := yt.CallCount("Subscriptions"); n != 2 {
			t.Errorf("expected a fresh build after a playlist-scoped feed, got %d builds", n)
		}
	})
}

func TestComposeCache(t *testing.T) {
	ctx := context.Background()

	t.Run("serves from cache within ttl", func(t *testing.T) {
		c, clock := newTestComposer(nil, nil)
		yt := newFake()

		first, _ := c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		*clock = clock.Add(time.Minute)
		second, _ := c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)

		if yt.CallCount("Subscriptions") != 1 {
			t.Errorf("expected one build, got %d", yt.CallCount("Subscriptions"))
		}
		if !equal(ids(first), ids(second)) {
			t.Errorf("cached feed differs: %v vs %v", ids(first), ids(second))
		}
	})

	t.Run("expires after ttl", func(t *testing.T) {
		c, clock := newTestComposer(nil, nil)
		yt := newFake()

		c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		*clock = clock.Add(DefaultCacheTTL)
		c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)

		if yt.CallCount("Subscriptions") != 2 {
			t.Errorf("expected rebuild after ttl, got %d builds", yt.CallCount("Subscriptions"))
		}
	})

	t.Run("partitions by session and shorts flag", func(t *testing.T) {
		c, _ := newTestComposer(nil, nil)
		yt := newFake()

		c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		c.Compose(ctx, yt, Options{SessionID: "s1", IncludeShorts: true}, nil)
		c.Compose(ctx, yt, Options{SessionID: "s2"}, nil)

		if yt.CallCount("Subscriptions") != 3 {
			t.Errorf("expected 3 builds, got %d", yt.CallCount("Subscriptions"))
		}
	})

	t.Run("refresh and invalidate", func(t *testing.T) {
		c, _ := newTestComposer(nil, nil)
		yt := newFake()

		c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		c.Compose(ctx, yt, Options{SessionID: "s1", Refresh: true}, nil)
		if yt.CallCount("Subscriptions") != 2 {
			t.Fatalf("expected refresh to rebuild, got %d builds", yt.CallCount("Subscriptions"))
		}

		c.Invalidate("s1")
		c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		if yt.CallCount("Subscriptions") != 3 {
			t.Fatalf("expected rebuild after Invalidate, got %d builds", yt.CallCount("Subscriptions"))
		}

		c.InvalidateAll()
		c.Compose(ctx, yt, Options{SessionID: "s1"}, nil)
		if yt.CallCount("Subscriptions") != 4 {
			t.Errorf("expected rebuild after InvalidateAll, got %d builds", yt.CallCount("Subscriptions"))
		}
	})
}

func TestComposeMock(t *testing.T) {
	c, _ := newTestComposer(nil, shortsSet{})
	yt := services.NewMockYouTube()

	cards, err := c.Compose(context.Background(), yt, Options{SessionID: "mock"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(cards) != len(yt.Feed()) {
		t.Errorf("expected the canned feed unfiltered, got %d cards", len(cards))
	}
}

func TestComposeProgress(t *testing.T) {
	c, _ := newTestComposer(nil, nil)
	progress := make(chan ProgressUpdate, 64)

	if _, err := c.Compose(context.Background(), newFake(), Options{SessionID: "s1"}, progress); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	close(progress)

	var phases []Phase
	for u := range progress {
		phases = append(phases, u.Phase)
	}
	if len(phases) == 0 || phases[0] != FetchSubscriptions {
		t.Fatalf("expected first phase fetch_subscriptions, got %v", phases)
	}
	if last := phases[len(phases)-1]; last != Done {
		t.Errorf("expected last phase done, got %v", last)
	}
}

func TestPage(t *testing.T) {
	cards := make([]models.FeedCard, 45)
	for i := range cards {
		cards[i].ID = string(rune('a' + i%26))
	}

	tests := []struct {
		name   string
		cursor int
		limit  int
		size   int
		next   int
	}{
		{"default limit", 0, 0, 20, 20},
		{"second page", 20, 20, 20, 40},
		{"last page", 40, 20, 5, -1},
		{"capped limit", 0, 500, 45, -1},
		{"past the end", 100, 10, 0, -1},
		{"negative cursor", -5, 10, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, next := Page(cards, tt.cursor, tt.limit)
			if len(page) != tt.size {
				t.Errorf("expected %d cards, got %d", tt.size, len(page))
			}
			if next != tt.next {
				t.Errorf("expected next %d, got %d", tt.next, next)
			}
		})
	}
}
