// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

var _ services.YouTube = (*FakeYouTube)(nil)

// FakeYouTube is a scriptable test double for [services.YouTube].
//
// Zero values answer with empty results; set the Err fields to make calls fail.
type FakeYouTube struct {
	Subs         []services.Subscription
	Videos       []models.Video      // returned by RecentUploads
	Lists        []models.Playlist   // returned by Playlists
	Items        map[string][]string // playlist id -> video ids
	DurationsMap map[string]int

	SubscriptionsErr error
	PlaylistsErr     error
	AddErr           error

	mu     sync.Mutex
	Added  []string // "playlistID/videoID" in call order
	Calls  map[string]int
	nextID int
}

func (f *FakeYouTube) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Calls == nil {
		f.Calls = make(map[string]int)
	}
	f.Calls[name]++
}

// CallCount returns how many times method was called.
func (f *FakeYouTube) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *FakeYouTube) Subscriptions(context.Context) ([]services.Subscription, error) {
	f.count("Subscriptions")
	return f.Subs, f.SubscriptionsErr
}

func (f *FakeYouTube) UploadPlaylists(_ context.Context, channelIDs []string) ([]string, error) {
	f.count("UploadPlaylists")
	ids := make([]string, len(channelIDs))
	for i, id := range channelIDs {
		ids[i] = "UU" + id
	}
	return ids, nil
}

func (f *FakeYouTube) RecentUploads(context.Context, []string, int) ([]models.Video, error) {
	f.count("RecentUploads")
	out := make([]models.Video, len(f.Videos))
	copy(out, f.Videos)
	return out, nil
}

func (f *FakeYouTube) PlaylistVideoIDs(_ context.Context, playlistID string) (map[string]struct{}, error) {
	f.count("PlaylistVideoIDs")
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]struct{})
	for _, id := range f.Items[playlistID] {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *FakeYouTube) VideoDetails(_ context.Context, videoID string) (*models.Video, error) {
	f.count("VideoDetails")
	for _, v := range f.Videos {
		if v.ID == videoID {
			video := v
			return &video, nil
		}
	}
	return nil, shared.ErrVideoNotFound
}

func (f *FakeYouTube) Durations(_ context.Context, videoIDs []string) (map[string]int, error) {
	f.count("Durations")
	out := make(map[string]int)
	for _, id := range videoIDs {
		if d, ok := f.DurationsMap[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (f *FakeYouTube) Playlists(context.Context) ([]models.Playlist, error) {
	f.count("Playlists")
	return f.Lists, f.PlaylistsErr
}

func (f *FakeYouTube) FindOrCreatePlaylist(_ context.Context, title string) (string, error) {
	f.count("FindOrCreatePlaylist")
	for _, p := range f.Lists {
		if p.Title == title {
			return p.ID, nil
		}
	}
	p, _ := f.CreatePlaylist(context.Background(), title, "private", "")
	return p.ID, nil
}

func (f *FakeYouTube) CreatePlaylist(_ context.Context, title, privacy, description string) (*models.Playlist, error) {
	f.count("CreatePlaylist")
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Playlist{ID: fmt.Sprintf("PL%d", len(f.Lists)+1), Title: title, Privacy: privacy, Description: description}
	f.Lists = append(f.Lists, p)
	return &p, nil
}

func (f *FakeYouTube) AddToPlaylist(_ context.Context, playlistID, videoID string) (string, error) {
	f.count("AddToPlaylist")
	if f.AddErr != nil {
		return "", f.AddErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Items == nil {
		f.Items = make(map[string][]string)
	}
	f.Items[playlistID] = append(f.Items[playlistID], videoID)
	f.Added = append(f.Added, playlistID+"/"+videoID)
	f.nextID++
	return fmt.Sprintf("item-%d", f.nextID), nil
}

func (f *FakeYouTube) RemoveFromPlaylist(_ context.Context, itemID string) error {
	f.count("RemoveFromPlaylist")
	if itemID == "" {
		return shared.ErrNotFound
	}
	return nil
}

// RecentVideo builds a video published age ago.
func RecentVideo(id, channelID string, age time.Duration) models.Video {
	return models.Video{
		ID:           id,
		Title:        "Video " + id,
		ChannelID:    channelID,
		ChannelTitle: "Channel " + channelID,
		PublishedAt:  time.Now().Add(-age).UTC().Format(time.RFC3339),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
