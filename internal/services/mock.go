package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

// MockPlaylistID is the playlist every mock save lands in unless another is created.
const MockPlaylistID = "mock_playlist_id"

// mockVideos is the canned feed served without Google credentials.
var mockVideos = []models.Video{
	{
		ID:              "dQw4w9WgXcQ",
		Title:           "Rick Astley - Never Gonna Give You Up (Official Music Video)",
		ChannelID:       "UCuAXFkgsw1L7xaCfnd5JJOw",
		ChannelTitle:    "Rick Astley",
		ThumbnailURL:    "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		PublishedAt:     "2009-10-25T10:00:00Z",
		DurationSeconds: 213,
	},
	{
		ID:              "jNQXAC9IVRw",
		Title:           "Me at the zoo",
		ChannelID:       "UC4QZ_LsYcvcqPqGSqIZShGA",
		ChannelTitle:    "jawed",
		ThumbnailURL:    "https://i.ytimg.com/vi/jNQXAC9IVRw/hqdefault.jpg",
		PublishedAt:     "2005-04-24T03:31:52Z",
		DurationSeconds: 19,
	},
	{
		ID:              "9bZkp7q19f0",
		Title:           "PSY - GANGNAM STYLE(강남스타일) M/V",
		ChannelID:       "UCrDkAvwZum-UTjHmzDI2iIw",
		ChannelTitle:    "officialpsy",
		ThumbnailURL:    "https://i.ytimg.com/vi/9bZkp7q19f0/hqdefault.jpg",
		PublishedAt:     "2012-07-15T07:46:32Z",
		DurationSeconds: 253,
	},
}

// MockYouTube is an in-memory [YouTube] used in mock mode and tests.
//
// It serves the canned feed and remembers saves for the life of the process.
type MockYouTube struct {
	mu        sync.Mutex
	playlists []models.Playlist
	items     map[string]mockItem // item id -> entry
	seq       int
}

type mockItem struct {
	playlistID string
	videoID    string
}

// NewMockYouTube creates a mock with a single private "Mock Playlist".
func NewMockYouTube() *MockYouTube {
	return &MockYouTube{
		playlists: []models.Playlist{{ID: MockPlaylistID, Title: "Mock Playlist", Privacy: privacyPrivate}},
		items:     make(map[string]mockItem),
	}
}

// Feed returns the canned videos. Mock feeds skip the age and Shorts filters.
func (m *MockYouTube) Feed() []models.Video {
	out := make([]models.Video, len(mockVideos))
	copy(out, mockVideos)
	return out
}

func (m *MockYouTube) Subscriptions(context.Context) ([]Subscription, error) {
	subs := make([]Subscription, 0, len(mockVideos))
	for _, v := range mockVideos {
		subs = append(subs, Subscription{ChannelID: v.ChannelID, Title: v.ChannelTitle})
	}
	return subs, nil
}

// UploadPlaylists follows YouTube's convention of swapping the UC prefix for UU.
func (m *MockYouTube) UploadPlaylists(_ context.Context, channelIDs []string) ([]string, error) {
	ids := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		ids = append(ids, "UU"+strings.TrimPrefix(id, "UC"))
	}
	return ids, nil
}

func (m *MockYouTube) RecentUploads(_ context.Context, playlistIDs []string, _ int) ([]models.Video, error) {
	want := make(map[string]bool, len(playlistIDs))
	for _, id := range playlistIDs {
		want["UC"+strings.TrimPrefix(id, "UU")] = true
	}

	var videos []models.Video
	for _, v := range mockVideos {
		if want[v.ChannelID] {
			videos = append(videos, v)
		}
	}
	return videos, nil
}

func (m *MockYouTube) PlaylistVideoIDs(_ context.Context, playlistID string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make(map[string]struct{})
	for _, item := range m.items {
		if item.playlistID == playlistID {
			ids[item.videoID] = struct{}{}
		}
	}
	return ids, nil
}

func (m *MockYouTube) VideoDetails(_ context.Context, videoID string) (*models.Video, error) {
	for _, v := range mockVideos {
		if v.ID == videoID {
			video := v
			return &video, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
}

func (m *MockYouTube) Durations(_ context.Context, videoIDs []string) (map[string]int, error) {
	durations := make(map[string]int)
	for _, id := range videoIDs {
		for _, v := range mockVideos {
			if v.ID == id {
				durations[id] = v.DurationSeconds
			}
		}
	}
	return durations, nil
}

func (m *MockYouTube) Playlists(context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Playlist, len(m.playlists))
	copy(out, m.playlists)
	for i := range out {
		out[i].ItemCount = m.countLocked(out[i].ID)
	}
	return out, nil
}

// FindOrCreatePlaylist always answers with the mock playlist.
func (m *MockYouTube) FindOrCreatePlaylist(context.Context, string) (string, error) {
	return MockPlaylistID, nil
}

// CreatePlaylist adds a playlist; the first one gets the id "mock_new_id".
func (m *MockYouTube) CreatePlaylist(_ context.Context, title, privacy, description string) (*models.Playlist, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: playlist title is required", shared.ErrInvalidInput)
	}
	if privacy == "" {
		privacy = privacyPrivate
	}
	if description == "" {
		description = DefaultPlaylistDescription
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := "mock_new_id"
	if n := len(m.playlists); n > 1 {
		id = fmt.Sprintf("mock_new_id_%d", n)
	}

	p := models.Playlist{ID: id, Title: title, Privacy: privacy, Description: description}
	m.playlists = append(m.playlists, p)
	return &p, nil
}

func (m *MockYouTube) AddToPlaylist(_ context.Context, playlistID, videoID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasPlaylistLocked(playlistID) {
		return "", fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	m.seq++
	itemID := fmt.Sprintf("mock_item_%d", m.seq)
	m.items[itemID] = mockItem{playlistID: playlistID, videoID: videoID}
	return itemID, nil
}

func (m *MockYouTube) RemoveFromPlaylist(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[itemID]; !ok {
		return fmt.Errorf("%w: playlist item %s", shared.ErrNotFound, itemID)
	}
	delete(m.items, itemID)
	return nil
}

func (m *MockYouTube) hasPlaylistLocked(id string) bool {
	for _, p := range m.playlists {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (m *MockYouTube) countLocked(playlistID string) int {
	n := 0
	for _, item := range m.items {
		if item.playlistID == playlistID {
			n++
		}
	}
	return n
}
