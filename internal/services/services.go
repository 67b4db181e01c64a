// package services talks to the upstream APIs behind the swipe feed
//
// YouTube Data API v3, the Shorts page, caption tracks, LLM chat completions
package services

import (
	"context"

	"github.com/desertthunder/tubeswipe/internal/models"
)

const (
	// DefaultSavedPlaylist is the playlist saves go to when none is chosen.
	DefaultSavedPlaylist = "TubeSwipe Saved"
	// DefaultPerPlaylist is how many recent uploads are read per channel.
	DefaultPerPlaylist = 5

	// DefaultPlaylistDescription is used for playlists created without a description.
	DefaultPlaylistDescription = "Created via TubeSwipe"

	savedPlaylistDescription = "Videos saved from TubeSwipe App"
	unknownChannel           = "Unknown Channel"
	unknownTitle             = "Unknown Title"
)

// YouTube is the subset of the YouTube Data API the app needs, scoped to one signed-in user.
type YouTube interface {
	// Subscriptions returns the first page (50) of the user's subscriptions.
	Subscriptions(ctx context.Context) ([]Subscription, error)

	// UploadPlaylists resolves channel ids to their uploads playlist ids.
	UploadPlaylists(ctx context.Context, channelIDs []string) ([]string, error)

	// RecentUploads returns the newest perPlaylist items of each playlist.
	// A playlist that fails to load is skipped.
	RecentUploads(ctx context.Context, playlistIDs []string, perPlaylist int) ([]models.Video, error)

	// PlaylistVideoIDs returns the ids of videos in a playlist, reading at most 500 items.
	PlaylistVideoIDs(ctx context.Context, playlistID string) (map[string]struct{}, error)

	// VideoDetails returns snippet and duration for one video.
	VideoDetails(ctx context.Context, videoID string) (*models.Video, error)

	// Durations returns durations in seconds keyed by video id.
	Durations(ctx context.Context, videoIDs []string) (map[string]int, error)

	// Playlists returns all playlists owned by the user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// FindOrCreatePlaylist returns the id of the playlist titled title, creating a private one if needed.
	FindOrCreatePlaylist(ctx context.Context, title string) (string, error)

	// CreatePlaylist creates a playlist.
	CreatePlaylist(ctx context.Context, title, privacy, description string) (*models.Playlist, error)

	// AddToPlaylist inserts a video and returns the new playlist item id.
	AddToPlaylist(ctx context.Context, playlistID, videoID string) (string, error)

	// RemoveFromPlaylist deletes a playlist item.
	RemoveFromPlaylist(ctx context.Context, itemID string) error
}

// VideoDetailer looks up a single video; satisfied by [YouTube].
type VideoDetailer interface {
	VideoDetails(ctx context.Context, videoID string) (*models.Video, error)
}

// Subscription is a channel the user follows.
type Subscription struct {
	ChannelID string `json:"channel_id"`
	Title     string `json:"title"`
}

// ChannelIDs extracts channel ids from subscriptions in order.
func ChannelIDs(subs []Subscription) []string {
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		if s.ChannelID != "" {
			ids = append(ids, s.ChannelID)
		}
	}
	return ids
}

func batches(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
