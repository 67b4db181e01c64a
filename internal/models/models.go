// package models defines the data model for the TubeSwipe service
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for persistent models stored in SQLite.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Video is an immutable snapshot of a YouTube video as returned by the Data API.
type Video struct {
	ID              string `json:"video_id"`
	Title           string `json:"title"`
	ChannelID       string `json:"channel_id"`
	ChannelTitle    string `json:"channel_title"`
	ThumbnailURL    string `json:"thumbnail_url"`
	PublishedAt     string `json:"published_at"` // RFC 3339, as sent by the API
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Published parses PublishedAt.
func (v Video) Published() (time.Time, error) {
	return time.Parse(time.RFC3339, v.PublishedAt)
}

// WatchURL returns the youtube.com watch link for the video.
func (v Video) WatchURL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.ID)
}

// Playlist is a playlist owned by the authenticated user.
type Playlist struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy"`
	Thumbnail   string `json:"thumbnail"`
	ItemCount   int    `json:"item_count"`
}

// PlaylistRef marks a playlist a feed video is already saved to.
type PlaylistRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FeedCard is a single entry of the swipe feed.
type FeedCard struct {
	Video
	Saved   bool          `json:"saved"`
	SavedTo []PlaylistRef `json:"saved_to"`
}

// MutedChannel is a muted channel as listed by the API.
type MutedChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Settings are per-user feed preferences persisted next to the muted channels.
type Settings struct {
	IncludeShorts      bool   `json:"include_shorts"`
	DefaultPlaylistID  string `json:"default_playlist_id"`
	FeedWindowHours    int    `json:"feed_window_hours"`
	SavedPlaylistTitle string `json:"saved_playlist_title"`
}

// SettingsPatch carries a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	IncludeShorts      *bool   `json:"include_shorts,omitempty"`
	DefaultPlaylistID  *string `json:"default_playlist_id,omitempty"`
	FeedWindowHours    *int    `json:"feed_window_hours,omitempty"`
	SavedPlaylistTitle *string `json:"saved_playlist_title,omitempty"`
}

// Apply returns s with the non-nil fields of p applied.
func (p SettingsPatch) Apply(s Settings) (Settings, error) {
	if p.IncludeShorts != nil {
		s.IncludeShorts = *p.IncludeShorts
	}
	if p.DefaultPlaylistID != nil {
		s.DefaultPlaylistID = *p.DefaultPlaylistID
	}
	if p.FeedWindowHours != nil {
		if *p.FeedWindowHours <= 0 {
			return s, fmt.Errorf("feed_window_hours must be positive")
		}
		s.FeedWindowHours = *p.FeedWindowHours
	}
	if p.SavedPlaylistTitle != nil {
		if *p.SavedPlaylistTitle == "" {
			return s, fmt.Errorf("saved_playlist_title cannot be empty")
		}
		s.SavedPlaylistTitle = *p.SavedPlaylistTitle
	}
	return s, nil
}
