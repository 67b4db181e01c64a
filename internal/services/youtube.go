// YouTube Data API v3 [YouTube] implementation
//
// One client is built per request from the session's OAuth HTTP client.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	maxPageSize       = 50
	maxPlaylistPages  = 10
	privacyPrivate    = "private"
	kindVideoResource = "youtube#video"
)

// YouTubeClient implements [YouTube] with the official API client.
type YouTubeClient struct {
	svc    *youtube.Service
	logger *log.Logger
}

// NewYouTubeClient builds a client that sends requests with httpClient.
//
// Extra options (an endpoint override in tests) are applied after the HTTP client.
func NewYouTubeClient(ctx context.Context, httpClient *http.Client, logger *log.Logger, opts ...option.ClientOption) (*YouTubeClient, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &YouTubeClient{svc: svc, logger: shared.WithLogger(logger, "component", "youtube")}, nil
}

// Subscriptions lists the first 50 subscriptions of the user.
func (y *YouTubeClient) Subscriptions(ctx context.Context) ([]Subscription, error) {
	resp, err := y.svc.Subscriptions.List([]string{"snippet", "contentDetails"}).
		Mine(true).
		MaxResults(maxPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError("list subscriptions", err)
	}

	subs := make([]Subscription, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil {
			continue
		}
		subs = append(subs, Subscription{ChannelID: item.Snippet.ResourceId.ChannelId, Title: item.Snippet.Title})
	}
	return subs, nil
}

// UploadPlaylists resolves the uploads playlist of each channel, 50 channels per call.
func (y *YouTubeClient) UploadPlaylists(ctx context.Context, channelIDs []string) ([]string, error) {
	var playlistIDs []string
	for _, batch := range batches(channelIDs, maxPageSize) {
		resp, err := y.svc.Channels.List([]string{"contentDetails"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, apiError("list channels", err)
		}

		for _, item := range resp.Items {
			if item.ContentDetails == nil || item.ContentDetails.RelatedPlaylists == nil {
				continue
			}
			if uploads := item.ContentDetails.RelatedPlaylists.Uploads; uploads != "" {
				playlistIDs = append(playlistIDs, uploads)
			}
		}
	}
	return playlistIDs, nil
}

// RecentUploads reads the newest items of each uploads playlist.
//
// Each playlist costs one quota unit. Failures are logged and skipped so one deleted channel
// does not empty the feed; only a cancelled context aborts.
func (y *YouTubeClient) RecentUploads(ctx context.Context, playlistIDs []string, perPlaylist int) ([]models.Video, error) {
	if perPlaylist <= 0 {
		perPlaylist = DefaultPerPlaylist
	}

	var videos []models.Video
	for _, pid := range playlistIDs {
		resp, err := y.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(pid).
			MaxResults(int64(perPlaylist)).
			Context(ctx).
			Do()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, shared.ErrRefreshFailed) {
				return nil, apiError("list playlist items", err)
			}
			y.logger.Error("failed to fetch playlist", "playlist", pid, "error", err)
			continue
		}

		for _, item := range resp.Items {
			if v, ok := videoFromPlaylistItem(item); ok {
				videos = append(videos, v)
			}
		}
	}
	return videos, nil
}

// PlaylistVideoIDs pages through a playlist, stopping after 10 pages of 50.
//
// A failing page ends the scan and returns what was read so far.
func (y *YouTubeClient) PlaylistVideoIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	pageToken := ""

	for range maxPlaylistPages {
		call := y.svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(maxPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if len(ids) == 0 {
				return nil, apiError("list playlist items", err)
			}
			y.logger.Warn("stopped reading playlist early", "playlist", playlistID, "error", err)
			break
		}

		for _, item := range resp.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				ids[item.ContentDetails.VideoId] = struct{}{}
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return ids, nil
}

// VideoDetails fetches the snippet and duration of a video.
func (y *YouTubeClient) VideoDetails(ctx context.Context, videoID string) (*models.Video, error) {
	resp, err := y.svc.Videos.List([]string{"snippet", "contentDetails"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError("list videos", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
	}

	item := resp.Items[0]
	video := &models.Video{
		ID:           item.Id,
		Title:        item.Snippet.Title,
		ChannelID:    item.Snippet.ChannelId,
		ChannelTitle: item.Snippet.ChannelTitle,
		ThumbnailURL: thumbnail(item.Snippet.Thumbnails, "high"),
		PublishedAt:  item.Snippet.PublishedAt,
		Description:  item.Snippet.Description,
	}
	if item.ContentDetails != nil {
		video.DurationSeconds = ParseDuration(item.ContentDetails.Duration)
	}
	return video, nil
}

// Durations looks up durations 50 videos at a time. A failed batch is logged and left out.
func (y *YouTubeClient) Durations(ctx context.Context, videoIDs []string) (map[string]int, error) {
	durations := make(map[string]int, len(videoIDs))
	for _, batch := range batches(videoIDs, maxPageSize) {
		resp, err := y.svc.Videos.List([]string{"contentDetails"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			y.logger.Error("failed to fetch durations", "count", len(batch), "error", err)
			continue
		}

		for _, item := range resp.Items {
			if item.ContentDetails != nil {
				durations[item.Id] = ParseDuration(item.ContentDetails.Duration)
			}
		}
	}
	return durations, nil
}

// Playlists lists every playlist the user owns.
func (y *YouTubeClient) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	pageToken := ""

	for {
		call := y.svc.Playlists.List([]string{"snippet", "status", "contentDetails"}).
			Mine(true).
			MaxResults(maxPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, apiError("list playlists", err)
		}

		for _, item := range resp.Items {
			playlists = append(playlists, playlistFromAPI(item))
		}

		if resp.NextPageToken == "" {
			return playlists, nil
		}
		pageToken = resp.NextPageToken
	}
}

// FindOrCreatePlaylist looks for title among the first 50 playlists and creates it if missing.
func (y *YouTubeClient) FindOrCreatePlaylist(ctx context.Context, title string) (string, error) {
	if title == "" {
		title = DefaultSavedPlaylist
	}

	resp, err := y.svc.Playlists.List([]string{"snippet"}).
		Mine(true).
		MaxResults(maxPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return "", apiError("list playlists", err)
	}

	for _, item := range resp.Items {
		if item.Snippet != nil && item.Snippet.Title == title {
			return item.Id, nil
		}
	}

	created, err := y.CreatePlaylist(ctx, title, privacyPrivate, savedPlaylistDescription)
	if err != nil {
		return "", err
	}
	y.logger.Info("created playlist", "title", title, "id", created.ID)
	return created.ID, nil
}

// CreatePlaylist inserts a playlist; privacy defaults to private.
func (y *YouTubeClient) CreatePlaylist(ctx context.Context, title, privacy, description string) (*models.Playlist, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: playlist title is required", shared.ErrInvalidInput)
	}
	if privacy == "" {
		privacy = privacyPrivate
	}
	if description == "" {
		description = DefaultPlaylistDescription
	}

	body := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{Title: title, Description: description},
		Status:  &youtube.PlaylistStatus{PrivacyStatus: privacy},
	}

	created, err := y.svc.Playlists.Insert([]string{"snippet", "status"}, body).Context(ctx).Do()
	if err != nil {
		return nil, apiError("create playlist", err)
	}

	playlist := playlistFromAPI(created)
	return &playlist, nil
}

// AddToPlaylist inserts a video and returns the playlist item id.
func (y *YouTubeClient) AddToPlaylist(ctx context.Context, playlistID, videoID string) (string, error) {
	body := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: kindVideoResource, VideoId: videoID},
		},
	}

	item, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, body).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return "", apiError("insert playlist item", err)
	}
	return item.Id, nil
}

// RemoveFromPlaylist deletes a playlist item by its item id.
func (y *YouTubeClient) RemoveFromPlaylist(ctx context.Context, itemID string) error {
	if err := y.svc.PlaylistItems.Delete(itemID).Context(ctx).Do(); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: playlist item %s", shared.ErrNotFound, itemID)
		}
		return apiError("delete playlist item", err)
	}
	return nil
}

func videoFromPlaylistItem(item *youtube.PlaylistItem) (models.Video, bool) {
	s := item.Snippet
	if s == nil || s.ResourceId == nil || s.ResourceId.VideoId == "" {
		return models.Video{}, false
	}

	return models.Video{
		ID:           s.ResourceId.VideoId,
		Title:        s.Title,
		ChannelID:    s.ChannelId,
		ChannelTitle: s.ChannelTitle,
		ThumbnailURL: thumbnail(s.Thumbnails, "high"),
		PublishedAt:  s.PublishedAt,
		Description:  s.Description,
	}, true
}

func playlistFromAPI(item *youtube.Playlist) models.Playlist {
	p := models.Playlist{ID: item.Id, Privacy: "unknown"}
	if item.Snippet != nil {
		p.Title = item.Snippet.Title
		p.Description = item.Snippet.Description
		p.Thumbnail = thumbnail(item.Snippet.Thumbnails, "default")
	}
	if item.Status != nil && item.Status.PrivacyStatus != "" {
		p.Privacy = item.Status.PrivacyStatus
	}
	if item.ContentDetails != nil {
		p.ItemCount = int(item.ContentDetails.ItemCount)
	}
	return p
}

// thumbnail picks the named size, falling back to any available one.
func thumbnail(td *youtube.ThumbnailDetails, size string) string {
	if td == nil {
		return ""
	}

	byName := map[string]*youtube.Thumbnail{
		"default":  td.Default,
		"medium":   td.Medium,
		"high":     td.High,
		"standard": td.Standard,
		"maxres":   td.Maxres,
	}
	if t := byName[size]; t != nil && t.Url != "" {
		return t.Url
	}
	for _, t := range []*youtube.Thumbnail{td.High, td.Medium, td.Default, td.Standard, td.Maxres} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// apiError tags upstream failures with [shared.ErrAPIRequest], keeping the cause inspectable.
func apiError(op string, err error) error {
	if isStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("%w: %s: %w", shared.ErrTokenExpired, op, err)
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, op, err)
}
