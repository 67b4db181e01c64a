package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

// Swipe actions
const (
	actionSkip = "skip"
	actionSave = "save"
)

type feedResponse struct {
	Videos     []models.FeedCard `json:"videos"`
	NextCursor *int              `json:"next_cursor"` // null on the last page
	Total      int               `json:"total"`
}

type swipeRequest struct {
	VideoID    string `json:"video_id"`
	Action     string `json:"action"`
	PlaylistID string `json:"playlist_id"`
}

type swipeResponse struct {
	Status     string `json:"status"`
	PlaylistID string `json:"playlist_id,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

type undoRequest struct {
	ItemID string `json:"item_id"`
}

type muteRequest struct {
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
}

type createPlaylistRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
}

func queryBool(r *http.Request, key string, fallback bool) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s must be a boolean", shared.ErrInvalidInput, key)
	}
	return b, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s must be an integer", shared.ErrInvalidInput, key)
	}
	return n, nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request, session *models.Session) {
	settings := s.Prefs.Settings()

	includeShorts, err := queryBool(r, "include_shorts", settings.IncludeShorts)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	refresh, err := queryBool(r, "refresh", false)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	cursor, err := queryInt(r, "cursor", 0)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	limit, err := queryInt(r, "limit", s.Config.Feed.PageSize)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	yt, err := s.youtubeFor(r.Context(), session)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	cards, err := s.Feed.Compose(r.Context(), yt, feed.Options{
		SessionID:     session.ID(),
		IncludeShorts: includeShorts,
		PlaylistID:    r.URL.Query().Get("playlist_id"),
		Refresh:       refresh,
		Window:        time.Duration(settings.FeedWindowHours) * time.Hour,
	}, nil)
	if errors.Is(err, shared.ErrRefreshFailed) || errors.Is(err, shared.ErrTokenExpired) {
		s.expire(w, r, session)
		return
	}
	if err != nil {
		s.Logger.Error("error fetching feed", "session", session.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "An error occurred while fetching the video feed.")
		return
	}

	page, next := feed.Page(cards, cursor, limit)
	resp := feedResponse{Videos: page, Total: len(cards)}
	if next >= 0 {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request, session *models.Session) {
	var req swipeRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	switch req.Action {
	case actionSkip:
		s.Metrics.Swipe(actionSkip, true)
		writeJSON(w, http.StatusOK, swipeResponse{Status: "skipped"})
	case actionSave:
		if req.VideoID == "" {
			s.fail(w, r, fmt.Errorf("%w: video_id is required", shared.ErrInvalidInput), http.StatusInternalServerError)
			return
		}

		playlistID, itemID, err := s.save(r, session, req)
		if err != nil {
			s.Logger.Error("could not save video", "video", req.VideoID, "playlist", playlistID, "error", err)
			s.Metrics.Swipe(actionSave, false)
			writeJSON(w, http.StatusOK, swipeResponse{Status: "error", Message: "Could not save video"})
			return
		}

		s.Metrics.Swipe(actionSave, true)
		s.Feed.Invalidate(session.ID())
		writeJSON(w, http.StatusOK, swipeResponse{Status: "saved", PlaylistID: playlistID, ItemID: itemID})
	default:
		writeJSON(w, http.StatusOK, swipeResponse{Status: "invalid_action"})
	}
}

// save adds the video to the requested playlist, falling back to the default playlist from settings
// and then to the saved playlist (created on first use).
func (s *Server) save(r *http.Request, session *models.Session, req swipeRequest) (string, string, error) {
	ctx := r.Context()
	yt, err := s.youtubeFor(ctx, session)
	if err != nil {
		return "", "", err
	}

	playlistID := req.PlaylistID
	if playlistID == "" {
		settings := s.Prefs.Settings()
		playlistID = settings.DefaultPlaylistID
		if playlistID == "" {
			title := settings.SavedPlaylistTitle
			if title == "" {
				title = services.DefaultSavedPlaylist
			}
			if playlistID, err = yt.FindOrCreatePlaylist(ctx, title); err != nil {
				return "", "", err
			}
		}
	}

	itemID, err := yt.AddToPlaylist(ctx, playlistID, req.VideoID)
	return playlistID, itemID, err
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request, session *models.Session) {
	var req undoRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if req.ItemID == "" {
		s.fail(w, r, fmt.Errorf("%w: item_id is required", shared.ErrInvalidInput), http.StatusInternalServerError)
		return
	}

	yt, err := s.youtubeFor(r.Context(), session)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if err := yt.RemoveFromPlaylist(r.Context(), req.ItemID); err != nil {
		s.Metrics.Swipe("undo", false)
		s.fail(w, r, err, http.StatusBadGateway)
		return
	}

	s.Metrics.Swipe("undo", true)
	s.Feed.Invalidate(session.ID())
	writeJSON(w, http.StatusOK, map[string]string{"status": "undone"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, session *models.Session) {
	videoID := r.PathValue("videoID")

	yt, err := s.youtubeFor(r.Context(), session)
	if err != nil {
		s.fail(w, r, err, http.StatusBadGateway)
		return
	}

	summary, cached, err := s.Summaries.Summarize(r.Context(), videoID, yt)
	if err != nil {
		s.fail(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary.Text(), "cached": cached})
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request, _ *models.Session) {
	var req muteRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	title, err := s.Prefs.Mute(req.ChannelID, req.ChannelTitle)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.Feed.InvalidateAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "muted", "channel": title})
}

func (s *Server) handleUnmute(w http.ResponseWriter, r *http.Request, _ *models.Session) {
	var req muteRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if err := s.Prefs.Unmute(req.ChannelID); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.Feed.InvalidateAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "unmuted"})
}

func (s *Server) handleMutedChannels(w http.ResponseWriter, r *http.Request, _ *models.Session) {
	writeJSON(w, http.StatusOK, s.Prefs.MutedList())
}

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request, session *models.Session) {
	yt, err := s.youtubeFor(r.Context(), session)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	playlists, err := yt.Playlists(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request, session *models.Session) {
	req := createPlaylistRequest{Description: services.DefaultPlaylistDescription, Privacy: "private"}
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	yt, err := s.youtubeFor(r.Context(), session)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	playlist, err := yt.CreatePlaylist(r.Context(), req.Title, req.Privacy, req.Description)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, _ *models.Session) {
	writeJSON(w, http.StatusOK, s.Prefs.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request, _ *models.Session) {
	var patch models.SettingsPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	settings, err := s.Prefs.UpdateSettings(patch)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.Feed.InvalidateAll()
	writeJSON(w, http.StatusOK, settings)
}
