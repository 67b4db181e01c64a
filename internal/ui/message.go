package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgFeedLoaded
	MsgSaved
	MsgUndone
	MsgMuted
	MsgSummary
	MsgPlaylistsFetched
)

type feedResult struct {
	cards []models.FeedCard
	err   error
}

type saveResult struct {
	index      int
	playlistID string
	itemID     string
	err        error
}

type summaryResult struct {
	videoID string
	text    string
	cached  bool
	err     error
}

type muteResult struct {
	channelID string
	err       error
}

type playlistsResult struct {
	playlists []models.Playlist
	err       error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update feed.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// feedLoadedMsg is the constructor for [MsgFeedLoaded]
func feedLoadedMsg(cards []models.FeedCard, err error) Msg {
	return Msg{kind: MsgFeedLoaded, data: feedResult{cards, err}}
}

// savedMsg is the constructor for [MsgSaved]
func savedMsg(result saveResult) Msg {
	return Msg{kind: MsgSaved, data: result}
}

// undoneMsg is the constructor for [MsgUndone]
func undoneMsg(err error) Msg {
	return Msg{kind: MsgUndone, data: err}
}

// mutedMsg is the constructor for [MsgMuted]
func mutedMsg(channelID string, err error) Msg {
	return Msg{kind: MsgMuted, data: muteResult{channelID, err}}
}

// summaryMsg is the constructor for [MsgSummary]
func summaryMsg(result summaryResult) Msg {
	return Msg{kind: MsgSummary, data: result}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsResult{playlists, err}}
}
