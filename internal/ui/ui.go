package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/formatter"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/preferences"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	SwipeView
	SummaryView
	PlaylistView
	DoneView
)

const (
	actionSave = "save"
	actionSkip = "skip"
)

// Deps are the services the TUI drives.
type Deps struct {
	YouTube   services.YouTube
	Composer  *feed.Composer
	Summaries *services.SummaryService // nil disables summaries
	Prefs     *preferences.Store
	Options   feed.Options
}

// swipe is one undoable decision.
type swipe struct {
	index  int
	action string
	itemID string // set once the save lands
	failed bool
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	deps         Deps
	view         ViewState
	width        int
	height       int
	cards        []models.FeedCard
	index        int
	history      []swipe
	playlistID   string // empty until the saved playlist is resolved
	savedTitle   string
	playlistList list.Model
	progressChan chan feed.ProgressUpdate
	done         chan feedResult
	progress     feed.ProgressUpdate
	summary      *summaryResult
	status       string
	saved        int
	skipped      int
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. Saves go to the default playlist from settings, or to the
// saved playlist (found or created on the first save).
func NewModel(ctx context.Context, deps Deps) *Model {
	m := &Model{
		ctx:        ctx,
		deps:       deps,
		view:       LoadingView,
		savedTitle: services.DefaultSavedPlaylist,
		help:       help.New(),
		keys:       newKeyMap(),
	}
	if deps.Prefs != nil {
		settings := deps.Prefs.Settings()
		m.playlistID = settings.DefaultPlaylistID
		if settings.SavedPlaylistTitle != "" {
			m.savedTitle = settings.SavedPlaylistTitle
		}
	}
	return m
}

// Init starts composing the feed.
func (m *Model) Init() tea.Cmd {
	return m.startFeed()
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error { return m.err }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == PlaylistView {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && m.view != PlaylistView {
			return m, tea.Quit
		}
		switch m.view {
		case SwipeView, DoneView:
			return m.handleSwipeKeys(msg)
		case SummaryView:
			if key.Matches(msg, m.keys.back) || key.Matches(msg, m.keys.summary) {
				m.view = SwipeView
			}
			return m, nil
		case PlaylistView:
			return m.handlePlaylistKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == PlaylistView {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(feed.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgFeedLoaded:
		r := msg.data.(feedResult)
		m.progressChan, m.done = nil, nil
		if r.err != nil {
			m.err = r.err
			return m, tea.Quit
		}
		m.cards = r.cards
		m.index = 0
		m.settle()
		return m, nil

	case MsgSaved:
		r := msg.data.(saveResult)
		for i := len(m.history) - 1; i >= 0; i-- {
			entry := &m.history[i]
			if entry.index != r.index || entry.action != actionSave {
				continue
			}
			if r.err != nil {
				entry.failed = true
				m.saved--
				m.status = styles.err.Render("Could not save video: " + r.err.Error())
			} else {
				entry.itemID = r.itemID
				m.playlistID = r.playlistID
			}
			break
		}
		return m, nil

	case MsgUndone:
		if err, _ := msg.data.(error); err != nil {
			m.status = styles.err.Render("Undo failed: " + err.Error())
		} else {
			m.status = styles.ok.Render("Removed from playlist")
		}
		return m, nil

	case MsgMuted:
		r := msg.data.(muteResult)
		if r.err != nil {
			m.status = styles.err.Render("Could not mute channel: " + r.err.Error())
			return m, nil
		}
		m.dropChannel(r.channelID)
		m.status = styles.warn.Render("Channel muted")
		return m, nil

	case MsgSummary:
		r := msg.data.(summaryResult)
		m.summary = &r
		return m, nil

	case MsgPlaylistsFetched:
		r := msg.data.(playlistsResult)
		if r.err != nil {
			m.status = styles.err.Render("Could not load playlists: " + r.err.Error())
			m.view = SwipeView
			return m, nil
		}
		items := make([]list.Item, len(r.playlists))
		for i, p := range r.playlists {
			items[i] = playlistItem{playlist: p}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Save videos to"
		m.playlistList.SetSize(max(m.width-4, 20), max(m.height-8, 10))
		m.view = PlaylistView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSwipeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.undo) {
		return m, m.undo()
	}
	if m.view == DoneView {
		return m, nil
	}

	card := m.cards[m.index]
	switch {
	case key.Matches(msg, m.keys.save):
		m.history = append(m.history, swipe{index: m.index, action: actionSave})
		m.saved++
		m.status = styles.ok.Render("Saved " + card.Title)
		cmd := m.saveCmd(m.index, card.ID)
		m.advance()
		return m, cmd

	case key.Matches(msg, m.keys.skip):
		m.history = append(m.history, swipe{index: m.index, action: actionSkip})
		m.skipped++
		m.status = ""
		m.advance()
		return m, nil

	case key.Matches(msg, m.keys.mute):
		return m, m.muteCmd(card)

	case key.Matches(msg, m.keys.summary):
		m.view = SummaryView
		if m.summary == nil || m.summary.videoID != card.ID {
			m.summary = nil
			return m, m.summaryCmd(card.Video)
		}
		return m, nil

	case key.Matches(msg, m.keys.playlist):
		return m, m.fetchPlaylists()
	}
	return m, nil
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.back), msg.String() == "q":
			m.settle()
			return m, nil
		case key.Matches(msg, m.keys.enter):
			if p, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				m.playlistID = p.playlist.ID
				m.status = styles.ok.Render("Saving to " + p.playlist.Title)
			}
			m.settle()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) advance() {
	m.index++
	m.settle()
}

// settle picks the swipe or done view depending on whether cards remain.
func (m *Model) settle() {
	if m.index >= len(m.cards) {
		m.view = DoneView
		return
	}
	m.view = SwipeView
}

// undo steps back to the previous decision, removing the playlist item when it was a save.
func (m *Model) undo() tea.Cmd {
	if len(m.history) == 0 {
		m.status = styles.warn.Render("Nothing to undo")
		return nil
	}

	last := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.index = last.index
	m.settle()

	if last.action == actionSkip {
		m.skipped--
		m.status = ""
		return nil
	}
	if last.failed {
		return nil
	}
	m.saved--
	if last.itemID == "" {
		m.status = styles.warn.Render("Save still in flight; remove it from the playlist manually")
		return nil
	}

	ctx, yt, itemID := m.ctx, m.deps.YouTube, last.itemID
	return func() tea.Msg {
		return undoneMsg(yt.RemoveFromPlaylist(ctx, itemID))
	}
}

// dropChannel removes the not-yet-seen cards of a muted channel. History is cleared since
// indices shift.
func (m *Model) dropChannel(channelID string) {
	seen := m.cards[:m.index]
	rest := slices.DeleteFunc(slices.Clone(m.cards[m.index:]), func(c models.FeedCard) bool {
		return c.ChannelID == channelID
	})
	m.cards = append(slices.Clone(seen), rest...)
	m.history = nil
	m.settle()
}

func (m *Model) startFeed() tea.Cmd {
	progress := make(chan feed.ProgressUpdate, 50)
	done := make(chan feedResult, 1)
	m.progressChan, m.done = progress, done

	ctx, deps := m.ctx, m.deps
	go func() {
		cards, err := deps.Composer.Compose(ctx, deps.YouTube, deps.Options, progress)
		close(progress)
		done <- feedResult{cards: cards, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		r := <-done
		return feedLoadedMsg(r.cards, r.err)
	}
}

func (m *Model) saveCmd(index int, videoID string) tea.Cmd {
	ctx, yt, target, title := m.ctx, m.deps.YouTube, m.playlistID, m.savedTitle
	return func() tea.Msg {
		playlistID := target
		if playlistID == "" {
			id, err := yt.FindOrCreatePlaylist(ctx, title)
			if err != nil {
				return savedMsg(saveResult{index: index, err: err})
			}
			playlistID = id
		}
		itemID, err := yt.AddToPlaylist(ctx, playlistID, videoID)
		return savedMsg(saveResult{index: index, playlistID: playlistID, itemID: itemID, err: err})
	}
}

func (m *Model) muteCmd(card models.FeedCard) tea.Cmd {
	prefs, composer := m.deps.Prefs, m.deps.Composer
	return func() tea.Msg {
		if prefs == nil {
			return mutedMsg(card.ChannelID, fmt.Errorf("%w: no preference store", shared.ErrMissingConfig))
		}
		_, err := prefs.Mute(card.ChannelID, card.ChannelTitle)
		if err == nil && composer != nil {
			composer.InvalidateAll()
		}
		return mutedMsg(card.ChannelID, err)
	}
}

func (m *Model) summaryCmd(video models.Video) tea.Cmd {
	ctx, summaries, yt := m.ctx, m.deps.Summaries, m.deps.YouTube
	return func() tea.Msg {
		if summaries == nil {
			return summaryMsg(summaryResult{videoID: video.ID, err: shared.ErrNoLLMKey})
		}
		summary, cached, err := summaries.Summarize(ctx, video.ID, yt)
		if err != nil {
			return summaryMsg(summaryResult{videoID: video.ID, err: err})
		}
		return summaryMsg(summaryResult{videoID: video.ID, text: summary.Text(), cached: cached})
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	ctx, yt := m.ctx, m.deps.YouTube
	return func() tea.Msg {
		playlists, err := yt.Playlists(ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoadingView:
		return m.renderLoading()
	case SwipeView:
		return m.renderCard()
	case SummaryView:
		return m.renderSummary()
	case PlaylistView:
		return m.playlistList.View()
	case DoneView:
		return m.renderDone()
	default:
		return ""
	}
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("Building your feed")
	msg := m.progress.Message
	if msg == "" {
		msg = "Starting..."
	}
	return fmt.Sprintf("%s\n\n[%d/%d] %s", title, m.progress.Step, m.progress.Total, msg)
}

func (m *Model) renderCard() string {
	card := m.cards[m.index]
	title := styles.title.Render(fmt.Sprintf("TubeSwipe  %d/%d", m.index+1, len(m.cards)))

	var b strings.Builder
	b.WriteString(styles.cardTitle.Render(card.Title))
	b.WriteString("\n")
	meta := []string{card.ChannelTitle}
	if card.DurationSeconds > 0 {
		meta = append(meta, shared.FormatDuration(card.DurationSeconds))
	}
	if published, err := card.Published(); err == nil {
		meta = append(meta, published.Local().Format("Jan 2 15:04"))
	}
	b.WriteString(styles.help.Render(strings.Join(meta, " • ")))
	b.WriteString("\n\n")
	b.WriteString(card.WatchURL())
	if card.Saved {
		titles := make([]string, len(card.SavedTo))
		for i, ref := range card.SavedTo {
			titles[i] = ref.Title
		}
		b.WriteString("\n")
		b.WriteString(styles.ok.Render("Already in " + strings.Join(titles, ", ")))
	}

	helpKeys := []key.Binding{m.keys.save, m.keys.skip, m.keys.undo, m.keys.mute, m.keys.summary, m.keys.playlist, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, styles.card.Render(b.String()), m.status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSummary() string {
	card := m.cards[m.index]
	title := styles.title.Render("Summary: " + card.Title)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	switch {
	case m.summary == nil:
		return fmt.Sprintf("%s\n\nSummarizing...\n\n%s", title, helpView)
	case m.summary.err != nil:
		return fmt.Sprintf("%s\n\n%s\n\n%s", title, styles.err.Render(m.summary.err.Error()), helpView)
	}

	body := formatter.SummaryText(m.summary.text)
	if m.summary.cached {
		body += "\n" + styles.help.Render("(cached)")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderDone() string {
	title := styles.ok.Render("✓ You're all caught up")
	info := fmt.Sprintf("\nSaved: %d\nSkipped: %d\n", m.saved, m.skipped)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.undo, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, info, m.status, helpView)
}
