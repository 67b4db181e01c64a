// Package preferences persists muted channels and feed settings in a JSON file.
//
// The file looks like:
//
//	{"muted_channels": {"UC...": "Channel Title"}, "settings": {"include_shorts": true, ...}}
//
// Two older layouts are still read: a bare list of channel ids, and a bare {id: title} map.
// Muted channels are applied when the feed is read; they are never removed from playlists.
package preferences

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

// UnknownChannel names channels muted without a title.
const UnknownChannel = "Unknown Channel"

// Store reads and writes the preferences file.
//
// Every operation re-reads the file so edits made by another process (the CLI while the server runs)
// are picked up. The mutex only serialises access within this process.
type Store struct {
	path     string
	defaults models.Settings
	logger   *log.Logger
	mu       sync.RWMutex
}

type document struct {
	MutedChannels map[string]string `json:"muted_channels"`
	Settings      *models.Settings  `json:"settings,omitempty"`
}

// DefaultSettings returns the settings used until the file stores its own.
func DefaultSettings(cfg shared.FeedConfig) models.Settings {
	return models.Settings{
		IncludeShorts:      cfg.IncludeShorts,
		FeedWindowHours:    cfg.WindowHours,
		SavedPlaylistTitle: cfg.SavedPlaylistTitle,
	}
}

// NewStore opens the store at path. defaults fill settings the file does not set.
func NewStore(path string, defaults models.Settings, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{path: path, defaults: defaults, logger: shared.WithLogger(logger, "component", "preferences")}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Muted returns muted channels as id -> title.
func (s *Store) Muted() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load().MutedChannels
}

// MutedIDs returns the muted channel ids as a set.
func (s *Store) MutedIDs() map[string]struct{} {
	muted := s.Muted()
	ids := make(map[string]struct{}, len(muted))
	for id := range muted {
		ids[id] = struct{}{}
	}
	return ids
}

// MutedList returns muted channels sorted by name, then id.
func (s *Store) MutedList() []models.MutedChannel {
	muted := s.Muted()
	list := make([]models.MutedChannel, 0, len(muted))
	for id, name := range muted {
		list = append(list, models.MutedChannel{ID: id, Name: name})
	}
	slices.SortFunc(list, func(a, b models.MutedChannel) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list
}

// Mute records channelID and returns the title as stored; an empty title is stored as "Unknown Channel".
func (s *Store) Mute(channelID, title string) (string, error) {
	if channelID == "" {
		return "", fmt.Errorf("%w: channel id is required", shared.ErrInvalidInput)
	}
	if title == "" {
		title = UnknownChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	doc.MutedChannels[channelID] = title
	if err := s.save(doc); err != nil {
		return "", err
	}
	s.logger.Info("muted channel", "channel", channelID, "title", title)
	return title, nil
}

// Unmute removes channelID. Unmuting a channel that is not muted succeeds without writing.
func (s *Store) Unmute(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if _, ok := doc.MutedChannels[channelID]; !ok {
		return nil
	}
	delete(doc.MutedChannels, channelID)
	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Info("unmuted channel", "channel", channelID)
	return nil
}

// Settings returns the stored settings merged over the defaults.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.load().Settings
}

// UpdateSettings applies patch and persists the result.
func (s *Store) UpdateSettings(patch models.SettingsPatch) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	updated, err := patch.Apply(*doc.Settings)
	if err != nil {
		return *doc.Settings, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	doc.Settings = &updated
	if err := s.save(doc); err != nil {
		return *doc.Settings, err
	}
	return updated, nil
}

// load reads the file. Missing, empty and unreadable files all load as empty preferences.
func (s *Store) load() document {
	settings := s.defaults
	doc := document{MutedChannels: make(map[string]string), Settings: &settings}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc
	}
	if err != nil {
		s.logger.Error("failed to read preferences", "path", s.path, "error", err)
		return doc
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return doc
	}

	if err := decode(data, &doc); err != nil {
		s.logger.Warn("corrupted preferences file, using empty preferences", "path", s.path, "error", err)
		settings = s.defaults
		return document{MutedChannels: make(map[string]string), Settings: &settings}
	}
	return doc
}

// decode understands the current layout and both legacy layouts.
func decode(data []byte, doc *document) error {
	switch data[0] {
	case '[':
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorageCorrupt, err)
		}
		for _, id := range ids {
			doc.MutedChannels[id] = UnknownChannel
		}
		return nil
	case '{':
	default:
		return fmt.Errorf("%w: unexpected content", shared.ErrStorageCorrupt)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageCorrupt, err)
	}

	_, hasMuted := raw["muted_channels"]
	_, hasSettings := raw["settings"]
	if !hasMuted && !hasSettings {
		legacy := make(map[string]string, len(raw))
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorageCorrupt, err)
		}
		doc.MutedChannels = legacy
		return nil
	}

	if hasMuted {
		muted := make(map[string]string)
		if err := json.Unmarshal(raw["muted_channels"], &muted); err != nil {
			return fmt.Errorf("%w: muted_channels: %v", shared.ErrStorageCorrupt, err)
		}
		if muted != nil {
			doc.MutedChannels = muted
		}
	}
	if hasSettings {
		// Unmarshal over the defaults so missing keys keep their default.
		if err := json.Unmarshal(raw["settings"], doc.Settings); err != nil {
			return fmt.Errorf("%w: settings: %v", shared.ErrStorageCorrupt, err)
		}
	}
	return nil
}

func (s *Store) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	w, err := newAtomicWriter(s.path)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		w.abort()
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	if err := w.commit(); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
