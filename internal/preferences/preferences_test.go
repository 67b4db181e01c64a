package preferences

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

var testDefaults = models.Settings{FeedWindowHours: 48, SavedPlaylistTitle: "TubeSwipe Saved"}

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "muted_channels.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}
	return NewStore(path, testDefaults, shared.NewLogger(io.Discard))
}

func TestStoreLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{"missing file", "", map[string]string{}},
		{"whitespace", "  \n", map[string]string{}},
		{"corrupted", "{not json", map[string]string{}},
		{"wrong type", `"just a string"`, map[string]string{}},
		{"legacy list", `["UCa", "UCb"]`, map[string]string{"UCa": UnknownChannel, "UCb": UnknownChannel}},
		{"legacy map", `{"UCa": "Alpha"}`, map[string]string{"UCa": "Alpha"}},
		{"current", `{"muted_channels": {"UCa": "Alpha"}, "settings": {"include_shorts": true}}`, map[string]string{"UCa": "Alpha"}},
		{"null muted", `{"muted_channels": null}`, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, tt.content)
			got := store.Muted()

			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for id, title := range tt.want {
				if got[id] != title {
					t.Errorf("expected %s=%q, got %q", id, title, got[id])
				}
			}
		})
	}
}

func TestStoreMute(t *testing.T) {
	t.Run("Mute persists in current layout", func(t *testing.T) {
		store := newTestStore(t, `["UCold"]`)

		if _, err := store.Mute("UCnew", "New Channel"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, err := os.ReadFile(store.Path())
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}

		var doc struct {
			MutedChannels map[string]string `json:"muted_channels"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("file is not valid JSON: %v", err)
		}
		if doc.MutedChannels["UCold"] != UnknownChannel || doc.MutedChannels["UCnew"] != "New Channel" {
			t.Errorf("unexpected muted channels %v", doc.MutedChannels)
		}
	})

	t.Run("Mute defaults the title", func(t *testing.T) {
		store := newTestStore(t, "")

		title, err := store.Mute("UCa", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if title != UnknownChannel {
			t.Errorf("expected stored title to be returned, got %q", title)
		}
		if store.Muted()["UCa"] != UnknownChannel {
			t.Errorf("expected default title, got %q", store.Muted()["UCa"])
		}
	})

	t.Run("Mute requires an id", func(t *testing.T) {
		store := newTestStore(t, "")

		if _, err := store.Mute("", "x"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Unmute", func(t *testing.T) {
		store := newTestStore(t, `{"muted_channels": {"UCa": "Alpha", "UCb": "Beta"}}`)

		if err := store.Unmute("UCa"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := store.MutedIDs()["UCa"]; ok {
			t.Error("expected UCa to be unmuted")
		}
		if _, ok := store.MutedIDs()["UCb"]; !ok {
			t.Error("expected UCb to stay muted")
		}
	})

	t.Run("Unmute unknown id is a no-op", func(t *testing.T) {
		store := newTestStore(t, "")

		if err := store.Unmute("UCnobody"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
			t.Error("no-op unmute should not create the file")
		}
	})

	t.Run("MutedList sorts by name", func(t *testing.T) {
		store := newTestStore(t, `{"UC1": "zeta", "UC2": "Alpha", "UC3": "beta"}`)

		list := store.MutedList()
		if len(list) != 3 {
			t.Fatalf("expected 3 channels, got %d", len(list))
		}
		if list[0].Name != "Alpha" || list[1].Name != "beta" || list[2].Name != "zeta" {
			t.Errorf("unexpected order %v", list)
		}
	})

	t.Run("concurrent mutes are not lost", func(t *testing.T) {
		store := newTestStore(t, "")

		var wg sync.WaitGroup
		for _, id := range []string{"UC1", "UC2", "UC3", "UC4", "UC5", "UC6", "UC7", "UC8"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Mute(id, id); err != nil {
					t.Errorf("mute %s failed: %v", id, err)
				}
			}()
		}
		wg.Wait()

		if n := len(store.Muted()); n != 8 {
			t.Errorf("expected 8 muted channels, got %d", n)
		}
	})
}

func TestStoreSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		store := newTestStore(t, "")

		if got := store.Settings(); got != testDefaults {
			t.Errorf("expected defaults %+v, got %+v", testDefaults, got)
		}
	})

	t.Run("defaults from config", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "prefs.json"), DefaultSettings(shared.DefaultConfig().Feed), shared.NewLogger(io.Discard))

		got := store.Settings()
		if !got.IncludeShorts || got.FeedWindowHours != 48 || got.SavedPlaylistTitle != "TubeSwipe Saved" {
			t.Errorf("unexpected settings on a fresh file: %+v", got)
		}
	})

	t.Run("stored values override defaults", func(t *testing.T) {
		store := newTestStore(t, `{"settings": {"include_shorts": true}}`)

		got := store.Settings()
		if !got.IncludeShorts {
			t.Error("expected include_shorts from file")
		}
		if got.FeedWindowHours != 48 {
			t.Errorf("expected default window, got %d", got.FeedWindowHours)
		}
	})

	t.Run("UpdateSettings keeps muted channels", func(t *testing.T) {
		store := newTestStore(t, `{"UCa": "Alpha"}`)
		window := 24
		playlist := "PL1"

		updated, err := store.UpdateSettings(models.SettingsPatch{FeedWindowHours: &window, DefaultPlaylistID: &playlist})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if updated.FeedWindowHours != 24 || updated.DefaultPlaylistID != "PL1" {
			t.Errorf("unexpected settings %+v", updated)
		}

		reloaded := NewStore(store.Path(), testDefaults, shared.NewLogger(io.Discard))
		if reloaded.Settings() != updated {
			t.Errorf("expected persisted settings %+v, got %+v", updated, reloaded.Settings())
		}
		if reloaded.Muted()["UCa"] != "Alpha" {
			t.Error("expected muted channels to survive a settings update")
		}
	})

	t.Run("UpdateSettings rejects invalid values", func(t *testing.T) {
		store := newTestStore(t, "")
		window := 0

		if _, err := store.UpdateSettings(models.SettingsPatch{FeedWindowHours: &window}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
