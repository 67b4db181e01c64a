package models

import (
	"fmt"
	"time"
)

// Summary sources
const (
	SourceTranscript  = "transcript"
	SourceDescription = "description"
)

var _ Model = (*Summary)(nil)

// Summary is a cached LLM summary for a video. Entries never expire.
type Summary struct {
	videoID   string
	text      string
	source    string
	provider  string
	createdAt time.Time
}

// NewSummary creates a summary for videoID produced by provider from the given content source.
func NewSummary(videoID, text, source, provider string) *Summary {
	return &Summary{
		videoID:   videoID,
		text:      text,
		source:    source,
		provider:  provider,
		createdAt: time.Now().UTC(),
	}
}

func (s *Summary) ID() string           { return s.videoID }
func (s *Summary) VideoID() string      { return s.videoID }
func (s *Summary) Text() string         { return s.text }
func (s *Summary) Source() string       { return s.source }
func (s *Summary) Provider() string     { return s.provider }
func (s *Summary) CreatedAt() time.Time { return s.createdAt }
func (s *Summary) UpdatedAt() time.Time { return s.createdAt }

func (s *Summary) SetCreatedAt(t time.Time) { s.createdAt = t }

func (s *Summary) Validate() error {
	if s.videoID == "" {
		return fmt.Errorf("summary requires a video id")
	}
	if s.text == "" {
		return fmt.Errorf("summary text is empty")
	}
	return nil
}
