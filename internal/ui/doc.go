// Package ui implements the terminal swipe interface using bubbletea's Elm architecture.
//
// The TUI walks through the composed feed one card at a time:
//  1. [LoadingView] : Feed composition progress
//  2. [SwipeView] : The current video card
//  3. [SummaryView] : LLM summary of the current video
//  4. [PlaylistView] : Pick the playlist saves go to
//  5. [DoneView] : End of the feed with a tally
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the feed composer, providing non-blocking status reporting while
// the feed loads.
//
// Keys: right/s save, left/x skip, u undo, m mute channel, enter summary, p playlist, q quit.
// Contextual help is displayed via charmbracelet/bubbles/help.
package ui
