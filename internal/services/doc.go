// Package services implements the upstream clients behind the swipe feed and summaries.
//
// # YouTube
//
// [YouTube] is the narrow slice of the Data API v3 the app uses. [YouTubeClient] implements it
// with google.golang.org/api/youtube/v3, built per request from the session's OAuth client so
// token refreshes stay scoped to that session. [MockYouTube] serves three canned videos and
// keeps saves in memory; it is used when no Google credentials are configured.
//
// Quota: subscriptions, channels and each uploads playlist cost one unit per call.
// Failing uploads playlists are logged and skipped.
//
// # Shorts
//
// The Data API does not flag Shorts. [ShortsChecker] sends HEAD requests to
// youtube.com/shorts/{id} without following redirects: 200 means Short, a redirect to
// /watch means a regular video. Checks run through an errgroup with a concurrency limit
// and a token bucket.
//
// # Summaries
//
// [SummaryService] reads captions from the timedtext endpoint ([TimedtextClient]),
// falls back to the video description, and asks each [Provider] in turn (Gemini first,
// then OpenAI, both through go-openai) for a short HTML list.
// Successful summaries are cached forever by video id.
//
// # Error Handling
//
// Services return sentinel errors from the shared package:
//   - [shared.ErrAPIRequest] : upstream HTTP failure
//   - [shared.ErrTokenExpired] : the API rejected the access token
//   - [shared.ErrVideoNotFound] : no such video
//   - [shared.ErrPlaylistNotFound] : no such playlist
//   - [shared.ErrNoContent] : neither captions nor description
//   - [shared.ErrNoLLMKey] : no provider configured
//   - [shared.ErrEmptySummary] : every provider failed or answered empty
package services
