// Package repositories implements SQLite persistence for TubeSwipe's persistent entities.
//
// Key Implementations:
//   - [SessionRepository] : OAuth tokens keyed by cookie session id, upserted on login and refresh
//   - [SummaryRepository] : Cache-forever store of LLM summaries keyed by video id
//
// Missing rows are reported as [shared.ErrNotFound] so callers can map them with errors.Is.
// Tables are created by the embedded migrations in the shared package.
package repositories
