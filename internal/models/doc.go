// Package models defines domain entities for the TubeSwipe video triage service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing YouTube Data API data
//   - [Video] : Immutable video snapshot (id, title, channel, thumbnail, published date)
//   - [Playlist] : User playlist metadata
//   - [PlaylistRef] : "saved to" marker attached to feed cards
//   - [FeedCard] : Video plus saved status, the unit the swipe UI receives
//   - [Settings] / [SettingsPatch] : Per-user feed preferences
//
// 2. Persistent Entities: SQLite-backed models
//   - [Session] : OAuth token bound to a cookie session id
//   - [Summary] : Cached LLM summary keyed by video id
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
package models
