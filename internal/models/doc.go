// Package models defines the domain entities shared by the persistence, catalog, state and view layers.
//
// The package contains three categories of types:
//
// 1. Documents: entities stored in the document database
//   - [User] : profile snapshot with follower and post counters
//   - [Post] : feed entry with its like set and embedded comments
//   - [Comment] : a single comment embedded in a [Post]
//
// 2. Catalog data: [MusicTrack], [SearchQuery] and [SearchResult] describing the remote music catalog
//
// 3. Inputs: [CreatePostData], [CreateCommentData], [ProfileUpdate] and [ImageFile], validated locally before any I/O.
//
// [AudioPlayerState] is the immutable snapshot published by the audio player.
package models
