// Package repositories is the persistence client for users and posts.
//
// Repositories translate feed operations into [docstore.Store] primitives and rebuild
// fully hydrated [models.Post] and [models.Comment] values:
//   - [PostRepository] : feed reads, post creation and deletion, likes and comments
//   - [UserRepository] : profile documents, snapshots used for denormalization, avatars
//
// Every post or comment returned carries its author snapshot. A failed author lookup degrades
// to [models.PlaceholderUser] and never fails the read. Counters and their collections are
// always changed together in a single [docstore.Store.Update] call.
package repositories
