// Package ui implements the interactive music feed using bubbletea's Elm architecture.
//
// The TUI is a set of views over the shared post and auth stores:
//  1. [FeedView] : Browse the latest posts, like them and play their tracks
//  2. [ProfileView] : The signed-in user's profile and posts
//  3. [CommentView] : Comment on the selected post
//  4. [ComposeView] : Write a post with an optional track
//  5. [SearchView] : Search the music catalog and attach or preview a track
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Actions always run inside commands; store and player listeners registered with [Model.Subscribe] forward
// changes into the program, so Update only ever reads store snapshots.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, l, c, p, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
