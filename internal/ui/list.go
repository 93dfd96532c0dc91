package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/soundpost/internal/models"
)

var (
	_ list.Item = postItem{}
	_ list.Item = trackItem{}
)

// postItem wraps [models.Post] to implement [list.Item].
type postItem struct {
	post   models.Post
	liking bool
}

func (i postItem) FilterValue() string { return i.post.Content }
func (i postItem) Title() string {
	heart := "♡"
	if i.post.IsLiked {
		heart = "♥"
	}
	if i.liking {
		heart = "…"
	}
	return fmt.Sprintf("%s  %s %d  💬 %d", i.post.User.DisplayName(), heart, i.post.LikesCount, i.post.CommentsCount)
}
func (i postItem) Description() string {
	desc := strings.Join(strings.Fields(i.post.Content), " ")
	if t := i.post.MusicTrack; t != nil {
		desc = fmt.Sprintf("♪ %s - %s • %s", t.Artist, t.Title, desc)
	}
	return desc
}

// trackItem wraps [models.MusicTrack] to implement [list.Item].
type trackItem struct {
	track models.MusicTrack
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}

func postItems(posts []models.Post, liking map[string]bool) []list.Item {
	items := make([]list.Item, len(posts))
	for i, p := range posts {
		items[i] = postItem{post: p, liking: liking[p.ID]}
	}
	return items
}

func trackItems(tracks []models.MusicTrack) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
