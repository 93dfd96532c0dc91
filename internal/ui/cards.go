package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// Card renders one entity as a bordered block.
type Card interface {
	Render(width int) string
}

var (
	_ Card = PostCard{}
	_ Card = CommentCard{}
	_ Card = TrackCard{}
	_ Card = UserCard{}
)

// PostCard renders a post with its track, counters and comments.
type PostCard struct {
	Post     models.Post
	Liking   bool
	Playing  bool
	Selected bool
	// MaxComments caps the comments shown. Zero shows none.
	MaxComments int
}

func (c PostCard) Render(width int) string {
	inner := max(width-4, 10)
	p := c.Post

	var b strings.Builder
	b.WriteString(styles.ok.Render(p.User.DisplayName()))
	if p.User != nil && p.User.Username != "" {
		b.WriteString(styles.muted.Render(" @" + p.User.Username))
	}
	b.WriteString(styles.muted.Render(" · " + shortDate(p.CreatedAt)))
	b.WriteString("\n")

	if p.Content != "" {
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(p.Content))
		b.WriteString("\n")
	}
	if p.ImageURL != "" {
		b.WriteString(styles.muted.Render("🖼  " + truncate(p.ImageURL, inner-3)))
		b.WriteString("\n")
	}
	if p.MusicTrack != nil {
		b.WriteString(TrackCard{Track: *p.MusicTrack, Playing: c.Playing, Compact: true}.Render(inner))
		b.WriteString("\n")
	}

	heart := "♡"
	like := styles.muted
	if p.IsLiked {
		heart, like = "♥", styles.liked
	}
	if c.Liking {
		heart = "…"
	}
	b.WriteString(like.Render(fmt.Sprintf("%s %d", heart, p.LikesCount)))
	b.WriteString(styles.muted.Render(fmt.Sprintf("  💬 %d", p.CommentsCount)))

	if n := min(c.MaxComments, len(p.Comments)); n > 0 {
		b.WriteString("\n")
		for _, cm := range p.Comments[len(p.Comments)-n:] {
			b.WriteString("\n")
			b.WriteString(CommentCard{Comment: cm}.Render(inner))
		}
	}

	style := styles.card
	if c.Selected {
		style = styles.active
	}
	return style.Width(width - 2).Render(b.String())
}

// CommentCard renders a single comment without a border.
type CommentCard struct {
	Comment models.Comment
}

func (c CommentCard) Render(width int) string {
	author := styles.ok.Render(c.Comment.User.DisplayName())
	return lipgloss.NewStyle().Width(width).Render(author + " " + c.Comment.Content)
}

// TrackCard renders a catalog track. Compact drops the border for use inside other cards.
type TrackCard struct {
	Track   models.MusicTrack
	Playing bool
	Compact bool
}

func (c TrackCard) Render(width int) string {
	icon := "♪"
	if c.Playing {
		icon = "▶"
	}
	t := c.Track
	line := fmt.Sprintf("%s %s - %s [%s]", icon, t.Title, t.Artist, shared.FormatDuration(t.Duration))
	if !c.Compact && t.Album != "" {
		line += "\n  " + t.Album
	}
	if !t.HasPreview() {
		line += styles.muted.Render(" (no preview)")
	}
	if c.Compact {
		return styles.warn.Render(truncate(line, width))
	}
	return styles.card.Width(width - 2).Render(line)
}

// UserCard renders a profile header.
type UserCard struct {
	User models.User
}

func (c UserCard) Render(width int) string {
	u := c.User
	var b strings.Builder
	b.WriteString(styles.title.UnsetMarginBottom().Render(u.DisplayName()))
	if u.Username != "" {
		b.WriteString(styles.muted.Render(" @" + u.Username))
	}
	if u.Bio != "" {
		b.WriteString("\n" + u.Bio)
	}
	b.WriteString("\n" + styles.muted.Render(fmt.Sprintf("%d posts · %d followers · %d following", u.PostsCount, u.FollowersCount, u.FollowingCount)))
	return styles.card.Width(width - 2).Render(b.String())
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// shortDate trims an ISO timestamp to minutes.
func shortDate(ts string) string {
	if len(ts) >= 16 {
		return strings.Replace(ts[:16], "T", " ", 1)
	}
	return ts
}
