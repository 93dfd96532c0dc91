package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

const progressWidth = 20

// View renders the current view with the status line, player bar and help.
func (m *Model) View() string {
	var body string
	switch m.view {
	case FeedView, ProfileView:
		body = m.feedView()
	case CommentView:
		body = m.commentView()
	case ComposeView:
		body = m.composeView()
	case SearchView:
		body = m.searchView()
	}

	sections := []string{m.header(), body}
	if m.status != "" {
		st := styles.ok
		if m.statusErr {
			st = styles.err
		}
		sections = append(sections, st.Render(m.status))
	}
	sections = append(sections, renderPlayerBar(m.playerState), m.help.ShortHelpView(m.bindings()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) header() string {
	title := styles.title.UnsetMarginBottom().Render("♫ soundpost")
	if u := m.currentUser(); u != nil {
		return title + styles.muted.Render("  signed in as "+u.DisplayName())
	}
	return title + styles.muted.Render("  not signed in")
}

func (m *Model) currentUser() *models.User {
	if m.deps.Auth == nil {
		return nil
	}
	return m.deps.Auth.GetCurrentUser()
}

func (m *Model) viewWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) feedView() string {
	left := m.feed.View()
	if m.view == ProfileView {
		if u := m.currentUser(); u != nil {
			left = lipgloss.JoinVertical(lipgloss.Left, UserCard{User: *u}.Render(m.feed.Width()), left)
		}
	}
	if len(m.feed.Items()) == 0 {
		switch {
		case m.deps.Posts.IsLoading():
			left = lipgloss.JoinVertical(lipgloss.Left, left, styles.muted.Render("Loading posts..."))
		default:
			left = lipgloss.JoinVertical(lipgloss.Left, left, styles.muted.Render("No posts yet. Press n to share a track."))
		}
	}

	p := m.selectedPost()
	if p == nil || m.viewWidth() < 100 {
		return left
	}

	detail := PostCard{
		Post:        *p,
		Liking:      m.liking[p.ID],
		Playing:     p.MusicTrack != nil && m.isPlaying(p.MusicTrack.ID),
		Selected:    true,
		MaxComments: 3,
	}.Render(m.viewWidth() - m.feed.Width() - 2)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", detail)
}

func (m *Model) isPlaying(trackID string) bool {
	t := m.playerState.CurrentTrack
	return t != nil && t.ID == trackID && m.playerState.IsPlaying
}

func (m *Model) commentView() string {
	var b strings.Builder
	if p := m.deps.Posts.GetPost(m.commentPost); p != nil {
		b.WriteString(PostCard{Post: *p, MaxComments: 5}.Render(m.viewWidth() - 2))
		b.WriteString("\n")
	}
	b.WriteString(styles.title.Render("Add a comment"))
	b.WriteString("\n")
	b.WriteString(m.commentBox.View())
	b.WriteString("\n")
	b.WriteString(counter(m.commentBox.Value(), models.MaxCommentLength))
	return b.String()
}

func (m *Model) composeView() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("New post"))
	b.WriteString("\n")
	b.WriteString(m.composer.View())
	b.WriteString("\n")
	b.WriteString(counter(m.composer.Value(), models.MaxPostLength))
	b.WriteString("\n")
	if m.attached != nil {
		b.WriteString(TrackCard{Track: *m.attached, Playing: m.isPlaying(m.attached.ID)}.Render(m.viewWidth() - 2))
	} else {
		b.WriteString(styles.muted.Render("No track attached. Press ctrl+t to search."))
	}
	return b.String()
}

func (m *Model) searchView() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Search music"))
	b.WriteString("\n")
	b.WriteString(m.query.View())
	b.WriteString("\n\n")
	if len(m.results.Items()) > 0 {
		b.WriteString(m.results.View())
	} else {
		b.WriteString(styles.muted.Render("Type a query and press enter."))
	}
	return b.String()
}

func (m *Model) bindings() []key.Binding {
	k := m.keys
	switch m.view {
	case CommentView:
		return []key.Binding{k.submit, k.back}
	case ComposeView:
		return []key.Binding{k.submit, k.attach, k.back}
	case SearchView:
		if m.searchFocus {
			return []key.Binding{k.enter, k.play, k.focus, k.back}
		}
		return []key.Binding{k.enter, k.focus, k.back}
	default:
		return []key.Binding{k.like, k.comment, k.play, k.stop, k.compose, k.search, k.remove, k.profile, k.quit}
	}
}

func counter(s string, limit int) string {
	n := utf8.RuneCountInString(s)
	text := fmt.Sprintf("%d/%d", n, limit)
	if n >= limit {
		return styles.warn.Render(text)
	}
	return styles.muted.Render(text)
}

func renderPlayerBar(s models.AudioPlayerState) string {
	t := s.CurrentTrack
	if t == nil {
		return styles.muted.Render(fmt.Sprintf("♪ nothing playing  vol %d%%", s.Volume))
	}

	icon := "⏸"
	switch {
	case s.IsLoading:
		icon = "…"
	case s.IsPlaying:
		icon = "▶"
	}
	return fmt.Sprintf("%s %s - %s  %s %s/%s  vol %d%%",
		icon,
		styles.ok.Render(t.Title),
		t.Artist,
		progressBar(s.Progress, progressWidth),
		shared.FormatTime(s.CurrentTime),
		shared.FormatTime(s.Duration),
		s.Volume,
	)
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
