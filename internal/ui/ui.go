package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/soundpost/internal/flux"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/player"
	"github.com/desertthunder/soundpost/internal/repositories"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FeedView ViewState = iota
	ProfileView
	CommentView
	ComposeView
	SearchView
)

// Searcher is the catalog search used by the search modal.
type Searcher interface {
	SearchTracks(ctx context.Context, q models.SearchQuery) (*models.SearchResult, error)
}

// Deps are the long-lived services the TUI reads and drives.
type Deps struct {
	Posts    *flux.PostStore
	Auth     *flux.AuthStore
	Actions  *flux.PostActions
	Player   *player.Player
	Catalog  Searcher
	PageSize int
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	deps   Deps
	view   ViewState
	prev   ViewState
	width  int
	height int

	feed        list.Model
	results     list.Model
	commentBox  textarea.Model
	composer    textarea.Model
	query       textinput.Model
	searchFocus bool

	commentPost string
	attached    *models.MusicTrack
	liking      map[string]bool

	status      string
	statusErr   bool
	playerState models.AudioPlayerState

	help        help.Model
	keys        keyMap
	unsubscribe func()
}

// NewModel creates the feed model. Call [Model.Subscribe] once the program exists.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.PageSize <= 0 {
		deps.PageSize = repositories.DefaultFeedLimit
	}

	feed := newList("Feed")
	results := newList("Results")

	comment := textarea.New()
	comment.Placeholder = "Write a comment..."
	comment.CharLimit = models.MaxCommentLength
	comment.ShowLineNumbers = false
	comment.SetHeight(4)

	composer := textarea.New()
	composer.Placeholder = "What are you listening to?"
	composer.CharLimit = models.MaxPostLength
	composer.ShowLineNumbers = false
	composer.SetHeight(5)

	query := textinput.New()
	query.Placeholder = "Artist, song or album"
	query.CharLimit = 100

	m := &Model{
		ctx:        ctx,
		deps:       deps,
		view:       FeedView,
		feed:       feed,
		results:    results,
		commentBox: comment,
		composer:   composer,
		query:      query,
		liking:     map[string]bool{},
		help:       help.New(),
		keys:       newKeyMap(),
	}
	if deps.Player != nil {
		m.playerState = deps.Player.State()
	}
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// Subscribe forwards store and player changes into the program through send.
func (m *Model) Subscribe(send func(tea.Msg)) {
	m.Unsubscribe()

	id := m.deps.Posts.AddChangeListener(func() { send(storeChangedMsg()) })
	stopPlayer := func() {}
	if m.deps.Player != nil {
		stopPlayer = m.deps.Player.AddStateListener(func(s models.AudioPlayerState) { send(playerChangedMsg(s)) })
	}

	m.unsubscribe = func() {
		m.deps.Posts.RemoveChangeListener(id)
		stopPlayer()
	}
}

// Unsubscribe detaches the listeners registered by Subscribe.
func (m *Model) Unsubscribe() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init loads the feed.
func (m *Model) Init() tea.Cmd {
	return m.loadFeed()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.forceQuit) {
			return m.quit()
		}
		switch m.view {
		case FeedView, ProfileView:
			return m.handleFeedKeys(msg)
		case CommentView:
			return m.handleCommentKeys(msg)
		case ComposeView:
			return m.handleComposeKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	listWidth := width - 4
	if width >= 100 {
		listWidth = width * 2 / 5
	}
	m.feed.SetSize(listWidth, max(height-10, 5))
	m.results.SetSize(width-4, max(height-14, 5))
	m.commentBox.SetWidth(max(width-6, 20))
	m.composer.SetWidth(max(width-6, 20))
	m.query.Width = max(width-10, 20)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStoreChanged:
		m.syncFeed()

	case MsgPlayerChanged:
		m.playerState = msg.data.(models.AudioPlayerState)

	case MsgLikeDone:
		res := msg.data.(likeResult)
		delete(m.liking, res.postID)
		if res.err != nil {
			m.setError("Like failed: %v", res.err)
		}
		m.syncFeed()

	case MsgCommentDone:
		res := msg.data.(commentResult)
		if res.err != nil {
			m.setError("Comment failed: %v", res.err)
			return m, nil
		}
		m.commentBox.Reset()
		m.commentBox.Blur()
		m.commentPost = ""
		m.view = m.prev
		m.setStatus("Comment added")
		m.syncFeed()

	case MsgPostCreated:
		post, _ := msg.data.(*models.Post)
		if post == nil {
			m.setError("Post failed: %s", m.deps.Posts.GetError())
			return m, nil
		}
		m.composer.Reset()
		m.composer.Blur()
		m.attached = nil
		m.view = FeedView
		m.setStatus("Posted")
		m.syncFeed()
		m.feed.Select(0)

	case MsgPostDeleted:
		res := msg.data.(likeResult)
		if res.err != nil {
			m.setError("Delete failed: %v", res.err)
			return m, nil
		}
		m.setStatus("Post deleted")
		m.syncFeed()

	case MsgSearchDone:
		res := msg.data.(searchResult)
		if res.err != nil {
			m.setError("Search failed: %v", res.err)
			return m, nil
		}
		cmd := m.results.SetItems(trackItems(res.result.Tracks))
		m.results.Select(0)
		m.searchFocus = len(res.result.Tracks) > 0
		if m.searchFocus {
			m.query.Blur()
		}
		m.setStatus("%d of %d results", len(res.result.Tracks), res.result.Total)
		return m, cmd

	case MsgPlaybackFailed:
		m.setError("Playback failed: %v", msg.data.(error))
	}
	return m, nil
}

func (m *Model) syncFeed() {
	idx := m.feed.Index()
	m.feed.SetItems(postItems(m.deps.Posts.GetAllPosts(), m.liking))
	if n := len(m.feed.Items()); n > 0 {
		m.feed.Select(min(idx, n-1))
	}
	if e := m.deps.Posts.GetError(); e != "" && !m.statusErr {
		m.setError("%s", e)
	}
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = true
}

func (m *Model) selectedPost() *models.Post {
	if item, ok := m.feed.SelectedItem().(postItem); ok {
		return &item.post
	}
	return nil
}

func (m *Model) currentUserID() string {
	if m.deps.Auth == nil {
		return ""
	}
	return m.deps.Auth.CurrentUserID()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.Unsubscribe()
	return m, tea.Quit
}

func (m *Model) handleFeedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.like):
		return m, m.toggleLike()
	case key.Matches(msg, m.keys.comment):
		return m, m.openComment()
	case key.Matches(msg, m.keys.play):
		if p := m.selectedPost(); p != nil && p.MusicTrack != nil {
			return m, m.playTrack(*p.MusicTrack)
		}
		m.setError("This post has no track")
		return m, nil
	case key.Matches(msg, m.keys.stop):
		return m, m.stopPlayer()
	case key.Matches(msg, m.keys.louder):
		return m, m.changeVolume(10)
	case key.Matches(msg, m.keys.quieter):
		return m, m.changeVolume(-10)
	case key.Matches(msg, m.keys.compose):
		return m, m.openComposer()
	case key.Matches(msg, m.keys.search):
		return m, m.openSearch()
	case key.Matches(msg, m.keys.remove):
		return m, m.deleteSelected()
	case key.Matches(msg, m.keys.profile):
		if m.view == ProfileView {
			m.view = FeedView
			m.feed.Title = "Feed"
			return m, m.loadFeed()
		}
		if m.currentUserID() == "" {
			m.setError("Sign in to see your posts")
			return m, nil
		}
		m.view = ProfileView
		m.feed.Title = "My posts"
		return m, m.loadProfile()
	case key.Matches(msg, m.keys.refresh):
		if m.view == ProfileView {
			return m, m.loadProfile()
		}
		return m, m.loadFeed()
	}

	var cmd tea.Cmd
	m.feed, cmd = m.feed.Update(msg)
	return m, cmd
}

func (m *Model) handleCommentKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.commentBox.Blur()
		m.view = m.prev
		return m, nil
	case key.Matches(msg, m.keys.submit):
		return m, m.submitComment()
	}

	var cmd tea.Cmd
	m.commentBox, cmd = m.commentBox.Update(msg)
	return m, cmd
}

func (m *Model) handleComposeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.composer.Blur()
		m.view = FeedView
		return m, nil
	case key.Matches(msg, m.keys.attach):
		return m, m.openSearch()
	case key.Matches(msg, m.keys.submit):
		return m, m.submitPost()
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.query.Blur()
		m.view = m.prev
		if m.view == ComposeView {
			return m, m.composer.Focus()
		}
		return m, nil
	case key.Matches(msg, m.keys.focus):
		if len(m.results.Items()) == 0 {
			return m, nil
		}
		m.searchFocus = !m.searchFocus
		if m.searchFocus {
			m.query.Blur()
			return m, nil
		}
		return m, m.query.Focus()
	case key.Matches(msg, m.keys.enter):
		if !m.searchFocus {
			return m, m.search(m.query.Value())
		}
		if item, ok := m.results.SelectedItem().(trackItem); ok {
			track := item.track
			m.attached = &track
			m.view = ComposeView
			m.setStatus("Attached %s - %s", track.Artist, track.Title)
			return m, m.composer.Focus()
		}
		return m, nil
	case m.searchFocus && key.Matches(msg, m.keys.play):
		if item, ok := m.results.SelectedItem().(trackItem); ok {
			return m, m.playTrack(item.track)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.searchFocus {
		m.results, cmd = m.results.Update(msg)
	} else {
		m.query, cmd = m.query.Update(msg)
	}
	return m, cmd
}

func (m *Model) openComment() tea.Cmd {
	p := m.selectedPost()
	if p == nil {
		return nil
	}
	if m.currentUserID() == "" {
		m.setError("Sign in to comment")
		return nil
	}
	m.commentPost = p.ID
	m.prev = m.view
	m.view = CommentView
	m.commentBox.Reset()
	return m.commentBox.Focus()
}

func (m *Model) openComposer() tea.Cmd {
	if m.currentUserID() == "" {
		m.setError("Sign in to post")
		return nil
	}
	m.view = ComposeView
	return m.composer.Focus()
}

func (m *Model) openSearch() tea.Cmd {
	if m.deps.Catalog == nil {
		m.setError("Music search is not configured")
		return nil
	}
	if m.view != SearchView {
		m.prev = m.view
	}
	m.composer.Blur()
	m.view = SearchView
	m.searchFocus = false
	return m.query.Focus()
}

// toggleLike likes or unlikes the selected post. The key is ignored while a toggle for that post is in flight.
func (m *Model) toggleLike() tea.Cmd {
	p := m.selectedPost()
	if p == nil || m.liking[p.ID] {
		return nil
	}
	userID := m.currentUserID()
	if userID == "" {
		m.setError("Sign in to like posts")
		return nil
	}

	m.liking[p.ID] = true
	m.syncFeed()

	ctx, actions, postID, liked := m.ctx, m.deps.Actions, p.ID, p.IsLiked
	return func() tea.Msg {
		var err error
		if liked {
			err = actions.UnlikePost(ctx, postID, userID)
		} else {
			err = actions.LikePost(ctx, postID, userID)
		}
		return likeDoneMsg(postID, err)
	}
}

func (m *Model) submitComment() tea.Cmd {
	content := strings.TrimSpace(m.commentBox.Value())
	ctx, actions, postID, userID := m.ctx, m.deps.Actions, m.commentPost, m.currentUserID()
	return func() tea.Msg {
		comment, err := actions.AddComment(ctx, postID, models.CreateCommentData{Content: content}, userID)
		return commentDoneMsg(postID, comment, err)
	}
}

func (m *Model) submitPost() tea.Cmd {
	data := models.CreatePostData{Content: strings.TrimSpace(m.composer.Value()), MusicTrack: m.attached.Clone()}
	ctx, actions, userID := m.ctx, m.deps.Actions, m.currentUserID()
	return func() tea.Msg {
		return postCreatedMsg(actions.CreatePost(ctx, data, userID))
	}
}

func (m *Model) deleteSelected() tea.Cmd {
	p := m.selectedPost()
	if p == nil {
		return nil
	}
	userID := m.currentUserID()
	if p.UserID != userID {
		m.setError("You can only delete your own posts")
		return nil
	}
	ctx, actions, postID := m.ctx, m.deps.Actions, p.ID
	return func() tea.Msg {
		return postDeletedMsg(postID, actions.DeletePost(ctx, postID, userID))
	}
}

func (m *Model) search(q string) tea.Cmd {
	ctx, catalog := m.ctx, m.deps.Catalog
	return func() tea.Msg {
		res, err := catalog.SearchTracks(ctx, models.SearchQuery{Query: q, Limit: 20})
		return searchDoneMsg(res, err)
	}
}

func (m *Model) loadFeed() tea.Cmd {
	ctx, actions, limit := m.ctx, m.deps.Actions, m.deps.PageSize
	return func() tea.Msg {
		actions.LoadPosts(ctx, limit)
		return storeChangedMsg()
	}
}

func (m *Model) loadProfile() tea.Cmd {
	ctx, actions, userID := m.ctx, m.deps.Actions, m.currentUserID()
	return func() tea.Msg {
		actions.LoadUserPosts(ctx, userID)
		return storeChangedMsg()
	}
}

func (m *Model) playTrack(track models.MusicTrack) tea.Cmd {
	if m.deps.Player == nil {
		m.setError("Playback is not configured")
		return nil
	}
	ctx, p := m.ctx, m.deps.Player
	return func() tea.Msg {
		if err := p.PlayTrack(ctx, track); err != nil {
			return playbackFailedMsg(err)
		}
		return playerChangedMsg(p.State())
	}
}

func (m *Model) stopPlayer() tea.Cmd {
	if m.deps.Player == nil {
		return nil
	}
	p := m.deps.Player
	return func() tea.Msg {
		p.Stop()
		return playerChangedMsg(p.State())
	}
}

func (m *Model) changeVolume(delta int) tea.Cmd {
	if m.deps.Player == nil {
		return nil
	}
	p, volume := m.deps.Player, m.playerState.Volume+delta
	return func() tea.Msg {
		if err := p.SetVolume(volume); err != nil {
			return playbackFailedMsg(err)
		}
		return playerChangedMsg(p.State())
	}
}
