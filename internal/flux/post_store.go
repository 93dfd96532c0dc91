package flux

import (
	"context"
	"sync"

	"github.com/desertthunder/soundpost/internal/models"
)

// PostState is the feed as seen by views. An empty Error means no error.
type PostState struct {
	Posts        []models.Post
	IsLoading    bool
	Error        string
	SelectedPost *models.Post
	IsCreating   bool
}

// Clone returns a deep copy of s.
func (s PostState) Clone() PostState {
	c := s
	c.Posts = make([]models.Post, len(s.Posts))
	for i := range s.Posts {
		c.Posts[i] = *s.Posts[i].Clone()
	}
	c.SelectedPost = s.SelectedPost.Clone()
	return c
}

// PostStore reduces post actions into [PostState].
type PostStore struct {
	mu        sync.RWMutex
	state     PostState
	listeners listeners
	token     DispatchToken
}

// NewPostStore creates an empty store registered with d.
func NewPostStore(d *Dispatcher) *PostStore {
	s := &PostStore{state: PostState{Posts: []models.Post{}}}
	s.token = d.Register(s.handle)
	return s
}

// Token is the store's dispatcher registration.
func (s *PostStore) Token() DispatchToken { return s.token }

// AddChangeListener subscribes fn to every relevant reduction.
//
// fn runs inside the delivery pass; dispatching from it returns [shared.ErrDispatchInProgress].
func (s *PostStore) AddChangeListener(fn func()) ListenerID { return s.listeners.add(fn) }

// RemoveChangeListener unsubscribes id. It is never called again afterwards.
func (s *PostStore) RemoveChangeListener(id ListenerID) { s.listeners.remove(id) }

// GetState returns a deep copy of the current state.
func (s *PostStore) GetState() PostState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// GetAllPosts returns a copy of the loaded posts, newest first.
func (s *PostStore) GetAllPosts() []models.Post { return s.GetState().Posts }

// IsLoading reports whether a feed load is in flight.
func (s *PostStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoading
}

// GetError returns the last failure message, or "".
func (s *PostStore) GetError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// GetSelectedPost returns a copy of the selected post, or nil.
func (s *PostStore) GetSelectedPost() *models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedPost.Clone()
}

// GetPost returns a copy of the post with id, or nil.
func (s *PostStore) GetPost(id string) *models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.state.Posts[i].Clone()
	}
	return nil
}

func (s *PostStore) indexOf(id string) int {
	for i := range s.state.Posts {
		if s.state.Posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *PostStore) handle(_ context.Context, action Action) error {
	changed, err := s.reduce(action)
	if err != nil {
		return err
	}
	if changed {
		s.listeners.emit()
	}
	return nil
}

// reduce applies action and reports whether listeners should be notified.
func (s *PostStore) reduce(action Action) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch action.Type {
	case LoadPostsRequest:
		s.state.IsLoading = true
		s.state.Error = ""
	case LoadPostsSuccess:
		posts, err := payloadAs[[]models.Post](action)
		if err != nil {
			return false, err
		}
		next := make([]models.Post, len(posts))
		for i := range posts {
			p := posts[i].Clone()
			p.Normalize()
			next[i] = *p
		}
		s.state.Posts = next
		s.state.IsLoading = false
	case LoadPostsFailure:
		msg, err := payloadAs[string](action)
		if err != nil {
			return false, err
		}
		s.state.IsLoading = false
		s.state.Error = msg
	case CreatePostRequest:
		s.state.IsCreating = true
		s.state.Error = ""
	case CreatePostSuccess:
		post, err := payloadAs[*models.Post](action)
		if err != nil {
			return false, err
		}
		s.state.IsCreating = false
		if post != nil {
			p := post.Clone()
			p.Normalize()
			s.state.Posts = append([]models.Post{*p}, s.state.Posts...)
		}
	case CreatePostFailure:
		msg, err := payloadAs[string](action)
		if err != nil {
			return false, err
		}
		s.state.IsCreating = false
		s.state.Error = msg
	case LikePostRequest, LikePostSuccess, UnlikePostRequest, UnlikePostSuccess,
		AddCommentRequest, DeletePostRequest:
	case LikePostFailure, UnlikePostFailure, AddCommentFailure, DeletePostFailure:
		msg, err := payloadAs[string](action)
		if err != nil {
			return false, err
		}
		s.state.Error = msg
	case AddCommentSuccess:
		added, err := payloadAs[CommentAdded](action)
		if err != nil {
			return false, err
		}
		i := s.indexOf(added.PostID)
		if i < 0 {
			return false, nil
		}
		post := &s.state.Posts[i]
		post.Comments = append(post.Comments, added.Comment.Clone())
		post.CommentsCount = len(post.Comments)
		if s.state.SelectedPost != nil && s.state.SelectedPost.ID == added.PostID {
			s.state.SelectedPost = post.Clone()
		}
	case DeletePostSuccess:
		id, err := payloadAs[string](action)
		if err != nil {
			return false, err
		}
		if i := s.indexOf(id); i >= 0 {
			s.state.Posts = append(s.state.Posts[:i:i], s.state.Posts[i+1:]...)
		}
		if s.state.SelectedPost != nil && s.state.SelectedPost.ID == id {
			s.state.SelectedPost = nil
		}
	case SelectPost:
		post, err := payloadAs[*models.Post](action)
		if err != nil {
			return false, err
		}
		s.state.SelectedPost = post.Clone()
	case ClearError:
		s.state.Error = ""
	default:
		return false, nil
	}
	return true, nil
}
