package flux

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/repositories"
	"github.com/desertthunder/soundpost/internal/shared"
)

// PostClient is the persistence surface used by [PostActions].
type PostClient interface {
	Create(ctx context.Context, data models.CreatePostData, userID string) (*models.Post, error)
	List(ctx context.Context, limit int) ([]models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
	Like(ctx context.Context, postID, userID string) (bool, error)
	Unlike(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, postID string, data models.CreateCommentData, userID string) (*models.Comment, error)
	Delete(ctx context.Context, postID, userID string) error
	UploadImage(ctx context.Context, file models.ImageFile, userID string) (string, error)
}

// feedScope remembers the last load so mutations can refresh the same view.
type feedScope struct {
	userID string
	limit  int
}

// PostActions performs post I/O and reports it to the dispatcher.
type PostActions struct {
	dispatcher *Dispatcher
	posts      PostClient
	auth       *AuthStore
	logger     *log.Logger

	mu    sync.Mutex
	scope feedScope
}

// NewPostActions wires post actions. auth may be nil when likes need not be marked.
func NewPostActions(d *Dispatcher, posts PostClient, auth *AuthStore, logger *log.Logger) *PostActions {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &PostActions{
		dispatcher: d,
		posts:      posts,
		auth:       auth,
		logger:     shared.WithLogger(logger, "component", "post-actions"),
		scope:      feedScope{limit: repositories.DefaultFeedLimit},
	}
}

func (a *PostActions) emit(ctx context.Context, t ActionType, payload any) {
	if err := a.dispatcher.Dispatch(ctx, Action{Type: t, Payload: payload}); err != nil {
		a.logger.Warn("dispatch failed", "action", t, "error", err)
	}
}

func (a *PostActions) currentUserID() string {
	if a.auth == nil {
		return ""
	}
	return a.auth.CurrentUserID()
}

// LoadPosts loads the newest limit posts into the store. Errors end up in the store.
func (a *PostActions) LoadPosts(ctx context.Context, limit int) {
	if limit <= 0 {
		limit = repositories.DefaultFeedLimit
	}
	a.setScope(feedScope{limit: limit})
	a.load(ctx, func() ([]models.Post, error) { return a.posts.List(ctx, limit) })
}

// LoadUserPosts loads userID's posts into the store. Errors end up in the store.
func (a *PostActions) LoadUserPosts(ctx context.Context, userID string) {
	a.setScope(feedScope{userID: userID})
	a.load(ctx, func() ([]models.Post, error) { return a.posts.ListByUser(ctx, userID) })
}

func (a *PostActions) load(ctx context.Context, fetch func() ([]models.Post, error)) {
	a.emit(ctx, LoadPostsRequest, nil)

	posts, err := fetch()
	if err != nil {
		a.logger.Error("failed to load posts", "error", err)
		a.emit(ctx, LoadPostsFailure, err.Error())
		return
	}

	models.MarkUserLikes(posts, a.currentUserID())
	a.emit(ctx, LoadPostsSuccess, posts)
}

func (a *PostActions) setScope(s feedScope) {
	a.mu.Lock()
	a.scope = s
	a.mu.Unlock()
}

// reload refreshes whatever feed was loaded last.
func (a *PostActions) reload(ctx context.Context) {
	a.mu.Lock()
	scope := a.scope
	a.mu.Unlock()

	if scope.userID != "" {
		a.LoadUserPosts(ctx, scope.userID)
		return
	}
	a.LoadPosts(ctx, scope.limit)
}

// CreatePost validates and stores a post, then prepends it to the feed.
//
// Failures are recorded in the store; the created post is returned on success and nil otherwise.
func (a *PostActions) CreatePost(ctx context.Context, data models.CreatePostData, userID string) *models.Post {
	a.emit(ctx, CreatePostRequest, nil)

	if err := data.Validate(); err != nil {
		a.emit(ctx, CreatePostFailure, err.Error())
		return nil
	}
	if userID == "" {
		a.emit(ctx, CreatePostFailure, shared.ErrNotAuthenticated.Error())
		return nil
	}

	post, err := a.posts.Create(ctx, data, userID)
	if err != nil {
		a.logger.Error("failed to create post", "user", userID, "error", err)
		a.emit(ctx, CreatePostFailure, err.Error())
		return nil
	}

	a.emit(ctx, CreatePostSuccess, post)
	return post
}

// LikePost likes postID as userID and refreshes the feed. Liking twice changes nothing.
func (a *PostActions) LikePost(ctx context.Context, postID, userID string) error {
	return a.toggleLike(ctx, postID, userID, true)
}

// UnlikePost removes userID's like and refreshes the feed. Unliking a post that is not liked changes nothing.
func (a *PostActions) UnlikePost(ctx context.Context, postID, userID string) error {
	return a.toggleLike(ctx, postID, userID, false)
}

func (a *PostActions) toggleLike(ctx context.Context, postID, userID string, like bool) error {
	request, success, failure := LikePostRequest, LikePostSuccess, LikePostFailure
	op := a.posts.Like
	if !like {
		request, success, failure = UnlikePostRequest, UnlikePostSuccess, UnlikePostFailure
		op = a.posts.Unlike
	}

	a.emit(ctx, request, postID)

	if err := requireIDs(postID, userID); err != nil {
		a.emit(ctx, failure, err.Error())
		return err
	}

	changed, err := op(ctx, postID, userID)
	if err != nil {
		a.logger.Error("like toggle failed", "post", postID, "like", like, "error", err)
		a.emit(ctx, failure, err.Error())
		return err
	}
	a.logger.Debug("like toggled", "post", postID, "like", like, "changed", changed)

	a.reload(ctx)
	a.emit(ctx, success, postID)
	return nil
}

// AddComment validates and appends a comment, returning it for immediate display.
func (a *PostActions) AddComment(ctx context.Context, postID string, data models.CreateCommentData, userID string) (*models.Comment, error) {
	a.emit(ctx, AddCommentRequest, postID)

	err := data.Validate()
	if err == nil {
		err = requireIDs(postID, userID)
	}
	if err != nil {
		a.emit(ctx, AddCommentFailure, err.Error())
		return nil, err
	}

	comment, err := a.posts.AddComment(ctx, postID, data, userID)
	if err != nil {
		a.logger.Error("failed to add comment", "post", postID, "error", err)
		a.emit(ctx, AddCommentFailure, err.Error())
		return nil, err
	}

	a.emit(ctx, AddCommentSuccess, CommentAdded{PostID: postID, Comment: *comment})
	return comment, nil
}

// DeletePost deletes a post owned by userID and refreshes the feed.
func (a *PostActions) DeletePost(ctx context.Context, postID, userID string) error {
	a.emit(ctx, DeletePostRequest, postID)

	err := requireIDs(postID, userID)
	if err == nil {
		err = a.posts.Delete(ctx, postID, userID)
	}
	if err != nil {
		a.logger.Error("failed to delete post", "post", postID, "error", err)
		a.emit(ctx, DeletePostFailure, err.Error())
		return err
	}

	a.reload(ctx)
	a.emit(ctx, DeletePostSuccess, postID)
	return nil
}

// UploadPostImage validates and uploads an image for a post being composed.
func (a *PostActions) UploadPostImage(ctx context.Context, file models.ImageFile, userID string) (string, error) {
	if err := file.Validate(); err != nil {
		return "", err
	}
	url, err := a.posts.UploadImage(ctx, file, userID)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return url, nil
}

// SelectPost marks post as selected. nil clears the selection.
func (a *PostActions) SelectPost(ctx context.Context, post *models.Post) {
	a.emit(ctx, SelectPost, post)
}

// ClearError clears the store's error.
func (a *PostActions) ClearError(ctx context.Context) {
	a.emit(ctx, ClearError, nil)
}

func requireIDs(postID, userID string) error {
	if postID == "" {
		return fmt.Errorf("%w: post id", shared.ErrMissingArgument)
	}
	if userID == "" {
		return shared.ErrNotAuthenticated
	}
	return nil
}
