package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/soundpost/internal/docstore"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
	"github.com/desertthunder/soundpost/internal/storage"
)

// DefaultFeedLimit is the page size used when a caller passes a non-positive limit.
const DefaultFeedLimit = 10

// PostRepository stores posts in the posts collection with embedded comments.
type PostRepository struct {
	store   docstore.Store
	users   *UserRepository
	objects storage.ObjectStore
	now     Clock
}

// NewPostRepository creates a PostRepository. objects may be nil when image uploads are not needed.
func NewPostRepository(store docstore.Store, users *UserRepository, objects storage.ObjectStore) *PostRepository {
	return &PostRepository{store: store, users: users, objects: objects, now: time.Now}
}

// Create validates and stores a new post for userID, then bumps the author's post counter.
func (r *PostRepository) Create(ctx context.Context, data models.CreatePostData, userID string) (*models.Post, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}

	doc := map[string]any{
		"userId":        userID,
		"content":       strings.TrimSpace(data.Content),
		"likesCount":    0,
		"commentsCount": 0,
		"likedBy":       []any{},
		"comments":      []any{},
		"createdAt":     docstore.ServerTimestamp,
		"updatedAt":     docstore.ServerTimestamp,
	}
	if data.ImageURL != "" {
		doc["imageUrl"] = data.ImageURL
	}
	if data.MusicTrack != nil {
		track, err := docstore.ToMap(data.MusicTrack)
		if err != nil {
			return nil, err
		}
		doc["musicTrack"] = track
	}

	id, err := r.store.Add(ctx, models.PostsCollection, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := r.users.IncrementPosts(ctx, userID, 1); err != nil {
		return nil, err
	}

	post, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s vanished after create", shared.ErrPostNotFound, id)
	}
	return post, nil
}

// List returns the newest posts first.
func (r *PostRepository) List(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return r.query(ctx, docstore.Query{OrderBy: "createdAt", Desc: true, Limit: limit})
}

// ListByUser returns every post by userID, newest first.
func (r *PostRepository) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	return r.query(ctx, docstore.Query{
		Where:   []docstore.Where{{Field: "userId", Value: userID}},
		OrderBy: "createdAt",
		Desc:    true,
	})
}

func (r *PostRepository) query(ctx context.Context, q docstore.Query) ([]models.Post, error) {
	docs, err := r.store.Query(ctx, models.PostsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	cache := newSnapshotCache(r.users)
	posts := make([]models.Post, 0, len(docs))
	for i := range docs {
		post, err := r.decode(ctx, &docs[i], cache)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// Get returns the hydrated post, or nil when it does not exist.
func (r *PostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	doc, err := r.store.Get(ctx, models.PostsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return r.decode(ctx, doc, newSnapshotCache(r.users))
}

// decode rebuilds a post from its document and fills every author snapshot.
func (r *PostRepository) decode(ctx context.Context, doc *docstore.Document, cache *snapshotCache) (*models.Post, error) {
	var post models.Post
	if err := doc.Decode(&post); err != nil {
		return nil, err
	}

	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}

	post.User = cache.get(ctx, post.UserID)
	for i := range post.Comments {
		if post.Comments[i].User == nil {
			post.Comments[i].User = cache.get(ctx, post.Comments[i].UserID)
		}
	}
	return &post, nil
}

// fresh reads the raw post without hydration, failing with [shared.ErrPostNotFound] when missing.
func (r *PostRepository) fresh(ctx context.Context, postID string) (*models.Post, error) {
	doc, err := r.store.Get(ctx, models.PostsCollection, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to read post: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPostNotFound, postID)
	}

	var post models.Post
	if err := doc.Decode(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Like adds userID to the post's like set and increments its counter in one update.
//
// Returns false without writing when the user already likes the post.
func (r *PostRepository) Like(ctx context.Context, postID, userID string) (bool, error) {
	post, err := r.fresh(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.HasLiked(userID) {
		return false, nil
	}

	if err := r.update(ctx, postID,
		docstore.ArrayUnion("likedBy", userID),
		docstore.Increment("likesCount", 1),
		docstore.Set("updatedAt", docstore.ServerTimestamp),
	); err != nil {
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	return true, nil
}

// Unlike removes userID from the post's like set and decrements its counter in one update.
//
// Returns false without writing when the user does not like the post. The counter never goes below zero.
func (r *PostRepository) Unlike(ctx context.Context, postID, userID string) (bool, error) {
	post, err := r.fresh(ctx, postID)
	if err != nil {
		return false, err
	}
	if !post.HasLiked(userID) {
		return false, nil
	}
	if post.LikesCount <= 0 {
		return false, fmt.Errorf("%w: post %s has no likes to remove", shared.ErrInvalidInput, postID)
	}

	if err := r.update(ctx, postID,
		docstore.ArrayRemove("likedBy", userID),
		docstore.Increment("likesCount", -1),
		docstore.Set("updatedAt", docstore.ServerTimestamp),
	); err != nil {
		return false, fmt.Errorf("failed to unlike post: %w", err)
	}
	return true, nil
}

// AddComment appends a comment with a generated id and the author's snapshot, incrementing the counter in the same update.
func (r *PostRepository) AddComment(ctx context.Context, postID string, data models.CreateCommentData, userID string) (*models.Comment, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}

	now := r.now()
	comment := &models.Comment{
		ID:        shared.NewCommentIDAt(now),
		UserID:    userID,
		User:      r.users.Snapshot(ctx, userID),
		Content:   strings.TrimSpace(data.Content),
		CreatedAt: shared.Timestamp(now),
	}

	value, err := docstore.ToMap(comment)
	if err != nil {
		return nil, err
	}

	if err := r.update(ctx, postID,
		docstore.ArrayUnion("comments", value),
		docstore.Increment("commentsCount", 1),
		docstore.Set("updatedAt", docstore.ServerTimestamp),
	); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return comment, nil
}

// Delete removes a post after checking, against a fresh read, that userID owns it.
func (r *PostRepository) Delete(ctx context.Context, postID, userID string) error {
	post, err := r.fresh(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return fmt.Errorf("%w: post %s belongs to another user", shared.ErrUnauthorized, postID)
	}

	if err := r.store.Delete(ctx, models.PostsCollection, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return r.users.IncrementPosts(ctx, userID, -1)
}

// UploadImage validates, resizes and uploads a post image, returning its download URL.
func (r *PostRepository) UploadImage(ctx context.Context, file models.ImageFile, userID string) (string, error) {
	if err := file.Validate(); err != nil {
		return "", err
	}
	if r.objects == nil {
		return "", fmt.Errorf("%w: no object storage configured", shared.ErrMissingConfig)
	}

	normalized, err := storage.NormalizeImage(file, storage.MaxPostImageWidth, false)
	if err != nil {
		return "", err
	}

	path := storage.PostImagePath(userID, r.now().UnixMilli(), normalized.Name)
	if err := r.objects.Upload(ctx, path, normalized.Data, normalized.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	url, err := r.objects.DownloadURL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve image url: %w", err)
	}
	return url, nil
}

func (r *PostRepository) update(ctx context.Context, postID string, updates ...docstore.FieldUpdate) error {
	err := r.store.Update(ctx, models.PostsCollection, postID, updates...)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s", shared.ErrPostNotFound, postID)
	}
	return err
}
