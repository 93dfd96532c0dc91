package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/soundpost/internal/docstore"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
	"github.com/desertthunder/soundpost/internal/storage"
)

// UserRepository stores user profiles in the users collection.
type UserRepository struct {
	store   docstore.Store
	objects storage.ObjectStore
	now     Clock
}

// NewUserRepository creates a UserRepository. objects may be nil when avatar uploads are not needed.
func NewUserRepository(store docstore.Store, objects storage.ObjectStore) *UserRepository {
	return &UserRepository{store: store, objects: objects, now: time.Now}
}

// Create stores a new profile, generating an id when user.ID is empty.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = shared.GenerateID()
	}
	if user.Email != "" {
		existing, err := r.FindByEmail(ctx, user.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: email %s is already registered", shared.ErrInvalidInput, user.Email)
		}
	}

	data, err := docstore.ToMap(user, "id")
	if err != nil {
		return err
	}
	data["createdAt"] = docstore.ServerTimestamp
	data["updatedAt"] = docstore.ServerTimestamp

	if err := r.store.Set(ctx, models.UsersCollection, user.ID, data); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Get returns the user, or nil when no profile exists.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.store.Get(ctx, models.UsersCollection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	var user models.User
	if err := doc.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns the user registered with email, or nil.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := r.store.Query(ctx, models.UsersCollection, docstore.Query{
		Where: []docstore.Where{{Field: "email", Value: email}},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var user models.User
	if err := docs[0].Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns up to limit users.
func (r *UserRepository) List(ctx context.Context, limit int) ([]*models.User, error) {
	docs, err := r.store.Query(ctx, models.UsersCollection, docstore.Query{OrderBy: "createdAt", Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*models.User, 0, len(docs))
	for _, doc := range docs {
		var user models.User
		if err := doc.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	return users, nil
}

// Snapshot returns the user for denormalization into posts and comments.
//
// It never fails: a missing or unreadable profile yields [models.PlaceholderUser].
func (r *UserRepository) Snapshot(ctx context.Context, id string) *models.User {
	user, err := r.Get(ctx, id)
	if err != nil || user == nil {
		return models.PlaceholderUser(id)
	}
	return user
}

// Update validates and applies a profile update.
func (r *UserRepository) Update(ctx context.Context, id string, update models.ProfileUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}

	var probe models.User
	update.Apply(&probe)

	var updates []docstore.FieldUpdate
	if update.Username != nil {
		updates = append(updates, docstore.Set("username", probe.Username))
	}
	if update.FullName != nil {
		updates = append(updates, docstore.Set("fullName", probe.FullName))
	}
	if update.Bio != nil {
		updates = append(updates, docstore.Set("bio", probe.Bio))
	}
	if update.Avatar != nil {
		updates = append(updates, docstore.Set("avatar", probe.Avatar))
	}
	updates = append(updates, docstore.Set("updatedAt", docstore.ServerTimestamp))

	err := r.store.Update(ctx, models.UsersCollection, id, updates...)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// IncrementPosts adjusts the user's post counter. A missing profile is ignored.
func (r *UserRepository) IncrementPosts(ctx context.Context, id string, delta int) error {
	if err := incrementCounter(ctx, r.store, models.UsersCollection, id, "postsCount", delta); err != nil {
		return fmt.Errorf("failed to update post count: %w", err)
	}
	return nil
}

// UploadAvatar validates, squares and uploads an avatar, then stores its URL on the profile.
func (r *UserRepository) UploadAvatar(ctx context.Context, file models.ImageFile, userID string) (string, error) {
	if err := file.Validate(); err != nil {
		return "", err
	}
	if r.objects == nil {
		return "", fmt.Errorf("%w: no object storage configured", shared.ErrMissingConfig)
	}

	normalized, err := storage.NormalizeImage(file, storage.AvatarSize, true)
	if err != nil {
		return "", err
	}

	path := storage.AvatarPath(userID, r.now().UnixMilli(), normalized.Name)
	if err := r.objects.Upload(ctx, path, normalized.Data, normalized.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	url, err := r.objects.DownloadURL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve avatar url: %w", err)
	}

	if err := r.Update(ctx, userID, models.ProfileUpdate{Avatar: &url}); err != nil {
		return "", err
	}
	return url, nil
}
