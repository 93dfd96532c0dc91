package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/repositories"
	"github.com/desertthunder/soundpost/internal/shared"
)

// Provider is the identity backend consumed by the auth actions.
type Provider interface {
	CurrentUser() *models.User
	// OnAuthStateChange calls fn with the current user now and after every session change.
	OnAuthStateChange(fn func(*models.User)) (unsubscribe func())
	SignIn(ctx context.Context, credential string) (*models.User, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) error
	UploadProfileImage(ctx context.Context, file models.ImageFile, userID string) (string, error)
}

// Identity is a verified principal.
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// Verifier turns a credential into an [Identity].
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// Session is an in-memory [Provider] backed by the users collection.
//
// Signing in with an identity that has no profile yet creates one.
type Session struct {
	users    *repositories.UserRepository
	verifier Verifier
	logger   *log.Logger

	mu        sync.RWMutex
	current   *models.User
	listeners map[int]func(*models.User)
	nextID    int
}

// NewSession creates a signed-out session.
func NewSession(users *repositories.UserRepository, verifier Verifier, logger *log.Logger) *Session {
	if verifier == nil {
		verifier = NewDirectoryVerifier(users)
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Session{users: users, verifier: verifier, logger: logger, listeners: make(map[int]func(*models.User))}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Session) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// OnAuthStateChange registers fn and calls it immediately with the current user.
func (s *Session) OnAuthStateChange(fn func(*models.User)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.current.Clone()
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SignIn verifies credential, loads or creates the profile and starts the session.
func (s *Session) SignIn(ctx context.Context, credential string) (*models.User, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: empty credential", shared.ErrAuthFailed)
	}

	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	user, err := s.users.Get(ctx, identity.UID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = models.NewUser(identity.UID, identity.Email, identity.Name)
		if user.FullName == "" {
			user.FullName = user.Username
		}
		user.Avatar = identity.Picture
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		s.logger.Info("created profile", "user", user.ID)
	}

	s.setCurrent(user)
	return user.Clone(), nil
}

// Logout ends the session.
func (s *Session) Logout(_ context.Context) error {
	s.setCurrent(nil)
	return nil
}

// UpdateProfile updates userID's profile and refreshes the session when it is the signed-in user.
func (s *Session) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) error {
	if err := s.authorize(userID); err != nil {
		return err
	}
	if err := s.users.Update(ctx, userID, update); err != nil {
		return err
	}
	return s.refresh(ctx, userID)
}

// UploadProfileImage stores a new avatar for userID and returns its URL.
func (s *Session) UploadProfileImage(ctx context.Context, file models.ImageFile, userID string) (string, error) {
	if err := s.authorize(userID); err != nil {
		return "", err
	}
	url, err := s.users.UploadAvatar(ctx, file, userID)
	if err != nil {
		return "", err
	}
	return url, s.refresh(ctx, userID)
}

func (s *Session) authorize(userID string) error {
	current := s.CurrentUser()
	if current == nil {
		return shared.ErrNotAuthenticated
	}
	if current.ID != userID {
		return fmt.Errorf("%w: cannot modify another user's profile", shared.ErrUnauthorized)
	}
	return nil
}

func (s *Session) refresh(ctx context.Context, userID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	s.setCurrent(user)
	return nil
}

// setCurrent swaps the session user and notifies listeners in registration order, outside the lock.
func (s *Session) setCurrent(user *models.User) {
	s.mu.Lock()
	s.current = user.Clone()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(*models.User), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(user.Clone())
	}
}

// DirectoryVerifier accepts a user id or email that already has a profile.
type DirectoryVerifier struct {
	users *repositories.UserRepository
}

// NewDirectoryVerifier creates a verifier over the users collection.
func NewDirectoryVerifier(users *repositories.UserRepository) *DirectoryVerifier {
	return &DirectoryVerifier{users: users}
}

// Verify looks the credential up as an id, then as an email.
func (v *DirectoryVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	user, err := v.users.Get(ctx, credential)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if user, err = v.users.FindByEmail(ctx, credential); err != nil {
			return nil, err
		}
	}
	if user == nil {
		return nil, fmt.Errorf("%w: no user %q", shared.ErrAuthFailed, credential)
	}
	return &Identity{UID: user.ID, Email: user.Email, Name: user.FullName, Picture: user.Avatar}, nil
}
