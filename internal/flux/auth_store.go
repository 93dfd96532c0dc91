package flux

import (
	"context"
	"sync"

	"github.com/desertthunder/soundpost/internal/models"
)

// AuthState mirrors the identity provider's session.
type AuthState struct {
	CurrentUser     *models.User
	IsAuthenticated bool
	Error           string
}

// AuthStore reduces auth actions into [AuthState].
type AuthStore struct {
	mu        sync.RWMutex
	state     AuthState
	listeners listeners
	token     DispatchToken
}

// NewAuthStore creates a signed-out store registered with d.
func NewAuthStore(d *Dispatcher) *AuthStore {
	s := &AuthStore{}
	s.token = d.Register(s.handle)
	return s
}

// Token is the store's dispatcher registration.
func (s *AuthStore) Token() DispatchToken { return s.token }

// AddChangeListener subscribes fn to auth changes. Like [PostStore.AddChangeListener], fn must not dispatch.
func (s *AuthStore) AddChangeListener(fn func()) ListenerID { return s.listeners.add(fn) }

// RemoveChangeListener unsubscribes id.
func (s *AuthStore) RemoveChangeListener(id ListenerID) { s.listeners.remove(id) }

// GetState returns a copy of the current session state.
func (s *AuthStore) GetState() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.state
	c.CurrentUser = s.state.CurrentUser.Clone()
	return c
}

// GetCurrentUser returns a copy of the signed-in user, or nil.
func (s *AuthStore) GetCurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentUser.Clone()
}

// IsAuthenticated reports whether a user is signed in.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// CurrentUserID returns the signed-in user's id, or "".
func (s *AuthStore) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentUser == nil {
		return ""
	}
	return s.state.CurrentUser.ID
}

func (s *AuthStore) handle(_ context.Context, action Action) error {
	changed, err := s.reduce(action)
	if err != nil {
		return err
	}
	if changed {
		s.listeners.emit()
	}
	return nil
}

func (s *AuthStore) reduce(action Action) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch action.Type {
	case AuthStateChanged:
		user, err := payloadAs[*models.User](action)
		if err != nil {
			return false, err
		}
		s.state.CurrentUser = user.Clone()
		s.state.IsAuthenticated = user != nil
		s.state.Error = ""
	case LogoutSuccess:
		s.state = AuthState{}
	case ProfileUpdateSuccess:
		user, err := payloadAs[*models.User](action)
		if err != nil {
			return false, err
		}
		if user != nil {
			s.state.CurrentUser = user.Clone()
			s.state.IsAuthenticated = true
		}
		s.state.Error = ""
	case AuthFailure:
		msg, err := payloadAs[string](action)
		if err != nil {
			return false, err
		}
		s.state.Error = msg
	default:
		return false, nil
	}
	return true, nil
}
