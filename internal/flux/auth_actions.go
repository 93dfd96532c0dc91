package flux

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpost/internal/auth"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// AuthActions mirrors the identity provider into the [AuthStore].
type AuthActions struct {
	dispatcher *Dispatcher
	provider   auth.Provider
	store      *AuthStore
	logger     *log.Logger
}

// NewAuthActions creates auth actions over provider. A nil logger discards output.
func NewAuthActions(d *Dispatcher, provider auth.Provider, store *AuthStore, logger *log.Logger) *AuthActions {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &AuthActions{
		dispatcher: d,
		provider:   provider,
		store:      store,
		logger:     shared.WithLogger(logger, "component", "auth-actions"),
	}
}

func (a *AuthActions) emit(ctx context.Context, t ActionType, payload any) {
	if err := a.dispatcher.Dispatch(ctx, Action{Type: t, Payload: payload}); err != nil {
		a.logger.Warn("dispatch failed", "action", t, "error", err)
	}
}

// Listen dispatches every provider session change until stop is called.
func (a *AuthActions) Listen(ctx context.Context) (stop func()) {
	return a.provider.OnAuthStateChange(func(u *models.User) {
		a.emit(ctx, AuthStateChanged, u)
	})
}

// SignIn starts a session for credential.
func (a *AuthActions) SignIn(ctx context.Context, credential string) (*models.User, error) {
	user, err := a.provider.SignIn(ctx, credential)
	if err != nil {
		a.logger.Warn("sign in failed", "error", err)
		a.emit(ctx, AuthFailure, err.Error())
		return nil, err
	}
	a.emit(ctx, AuthStateChanged, user)
	return user, nil
}

// Logout ends the session.
func (a *AuthActions) Logout(ctx context.Context) error {
	if err := a.provider.Logout(ctx); err != nil {
		a.emit(ctx, AuthFailure, err.Error())
		return err
	}
	a.emit(ctx, LogoutSuccess, nil)
	return nil
}

// UpdateProfile validates and applies update to the signed-in user.
func (a *AuthActions) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	userID, err := a.requireUser(update.Validate())
	if err == nil {
		err = a.provider.UpdateProfile(ctx, userID, update)
	}
	if err != nil {
		a.emit(ctx, AuthFailure, err.Error())
		return err
	}
	a.emit(ctx, ProfileUpdateSuccess, a.provider.CurrentUser())
	return nil
}

// UploadProfileImage validates and uploads a new avatar for the signed-in user.
func (a *AuthActions) UploadProfileImage(ctx context.Context, file models.ImageFile) (string, error) {
	userID, err := a.requireUser(file.Validate())
	var url string
	if err == nil {
		url, err = a.provider.UploadProfileImage(ctx, file, userID)
	}
	if err != nil {
		a.emit(ctx, AuthFailure, err.Error())
		return "", err
	}
	a.emit(ctx, ProfileUpdateSuccess, a.provider.CurrentUser())
	return url, nil
}

func (a *AuthActions) requireUser(validation error) (string, error) {
	if validation != nil {
		return "", validation
	}
	id := a.store.CurrentUserID()
	if id == "" {
		if u := a.provider.CurrentUser(); u != nil {
			id = u.ID
		}
	}
	if id == "" {
		return "", shared.ErrNotAuthenticated
	}
	return id, nil
}
