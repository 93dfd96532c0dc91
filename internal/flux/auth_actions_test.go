package flux

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

type fakeProvider struct {
	users    map[string]*models.User
	current  *models.User
	listener func(*models.User)
	updates  int
}

func (p *fakeProvider) CurrentUser() *models.User { return p.current.Clone() }

func (p *fakeProvider) OnAuthStateChange(fn func(*models.User)) func() {
	p.listener = fn
	fn(p.current.Clone())
	return func() { p.listener = nil }
}

func (p *fakeProvider) set(u *models.User) {
	p.current = u
	if p.listener != nil {
		p.listener(u.Clone())
	}
}

func (p *fakeProvider) SignIn(_ context.Context, credential string) (*models.User, error) {
	u, ok := p.users[credential]
	if !ok {
		return nil, shared.ErrAuthFailed
	}
	p.set(u)
	return u.Clone(), nil
}

func (p *fakeProvider) Logout(context.Context) error {
	p.set(nil)
	return nil
}

func (p *fakeProvider) UpdateProfile(_ context.Context, userID string, update models.ProfileUpdate) error {
	p.updates++
	update.Apply(p.users[userID])
	p.current = p.users[userID]
	return nil
}

func (p *fakeProvider) UploadProfileImage(_ context.Context, file models.ImageFile, userID string) (string, error) {
	url := "file:///avatars/" + userID + "/" + file.Name
	p.users[userID].Avatar = url
	p.current = p.users[userID]
	return url, nil
}

func TestAuthActions(t *testing.T) {
	ctx := context.Background()

	setup := func() (*fakeProvider, *AuthStore, *AuthActions) {
		provider := &fakeProvider{users: map[string]*models.User{"u1": models.NewUser("u1", "ana@example.com", "Ana Uno")}}
		d := NewDispatcher(nil)
		store := NewAuthStore(d)
		return provider, store, NewAuthActions(d, provider, store, nil)
	}

	t.Run("Listen Mirrors Provider", func(t *testing.T) {
		provider, store, actions := setup()
		stop := actions.Listen(ctx)

		if store.IsAuthenticated() {
			t.Error("expected signed out")
		}
		provider.set(provider.users["u1"])
		if !store.IsAuthenticated() || store.GetCurrentUser().ID != "u1" {
			t.Errorf("state = %+v", store.GetState())
		}

		stop()
		provider.set(nil)
		if !store.IsAuthenticated() {
			t.Error("store changed after stop")
		}
	})

	t.Run("Sign In And Logout", func(t *testing.T) {
		_, store, actions := setup()

		if _, err := actions.SignIn(ctx, "nobody"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if store.GetState().Error == "" {
			t.Error("expected auth error in store")
		}

		if _, err := actions.SignIn(ctx, "u1"); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		if !store.IsAuthenticated() || store.GetState().Error != "" {
			t.Errorf("state = %+v", store.GetState())
		}

		if err := actions.Logout(ctx); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		if store.IsAuthenticated() {
			t.Error("expected signed out")
		}
	})

	t.Run("Update Profile Validates First", func(t *testing.T) {
		provider, store, actions := setup()
		bio := "hola"

		if err := actions.UpdateProfile(ctx, models.ProfileUpdate{Bio: &bio}); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}

		if _, err := actions.SignIn(ctx, "u1"); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}

		short := "a"
		if err := actions.UpdateProfile(ctx, models.ProfileUpdate{Username: &short}); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if provider.updates != 0 {
			t.Errorf("provider called %d times for an invalid update", provider.updates)
		}

		if err := actions.UpdateProfile(ctx, models.ProfileUpdate{Bio: &bio}); err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if store.GetCurrentUser().Bio != "hola" {
			t.Errorf("store user = %+v", store.GetCurrentUser())
		}
	})

	t.Run("Upload Profile Image", func(t *testing.T) {
		_, store, actions := setup()
		if _, err := actions.SignIn(ctx, "u1"); err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}

		big := models.ImageFile{Name: "big.png", ContentType: "image/png", Data: make([]byte, models.MaxImageSize+1)}
		if _, err := actions.UploadProfileImage(ctx, big); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}

		url, err := actions.UploadProfileImage(ctx, models.ImageFile{Name: "me.png", ContentType: "image/png", Data: []byte("x")})
		if err != nil {
			t.Fatalf("UploadProfileImage failed: %v", err)
		}
		if store.GetCurrentUser().Avatar != url {
			t.Errorf("avatar = %q, want %q", store.GetCurrentUser().Avatar, url)
		}
	})
}
