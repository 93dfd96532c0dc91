package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// UserCreate creates a profile with zeroed counters.
func (r *Runner) UserCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureApp(ctx, cmd); err != nil {
		return err
	}

	id := cmd.String("id")
	if id == "" {
		id = shared.GenerateID()
	}

	user := models.NewUser(id, cmd.String("email"), cmd.String("name"))
	if username := cmd.String("username"); username != "" {
		user.Username = username
	}
	if user.FullName == "" {
		user.FullName = user.Username
	}

	if err := r.users.Create(ctx, user); err != nil {
		return err
	}

	r.logger.Info("created user", "id", user.ID, "email", user.Email)
	r.writePlain("✓ Created %s (%s)\n", user.DisplayName(), user.ID)
	return nil
}

// UserShow prints a profile looked up by id or email.
func (r *Runner) UserShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureApp(ctx, cmd); err != nil {
		return err
	}

	ref := cmd.StringArg("user")
	if ref == "" {
		ref = cmd.String("user")
	}
	if ref == "" {
		return fmt.Errorf("%w: user id or email", shared.ErrMissingArgument)
	}

	user, err := r.users.Get(ctx, ref)
	if err != nil {
		return err
	}
	if user == nil {
		if user, err = r.users.FindByEmail(ctx, ref); err != nil {
			return err
		}
	}
	if user == nil {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, ref)
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlainHeader(user.DisplayName())
	r.writePlain("ID:        %s\n", user.ID)
	r.writePlain("Username:  @%s\n", user.Username)
	if user.Email != "" {
		r.writePlain("Email:     %s\n", user.Email)
	}
	if user.Bio != "" {
		r.writePlain("Bio:       %s\n", user.Bio)
	}
	if user.Avatar != "" {
		r.writePlain("Avatar:    %s\n", user.Avatar)
	}
	r.writePlain("Posts:     %d\n", user.PostsCount)
	r.writePlain("Followers: %d  Following: %d\n", user.FollowersCount, user.FollowingCount)
	return nil
}

// UserUpdate applies the given profile fields to the signed-in user.
func (r *Runner) UserUpdate(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.signIn(ctx, cmd); err != nil {
		return err
	}

	var update models.ProfileUpdate
	if cmd.IsSet("name") {
		v := cmd.String("name")
		update.FullName = &v
	}
	if cmd.IsSet("username") {
		v := cmd.String("username")
		update.Username = &v
	}
	if cmd.IsSet("bio") {
		v := cmd.String("bio")
		update.Bio = &v
	}
	if update.Empty() {
		return fmt.Errorf("%w: pass --name, --username or --bio", shared.ErrMissingArgument)
	}

	if err := r.authActions.UpdateProfile(ctx, update); err != nil {
		return err
	}

	user := r.authStore.GetCurrentUser()
	r.writePlain("✓ Updated %s\n", user.DisplayName())
	return nil
}

// UserAvatar uploads an image file as the signed-in user's avatar.
func (r *Runner) UserAvatar(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.signIn(ctx, cmd); err != nil {
		return err
	}

	file, err := readImage(cmd.StringArg("path"))
	if err != nil {
		return err
	}

	url, err := r.authActions.UploadProfileImage(ctx, file)
	if err != nil {
		return err
	}

	r.writePlain("✓ Avatar uploaded: %s\n", url)
	return nil
}

// readImage loads path and sniffs its content type.
func readImage(path string) (models.ImageFile, error) {
	if path == "" {
		return models.ImageFile{}, fmt.Errorf("%w: image path", shared.ErrMissingArgument)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ImageFile{}, fmt.Errorf("failed to read image: %w", err)
	}
	return models.ImageFile{
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
