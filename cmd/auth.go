package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// AuthLogin verifies the credential from --user or --id-token and prints the session's profile.
//
// A Firebase identity without a profile gets one created on first sign-in.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	user, err := r.signIn(ctx, cmd)
	if err != nil {
		return err
	}

	r.logger.Info("signed in", "user", user.ID)

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("✓ Signed in as %s (%s)\n", user.DisplayName(), user.ID)
	return nil
}
