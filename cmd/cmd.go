// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// Command builds the root command with global flags and every subcommand.
func (r *Runner) Command() *cli.Command {
	return &cli.Command{
		Name:    "soundpost",
		Usage:   "Share the music you're listening to",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Act as this user (id or email)",
				Sources: cli.EnvVars("SOUNDPOST_USER"),
			},
			&cli.StringFlag{
				Name:    "id-token",
				Usage:   "Sign in with a Firebase ID token instead of --user",
				Sources: cli.EnvVars("SOUNDPOST_ID_TOKEN"),
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, userCommand, postCommand, catalogCommand, cacheCommand, seedCommand, eventsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func outputFlags(pretty bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: pretty,
		},
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Verify --user or --id-token, creating the profile on first sign-in",
				Flags:  outputFlags(true),
				Action: r.AuthLogin,
			},
		},
	}
}

// userCommand handles profile operations
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage user profiles",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Full name"},
					&cli.StringFlag{Name: "username", Usage: "Username (defaults to the email's local part)"},
					&cli.StringFlag{Name: "id", Usage: "Profile id (generated when empty)"},
				},
				Action: r.UserCreate,
			},
			{
				Name:      "show",
				Usage:     "Show a profile by id or email (defaults to --user)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "user"}},
				Flags:     outputFlags(true),
				Action:    r.UserShow,
			},
			{
				Name:  "update",
				Usage: "Update the signed-in user's profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Full name"},
					&cli.StringFlag{Name: "username", Usage: "Username"},
					&cli.StringFlag{Name: "bio", Usage: "Short bio"},
				},
				Action: r.UserUpdate,
			},
			{
				Name:      "avatar",
				Usage:     "Upload a new profile image for the signed-in user",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Action:    r.UserAvatar,
			},
		},
	}
}

// postCommand handles feed operations
func postCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "post",
		Aliases: []string{"posts", "p"},
		Usage:   "Read and write posts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the latest posts",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of posts (defaults to feed.page_size)"},
					&cli.StringFlag{Name: "author", Usage: "Only posts by this user id"},
					&cli.BoolFlag{Name: "mine", Usage: "Only posts by the signed-in user"},
				}, outputFlags(false)...),
				Action: r.PostList,
			},
			{
				Name:      "show",
				Usage:     "Show a post with its comments",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(true),
				Action:    r.PostShow,
			},
			{
				Name:  "create",
				Usage: "Publish a post",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content", Aliases: []string{"m"}, Usage: "Post text"},
					&cli.StringFlag{Name: "track", Usage: "Catalog track id to attach"},
					&cli.StringFlag{Name: "image", Usage: "Path to an image to attach"},
				},
				Action: r.PostCreate,
			},
			{
				Name:      "like",
				Usage:     "Like a post",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PostLike,
			},
			{
				Name:      "unlike",
				Usage:     "Remove your like from a post",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PostUnlike,
			},
			{
				Name:      "comment",
				Usage:     "Comment on a post",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Aliases: []string{"m"}, Usage: "Comment text", Required: true},
				},
				Action: r.PostComment,
			},
			{
				Name:      "delete",
				Usage:     "Delete one of your posts",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PostDelete,
			},
			{
				Name:  "export",
				Usage: "Export the feed to CSV, Markdown or plain text",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv, markdown or text", Value: "csv"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output base name, directory or file depending on format"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of posts"},
					&cli.StringFlag{Name: "author", Usage: "Only posts by this user id"},
					&cli.BoolFlag{Name: "covers", Usage: "Download cover art (markdown only)"},
				},
				Action: r.PostExport,
			},
			{
				Name:  "export-all",
				Usage: "Export every author's posts into one directory with a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or txt", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (default: feed_export_{epoch})"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent export workers (1-10)", Value: 5},
					&cli.Float64Flag{Name: "rate", Usage: "Post lookups per second", Value: 5},
					&cli.IntFlag{Name: "authors", Usage: "Maximum number of authors (0 for all)"},
					&cli.BoolFlag{Name: "covers", Usage: "Download cover art (markdown only)"},
				},
				Action: r.PostExportAll,
			},
		},
	}
}

// catalogCommand handles music catalog lookups
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"music"},
		Usage:   "Search the music catalog",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Results per page", Value: 10},
					&cli.IntFlag{Name: "index", Usage: "Offset of the first result"},
					&cli.StringFlag{Name: "by", Usage: "Search field: track, artist or album", Value: "track"},
				}, outputFlags(false)...),
				Action: r.CatalogSearch,
			},
			{
				Name:      "track",
				Usage:     "Show one track",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(true),
				Action:    r.CatalogTrack,
			},
			{
				Name:      "similar",
				Usage:     "List other tracks by the same artist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(false),
				Action:    r.CatalogSimilar,
			},
			{
				Name:  "health",
				Usage: "Check that the catalog is reachable through the relays",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "track", Usage: "Also check this track's preview URL"},
				},
				Action: r.CatalogHealth,
			},
			{
				Name:      "open",
				Usage:     "Open a track's catalog page in the browser",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.CatalogOpen,
			},
		},
	}
}

// cacheCommand handles the redis catalog cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the catalog cache",
		Commands: []*cli.Command{
			{
				Name:   "purge",
				Usage:  "Delete every cached search and track",
				Action: r.CachePurge,
			},
		},
	}
}

// seedCommand fills the document store with demo data
func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create demo users, posts, likes and comments",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "users", Usage: "Number of users", Value: 5},
			&cli.IntFlag{Name: "posts", Usage: "Number of posts", Value: 20},
			&cli.Int64Flag{Name: "seed", Usage: "Random seed (0 picks one)"},
			&cli.StringFlag{Name: "tracks", Usage: "Attach tracks found by this catalog search"},
		},
		Action: r.Seed,
	}
}

// eventsCommand follows the action mirror on NATS
func eventsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Follow dispatched actions mirrored to NATS",
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Print actions as they are published",
				Flags:  outputFlags(false),
				Action: r.EventsWatch,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive feed.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive feed",
		Action:  r.TUI,
	}
}
