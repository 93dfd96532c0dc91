package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/formatter"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// optionalSignIn signs in only when a credential was given.
func (r *Runner) optionalSignIn(ctx context.Context, cmd *cli.Command) (*models.User, error) {
	if cmd.String("user") == "" && cmd.String("id-token") == "" {
		return nil, r.ensureApp(ctx, cmd)
	}
	return r.signIn(ctx, cmd)
}

// loadFeed fills the post store with the author's posts, or the latest limit posts.
func (r *Runner) loadFeed(ctx context.Context, author string, limit int) ([]models.Post, error) {
	if author != "" {
		r.postActions.LoadUserPosts(ctx, author)
	} else {
		if limit <= 0 {
			limit = r.config.Feed.PageSize
		}
		r.postActions.LoadPosts(ctx, limit)
	}
	if err := r.storeError("failed to load posts"); err != nil {
		return nil, err
	}
	return r.postStore.GetAllPosts(), nil
}

func postArg(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: post id", shared.ErrMissingArgument)
	}
	return id, nil
}

// PostList prints the latest posts, or one author's posts.
func (r *Runner) PostList(ctx context.Context, cmd *cli.Command) error {
	me, err := r.optionalSignIn(ctx, cmd)
	if err != nil {
		return err
	}

	author := cmd.String("author")
	if cmd.Bool("mine") {
		if me == nil {
			return fmt.Errorf("%w: --mine needs --user", shared.ErrNotAuthenticated)
		}
		author = me.ID
	}

	posts, err := r.loadFeed(ctx, author, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(posts, cmd.Bool("pretty"))
	}

	if len(posts) == 0 {
		r.writePlain("No posts yet.\n")
		return nil
	}
	for i, p := range posts {
		if i > 0 {
			r.writePlain("\n")
		}
		r.writePost(p, 0)
	}
	return nil
}

// PostShow prints one post with all of its comments.
func (r *Runner) PostShow(ctx context.Context, cmd *cli.Command) error {
	id, err := postArg(cmd)
	if err != nil {
		return err
	}
	me, err := r.optionalSignIn(ctx, cmd)
	if err != nil {
		return err
	}

	post, err := r.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("%w: %s", shared.ErrPostNotFound, id)
	}
	if me != nil {
		post.IsLiked = post.HasLiked(me.ID)
	}
	r.postActions.SelectPost(ctx, post)

	if cmd.Bool("json") {
		return r.writeJSON(post, cmd.Bool("pretty"))
	}
	r.writePost(*post, len(post.Comments))
	return nil
}

// PostCreate publishes a post with an optional catalog track and image.
func (r *Runner) PostCreate(ctx context.Context, cmd *cli.Command) error {
	me, err := r.signIn(ctx, cmd)
	if err != nil {
		return err
	}

	data := models.CreatePostData{Content: cmd.String("content")}

	if trackID := cmd.String("track"); trackID != "" {
		if err := r.ensureCatalog(ctx); err != nil {
			return err
		}
		track, err := r.catalog.GetTrack(ctx, trackID)
		if err != nil {
			return fmt.Errorf("failed to fetch track: %w", err)
		}
		if track == nil {
			return fmt.Errorf("%w: track %s", shared.ErrNotFound, trackID)
		}
		data.MusicTrack = track
	}

	if path := cmd.String("image"); path != "" {
		file, err := readImage(path)
		if err != nil {
			return err
		}
		url, err := r.postActions.UploadPostImage(ctx, file, me.ID)
		if err != nil {
			return err
		}
		data.ImageURL = url
	}

	post := r.postActions.CreatePost(ctx, data, me.ID)
	if post == nil {
		if err := r.storeError("failed to create post"); err != nil {
			return err
		}
		return fmt.Errorf("failed to create post")
	}

	r.logger.Info("created post", "id", post.ID, "user", me.ID)
	r.writePlain("✓ Posted %s\n", post.ID)
	return nil
}

// PostLike likes a post as the signed-in user.
func (r *Runner) PostLike(ctx context.Context, cmd *cli.Command) error {
	return r.toggleLike(ctx, cmd, true)
}

// PostUnlike removes the signed-in user's like.
func (r *Runner) PostUnlike(ctx context.Context, cmd *cli.Command) error {
	return r.toggleLike(ctx, cmd, false)
}

func (r *Runner) toggleLike(ctx context.Context, cmd *cli.Command, like bool) error {
	id, err := postArg(cmd)
	if err != nil {
		return err
	}
	me, err := r.signIn(ctx, cmd)
	if err != nil {
		return err
	}

	if like {
		err = r.postActions.LikePost(ctx, id, me.ID)
	} else {
		err = r.postActions.UnlikePost(ctx, id, me.ID)
	}
	if err != nil {
		return err
	}

	post := r.postStore.GetPost(id)
	if post == nil {
		if post, err = r.posts.Get(ctx, id); err != nil || post == nil {
			return err
		}
	}

	verb := "Liked"
	if !like {
		verb = "Unliked"
	}
	r.writePlain("✓ %s %s (♥ %d)\n", verb, id, post.LikesCount)
	return nil
}

// PostComment adds a comment as the signed-in user.
func (r *Runner) PostComment(ctx context.Context, cmd *cli.Command) error {
	id, err := postArg(cmd)
	if err != nil {
		return err
	}
	me, err := r.signIn(ctx, cmd)
	if err != nil {
		return err
	}

	comment, err := r.postActions.AddComment(ctx, id, models.CreateCommentData{Content: cmd.String("text")}, me.ID)
	if err != nil {
		return err
	}

	r.writePlain("✓ Commented on %s (%s)\n", id, comment.ID)
	return nil
}

// PostDelete deletes one of the signed-in user's posts.
func (r *Runner) PostDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := postArg(cmd)
	if err != nil {
		return err
	}
	me, err := r.signIn(ctx, cmd)
	if err != nil {
		return err
	}

	if err := r.postActions.DeletePost(ctx, id, me.ID); err != nil {
		return err
	}

	r.writePlain("✓ Deleted %s\n", id)
	return nil
}

// PostExport writes the feed, or one author's posts, to CSV, Markdown or plain text.
func (r *Runner) PostExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureApp(ctx, cmd); err != nil {
		return err
	}

	author := cmd.String("author")
	posts, err := r.loadFeed(ctx, author, cmd.Int("limit"))
	if err != nil {
		return err
	}

	id, title := "feed", "Latest posts"
	if author != "" {
		id = author
		title = fmt.Sprintf("Posts by %s", author)
		if len(posts) > 0 && posts[0].User != nil {
			title = fmt.Sprintf("Posts by %s", posts[0].User.DisplayName())
		}
	}
	export := formatter.NewFeedExport(id, title, posts, time.Now())
	output := cmd.String("output")

	r.logger.Info("exporting posts", "count", len(posts), "format", cmd.String("format"))

	switch strings.ToLower(cmd.String("format")) {
	case "csv":
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d posts\n", len(posts))
		r.writePlain("  %s\n  %s\n", result.PostsFile, result.MetadataFile)
	case "markdown", "md":
		opts := formatter.MarkdownOptions{Dir: output}
		if cmd.Bool("covers") {
			opts.Client = r.httpClient
		}
		result, err := formatter.WriteMarkdownExport(ctx, export, opts)
		if err != nil {
			return err
		}
		for _, w := range result.Warnings {
			r.logger.Warn("export warning", "detail", w)
		}
		r.writePlain("✓ Exported %d posts to %s\n", len(posts), result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
	case "text", "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d posts to %s\n", len(posts), path)
	default:
		return fmt.Errorf("%w: unknown format %q (csv, markdown, text)", shared.ErrInvalidArgument, cmd.String("format"))
	}
	return nil
}

// writePost prints a post and up to comments of its latest comments.
func (r *Runner) writePost(p models.Post, comments int) {
	author := p.User.DisplayName()
	if p.User != nil && p.User.Username != "" {
		author += " @" + p.User.Username
	}
	r.writePlain("%s  %s · %s\n", p.ID, author, p.CreatedAt)
	if p.Content != "" {
		r.writePlain("  %s\n", p.Content)
	}
	if t := p.MusicTrack; t != nil {
		r.writePlain("  ♪ %s - %s [%s]\n", t.Artist, t.Title, shared.FormatDuration(t.Duration))
	}
	if p.ImageURL != "" {
		r.writePlain("  🖼  %s\n", p.ImageURL)
	}

	heart := "♡"
	if p.IsLiked {
		heart = "♥"
	}
	r.writePlain("  %s %d  💬 %d\n", heart, p.LikesCount, p.CommentsCount)

	if n := min(comments, len(p.Comments)); n > 0 {
		for _, c := range p.Comments[len(p.Comments)-n:] {
			r.writePlain("    %s: %s\n", c.User.DisplayName(), c.Content)
		}
	}
}
