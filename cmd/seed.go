package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// Seed creates demo users and posts with random likes and comments.
//
// With --tracks, attached tracks come from a catalog search instead of being invented.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureApp(ctx, cmd); err != nil {
		return err
	}

	nUsers, nPosts := cmd.Int("users"), cmd.Int("posts")
	if nUsers <= 0 || nPosts < 0 {
		return fmt.Errorf("%w: --users must be positive and --posts non-negative", shared.ErrInvalidArgument)
	}

	seed := cmd.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := gofakeit.New(seed)
	r.logger.Info("seeding", "users", nUsers, "posts", nPosts, "seed", seed)

	var pool []models.MusicTrack
	if q := cmd.String("tracks"); q != "" {
		if err := r.ensureCatalog(ctx); err != nil {
			return err
		}
		res, err := r.catalog.SearchTracks(ctx, models.SearchQuery{Query: q, Limit: 25})
		if err != nil {
			return fmt.Errorf("failed to search tracks: %w", err)
		}
		pool = res.Tracks
	}

	users := make([]*models.User, 0, nUsers)
	for range nUsers {
		u := models.NewUser(shared.GenerateID(), f.Email(), f.Name())
		u.Username = strings.ToLower(f.Username())
		u.Bio = f.Sentence(8)
		u.Avatar = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.UUID())
		if err := r.users.Create(ctx, u); err != nil {
			return err
		}
		users = append(users, u)
	}

	var likes, comments int
	for range nPosts {
		author := users[f.Number(0, len(users)-1)]
		data := models.CreatePostData{Content: f.Sentence(f.Number(4, 14))}
		if f.Bool() {
			data.MusicTrack = pickTrack(f, pool)
		}

		post, err := r.posts.Create(ctx, data, author.ID)
		if err != nil {
			return err
		}

		for _, u := range users {
			if f.Number(0, 2) != 0 {
				continue
			}
			if _, err := r.posts.Like(ctx, post.ID, u.ID); err != nil {
				return err
			}
			likes++
		}
		for range f.Number(0, 3) {
			commenter := users[f.Number(0, len(users)-1)]
			if _, err := r.posts.AddComment(ctx, post.ID, models.CreateCommentData{Content: f.Sentence(6)}, commenter.ID); err != nil {
				return err
			}
			comments++
		}
	}

	r.writePlain("✓ Seeded %d users, %d posts, %d likes and %d comments (seed %d)\n", nUsers, nPosts, likes, comments, seed)
	return nil
}

// pickTrack returns a track from pool, or an invented one when pool is empty.
func pickTrack(f *gofakeit.Faker, pool []models.MusicTrack) *models.MusicTrack {
	if len(pool) > 0 {
		t := pool[f.Number(0, len(pool)-1)]
		return &t
	}
	return &models.MusicTrack{
		ID:       strconv.Itoa(f.Number(100000, 9999999)),
		Title:    strings.TrimSuffix(f.Sentence(3), "."),
		Artist:   f.Name(),
		Album:    strings.TrimSuffix(f.Sentence(2), "."),
		Duration: f.Number(120, 360),
	}
}
