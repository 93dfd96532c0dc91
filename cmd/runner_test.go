package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/soundpost/internal/docstore"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/player"
	"github.com/desertthunder/soundpost/internal/shared"
	"github.com/desertthunder/soundpost/internal/storage"
	tu "github.com/desertthunder/soundpost/internal/testing"
)

var testTrack = models.MusicTrack{
	ID:         "3135556",
	Title:      "Harder, Better, Faster, Stronger",
	Artist:     "Daft Punk",
	Album:      "Discovery",
	Duration:   224,
	PreviewURL: "https://cdns-preview.example/3135556.mp3",
	DeezerURL:  "https://www.deezer.com/track/3135556",
}

type testEnv struct {
	runner  *Runner
	output  *bytes.Buffer
	catalog *tu.MockCatalog
	dir     string
}

// newTestRunner wires a runner over an in-memory database, a temp object store and a mock catalog.
func newTestRunner(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	objects, err := storage.NewLocalStore(filepath.Join(dir, "uploads"), "")
	if err != nil {
		t.Fatalf("failed to create object store: %v", err)
	}

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "soundpost.db")
	config.Log.File = filepath.Join(dir, "tui.log")

	output := &bytes.Buffer{}
	catalog := &tu.MockCatalog{
		Tracks:  map[string]models.MusicTrack{testTrack.ID: testTrack},
		Results: []models.MusicTrack{testTrack},
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Logger:  shared.NewLogger(io.Discard),
		Output:  output,
		Docs:    docstore.NewSQLiteStore(db),
		Objects: objects,
		Catalog: catalog,
		Media:   player.NopMedia{},
	})
	return &testEnv{runner: runner, output: output, catalog: catalog, dir: dir}
}

// run executes the CLI with args and returns what it printed.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	e.output.Reset()
	err := e.runner.Command().Run(context.Background(), append([]string{"soundpost"}, args...))
	return e.output.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: unexpected error: %v", args, err)
	}
	return out
}

func (e *testEnv) createUsers(t *testing.T) {
	t.Helper()
	e.mustRun(t, "user", "create", "--id", "u1", "--email", "ana@example.com", "--name", "Ana Uno")
	e.mustRun(t, "user", "create", "--id", "u2", "--email", "beto@example.com", "--name", "Beto Dos")
}

func (e *testEnv) latestPostID(t *testing.T) string {
	t.Helper()
	posts := e.runner.postStore.GetAllPosts()
	if len(posts) == 0 {
		t.Fatal("expected posts in the store")
	}
	return posts[0].ID
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := &tu.MockCatalog{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    catalog,
			})

			if runner.config != config || !runner.fixedConfig {
				t.Error("expected config to be set and fixed")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil || runner.fixedConfig {
				t.Error("expected default, reloadable config")
			}
			if runner.config.Feed.PageSize != 10 {
				t.Errorf("expected default page size 10, got %d", runner.config.Feed.PageSize)
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})
	})

	t.Run("Close", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
		var order []int
		boom := errors.New("boom")
		runner.closers = []func() error{
			func() error { order = append(order, 1); return nil },
			func() error { order = append(order, 2); return boom },
		}

		if err := runner.Close(); !errors.Is(err, boom) {
			t.Errorf("expected joined close error, got %v", err)
		}
		if len(order) != 2 || order[0] != 2 || order[1] != 1 {
			t.Errorf("expected reverse order, got %v", order)
		}
		if runner.closers != nil {
			t.Error("expected closers to be cleared")
		}
	})
}

func TestUserCommands(t *testing.T) {
	t.Run("create and show", func(t *testing.T) {
		env := newTestRunner(t)
		out := env.mustRun(t, "user", "create", "--id", "u1", "--email", "ana@example.com", "--name", "Ana Uno")
		if !strings.Contains(out, "Created Ana Uno (u1)") {
			t.Errorf("unexpected output: %q", out)
		}

		for _, ref := range []string{"u1", "ana@example.com"} {
			out = env.mustRun(t, "user", "show", ref)
			if !strings.Contains(out, "@ana") || !strings.Contains(out, "Posts:     0") {
				t.Errorf("show %s: unexpected output: %q", ref, out)
			}
		}

		out = env.mustRun(t, "--user", "u1", "user", "show", "--json")
		if !strings.Contains(out, `"fullName": "Ana Uno"`) {
			t.Errorf("expected JSON profile, got %q", out)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)

		_, err := env.run(t, "user", "create", "--email", "ana@example.com")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestRunner(t)
		_, err := env.run(t, "user", "show", "nadie")
		if !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)

		out := env.mustRun(t, "--user", "ana@example.com", "user", "update", "--bio", "escucho de todo")
		if !strings.Contains(out, "Updated Ana Uno") {
			t.Errorf("unexpected output: %q", out)
		}
		if bio := env.runner.authStore.GetCurrentUser().Bio; bio != "escucho de todo" {
			t.Errorf("expected bio in auth store, got %q", bio)
		}

		if _, err := env.run(t, "--user", "u1", "user", "update"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("avatar rejects non-images", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)

		path := filepath.Join(env.dir, "notes.txt")
		if err := os.WriteFile(path, []byte("hola"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := env.run(t, "--user", "u1", "user", "avatar", path); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("auth login", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)

		out := env.mustRun(t, "--user", "u2", "auth", "login")
		if !strings.Contains(out, "Signed in as Beto Dos (u2)") {
			t.Errorf("unexpected output: %q", out)
		}
		if _, err := env.run(t, "--user", "nadie", "auth", "login"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestPostCommands(t *testing.T) {
	t.Run("create requires a user", func(t *testing.T) {
		env := newTestRunner(t)
		_, err := env.run(t, "post", "create", "--content", "hola")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("full flow", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)

		out := env.mustRun(t, "--user", "u1", "post", "create", "--content", "escuchen esto", "--track", testTrack.ID)
		if !strings.Contains(out, "Posted") {
			t.Fatalf("unexpected output: %q", out)
		}
		id := env.latestPostID(t)

		out = env.mustRun(t, "--user", "u2", "post", "like", id)
		if !strings.Contains(out, "(♥ 1)") {
			t.Errorf("unexpected like output: %q", out)
		}
		env.mustRun(t, "--user", "u2", "post", "like", id)
		if p := env.runner.postStore.GetPost(id); p == nil || p.LikesCount != 1 {
			t.Errorf("expected repeated like to be idempotent, got %+v", p)
		}

		out = env.mustRun(t, "--user", "u2", "post", "comment", "--text", "temazo", id)
		if !strings.Contains(out, "Commented on "+id) {
			t.Errorf("unexpected comment output: %q", out)
		}

		out = env.mustRun(t, "--user", "u2", "post", "list")
		for _, want := range []string{"escuchen esto", "Daft Punk", "♥ 1", "💬 1", "Ana Uno @ana"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in list output: %q", want, out)
			}
		}

		out = env.mustRun(t, "post", "show", id)
		if !strings.Contains(out, "Beto Dos: temazo") {
			t.Errorf("expected comment in show output: %q", out)
		}
		if sel := env.runner.postStore.GetSelectedPost(); sel == nil || sel.ID != id {
			t.Errorf("expected show to select the post, got %+v", sel)
		}

		out = env.mustRun(t, "--user", "u2", "post", "unlike", id)
		if !strings.Contains(out, "(♥ 0)") {
			t.Errorf("unexpected unlike output: %q", out)
		}

		if _, err := env.run(t, "--user", "u2", "post", "delete", id); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
		env.mustRun(t, "--user", "u1", "post", "delete", id)

		out = env.mustRun(t, "post", "list")
		if !strings.Contains(out, "No posts yet.") {
			t.Errorf("expected empty feed, got %q", out)
		}
	})

	t.Run("list mine", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)
		env.mustRun(t, "--user", "u1", "post", "create", "--content", "de ana")
		env.mustRun(t, "--user", "u2", "post", "create", "--content", "de beto")

		out := env.mustRun(t, "--user", "u2", "post", "list", "--mine")
		if !strings.Contains(out, "de beto") || strings.Contains(out, "de ana") {
			t.Errorf("unexpected output: %q", out)
		}

		if _, err := env.run(t, "post", "list", "--mine"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)

		_, err := env.run(t, "--user", "u1", "post", "create", "--content", strings.Repeat("a", models.MaxPostLength+1))
		if err == nil || !strings.Contains(err.Error(), "limit is 500") {
			t.Errorf("expected length error, got %v", err)
		}

		if _, err := env.run(t, "--user", "u1", "post", "create", "--content", "x", "--track", "404"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing track, got %v", err)
		}

		if _, err := env.run(t, "post", "show", "missing"); !errors.Is(err, shared.ErrPostNotFound) {
			t.Errorf("expected ErrPostNotFound, got %v", err)
		}

		if _, err := env.run(t, "--user", "u1", "post", "like"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		env := newTestRunner(t)
		env.createUsers(t)
		env.mustRun(t, "--user", "u1", "post", "create", "--content", "para exportar", "--track", testTrack.ID)

		base := filepath.Join(env.dir, "feed")
		env.mustRun(t, "post", "export", "--format", "csv", "--output", base)
		tu.AssertFileExists(t, base+"_posts.csv")
		tu.AssertFileExists(t, base+"_metadata.json")
		if csv := tu.MustReadFile(t, base+"_posts.csv"); !strings.Contains(csv, "para exportar") {
			t.Errorf("expected post in CSV: %q", csv)
		}

		txt := filepath.Join(env.dir, "feed.txt")
		env.mustRun(t, "post", "export", "--format", "text", "--output", txt)
		tu.AssertFileExists(t, txt)

		md := filepath.Join(env.dir, "md")
		env.mustRun(t, "post", "export", "--format", "markdown", "--output", md)
		tu.AssertFileExists(t, filepath.Join(md, "README.md"))

		if _, err := env.run(t, "post", "export", "--format", "pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		env := newTestRunner(t)
		out := env.mustRun(t, "catalog", "search", "daft punk")
		if !strings.Contains(out, "Found 1 tracks") || !strings.Contains(out, "Daft Punk - Harder, Better, Faster, Stronger") {
			t.Errorf("unexpected output: %q", out)
		}

		env.mustRun(t, "catalog", "search", "--by", "artist", "daft punk")
		if env.catalog.Searches != 2 {
			t.Errorf("expected 2 searches, got %d", env.catalog.Searches)
		}

		if _, err := env.run(t, "catalog", "search", "--by", "genre", "x"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := env.run(t, "catalog", "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("track", func(t *testing.T) {
		env := newTestRunner(t)
		out := env.mustRun(t, "catalog", "track", testTrack.ID)
		if !strings.Contains(out, "Duration: 3:44") || !strings.Contains(out, testTrack.DeezerURL) {
			t.Errorf("unexpected output: %q", out)
		}
		if _, err := env.run(t, "catalog", "track", "404"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("health", func(t *testing.T) {
		env := newTestRunner(t)
		out := env.mustRun(t, "catalog", "health", "--track", testTrack.ID)
		if !strings.Contains(out, "Catalog reachable") || !strings.Contains(out, "Preview playable") {
			t.Errorf("unexpected output: %q", out)
		}

		env.catalog.Err = errors.New("down")
		if _, err := env.run(t, "catalog", "health"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("cache purge needs redis", func(t *testing.T) {
		env := newTestRunner(t)
		if _, err := env.run(t, "cache", "purge"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("catalog from config", func(t *testing.T) {
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			paths = append(paths, req.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"id":1,"title":"One More Time","duration":320,"preview":"https://p/1.mp3","artist":{"name":"Daft Punk"},"album":{"title":"Discovery"}}],"total":1}`))
		}))
		defer srv.Close()

		config := shared.DefaultConfig()
		config.Catalog.BaseURL = srv.URL
		config.Catalog.RequestsPerSecond = 0
		config.Catalog.Relays = []shared.RelayConfig{{Name: "direct"}}
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard), Output: output})

		if err := runner.Command().Run(context.Background(), []string{"soundpost", "catalog", "search", "one more"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Daft Punk - One More Time") {
			t.Errorf("unexpected output: %q", output.String())
		}
		if len(paths) != 1 || paths[0] != "/search" {
			t.Errorf("expected one /search request, got %v", paths)
		}
	})
}

func TestSetupAndSeed(t *testing.T) {
	t.Run("setup database", func(t *testing.T) {
		env := newTestRunner(t)
		out := env.mustRun(t, "setup", "database")
		if !strings.Contains(out, "Database ready") {
			t.Errorf("unexpected output: %q", out)
		}
		tu.AssertFileExists(t, env.runner.config.Database.Path)
	})

	t.Run("seed", func(t *testing.T) {
		env := newTestRunner(t)
		out := env.mustRun(t, "seed", "--users", "3", "--posts", "4", "--seed", "42")
		if !strings.Contains(out, "Seeded 3 users, 4 posts") {
			t.Errorf("unexpected output: %q", out)
		}

		users, err := env.runner.users.List(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(users) != 3 {
			t.Errorf("expected 3 users, got %d", len(users))
		}

		out = env.mustRun(t, "post", "list", "--limit", "10")
		if n := strings.Count(out, "💬"); n != 4 {
			t.Errorf("expected 4 posts listed, got %d", n)
		}

		if _, err := env.run(t, "seed", "--users", "0"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("seed with catalog tracks", func(t *testing.T) {
		env := newTestRunner(t)
		env.mustRun(t, "seed", "--users", "2", "--posts", "6", "--seed", "7", "--tracks", "daft")
		if env.catalog.Searches != 1 {
			t.Errorf("expected one catalog search, got %d", env.catalog.Searches)
		}
	})

	t.Run("events watch needs a broker", func(t *testing.T) {
		env := newTestRunner(t)
		if _, err := env.run(t, "events", "watch"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestExportAll(t *testing.T) {
	env := newTestRunner(t)
	env.createUsers(t)
	env.mustRun(t, "--user", "u1", "post", "create", "--content", "de ana", "--track", testTrack.ID)
	env.mustRun(t, "--user", "u2", "post", "create", "--content", "de beto")

	dir := filepath.Join(env.dir, "bulk")
	out := env.mustRun(t, "post", "export-all", "--format", "text", "--output", dir, "--rate", "100")
	if !strings.Contains(out, "Exported 2 of 2 authors") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Count(out, "✓ Exported ") != 3 {
		t.Errorf("expected a progress line per author: %q", out)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "u1_posts.txt"))
	tu.AssertFileExists(t, filepath.Join(dir, "u2_posts.txt"))
	tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))

	if txt := tu.MustReadFile(t, filepath.Join(dir, "u1_posts.txt")); !strings.Contains(txt, "de ana") || strings.Contains(txt, "de beto") {
		t.Errorf("expected only Ana's posts: %q", txt)
	}

	if _, err := env.run(t, "post", "export-all", "--format", "pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
