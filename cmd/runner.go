package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/auth"
	"github.com/desertthunder/soundpost/internal/docstore"
	"github.com/desertthunder/soundpost/internal/events"
	"github.com/desertthunder/soundpost/internal/flux"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/player"
	"github.com/desertthunder/soundpost/internal/repositories"
	"github.com/desertthunder/soundpost/internal/services"
	"github.com/desertthunder/soundpost/internal/shared"
	"github.com/desertthunder/soundpost/internal/storage"
)

// Runner holds the application context shared by every command: backends, the dispatcher,
// stores, actions and the audio player. Pieces are built on first use.
type Runner struct {
	config      *shared.Config
	fixedConfig bool
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer

	docs     docstore.Store
	objects  storage.ObjectStore
	users    *repositories.UserRepository
	posts    *repositories.PostRepository
	provider auth.Provider
	catalog  services.Catalog
	cache    *services.CachedCatalog
	media    player.Media
	player   *player.Player

	dispatcher  *flux.Dispatcher
	postStore   *flux.PostStore
	authStore   *flux.AuthStore
	postActions *flux.PostActions
	authActions *flux.AuthActions

	closers []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Backends left nil are built from the config when a command first needs them.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Docs       docstore.Store
	Objects    storage.ObjectStore
	Catalog    services.Catalog
	Provider   auth.Provider
	Media      player.Media
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	r := &Runner{
		config:      opts.Config,
		fixedConfig: opts.Config != nil,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		docs:        opts.Docs,
		objects:     opts.Objects,
		catalog:     opts.Catalog,
		provider:    opts.Provider,
		media:       opts.Media,
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	if r.logger == nil {
		r.logger = shared.NewLogger(nil)
	}
	if r.output == nil {
		r.output = os.Stdout
	}
	if r.httpClient == nil {
		r.httpClient = http.DefaultClient
	}
	return r
}

// SetLogger replaces the logger used by components built after the call.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Before loads .env and the config file named by --config, then applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnv(); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	if !r.fixedConfig {
		path := cmd.String("config")
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else if cmd.IsSet("config") {
			return ctx, fmt.Errorf("%w: config file %s not found", shared.ErrMissingConfig, path)
		}
		r.config.ApplyEnv()
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	return ctx, nil
}

// After releases every backend opened during the command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close runs the registered closers in reverse order.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// ensureApp builds the persistence clients, the auth provider and the flux graph.
func (r *Runner) ensureApp(ctx context.Context, cmd *cli.Command) error {
	if r.postActions != nil {
		return nil
	}

	googleOpts := auth.GoogleClientOptions(r.config.Firebase)

	if r.docs == nil {
		docs, err := r.openDocStore(ctx)
		if err != nil {
			return err
		}
		r.docs = docs
	}

	if r.objects == nil {
		objects, err := storage.FromConfig(ctx, r.config, googleOpts...)
		if err != nil {
			return fmt.Errorf("failed to open object storage: %w", err)
		}
		if c, ok := objects.(io.Closer); ok {
			r.closers = append(r.closers, c.Close)
		}
		r.objects = objects
	}

	r.users = repositories.NewUserRepository(r.docs, r.objects)
	r.posts = repositories.NewPostRepository(r.docs, r.users, r.objects)

	if r.provider == nil {
		var verifier auth.Verifier
		if cmd.String("id-token") != "" {
			v, err := auth.NewFirebaseVerifier(ctx, r.config.Firebase.ProjectID, googleOpts...)
			if err != nil {
				return err
			}
			verifier = v
		}
		r.provider = auth.NewSession(r.users, verifier, r.logger)
	}

	r.dispatcher = flux.NewDispatcher(r.logger)
	r.postStore = flux.NewPostStore(r.dispatcher)
	r.authStore = flux.NewAuthStore(r.dispatcher)
	r.attachEvents()

	r.postActions = flux.NewPostActions(r.dispatcher, r.posts, r.authStore, r.logger)
	r.authActions = flux.NewAuthActions(r.dispatcher, r.provider, r.authStore, r.logger)
	return nil
}

func (r *Runner) openDocStore(ctx context.Context) (docstore.Store, error) {
	switch r.config.Backend.Kind {
	case "", "sqlite":
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, err
		}
		if r.config.Database.Path != ":memory:" {
			shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		store := docstore.NewSQLiteStore(db)
		r.closers = append(r.closers, store.Close)
		return store, nil
	case "firestore":
		store, err := docstore.NewFirestoreStore(ctx, r.config.Firebase.ProjectID, auth.GoogleClientOptions(r.config.Firebase)...)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend kind %q", shared.ErrInvalidConfig, r.config.Backend.Kind)
	}
}

// attachEvents mirrors dispatched actions to NATS when events.nats_url is set.
// A broker that cannot be reached is logged and skipped.
func (r *Runner) attachEvents() {
	url := r.config.Events.NATSURL
	if url == "" {
		return
	}
	nc, err := events.Connect(url)
	if err != nil {
		r.logger.Warn("event mirror disabled", "error", err)
		return
	}
	events.NewMirror(nc, r.config.Events.SubjectPrefix, r.logger).Attach(r.dispatcher)
	r.closers = append(r.closers, nc.Drain)
	r.logger.Debug("mirroring actions", "url", url)
}

// ensureCatalog builds the Deezer client behind the configured relay chain, cached in redis when configured.
func (r *Runner) ensureCatalog(ctx context.Context) error {
	if r.catalog != nil {
		return nil
	}

	cfg := r.config.Catalog
	relays := make([]services.Relay, 0, len(cfg.Relays))
	for _, rc := range cfg.Relays {
		relays = append(relays, services.Relay{Name: rc.Name, Prefix: rc.Prefix, Encode: rc.Encode})
	}

	client := &http.Client{Transport: r.httpClient.Transport, Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	chain := services.NewRelayChain(services.RelayChainOpts{
		Relays:            relays,
		TransientStatuses: cfg.TransientStatuses,
		HTTPClient:        client,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            shared.WithLogger(r.logger, "component", "relay"),
	})
	var catalog services.Catalog = services.NewDeezerService(cfg.BaseURL, chain, client, shared.WithLogger(r.logger, "component", "deezer"))

	if url := r.config.Cache.RedisURL; url != "" {
		rc, err := services.NewRedisClient(ctx, url)
		if err != nil {
			r.logger.Warn("catalog cache disabled", "error", err)
		} else {
			r.closers = append(r.closers, rc.Close)
			ttl := time.Duration(r.config.Cache.TTLSeconds) * time.Second
			r.cache = services.NewCachedCatalog(catalog, rc, ttl, shared.WithLogger(r.logger, "component", "cache"))
			catalog = r.cache
		}
	}

	r.catalog = catalog
	return nil
}

// ensurePlayer builds the audio player. A missing player binary falls back to silent playback.
func (r *Runner) ensurePlayer(ctx context.Context) error {
	if r.player != nil {
		return nil
	}
	if err := r.ensureCatalog(ctx); err != nil {
		return err
	}

	media := r.media
	if media == nil {
		cm, err := player.NewCommandMedia(r.config.Player.Command)
		if err != nil {
			r.logger.Warn("audio output disabled", "error", err)
			media = player.NopMedia{}
		} else {
			media = cm
		}
	}

	r.player = player.New(player.Options{
		Media:    media,
		Resolver: r.catalog,
		Volume:   r.config.Player.Volume,
		Logger:   r.logger,
	})
	r.closers = append(r.closers, r.player.Close)
	return nil
}

// signIn starts a session from --id-token, or from --user (an id or email).
func (r *Runner) signIn(ctx context.Context, cmd *cli.Command) (*models.User, error) {
	if err := r.ensureApp(ctx, cmd); err != nil {
		return nil, err
	}

	credential := cmd.String("id-token")
	if credential == "" {
		credential = cmd.String("user")
	}
	if credential == "" {
		return nil, fmt.Errorf("%w: pass --user or --id-token", shared.ErrNotAuthenticated)
	}
	return r.authActions.SignIn(ctx, credential)
}

// storeError turns the post store's error state into an error.
func (r *Runner) storeError(op string) error {
	if msg := r.postStore.GetError(); msg != "" {
		return fmt.Errorf("%s: %s", op, msg)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
