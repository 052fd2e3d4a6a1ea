package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-boilerplate"
	"github.com/goliatone/go-auth-boilerplate/config"
	"github.com/goliatone/go-auth-boilerplate/mailer"
	"github.com/goliatone/go-auth-boilerplate/middleware/requestlog"
	"github.com/goliatone/go-auth-boilerplate/middleware/response"
	"github.com/goliatone/go-auth-boilerplate/persistence"
	"github.com/goliatone/go-auth-boilerplate/repository"
	"github.com/goliatone/go-auth-boilerplate/social"
	"github.com/goliatone/go-auth-boilerplate/social/providers/facebook"
	"github.com/goliatone/go-auth-boilerplate/social/providers/google"
	"github.com/goliatone/go-auth-boilerplate/uploads"
)

var ErrRateLimited = errors.New("Too many requests, please try again later.", errors.CategoryRateLimit).
	WithTextCode("RATE_LIMITED").
	WithCode(fiber.StatusTooManyRequests)

type App struct {
	config   *config.Config
	db       *bun.DB
	dialect  string
	repo     auth.RepositoryManager
	sessions *auth.SessionManager
	storage  fiber.Storage
	srv      *fiber.App
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := glog.Info
	switch strings.ToLower(cfg.LogLevel) {
	case "trace":
		level = glog.Trace
	case "debug":
		level = glog.Debug
	case "warn", "warning":
		level = glog.Warn
	case "error":
		level = glog.Error
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	if !cfg.IsProduction() {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(redacted(cfg)))
		fmt.Println("============")
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.GetLogger("app").Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithSessions(ctx, app); err != nil {
		lgr.GetLogger("app").Error("session setup failed", "error", err)
		os.Exit(1)
	}

	WithHTTPServer(app)
	WithAuthRoutes(app)

	if err := WithFeatureRoutes(ctx, app); err != nil {
		lgr.GetLogger("app").Error("route setup failed", "error", err)
		os.Exit(1)
	}

	app.srv.Use(response.NotFound(response.Config{Logger: app.GetLogger("http")}))

	go func() {
		app.GetLogger("app").Info("server listening", "addr", cfg.Addr(), "env", cfg.Environment)
		if err := app.srv.Listen(cfg.Addr()); err != nil {
			app.GetLogger("app").Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()

	app.GetLogger("app").Info("shutting down", "signal", sig.String())
	cancel()

	if err := app.srv.ShutdownWithTimeout(10 * time.Second); err != nil {
		app.GetLogger("app").Error("shutdown failed", "error", err)
	}
	if app.storage != nil {
		_ = app.storage.Close()
	}
	_ = app.db.Close()
}

// WithPersistence opens the database and applies migrations
func WithPersistence(ctx context.Context, app *App) error {
	db, dialect, err := persistence.Open(app.config.DatabaseURL, persistence.Options{
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	})
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := persistence.Migrate(ctx, db, dialect, app.GetLogger("migrations")); err != nil {
		return err
	}

	app.db = db
	app.dialect = dialect
	app.repo = auth.NewRepositoryManager(db)
	app.repo.MustValidate()

	return nil
}

// WithSessions selects the session store and builds the session manager
func WithSessions(ctx context.Context, app *App) error {
	cfg := app.config.Session
	logger := app.GetLogger("sessions")

	switch cfg.Store {
	case config.SessionStoreDatabase:
		store := repository.NewSessionStorage(app.db)
		go store.RunGC(ctx, cfg.GCInterval, func(err error) {
			logger.Error("session gc failed", "error", err)
		})
		app.storage = store
	case config.SessionStoreRedis:
		store, err := repository.NewRedisStorageFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		app.storage = store
	case config.SessionStoreMemory:
		logger.Warn("sessions are kept in memory and lost on restart")
	}

	app.sessions = auth.NewSessionManager(app.repo.Users(), auth.SessionConfig{
		Storage:      app.storage,
		Expiration:   cfg.TTL,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
	}).WithLogger(logger)

	logger.Info("session store ready", "store", cfg.Store, "ttl", cfg.TTL.String())

	return nil
}

// WithHTTPServer creates the fiber app with the security and logging
// middleware stack
func WithHTTPServer(app *App) {
	cfg := app.config
	httpLogger := app.GetLogger("http")

	srv := fiber.New(fiber.Config{
		AppName:      "go-auth-boilerplate",
		ErrorHandler: response.ErrorHandler(response.Config{
			Logger:     httpLogger,
			Production: cfg.IsProduction(),
			UserID:     auth.UserIDOrAnonymous,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	srv.Use(requestlog.New(requestlog.Config{
		Logger: httpLogger,
		UserID: auth.UserIDOrAnonymous,
	}))
	srv.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	srv.Use(helmet.New())
	srv.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.BaseURL,
		AllowCredentials: true,
	}))
	srv.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.Max,
		Expiration: cfg.RateLimit.Window,
		LimitReached: func(c *fiber.Ctx) error {
			return ErrRateLimited
		},
	}))
	srv.Use(auth.SessionIdentity(app.sessions, app.GetLogger("auth")))

	app.srv = srv
}

// WithAuthRoutes mounts local and social authentication under /auth
func WithAuthRoutes(app *App) {
	cfg := app.config
	authLogger := app.GetLogger("auth")
	group := app.srv.Group("/auth")

	auth.RegisterAuthRoutes(group,
		auth.WithControllerLogger(authLogger),
		auth.WithRegistrar(auth.NewRegisterUserHandler(app.repo).WithLogger(authLogger)),
		auth.WithCredentialVerifier(auth.NewUserProvider(app.repo.Users()).WithLogger(authLogger)),
		auth.WithSessions(app.sessions),
	)

	socialLogger := app.GetLogger("auth:social")
	opts := []social.SocialAuthOption{social.WithAuthLogger(socialLogger)}

	if cfg.OAuth.GoogleEnabled() {
		opts = append(opts, social.WithProvider(google.New(google.Config{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			CallbackURL:  callbackURL(cfg.BaseURL, "google"),
		})))
	}

	if cfg.OAuth.FacebookEnabled() {
		opts = append(opts, social.WithProvider(facebook.New(facebook.Config{
			ClientID:     cfg.OAuth.FacebookClientID,
			ClientSecret: cfg.OAuth.FacebookClientSecret,
			CallbackURL:  callbackURL(cfg.BaseURL, "facebook"),
		})))
	}

	authenticator := social.NewSocialAuthenticator(
		social.NewLinker(app.repo).WithLogger(socialLogger),
		social.SocialAuthConfig{
			StateSecret: []byte(cfg.JWTSecret),
			StateTTL:    cfg.OAuth.StateTTL,
			DisablePKCE: map[string]bool{"facebook": true},
		},
		opts...,
	)

	social.NewHTTPController(authenticator, app.sessions, app.sessions, social.HTTPConfig{
		SuccessRedirect: cfg.OAuth.SuccessRedirect,
		FailureRedirect: cfg.OAuth.FailureRedirect,
		FailureReason:   true,
		Logger:          socialLogger,
	}).RegisterRoutes(group)

	authLogger.Info("auth routes ready", "social_providers", authenticator.Providers())
}

// WithFeatureRoutes mounts POST /file and POST /email when their
// backends are configured
func WithFeatureRoutes(ctx context.Context, app *App) error {
	cfg := app.config

	if cfg.AWS.UploadsEnabled() {
		sdk, err := cfg.AWS.SDKConfig(ctx)
		if err != nil {
			return fmt.Errorf("aws config: %w", err)
		}

		uploader := uploads.NewS3Uploader(uploads.NewS3Client(sdk, cfg.AWS.EndpointURL), uploads.Options{
			Bucket:   cfg.AWS.S3Bucket,
			Endpoint: cfg.AWS.EndpointURL,
			Logger:   app.GetLogger("uploads"),
		})
		uploads.NewHTTPController(uploader).RegisterRoutes(app.srv)
	} else {
		app.GetLogger("uploads").Warn("AWS_S3_BUCKET not set, POST /file disabled")
	}

	if cfg.Email.Enabled() {
		sender, err := mailer.NewSender(ctx, cfg.Email, cfg.AWS, app.GetLogger("mailer"))
		if err != nil {
			return err
		}
		mailer.NewHTTPController(sender).RegisterRoutes(app.srv)
	} else {
		app.GetLogger("mailer").Warn("EMAIL_SERVICE_PROVIDER not set, POST /email disabled")
	}

	return nil
}

func callbackURL(base, provider string) string {
	return strings.TrimRight(base, "/") + "/auth/" + provider + "/callback"
}

func redacted(cfg *config.Config) map[string]any {
	return map[string]any{
		"env":            cfg.Environment,
		"port":           cfg.Port,
		"base_url":       cfg.BaseURL,
		"log_level":      cfg.LogLevel,
		"session_store":  cfg.Session.Store,
		"session_ttl":    cfg.Session.TTL.String(),
		"google":         cfg.OAuth.GoogleEnabled(),
		"facebook":       cfg.OAuth.FacebookEnabled(),
		"email_provider": cfg.Email.Provider,
		"s3_bucket":      cfg.AWS.S3Bucket,
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
