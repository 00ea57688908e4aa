package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	httpapp "github.com/mikutaniguchi/ticket-collection/internal/app/http"
	"github.com/mikutaniguchi/ticket-collection/internal/config"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/compressor"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/repository"
	artworks "github.com/mikutaniguchi/ticket-collection/internal/services/artwork_service"
	"github.com/mikutaniguchi/ticket-collection/internal/services/auth"
	tickets "github.com/mikutaniguchi/ticket-collection/internal/services/ticket_service"
	tokens "github.com/mikutaniguchi/ticket-collection/internal/services/token_service"
	uploads "github.com/mikutaniguchi/ticket-collection/internal/services/upload_service"
	users "github.com/mikutaniguchi/ticket-collection/internal/services/user_service"
	filestorage "github.com/mikutaniguchi/ticket-collection/internal/storage/filestorage"
	"github.com/mikutaniguchi/ticket-collection/internal/storage/postgresql"
	redisapp "github.com/mikutaniguchi/ticket-collection/internal/storage/redis"
	httprouters "github.com/mikutaniguchi/ticket-collection/internal/transport/http"
)

type App struct {
	log        *slog.Logger
	cfg        *config.Config
	HTTPServer *httpapp.Server
	Tickets    *tickets.TicketService
	Users      *users.UserService

	storage *postgresql.Storage
	redis   *redisapp.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the database and redis, applies the schema and wires every
// service. Nothing runs until MustRun.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	storage, err := postgresql.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := storage.Migrate(ctx); err != nil {
		storage.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisClient := redisapp.NewClient(redisapp.Options{
		Addr:         cfg.Redis.RedisAddr,
		Password:     cfg.Redis.RedisPassword,
		DB:           cfg.Redis.RedisDB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err := redisClient.HealthCheck(ctx); err != nil {
		log.Warn("redis unavailable at startup", sl.Err(err))
	}

	files, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL, cfg.FileStorage.MaxSize)
	if err != nil {
		storage.Stop()
		_ = redisClient.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ticketRepo := repository.NewTicketRepo(storage.Pool())
	userRepo := repository.NewUserRepo(storage.Pool())
	tokenRepo := repository.NewRedisTokenRepo(redisClient)
	ticketCache := repository.NewRedisTicketCache(redisClient, cfg.Tickets.ListCacheTTL)

	comp := compressor.New(compressor.Options{
		MaxSizeMB:    cfg.Compression.MaxSizeMB,
		ThresholdMB:  cfg.Compression.ThresholdMB,
		StartQuality: cfg.Compression.StartQuality,
		MinQuality:   cfg.Compression.MinQuality,
		QualityStep:  cfg.Compression.QualityStep,
	})

	uploadService := uploads.NewUploadService(log, files, comp)
	ticketService := tickets.NewTicketService(log, ticketRepo, ticketCache, uploadService)
	tokenService := tokens.NewTokenService(log, tokenRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	userService := users.NewUserService(log, userRepo)

	google := auth.NewGoogleProvider(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.GoogleRedirectURL)
	authService := auth.New(log, google, userRepo, tokenService)

	artworkService := artworks.NewArtworkService(log, &http.Client{Timeout: cfg.ArtLookup.Timeout}, artworks.Config{
		BaseURL:      cfg.ArtLookup.BaseURL,
		ImageBaseURL: cfg.ArtLookup.ImageBaseURL,
		MaxPage:      cfg.ArtLookup.MaxPage,
		MaxAttempts:  cfg.ArtLookup.MaxAttempts,
		FallbackIDs:  cfg.ArtLookup.FallbackIDs,
		CacheTTL:     cfg.ArtLookup.CacheTTL,
	})

	routers := httprouters.NewRouter(
		log,
		ticketService,
		authService,
		tokenService,
		userService,
		artworkService,
		files,
		cfg.Auth.FrontendRedirect,
	)

	server := httpapp.New(log, httpapp.Options{
		Host:          cfg.HTTP.Host,
		Port:          cfg.HTTP.Port,
		Timeout:       cfg.HTTP.Timeout,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		SessionSecret: cfg.Auth.SessionSecret,
		JWTSecret:     tokenService.Secret(),
		LoginURL:      cfg.HTTP.LoginURL,
		UploadsDir:    files.GetBaseDir(),
		UploadsURL:    files.BaseURL(),
		BodyLimit:     "64M",
	}, routers, map[string]httpapp.HealthChecker{
		"postgres": storage,
		"redis":    redisClient,
	})

	return &App{
		log:        log,
		cfg:        cfg,
		HTTPServer: server,
		Tickets:    ticketService,
		Users:      userService,
		storage:    storage,
		redis:      redisClient,
	}, nil
}

// StartRecovery removes placeholders left by interrupted creates once at
// startup and then periodically in the background.
func (a *App) StartRecovery(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	if n, err := a.Tickets.RecoverIncomplete(ctx, a.cfg.Tickets.RecoveryGrace); err != nil {
		a.log.Warn("startup recovery failed", sl.Err(err))
	} else if n > 0 {
		a.log.Info("startup recovery", slog.Int("removed", n))
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Tickets.RunRecovery(ctx, a.cfg.Tickets.RecoveryInterval, a.cfg.Tickets.RecoveryGrace)
	}()
}

func (a *App) MustRun() {
	a.HTTPServer.BuildRouters()
	a.HTTPServer.MustRun()
}

// Stop shuts the HTTP server down first so in-flight requests finish while
// the database and redis are still open.
func (a *App) Stop() {
	const op = "app.Stop"

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Stop(); err != nil {
			a.log.Error("http server stop", slog.String("op", op), sl.Err(err))
		}
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if err := a.redis.Close(); err != nil {
		a.log.Error("redis close", slog.String("op", op), sl.Err(err))
	}

	a.storage.Stop()
}
