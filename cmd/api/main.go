package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dressing-intelligent/wardrobe-backend/api/controllers"
	"github.com/dressing-intelligent/wardrobe-backend/api/routes"
	"github.com/dressing-intelligent/wardrobe-backend/internal/account"
	"github.com/dressing-intelligent/wardrobe-backend/internal/auth"
	"github.com/dressing-intelligent/wardrobe-backend/internal/cdn"
	"github.com/dressing-intelligent/wardrobe-backend/internal/cleanup"
	"github.com/dressing-intelligent/wardrobe-backend/internal/ingestion"
	"github.com/dressing-intelligent/wardrobe-backend/internal/profiles"
	"github.com/dressing-intelligent/wardrobe-backend/internal/receipts"
	"github.com/dressing-intelligent/wardrobe-backend/internal/wardrobe"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/auth/session"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/db"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/metrics"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/migrate"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/pubsub"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/redis"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	var purgePublisher *cleanup.Publisher
	var pubsubClient *pubsub.Client
	if cfg.PubSub.CleanupTopic != "" && cfg.PubSub.CleanupSubscription != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		purgePublisher, err = cleanup.NewPublisher(pubsubClient.CleanupPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create purge publisher", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "cleanup topic not configured, purge events disabled")
	}

	usersRepo := account.NewRepository(dbClient.DB())
	profilesRepo := profiles.NewRepository(dbClient.DB())
	itemsRepo := wardrobe.NewRepository(dbClient.DB())
	subscriptionsRepo := receipts.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		ProfilesRepo:   profilesRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	profilesService, err := newProfilesService(profilesRepo, purgePublisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create profiles service", err)
		os.Exit(1)
	}

	cdnClient, err := cdn.NewClient(cfg.CDN, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cdn client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	ingestMetrics := metrics.NewIngestMetrics(registry)

	ingestionService, err := ingestion.NewService(profilesRepo, cdnClient, redisClient, ingestMetrics, cfg.Ingest, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingestion service", err)
		os.Exit(1)
	}

	wardrobeService, err := wardrobe.NewService(
		profilesRepo,
		itemsRepo,
		gcsClient,
		wardrobe.NewHTTPFetcher(cfg.CDN.RequestTimeout),
		redisClient,
		cfg.GCS.BucketName,
		cfg.GCS.DownloadURLExpiry,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create wardrobe service", err)
		os.Exit(1)
	}

	appleVerifier, err := receipts.NewAppleVerifier(cfg.Apple)
	if err != nil {
		logg.Error(context.Background(), "failed to create apple verifier", err)
		os.Exit(1)
	}
	googleVerifier, err := receipts.NewGoogleVerifier(cfg.Google)
	if err != nil {
		logg.Error(context.Background(), "failed to create google verifier", err)
		os.Exit(1)
	}
	receiptsService, err := receipts.NewService(subscriptionsRepo, appleVerifier, googleVerifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipts service", err)
		os.Exit(1)
	}

	accountService, err := newAccountService(cfg, usersRepo, profilesRepo, subscriptionsRepo, gcsClient, purgePublisher, sessionManager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	pingers := []controllers.NamedPinger{
		{Name: "database", Pinger: dbClient},
		{Name: "redis", Pinger: redisClient},
		{Name: "gcs", Pinger: gcsClient},
	}
	if pubsubClient != nil {
		pingers = append(pingers, controllers.NamedPinger{Name: "pubsub", Pinger: pubsubClient})
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:           cfg,
		Logger:           logg,
		Redis:            redisClient,
		SessionChecker:   sessionManager,
		MetricsGatherer:  registry,
		Pingers:          pingers,
		AuthService:      authService,
		ProfilesService:  profilesService,
		IngestionService: ingestionService,
		WardrobeService:  wardrobeService,
		ReceiptsService:  receiptsService,
		AccountService:   accountService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

// newProfilesService keeps the nil publisher interface truly nil when purge
// events are disabled.
func newProfilesService(repo *profiles.Repository, publisher *cleanup.Publisher, logg *logger.Logger) (profiles.Service, error) {
	if publisher == nil {
		return profiles.NewService(repo, nil, logg)
	}
	return profiles.NewService(repo, publisher, logg)
}

func newAccountService(
	cfg *config.Config,
	usersRepo *account.Repository,
	profilesRepo *profiles.Repository,
	subscriptionsRepo *receipts.Repository,
	gcsClient *gcs.Client,
	publisher *cleanup.Publisher,
	sessionManager *session.Manager,
	logg *logger.Logger,
) (account.Service, error) {
	params := account.ServiceParams{
		Users:         usersRepo,
		Profiles:      profilesRepo,
		Subscriptions: subscriptionsRepo,
		Storage:       gcsClient,
		Bucket:        cfg.GCS.BucketName,
		Sessions:      sessionManager,
		Logger:        logg,
	}
	if publisher != nil {
		params.Publisher = publisher
	}
	if cfg.Sendgrid.APIKey != "" {
		mailer, err := account.NewMailer(cfg.Sendgrid, logg)
		if err != nil {
			return nil, err
		}
		params.Mailer = mailer
	} else {
		logg.Warn(context.Background(), "sendgrid not configured, deletion emails disabled")
	}
	return account.NewService(params)
}
