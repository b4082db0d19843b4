package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dressing-intelligent/wardrobe-backend/api/controllers"
	"github.com/dressing-intelligent/wardrobe-backend/api/middleware"
	"github.com/dressing-intelligent/wardrobe-backend/internal/account"
	"github.com/dressing-intelligent/wardrobe-backend/internal/auth"
	"github.com/dressing-intelligent/wardrobe-backend/internal/ingestion"
	"github.com/dressing-intelligent/wardrobe-backend/internal/profiles"
	"github.com/dressing-intelligent/wardrobe-backend/internal/receipts"
	"github.com/dressing-intelligent/wardrobe-backend/internal/wardrobe"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/auth/session"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
	pkgredis "github.com/dressing-intelligent/wardrobe-backend/pkg/redis"
)

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	Config          *config.Config
	Logger          *logger.Logger
	Redis           *pkgredis.Client
	SessionChecker  session.AccessSessionChecker
	MetricsGatherer prometheus.Gatherer
	Pingers         []controllers.NamedPinger

	AuthService      auth.Service
	ProfilesService  profiles.Service
	IngestionService ingestion.Service
	WardrobeService  wardrobe.Service
	ReceiptsService  receipts.Service
	AccountService   account.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// A nil *redis.Client stored in an interface would dodge the middleware
	// nil checks, so only hand the stores over when the client exists.
	idempotency := passthrough
	rateLimited := func(middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
		return passthrough
	}
	if deps.Redis != nil {
		idempotency = middleware.Idempotency(deps.Redis, logg)
		rateLimited = func(policy middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
			return middleware.AuthRateLimit(policy, deps.Redis, logg)
		}
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers...))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			rateLimited(registerPolicy),
			idempotency,
		).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.With(rateLimited(loginPolicy)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(idempotency)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", controllers.ProfilesList(deps.ProfilesService, logg))
			r.Post("/", controllers.ProfilesCreate(deps.ProfilesService, logg))
			r.Patch("/{profileId}", controllers.ProfilesUpdate(deps.ProfilesService, logg))
			r.Delete("/{profileId}", controllers.ProfilesDelete(deps.ProfilesService, logg))
			r.Post("/{profileId}/activate", controllers.ProfilesActivate(deps.ProfilesService, logg))
		})

		r.Post("/images/process", controllers.ImagesProcess(deps.IngestionService, logg))

		r.Route("/clothes", func(r chi.Router) {
			r.Get("/", controllers.ClothesList(deps.WardrobeService, logg))
			r.Post("/", controllers.ClothesSave(deps.WardrobeService, logg))
			r.Patch("/{itemId}", controllers.ClothesUpdate(deps.WardrobeService, logg))
			r.Delete("/{itemId}", controllers.ClothesDelete(deps.WardrobeService, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.SubscriptionsCurrent(deps.ReceiptsService, logg))
			r.Post("/validate", controllers.SubscriptionsValidate(deps.ReceiptsService, logg))
		})

		r.Delete("/account", controllers.AccountDelete(deps.AccountService, logg))
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
