package config

import (
	"context"
	"time"

	"github.com/spiralwrks/spiralworks.ai/config/router"
	"github.com/spiralwrks/spiralworks.ai/internal/audit"
	"github.com/spiralwrks/spiralworks.ai/internal/auth"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/internal/models"
	"github.com/spiralwrks/spiralworks.ai/pkg/constants"
	"github.com/spiralwrks/spiralworks.ai/pkg/csrf"
	"github.com/spiralwrks/spiralworks.ai/pkg/factory"
	"github.com/spiralwrks/spiralworks.ai/pkg/notify"
	"github.com/spiralwrks/spiralworks.ai/pkg/ratelimit"
	"github.com/spiralwrks/spiralworks.ai/pkg/utils"
	"gorm.io/gorm"
)

const shutdownDrainTimeout = 5 * time.Second

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	TracingShutdown func(context.Context) error

	Authenticator *auth.Authenticator
	AuditRecorder audit.Recorder
	Notifier      *notify.AsyncNotifier
	SignupLimiter ratelimit.RateLimiter
	CsrfTokens    *csrf.TokenService
	Sessions      router.MiddlewareFunc

	closeSinks func()
}

type AppConfig struct {
	RateLimitRequests    int
	RateLimitWindow      time.Duration
	RequestTimeout       time.Duration
	Session              *SessionConfig
	ClearAllBatchTimeout time.Duration
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests:    utils.GetEnvPositiveIntOrDefault("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:      utils.GetEnvDurationOrDefault("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:       utils.GetEnvDurationOrDefault("REQUEST_TIMEOUT", router.DefaultTimeoutDuration),
		Session:              NewSessionConfig(),
		ClearAllBatchTimeout: utils.GetEnvDurationOrDefault("CLEAR_ALL_BATCH_TIMEOUT", constants.ClearAllBatchTimeout),
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.Notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
		if err := ac.Notifier.Close(ctx); err != nil {
			ac.Logger.Warn("Signup notifications still in flight at shutdown", "error", err)
		}
		cancel()
	}
	if ac.closeSinks != nil {
		ac.closeSinks()
	}

	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
		cancel()
	}

	if ac.SignupLimiter != nil {
		if err := ac.SignupLimiter.Close(); err != nil {
			ac.Logger.Error("Failed to close signup rate limiter", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		_ = CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(logger, NewDBConfigFromEnv())
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrNil(logger)

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
	})

	recorder := NewAuditRecorder(db, logger, routerService.MetricsRegisterer())

	authConfig := NewAuthConfig()
	verifier, err := authConfig.NewVerifier(context.Background(), logger)
	if err != nil {
		return nil, err
	}
	authenticator := auth.NewAuthenticator(verifier, authConfig.TrustedDomain, recorder, logger)

	limiters := factory.NewDefaultRateLimiterFactory(cache, logger)
	signupLimiter := limiters.CreateRateLimiter(constants.SignupRateLimitRequests, constants.SignupRateLimitWindow)
	if !limiters.Distributed() {
		logger.Warn("Signup rate limit is per process; configure Redis to share it across instances")
	}

	sessions, err := router.NewSessionMiddleware(appConfig.Session.SessionOptions(cache, logger))
	if err != nil {
		return nil, err
	}

	notifier, closeSinks := NewNotifyConfig().NewNotifier(logger)

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,

		Authenticator: authenticator,
		AuditRecorder: recorder,
		Notifier:      notifier,
		SignupLimiter: signupLimiter,
		CsrfTokens:    csrf.NewTokenService(csrf.NewSessionStore(), appConfig.Session.TokenTTL),
		Sessions:      sessions,

		closeSinks: closeSinks,
	}, nil
}
