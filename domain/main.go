package domain

import (
	"github.com/spiralwrks/spiralworks.ai/config"
	"github.com/spiralwrks/spiralworks.ai/config/router"
	"github.com/spiralwrks/spiralworks.ai/domain/admin"
	"github.com/spiralwrks/spiralworks.ai/domain/monitoring"
	"github.com/spiralwrks/spiralworks.ai/domain/waitlist"
)

type controllerFactory interface {
	CreateController() *router.RESTController
}

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	batches := admin.DefaultBatchConfig()
	batches.Timeout = appConfig.Config.ClearAllBatchTimeout

	factories := []controllerFactory{
		monitoring.NewMonitoringControllerFactory(appConfig.DB, appConfig.Logger, appConfig.Cache),
		waitlist.NewWaitlistServiceFactory(waitlist.Dependencies{
			DB:       appConfig.DB,
			Logger:   appConfig.Logger,
			Limiter:  appConfig.SignupLimiter,
			Tokens:   appConfig.CsrfTokens,
			Notifier: appConfig.Notifier,
			Sessions: appConfig.Sessions,
		}),
		admin.NewAdminServiceFactory(admin.Dependencies{
			DB:            appConfig.DB,
			Logger:        appConfig.Logger,
			Authenticator: appConfig.Authenticator,
			Recorder:      appConfig.AuditRecorder,
			Batches:       batches,
		}),
	}

	for _, factory := range factories {
		appConfig.RouterService.MountController(factory.CreateController())
	}
}
