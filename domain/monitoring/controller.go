package monitoring

import (
	"context"
	"time"

	"github.com/spiralwrks/spiralworks.ai/config/router"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	monitoringRequestsPerMinute = 10
	probeTimeout                = 2 * time.Second
)

type Cache interface {
	Ping(ctx context.Context) error
}

// HealthStatus reports 1 for a reachable dependency and 0 otherwise. An
// unconfigured cache reports 0.
type HealthStatus struct {
	Database int `json:"database"`
	Cache    int `json:"cache"`
	Uptime   int `json:"uptime"`
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Cache
	startTime time.Time
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Cache) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		cache:     cache,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			limiter := ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
				Requests: monitoringRequestsPerMinute,
				Window:   time.Minute,
			})

			rs.AddGetHandler(c, limiter, "", ctrl.monitor)
			rs.AddGetHandler(c, limiter, "health", ctrl.healthCheck)
		},
	)
}

func (ctrl *MonitoringController) monitor(*router.RequestContext) *router.ServiceResult {
	return router.OKResult("Waitlist service is operational.", "Monitoring successful")
}

func (ctrl *MonitoringController) healthCheck(c *router.RequestContext) *router.ServiceResult {
	logger := router.GetLogger(c)
	status := ctrl.performHealthChecks(c.Request.Context(), logger)

	return router.OKResult(status, "waitlist service health check completed")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{Uptime: int(time.Since(ctrl.startTime).Seconds())}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// Probes never fail the group; each writes its own field.
	var g errgroup.Group
	g.Go(func() error {
		if ctrl.checkDatabase(ctx) {
			status.Database = 1
		} else {
			logger.Error("Database health check failed")
		}
		return nil
	})
	g.Go(func() error {
		if ctrl.cache == nil {
			return nil
		}
		if ctrl.cache.Ping(ctx) == nil {
			status.Cache = 1
		} else {
			logger.Error("Cache health check failed")
		}
		return nil
	})
	_ = g.Wait()

	return status
}

func (ctrl *MonitoringController) checkDatabase(ctx context.Context) bool {
	if ctrl.db == nil {
		return false
	}
	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}
