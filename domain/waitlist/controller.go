package waitlist

import (
	"context"

	"gitea.com/go-chi/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spiralwrks/spiralworks.ai/config/router"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/pkg/csrf"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"github.com/spiralwrks/spiralworks.ai/pkg/ratelimit"
	"gorm.io/gorm"
)

type Dependencies struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Limiter  ratelimit.RateLimiter
	Tokens   CsrfTokens
	Notifier Notifier
	// Sessions attaches the cookie session the CSRF token is bound to.
	Sessions router.MiddlewareFunc
}

// NewWaitlistController builds its service once the router's metrics
// registry is known.
func NewWaitlistController(deps Dependencies, newService func(prometheus.Registerer) WaitlistService) *router.RESTController {
	return router.NewRESTController(
		"WaitlistController",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			service := newService(rs.MetricsRegisterer())

			rs.AddGetHandler(c, nil, "csrf-token", issueCsrfTokenHandler(service), deps.Sessions)
			rs.AddPostHandler(c, nil, "signup", signupHandler(service), deps.Sessions)
		},
	)
}

// requestSession exposes the request's session to the token store and
// returns its id.
func requestSession(ctx *router.RequestContext) (context.Context, string) {
	sess := session.GetSession(ctx.Request)
	if sess == nil {
		return ctx.Request.Context(), ""
	}
	return csrf.WithSession(ctx.Request.Context(), sess), sess.ID()
}

func issueCsrfTokenHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		sessionCtx, sessionID := requestSession(ctx)

		token, err := service.IssueCsrfToken(sessionCtx, sessionID)
		if err != nil {
			return router.ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
		}

		ctx.Header("Cache-Control", "no-store")
		return router.OKResult(CsrfTokenResponse{CsrfToken: token}, "CSRF token issued")
	}
}

func signupHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SignupRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind signup request", "error", err)

			if fields := apperrors.FormatValidationErrors(err, &req); len(fields) > 0 {
				return router.BadRequestResult("Invalid request payload", fields)
			}
			return router.BadRequestResult("Invalid request body", nil)
		}

		sessionCtx, sessionID := requestSession(ctx)
		response, err := service.Signup(sessionCtx, &req, ClientInfo{
			IPAddress: ctx.ClientIP(),
			UserAgent: ctx.Request.UserAgent(),
			SessionID: sessionID,
		})
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				apperrors.GetDetails(err),
			)
		}

		return router.OKResult(response, "Signup received")
	}
}
