package admin

import (
	"strconv"

	"github.com/spiralwrks/spiralworks.ai/config/router"
	"github.com/spiralwrks/spiralworks.ai/internal/audit"
	"github.com/spiralwrks/spiralworks.ai/internal/auth"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"gorm.io/gorm"
)

type Dependencies struct {
	DB            *gorm.DB
	Logger        *log.Logger
	Authenticator *auth.Authenticator
	Recorder      audit.Recorder
	Batches       BatchConfig
}

func NewAdminController(deps Dependencies, service AdminService) *router.RESTController {
	return router.NewRESTController(
		"AdminWaitlistController",
		"/admin/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			requireAdmin := auth.RequireAdmin(deps.Authenticator)

			rs.AddGetHandler(c, nil, "", listEntriesHandler(service), requireAdmin)
			rs.AddDeleteHandler(c, nil, ":id", deleteEntryHandler(service), requireAdmin)
			rs.AddPostHandler(c, nil, "clear-all", clearAllHandler(service), requireAdmin)
		},
	)
}

func actorFrom(ctx *router.RequestContext) (*auth.Identity, *router.ServiceResult) {
	identity, ok := auth.IdentityFromContext(ctx.Request.Context())
	if !ok {
		return nil, router.UnauthorizedResult("Unauthorized")
	}
	return identity, nil
}

func errorResult(err error) *router.ServiceResult {
	return router.ErrorResult(
		apperrors.HTTPStatusCode(err),
		apperrors.GetHumanReadableMessage(err),
		apperrors.GetDetails(err),
	)
}

func listEntriesHandler(service AdminService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		actor, errResult := actorFrom(ctx)
		if errResult != nil {
			return errResult
		}

		// Unparsable values fall back to the default limit.
		limit, _ := strconv.Atoi(ctx.Query("maxResults"))

		entries, err := service.ListEntries(ctx.Request.Context(), actor, limit)
		if err != nil {
			return errorResult(err)
		}

		return router.OKResult(entries, "Waitlist entries retrieved")
	}
}

func deleteEntryHandler(service AdminService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		actor, errResult := actorFrom(ctx)
		if errResult != nil {
			return errResult
		}

		id, errResult := router.ParseUUIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		response, err := service.DeleteEntry(ctx.Request.Context(), actor, id)
		if err != nil {
			return errorResult(err)
		}

		return router.OKResult(response, "Waitlist entry deleted")
	}
}

func clearAllHandler(service AdminService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		actor, errResult := actorFrom(ctx)
		if errResult != nil {
			return errResult
		}

		var req ClearAllRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			router.GetLogger(ctx).Warn("Failed to bind clear-all request", "error", err)

			if fields := apperrors.FormatValidationErrors(err, &req); len(fields) > 0 {
				return router.BadRequestResult("Invalid request payload", fields)
			}
			return router.BadRequestResult("Invalid request body", nil)
		}

		response, err := service.ClearAll(ctx.Request.Context(), actor, req.ConfirmationCode)
		if err != nil {
			return errorResult(err)
		}

		return router.OKResult(response, response.Message)
	}
}
