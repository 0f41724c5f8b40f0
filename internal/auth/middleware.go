package auth

import (
	"context"

	"github.com/spiralwrks/spiralworks.ai/config/router"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// RequireAdmin rejects the request unless it carries a trusted admin token.
// Refusals carry only a generic message.
func RequireAdmin(authenticator *Authenticator) router.MiddlewareFunc {
	return func(c *router.RequestContext) {
		ctx := c.Request.Context()

		identity, err := authenticator.Authenticate(ctx, c.GetHeader("Authorization"), c.Request.URL.Path)
		if err != nil {
			status := apperrors.HTTPStatusCode(err)
			c.AbortWithStatusJSON(status, router.ErrorResult(status, apperrors.GetHumanReadableMessage(err), nil).ToJSON())
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(ctx, identity))
		c.Next()
	}
}
