package auth

import (
	"context"
	"strings"

	"github.com/spiralwrks/spiralworks.ai/internal/audit"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
)

const bearerPrefix = "Bearer "

type Authenticator struct {
	verifier      Verifier
	trustedDomain string
	recorder      audit.Recorder
	logger        *log.Logger
}

func NewAuthenticator(verifier Verifier, trustedDomain string, recorder audit.Recorder, logger *log.Logger) *Authenticator {
	return &Authenticator{
		verifier:      verifier,
		trustedDomain: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(trustedDomain), "@")),
		recorder:      recorder,
		logger:        logger,
	}
}

// Authenticate verifies the bearer token in authorizationHeader and admits
// only identities whose email belongs to the trusted domain. A verified
// identity outside that domain is audited before it is refused.
func (a *Authenticator) Authenticate(ctx context.Context, authorizationHeader, path string) (*Identity, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, a.logger)

	rawToken, ok := strings.CutPrefix(authorizationHeader, bearerPrefix)
	rawToken = strings.TrimSpace(rawToken)
	if !ok || rawToken == "" {
		return nil, apperrors.NewUnauthorizedError("Unauthorized", nil)
	}

	identity, err := a.verifier.Verify(ctx, rawToken)
	if err != nil {
		logger.Warn("Admin token verification failed", "path", path, "error", err)
		return nil, apperrors.NewUnauthorizedError("Unauthorized", err)
	}

	if !a.inTrustedDomain(identity.Email) {
		a.recorder.Record(ctx, identity.Subject, audit.ActionUnauthorizedAccess, audit.Details{
			"email": identity.Email,
			"path":  path,
		})
		logger.Warn("Admin access refused for untrusted domain", "subject", identity.Subject, "path", path)
		return nil, apperrors.NewForbiddenError("Forbidden", nil)
	}

	return identity, nil
}

func (a *Authenticator) inTrustedDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || a.trustedDomain == "" {
		return false
	}
	return strings.EqualFold(email[at+1:], a.trustedDomain)
}
