package config

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gitea.com/go-chi/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spiralwrks/spiralworks.ai/internal/audit"
	"github.com/spiralwrks/spiralworks.ai/internal/auth"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/pkg/constants"
	"github.com/spiralwrks/spiralworks.ai/pkg/csrf"
	pkgredis "github.com/spiralwrks/spiralworks.ai/pkg/redis"
	"github.com/spiralwrks/spiralworks.ai/pkg/utils"
	"gorm.io/gorm"
)

type AuthConfig struct {
	TrustedDomain string
	OIDCIssuer    string
	OIDCClientID  string
	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
}

func NewAuthConfig() *AuthConfig {
	return &AuthConfig{
		TrustedDomain: utils.GetEnvTrimmedOrDefault("ADMIN_EMAIL_DOMAIN", "spiralworks.ai"),
		OIDCIssuer:    utils.GetEnvTrimmed("ADMIN_OIDC_ISSUER"),
		OIDCClientID:  utils.GetEnvTrimmed("ADMIN_OIDC_CLIENT_ID"),
		JWTSecret:     utils.GetEnvTrimmed("ADMIN_JWT_SECRET"),
		JWTIssuer:     utils.GetEnvTrimmedOrDefault("ADMIN_JWT_ISSUER", "spiralworks-waitlist"),
		JWTAudience:   utils.GetEnvTrimmedOrDefault("ADMIN_JWT_AUDIENCE", "waitlist-admin"),
	}
}

// NewVerifier prefers OIDC, then a shared HS256 secret. With neither set
// every admin request is refused.
func (ac *AuthConfig) NewVerifier(ctx context.Context, logger *log.Logger) (auth.Verifier, error) {
	switch {
	case ac.OIDCIssuer != "":
		if ac.OIDCClientID == "" {
			return nil, fmt.Errorf("ADMIN_OIDC_CLIENT_ID is required with ADMIN_OIDC_ISSUER")
		}
		verifier, err := auth.NewOIDCVerifier(ctx, ac.OIDCIssuer, ac.OIDCClientID)
		if err != nil {
			logger.Error("Failed to initialise OIDC verifier", "issuer", ac.OIDCIssuer, "error", err)
			return nil, err
		}
		logger.Info("Admin authentication via OIDC", "issuer", ac.OIDCIssuer)
		return verifier, nil

	case ac.JWTSecret != "":
		logger.Info("Admin authentication via HS256 tokens", "issuer", ac.JWTIssuer, "audience", ac.JWTAudience)
		return ac.HMACVerifier(), nil

	default:
		logger.Warn("No admin token verifier configured; admin routes will refuse every request")
		return auth.DenyAllVerifier{}, nil
	}
}

func (ac *AuthConfig) HMACVerifier() *auth.HMACVerifier {
	return auth.NewHMACVerifier([]byte(ac.JWTSecret), ac.JWTIssuer, ac.JWTAudience)
}

func NewAuditRecorder(db *gorm.DB, logger *log.Logger, registerer prometheus.Registerer) audit.Recorder {
	return audit.NewRecorder(audit.NewGormStore(db), logger, audit.WithMetrics(registerer))
}

type SessionConfig struct {
	TokenTTL      time.Duration
	SecureCookies bool
}

func NewSessionConfig() *SessionConfig {
	return &SessionConfig{
		TokenTTL:      utils.GetEnvDurationOrDefault("CSRF_TOKEN_TTL", csrf.DefaultTTL),
		SecureCookies: utils.GetEnvBoolOrDefault("SESSION_COOKIE_SECURE", IsProduction()),
	}
}

// SessionOptions uses the go-redis session provider when the cache is Redis,
// so sessions and the CSRF tokens inside them reach every instance.
func (sc *SessionConfig) SessionOptions(cache Cache, logger *log.Logger) session.Options {
	lifetime := int64(sc.TokenTTL.Seconds())
	opts := session.Options{
		Provider:    "memory",
		CookieName:  constants.SessionCookieName,
		CookiePath:  "/",
		Secure:      sc.SecureCookies,
		SameSite:    http.SameSiteStrictMode,
		Gclifetime:  lifetime,
		Maxlifetime: lifetime,
	}

	if provider, ok := cache.(RedisClientProvider); ok {
		pkgredis.UseForSessions(provider.GetClient())
		opts.Provider = pkgredis.SessionProviderName
		return opts
	}

	logger.Warn("Sessions and CSRF tokens are held in process memory; run a single instance or configure Redis")
	return opts
}
