package constants

import "time"

// RFC 3339 date-time format string.
// Use this format for all date-time serialization and communication with external systems.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// Global per-IP throttle applied by the router to every handler.
const (
	DefaultRateLimitRequests      = 100
	DefaultRateLimitWindowMinutes = 1
)

func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

// Signup admission: five accepted attempts per client address per hour.
const (
	SignupRateLimitRequests = 5
	SignupRateLimitWindow   = time.Hour
)

const (
	WaitlistSource         = "website-waitlist"
	OrganizationNotGiven   = "Not provided"
	UnknownClientValue     = "unknown"
	DefaultTrustedDomain   = "spiralworks.ai"
	SessionCookieName      = "waitlist_session"
	ConfirmationCodeLength = 8
)

// Admin listing and bulk deletion bounds.
const (
	DefaultListLimit       = 100
	MaxListLimit           = 1000
	ClearAllBatchSize      = 500
	ClearAllMaxConcurrency = 4
	ClearAllBatchTimeout   = 30 * time.Second
)
