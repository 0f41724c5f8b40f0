package waitlist

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SignupRequest fields are validated by the service after normalization, so
// the struct carries validate tags rather than gin binding tags.
type SignupRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email,max=100"`
	Organization string `json:"organization" validate:"max=100"`
	CsrfToken    string `json:"csrfToken" validate:"required"`
}

// ClientInfo describes the caller as seen by the transport.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	SessionID string
}

type SignupResponse struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate"`
}

type CsrfTokenResponse struct {
	CsrfToken string `json:"csrfToken"`
}

// normalize trims every field, lowercases the email and puts the name in NFC
// so visually identical names compare equal.
func (r *SignupRequest) normalize() {
	r.Name = norm.NFC.String(strings.TrimSpace(r.Name))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Organization = strings.TrimSpace(r.Organization)
	r.CsrfToken = strings.TrimSpace(r.CsrfToken)
}
