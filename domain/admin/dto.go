package admin

import (
	"github.com/spiralwrks/spiralworks.ai/internal/models"
	"github.com/spiralwrks/spiralworks.ai/pkg/constants"
)

type EntryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	IPAddress    string `json:"ipAddress"`
	UserAgent    string `json:"userAgent"`
	Source       string `json:"source"`
	CreatedAt    string `json:"createdAt"`
}

type DeleteEntryResponse struct {
	Success bool `json:"success"`
}

type ClearAllRequest struct {
	ConfirmationCode string `json:"confirmationCode" binding:"required,len=8"`
}

type ClearAllResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

func toEntryResponse(entry *models.WaitlistEntry) EntryResponse {
	return EntryResponse{
		ID:           entry.ID,
		Name:         entry.Name,
		Email:        entry.Email,
		Organization: entry.Organization,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Source:       entry.Source,
		CreatedAt:    entry.CreatedAt.UTC().Format(constants.RFC3339DateTimeFormat),
	}
}
