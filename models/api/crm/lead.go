package crmapimodels

import (
	dbmodels "crm-backend/models/db"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type LeadData struct {
	Name    string  `json:"name"`
	Company string  `json:"company"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Status  string  `json:"status"`
	Source  string  `json:"source"`
	Score   int     `json:"score"`
	OwnerID *string `json:"owner_id"`
	Notes   string  `json:"notes"`
}

func (r LeadData) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("lead name is required")
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return errors.New("email has invalid format")
		}
	}
	return nil
}

type LeadView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	Score     int       `json:"score"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func LeadConvert(rec dbmodels.Lead) LeadView {
	return LeadView{
		ID:        rec.ID,
		Name:      rec.Name,
		Company:   rec.Company,
		Email:     rec.Email,
		Phone:     rec.Phone,
		Status:    rec.Status,
		Source:    rec.Source,
		Score:     rec.Score,
		OwnerID:   rec.OwnerID,
		Notes:     rec.Notes,
		CreatedAt: rec.CreatedAt,
	}
}
