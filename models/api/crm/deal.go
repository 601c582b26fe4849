package crmapimodels

import (
	dbmodels "crm-backend/models/db"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type DealData struct {
	Title       string  `json:"title"`
	Stage       string  `json:"stage"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Probability int     `json:"probability"`
	CustomerID  *string `json:"customer_id"`
	LeadID      *string `json:"lead_id"`
	Notes       string  `json:"notes"`
}

func (r DealData) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("deal title is required")
	}
	if r.Amount < 0 {
		return errors.New("deal amount can not be negative")
	}
	if r.Probability < 0 || r.Probability > 100 {
		return errors.New("probability must be between 0 and 100")
	}
	return nil
}

type DealStageData struct {
	Stage string `json:"stage"`
}

func (r DealStageData) Validate() error {
	if strings.TrimSpace(r.Stage) == "" {
		return errors.New("stage is required")
	}
	return nil
}

type DealAmountData struct {
	Amount float64 `json:"amount"`
}

func (r DealAmountData) Validate() error {
	if r.Amount < 0 {
		return errors.New("deal amount can not be negative")
	}
	return nil
}

type DealView struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Stage        string    `json:"stage"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Probability  int       `json:"probability"`
	CustomerID   *string   `json:"customer_id,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	LeadID       *string   `json:"lead_id,omitempty"`
	ClosedFlag   bool      `json:"closed_flag"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

func DealConvert(rec dbmodels.Deal) DealView {
	view := DealView{
		ID:          rec.ID,
		Title:       rec.Title,
		Stage:       rec.Stage,
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		Probability: rec.Probability,
		CustomerID:  rec.CustomerID,
		LeadID:      rec.LeadID,
		ClosedFlag:  rec.ClosedFlag,
		Notes:       rec.Notes,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.Customer != nil {
		view.CustomerName = rec.Customer.Name
	}
	return view
}
