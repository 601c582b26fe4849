package crmapimodels

import (
	dbmodels "crm-backend/models/db"
	"time"
)

type CustomerView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

func CustomerConvert(rec dbmodels.Customer) CustomerView {
	return CustomerView{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     rec.Email,
		Phone:     rec.Phone,
		CreatedAt: rec.CreatedAt,
	}
}

type DocumentView struct {
	ID         string    `json:"id"`
	CustomerID *string   `json:"customer_id,omitempty"`
	Title      string    `json:"title"`
	FileName   string    `json:"file_name"`
	CreatedAt  time.Time `json:"created_at"`
}

func DocumentConvert(rec dbmodels.Document) DocumentView {
	return DocumentView{
		ID:         rec.ID,
		CustomerID: rec.CustomerID,
		Title:      rec.Title,
		FileName:   rec.FileName,
		CreatedAt:  rec.CreatedAt,
	}
}
