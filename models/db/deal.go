package dbmodels

type Deal struct {
	BaseSpaceModel
	Title       string
	Stage       string `gorm:"type:varchar(50);index"`
	Amount      float64
	Currency    string `gorm:"type:varchar(3)"`
	Probability int
	CustomerID  *string   `gorm:"type:varchar(36)"`
	Customer    *Customer `gorm:"foreignKey:CustomerID"`
	LeadID      *string   `gorm:"type:varchar(36)"`
	ClosedFlag  bool
	Notes       string
}

// Snapshot is the view of the deal that automation conditions are evaluated against.
func (r Deal) Snapshot() map[string]any {
	snap := map[string]any{
		"id":          r.ID,
		"title":       r.Title,
		"stage":       r.Stage,
		"amount":      r.Amount,
		"currency":    r.Currency,
		"probability": r.Probability,
		"closedFlag":  r.ClosedFlag,
		"notes":       r.Notes,
		"createdAt":   r.CreatedAt,
		"updatedAt":   r.UpdatedAt,
	}
	if r.CustomerID != nil {
		snap["customerId"] = *r.CustomerID
	}
	if r.LeadID != nil {
		snap["leadId"] = *r.LeadID
	}
	if r.Customer != nil {
		snap["customer"] = map[string]any{
			"id":    r.Customer.ID,
			"name":  r.Customer.Name,
			"email": r.Customer.Email,
		}
	}
	return snap
}
