package dbmodels

type Lead struct {
	BaseSpaceModel
	Name    string
	Company string
	Email   string
	Phone   string
	Status  string `gorm:"type:varchar(50);index"`
	Source  string
	Score   int
	OwnerID *string `gorm:"type:varchar(36)"`
	Notes   string
}

// Snapshot is the view of the lead that automation conditions are evaluated against.
func (r Lead) Snapshot() map[string]any {
	snap := map[string]any{
		"id":        r.ID,
		"name":      r.Name,
		"company":   r.Company,
		"email":     r.Email,
		"phone":     r.Phone,
		"status":    r.Status,
		"source":    r.Source,
		"score":     r.Score,
		"notes":     r.Notes,
		"createdAt": r.CreatedAt,
		"updatedAt": r.UpdatedAt,
	}
	if r.OwnerID != nil {
		snap["ownerId"] = *r.OwnerID
	}
	return snap
}
