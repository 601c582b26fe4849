package dbmodels

import "gorm.io/gorm"

type Document struct {
	BaseSpaceModel
	CustomerID *string `gorm:"type:varchar(36);index"`
	Title      string
	FileName   string
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r Document) Snapshot() map[string]any {
	snap := map[string]any{
		"id":       r.ID,
		"title":    r.Title,
		"fileName": r.FileName,
	}
	if r.CustomerID != nil {
		snap["customerId"] = *r.CustomerID
	}
	return snap
}
