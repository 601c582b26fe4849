package dbmodels

import "gorm.io/gorm"

type Customer struct {
	BaseSpaceModel
	Name      string
	Email     string
	Phone     string
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r Customer) Snapshot() map[string]any {
	return map[string]any{
		"id":    r.ID,
		"name":  r.Name,
		"email": r.Email,
		"phone": r.Phone,
	}
}
