package dbmodels

import (
	"gorm.io/datatypes"
)

type AuditLog struct {
	BaseSpaceModel
	Level      string `gorm:"type:varchar(10)"`
	Message    string
	UserID     string `gorm:"type:varchar(36);index"`
	Resource   string `gorm:"type:varchar(50);index"`
	ResourceID string `gorm:"type:varchar(36);index"`
	Action     string `gorm:"type:varchar(50)"`
	IPAddress  string
	UserAgent  string
	Context    datatypes.JSON `gorm:"type:jsonb"`
}
