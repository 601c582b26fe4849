package dbmodels

import (
	"crm-backend/models"

	"gorm.io/datatypes"
)

type AutomationRule struct {
	BaseSpaceModel
	Name        string
	Description string
	Module      models.AutomationModule `gorm:"type:varchar(20);index"`
	TriggerType models.TriggerType      `gorm:"type:varchar(30);index"`
	// Condition is nil when the rule fires on every matching event.
	Condition   datatypes.JSON `gorm:"type:jsonb"`
	Actions     datatypes.JSON `gorm:"type:jsonb"`
	IsActive    bool           `gorm:"index"`
	CreatedByID string         `gorm:"type:varchar(36)"`
}
