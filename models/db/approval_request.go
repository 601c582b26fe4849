package dbmodels

import (
	"crm-backend/models"
	"time"

	"gorm.io/datatypes"
)

type ApprovalRequest struct {
	BaseSpaceModel
	WorkflowID      *string               `gorm:"type:varchar(36);index"`
	Workflow        *ApprovalWorkflow     `gorm:"foreignKey:WorkflowID"`
	Resource        string                `gorm:"type:varchar(50)"`
	ResourceID      string                `gorm:"type:varchar(36)"`
	Action          string                `gorm:"type:varchar(50)"`
	Status          models.ApprovalStatus `gorm:"type:varchar(20);index"`
	RequestedByID   string                `gorm:"type:varchar(36);index"`
	RequestedAt     time.Time
	ApprovedByID    *string `gorm:"type:varchar(36)"`
	ApprovedAt      *time.Time
	Reason          *string
	RejectionReason *string
	Metadata        datatypes.JSON `gorm:"type:jsonb"`
	// ConsumedAt is set once a granted approval has been used by a guarded operation.
	ConsumedAt *time.Time
}
