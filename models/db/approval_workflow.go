package dbmodels

import (
	"github.com/lib/pq"
)

type ApprovalWorkflow struct {
	BaseSpaceModel
	Name             string
	Description      string
	Resource         string  `gorm:"type:varchar(50);index"`
	Action           string  `gorm:"type:varchar(50);index"`
	ThresholdField   *string `gorm:"type:varchar(255)"`
	ThresholdValue   *float64
	RequiresApproval bool
	ApproverRoles    pq.StringArray `gorm:"type:text[]"`
	ApproverUserIDs  pq.StringArray `gorm:"type:text[]"`
	IsActive         bool           `gorm:"index"`
}

func (r ApprovalWorkflow) HasThreshold() bool {
	return r.ThresholdField != nil && *r.ThresholdField != "" && r.ThresholdValue != nil
}

// IsApprover reports whether the caller is listed in the workflow approver set.
func (r ApprovalWorkflow) IsApprover(userID, role string) bool {
	for _, approverRole := range r.ApproverRoles {
		if approverRole == role {
			return true
		}
	}
	for _, approverID := range r.ApproverUserIDs {
		if approverID == userID {
			return true
		}
	}
	return false
}
