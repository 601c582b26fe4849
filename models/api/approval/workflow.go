package approvalapimodels

import (
	apimodels "crm-backend/models/api"
	dbmodels "crm-backend/models/db"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type WorkflowData struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Resource         string   `json:"resource"`        // e.g. customer
	Action           string   `json:"action"`          // e.g. delete
	ThresholdField   *string  `json:"threshold_field"` // path into the operation payload
	ThresholdValue   *float64 `json:"threshold_value"`
	RequiresApproval *bool    `json:"requires_approval"`
	ApproverRoles    []string `json:"approver_roles"`
	ApproverUserIDs  []string `json:"approver_user_ids"`
	IsActive         *bool    `json:"is_active"`
}

func (r WorkflowData) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("workflow name is required")
	}
	if strings.TrimSpace(r.Resource) == "" {
		return errors.New("resource is required")
	}
	if strings.TrimSpace(r.Action) == "" {
		return errors.New("action is required")
	}
	if (r.ThresholdField == nil) != (r.ThresholdValue == nil) {
		return errors.New("threshold field and threshold value must be set together")
	}
	return nil
}

type WorkflowFilter struct {
	apimodels.Pagination
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	ActiveOnly bool   `json:"active_only"`
}

type WorkflowView struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Resource         string    `json:"resource"`
	Action           string    `json:"action"`
	ThresholdField   *string   `json:"threshold_field,omitempty"`
	ThresholdValue   *float64  `json:"threshold_value,omitempty"`
	RequiresApproval bool      `json:"requires_approval"`
	ApproverRoles    []string  `json:"approver_roles"`
	ApproverUserIDs  []string  `json:"approver_user_ids"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

func WorkflowConvert(rec dbmodels.ApprovalWorkflow) WorkflowView {
	return WorkflowView{
		ID:               rec.ID,
		Name:             rec.Name,
		Description:      rec.Description,
		Resource:         rec.Resource,
		Action:           rec.Action,
		ThresholdField:   rec.ThresholdField,
		ThresholdValue:   rec.ThresholdValue,
		RequiresApproval: rec.RequiresApproval,
		ApproverRoles:    []string(rec.ApproverRoles),
		ApproverUserIDs:  []string(rec.ApproverUserIDs),
		IsActive:         rec.IsActive,
		CreatedAt:        rec.CreatedAt,
	}
}
