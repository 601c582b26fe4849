package approvalworkflowhandler

import (
	"crm-backend/db"
	approvalworkflowstore "crm-backend/lib/approval-workflow/store"
	"crm-backend/models"
	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"
	"fmt"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Provider interface {
	Create(spaceID string, data approvalapimodels.WorkflowData) (id string, hMsg string, err error)
	Update(spaceID, id string, data approvalapimodels.WorkflowData) (hMsg string, err error)
	GetByID(spaceID, id string) (*approvalapimodels.WorkflowView, error)
	List(spaceID string, filter approvalapimodels.WorkflowFilter) ([]approvalapimodels.WorkflowView, int64, error)
	Deactivate(spaceID, id string) (hMsg string, err error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{
		store: approvalworkflowstore.NewInstance(db.DB),
	}
}

type impl struct {
	store approvalworkflowstore.Provider
}

func (i impl) Create(spaceID string, data approvalapimodels.WorkflowData) (id string, hMsg string, err error) {
	if hMsg = validateApprovers(data); hMsg != "" {
		return "", hMsg, nil
	}
	rec := dbmodels.ApprovalWorkflow{
		BaseSpaceModel: dbmodels.BaseSpaceModel{
			SpaceID: spaceID,
		},
		Name:             data.Name,
		Description:      data.Description,
		Resource:         data.Resource,
		Action:           data.Action,
		ThresholdField:   data.ThresholdField,
		ThresholdValue:   data.ThresholdValue,
		RequiresApproval: data.RequiresApproval == nil || *data.RequiresApproval,
		ApproverRoles:    pq.StringArray(data.ApproverRoles),
		ApproverUserIDs:  pq.StringArray(data.ApproverUserIDs),
		IsActive:         data.IsActive == nil || *data.IsActive,
	}
	id, err = i.store.Create(rec)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to create approval workflow")
	}
	log.
		WithField("space_id", spaceID).
		WithField("workflow_id", id).
		WithField("resource", data.Resource).
		WithField("action", data.Action).
		Info("approval workflow created")
	return id, "", nil
}

func (i impl) Update(spaceID, id string, data approvalapimodels.WorkflowData) (hMsg string, err error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return "", errors.Wrap(err, "failed to get approval workflow")
	}
	if rec == nil {
		return "approval workflow not found", nil
	}
	if hMsg = validateApprovers(data); hMsg != "" {
		return hMsg, nil
	}
	updMap := map[string]interface{}{
		"name":              data.Name,
		"description":       data.Description,
		"resource":          data.Resource,
		"action":            data.Action,
		"threshold_field":   data.ThresholdField,
		"threshold_value":   data.ThresholdValue,
		"approver_roles":    pq.StringArray(data.ApproverRoles),
		"approver_user_ids": pq.StringArray(data.ApproverUserIDs),
	}
	if data.RequiresApproval != nil {
		updMap["requires_approval"] = *data.RequiresApproval
	}
	if data.IsActive != nil {
		updMap["is_active"] = *data.IsActive
	}
	err = i.store.Update(spaceID, id, updMap)
	if err != nil {
		return "", errors.Wrap(err, "failed to update approval workflow")
	}
	return "", nil
}

func (i impl) GetByID(spaceID, id string) (*approvalapimodels.WorkflowView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get approval workflow")
	}
	if rec == nil {
		return nil, nil
	}
	view := approvalapimodels.WorkflowConvert(*rec)
	return &view, nil
}

func (i impl) List(spaceID string, filter approvalapimodels.WorkflowFilter) ([]approvalapimodels.WorkflowView, int64, error) {
	rowCount, err := i.store.ListCount(spaceID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count approval workflows")
	}
	page, limit := filter.GetPage()
	if int64((page-1)*limit) > rowCount {
		return []approvalapimodels.WorkflowView{}, rowCount, nil
	}
	list, err := i.store.List(spaceID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list approval workflows")
	}
	result := make([]approvalapimodels.WorkflowView, 0, len(list))
	for _, rec := range list {
		result = append(result, approvalapimodels.WorkflowConvert(rec))
	}
	return result, rowCount, nil
}

// Deactivate keeps the workflow row so past requests still resolve their approvers.
func (i impl) Deactivate(spaceID, id string) (hMsg string, err error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return "", errors.Wrap(err, "failed to get approval workflow")
	}
	if rec == nil {
		return "approval workflow not found", nil
	}
	err = i.store.Update(spaceID, id, map[string]interface{}{"is_active": false})
	if err != nil {
		return "", errors.Wrap(err, "failed to deactivate approval workflow")
	}
	log.
		WithField("space_id", spaceID).
		WithField("workflow_id", id).
		Info("approval workflow deactivated")
	return "", nil
}

func validateApprovers(data approvalapimodels.WorkflowData) string {
	requires := data.RequiresApproval == nil || *data.RequiresApproval
	if requires && len(data.ApproverRoles) == 0 && len(data.ApproverUserIDs) == 0 {
		return "at least one approver role or approver user is required"
	}
	for _, role := range data.ApproverRoles {
		if !models.UserRole(role).IsValid() {
			return fmt.Sprintf("unknown approver role: %v", role)
		}
	}
	return ""
}
