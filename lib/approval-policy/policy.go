package approvalpolicy

import (
	"encoding/json"
	"strconv"
	"strings"

	"crm-backend/db"
	approvalrequesthandler "crm-backend/lib/approval-request"
	approvalworkflowstore "crm-backend/lib/approval-workflow/store"
	"crm-backend/lib/automation/condition"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/models"
	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Attempt is the operation a caller wants to perform on a protected resource.
type Attempt struct {
	Resource   string
	ResourceID string
	Action     string
	Payload    map[string]any
	// OriginalValues is the state being replaced, kept in the request metadata.
	OriginalValues map[string]any
	Reason         *string
}

type CheckResult struct {
	RequiresApproval  bool
	ApprovalRequestID string
	// Error is set when the decision could not be recorded. The caller must block the operation.
	Error string
}

type WorkflowSource interface {
	FindActive(spaceID, resource, action string) ([]dbmodels.ApprovalWorkflow, error)
}

type Provider interface {
	// CheckRequired returns the workflow that gates the attempt, or nil.
	CheckRequired(spaceID string, attempt Attempt) (*dbmodels.ApprovalWorkflow, error)
	// CheckAndRequestApproval decides and records, it never runs the operation.
	CheckAndRequestApproval(reqCtx models.RequestContext, attempt Attempt) CheckResult
}

var Instance Provider

func NewHandler() {
	initchecker.CheckInit("approval requests", approvalrequesthandler.Instance)
	Instance = NewInstance(approvalworkflowstore.NewInstance(db.DB), approvalrequesthandler.Instance)
}

func NewInstance(workflows WorkflowSource, requests approvalrequesthandler.Provider) Provider {
	return impl{
		workflows: workflows,
		requests:  requests,
	}
}

type impl struct {
	workflows WorkflowSource
	requests  approvalrequesthandler.Provider
}

func (i impl) CheckRequired(spaceID string, attempt Attempt) (*dbmodels.ApprovalWorkflow, error) {
	list, err := i.workflows.FindActive(spaceID, attempt.Resource, attempt.Action)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up approval workflow")
	}
	for idx := range list {
		wf := list[idx]
		if !wf.RequiresApproval {
			continue
		}
		if wf.HasThreshold() && !thresholdExceeded(spaceID, wf, attempt.Payload) {
			continue
		}
		return &wf, nil
	}
	return nil, nil
}

func (i impl) CheckAndRequestApproval(reqCtx models.RequestContext, attempt Attempt) CheckResult {
	logger := log.
		WithField("space_id", reqCtx.SpaceID).
		WithField("resource", attempt.Resource).
		WithField("resource_id", attempt.ResourceID).
		WithField("action", attempt.Action)
	wf, err := i.CheckRequired(reqCtx.SpaceID, attempt)
	if err != nil {
		logger.WithError(err).Error("approval check failed")
		return CheckResult{RequiresApproval: true, Error: err.Error()}
	}
	if wf == nil {
		return CheckResult{RequiresApproval: false}
	}
	logger = logger.WithField("workflow_id", wf.ID)

	pending, err := i.requests.GetPending(reqCtx.SpaceID, attempt.Resource, attempt.ResourceID, attempt.Action)
	if err != nil {
		logger.WithError(err).Error("approval check failed")
		return CheckResult{RequiresApproval: true, Error: err.Error()}
	}
	if pending != nil {
		return CheckResult{RequiresApproval: true, ApprovalRequestID: pending.ID}
	}

	workflowID := wf.ID
	id, err := i.requests.Create(reqCtx, approvalapimodels.RequestCreateData{
		WorkflowID:    &workflowID,
		Resource:      attempt.Resource,
		ResourceID:    attempt.ResourceID,
		Action:        attempt.Action,
		RequestedByID: reqCtx.CallerID,
		Reason:        attempt.Reason,
		Metadata:      BuildMetadata(attempt),
	})
	if err != nil {
		if conflict, ok := approvalrequesthandler.AsConflict(err); ok {
			return CheckResult{RequiresApproval: true, ApprovalRequestID: conflict.ExistingID}
		}
		logger.WithError(err).Error("failed to record approval request")
		return CheckResult{RequiresApproval: true, Error: err.Error()}
	}
	return CheckResult{RequiresApproval: true, ApprovalRequestID: id}
}

// BuildMetadata snapshots the attempt: payload keys at the root plus action,
// updateData and originalValues.
func BuildMetadata(attempt Attempt) map[string]any {
	metadata := map[string]any{}
	for key, value := range attempt.Payload {
		metadata[key] = value
	}
	metadata["action"] = attempt.Action
	metadata["updateData"] = attempt.Payload
	if len(attempt.OriginalValues) != 0 {
		metadata["originalValues"] = attempt.OriginalValues
	}
	return metadata
}

// thresholdExceeded compares numerically with ">". A missing or non-numeric
// payload value does not meet the threshold.
func thresholdExceeded(spaceID string, wf dbmodels.ApprovalWorkflow, payload map[string]any) bool {
	raw, found := condition.ResolvePath(payload, *wf.ThresholdField)
	if !found {
		return false
	}
	value, ok := toFloat(raw)
	if !ok {
		log.
			WithField("space_id", spaceID).
			WithField("workflow_id", wf.ID).
			WithField("threshold_field", *wf.ThresholdField).
			Warnf("threshold value %v is not numeric, threshold treated as not met", raw)
		return false
	}
	return value > *wf.ThresholdValue
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
