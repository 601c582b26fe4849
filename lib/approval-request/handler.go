package approvalrequesthandler

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"crm-backend/config"
	"crm-backend/db"
	approvalrequeststore "crm-backend/lib/approval-request/store"
	audithandler "crm-backend/lib/audit"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/lib/utils/lock"
	"crm-backend/models"
	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Provider interface {
	IsPendingApproval(spaceID, resource, resourceID, action string) (bool, error)
	GetPending(spaceID, resource, resourceID, action string) (*dbmodels.ApprovalRequest, error)
	// Create returns *ConflictError when a pending request for the same target already exists.
	Create(reqCtx models.RequestContext, data approvalapimodels.RequestCreateData) (id string, err error)
	GetPendingApprovals(reqCtx models.RequestContext) ([]approvalapimodels.RequestView, error)
	CountPendingApprovals(reqCtx models.RequestContext) (int64, error)
	Approve(reqCtx models.RequestContext, id string, data approvalapimodels.ApproveData) error
	Reject(reqCtx models.RequestContext, id string, data approvalapimodels.RejectData) error
	// FindGrantedApproval returns the newest unconsumed approval whose approved
	// updateData equals payload. An approval for other values does not match.
	FindGrantedApproval(spaceID, resource, resourceID, action string, payload map[string]any) (*dbmodels.ApprovalRequest, error)
	// Consume claims a granted approval so it can not unlock another operation.
	// ErrInvalidState means somebody else claimed it first.
	Consume(spaceID, id string) error
	// Release gives a claimed approval back after the mutation failed.
	Release(spaceID, id string) error
	GetByID(spaceID, id string) (*approvalapimodels.RequestView, error)
	List(reqCtx models.RequestContext, filter approvalapimodels.RequestFilter) ([]approvalapimodels.RequestView, int64, error)
	History(spaceID, id string) ([]approvalapimodels.HistoryView, error)
}

var Instance Provider

func NewHandler() {
	initchecker.CheckInit("audit", audithandler.Instance)
	Instance = NewInstance(
		approvalrequeststore.NewInstance(db.DB),
		audithandler.Instance,
		*config.Conf.Approval.AdminOverride,
		time.Duration(config.Conf.Approval.CreateLockWaitMs)*time.Millisecond,
	)
}

func NewInstance(store approvalrequeststore.Provider, audit audithandler.Provider, adminOverride bool, lockWait time.Duration) Provider {
	return impl{
		store:         store,
		audit:         audit,
		adminOverride: adminOverride,
		lockWait:      lockWait,
		now:           time.Now,
	}
}

type impl struct {
	store         approvalrequeststore.Provider
	audit         audithandler.Provider
	adminOverride bool
	lockWait      time.Duration
	now           func() time.Time
}

func (i impl) getLogger(spaceID, requestID string) *log.Entry {
	logger := log.WithField("space_id", spaceID)
	if requestID != "" {
		logger = logger.WithField("approval_request_id", requestID)
	}
	return logger
}

func (i impl) IsPendingApproval(spaceID, resource, resourceID, action string) (bool, error) {
	rec, err := i.GetPending(spaceID, resource, resourceID, action)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (i impl) GetPending(spaceID, resource, resourceID, action string) (*dbmodels.ApprovalRequest, error) {
	rec, err := i.store.FindPending(spaceID, resource, resourceID, action)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up pending approval request")
	}
	return rec, nil
}

func (i impl) Create(reqCtx models.RequestContext, data approvalapimodels.RequestCreateData) (id string, err error) {
	logger := i.getLogger(reqCtx.SpaceID, "").
		WithField("resource", data.Resource).
		WithField("resource_id", data.ResourceID).
		WithField("action", data.Action)
	rec := dbmodels.ApprovalRequest{
		BaseSpaceModel: dbmodels.BaseSpaceModel{
			SpaceID: reqCtx.SpaceID,
		},
		WorkflowID:    data.WorkflowID,
		Resource:      data.Resource,
		ResourceID:    data.ResourceID,
		Action:        data.Action,
		Status:        models.ApprovalPending,
		RequestedByID: data.RequestedByID,
		RequestedAt:   i.now(),
		Reason:        data.Reason,
	}
	if len(data.Metadata) != 0 {
		body, err := json.Marshal(data.Metadata)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode approval request metadata")
		}
		rec.Metadata = datatypes.JSON(body)
	}

	key := strings.Join([]string{"approval", reqCtx.SpaceID, data.Resource, data.ResourceID, data.Action}, ":")
	locked, err := lock.WithDelay(key, i.lockWait, func() error {
		existing, err := i.store.FindPending(reqCtx.SpaceID, data.Resource, data.ResourceID, data.Action)
		if err != nil {
			return errors.Wrap(err, "failed to look up pending approval request")
		}
		if existing != nil {
			return &ConflictError{ExistingID: existing.ID}
		}
		id, err = i.store.Create(rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrap(err, "failed to create approval request")
		}
		// another instance won the race, the partial unique index kept one pending row
		existing, findErr := i.store.FindPending(reqCtx.SpaceID, data.Resource, data.ResourceID, data.Action)
		if findErr != nil || existing == nil {
			return errors.Wrap(err, "failed to create approval request")
		}
		return &ConflictError{ExistingID: existing.ID}
	})
	if !locked {
		return "", ErrBusy
	}
	if err != nil {
		return "", err
	}
	logger.WithField("approval_request_id", id).Info("approval request created")
	i.audit.LogEvent(reqCtx, audithandler.Event{
		Message:    fmt.Sprintf("approval requested for %v %v", data.Resource, data.Action),
		Resource:   data.Resource,
		ResourceID: data.ResourceID,
		Action:     audithandler.EventApprovalRequested,
		Context: map[string]any{
			"approval_request_id": id,
			"workflow_id":         data.WorkflowID,
		},
	})
	return id, nil
}

func (i impl) GetPendingApprovals(reqCtx models.RequestContext) ([]approvalapimodels.RequestView, error) {
	list, err := i.store.ListPendingForApprover(reqCtx.SpaceID, reqCtx.CallerID, reqCtx.CallerRole, i.seesAll(reqCtx.CallerRole))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending approvals")
	}
	result := make([]approvalapimodels.RequestView, 0, len(list))
	for _, rec := range list {
		result = append(result, approvalapimodels.RequestConvert(rec))
	}
	return result, nil
}

func (i impl) CountPendingApprovals(reqCtx models.RequestContext) (int64, error) {
	count, err := i.store.CountPendingForApprover(reqCtx.SpaceID, reqCtx.CallerID, reqCtx.CallerRole, i.seesAll(reqCtx.CallerRole))
	if err != nil {
		return 0, errors.Wrap(err, "failed to count pending approvals")
	}
	return count, nil
}

func (i impl) Approve(reqCtx models.RequestContext, id string, data approvalapimodels.ApproveData) error {
	approvedAt := i.now()
	updMap := map[string]interface{}{
		"status":         models.ApprovalApproved,
		"approved_by_id": reqCtx.CallerID,
		"approved_at":    approvedAt,
	}
	rec, err := i.transition(reqCtx, id, models.ApprovalApproved, updMap)
	if err != nil {
		return err
	}
	ctx := map[string]any{"approval_request_id": id}
	if data.Comment != "" {
		ctx["comment"] = data.Comment
	}
	i.audit.LogEvent(reqCtx, audithandler.Event{
		Message:    fmt.Sprintf("approval granted for %v %v", rec.Resource, rec.Action),
		Resource:   rec.Resource,
		ResourceID: rec.ResourceID,
		Action:     audithandler.EventApprovalApproved,
		Context:    ctx,
	})
	return nil
}

func (i impl) Reject(reqCtx models.RequestContext, id string, data approvalapimodels.RejectData) error {
	if err := data.Validate(); err != nil {
		return ErrReasonRequired
	}
	reason := strings.TrimSpace(data.Reason)
	// approved_by_id/approved_at record whoever decided the request
	updMap := map[string]interface{}{
		"status":           models.ApprovalRejected,
		"approved_by_id":   reqCtx.CallerID,
		"approved_at":      i.now(),
		"rejection_reason": reason,
	}
	rec, err := i.transition(reqCtx, id, models.ApprovalRejected, updMap)
	if err != nil {
		return err
	}
	i.audit.LogEvent(reqCtx, audithandler.Event{
		Level:      audithandler.LevelWarn,
		Message:    fmt.Sprintf("approval rejected for %v %v", rec.Resource, rec.Action),
		Resource:   rec.Resource,
		ResourceID: rec.ResourceID,
		Action:     audithandler.EventApprovalRejected,
		Context: map[string]any{
			"approval_request_id": id,
			"rejection_reason":    reason,
		},
	})
	return nil
}

func (i impl) transition(reqCtx models.RequestContext, id string, next models.ApprovalStatus, updMap map[string]interface{}) (*dbmodels.ApprovalRequest, error) {
	logger := i.getLogger(reqCtx.SpaceID, id).
		WithField("caller_id", reqCtx.CallerID).
		WithField("status", next)
	rec, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get approval request")
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if !rec.Status.AllowTransition(next) {
		return nil, ErrInvalidState
	}
	if !i.canDecide(reqCtx, rec) {
		logger.Warn("approval decision refused: caller is not an approver")
		return nil, ErrForbidden
	}
	updated, err := i.store.Transition(reqCtx.SpaceID, id, models.ApprovalPending, updMap)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update approval request")
	}
	if !updated {
		// decided concurrently by someone else
		return nil, ErrInvalidState
	}
	logger.Info("approval request decided")
	return rec, nil
}

func (i impl) canDecide(reqCtx models.RequestContext, rec *dbmodels.ApprovalRequest) bool {
	if i.seesAll(reqCtx.CallerRole) {
		return true
	}
	if rec.Workflow == nil {
		return false
	}
	return rec.Workflow.IsApprover(reqCtx.CallerID, string(reqCtx.CallerRole))
}

func (i impl) seesAll(role models.UserRole) bool {
	return i.adminOverride && role.IsAdmin()
}

func (i impl) FindGrantedApproval(spaceID, resource, resourceID, action string, payload map[string]any) (*dbmodels.ApprovalRequest, error) {
	list, err := i.store.ListGranted(spaceID, resource, resourceID, action)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up granted approval")
	}
	if len(list) == 0 {
		return nil, nil
	}
	attempted, err := normalizeJSON(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to normalize payload")
	}
	for idx := range list {
		approved, err := approvedUpdateData(list[idx].Metadata)
		if err != nil {
			i.getLogger(spaceID, list[idx].ID).WithError(err).Warn("approval metadata is unreadable, approval skipped")
			continue
		}
		if reflect.DeepEqual(attempted, approved) {
			return &list[idx], nil
		}
	}
	i.getLogger(spaceID, "").
		WithField("resource", resource).
		WithField("resource_id", resourceID).
		WithField("action", action).
		Info("granted approval does not cover the attempted values")
	return nil, nil
}

func (i impl) Consume(spaceID, id string) error {
	updated, err := i.store.MarkConsumed(spaceID, id, i.now())
	if err != nil {
		return errors.Wrap(err, "failed to consume approval")
	}
	if !updated {
		return ErrInvalidState
	}
	return nil
}

func (i impl) Release(spaceID, id string) error {
	updated, err := i.store.ReleaseConsumed(spaceID, id)
	if err != nil {
		return errors.Wrap(err, "failed to release approval")
	}
	if !updated {
		return ErrInvalidState
	}
	return nil
}

// approvedUpdateData extracts the values the approver saw. Missing updateData
// is an empty payload.
func approvedUpdateData(metadata datatypes.JSON) (map[string]any, error) {
	if len(metadata) == 0 {
		return map[string]any{}, nil
	}
	parsed := struct {
		UpdateData map[string]any `json:"updateData"`
	}{}
	if err := json.Unmarshal(metadata, &parsed); err != nil {
		return nil, err
	}
	if parsed.UpdateData == nil {
		return map[string]any{}, nil
	}
	return parsed.UpdateData, nil
}

// normalizeJSON round-trips the payload so values compare the way they were stored.
func normalizeJSON(payload map[string]any) (map[string]any, error) {
	normalized := map[string]any{}
	if len(payload) == 0 {
		return normalized, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(body, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (i impl) GetByID(spaceID, id string) (*approvalapimodels.RequestView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get approval request")
	}
	if rec == nil {
		return nil, nil
	}
	view := approvalapimodels.RequestConvert(*rec)
	return &view, nil
}

func (i impl) List(reqCtx models.RequestContext, filter approvalapimodels.RequestFilter) ([]approvalapimodels.RequestView, int64, error) {
	rowCount, err := i.store.ListCount(reqCtx.SpaceID, reqCtx.CallerID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count approval requests")
	}
	page, limit := filter.GetPage()
	if int64((page-1)*limit) > rowCount {
		return []approvalapimodels.RequestView{}, rowCount, nil
	}
	list, err := i.store.List(reqCtx.SpaceID, reqCtx.CallerID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list approval requests")
	}
	result := make([]approvalapimodels.RequestView, 0, len(list))
	for _, rec := range list {
		result = append(result, approvalapimodels.RequestConvert(rec))
	}
	return result, rowCount, nil
}

func (i impl) History(spaceID, id string) ([]approvalapimodels.HistoryView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get approval request")
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	list, err := i.audit.ListByResource(spaceID, rec.Resource, rec.ResourceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read approval history")
	}
	result := []approvalapimodels.HistoryView{}
	for _, item := range list {
		if !belongsTo(item, id, rec.RequestedAt) {
			continue
		}
		result = append(result, approvalapimodels.HistoryConvert(item))
	}
	return result, nil
}

// belongsTo keeps audit entries that reference the request, plus the guarded
// operation that consumed it.
func belongsTo(item dbmodels.AuditLog, requestID string, requestedAt time.Time) bool {
	if item.CreatedAt.Before(requestedAt.Add(-time.Second)) {
		return false
	}
	if len(item.Context) == 0 {
		return false
	}
	ctx := map[string]any{}
	if err := json.Unmarshal(item.Context, &ctx); err != nil {
		return false
	}
	return ctx["approval_request_id"] == requestID
}
