package mutationguard

import (
	"fmt"

	approvalpolicy "crm-backend/lib/approval-policy"
	approvalrequesthandler "crm-backend/lib/approval-request"
	audithandler "crm-backend/lib/audit"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/models"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Outcome string

const (
	Executed         Outcome = "executed"
	PendingExists    Outcome = "pending_approval"
	ApprovalRequired Outcome = "approval_required"
	Failed           Outcome = "failed"
)

// Operation is a protected mutation. Execute runs only when the guard lets it through.
type Operation struct {
	Resource       string
	ResourceID     string
	Action         string
	Payload        map[string]any
	OriginalValues map[string]any
	Reason         *string
	Execute        func() error
	// AuditMessage describes the mutation in the audit entry written after it succeeds.
	AuditMessage string
}

var (
	ErrApprovalUnverified = errors.New("approval state could not be verified")
	ErrOperationFailed    = errors.New("operation failed")
)

// Result.Err keeps the internal cause for logs. Message is what the caller sees.
type Result struct {
	Outcome           Outcome
	ApprovalRequestID string
	Err               error
}

func (r Result) Message() string {
	switch r.Outcome {
	case PendingExists:
		return "an approval request for this operation is already pending"
	case ApprovalRequired:
		return "this operation requires approval"
	case Failed:
		if errors.Is(r.Err, ErrApprovalUnverified) {
			return ErrApprovalUnverified.Error()
		}
		return ErrOperationFailed.Error()
	}
	return ""
}

type Provider interface {
	Protect(reqCtx models.RequestContext, op Operation) Result
}

var Instance Provider

func NewHandler() {
	initchecker.CheckInit(
		"approval requests", approvalrequesthandler.Instance,
		"approval policy", approvalpolicy.Instance,
		"audit", audithandler.Instance,
	)
	Instance = NewInstance(approvalrequesthandler.Instance, approvalpolicy.Instance, audithandler.Instance)
}

func NewInstance(requests approvalrequesthandler.Provider, policy approvalpolicy.Provider, audit audithandler.Provider) Provider {
	return impl{
		requests: requests,
		policy:   policy,
		audit:    audit,
	}
}

type impl struct {
	requests approvalrequesthandler.Provider
	policy   approvalpolicy.Provider
	audit    audithandler.Provider
}

func (i impl) Protect(reqCtx models.RequestContext, op Operation) Result {
	logger := log.
		WithField("space_id", reqCtx.SpaceID).
		WithField("user_id", reqCtx.CallerID).
		WithField("resource", op.Resource).
		WithField("resource_id", op.ResourceID).
		WithField("action", op.Action)

	pending, err := i.requests.GetPending(reqCtx.SpaceID, op.Resource, op.ResourceID, op.Action)
	if err != nil {
		logger.WithError(err).Error("guard blocked operation: pending lookup failed")
		return Result{Outcome: Failed, Err: errors.Wrap(ErrApprovalUnverified, err.Error())}
	}
	if pending != nil {
		return Result{Outcome: PendingExists, ApprovalRequestID: pending.ID}
	}

	granted, err := i.requests.FindGrantedApproval(reqCtx.SpaceID, op.Resource, op.ResourceID, op.Action, op.Payload)
	if err != nil {
		logger.WithError(err).Error("guard blocked operation: granted approval lookup failed")
		return Result{Outcome: Failed, Err: errors.Wrap(ErrApprovalUnverified, err.Error())}
	}
	if granted != nil {
		result, claimed := i.executeGranted(reqCtx, op, granted.ID, logger.WithField("approval_request_id", granted.ID))
		if claimed {
			return result
		}
	}

	check := i.policy.CheckAndRequestApproval(reqCtx, approvalpolicy.Attempt{
		Resource:       op.Resource,
		ResourceID:     op.ResourceID,
		Action:         op.Action,
		Payload:        op.Payload,
		OriginalValues: op.OriginalValues,
		Reason:         op.Reason,
	})
	if check.Error != "" {
		logger.WithField("check_error", check.Error).Error("guard blocked operation: approval check failed")
		return Result{Outcome: Failed, Err: errors.Wrap(ErrApprovalUnverified, check.Error)}
	}
	if check.RequiresApproval {
		logger.WithField("approval_request_id", check.ApprovalRequestID).Info("operation deferred for approval")
		return Result{Outcome: ApprovalRequired, ApprovalRequestID: check.ApprovalRequestID}
	}

	if err = op.Execute(); err != nil {
		logger.WithError(err).Error("guarded operation failed")
		return Result{Outcome: Failed, Err: err}
	}
	i.auditExecuted(reqCtx, op, "")
	return Result{Outcome: Executed}
}

// executeGranted claims the approval before running the mutation. claimed is
// false when a concurrent attempt took the approval first.
func (i impl) executeGranted(reqCtx models.RequestContext, op Operation, approvalID string, logger *log.Entry) (result Result, claimed bool) {
	if err := i.requests.Consume(reqCtx.SpaceID, approvalID); err != nil {
		if errors.Is(err, approvalrequesthandler.ErrInvalidState) {
			logger.Info("approval was already used by another attempt")
			return Result{}, false
		}
		logger.WithError(err).Error("guard blocked operation: approval claim failed")
		return Result{Outcome: Failed, Err: errors.Wrap(ErrApprovalUnverified, err.Error())}, true
	}
	if err := op.Execute(); err != nil {
		logger.WithError(err).Error("approved operation failed")
		if releaseErr := i.requests.Release(reqCtx.SpaceID, approvalID); releaseErr != nil {
			logger.WithError(releaseErr).Error("failed to release approval after failed operation")
		}
		return Result{Outcome: Failed, Err: err}, true
	}
	i.auditExecuted(reqCtx, op, approvalID)
	return Result{Outcome: Executed, ApprovalRequestID: approvalID}, true
}

func (i impl) auditExecuted(reqCtx models.RequestContext, op Operation, approvalRequestID string) {
	message := op.AuditMessage
	if message == "" {
		message = fmt.Sprintf("%v %v executed", op.Resource, op.Action)
	}
	ctx := map[string]any{}
	for key, value := range op.Payload {
		ctx[key] = value
	}
	if approvalRequestID != "" {
		ctx["approval_request_id"] = approvalRequestID
	}
	i.audit.LogEvent(reqCtx, audithandler.Event{
		Message:    message,
		Resource:   op.Resource,
		ResourceID: op.ResourceID,
		Action:     op.Resource + "_" + op.Action,
		Context:    ctx,
	})
}
