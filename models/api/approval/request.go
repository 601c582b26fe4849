package approvalapimodels

import (
	"crm-backend/models"
	apimodels "crm-backend/models/api"
	dbmodels "crm-backend/models/db"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type RequestFilter struct {
	apimodels.Pagination
	Status     models.ApprovalStatus `json:"status"`
	Resource   string                `json:"resource"`
	MyRequests bool                  `json:"my_requests"` // only requests created by the caller
}

type RequestCreateData struct {
	WorkflowID    *string
	Resource      string
	ResourceID    string
	Action        string
	RequestedByID string
	Reason        *string
	Metadata      map[string]any
}

type ApproveData struct {
	Comment string `json:"comment"`
}

type RejectData struct {
	Reason string `json:"reason"` // required
}

func (r RejectData) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return errors.New("rejection reason is required")
	}
	return nil
}

type RequestView struct {
	ID              string                `json:"id"`
	WorkflowID      *string               `json:"workflow_id,omitempty"`
	WorkflowName    string                `json:"workflow_name,omitempty"`
	Resource        string                `json:"resource"`
	ResourceID      string                `json:"resource_id"`
	Action          string                `json:"action"`
	Status          models.ApprovalStatus `json:"status"`
	StatusName      string                `json:"status_name"`
	RequestedByID   string                `json:"requested_by_id"`
	RequestedAt     time.Time             `json:"requested_at"`
	ApprovedByID    *string               `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time            `json:"approved_at,omitempty"`
	Reason          *string               `json:"reason,omitempty"`
	RejectionReason *string               `json:"rejection_reason,omitempty"`
	Metadata        json.RawMessage       `json:"metadata,omitempty"`
	ConsumedAt      *time.Time            `json:"consumed_at,omitempty"`
}

func RequestConvert(rec dbmodels.ApprovalRequest) RequestView {
	view := RequestView{
		ID:              rec.ID,
		WorkflowID:      rec.WorkflowID,
		Resource:        rec.Resource,
		ResourceID:      rec.ResourceID,
		Action:          rec.Action,
		Status:          rec.Status,
		StatusName:      rec.Status.ToHuman(),
		RequestedByID:   rec.RequestedByID,
		RequestedAt:     rec.RequestedAt,
		ApprovedByID:    rec.ApprovedByID,
		ApprovedAt:      rec.ApprovedAt,
		Reason:          rec.Reason,
		RejectionReason: rec.RejectionReason,
		ConsumedAt:      rec.ConsumedAt,
	}
	if rec.Workflow != nil {
		view.WorkflowName = rec.Workflow.Name
	}
	if len(rec.Metadata) != 0 {
		view.Metadata = json.RawMessage(rec.Metadata)
	}
	return view
}

type HistoryView struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Message   string          `json:"message"`
	UserID    string          `json:"user_id"`
	IPAddress string          `json:"ip_address,omitempty"`
	Context   json.RawMessage `json:"context,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func HistoryConvert(rec dbmodels.AuditLog) HistoryView {
	view := HistoryView{
		ID:        rec.ID,
		Action:    rec.Action,
		Message:   rec.Message,
		UserID:    rec.UserID,
		IPAddress: rec.IPAddress,
		CreatedAt: rec.CreatedAt,
	}
	if len(rec.Context) != 0 {
		view.Context = json.RawMessage(rec.Context)
	}
	return view
}

// GuardResponse is returned when a protected operation was deferred.
type GuardResponse struct {
	ApprovalRequestID string `json:"approval_request_id,omitempty"`
	Outcome           string `json:"outcome"`
}
