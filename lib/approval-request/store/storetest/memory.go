// Package storetest holds an in-memory approval request store for handler tests.
package storetest

import (
	"sort"
	"sync"
	"time"

	approvalrequeststore "crm-backend/lib/approval-request/store"
	"crm-backend/models"
	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var _ approvalrequeststore.Provider = (*Memory)(nil)

// Memory mirrors the database pending uniqueness rule and the conditional
// consume update.
type Memory struct {
	mu        sync.Mutex
	recs      map[string]*dbmodels.ApprovalRequest
	workflows map[string]dbmodels.ApprovalWorkflow
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryInstance(workflows ...dbmodels.ApprovalWorkflow) *Memory {
	m := &Memory{
		recs:      map[string]*dbmodels.ApprovalRequest{},
		workflows: map[string]dbmodels.ApprovalWorkflow{},
	}
	for _, wf := range workflows {
		m.workflows[wf.ID] = wf
	}
	return m
}

func (m *Memory) Create(rec dbmodels.ApprovalRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if rec.Status == models.ApprovalPending {
		for _, item := range m.recs {
			if item.Status == models.ApprovalPending && sameTarget(item, rec.SpaceID, rec.Resource, rec.ResourceID, rec.Action) {
				return "", gorm.ErrDuplicatedKey
			}
		}
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	m.recs[rec.ID] = &rec
	return rec.ID, nil
}

func (m *Memory) GetByID(spaceID, id string) (*dbmodels.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rec, ok := m.recs[id]
	if !ok || rec.SpaceID != spaceID {
		return nil, nil
	}
	return m.withWorkflow(*rec), nil
}

func (m *Memory) FindPending(spaceID, resource, resourceID, action string) (*dbmodels.ApprovalRequest, error) {
	return m.find(func(rec *dbmodels.ApprovalRequest) bool {
		return rec.Status == models.ApprovalPending && sameTarget(rec, spaceID, resource, resourceID, action)
	})
}

func (m *Memory) ListGranted(spaceID, resource, resourceID, action string) ([]dbmodels.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := []dbmodels.ApprovalRequest{}
	for _, rec := range m.sorted() {
		if rec.Status == models.ApprovalApproved && rec.ConsumedAt == nil && sameTarget(rec, spaceID, resource, resourceID, action) {
			list = append(list, *rec)
		}
	}
	sort.SliceStable(list, func(a, b int) bool {
		return approvedAt(list[a]).After(approvedAt(list[b]))
	})
	return list, nil
}

func (m *Memory) Transition(spaceID, id string, from models.ApprovalStatus, updMap map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	rec, ok := m.recs[id]
	if !ok || rec.SpaceID != spaceID || rec.Status != from {
		return false, nil
	}
	for key, value := range updMap {
		switch key {
		case "status":
			rec.Status = value.(models.ApprovalStatus)
		case "approved_by_id":
			userID := value.(string)
			rec.ApprovedByID = &userID
		case "approved_at":
			at := value.(time.Time)
			rec.ApprovedAt = &at
		case "rejection_reason":
			reason := value.(string)
			rec.RejectionReason = &reason
		default:
			return false, errors.Errorf("unexpected column %v", key)
		}
	}
	return true, nil
}

func (m *Memory) MarkConsumed(spaceID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	rec, ok := m.recs[id]
	if !ok || rec.SpaceID != spaceID || rec.Status != models.ApprovalApproved || rec.ConsumedAt != nil {
		return false, nil
	}
	rec.ConsumedAt = &at
	return true, nil
}

func (m *Memory) ReleaseConsumed(spaceID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	rec, ok := m.recs[id]
	if !ok || rec.SpaceID != spaceID || rec.Status != models.ApprovalApproved || rec.ConsumedAt == nil {
		return false, nil
	}
	rec.ConsumedAt = nil
	return true, nil
}

// IsConsumed reports whether the approval was claimed by a mutation.
func (m *Memory) IsConsumed(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	return ok && rec.ConsumedAt != nil
}

func (m *Memory) ListPendingForApprover(spaceID, userID string, role models.UserRole, all bool) ([]dbmodels.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := []dbmodels.ApprovalRequest{}
	for _, rec := range m.sorted() {
		if rec.SpaceID != spaceID || rec.Status != models.ApprovalPending {
			continue
		}
		full := m.withWorkflow(*rec)
		if !all && (full.Workflow == nil || !full.Workflow.IsApprover(userID, string(role))) {
			continue
		}
		list = append(list, *full)
	}
	return list, nil
}

func (m *Memory) CountPendingForApprover(spaceID, userID string, role models.UserRole, all bool) (int64, error) {
	list, err := m.ListPendingForApprover(spaceID, userID, role, all)
	return int64(len(list)), err
}

func (m *Memory) ListCount(spaceID, userID string, filter approvalapimodels.RequestFilter) (int64, error) {
	list, err := m.List(spaceID, userID, filter)
	return int64(len(list)), err
}

func (m *Memory) List(spaceID, userID string, filter approvalapimodels.RequestFilter) ([]dbmodels.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := []dbmodels.ApprovalRequest{}
	for _, rec := range m.sorted() {
		if rec.SpaceID != spaceID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Resource != "" && rec.Resource != filter.Resource {
			continue
		}
		if filter.MyRequests && rec.RequestedByID != userID {
			continue
		}
		list = append(list, *m.withWorkflow(*rec))
	}
	return list, nil
}

func (m *Memory) find(match func(rec *dbmodels.ApprovalRequest) bool) (*dbmodels.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, rec := range m.sorted() {
		if match(rec) {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Memory) sorted() []*dbmodels.ApprovalRequest {
	list := make([]*dbmodels.ApprovalRequest, 0, len(m.recs))
	for _, rec := range m.recs {
		list = append(list, rec)
	}
	sort.Slice(list, func(a, b int) bool {
		return list[a].CreatedAt.Before(list[b].CreatedAt)
	})
	return list
}

func (m *Memory) withWorkflow(rec dbmodels.ApprovalRequest) *dbmodels.ApprovalRequest {
	if rec.WorkflowID != nil {
		if wf, ok := m.workflows[*rec.WorkflowID]; ok {
			rec.Workflow = &wf
		}
	}
	return &rec
}

func sameTarget(rec *dbmodels.ApprovalRequest, spaceID, resource, resourceID, action string) bool {
	return rec.SpaceID == spaceID && rec.Resource == resource && rec.ResourceID == resourceID && rec.Action == action
}

func approvedAt(rec dbmodels.ApprovalRequest) time.Time {
	if rec.ApprovedAt == nil {
		return time.Time{}
	}
	return *rec.ApprovedAt
}
