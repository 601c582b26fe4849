package approvalpolicy

import (
	"testing"
	"time"

	approvalrequesthandler "crm-backend/lib/approval-request"
	"crm-backend/lib/approval-request/store/storetest"
	audithandler "crm-backend/lib/audit"
	"crm-backend/models"
	dbmodels "crm-backend/models/db"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type workflowSourceMock struct {
	list []dbmodels.ApprovalWorkflow
	err  error
}

func (m *workflowSourceMock) FindActive(spaceID, resource, action string) ([]dbmodels.ApprovalWorkflow, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := []dbmodels.ApprovalWorkflow{}
	for _, wf := range m.list {
		if wf.Resource == resource && wf.Action == action && wf.IsActive {
			result = append(result, wf)
		}
	}
	return result, nil
}

type auditMock struct{}

func (auditMock) LogEvent(reqCtx models.RequestContext, event audithandler.Event) {}
func (auditMock) ListByResource(spaceID, resource, resourceID string) ([]dbmodels.AuditLog, error) {
	return nil, nil
}

var reqCtx = models.RequestContext{SpaceID: "s-1", CallerID: "u-1", CallerRole: models.SalesRole, IPAddress: "127.0.0.1"}

func amountWorkflow() dbmodels.ApprovalWorkflow {
	field := "amount"
	value := 10000.0
	return dbmodels.ApprovalWorkflow{
		BaseSpaceModel:   dbmodels.BaseSpaceModel{BaseModel: dbmodels.BaseModel{ID: "wf-amount"}, SpaceID: "s-1"},
		Resource:         models.ResourceDeal,
		Action:           models.ActionAmountOverride,
		ThresholdField:   &field,
		ThresholdValue:   &value,
		RequiresApproval: true,
		ApproverRoles:    pq.StringArray{string(models.FinanceRole)},
		IsActive:         true,
	}
}

func newPolicy(workflows ...dbmodels.ApprovalWorkflow) (Provider, *storetest.Memory) {
	store := storetest.NewMemoryInstance(workflows...)
	requests := approvalrequesthandler.NewInstance(store, auditMock{}, true, time.Second)
	return NewInstance(&workflowSourceMock{list: workflows}, requests), store
}

func TestThreshold(t *testing.T) {
	policy, _ := newPolicy(amountWorkflow())
	attempt := func(amount any) Attempt {
		return Attempt{
			Resource:   models.ResourceDeal,
			ResourceID: "d-1",
			Action:     models.ActionAmountOverride,
			Payload:    map[string]any{"amount": amount},
		}
	}

	result := policy.CheckAndRequestApproval(reqCtx, attempt(5000))
	require.False(t, result.RequiresApproval)
	require.Empty(t, result.ApprovalRequestID)

	result = policy.CheckAndRequestApproval(reqCtx, attempt(10000))
	require.False(t, result.RequiresApproval)

	result = policy.CheckAndRequestApproval(reqCtx, attempt("not a number"))
	require.False(t, result.RequiresApproval)

	result = policy.CheckAndRequestApproval(reqCtx, Attempt{Resource: models.ResourceDeal, ResourceID: "d-1", Action: models.ActionAmountOverride})
	require.False(t, result.RequiresApproval)

	result = policy.CheckAndRequestApproval(reqCtx, attempt(15000))
	require.True(t, result.RequiresApproval)
	require.NotEmpty(t, result.ApprovalRequestID)
	require.Empty(t, result.Error)

	again := policy.CheckAndRequestApproval(reqCtx, attempt("20000.5"))
	require.True(t, again.RequiresApproval)
	require.Equal(t, result.ApprovalRequestID, again.ApprovalRequestID)
}

func TestNoWorkflow(t *testing.T) {
	inactive := amountWorkflow()
	inactive.IsActive = false
	noGate := amountWorkflow()
	noGate.RequiresApproval = false
	policy, _ := newPolicy(inactive, noGate)

	result := policy.CheckAndRequestApproval(reqCtx, Attempt{Resource: models.ResourceDeal, ResourceID: "d-1", Action: models.ActionAmountOverride, Payload: map[string]any{"amount": 50000}})
	require.False(t, result.RequiresApproval)

	result = policy.CheckAndRequestApproval(reqCtx, Attempt{Resource: models.ResourceCustomer, ResourceID: "c-1", Action: models.ActionDelete})
	require.False(t, result.RequiresApproval)
}

func TestFirstMatchingWorkflowGates(t *testing.T) {
	high := amountWorkflow()
	high.ID = "wf-high"
	value := 100000.0
	high.ThresholdValue = &value
	low := amountWorkflow()
	low.ID = "wf-low"
	policy, _ := newPolicy(high, low)

	wf, err := policy.CheckRequired("s-1", Attempt{Resource: models.ResourceDeal, Action: models.ActionAmountOverride, Payload: map[string]any{"amount": 20000}})
	require.NoError(t, err)
	require.Equal(t, "wf-low", wf.ID)

	wf, err = policy.CheckRequired("s-1", Attempt{Resource: models.ResourceDeal, Action: models.ActionAmountOverride, Payload: map[string]any{"amount": 200000}})
	require.NoError(t, err)
	require.Equal(t, "wf-high", wf.ID)
}

func TestMetadataSnapshot(t *testing.T) {
	policy, store := newPolicy(amountWorkflow())
	result := policy.CheckAndRequestApproval(reqCtx, Attempt{
		Resource:       models.ResourceDeal,
		ResourceID:     "d-1",
		Action:         models.ActionAmountOverride,
		Payload:        map[string]any{"amount": 15000},
		OriginalValues: map[string]any{"amount": 900},
	})
	require.True(t, result.RequiresApproval)
	rec, err := store.GetByID("s-1", result.ApprovalRequestID)
	require.NoError(t, err)
	require.Equal(t, "u-1", rec.RequestedByID)
	require.Equal(t, "wf-amount", *rec.WorkflowID)
	require.JSONEq(t, `{"amount":15000,"action":"amount_override","updateData":{"amount":15000},"originalValues":{"amount":900}}`, string(rec.Metadata))
}

func TestFailClosed(t *testing.T) {
	t.Run("workflow lookup error", func(t *testing.T) {
		store := storetest.NewMemoryInstance()
		requests := approvalrequesthandler.NewInstance(store, auditMock{}, true, time.Second)
		policy := NewInstance(&workflowSourceMock{err: errors.New("db down")}, requests)
		result := policy.CheckAndRequestApproval(reqCtx, Attempt{Resource: models.ResourceCustomer, ResourceID: "c-1", Action: models.ActionDelete})
		require.True(t, result.RequiresApproval)
		require.NotEmpty(t, result.Error)
	})
	t.Run("request store error", func(t *testing.T) {
		policy, store := newPolicy(amountWorkflow())
		store.Err = errors.New("db down")
		result := policy.CheckAndRequestApproval(reqCtx, Attempt{Resource: models.ResourceDeal, ResourceID: "d-1", Action: models.ActionAmountOverride, Payload: map[string]any{"amount": 15000}})
		require.True(t, result.RequiresApproval)
		require.Empty(t, result.ApprovalRequestID)
		require.NotEmpty(t, result.Error)
	})
}
