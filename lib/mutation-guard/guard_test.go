package mutationguard

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	approvalpolicy "crm-backend/lib/approval-policy"
	approvalrequesthandler "crm-backend/lib/approval-request"
	"crm-backend/lib/approval-request/store/storetest"
	audithandler "crm-backend/lib/audit"
	"crm-backend/models"
	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type workflowSourceMock struct {
	list []dbmodels.ApprovalWorkflow
}

func (m *workflowSourceMock) FindActive(spaceID, resource, action string) ([]dbmodels.ApprovalWorkflow, error) {
	result := []dbmodels.ApprovalWorkflow{}
	for _, wf := range m.list {
		if wf.Resource == resource && wf.Action == action {
			result = append(result, wf)
		}
	}
	return result, nil
}

type auditMock struct {
	events []audithandler.Event
}

func (a *auditMock) LogEvent(reqCtx models.RequestContext, event audithandler.Event) {
	a.events = append(a.events, event)
}

func (a *auditMock) ListByResource(spaceID, resource, resourceID string) ([]dbmodels.AuditLog, error) {
	return nil, nil
}

type env struct {
	guard    Provider
	requests approvalrequesthandler.Provider
	policy   approvalpolicy.Provider
	store    *storetest.Memory
	audit    *auditMock
}

func newEnv(workflows ...dbmodels.ApprovalWorkflow) env {
	store := storetest.NewMemoryInstance(workflows...)
	audit := &auditMock{}
	requests := approvalrequesthandler.NewInstance(store, audit, true, time.Second)
	policy := approvalpolicy.NewInstance(&workflowSourceMock{list: workflows}, requests)
	return env{
		guard:    NewInstance(requests, policy, audit),
		requests: requests,
		policy:   policy,
		store:    store,
		audit:    audit,
	}
}

func customerDeleteWorkflow() dbmodels.ApprovalWorkflow {
	return dbmodels.ApprovalWorkflow{
		BaseSpaceModel:   dbmodels.BaseSpaceModel{BaseModel: dbmodels.BaseModel{ID: "wf-1"}, SpaceID: "s-1"},
		Resource:         models.ResourceCustomer,
		Action:           models.ActionDelete,
		RequiresApproval: true,
		ApproverRoles:    pq.StringArray{string(models.ManagerRole)},
		IsActive:         true,
	}
}

var (
	sales   = models.RequestContext{SpaceID: "s-1", CallerID: "u-sales", CallerRole: models.SalesRole}
	manager = models.RequestContext{SpaceID: "s-1", CallerID: "u-mgr", CallerRole: models.ManagerRole}
)

func deleteCustomer(deleted *int) Operation {
	return Operation{
		Resource:   models.ResourceCustomer,
		ResourceID: "C1",
		Action:     models.ActionDelete,
		Payload:    map[string]any{"name": "ACME"},
		Execute: func() error {
			*deleted++
			return nil
		},
	}
}

func TestCustomerDeleteScenario(t *testing.T) {
	e := newEnv(customerDeleteWorkflow())
	deleted := 0

	first := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, ApprovalRequired, first.Outcome)
	require.NotEmpty(t, first.ApprovalRequestID)
	require.Equal(t, 0, deleted)

	second := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, PendingExists, second.Outcome)
	require.Equal(t, first.ApprovalRequestID, second.ApprovalRequestID)
	require.Equal(t, 0, deleted)

	require.NoError(t, e.requests.Approve(manager, first.ApprovalRequestID, approvalapimodels.ApproveData{}))

	third := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, Executed, third.Outcome)
	require.Equal(t, first.ApprovalRequestID, third.ApprovalRequestID)
	require.Equal(t, 1, deleted)

	last := e.audit.events[len(e.audit.events)-1]
	require.Equal(t, "customer_delete", last.Action)
	require.Equal(t, first.ApprovalRequestID, last.Context["approval_request_id"])

	// the approval was used up, the next attempt is gated again
	fourth := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, ApprovalRequired, fourth.Outcome)
	require.NotEqual(t, first.ApprovalRequestID, fourth.ApprovalRequestID)
	require.Equal(t, 1, deleted)
}

func TestUngatedOperationRuns(t *testing.T) {
	e := newEnv()
	deleted := 0
	result := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, Executed, result.Outcome)
	require.Empty(t, result.ApprovalRequestID)
	require.Equal(t, 1, deleted)
	require.Len(t, e.audit.events, 1)
	require.Equal(t, "customer_delete", e.audit.events[0].Action)
}

func TestRejectedRequestGatesAgain(t *testing.T) {
	e := newEnv(customerDeleteWorkflow())
	deleted := 0
	first := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.NoError(t, e.requests.Reject(manager, first.ApprovalRequestID, approvalapimodels.RejectData{Reason: "active contracts"}))

	second := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, ApprovalRequired, second.Outcome)
	require.NotEqual(t, first.ApprovalRequestID, second.ApprovalRequestID)
	require.Equal(t, 0, deleted)
}

func TestFailClosed(t *testing.T) {
	t.Run("store failure blocks the mutation", func(t *testing.T) {
		e := newEnv(customerDeleteWorkflow())
		e.store.Err = errors.New("db down")
		deleted := 0
		result := e.guard.Protect(sales, deleteCustomer(&deleted))
		require.Equal(t, Failed, result.Outcome)
		require.NotEmpty(t, result.Message())
		require.Equal(t, 0, deleted)
	})
	t.Run("mutation error is reported and nothing is audited", func(t *testing.T) {
		e := newEnv()
		op := deleteCustomer(new(int))
		op.Execute = func() error { return errors.New("constraint violation") }
		result := e.guard.Protect(sales, op)
		require.Equal(t, Failed, result.Outcome)
		require.EqualError(t, result.Err, "constraint violation")
		require.Equal(t, "operation failed", result.Message())
		require.Empty(t, e.audit.events)
	})
}

type policyMock struct {
	result approvalpolicy.CheckResult
}

func (p policyMock) CheckRequired(spaceID string, attempt approvalpolicy.Attempt) (*dbmodels.ApprovalWorkflow, error) {
	return nil, nil
}

func (p policyMock) CheckAndRequestApproval(reqCtx models.RequestContext, attempt approvalpolicy.Attempt) approvalpolicy.CheckResult {
	return p.result
}

func TestFailedResultHidesInternalCause(t *testing.T) {
	cause := `failed to look up approval workflow: pq: password authentication failed for user "crm_admin" at 10.0.3.7:5432`
	e := newEnv()
	guard := NewInstance(e.requests, policyMock{result: approvalpolicy.CheckResult{Error: cause}}, e.audit)
	deleted := 0

	result := guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, Failed, result.Outcome)
	require.Equal(t, "approval state could not be verified", result.Message())
	require.NotContains(t, result.Message(), "pq:")
	require.True(t, errors.Is(result.Err, ErrApprovalUnverified))
	require.Contains(t, result.Err.Error(), "crm_admin")
	require.Equal(t, 0, deleted)

	e.store.Err = errors.New(`dial tcp 10.0.3.7:5432: connect: connection refused`)
	result = e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, Failed, result.Outcome)
	require.NotContains(t, result.Message(), "10.0.3.7")
}

type staleGrants struct {
	approvalrequesthandler.Provider
	rec dbmodels.ApprovalRequest
}

func (s staleGrants) FindGrantedApproval(spaceID, resource, resourceID, action string, payload map[string]any) (*dbmodels.ApprovalRequest, error) {
	rec := s.rec
	return &rec, nil
}

func TestConcurrentAttemptsUseApprovalOnce(t *testing.T) {
	e := newEnv(customerDeleteWorkflow())
	first := e.guard.Protect(sales, deleteCustomer(new(int)))
	require.NoError(t, e.requests.Approve(manager, first.ApprovalRequestID, approvalapimodels.ApproveData{}))

	var executions atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := deleteCustomer(new(int))
	blocking.Execute = func() error {
		executions.Add(1)
		close(started)
		<-release
		return nil
	}

	var wg sync.WaitGroup
	var inFlight Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		inFlight = e.guard.Protect(sales, blocking)
	}()
	<-started

	// the racing attempt read the approval before it was claimed
	granted, err := e.requests.FindGrantedApproval("s-1", models.ResourceCustomer, "C1", models.ActionDelete, map[string]any{"name": "ACME"})
	require.NoError(t, err)
	require.Nil(t, granted)
	stale := staleGrants{Provider: e.requests, rec: dbmodels.ApprovalRequest{
		BaseSpaceModel: dbmodels.BaseSpaceModel{BaseModel: dbmodels.BaseModel{ID: first.ApprovalRequestID}, SpaceID: "s-1"},
	}}
	counted := deleteCustomer(new(int))
	counted.Execute = func() error {
		executions.Add(1)
		return nil
	}
	racing := NewInstance(stale, e.policy, e.audit).Protect(sales, counted)
	close(release)
	wg.Wait()

	require.Equal(t, Executed, inFlight.Outcome)
	require.Equal(t, first.ApprovalRequestID, inFlight.ApprovalRequestID)
	require.Equal(t, ApprovalRequired, racing.Outcome)
	require.NotEqual(t, first.ApprovalRequestID, racing.ApprovalRequestID)
	require.Equal(t, int32(1), executions.Load())
}

func TestFailedApprovedOperationKeepsApproval(t *testing.T) {
	e := newEnv(customerDeleteWorkflow())
	deleted := 0
	first := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.NoError(t, e.requests.Approve(manager, first.ApprovalRequestID, approvalapimodels.ApproveData{}))

	failing := deleteCustomer(&deleted)
	failing.Execute = func() error { return errors.New("deadlock detected") }
	result := e.guard.Protect(sales, failing)
	require.Equal(t, Failed, result.Outcome)
	require.Equal(t, "operation failed", result.Message())
	require.False(t, e.store.IsConsumed(first.ApprovalRequestID))

	retry := e.guard.Protect(sales, deleteCustomer(&deleted))
	require.Equal(t, Executed, retry.Outcome)
	require.Equal(t, first.ApprovalRequestID, retry.ApprovalRequestID)
	require.Equal(t, 1, deleted)
	require.True(t, e.store.IsConsumed(first.ApprovalRequestID))
}

func TestApprovalCoversApprovedAmountOnly(t *testing.T) {
	wf := dbmodels.ApprovalWorkflow{
		BaseSpaceModel:   dbmodels.BaseSpaceModel{BaseModel: dbmodels.BaseModel{ID: "wf-2"}, SpaceID: "s-1"},
		Resource:         models.ResourceDeal,
		Action:           models.ActionAmountOverride,
		RequiresApproval: true,
		ApproverRoles:    pq.StringArray{string(models.ManagerRole)},
		IsActive:         true,
	}
	e := newEnv(wf)
	updates := 0
	updateDeal := func(amount float64) Operation {
		return Operation{
			Resource:   models.ResourceDeal,
			ResourceID: "D1",
			Action:     models.ActionAmountOverride,
			Payload:    map[string]any{"amount": amount},
			Execute: func() error {
				updates++
				return nil
			},
		}
	}

	first := e.guard.Protect(sales, updateDeal(15000))
	require.Equal(t, ApprovalRequired, first.Outcome)
	require.NoError(t, e.requests.Approve(manager, first.ApprovalRequestID, approvalapimodels.ApproveData{}))

	inflated := e.guard.Protect(sales, updateDeal(10_000_000))
	require.Equal(t, ApprovalRequired, inflated.Outcome)
	require.NotEqual(t, first.ApprovalRequestID, inflated.ApprovalRequestID)
	require.Equal(t, 0, updates)
	require.False(t, e.store.IsConsumed(first.ApprovalRequestID))
}
