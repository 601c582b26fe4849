package approvalworkflowhandler

import (
	"testing"

	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

type storeMock struct {
	recs map[string]*dbmodels.ApprovalWorkflow
}

func (s *storeMock) Create(rec dbmodels.ApprovalWorkflow) (string, error) {
	rec.ID = uuid.NewString()
	s.recs[rec.ID] = &rec
	return rec.ID, nil
}

func (s *storeMock) GetByID(spaceID, id string) (*dbmodels.ApprovalWorkflow, error) {
	rec, ok := s.recs[id]
	if !ok || rec.SpaceID != spaceID {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (s *storeMock) Update(spaceID, id string, updMap map[string]interface{}) error {
	rec := s.recs[id]
	if value, ok := updMap["is_active"]; ok {
		rec.IsActive = value.(bool)
	}
	if value, ok := updMap["approver_roles"]; ok {
		rec.ApproverRoles = value.(pq.StringArray)
	}
	return nil
}

func (s *storeMock) ListCount(spaceID string, filter approvalapimodels.WorkflowFilter) (int64, error) {
	return int64(len(s.recs)), nil
}

func (s *storeMock) List(spaceID string, filter approvalapimodels.WorkflowFilter) ([]dbmodels.ApprovalWorkflow, error) {
	list := []dbmodels.ApprovalWorkflow{}
	for _, rec := range s.recs {
		list = append(list, *rec)
	}
	return list, nil
}

func (s *storeMock) FindActive(spaceID, resource, action string) ([]dbmodels.ApprovalWorkflow, error) {
	return nil, nil
}

func TestWorkflowHandler(t *testing.T) {
	threshold := 10000.0
	field := "amount"
	valid := approvalapimodels.WorkflowData{
		Name:           "Large amount",
		Resource:       "deal",
		Action:         "amount_override",
		ThresholdField: &field,
		ThresholdValue: &threshold,
		ApproverRoles:  []string{"finance"},
	}

	t.Run("create defaults to active and requiring approval", func(t *testing.T) {
		store := &storeMock{recs: map[string]*dbmodels.ApprovalWorkflow{}}
		h := impl{store: store}
		id, hMsg, err := h.Create("s-1", valid)
		require.NoError(t, err)
		require.Empty(t, hMsg)

		view, err := h.GetByID("s-1", id)
		require.NoError(t, err)
		require.NotNil(t, view)
		require.True(t, view.IsActive)
		require.True(t, view.RequiresApproval)
		require.Equal(t, []string{"finance"}, view.ApproverRoles)
		require.Equal(t, 10000.0, *view.ThresholdValue)
	})
	t.Run("approver is required", func(t *testing.T) {
		h := impl{store: &storeMock{recs: map[string]*dbmodels.ApprovalWorkflow{}}}
		data := valid
		data.ApproverRoles = nil
		_, hMsg, err := h.Create("s-1", data)
		require.NoError(t, err)
		require.Equal(t, "at least one approver role or approver user is required", hMsg)

		notRequired := false
		data.RequiresApproval = &notRequired
		_, hMsg, err = h.Create("s-1", data)
		require.NoError(t, err)
		require.Empty(t, hMsg)
	})
	t.Run("unknown role", func(t *testing.T) {
		h := impl{store: &storeMock{recs: map[string]*dbmodels.ApprovalWorkflow{}}}
		data := valid
		data.ApproverRoles = []string{"cfo"}
		_, hMsg, err := h.Create("s-1", data)
		require.NoError(t, err)
		require.Equal(t, "unknown approver role: cfo", hMsg)
	})
	t.Run("deactivate", func(t *testing.T) {
		store := &storeMock{recs: map[string]*dbmodels.ApprovalWorkflow{}}
		h := impl{store: store}
		id, _, err := h.Create("s-1", valid)
		require.NoError(t, err)

		hMsg, err := h.Deactivate("s-1", id)
		require.NoError(t, err)
		require.Empty(t, hMsg)
		require.False(t, store.recs[id].IsActive)

		hMsg, err = h.Deactivate("s-2", id)
		require.NoError(t, err)
		require.Equal(t, "approval workflow not found", hMsg)
	})
	t.Run("threshold pair validation", func(t *testing.T) {
		data := valid
		data.ThresholdValue = nil
		require.Error(t, data.Validate())
		require.NoError(t, valid.Validate())
	})
}
