package automationrulehandler

import (
	"encoding/json"
	"testing"

	automationrules "crm-backend/lib/automation/rules"
	"crm-backend/models"
	automationapimodels "crm-backend/models/api/automation"
	dbmodels "crm-backend/models/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type storeMock struct {
	recs map[string]*dbmodels.AutomationRule
}

func (s *storeMock) Create(rec dbmodels.AutomationRule) (string, error) {
	rec.ID = uuid.NewString()
	s.recs[rec.ID] = &rec
	return rec.ID, nil
}

func (s *storeMock) GetByID(spaceID, id string) (*dbmodels.AutomationRule, error) {
	rec, ok := s.recs[id]
	if !ok || rec.SpaceID != spaceID {
		return nil, nil
	}
	return rec, nil
}

func (s *storeMock) Update(spaceID, id string, updMap map[string]interface{}) error {
	rec := s.recs[id]
	if value, ok := updMap["is_active"]; ok {
		rec.IsActive = value.(bool)
	}
	if value, ok := updMap["name"]; ok {
		rec.Name = value.(string)
	}
	return nil
}

func (s *storeMock) ListCount(spaceID string, filter automationapimodels.RuleFilter) (int64, error) {
	return int64(len(s.recs)), nil
}

func (s *storeMock) List(spaceID string, filter automationapimodels.RuleFilter) ([]dbmodels.AutomationRule, error) {
	list := []dbmodels.AutomationRule{}
	for _, rec := range s.recs {
		list = append(list, *rec)
	}
	return list, nil
}

func (s *storeMock) FindActive(spaceID string, module models.AutomationModule, trigger models.TriggerType) ([]automationrules.Rule, error) {
	return nil, nil
}

func TestRuleHandler(t *testing.T) {
	store := &storeMock{recs: map[string]*dbmodels.AutomationRule{}}
	handler := impl{store: store}
	data := automationapimodels.RuleData{
		Name:        "close won",
		Module:      models.AutomationDeal,
		TriggerType: models.TriggerOnStageChange,
		Condition:   json.RawMessage(`{"type":"field_compare","field":"stage","op":"equals","value":"Won"}`),
		Actions:     json.RawMessage(`[{"type":"update_field","field":"closedFlag","value":true}]`),
	}

	t.Run("create stores normalized payload", func(t *testing.T) {
		id, hMsg, err := handler.Create("s-1", "u-1", data)
		require.NoError(t, err)
		require.Empty(t, hMsg)
		rec := store.recs[id]
		require.True(t, rec.IsActive)
		require.Equal(t, "u-1", rec.CreatedByID)
		require.Equal(t,
			automationrules.FieldCompare{Field: "stage", Op: automationrules.OpEquals, Value: "Won"},
			automationrules.ParseCondition(rec.Condition))
	})
	t.Run("always condition is stored as null", func(t *testing.T) {
		always := data
		always.Condition = nil
		id, hMsg, err := handler.Create("s-1", "u-1", always)
		require.NoError(t, err)
		require.Empty(t, hMsg)
		require.Nil(t, store.recs[id].Condition)
	})
	t.Run("bad actions are a user error", func(t *testing.T) {
		bad := data
		bad.Actions = json.RawMessage(`[{"type":"update_field"}]`)
		_, hMsg, err := handler.Create("s-1", "u-1", bad)
		require.NoError(t, err)
		require.NotEmpty(t, hMsg)
	})
	t.Run("deactivate", func(t *testing.T) {
		id, _, err := handler.Create("s-1", "u-1", data)
		require.NoError(t, err)
		hMsg, err := handler.Deactivate("s-1", id)
		require.NoError(t, err)
		require.Empty(t, hMsg)
		require.False(t, store.recs[id].IsActive)

		hMsg, err = handler.Deactivate("s-2", id)
		require.NoError(t, err)
		require.Equal(t, "automation rule not found", hMsg)
	})
}
