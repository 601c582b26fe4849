package automationrules

import (
	"testing"

	"crm-backend/models"
	dbmodels "crm-backend/models/db"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseCondition(t *testing.T) {
	t.Run("empty payload fires always", func(t *testing.T) {
		require.Equal(t, Always{}, ParseCondition(nil))
		require.Equal(t, Always{}, ParseCondition([]byte("null")))
		require.Equal(t, Always{}, ParseCondition([]byte(`{"type":"always"}`)))
	})
	t.Run("field compare", func(t *testing.T) {
		cond := ParseCondition([]byte(`{"type":"field_compare","field":"stage","op":"equals","value":"Won"}`))
		require.Equal(t, FieldCompare{Field: "stage", Op: OpEquals, Value: "Won"}, cond)
	})
	t.Run("broken json is malformed", func(t *testing.T) {
		cond := ParseCondition([]byte(`{"type":`))
		_, ok := cond.(Malformed)
		require.True(t, ok)
	})
	t.Run("unknown type and operator are malformed", func(t *testing.T) {
		_, ok := ParseCondition([]byte(`{"type":"regex","field":"name"}`)).(Malformed)
		require.True(t, ok)
		_, ok = ParseCondition([]byte(`{"type":"field_compare","field":"name","op":"gt","value":1}`)).(Malformed)
		require.True(t, ok)
	})
}

func TestParseActions(t *testing.T) {
	t.Run("malformed entries are skipped", func(t *testing.T) {
		raw := `[
			{"type":"update_field","field":"closedFlag","value":true},
			{"type":"teleport"},
			"oops",
			{"type":"assign_owner","userId":"u-1"},
			{"type":"send_notification","channel":"sms"},
			{"type":"create_follow_up","dueInDays":3,"note":"call back"}
		]`
		actions := ParseActions([]byte(raw))
		require.Len(t, actions, 3)
		require.Equal(t, UpdateField{Field: "closedFlag", Value: true}, actions[0])
		require.Equal(t, AssignOwner{UserID: "u-1"}, actions[1])
		followUp, ok := actions[2].(CreateFollowUp)
		require.True(t, ok)
		require.Equal(t, 3, *followUp.DueInDays)
		require.Equal(t, "call back", followUp.Note)
	})
	t.Run("not a list", func(t *testing.T) {
		require.Empty(t, ParseActions([]byte(`{"type":"update_field"}`)))
		require.Empty(t, ParseActions([]byte(`[[`)))
	})
}

func TestDecodeActionsStrict(t *testing.T) {
	_, err := DecodeActions([]byte(`[{"type":"update_field","field":"stage","value":"Won"},{"type":"teleport"}]`))
	require.Error(t, err)

	_, err = DecodeActions([]byte(`[]`))
	require.Error(t, err)

	actions, err := DecodeActions([]byte(`[{"type":"send_notification","channel":"in_app","template":"deal_won"}]`))
	require.NoError(t, err)
	require.Equal(t, []Action{SendNotification{Channel: ChannelInApp, Template: "deal_won"}}, actions)
}

func TestMarshalRoundTrip(t *testing.T) {
	days := 2
	actions := []Action{
		UpdateField{Field: "stage", Value: "Won"},
		AssignOwner{UserID: "u-2"},
		CreateFollowUp{DueInDays: &days, Note: "send contract"},
		SendNotification{Channel: ChannelEmail, Template: "welcome"},
	}
	raw, err := MarshalActions(actions)
	require.NoError(t, err)
	require.Equal(t, actions, ParseActions(raw))

	condRaw, err := MarshalCondition(FieldCompare{Field: "customer.name", Op: OpIn, Value: []any{"ACME"}})
	require.NoError(t, err)
	require.Equal(t, FieldCompare{Field: "customer.name", Op: OpIn, Value: []any{"ACME"}}, ParseCondition(condRaw))

	condRaw, err = MarshalCondition(Always{})
	require.NoError(t, err)
	require.Nil(t, condRaw)
}

func TestFromRecord(t *testing.T) {
	rec := dbmodels.AutomationRule{
		BaseSpaceModel: dbmodels.BaseSpaceModel{BaseModel: dbmodels.BaseModel{ID: "r-1"}, SpaceID: "s-1"},
		Name:           "close won deals",
		Module:         models.AutomationDeal,
		TriggerType:    models.TriggerOnStageChange,
		Actions:        datatypes.JSON(`[{"type":"update_field","field":"closedFlag","value":true}]`),
	}
	rule := FromRecord(rec)
	require.Equal(t, "r-1", rule.ID)
	require.Equal(t, "s-1", rule.SpaceID)
	require.Equal(t, Always{}, rule.Condition)
	require.Len(t, rule.Actions, 1)
	require.Equal(t, map[string]any{"type": "update_field", "field": "closedFlag", "value": true}, DescribeAction(rule.Actions[0]))
}
