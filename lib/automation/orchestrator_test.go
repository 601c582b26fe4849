package automation

import (
	"testing"

	audithandler "crm-backend/lib/audit"
	automationaction "crm-backend/lib/automation/action"
	"crm-backend/lib/automation/entity"
	automationrules "crm-backend/lib/automation/rules"
	"crm-backend/models"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type ruleSourceMock struct {
	rules   []automationrules.Rule
	err     error
	queries []models.TriggerType
}

func (m *ruleSourceMock) FindActive(spaceID string, module models.AutomationModule, trigger models.TriggerType) ([]automationrules.Rule, error) {
	m.queries = append(m.queries, trigger)
	if m.err != nil {
		return nil, m.err
	}
	result := []automationrules.Rule{}
	for _, rule := range m.rules {
		if rule.Module == module && rule.TriggerType == trigger {
			result = append(result, rule)
		}
	}
	return result, nil
}

type updaterMock struct {
	calls []map[string]interface{}
	err   error
}

func (m *updaterMock) Update(spaceID, id string, updMap map[string]interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, updMap)
	return nil
}

type auditMock struct{}

func (auditMock) LogEvent(reqCtx models.RequestContext, event audithandler.Event) {}
func (auditMock) ListByResource(spaceID, resource, resourceID string) ([]dbmodels.AuditLog, error) {
	return nil, nil
}

type executorSpy struct {
	calls int
}

func (s *executorSpy) Apply(execCtx automationaction.ExecContext, action automationrules.Action) error {
	s.calls++
	return nil
}

func (s *executorSpy) ApplyAll(execCtx automationaction.ExecContext, actions []automationrules.Action) []automationaction.Failure {
	s.calls += len(actions)
	return nil
}

func wonRule() automationrules.Rule {
	return automationrules.Rule{
		ID:          "r-won",
		Module:      models.AutomationDeal,
		TriggerType: models.TriggerOnStageChange,
		Condition:   automationrules.FieldCompare{Field: "stage", Op: automationrules.OpEquals, Value: "Won"},
		Actions:     []automationrules.Action{automationrules.UpdateField{Field: "closedFlag", Value: true}},
	}
}

func stageEvent(from, to string) Event {
	return Event{
		SpaceID:     "s-1",
		Kind:        entity.Deal,
		TriggerType: models.TriggerOnStageChange,
		EntityID:    "d-1",
		Current:     map[string]any{"stage": to},
		Previous:    map[string]any{"stage": from},
	}
}

func TestRunStageChange(t *testing.T) {
	t.Run("fires on won", func(t *testing.T) {
		deals := &updaterMock{}
		executor := automationaction.NewInstance(entity.Targets{Deals: deals}, auditMock{})
		orchestrator := NewInstance(&ruleSourceMock{rules: []automationrules.Rule{wonRule()}}, executor, true)

		outcome := orchestrator.Run(stageEvent("Negotiation", "Won"))
		require.Equal(t, 1, outcome.RanRules)
		require.Equal(t, 1, outcome.MatchedRules)
		require.Empty(t, outcome.Failures)
		require.NotEmpty(t, outcome.RunID)
		require.Equal(t, []map[string]interface{}{{"closed_flag": true}}, deals.calls)
	})
	t.Run("does not fire on lost", func(t *testing.T) {
		spy := &executorSpy{}
		orchestrator := NewInstance(&ruleSourceMock{rules: []automationrules.Rule{wonRule()}}, spy, true)

		outcome := orchestrator.Run(stageEvent("Negotiation", "Lost"))
		require.Equal(t, 1, outcome.RanRules)
		require.Equal(t, 0, outcome.MatchedRules)
		require.Equal(t, 0, spy.calls)
	})
	t.Run("only the exact trigger is queried", func(t *testing.T) {
		spy := &executorSpy{}
		rule := wonRule()
		rule.TriggerType = models.TriggerOnUpdate
		source := &ruleSourceMock{rules: []automationrules.Rule{rule}}
		outcome := NewInstance(source, spy, true).Run(stageEvent("Negotiation", "Won"))
		require.Equal(t, 0, outcome.RanRules)
		require.Equal(t, []models.TriggerType{models.TriggerOnStageChange}, source.queries)
	})
	t.Run("malformed condition never runs actions", func(t *testing.T) {
		spy := &executorSpy{}
		rule := wonRule()
		rule.Condition = automationrules.Malformed{Raw: "{"}
		outcome := NewInstance(&ruleSourceMock{rules: []automationrules.Rule{rule}}, spy, true).Run(stageEvent("Negotiation", "Won"))
		require.Equal(t, 0, outcome.MatchedRules)
		require.Equal(t, 0, spy.calls)
	})
}

func TestRunNeverFails(t *testing.T) {
	t.Run("rule store error is reported in outcome", func(t *testing.T) {
		spy := &executorSpy{}
		outcome := NewInstance(&ruleSourceMock{err: errors.New("db down")}, spy, true).Run(stageEvent("A", "Won"))
		require.NotEmpty(t, outcome.Error)
		require.Equal(t, 0, spy.calls)
	})
	t.Run("action failures are collected", func(t *testing.T) {
		deals := &updaterMock{err: errors.New("row locked")}
		executor := automationaction.NewInstance(entity.Targets{Deals: deals}, auditMock{})
		rule := wonRule()
		rule.Actions = append(rule.Actions, automationrules.CreateFollowUp{Note: "thank the customer"})
		outcome := NewInstance(&ruleSourceMock{rules: []automationrules.Rule{rule}}, executor, true).Run(stageEvent("A", "Won"))
		require.Equal(t, 1, outcome.MatchedRules)
		require.Len(t, outcome.Failures, 1)
		require.Equal(t, "r-won", outcome.Failures[0].RuleID)
	})
	t.Run("nil rule source panics are recovered", func(t *testing.T) {
		orchestrator := NewInstance(nil, &executorSpy{}, true)
		var outcome Outcome
		require.NotPanics(t, func() {
			outcome = orchestrator.Run(stageEvent("A", "Won"))
		})
		require.NotEmpty(t, outcome.Error)
	})
	t.Run("disabled automation does nothing", func(t *testing.T) {
		source := &ruleSourceMock{rules: []automationrules.Rule{wonRule()}}
		outcome := NewInstance(source, &executorSpy{}, false).Run(stageEvent("A", "Won"))
		require.Equal(t, 0, outcome.RanRules)
		require.Empty(t, source.queries)
	})
}
