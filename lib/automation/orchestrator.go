package automation

import (
	"runtime/debug"

	"crm-backend/config"
	"crm-backend/db"
	audithandler "crm-backend/lib/audit"
	automationrulestore "crm-backend/lib/automation-rule/store"
	automationaction "crm-backend/lib/automation/action"
	"crm-backend/lib/automation/condition"
	"crm-backend/lib/automation/entity"
	automationrules "crm-backend/lib/automation/rules"
	dealstore "crm-backend/lib/deal/store"
	leadstore "crm-backend/lib/lead/store"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Event is an entity lifecycle event. It must be raised after the change is committed.
type Event struct {
	SpaceID       string
	Kind          entity.Kind
	TriggerType   models.TriggerType
	EntityID      string
	Current       map[string]any
	Previous      map[string]any
	PerformedByID string
}

// Outcome summarizes one run. It is informational only and is never turned into an error.
type Outcome struct {
	RunID        string
	RanRules     int
	MatchedRules int
	Failures     []automationaction.Failure
	Error        string
}

type RuleSource interface {
	FindActive(spaceID string, module models.AutomationModule, trigger models.TriggerType) ([]automationrules.Rule, error)
}

type Provider interface {
	Run(event Event) Outcome
}

var Instance Provider

func NewHandler() {
	targets := entity.Targets{
		Leads: leadstore.NewInstance(db.DB),
		Deals: dealstore.NewInstance(db.DB),
	}
	initchecker.CheckInit("audit", audithandler.Instance)
	Instance = NewInstance(
		automationrulestore.NewInstance(db.DB),
		automationaction.NewInstance(targets, audithandler.Instance),
		*config.Conf.Automation.Enabled,
	)
}

func NewInstance(rules RuleSource, executor automationaction.Provider, enabled bool) Provider {
	return impl{
		rules:    rules,
		executor: executor,
		enabled:  enabled,
	}
}

type impl struct {
	rules    RuleSource
	executor automationaction.Provider
	enabled  bool
}

func (i impl) Run(event Event) (outcome Outcome) {
	outcome.RunID = uuid.NewString()
	logger := log.
		WithField("space_id", event.SpaceID).
		WithField("run_id", outcome.RunID).
		WithField("trigger_type", event.TriggerType).
		WithField("entity_id", event.EntityID)
	defer func() {
		if r := recover(); r != nil {
			logger.
				WithField("panic_stack", string(debug.Stack())).
				Errorf("panic: (%v)", r)
			outcome.Error = errors.Errorf("automation run panicked: %v", r).Error()
		}
	}()
	if !i.enabled {
		return outcome
	}
	if event.Kind == nil {
		outcome.Error = "entity kind is not set"
		logger.Error("automation skipped: " + outcome.Error)
		return outcome
	}
	module := event.Kind.Module()
	logger = logger.WithField("module", module)

	rules, err := i.rules.FindActive(event.SpaceID, module, event.TriggerType)
	if err != nil {
		outcome.Error = errors.Wrap(err, "failed to load automation rules").Error()
		logger.WithError(err).Error("failed to load automation rules")
		return outcome
	}
	for _, rule := range rules {
		outcome.RanRules++
		if !condition.Evaluate(rule.Condition, event.Current, event.Previous) {
			continue
		}
		outcome.MatchedRules++
		execCtx := automationaction.ExecContext{
			RuleID:        rule.ID,
			SpaceID:       event.SpaceID,
			Kind:          event.Kind,
			EntityID:      event.EntityID,
			PerformedByID: event.PerformedByID,
		}
		failures := i.executor.ApplyAll(execCtx, rule.Actions)
		outcome.Failures = append(outcome.Failures, failures...)
	}
	entry := logger.
		WithField("ran_rules", outcome.RanRules).
		WithField("matched_rules", outcome.MatchedRules).
		WithField("failed_actions", len(outcome.Failures))
	if len(outcome.Failures) != 0 {
		entry.Warn("automation run finished with failed actions")
	} else if outcome.MatchedRules != 0 {
		entry.Info("automation run finished")
	}
	return outcome
}
