package automationaction

import (
	"fmt"
	"runtime/debug"

	audithandler "crm-backend/lib/audit"
	"crm-backend/lib/automation/entity"
	automationrules "crm-backend/lib/automation/rules"
	"crm-backend/models"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ExecContext struct {
	RuleID        string
	SpaceID       string
	Kind          entity.Kind
	EntityID      string
	PerformedByID string
}

func (c ExecContext) logger() *log.Entry {
	logger := log.
		WithField("space_id", c.SpaceID).
		WithField("rule_id", c.RuleID).
		WithField("entity_id", c.EntityID)
	if c.Kind != nil {
		logger = logger.
			WithField("module", c.Kind.Module()).
			WithField("entity", c.Kind.Name())
	}
	return logger
}

// Failure describes one action that could not be applied.
type Failure struct {
	RuleID   string
	EntityID string
	Action   map[string]any
	Error    string
}

type Provider interface {
	Apply(execCtx ExecContext, action automationrules.Action) error
	// ApplyAll runs actions in order. A failed action does not stop the ones after it.
	ApplyAll(execCtx ExecContext, actions []automationrules.Action) []Failure
}

func NewInstance(targets entity.Targets, audit audithandler.Provider) Provider {
	return impl{
		targets: targets,
		audit:   audit,
	}
}

type impl struct {
	targets entity.Targets
	audit   audithandler.Provider
}

func (i impl) Apply(execCtx ExecContext, action automationrules.Action) error {
	if execCtx.Kind == nil {
		return errors.New("entity kind is not set")
	}
	switch a := action.(type) {
	case automationrules.UpdateField:
		column, ok := execCtx.Kind.Column(a.Field)
		if !ok {
			return errors.Errorf("field %q is not writable on %v", a.Field, execCtx.Kind.Name())
		}
		return entity.Apply(execCtx.Kind, i.targets, execCtx.SpaceID, execCtx.EntityID, map[string]interface{}{column: a.Value})
	case automationrules.AssignOwner:
		return entity.Apply(execCtx.Kind, i.targets, execCtx.SpaceID, execCtx.EntityID, execCtx.Kind.OwnerUpdate(a.UserID))
	case automationrules.CreateFollowUp:
		i.record(execCtx, audithandler.EventFollowUp, "automation follow-up scheduled", a)
		return nil
	case automationrules.SendNotification:
		i.record(execCtx, audithandler.EventNotification, fmt.Sprintf("automation notification queued via %v", a.Channel), a)
		return nil
	default:
		return errors.Errorf("unsupported action %T", action)
	}
}

func (i impl) ApplyAll(execCtx ExecContext, actions []automationrules.Action) []Failure {
	var failures []Failure
	for _, action := range actions {
		if err := i.safeApply(execCtx, action); err != nil {
			payload := automationrules.DescribeAction(action)
			execCtx.logger().
				WithError(err).
				WithField("action", payload).
				Error("automation action failed")
			failures = append(failures, Failure{
				RuleID:   execCtx.RuleID,
				EntityID: execCtx.EntityID,
				Action:   payload,
				Error:    err.Error(),
			})
		}
	}
	return failures
}

func (i impl) safeApply(execCtx ExecContext, action automationrules.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			execCtx.logger().
				WithField("panic_stack", string(debug.Stack())).
				Errorf("panic: (%v)", r)
			err = errors.Errorf("action panicked: %v", r)
		}
	}()
	return i.Apply(execCtx, action)
}

// record writes the audit entry of an inert action. Nothing is scheduled or delivered.
func (i impl) record(execCtx ExecContext, event, message string, action automationrules.Action) {
	performedBy := execCtx.PerformedByID
	if performedBy == "" {
		performedBy = models.SystemUser
	}
	resource := ""
	if execCtx.Kind != nil {
		resource = execCtx.Kind.Name()
	}
	ctx := automationrules.DescribeAction(action)
	ctx["rule_id"] = execCtx.RuleID
	i.audit.LogEvent(models.RequestContext{SpaceID: execCtx.SpaceID, CallerID: performedBy}, audithandler.Event{
		Message:    message,
		Resource:   resource,
		ResourceID: execCtx.EntityID,
		Action:     event,
		Context:    ctx,
	})
}
