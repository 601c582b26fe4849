package automationrules

import (
	"crm-backend/models"
)

type CompareOp string

const (
	OpEquals    CompareOp = "equals"
	OpNotEquals CompareOp = "not_equals"
	OpIn        CompareOp = "in"
	OpNotIn     CompareOp = "not_in"
)

func (o CompareOp) IsValid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpIn, OpNotIn:
		return true
	}
	return false
}

// Condition is one of Always, FieldCompare or Malformed.
type Condition interface {
	conditionType() string
}

type Always struct{}

// FieldCompare compares the value found at Field (dot path into the entity snapshot) with Value.
type FieldCompare struct {
	Field string
	Op    CompareOp
	Value any
}

// Malformed keeps an unreadable stored condition. It never matches.
type Malformed struct {
	Raw    string
	Reason string
}

func (Always) conditionType() string       { return "always" }
func (FieldCompare) conditionType() string { return "field_compare" }
func (Malformed) conditionType() string    { return "malformed" }

// Action is one of UpdateField, AssignOwner, CreateFollowUp or SendNotification.
type Action interface {
	actionType() string
}

type UpdateField struct {
	Field string
	Value any
}

type AssignOwner struct {
	UserID string
}

type CreateFollowUp struct {
	DueInDays *int
	Note      string
}

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelInApp NotificationChannel = "in_app"
)

type SendNotification struct {
	Channel  NotificationChannel
	Template string
}

func (UpdateField) actionType() string      { return "update_field" }
func (AssignOwner) actionType() string      { return "assign_owner" }
func (CreateFollowUp) actionType() string   { return "create_follow_up" }
func (SendNotification) actionType() string { return "send_notification" }

// TypeName returns the wire name of the action, e.g. "update_field".
func TypeName(action Action) string {
	if action == nil {
		return ""
	}
	return action.actionType()
}

// Rule is an automation rule decoded from storage.
type Rule struct {
	ID          string
	SpaceID     string
	Name        string
	Module      models.AutomationModule
	TriggerType models.TriggerType
	Condition   Condition
	Actions     []Action
}
