package models

// AutomationModule is the entity family an automation rule is bound to.
type AutomationModule string

const (
	AutomationLead AutomationModule = "LEAD"
	AutomationDeal AutomationModule = "DEAL"
)

func (m AutomationModule) IsValid() bool {
	return m == AutomationLead || m == AutomationDeal
}

type TriggerType string

const (
	TriggerOnCreate      TriggerType = "on_create"
	TriggerOnUpdate      TriggerType = "on_update"
	TriggerOnStageChange TriggerType = "on_stage_change"
)

func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerOnCreate, TriggerOnUpdate, TriggerOnStageChange:
		return true
	}
	return false
}
