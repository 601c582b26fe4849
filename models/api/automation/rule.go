package automationapimodels

import (
	"crm-backend/models"
	apimodels "crm-backend/models/api"
	dbmodels "crm-backend/models/db"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type RuleData struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Module      models.AutomationModule `json:"module"`       // LEAD | DEAL
	TriggerType models.TriggerType      `json:"trigger_type"` // on_create | on_update | on_stage_change
	Condition   json.RawMessage         `json:"condition"`    // {"type":"field_compare","field":"stage","op":"equals","value":"Won"}
	Actions     json.RawMessage         `json:"actions"`      // [{"type":"update_field","field":"closedFlag","value":true}]
	IsActive    *bool                   `json:"is_active"`
}

func (r RuleData) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("rule name is required")
	}
	if !r.Module.IsValid() {
		return errors.Errorf("unknown module: %v", r.Module)
	}
	if !r.TriggerType.IsValid() {
		return errors.Errorf("unknown trigger type: %v", r.TriggerType)
	}
	if len(r.Actions) == 0 {
		return errors.New("actions are required")
	}
	return nil
}

type RuleFilter struct {
	apimodels.Pagination
	Module      models.AutomationModule `json:"module"`
	TriggerType models.TriggerType      `json:"trigger_type"`
	ActiveOnly  bool                    `json:"active_only"`
}

type RuleView struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Module      models.AutomationModule `json:"module"`
	TriggerType models.TriggerType      `json:"trigger_type"`
	Condition   json.RawMessage         `json:"condition,omitempty"`
	Actions     json.RawMessage         `json:"actions"`
	IsActive    bool                    `json:"is_active"`
	CreatedByID string                  `json:"created_by_id"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func RuleConvert(rec dbmodels.AutomationRule) RuleView {
	view := RuleView{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Module:      rec.Module,
		TriggerType: rec.TriggerType,
		Actions:     json.RawMessage(rec.Actions),
		IsActive:    rec.IsActive,
		CreatedByID: rec.CreatedByID,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if len(rec.Condition) != 0 {
		view.Condition = json.RawMessage(rec.Condition)
	}
	return view
}
