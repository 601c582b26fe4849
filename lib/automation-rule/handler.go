package automationrulehandler

import (
	"crm-backend/db"
	automationrulestore "crm-backend/lib/automation-rule/store"
	automationrules "crm-backend/lib/automation/rules"
	automationapimodels "crm-backend/models/api/automation"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type Provider interface {
	Create(spaceID, userID string, data automationapimodels.RuleData) (id string, hMsg string, err error)
	Update(spaceID, id string, data automationapimodels.RuleData) (hMsg string, err error)
	GetByID(spaceID, id string) (*automationapimodels.RuleView, error)
	List(spaceID string, filter automationapimodels.RuleFilter) ([]automationapimodels.RuleView, int64, error)
	Deactivate(spaceID, id string) (hMsg string, err error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{
		store: automationrulestore.NewInstance(db.DB),
	}
}

type impl struct {
	store automationrulestore.Provider
}

func (i impl) getLogger(spaceID, ruleID string) *log.Entry {
	logger := log.WithField("space_id", spaceID)
	if ruleID != "" {
		logger = logger.WithField("rule_id", ruleID)
	}
	return logger
}

func (i impl) Create(spaceID, userID string, data automationapimodels.RuleData) (id string, hMsg string, err error) {
	condition, actions, hMsg := encodePayload(data)
	if hMsg != "" {
		return "", hMsg, nil
	}
	rec := dbmodels.AutomationRule{
		BaseSpaceModel: dbmodels.BaseSpaceModel{
			SpaceID: spaceID,
		},
		Name:        data.Name,
		Description: data.Description,
		Module:      data.Module,
		TriggerType: data.TriggerType,
		Condition:   condition,
		Actions:     actions,
		IsActive:    data.IsActive == nil || *data.IsActive,
		CreatedByID: userID,
	}
	id, err = i.store.Create(rec)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to create automation rule")
	}
	i.getLogger(spaceID, id).
		WithField("module", data.Module).
		WithField("trigger_type", data.TriggerType).
		Info("automation rule created")
	return id, "", nil
}

func (i impl) Update(spaceID, id string, data automationapimodels.RuleData) (hMsg string, err error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return "", errors.Wrap(err, "failed to get automation rule")
	}
	if rec == nil {
		return "automation rule not found", nil
	}
	condition, actions, hMsg := encodePayload(data)
	if hMsg != "" {
		return hMsg, nil
	}
	updMap := map[string]interface{}{
		"name":         data.Name,
		"description":  data.Description,
		"module":       data.Module,
		"trigger_type": data.TriggerType,
		"condition":    condition,
		"actions":      actions,
	}
	if data.IsActive != nil {
		updMap["is_active"] = *data.IsActive
	}
	err = i.store.Update(spaceID, id, updMap)
	if err != nil {
		return "", errors.Wrap(err, "failed to update automation rule")
	}
	return "", nil
}

func (i impl) GetByID(spaceID, id string) (*automationapimodels.RuleView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get automation rule")
	}
	if rec == nil {
		return nil, nil
	}
	view := automationapimodels.RuleConvert(*rec)
	return &view, nil
}

func (i impl) List(spaceID string, filter automationapimodels.RuleFilter) ([]automationapimodels.RuleView, int64, error) {
	rowCount, err := i.store.ListCount(spaceID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count automation rules")
	}
	page, limit := filter.GetPage()
	offset := (page - 1) * limit
	if int64(offset) > rowCount {
		return []automationapimodels.RuleView{}, rowCount, nil
	}
	list, err := i.store.List(spaceID, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list automation rules")
	}
	result := make([]automationapimodels.RuleView, 0, len(list))
	for _, rec := range list {
		result = append(result, automationapimodels.RuleConvert(rec))
	}
	return result, rowCount, nil
}

// Deactivate is the only way to retire a rule: rules are never hard deleted.
func (i impl) Deactivate(spaceID, id string) (hMsg string, err error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return "", errors.Wrap(err, "failed to get automation rule")
	}
	if rec == nil {
		return "automation rule not found", nil
	}
	err = i.store.Update(spaceID, id, map[string]interface{}{"is_active": false})
	if err != nil {
		return "", errors.Wrap(err, "failed to deactivate automation rule")
	}
	i.getLogger(spaceID, id).Info("automation rule deactivated")
	return "", nil
}

// encodePayload validates the condition and actions strictly and returns their stored form.
func encodePayload(data automationapimodels.RuleData) (condition, actions datatypes.JSON, hMsg string) {
	cond, err := automationrules.DecodeCondition(data.Condition)
	if err != nil {
		return nil, nil, err.Error()
	}
	actionList, err := automationrules.DecodeActions(data.Actions)
	if err != nil {
		return nil, nil, err.Error()
	}
	condBody, err := automationrules.MarshalCondition(cond)
	if err != nil {
		return nil, nil, err.Error()
	}
	actionsBody, err := automationrules.MarshalActions(actionList)
	if err != nil {
		return nil, nil, err.Error()
	}
	if condBody != nil {
		condition = datatypes.JSON(condBody)
	}
	return condition, datatypes.JSON(actionsBody), ""
}
