package automationrulestore

import (
	automationrules "crm-backend/lib/automation/rules"
	"crm-backend/models"
	automationapimodels "crm-backend/models/api/automation"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Provider interface {
	Create(rec dbmodels.AutomationRule) (id string, err error)
	GetByID(spaceID, id string) (rec *dbmodels.AutomationRule, err error)
	Update(spaceID, id string, updMap map[string]interface{}) error
	ListCount(spaceID string, filter automationapimodels.RuleFilter) (count int64, err error)
	List(spaceID string, filter automationapimodels.RuleFilter) (list []dbmodels.AutomationRule, err error)
	// FindActive returns decoded active rules for the exact (module, trigger) pair in creation order.
	FindActive(spaceID string, module models.AutomationModule, trigger models.TriggerType) ([]automationrules.Rule, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.AutomationRule) (id string, err error) {
	err = i.db.
		Save(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(spaceID, id string) (*dbmodels.AutomationRule, error) {
	rec := dbmodels.AutomationRule{}
	err := i.db.
		Where("id = ?", id).
		Where("space_id = ?", spaceID).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) Update(spaceID, id string, updMap map[string]interface{}) error {
	if len(updMap) == 0 {
		return nil
	}
	err := i.db.
		Model(&dbmodels.AutomationRule{}).
		Where("id = ?", id).
		Where("space_id = ?", spaceID).
		Updates(updMap).
		Error
	if err != nil {
		return err
	}
	return nil
}

func (i impl) ListCount(spaceID string, filter automationapimodels.RuleFilter) (count int64, err error) {
	tx := i.filter(spaceID, filter)
	err = tx.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (i impl) List(spaceID string, filter automationapimodels.RuleFilter) (list []dbmodels.AutomationRule, err error) {
	list = []dbmodels.AutomationRule{}
	page, limit := filter.GetPage()
	err = i.filter(spaceID, filter).
		Order("created_at").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) FindActive(spaceID string, module models.AutomationModule, trigger models.TriggerType) ([]automationrules.Rule, error) {
	list := []dbmodels.AutomationRule{}
	err := i.db.
		Where("space_id = ?", spaceID).
		Where("module = ?", module).
		Where("trigger_type = ?", trigger).
		Where("is_active = ?", true).
		Order("created_at").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	result := make([]automationrules.Rule, 0, len(list))
	for _, rec := range list {
		result = append(result, automationrules.FromRecord(rec))
	}
	return result, nil
}

func (i impl) filter(spaceID string, filter automationapimodels.RuleFilter) *gorm.DB {
	tx := i.db.
		Model(&dbmodels.AutomationRule{}).
		Where("space_id = ?", spaceID)
	if filter.Module != "" {
		tx = tx.Where("module = ?", filter.Module)
	}
	if filter.TriggerType != "" {
		tx = tx.Where("trigger_type = ?", filter.TriggerType)
	}
	if filter.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}
	return tx
}
