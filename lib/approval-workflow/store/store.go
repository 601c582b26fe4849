package approvalworkflowstore

import (
	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Provider interface {
	Create(rec dbmodels.ApprovalWorkflow) (id string, err error)
	GetByID(spaceID, id string) (rec *dbmodels.ApprovalWorkflow, err error)
	Update(spaceID, id string, updMap map[string]interface{}) error
	ListCount(spaceID string, filter approvalapimodels.WorkflowFilter) (count int64, err error)
	List(spaceID string, filter approvalapimodels.WorkflowFilter) (list []dbmodels.ApprovalWorkflow, err error)
	// FindActive returns the active workflows for (resource, action), oldest first.
	FindActive(spaceID, resource, action string) (list []dbmodels.ApprovalWorkflow, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.ApprovalWorkflow) (id string, err error) {
	err = i.db.
		Save(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(spaceID, id string) (*dbmodels.ApprovalWorkflow, error) {
	rec := dbmodels.ApprovalWorkflow{}
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
		Model(&dbmodels.ApprovalWorkflow{}).
		Where("id = ?", id).
		Where("space_id = ?", spaceID).
		Updates(updMap).
		Error
	if err != nil {
		return err
	}
	return nil
}

func (i impl) ListCount(spaceID string, filter approvalapimodels.WorkflowFilter) (count int64, err error) {
	err = i.filter(spaceID, filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (i impl) List(spaceID string, filter approvalapimodels.WorkflowFilter) (list []dbmodels.ApprovalWorkflow, err error) {
	list = []dbmodels.ApprovalWorkflow{}
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

func (i impl) FindActive(spaceID, resource, action string) (list []dbmodels.ApprovalWorkflow, err error) {
	list = []dbmodels.ApprovalWorkflow{}
	err = i.db.
		Where("space_id = ?", spaceID).
		Where("resource = ?", resource).
		Where("action = ?", action).
		Where("is_active = ?", true).
		Order("created_at").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) filter(spaceID string, filter approvalapimodels.WorkflowFilter) *gorm.DB {
	tx := i.db.
		Model(&dbmodels.ApprovalWorkflow{}).
		Where("space_id = ?", spaceID)
	if filter.Resource != "" {
		tx = tx.Where("resource = ?", filter.Resource)
	}
	if filter.Action != "" {
		tx = tx.Where("action = ?", filter.Action)
	}
	if filter.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}
	return tx
}
