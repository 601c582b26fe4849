package auditstore

import (
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Provider interface {
	Create(rec dbmodels.AuditLog) (id string, err error)
	ListByResource(spaceID, resource, resourceID string) (list []dbmodels.AuditLog, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.AuditLog) (id string, err error) {
	err = i.db.
		Save(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) ListByResource(spaceID, resource, resourceID string) (list []dbmodels.AuditLog, err error) {
	list = []dbmodels.AuditLog{}
	err = i.db.
		Where("space_id = ?", spaceID).
		Where("resource = ?", resource).
		Where("resource_id = ?", resourceID).
		Order("created_at").
		Find(&list).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}
