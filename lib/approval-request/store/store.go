package approvalrequeststore

import (
	"time"

	"crm-backend/models"
	approvalapimodels "crm-backend/models/api/approval"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Provider interface {
	Create(rec dbmodels.ApprovalRequest) (id string, err error)
	GetByID(spaceID, id string) (rec *dbmodels.ApprovalRequest, err error)
	FindPending(spaceID, resource, resourceID, action string) (rec *dbmodels.ApprovalRequest, err error)
	// ListGranted returns approved requests that have not been consumed yet, newest approval first.
	ListGranted(spaceID, resource, resourceID, action string) (list []dbmodels.ApprovalRequest, err error)
	// Transition updates the request only while it is still in status from.
	Transition(spaceID, id string, from models.ApprovalStatus, updMap map[string]interface{}) (updated bool, err error)
	// MarkConsumed claims an approval. Only one caller gets updated == true.
	MarkConsumed(spaceID, id string, at time.Time) (updated bool, err error)
	ReleaseConsumed(spaceID, id string) (updated bool, err error)
	ListPendingForApprover(spaceID, userID string, role models.UserRole, all bool) (list []dbmodels.ApprovalRequest, err error)
	CountPendingForApprover(spaceID, userID string, role models.UserRole, all bool) (count int64, err error)
	ListCount(spaceID, userID string, filter approvalapimodels.RequestFilter) (count int64, err error)
	List(spaceID, userID string, filter approvalapimodels.RequestFilter) (list []dbmodels.ApprovalRequest, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.ApprovalRequest) (id string, err error) {
	err = i.db.
		Omit("Workflow").
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(spaceID, id string) (*dbmodels.ApprovalRequest, error) {
	rec := dbmodels.ApprovalRequest{}
	err := i.db.
		Where("id = ?", id).
		Where("space_id = ?", spaceID).
		Preload("Workflow").
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

func (i impl) FindPending(spaceID, resource, resourceID, action string) (*dbmodels.ApprovalRequest, error) {
	return i.findOne(
		i.byTarget(spaceID, resource, resourceID, action).
			Where("status = ?", models.ApprovalPending),
	)
}

func (i impl) ListGranted(spaceID, resource, resourceID, action string) (list []dbmodels.ApprovalRequest, err error) {
	list = []dbmodels.ApprovalRequest{}
	err = i.byTarget(spaceID, resource, resourceID, action).
		Where("status = ?", models.ApprovalApproved).
		Where("consumed_at IS NULL").
		Order("approved_at DESC").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) Transition(spaceID, id string, from models.ApprovalStatus, updMap map[string]interface{}) (bool, error) {
	tx := i.db.
		Model(&dbmodels.ApprovalRequest{}).
		Where("id = ?", id).
		Where("space_id = ?", spaceID).
		Where("status = ?", from).
		Updates(updMap)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (i impl) MarkConsumed(spaceID, id string, at time.Time) (bool, error) {
	tx := i.db.
		Model(&dbmodels.ApprovalRequest{}).
		Where("id = ?", id).
		Where("space_id = ?", spaceID).
		Where("status = ?", models.ApprovalApproved).
		Where("consumed_at IS NULL").
		Update("consumed_at", at)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (i impl) ReleaseConsumed(spaceID, id string) (bool, error) {
	tx := i.db.
		Model(&dbmodels.ApprovalRequest{}).
		Where("id = ?", id).
		Where("space_id = ?", spaceID).
		Where("status = ?", models.ApprovalApproved).
		Where("consumed_at IS NOT NULL").
		Update("consumed_at", nil)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (i impl) ListPendingForApprover(spaceID, userID string, role models.UserRole, all bool) (list []dbmodels.ApprovalRequest, err error) {
	list = []dbmodels.ApprovalRequest{}
	err = i.approverScope(spaceID, userID, role, all).
		Preload("Workflow").
		Order("approval_requests.requested_at").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) CountPendingForApprover(spaceID, userID string, role models.UserRole, all bool) (count int64, err error) {
	err = i.approverScope(spaceID, userID, role, all).
		Count(&count).
		Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (i impl) ListCount(spaceID, userID string, filter approvalapimodels.RequestFilter) (count int64, err error) {
	err = i.filter(spaceID, userID, filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (i impl) List(spaceID, userID string, filter approvalapimodels.RequestFilter) (list []dbmodels.ApprovalRequest, err error) {
	list = []dbmodels.ApprovalRequest{}
	page, limit := filter.GetPage()
	err = i.filter(spaceID, userID, filter).
		Preload("Workflow").
		Order("requested_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) byTarget(spaceID, resource, resourceID, action string) *gorm.DB {
	return i.db.
		Where("space_id = ?", spaceID).
		Where("resource = ?", resource).
		Where("resource_id = ?", resourceID).
		Where("action = ?", action)
}

func (i impl) findOne(tx *gorm.DB) (*dbmodels.ApprovalRequest, error) {
	rec := dbmodels.ApprovalRequest{}
	err := tx.First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// approverScope selects pending requests whose workflow lists the caller by role or id.
func (i impl) approverScope(spaceID, userID string, role models.UserRole, all bool) *gorm.DB {
	tx := i.db.
		Model(&dbmodels.ApprovalRequest{}).
		Where("approval_requests.space_id = ?", spaceID).
		Where("approval_requests.status = ?", models.ApprovalPending)
	if all {
		return tx
	}
	return tx.
		Joins("JOIN approval_workflows ON approval_workflows.id = approval_requests.workflow_id").
		Where("(? = ANY(approval_workflows.approver_roles) OR ? = ANY(approval_workflows.approver_user_ids))", string(role), userID)
}

func (i impl) filter(spaceID, userID string, filter approvalapimodels.RequestFilter) *gorm.DB {
	tx := i.db.
		Model(&dbmodels.ApprovalRequest{}).
		Where("space_id = ?", spaceID)
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.Resource != "" {
		tx = tx.Where("resource = ?", filter.Resource)
	}
	if filter.MyRequests {
		tx = tx.Where("requested_by_id = ?", userID)
	}
	return tx
}
