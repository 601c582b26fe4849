package db

import (
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// pendingApprovalIndex keeps at most one pending request per resource and action.
const pendingApprovalIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_requests_pending
	ON approval_requests (space_id, resource, resource_id, action) WHERE status = 'pending'`

func AutoMigrateDB() error {
	DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")
	log.Info("running migrations")
	if err := DB.AutoMigrate(&dbmodels.Customer{}); err != nil {
		return errors.Wrap(err, "failed to migrate Customer")
	}
	if err := DB.AutoMigrate(&dbmodels.Document{}); err != nil {
		return errors.Wrap(err, "failed to migrate Document")
	}
	if err := DB.AutoMigrate(&dbmodels.Lead{}); err != nil {
		return errors.Wrap(err, "failed to migrate Lead")
	}
	if err := DB.AutoMigrate(&dbmodels.Deal{}); err != nil {
		return errors.Wrap(err, "failed to migrate Deal")
	}
	if err := DB.AutoMigrate(&dbmodels.AutomationRule{}); err != nil {
		return errors.Wrap(err, "failed to migrate AutomationRule")
	}
	if err := DB.AutoMigrate(&dbmodels.ApprovalWorkflow{}); err != nil {
		return errors.Wrap(err, "failed to migrate ApprovalWorkflow")
	}
	if err := DB.AutoMigrate(&dbmodels.ApprovalRequest{}); err != nil {
		return errors.Wrap(err, "failed to migrate ApprovalRequest")
	}
	if err := DB.Exec(pendingApprovalIndex).Error; err != nil {
		return errors.Wrap(err, "failed to create pending approval index")
	}
	if err := DB.AutoMigrate(&dbmodels.AuditLog{}); err != nil {
		return errors.Wrap(err, "failed to migrate AuditLog")
	}
	log.Info("migrations finished")
	return nil
}
