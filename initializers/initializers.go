package initializers

import (
	"crm-backend/config"
	"crm-backend/fiberlog"
	approvalpolicy "crm-backend/lib/approval-policy"
	approvalrequesthandler "crm-backend/lib/approval-request"
	approvalworkflowhandler "crm-backend/lib/approval-workflow"
	audithandler "crm-backend/lib/audit"
	"crm-backend/lib/automation"
	automationrulehandler "crm-backend/lib/automation-rule"
	customerhandler "crm-backend/lib/customer"
	dealhandler "crm-backend/lib/deal"
	documenthandler "crm-backend/lib/document"
	xlsexport "crm-backend/lib/export/xls"
	leadhandler "crm-backend/lib/lead"
	mutationguard "crm-backend/lib/mutation-guard"
	"crm-backend/lib/rbac"
)

var LoggerConfig *fiberlog.Config

// InitAllServices wires handlers in dependency order.
func InitAllServices() {
	LoggerConfig = InitLogger()
	config.InitConfig()
	InitDBConnection()
	audithandler.NewHandler()
	automationrulehandler.NewHandler()
	approvalworkflowhandler.NewHandler()
	approvalrequesthandler.NewHandler()
	approvalpolicy.NewHandler()
	mutationguard.NewHandler()
	automation.NewHandler()
	leadhandler.NewHandler()
	dealhandler.NewHandler()
	customerhandler.NewHandler()
	documenthandler.NewHandler()
	xlsexport.NewHandler()
	rbac.NewHandler()
}
