package rbac

import (
	"crm-backend/models"
)

var (
	AdminRoleSet           = []models.UserRole{models.AdminRole}
	AdminManagerRoleSet    = []models.UserRole{models.AdminRole, models.ManagerRole}
	AdminManagerSalesSet   = []models.UserRole{models.AdminRole, models.ManagerRole, models.SalesRole}
	AdminManagerFinanceSet = []models.UserRole{models.AdminRole, models.ManagerRole, models.FinanceRole}
	AllRoles               = []models.UserRole{models.AdminRole, models.ManagerRole, models.SalesRole, models.FinanceRole, models.SupportRole}
)

func (i *impl) initRules() {
	i.automationRules()
	i.approvalWorkflows()
	i.approvalRequests()
	i.leads()
	i.deals()
	i.customers()
	i.documents()
	i.account()
}

func (i *impl) automationRules() {
	// VIEW
	i.mustRegister(models.AutomationRuleModule, models.ViewPermission, AdminManagerRoleSet, "/api/v1/automation/rules/list [post]", nil)
	i.mustRegister(models.AutomationRuleModule, models.ViewPermission, AdminManagerRoleSet, "/api/v1/automation/rules/{id} [get]", nil)
	// MANAGE
	i.mustRegister(models.AutomationRuleModule, models.ManagePermission, AdminManagerRoleSet, "/api/v1/automation/rules [post]", nil)
	i.mustRegister(models.AutomationRuleModule, models.ManagePermission, AdminManagerRoleSet, "/api/v1/automation/rules/{id} [put]", nil)
	i.mustRegister(models.AutomationRuleModule, models.ManagePermission, AdminManagerRoleSet, "/api/v1/automation/rules/{id} [delete]", nil)
}

func (i *impl) approvalWorkflows() {
	// VIEW
	i.mustRegister(models.ApprovalWorkflowModule, models.ViewPermission, AdminManagerFinanceSet, "/api/v1/approval/workflows/list [post]", nil)
	i.mustRegister(models.ApprovalWorkflowModule, models.ViewPermission, AdminManagerFinanceSet, "/api/v1/approval/workflows/{id} [get]", nil)
	// MANAGE
	i.mustRegister(models.ApprovalWorkflowModule, models.ManagePermission, AdminRoleSet, "/api/v1/approval/workflows [post]", nil)
	i.mustRegister(models.ApprovalWorkflowModule, models.ManagePermission, AdminRoleSet, "/api/v1/approval/workflows/{id} [put]", nil)
	i.mustRegister(models.ApprovalWorkflowModule, models.ManagePermission, AdminRoleSet, "/api/v1/approval/workflows/{id} [delete]", nil)
}

func (i *impl) approvalRequests() {
	// VIEW
	i.mustRegister(models.ApprovalRequestModule, models.ViewPermission, AllRoles, "/api/v1/approval/requests/list [post]", nil)
	i.mustRegister(models.ApprovalRequestModule, models.ViewPermission, AllRoles, "/api/v1/approval/requests/inbox [get]", nil)
	i.mustRegister(models.ApprovalRequestModule, models.ViewPermission, AllRoles, "/api/v1/approval/requests/count [get]", nil)
	i.mustRegister(models.ApprovalRequestModule, models.ViewPermission, AdminManagerFinanceSet, "/api/v1/approval/requests/export [get]", nil)
	i.mustRegister(models.ApprovalRequestModule, models.ViewPermission, AllRoles, "/api/v1/approval/requests/{id} [get]", nil)
	i.mustRegister(models.ApprovalRequestModule, models.ViewPermission, AllRoles, "/api/v1/approval/requests/{id}/history [get]", nil)
	// FLOW, approver membership is checked by the request handler
	i.mustRegister(models.ApprovalRequestModule, models.FlowPermission, AllRoles, "/api/v1/approval/requests/{id}/approve [post]", nil)
	i.mustRegister(models.ApprovalRequestModule, models.FlowPermission, AllRoles, "/api/v1/approval/requests/{id}/reject [post]", nil)
}

func (i *impl) leads() {
	// VIEW
	i.mustRegister(models.LeadModule, models.ViewPermission, AllRoles, "/api/v1/leads/{id} [get]", nil)
	// EDIT
	i.mustRegister(models.LeadModule, models.CreatePermission, AdminManagerSalesSet, "/api/v1/leads [post]", nil)
	i.mustRegister(models.LeadModule, models.EditPermission, AdminManagerSalesSet, "/api/v1/leads/{id} [put]", nil)
}

func (i *impl) deals() {
	// VIEW
	i.mustRegister(models.DealModule, models.ViewPermission, AllRoles, "/api/v1/deals/{id} [get]", nil)
	// EDIT
	i.mustRegister(models.DealModule, models.CreatePermission, AdminManagerSalesSet, "/api/v1/deals [post]", nil)
	i.mustRegister(models.DealModule, models.EditPermission, AdminManagerSalesSet, "/api/v1/deals/{id} [put]", nil)
	i.mustRegister(models.DealModule, models.EditPermission, AdminManagerSalesSet, "/api/v1/deals/{id}/stage [put]", nil)
	i.mustRegister(models.DealModule, models.EditPermission, AdminManagerSalesSet, "/api/v1/deals/{id}/amount [put]", nil)
}

func (i *impl) customers() {
	// VIEW
	i.mustRegister(models.CustomerModule, models.ViewPermission, AllRoles, "/api/v1/customers/{id} [get]", nil)
	// DELETE, gated by approval workflows
	i.mustRegister(models.CustomerModule, models.DeletePermission, AdminManagerSalesSet, "/api/v1/customers/{id} [delete]", nil)
}

func (i *impl) documents() {
	// VIEW
	i.mustRegister(models.DocumentModule, models.ViewPermission, AllRoles, "/api/v1/documents/{id} [get]", nil)
	// DELETE
	i.mustRegister(models.DocumentModule, models.DeletePermission, AllRoles, "/api/v1/documents/{id} [delete]", nil)
}

func (i *impl) account() {
	i.mustRegister(models.AccountModule, models.ViewPermission, AllRoles, "/api/v1/account/permissions [get]", nil)
}
