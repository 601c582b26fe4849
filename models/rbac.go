package models

type RbacFunc func(spaceID, userID string, role UserRole, path string) bool

type Module string

const (
	AutomationRuleModule   Module = "AUTOMATION"
	ApprovalWorkflowModule Module = "APPROVAL_WORKFLOW"
	ApprovalRequestModule  Module = "APPROVAL_REQUEST"
	LeadModule             Module = "LEAD"
	DealModule             Module = "DEAL"
	CustomerModule         Module = "CUSTOMER"
	DocumentModule         Module = "DOCUMENT"
	AccountModule          Module = "ACCOUNT"
)

type Permission string

const (
	CreatePermission Permission = "CREATE"
	EditPermission   Permission = "EDIT"
	ViewPermission   Permission = "VIEW"
	ManagePermission Permission = "MANAGE"
	DeletePermission Permission = "DELETE"
	FlowPermission   Permission = "FLOW"
)
