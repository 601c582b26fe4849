package models

type UserRole string

const (
	AdminRole   UserRole = "admin"
	ManagerRole UserRole = "manager"
	SalesRole   UserRole = "sales"
	FinanceRole UserRole = "finance"
	SupportRole UserRole = "support"
)

var roleHumanName = map[UserRole]string{
	AdminRole:   "Administrator",
	ManagerRole: "Sales manager",
	SalesRole:   "Sales representative",
	FinanceRole: "Finance",
	SupportRole: "Support",
}

func (r UserRole) ToHuman() string {
	if human, exist := roleHumanName[r]; exist {
		return human
	}
	return string(r)
}

func (r UserRole) IsAdmin() bool {
	return r == AdminRole
}

const SystemUser = "system"

func (r UserRole) IsValid() bool {
	_, exist := roleHumanName[r]
	return exist
}
