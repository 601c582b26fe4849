package models

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

var approvalStatusHumanName = map[ApprovalStatus]string{
	ApprovalPending:  "Pending",
	ApprovalApproved: "Approved",
	ApprovalRejected: "Rejected",
}

func (s ApprovalStatus) ToHuman() string {
	if human, exist := approvalStatusHumanName[s]; exist {
		return human
	}
	return string(s)
}

func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// AllowTransition reports whether s may move to next. Only pending requests move.
func (s ApprovalStatus) AllowTransition(next ApprovalStatus) bool {
	return s == ApprovalPending && next.IsTerminal()
}

// Resource and action identifiers used by guarded operations.
const (
	ResourceCustomer = "customer"
	ResourceDocument = "document"
	ResourceDeal     = "deal"

	ActionDelete         = "delete"
	ActionAmountOverride = "amount_override"
)
