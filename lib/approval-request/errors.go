package approvalrequesthandler

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound     = errors.New("approval request not found")
	ErrForbidden    = errors.New("caller is not an approver of this request")
	ErrInvalidState = errors.New("approval request is not pending")
	ErrBusy         = errors.New("approval request creation is busy, try again")
	// ErrReasonRequired is a validation failure: rejecting needs a reason.
	ErrReasonRequired = errors.New("rejection reason is required")
)

// ConflictError is returned when a pending request already exists for the same target.
type ConflictError struct {
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pending approval request %v already exists", e.ExistingID)
}

func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
