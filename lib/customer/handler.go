package customerhandler

import (
	"fmt"

	"crm-backend/db"
	customerstore "crm-backend/lib/customer/store"
	mutationguard "crm-backend/lib/mutation-guard"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/models"
	crmapimodels "crm-backend/models/api/crm"

	"github.com/pkg/errors"
)

type Provider interface {
	GetByID(spaceID, id string) (*crmapimodels.CustomerView, error)
	Delete(reqCtx models.RequestContext, id string) (result mutationguard.Result, hMsg string, err error)
}

var Instance Provider

func NewHandler() {
	initchecker.CheckInit("mutation guard", mutationguard.Instance)
	Instance = NewInstance(customerstore.NewInstance(db.DB), mutationguard.Instance)
}

func NewInstance(store customerstore.Provider, guard mutationguard.Provider) Provider {
	return impl{
		store: store,
		guard: guard,
	}
}

type impl struct {
	store customerstore.Provider
	guard mutationguard.Provider
}

func (i impl) GetByID(spaceID, id string) (*crmapimodels.CustomerView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get customer")
	}
	if rec == nil {
		return nil, nil
	}
	view := crmapimodels.CustomerConvert(*rec)
	return &view, nil
}

func (i impl) Delete(reqCtx models.RequestContext, id string) (result mutationguard.Result, hMsg string, err error) {
	rec, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil {
		return result, "", errors.Wrap(err, "failed to get customer")
	}
	if rec == nil {
		return result, "customer not found", nil
	}
	result = i.guard.Protect(reqCtx, mutationguard.Operation{
		Resource:   models.ResourceCustomer,
		ResourceID: id,
		Action:     models.ActionDelete,
		Payload:    rec.Snapshot(),
		Execute: func() error {
			return i.store.Delete(reqCtx.SpaceID, id)
		},
		AuditMessage: fmt.Sprintf("customer %v deleted", rec.Name),
	})
	return result, "", nil
}
