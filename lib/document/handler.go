package documenthandler

import (
	"fmt"

	"crm-backend/db"
	documentstore "crm-backend/lib/document/store"
	mutationguard "crm-backend/lib/mutation-guard"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/models"
	crmapimodels "crm-backend/models/api/crm"

	"github.com/pkg/errors"
)

type Provider interface {
	GetByID(spaceID, id string) (*crmapimodels.DocumentView, error)
	Delete(reqCtx models.RequestContext, id string) (result mutationguard.Result, hMsg string, err error)
}

var Instance Provider

func NewHandler() {
	initchecker.CheckInit("mutation guard", mutationguard.Instance)
	Instance = NewInstance(documentstore.NewInstance(db.DB), mutationguard.Instance)
}

func NewInstance(store documentstore.Provider, guard mutationguard.Provider) Provider {
	return impl{
		store: store,
		guard: guard,
	}
}

type impl struct {
	store documentstore.Provider
	guard mutationguard.Provider
}

func (i impl) GetByID(spaceID, id string) (*crmapimodels.DocumentView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get document")
	}
	if rec == nil {
		return nil, nil
	}
	view := crmapimodels.DocumentConvert(*rec)
	return &view, nil
}

func (i impl) Delete(reqCtx models.RequestContext, id string) (result mutationguard.Result, hMsg string, err error) {
	rec, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil {
		return result, "", errors.Wrap(err, "failed to get document")
	}
	if rec == nil {
		return result, "document not found", nil
	}
	result = i.guard.Protect(reqCtx, mutationguard.Operation{
		Resource:   models.ResourceDocument,
		ResourceID: id,
		Action:     models.ActionDelete,
		Payload:    rec.Snapshot(),
		Execute: func() error {
			return i.store.Delete(reqCtx.SpaceID, id)
		},
		AuditMessage: fmt.Sprintf("document %v deleted", rec.Title),
	})
	return result, "", nil
}
