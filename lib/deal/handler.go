package dealhandler

import (
	"fmt"

	"crm-backend/db"
	"crm-backend/lib/automation"
	"crm-backend/lib/automation/entity"
	dealstore "crm-backend/lib/deal/store"
	mutationguard "crm-backend/lib/mutation-guard"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/models"
	crmapimodels "crm-backend/models/api/crm"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Provider interface {
	Create(reqCtx models.RequestContext, data crmapimodels.DealData) (id string, err error)
	GetByID(spaceID, id string) (*crmapimodels.DealView, error)
	Update(reqCtx models.RequestContext, id string, data crmapimodels.DealData) (hMsg string, err error)
	ChangeStage(reqCtx models.RequestContext, id string, data crmapimodels.DealStageData) (hMsg string, err error)
	// ChangeAmount is protected: large amounts may need approval before they are written.
	ChangeAmount(reqCtx models.RequestContext, id string, data crmapimodels.DealAmountData) (result mutationguard.Result, hMsg string, err error)
}

var Instance Provider

func NewHandler() {
	initchecker.CheckInit(
		"automation", automation.Instance,
		"mutation guard", mutationguard.Instance,
	)
	Instance = NewInstance(dealstore.NewInstance(db.DB), automation.Instance, mutationguard.Instance)
}

func NewInstance(store dealstore.Provider, automationRunner automation.Provider, guard mutationguard.Provider) Provider {
	return impl{
		store:      store,
		automation: automationRunner,
		guard:      guard,
	}
}

type impl struct {
	store      dealstore.Provider
	automation automation.Provider
	guard      mutationguard.Provider
}

func (i impl) getLogger(spaceID, dealID string) *log.Entry {
	logger := log.WithField("space_id", spaceID)
	if dealID != "" {
		logger = logger.WithField("deal_id", dealID)
	}
	return logger
}

func (i impl) Create(reqCtx models.RequestContext, data crmapimodels.DealData) (id string, err error) {
	rec := dbmodels.Deal{
		BaseSpaceModel: dbmodels.BaseSpaceModel{
			SpaceID: reqCtx.SpaceID,
		},
		Title:       data.Title,
		Stage:       data.Stage,
		Amount:      data.Amount,
		Currency:    data.Currency,
		Probability: data.Probability,
		CustomerID:  data.CustomerID,
		LeadID:      data.LeadID,
		Notes:       data.Notes,
	}
	if rec.Stage == "" {
		rec.Stage = "Prospecting"
	}
	id, err = i.store.Create(rec)
	if err != nil {
		return "", errors.Wrap(err, "failed to create deal")
	}
	i.afterChange(reqCtx, id, nil, models.TriggerOnCreate)
	return id, nil
}

func (i impl) GetByID(spaceID, id string) (*crmapimodels.DealView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get deal")
	}
	if rec == nil {
		return nil, nil
	}
	view := crmapimodels.DealConvert(*rec)
	return &view, nil
}

// Update writes everything except the amount, which only changes through ChangeAmount.
func (i impl) Update(reqCtx models.RequestContext, id string, data crmapimodels.DealData) (hMsg string, err error) {
	previous, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil {
		return "", errors.Wrap(err, "failed to get deal")
	}
	if previous == nil {
		return "deal not found", nil
	}
	updMap := map[string]interface{}{
		"title":       data.Title,
		"currency":    data.Currency,
		"probability": data.Probability,
		"customer_id": data.CustomerID,
		"lead_id":     data.LeadID,
		"notes":       data.Notes,
	}
	if data.Stage != "" {
		updMap["stage"] = data.Stage
	}
	err = i.store.Update(reqCtx.SpaceID, id, updMap)
	if err != nil {
		return "", errors.Wrap(err, "failed to update deal")
	}
	i.afterChange(reqCtx, id, previous, models.TriggerOnUpdate)
	return "", nil
}

func (i impl) ChangeStage(reqCtx models.RequestContext, id string, data crmapimodels.DealStageData) (hMsg string, err error) {
	previous, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil {
		return "", errors.Wrap(err, "failed to get deal")
	}
	if previous == nil {
		return "deal not found", nil
	}
	if previous.Stage == data.Stage {
		return "", nil
	}
	err = i.store.Update(reqCtx.SpaceID, id, map[string]interface{}{"stage": data.Stage})
	if err != nil {
		return "", errors.Wrap(err, "failed to change deal stage")
	}
	i.getLogger(reqCtx.SpaceID, id).
		WithField("stage_from", previous.Stage).
		WithField("stage_to", data.Stage).
		Info("deal stage changed")
	i.afterChange(reqCtx, id, previous, models.TriggerOnStageChange)
	return "", nil
}

func (i impl) ChangeAmount(reqCtx models.RequestContext, id string, data crmapimodels.DealAmountData) (result mutationguard.Result, hMsg string, err error) {
	previous, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil {
		return result, "", errors.Wrap(err, "failed to get deal")
	}
	if previous == nil {
		return result, "deal not found", nil
	}
	result = i.guard.Protect(reqCtx, mutationguard.Operation{
		Resource:       models.ResourceDeal,
		ResourceID:     id,
		Action:         models.ActionAmountOverride,
		Payload:        map[string]any{"amount": data.Amount},
		OriginalValues: map[string]any{"amount": previous.Amount},
		Execute: func() error {
			return i.store.Update(reqCtx.SpaceID, id, map[string]interface{}{"amount": data.Amount})
		},
		AuditMessage: fmt.Sprintf("deal amount changed from %v to %v", previous.Amount, data.Amount),
	})
	if result.Outcome == mutationguard.Executed {
		i.afterChange(reqCtx, id, previous, models.TriggerOnUpdate)
	}
	return result, "", nil
}

// afterChange raises the lifecycle event once the change is committed.
// An update that moves the stage also raises on_stage_change.
func (i impl) afterChange(reqCtx models.RequestContext, id string, previous *dbmodels.Deal, trigger models.TriggerType) {
	current, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil || current == nil {
		i.getLogger(reqCtx.SpaceID, id).WithError(err).Warn("deal could not be reloaded, automation skipped")
		return
	}
	event := automation.Event{
		SpaceID:       reqCtx.SpaceID,
		Kind:          entity.Deal,
		TriggerType:   trigger,
		EntityID:      id,
		Current:       current.Snapshot(),
		PerformedByID: reqCtx.CallerID,
	}
	if previous != nil {
		event.Previous = previous.Snapshot()
	}
	i.automation.Run(event)
	if trigger == models.TriggerOnUpdate && previous != nil && previous.Stage != current.Stage {
		event.TriggerType = models.TriggerOnStageChange
		i.automation.Run(event)
	}
}
