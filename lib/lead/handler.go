package leadhandler

import (
	"crm-backend/db"
	"crm-backend/lib/automation"
	"crm-backend/lib/automation/entity"
	leadstore "crm-backend/lib/lead/store"
	initchecker "crm-backend/lib/utils/init-checker"
	"crm-backend/models"
	crmapimodels "crm-backend/models/api/crm"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Provider interface {
	Create(reqCtx models.RequestContext, data crmapimodels.LeadData) (id string, err error)
	GetByID(spaceID, id string) (*crmapimodels.LeadView, error)
	Update(reqCtx models.RequestContext, id string, data crmapimodels.LeadData) (hMsg string, err error)
}

var Instance Provider

func NewHandler() {
	initchecker.CheckInit("automation", automation.Instance)
	Instance = NewInstance(leadstore.NewInstance(db.DB), automation.Instance)
}

func NewInstance(store leadstore.Provider, automationRunner automation.Provider) Provider {
	return impl{
		store:      store,
		automation: automationRunner,
	}
}

type impl struct {
	store      leadstore.Provider
	automation automation.Provider
}

func (i impl) getLogger(spaceID, leadID string) *log.Entry {
	logger := log.WithField("space_id", spaceID)
	if leadID != "" {
		logger = logger.WithField("lead_id", leadID)
	}
	return logger
}

func (i impl) Create(reqCtx models.RequestContext, data crmapimodels.LeadData) (id string, err error) {
	rec := dbmodels.Lead{
		BaseSpaceModel: dbmodels.BaseSpaceModel{
			SpaceID: reqCtx.SpaceID,
		},
		Name:    data.Name,
		Company: data.Company,
		Email:   data.Email,
		Phone:   data.Phone,
		Status:  data.Status,
		Source:  data.Source,
		Score:   data.Score,
		OwnerID: data.OwnerID,
		Notes:   data.Notes,
	}
	if rec.Status == "" {
		rec.Status = "new"
	}
	id, err = i.store.Create(rec)
	if err != nil {
		return "", errors.Wrap(err, "failed to create lead")
	}
	current, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil || current == nil {
		i.getLogger(reqCtx.SpaceID, id).WithError(err).Warn("lead created but could not be reloaded, automation skipped")
		return id, nil
	}
	i.runAutomation(reqCtx, models.TriggerOnCreate, *current, nil)
	return id, nil
}

func (i impl) GetByID(spaceID, id string) (*crmapimodels.LeadView, error) {
	rec, err := i.store.GetByID(spaceID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get lead")
	}
	if rec == nil {
		return nil, nil
	}
	view := crmapimodels.LeadConvert(*rec)
	return &view, nil
}

func (i impl) Update(reqCtx models.RequestContext, id string, data crmapimodels.LeadData) (hMsg string, err error) {
	previous, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil {
		return "", errors.Wrap(err, "failed to get lead")
	}
	if previous == nil {
		return "lead not found", nil
	}
	updMap := map[string]interface{}{
		"name":     data.Name,
		"company":  data.Company,
		"email":    data.Email,
		"phone":    data.Phone,
		"source":   data.Source,
		"score":    data.Score,
		"owner_id": data.OwnerID,
		"notes":    data.Notes,
	}
	if data.Status != "" {
		updMap["status"] = data.Status
	}
	err = i.store.Update(reqCtx.SpaceID, id, updMap)
	if err != nil {
		return "", errors.Wrap(err, "failed to update lead")
	}
	current, err := i.store.GetByID(reqCtx.SpaceID, id)
	if err != nil || current == nil {
		i.getLogger(reqCtx.SpaceID, id).WithError(err).Warn("lead updated but could not be reloaded, automation skipped")
		return "", nil
	}
	i.runAutomation(reqCtx, models.TriggerOnUpdate, *current, previous)
	return "", nil
}

func (i impl) runAutomation(reqCtx models.RequestContext, trigger models.TriggerType, current dbmodels.Lead, previous *dbmodels.Lead) {
	event := automation.Event{
		SpaceID:       reqCtx.SpaceID,
		Kind:          entity.Lead,
		TriggerType:   trigger,
		EntityID:      current.ID,
		Current:       current.Snapshot(),
		PerformedByID: reqCtx.CallerID,
	}
	if previous != nil {
		event.Previous = previous.Snapshot()
	}
	i.automation.Run(event)
}
