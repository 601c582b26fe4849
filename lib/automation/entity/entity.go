package entity

import (
	"crm-backend/models"

	"github.com/pkg/errors"
)

// Updater applies a partial column update to one record of a space.
type Updater interface {
	Update(spaceID, id string, updMap map[string]interface{}) error
}

// Targets holds the storage target of every entity kind.
type Targets struct {
	Leads Updater
	Deals Updater
}

// Kind is the closed set of entity types automation can act on.
type Kind interface {
	Name() string
	Module() models.AutomationModule
	// Column maps a snapshot field name to a writable column.
	Column(field string) (string, bool)
	// OwnerUpdate is the partial update that makes userID the owner of the entity.
	OwnerUpdate(userID string) map[string]interface{}
	target(targets Targets) Updater
}

var (
	Lead Kind = leadKind{}
	Deal Kind = dealKind{}
)

// Apply writes updMap to the storage target of kind.
func Apply(kind Kind, targets Targets, spaceID, id string, updMap map[string]interface{}) error {
	if kind == nil {
		return errors.New("entity kind is not set")
	}
	updater := kind.target(targets)
	if updater == nil {
		return errors.Errorf("no storage target for entity %v", kind.Name())
	}
	return updater.Update(spaceID, id, updMap)
}

// ForModule resolves the entity kind bound to an automation module.
func ForModule(module models.AutomationModule) (Kind, error) {
	switch module {
	case models.AutomationLead:
		return Lead, nil
	case models.AutomationDeal:
		return Deal, nil
	}
	return nil, errors.Errorf("unknown automation module: %v", module)
}

type leadKind struct{}

var leadColumns = map[string]string{
	"name":    "name",
	"company": "company",
	"email":   "email",
	"phone":   "phone",
	"status":  "status",
	"source":  "source",
	"score":   "score",
	"ownerId": "owner_id",
	"notes":   "notes",
}

func (leadKind) Name() string                    { return "lead" }
func (leadKind) Module() models.AutomationModule { return models.AutomationLead }

func (leadKind) Column(field string) (string, bool) {
	column, ok := leadColumns[field]
	return column, ok
}

func (leadKind) OwnerUpdate(userID string) map[string]interface{} {
	return map[string]interface{}{"owner_id": userID}
}

func (leadKind) target(targets Targets) Updater { return targets.Leads }

type dealKind struct{}

var dealColumns = map[string]string{
	"title":       "title",
	"stage":       "stage",
	"amount":      "amount",
	"currency":    "currency",
	"probability": "probability",
	"customerId":  "customer_id",
	"leadId":      "lead_id",
	"closedFlag":  "closed_flag",
	"notes":       "notes",
}

func (dealKind) Name() string                    { return "deal" }
func (dealKind) Module() models.AutomationModule { return models.AutomationDeal }

func (dealKind) Column(field string) (string, bool) {
	column, ok := dealColumns[field]
	return column, ok
}

// Deals have no owner column: ownership is the linked customer.
func (dealKind) OwnerUpdate(userID string) map[string]interface{} {
	return map[string]interface{}{"customer_id": userID}
}

func (dealKind) target(targets Targets) Updater { return targets.Deals }
