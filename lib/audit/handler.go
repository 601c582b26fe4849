package audithandler

import (
	"encoding/json"

	"crm-backend/db"
	auditstore "crm-backend/lib/audit/store"
	"crm-backend/models"
	dbmodels "crm-backend/models/db"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	LevelInfo = "info"
	LevelWarn = "warn"
)

const (
	EventApprovalRequested = "approval_requested"
	EventApprovalApproved  = "approval_approved"
	EventApprovalRejected  = "approval_rejected"
	EventFollowUp          = "automation_follow_up"
	EventNotification      = "automation_notification"
)

type Event struct {
	Level      string
	Message    string
	Resource   string
	ResourceID string
	Action     string
	Context    map[string]any
}

type Provider interface {
	// LogEvent never fails the caller: store errors are only logged.
	LogEvent(reqCtx models.RequestContext, event Event)
	ListByResource(spaceID, resource, resourceID string) ([]dbmodels.AuditLog, error)
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance(auditstore.NewInstance(db.DB))
}

func NewInstance(store auditstore.Provider) Provider {
	return impl{
		store: store,
	}
}

type impl struct {
	store auditstore.Provider
}

func (i impl) LogEvent(reqCtx models.RequestContext, event Event) {
	logger := log.
		WithField("space_id", reqCtx.SpaceID).
		WithField("user_id", reqCtx.CallerID).
		WithField("resource", event.Resource).
		WithField("resource_id", event.ResourceID).
		WithField("audit_action", event.Action)
	if event.Level == "" {
		event.Level = LevelInfo
	}
	rec := dbmodels.AuditLog{
		BaseSpaceModel: dbmodels.BaseSpaceModel{
			SpaceID: reqCtx.SpaceID,
		},
		Level:      event.Level,
		Message:    event.Message,
		UserID:     reqCtx.CallerID,
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Action:     event.Action,
		IPAddress:  reqCtx.IPAddress,
		UserAgent:  reqCtx.UserAgent,
	}
	if len(event.Context) != 0 {
		body, err := json.Marshal(event.Context)
		if err != nil {
			logger.WithError(err).Warn("audit context can not be encoded, stored without it")
		} else {
			rec.Context = datatypes.JSON(body)
		}
	}
	if _, err := i.store.Create(rec); err != nil {
		logger.WithError(err).Error("failed to write audit entry")
		return
	}
	logger.Info(event.Message)
}

func (i impl) ListByResource(spaceID, resource, resourceID string) ([]dbmodels.AuditLog, error) {
	return i.store.ListByResource(spaceID, resource, resourceID)
}
