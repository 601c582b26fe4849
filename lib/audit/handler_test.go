package audithandler

import (
	"encoding/json"
	"testing"

	"crm-backend/models"
	dbmodels "crm-backend/models/db"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type storeMock struct {
	recs []dbmodels.AuditLog
	err  error
}

func (s *storeMock) Create(rec dbmodels.AuditLog) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.recs = append(s.recs, rec)
	return "a-1", nil
}

func (s *storeMock) ListByResource(spaceID, resource, resourceID string) ([]dbmodels.AuditLog, error) {
	return s.recs, nil
}

func TestLogEvent(t *testing.T) {
	reqCtx := models.RequestContext{SpaceID: "s-1", CallerID: "u-1", IPAddress: "10.0.0.1", UserAgent: "curl"}

	t.Run("entry carries request context", func(t *testing.T) {
		store := &storeMock{}
		NewInstance(store).LogEvent(reqCtx, Event{
			Message:    "customer deleted",
			Resource:   models.ResourceCustomer,
			ResourceID: "c-1",
			Action:     "customer_delete",
			Context:    map[string]any{"approval_request_id": "r-1"},
		})
		require.Len(t, store.recs, 1)
		rec := store.recs[0]
		require.Equal(t, "s-1", rec.SpaceID)
		require.Equal(t, LevelInfo, rec.Level)
		require.Equal(t, "10.0.0.1", rec.IPAddress)
		require.Equal(t, "curl", rec.UserAgent)
		ctx := map[string]any{}
		require.NoError(t, json.Unmarshal(rec.Context, &ctx))
		require.Equal(t, "r-1", ctx["approval_request_id"])
	})
	t.Run("store failure is swallowed", func(t *testing.T) {
		store := &storeMock{err: errors.New("db down")}
		require.NotPanics(t, func() {
			NewInstance(store).LogEvent(reqCtx, Event{Message: "x", Context: map[string]any{"bad": func() {}}})
		})
	})
}
