package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	mutationguard "crm-backend/lib/mutation-guard"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSendGuardResult(t *testing.T) {
	c := &BaseAPIController{}
	send := func(result mutationguard.Result) (int, map[string]interface{}) {
		app := fiber.New()
		app.Get("/", func(ctx *fiber.Ctx) error {
			return c.SendGuardResult(ctx, result, nil)
		})
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		out := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(body, &out))
		return resp.StatusCode, out
	}

	t.Run("executed", func(t *testing.T) {
		code, body := send(mutationguard.Result{Outcome: mutationguard.Executed})
		require.Equal(t, fiber.StatusOK, code)
		require.Equal(t, "success", body["status"])
	})
	t.Run("approval required", func(t *testing.T) {
		code, body := send(mutationguard.Result{Outcome: mutationguard.ApprovalRequired, ApprovalRequestID: "r-1"})
		require.Equal(t, fiber.StatusForbidden, code)
		require.Equal(t, "fail", body["status"])
		data := body["data"].(map[string]interface{})
		require.Equal(t, "r-1", data["approval_request_id"])
		require.Equal(t, "approval_required", data["outcome"])
	})
	t.Run("pending exists", func(t *testing.T) {
		code, body := send(mutationguard.Result{Outcome: mutationguard.PendingExists, ApprovalRequestID: "r-2"})
		require.Equal(t, fiber.StatusForbidden, code)
		require.Equal(t, "r-2", body["data"].(map[string]interface{})["approval_request_id"])
	})
	t.Run("failed closed", func(t *testing.T) {
		code, body := send(mutationguard.Result{
			Outcome: mutationguard.Failed,
			Err:     errors.Wrap(mutationguard.ErrApprovalUnverified, `pq: password authentication failed for user "crm_admin"`),
		})
		require.Equal(t, fiber.StatusInternalServerError, code)
		require.Equal(t, "approval state could not be verified", body["message"])
	})
	t.Run("mutation error stays in the log", func(t *testing.T) {
		code, body := send(mutationguard.Result{Outcome: mutationguard.Failed, Err: errors.New(`ERROR: update or delete on table "customers" violates foreign key constraint`)})
		require.Equal(t, fiber.StatusInternalServerError, code)
		require.Equal(t, "operation failed", body["message"])
	})
}

func TestGetIDByKey(t *testing.T) {
	c := &BaseAPIController{}
	app := fiber.New()
	app.Get("/items/:id?", func(ctx *fiber.Ctx) error {
		id, err := c.GetID(ctx)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
		}
		return ctx.SendString(id)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/items/abc", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/items/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
