package controllers

import (
	mutationguard "crm-backend/lib/mutation-guard"
	"crm-backend/middleware"
	apimodels "crm-backend/models/api"
	approvalapimodels "crm-backend/models/api/approval"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type BaseAPIController struct{}

func (c *BaseAPIController) BodyParser(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		log.WithError(err).Error("failed to parse request body")
		return errors.New("failed to read request data")
	}
	return nil
}

func (c *BaseAPIController) GetID(ctx *fiber.Ctx) (string, error) {
	return c.GetIDByKey(ctx, "id")
}

func (c *BaseAPIController) GetIDByKey(ctx *fiber.Ctx, key string) (string, error) {
	id := strings.TrimSpace(ctx.Params(key))
	if id == "" {
		return "", errors.Errorf("%v is not set", key)
	}
	return id, nil
}

func (c *BaseAPIController) GetLogger(ctx *fiber.Ctx) *log.Entry {
	return log.
		WithField("space_id", middleware.GetUserSpace(ctx)).
		WithField("user_id", middleware.GetUserID(ctx)).
		WithField("method", ctx.Method()).
		WithField("path", ctx.Path())
}

// SendError logs an internal error and answers 500 with a user message.
func (c *BaseAPIController) SendError(ctx *fiber.Ctx, logger *log.Entry, err error, msg string) error {
	logger.WithError(err).Error(msg)
	return ctx.Status(fiber.StatusInternalServerError).JSON(apimodels.NewError(msg))
}

// SendGuardResult answers a protected operation.
func (c *BaseAPIController) SendGuardResult(ctx *fiber.Ctx, result mutationguard.Result, data interface{}) error {
	switch result.Outcome {
	case mutationguard.Executed:
		return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(data))
	case mutationguard.PendingExists, mutationguard.ApprovalRequired:
		return ctx.Status(fiber.StatusForbidden).JSON(apimodels.NewErrorWithData(result.Message(), approvalapimodels.GuardResponse{
			ApprovalRequestID: result.ApprovalRequestID,
			Outcome:           string(result.Outcome),
		}))
	}
	return c.SendError(ctx, c.GetLogger(ctx), result.Err, result.Message())
}
