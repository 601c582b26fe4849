package apiv1

import (
	"crm-backend/controllers"
	"crm-backend/lib/rbac"
	"crm-backend/middleware"
	apimodels "crm-backend/models/api"

	"github.com/gofiber/fiber/v2"
)

type accountApiController struct {
	controllers.BaseAPIController
}

func InitAccountApiRouters(app *fiber.App) {
	controller := accountApiController{}
	app.Route("account", func(router fiber.Router) {
		router.Get("permissions", controller.permissions)
	})
}

// @Summary Permissions of the caller role
// @Tags Account
// @Param   Authorization		header		string	true	"Authorization token"
// @Success 200 {object} apimodels.Response{data=map[string][]string}
// @Failure 403
// @router /api/v1/account/permissions [get]
func (c *accountApiController) permissions(ctx *fiber.Ctx) error {
	role := middleware.GetSpaceRole(ctx)
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(rbac.Instance.GetPermissions(role)))
}
