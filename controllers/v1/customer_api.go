package apiv1

import (
	"crm-backend/controllers"
	customerhandler "crm-backend/lib/customer"
	"crm-backend/middleware"
	apimodels "crm-backend/models/api"

	"github.com/gofiber/fiber/v2"
)

type customerApiController struct {
	controllers.BaseAPIController
}

func InitCustomerApiRouters(app *fiber.App) {
	controller := customerApiController{}
	app.Route("customers", func(router fiber.Router) {
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Delete("", controller.delete)
		})
	})
}

// @Summary Get customer
// @Tags Customers
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    string  	true    "rec ID"
// @Success 200 {object} apimodels.Response{data=crmapimodels.CustomerView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/customers/{id} [get]
func (c *customerApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	spaceID := middleware.GetUserSpace(ctx)
	resp, err := customerhandler.Instance.GetByID(spaceID, id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to get customer")
	}
	if resp == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError("customer not found"))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary Delete customer
// @Tags Customers
// @Description Protected operation. Answers 403 with approval_request_id when approval is needed
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    string  	true    "rec ID"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response{data=approvalapimodels.GuardResponse}
// @Failure 500 {object} apimodels.Response
// @router /api/v1/customers/{id} [delete]
func (c *customerApiController) delete(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	result, hMsg, err := customerhandler.Instance.Delete(middleware.GetRequestContext(ctx), id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to delete customer")
	}
	if hMsg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(hMsg))
	}
	return c.SendGuardResult(ctx, result, nil)
}
