package apiv1

import (
	"crm-backend/controllers"
	approvalrequesthandler "crm-backend/lib/approval-request"
	xlsexport "crm-backend/lib/export/xls"
	"crm-backend/middleware"
	"crm-backend/models"
	apimodels "crm-backend/models/api"
	approvalapimodels "crm-backend/models/api/approval"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// exportPageLimit caps the number of pages read for one export.
const exportPageLimit = 10

type approvalRequestApiController struct {
	controllers.BaseAPIController
}

func InitApprovalRequestApiRouters(app *fiber.App) {
	controller := approvalRequestApiController{}
	app.Route("approval/requests", func(router fiber.Router) {
		router.Post("list", controller.list)
		router.Get("inbox", controller.inbox)
		router.Get("count", controller.count)
		router.Get("export", controller.export)
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Get("history", controller.history)
			idRoute.Post("approve", controller.approve)
			idRoute.Post("reject", controller.reject)
		})
	})
}

// @Summary Approval request list
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.RequestFilter	true	"request body"
// @Success 200 {object} apimodels.ScrollerResponse{data=[]approvalapimodels.RequestView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/list [post]
func (c *approvalRequestApiController) list(ctx *fiber.Ctx) error {
	var payload approvalapimodels.RequestFilter
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	list, rowCount, err := approvalrequesthandler.Instance.List(middleware.GetRequestContext(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to list approval requests")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewScrollerResponse(list, rowCount))
}

// @Summary Pending requests the caller may decide
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Success 200 {object} apimodels.Response{data=[]approvalapimodels.RequestView}
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/inbox [get]
func (c *approvalRequestApiController) inbox(ctx *fiber.Ctx) error {
	list, err := approvalrequesthandler.Instance.GetPendingApprovals(middleware.GetRequestContext(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to get pending approvals")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Number of pending requests the caller may decide
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Success 200 {object} apimodels.Response{data=int}
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/count [get]
func (c *approvalRequestApiController) count(ctx *fiber.Ctx) error {
	count, err := approvalrequesthandler.Instance.CountPendingApprovals(middleware.GetRequestContext(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to count pending approvals")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(count))
}

// @Summary Export approval requests to Excel
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   status          	query    string  	false    "pending/approved/rejected"
// @Param   resource          	query    string  	false    "resource"
// @Param   my_requests        	query    bool  		false    "only own requests"
// @Success 200 {file} file
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/export [get]
func (c *approvalRequestApiController) export(ctx *fiber.Ctx) error {
	filter := approvalapimodels.RequestFilter{
		Status:     models.ApprovalStatus(ctx.Query("status")),
		Resource:   ctx.Query("resource"),
		MyRequests: ctx.QueryBool("my_requests"),
	}
	reqCtx := middleware.GetRequestContext(ctx)
	list := []approvalapimodels.RequestView{}
	filter.Limit = 100
	for page := 1; page <= exportPageLimit; page++ {
		filter.Page = page
		items, rowCount, err := approvalrequesthandler.Instance.List(reqCtx, filter)
		if err != nil {
			return c.SendError(ctx, c.GetLogger(ctx), err, "failed to list approval requests for export")
		}
		list = append(list, items...)
		if len(items) == 0 || int64(len(list)) >= rowCount {
			break
		}
	}
	data, err := xlsexport.Instance.ExportApprovalRequests(list)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to export approval requests")
	}
	fileName := fmt.Sprintf("approval-requests-%v.xlsx", time.Now().Format("20060102-150405"))
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.SendStream(data)
}

// @Summary Get approval request
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    string  	true    "rec ID"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.RequestView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/{id} [get]
func (c *approvalRequestApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	spaceID := middleware.GetUserSpace(ctx)
	resp, err := approvalrequesthandler.Instance.GetByID(spaceID, id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to get approval request")
	}
	if resp == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError(approvalrequesthandler.ErrNotFound.Error()))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary Approval request history
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    string  	true    "rec ID"
// @Success 200 {object} apimodels.Response{data=[]approvalapimodels.HistoryView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/{id}/history [get]
func (c *approvalRequestApiController) history(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	spaceID := middleware.GetUserSpace(ctx)
	list, err := approvalrequesthandler.Instance.History(spaceID, id)
	if err != nil {
		return c.sendDecisionError(ctx, err, "failed to get approval history")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Approve
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.ApproveData	false	"request body"
// @Param   id          		path    string  	true    "rec ID"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/{id}/approve [post]
func (c *approvalRequestApiController) approve(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.ApproveData
	if len(ctx.Body()) != 0 {
		if err = c.BodyParser(ctx, &payload); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
		}
	}

	err = approvalrequesthandler.Instance.Approve(middleware.GetRequestContext(ctx), id, payload)
	if err != nil {
		return c.sendDecisionError(ctx, err, "failed to approve request")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

// @Summary Reject
// @Tags Approval requests
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.RejectData	true	"request body"
// @Param   id          		path    string  	true    "rec ID"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/approval/requests/{id}/reject [post]
func (c *approvalRequestApiController) reject(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.RejectData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}

	err = approvalrequesthandler.Instance.Reject(middleware.GetRequestContext(ctx), id, payload)
	if err != nil {
		return c.sendDecisionError(ctx, err, "failed to reject request")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

func (c *approvalRequestApiController) sendDecisionError(ctx *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, approvalrequesthandler.ErrNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError(err.Error()))
	case errors.Is(err, approvalrequesthandler.ErrForbidden):
		return ctx.Status(fiber.StatusForbidden).JSON(apimodels.NewError(err.Error()))
	case errors.Is(err, approvalrequesthandler.ErrInvalidState):
		return ctx.Status(fiber.StatusConflict).JSON(apimodels.NewError(err.Error()))
	case errors.Is(err, approvalrequesthandler.ErrReasonRequired):
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	return c.SendError(ctx, c.GetLogger(ctx), err, msg)
}
