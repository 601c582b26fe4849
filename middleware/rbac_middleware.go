package middleware

import (
	"crm-backend/lib/rbac"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

func RbacMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userID := GetUserID(ctx)
		if userID == "" {
			return rbacForbidden(ctx)
		}
		spaceID := GetUserSpace(ctx)

		userRole := GetSpaceRole(ctx)
		if userRole == "" || !userRole.IsValid() {
			return rbacForbidden(ctx)
		}

		// routes without a rule are closed until one is registered
		if !rbac.Instance.HasRule(ctx.Method(), ctx.Path()) {
			log.
				WithField("space_id", spaceID).
				WithField("user_id", userID).
				WithField("method", ctx.Method()).
				WithField("path", ctx.Path()).
				Warn("rbac: route has no rule")
			return rbacForbidden(ctx)
		}

		handler, _ := rbac.Instance.GetRuleFunc(ctx.Method(), ctx.Path())
		if !handler(spaceID, userID, userRole, ctx.Path()) {
			return rbacForbidden(ctx)
		}

		return ctx.Next()
	}
}

func rbacForbidden(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "RBAC_FORBIDDEN",
	})
}
