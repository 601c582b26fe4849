package middleware

import (
	"crm-backend/fiberlog"
	authutils "crm-backend/lib/utils/auth-utils"
	"crm-backend/models"
	apimodels "crm-backend/models/api"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func AdminRoleRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		if !GetSpaceRole(ctx).IsAdmin() {
			return ctx.Status(fiber.StatusForbidden).JSON(apimodels.NewError("operation not allowed"))
		}
		return ctx.Next()
	}
}

// SpaceRequired rejects tokens without a tenant and exposes the space to the access log.
func SpaceRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		spaceID := GetUserSpace(ctx)
		if spaceID == "" {
			return ctx.Status(fiber.StatusForbidden).JSON(apimodels.NewError("space is not set"))
		}
		ctx.Locals(fiberlog.TagSpaceID, spaceID)
		ctx.Locals(fiberlog.TagUserID, GetUserID(ctx))
		return ctx.Next()
	}
}

func GetUserSpace(ctx *fiber.Ctx) string {
	claims := authutils.GetClaims(ctx)
	if space, ok := claims["space"].(string); ok {
		return space
	}
	return ""
}

func GetUserID(ctx *fiber.Ctx) string {
	claims := authutils.GetClaims(ctx)
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}

func GetSpaceRole(ctx *fiber.Ctx) models.UserRole {
	claims := authutils.GetClaims(ctx)
	if role, exist := claims["role"]; exist {
		if stringRole, ok := role.(string); ok && stringRole != "" {
			return models.UserRole(stringRole)
		}
	}
	return ""
}

// GetRequestContext resolves the caller of the current request.
func GetRequestContext(ctx *fiber.Ctx) models.RequestContext {
	return models.RequestContext{
		SpaceID:    GetUserSpace(ctx),
		CallerID:   GetUserID(ctx),
		CallerRole: GetSpaceRole(ctx),
		IPAddress:  clientIP(ctx),
		UserAgent:  ctx.Get(fiber.HeaderUserAgent),
	}
}

func clientIP(ctx *fiber.Ctx) string {
	if forwarded := ctx.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := ctx.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ctx.IP()
}
