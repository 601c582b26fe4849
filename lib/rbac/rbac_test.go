package rbac

import (
	"testing"

	"crm-backend/models"

	"github.com/stretchr/testify/require"
)

func TestRbac(t *testing.T) {
	t.Run(`pathToRegex check`, func(t *testing.T) {
		path, method, err := parseSwaggerPattern("/api/v1/approval/requests/{id}/approve [post]")
		require.Nil(t, err)
		require.Equal(t, POST, method)
		r1 := pathToRegex(path)

		validUri := "/api/v1/approval/requests/123-321/approve"
		require.True(t, r1.MatchString(validUri))

		invalidUri := "/api/v1/approval/requests/approve"
		require.False(t, r1.MatchString(invalidUri))

		path, method, err = parseSwaggerPattern("/api/v1/deals/{id}/notes/{noteId} [put]")
		require.Nil(t, err)
		require.Equal(t, PUT, method)
		r2 := pathToRegex(path)

		require.True(t, r2.MatchString("/api/v1/deals/123-321/notes/qwe-ewr123-wr-12"))
		require.False(t, r2.MatchString("/api/v1/deals/we-ewr123-wr-12/notes"))
	})
	t.Run(`pattern without method`, func(t *testing.T) {
		_, _, err := parseSwaggerPattern("/api/v1/leads")
		require.Error(t, err)
	})
	t.Run(`role rules`, func(t *testing.T) {
		i := newImpl()
		i.initRules()

		handler, ok := i.GetRuleFunc("post", "/api/v1/approval/workflows/")
		require.True(t, ok)
		require.True(t, handler("space", "u1", models.AdminRole, "/api/v1/approval/workflows"))
		require.False(t, handler("space", "u1", models.SalesRole, "/api/v1/approval/workflows"))

		// exact path wins over the {id} pattern
		handler, ok = i.GetRuleFunc("GET", "/api/v1/approval/requests/inbox")
		require.True(t, ok)
		require.True(t, handler("space", "u1", models.SupportRole, "/api/v1/approval/requests/inbox"))

		handler, ok = i.GetRuleFunc("DELETE", "/api/v1/customers/c-1")
		require.True(t, ok)
		require.False(t, handler("space", "u1", models.FinanceRole, "/api/v1/customers/c-1"))

		require.False(t, i.HasRule("PATCH", "/api/v1/customers/c-1"))
	})
	t.Run(`registration errors`, func(t *testing.T) {
		i := newImpl()
		require.NoError(t, i.RegisterRule(models.LeadModule, models.ViewPermission, AllRoles, "/api/v1/leads/{id} [get]", nil))
		require.Error(t, i.RegisterRule(models.LeadModule, models.ViewPermission, AllRoles, "/api/v1/leads/{leadId} [get]", nil))
		require.Error(t, i.RegisterRule(models.LeadModule, models.ViewPermission, AllRoles, "/api/v1/leads [fetch]", nil))
		require.Error(t, i.RegisterRule(models.LeadModule, models.ViewPermission, nil, "/api/v1/leads [post]", nil))
		require.Panics(t, func() {
			i.mustRegister(models.LeadModule, models.ViewPermission, AllRoles, "/api/v1/leads/{id} [get]", nil)
		})
	})
	t.Run(`specific pattern wins and ALL is a fallback`, func(t *testing.T) {
		i := newImpl()
		require.NoError(t, i.RegisterRule(models.DealModule, models.ViewPermission, AllRoles, "/api/v1/deals/{id}/{sub} [get]", nil))
		require.NoError(t, i.RegisterRule(models.DealModule, models.EditPermission, AdminRoleSet, "/api/v1/deals/{id}/stage [get]", nil))
		require.NoError(t, i.RegisterRule(models.DealModule, models.ManagePermission, AdminRoleSet, "/api/v1/deals/* [all]", nil))

		handler, ok := i.GetRuleFunc("GET", "/api/v1/deals/d-1/stage")
		require.True(t, ok)
		require.False(t, handler("space", "u1", models.SalesRole, ""))

		handler, ok = i.GetRuleFunc("GET", "/api/v1/deals/d-1/notes")
		require.True(t, ok)
		require.True(t, handler("space", "u1", models.SalesRole, ""))

		handler, ok = i.GetRuleFunc("PATCH", "/api/v1/deals/d-1")
		require.True(t, ok)
		require.False(t, handler("space", "u1", models.SalesRole, ""))
		require.False(t, i.HasRule("PATCH", "/api/v1/leads/l-1"))
	})
	t.Run(`permissions`, func(t *testing.T) {
		i := newImpl()
		i.initRules()
		perms := i.GetPermissions(models.FinanceRole)
		require.ElementsMatch(t, []models.Permission{models.ViewPermission, models.FlowPermission}, perms[models.ApprovalRequestModule])
		require.Empty(t, perms[models.AutomationRuleModule])
		require.Equal(t, []models.Permission{models.ViewPermission}, perms[models.AccountModule])

		perms[models.AccountModule] = nil
		require.NotEmpty(t, i.GetPermissions(models.FinanceRole)[models.AccountModule])
	})
}
