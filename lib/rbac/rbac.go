package rbac

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"crm-backend/models"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Provider interface {
	GetRuleFunc(method, path string) (models.RbacFunc, bool)
	// HasRule reports whether any rule covers the route. Unmapped routes are denied.
	HasRule(method, path string) bool
	RegisterRule(module models.Module, permission models.Permission, roles []models.UserRole, swaggerPattern string, handler models.RbacFunc) error
	GetPermissions(role models.UserRole) map[models.Module][]models.Permission
}

var Instance Provider

var paramPattern = regexp.MustCompile(`\{[^}]+?\}`)

func NewHandler() {
	i := newImpl()
	i.initRules()
	Instance = i
	log.WithField("routes", i.routeCount()).Info("rbac rules registered")
}

func newImpl() *impl {
	return &impl{
		rules:       map[HTTPMethod]*PathRule{},
		permissions: map[models.UserRole]map[models.Module][]models.Permission{},
	}
}

type impl struct {
	rules       map[HTTPMethod]*PathRule
	permissions map[models.UserRole]map[models.Module][]models.Permission
}

func (i *impl) GetRuleFunc(method, path string) (models.RbacFunc, bool) {
	normalizedPath := normalizePath(path)
	httpMethod := HTTPMethod(strings.ToUpper(method))

	if handler, found := i.rules[httpMethod].find(normalizedPath); found {
		return handler, true
	}
	// rules registered for ALL cover any method without a dedicated rule
	if httpMethod != ALL {
		return i.rules[ALL].find(normalizedPath)
	}
	return nil, false
}

func (i *impl) HasRule(method, path string) bool {
	_, ok := i.GetRuleFunc(method, path)
	return ok
}

func (i *impl) RegisterRule(module models.Module, permission models.Permission, roles []models.UserRole, swaggerPattern string, handler models.RbacFunc) error {
	path, method, err := parseSwaggerPattern(swaggerPattern)
	if err != nil {
		return err
	}
	if len(roles) == 0 && handler == nil {
		return errors.Errorf("rule %v grants no role", swaggerPattern)
	}
	if handler == nil {
		handler = AllowByRoleFunc(roles)
	}

	pathRule, exists := i.rules[method]
	if !exists {
		pathRule = &PathRule{
			Exact:    map[string]models.RbacFunc{},
			Patterns: []PatternRule{},
		}
		i.rules[method] = pathRule
	}
	if err = pathRule.add(path, handler); err != nil {
		return errors.Wrapf(err, "rule %v", swaggerPattern)
	}

	i.grant(module, permission, roles)
	return nil
}

// mustRegister is used while building the static rule table, a broken rule stops startup.
func (i *impl) mustRegister(module models.Module, permission models.Permission, roles []models.UserRole, swaggerPattern string, handler models.RbacFunc) {
	if err := i.RegisterRule(module, permission, roles, swaggerPattern, handler); err != nil {
		panic(err.Error())
	}
}

// grant records the permissions exposed to the client.
func (i *impl) grant(module models.Module, permission models.Permission, roles []models.UserRole) {
	for _, role := range roles {
		modules, ok := i.permissions[role]
		if !ok {
			modules = map[models.Module][]models.Permission{}
			i.permissions[role] = modules
		}
		if slices.Contains(modules[module], permission) {
			continue
		}
		modules[module] = append(modules[module], permission)
	}
}

// GetPermissions returns a copy, permissions of a module are sorted.
func (i *impl) GetPermissions(role models.UserRole) map[models.Module][]models.Permission {
	result := map[models.Module][]models.Permission{}
	for module, permissions := range i.permissions[role] {
		list := slices.Clone(permissions)
		slices.Sort(list)
		result[module] = list
	}
	return result
}

func (i *impl) routeCount() int {
	count := 0
	for _, pathRule := range i.rules {
		count += len(pathRule.Exact) + len(pathRule.Patterns)
	}
	return count
}

func (r *PathRule) add(path string, handler models.RbacFunc) error {
	if isExactPath(path) {
		if _, exists := r.Exact[path]; exists {
			return errors.New("route registered twice")
		}
		r.Exact[path] = handler
		return nil
	}
	pattern := pathToRegex(path)
	if pattern == nil {
		return errors.Errorf("path %v can not be compiled", path)
	}
	for _, item := range r.Patterns {
		if item.Pattern.String() == pattern.String() {
			return errors.New("route registered twice")
		}
	}
	r.Patterns = append(r.Patterns, PatternRule{
		Pattern:  pattern,
		Handler:  handler,
		literals: literalSegments(path),
	})
	// more literal segments is more specific and is tried first
	sort.SliceStable(r.Patterns, func(a, b int) bool {
		return r.Patterns[a].literals > r.Patterns[b].literals
	})
	return nil
}

func (r *PathRule) find(path string) (models.RbacFunc, bool) {
	if r == nil {
		return nil, false
	}
	if handler, exists := r.Exact[path]; exists {
		return handler, true
	}
	for _, patternRule := range r.Patterns {
		if patternRule.Pattern.MatchString(path) {
			return patternRule.Handler, true
		}
	}
	return nil, false
}

func isExactPath(path string) bool {
	return !strings.Contains(path, "{") && !strings.Contains(path, "*")
}

func literalSegments(path string) int {
	count := 0
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment != "" && !strings.ContainsAny(segment, "{*") {
			count++
		}
	}
	return count
}

func pathToRegex(path string) *regexp.Regexp {
	pattern := regexp.QuoteMeta(path)

	pattern = strings.ReplaceAll(pattern, "\\{", "{")
	pattern = strings.ReplaceAll(pattern, "\\}", "}")

	// {param} matches one path segment
	pattern = paramPattern.ReplaceAllString(pattern, `([^/]+)`)

	pattern = strings.ReplaceAll(pattern, `\*`, `.*?`)

	regex, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return nil
	}
	return regex
}

func AllowFunc() models.RbacFunc {
	return func(spaceID, userID string, role models.UserRole, uri string) bool {
		return true
	}
}

func AllowByRoleFunc(accessRoles []models.UserRole) models.RbacFunc {
	allowMap := map[models.UserRole]bool{}
	for _, role := range accessRoles {
		allowMap[role] = true
	}
	return func(spaceID, userID string, role models.UserRole, uri string) bool {
		return allowMap[role]
	}
}

// parseSwaggerPattern parses a route in the "/api/v1/leads [post]" form.
func parseSwaggerPattern(pattern string) (path string, method HTTPMethod, err error) {
	pattern = strings.TrimSpace(pattern)

	bracketStart := strings.LastIndex(pattern, "[")
	bracketEnd := strings.LastIndex(pattern, "]")
	if bracketStart == -1 || bracketEnd <= bracketStart {
		return "", "", errors.Errorf("method not provided for pattern (%v)", pattern)
	}

	method = HTTPMethod(strings.ToUpper(strings.TrimSpace(pattern[bracketStart+1 : bracketEnd])))
	if !method.IsValid() {
		return "", "", errors.Errorf("unknown method %v in pattern (%v)", method, pattern)
	}
	return normalizePath(strings.TrimSpace(pattern[:bracketStart])), method, nil
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	return path
}
