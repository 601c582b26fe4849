package rbac

import (
	"regexp"

	"crm-backend/models"
)

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
	PATCH  HTTPMethod = "PATCH"
	ALL    HTTPMethod = "ALL"
)

func (m HTTPMethod) IsValid() bool {
	switch m {
	case GET, POST, PUT, DELETE, PATCH, ALL:
		return true
	}
	return false
}

type PathRule struct {
	Exact    map[string]models.RbacFunc // checked first
	Patterns []PatternRule
}

type PatternRule struct {
	Pattern  *regexp.Regexp
	Handler  models.RbacFunc
	literals int
}
