package models

// RequestContext is the resolved identity of the caller of a guarded operation.
type RequestContext struct {
	SpaceID    string
	CallerID   string
	CallerRole UserRole
	IPAddress  string
	UserAgent  string
}
