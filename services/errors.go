// services/errors.go
package services

import "errors"

// Tagged errors returned by the service layer. Handlers translate these to
// HTTP status codes; anything else surfaces as a 500.
var (
	ErrNotFound             = errors.New("record not found")
	ErrForbidden            = errors.New("forbidden")
	ErrDuplicateApplication = errors.New("an application for this opportunity already exists")
	ErrOpportunityClosed    = errors.New("opportunity is not accepting applications")
	ErrInvalidHours         = errors.New("submitted hours must be greater than zero")
	ErrInvalidTransition    = errors.New("invalid status transition")
)
