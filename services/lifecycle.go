// services/lifecycle.go
package services

import (
	"impact-tracking-system/models"
)

// allowedTransitions is the canonical application lifecycle:
//
//	pending → accepted | rejected
//	accepted → hours_submitted | rejected
//	hours_submitted → hours_approved | accepted (hours rejected) | rejected
//	hours_approved → hours_submitted (further hours) | completed | rejected
//	completed, rejected → terminal
//
// Approval of hours is non-terminal: a student may keep submitting hours
// until an admin explicitly marks the application completed.
var allowedTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationStatusPending: {
		models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusAccepted: {
		models.ApplicationStatusHoursSubmitted,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusHoursSubmitted: {
		models.ApplicationStatusHoursApproved,
		models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusHoursApproved: {
		models.ApplicationStatusHoursSubmitted,
		models.ApplicationStatusCompleted,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusCompleted: {},
	models.ApplicationStatusRejected:  {},
}

// ValidStatus reports whether s is one of the known application statuses.
func ValidStatus(s models.ApplicationStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether an application may move from one status to
// the next under the canonical lifecycle.
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
