// internal/app/features/auditlog/types.go
package auditlog

import (
	"slices"

	"github.com/dalemusser/confhub/internal/app/store/audit"
)

var authEvents = []string{
	audit.EventSignup,
	audit.EventLoginSuccess,
	audit.EventLoginFailedUserNotFound,
	audit.EventLoginFailedWrongPassword,
	audit.EventLoginFailedUserDisabled,
	audit.EventLoginFailedRateLimit,
	audit.EventLogout,
	audit.EventPasswordChanged,
}

var adminEvents = []string{
	audit.EventRegistrationCreated,
	audit.EventPaymentUpdated,
	audit.EventPaymentOverridden,
	audit.EventParticipantUpdated,
	audit.EventParticipantDeleted,
	audit.EventStaffCreated,
	audit.EventStaffRoleChanged,
	audit.EventStaffDeactivated,
	audit.EventSuperAdminBootstrapped,
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		return slices.Concat(authEvents, adminEvents)
	default:
		return nil
	}
}
