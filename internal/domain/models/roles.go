// internal/domain/models/roles.go
package models

// ParticipantRole is a role carried by participant-domain identities.
// It is a distinct type from StaffRole so the two cannot be mixed up
// without an explicit conversion.
type ParticipantRole string

const (
	RoleParticipant ParticipantRole = "participant"
	RoleReviewer    ParticipantRole = "reviewer"
	RoleSpeaker     ParticipantRole = "speaker"
	RoleCommittee   ParticipantRole = "committee"
)

// Valid reports whether r is one of the participant-domain roles.
func (r ParticipantRole) Valid() bool {
	switch r {
	case RoleParticipant, RoleReviewer, RoleSpeaker, RoleCommittee:
		return true
	}
	return false
}

// StaffRole is a role carried by staff-domain identities.
type StaffRole string

const (
	RoleAdmin      StaffRole = "admin"
	RoleSuperAdmin StaffRole = "super-admin"
	RoleModerator  StaffRole = "moderator"
)

// Valid reports whether r is one of the staff-domain roles.
func (r StaffRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleModerator:
		return true
	}
	return false
}
