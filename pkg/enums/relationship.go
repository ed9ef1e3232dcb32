package enums

import "fmt"

// RelationshipType maps to the pet_relationship_type enum in Postgres.
type RelationshipType string

const (
	RelationshipOwner  RelationshipType = "owner"
	RelationshipSitter RelationshipType = "sitter"
	RelationshipFoster RelationshipType = "foster"
	RelationshipEditor RelationshipType = "editor"
	RelationshipViewer RelationshipType = "viewer"
)

var validRelationshipTypes = []RelationshipType{
	RelationshipOwner,
	RelationshipSitter,
	RelationshipFoster,
	RelationshipEditor,
	RelationshipViewer,
}

// String implements fmt.Stringer.
func (r RelationshipType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RelationshipType.
func (r RelationshipType) IsValid() bool {
	for _, candidate := range validRelationshipTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// Invitable reports whether an owner can grant r through an invitation.
func (r RelationshipType) Invitable() bool {
	return r == RelationshipEditor || r == RelationshipViewer
}

// ParseRelationshipType converts raw input into a RelationshipType.
func ParseRelationshipType(value string) (RelationshipType, error) {
	for _, candidate := range validRelationshipTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid relationship type %q", value)
}

// InvitationStatus maps to the invitation_status enum in Postgres.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

var validInvitationStatuses = []InvitationStatus{
	InvitationPending,
	InvitationAccepted,
	InvitationDeclined,
	InvitationRevoked,
	InvitationExpired,
}

// IsValid reports whether the value is a known InvitationStatus.
func (s InvitationStatus) IsValid() bool {
	for _, candidate := range validInvitationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
