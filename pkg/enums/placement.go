package enums

import "fmt"

// PlacementRequestType maps to the placement_request_type enum in Postgres.
type PlacementRequestType string

const (
	PlacementTypeFostering  PlacementRequestType = "fostering"
	PlacementTypePermanent  PlacementRequestType = "permanent"
	PlacementTypePetSitting PlacementRequestType = "pet_sitting"
)

var validPlacementRequestTypes = []PlacementRequestType{
	PlacementTypeFostering,
	PlacementTypePermanent,
	PlacementTypePetSitting,
}

// String implements fmt.Stringer.
func (t PlacementRequestType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known PlacementRequestType.
func (t PlacementRequestType) IsValid() bool {
	for _, candidate := range validPlacementRequestTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// RequiresTransfer reports whether accepting a response for this type hands
// the pet over through a transfer request instead of granting a sitter role.
func (t PlacementRequestType) RequiresTransfer() bool {
	return t == PlacementTypeFostering || t == PlacementTypePermanent
}

// ParsePlacementRequestType converts raw input into a PlacementRequestType.
func ParsePlacementRequestType(value string) (PlacementRequestType, error) {
	for _, candidate := range validPlacementRequestTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid placement request type %q", value)
}

// PlacementRequestStatus maps to the placement_request_status enum in Postgres.
type PlacementRequestStatus string

const (
	PlacementStatusOpen            PlacementRequestStatus = "open"
	PlacementStatusPendingTransfer PlacementRequestStatus = "pending_transfer"
	PlacementStatusActive          PlacementRequestStatus = "active"
	PlacementStatusFulfilled       PlacementRequestStatus = "fulfilled"
	PlacementStatusCancelled       PlacementRequestStatus = "cancelled"
)

var validPlacementRequestStatuses = []PlacementRequestStatus{
	PlacementStatusOpen,
	PlacementStatusPendingTransfer,
	PlacementStatusActive,
	PlacementStatusFulfilled,
	PlacementStatusCancelled,
}

// String implements fmt.Stringer.
func (s PlacementRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PlacementRequestStatus.
func (s PlacementRequestStatus) IsValid() bool {
	for _, candidate := range validPlacementRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can no longer change.
func (s PlacementRequestStatus) IsTerminal() bool {
	return s == PlacementStatusFulfilled || s == PlacementStatusCancelled
}

// Resettable reports whether rolling back an accepted response returns the
// request to open.
func (s PlacementRequestStatus) Resettable() bool {
	return s == PlacementStatusPendingTransfer || s == PlacementStatusActive
}

// ParsePlacementRequestStatus converts raw input into a PlacementRequestStatus.
func ParsePlacementRequestStatus(value string) (PlacementRequestStatus, error) {
	for _, candidate := range validPlacementRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid placement request status %q", value)
}

// PlacementResponseStatus maps to the placement_response_status enum in Postgres.
type PlacementResponseStatus string

const (
	ResponseStatusResponded PlacementResponseStatus = "responded"
	ResponseStatusAccepted  PlacementResponseStatus = "accepted"
	ResponseStatusRejected  PlacementResponseStatus = "rejected"
	ResponseStatusCancelled PlacementResponseStatus = "cancelled"
)

var validPlacementResponseStatuses = []PlacementResponseStatus{
	ResponseStatusResponded,
	ResponseStatusAccepted,
	ResponseStatusRejected,
	ResponseStatusCancelled,
}

var placementResponseTransitions = map[PlacementResponseStatus][]PlacementResponseStatus{
	ResponseStatusResponded: {ResponseStatusAccepted, ResponseStatusRejected, ResponseStatusCancelled},
	ResponseStatusAccepted:  {ResponseStatusRejected, ResponseStatusCancelled},
}

// String implements fmt.Stringer.
func (s PlacementResponseStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PlacementResponseStatus.
func (s PlacementResponseStatus) IsValid() bool {
	for _, candidate := range validPlacementResponseStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo consults the response transition table.
func (s PlacementResponseStatus) CanTransitionTo(next PlacementResponseStatus) bool {
	for _, candidate := range placementResponseTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from s.
func (s PlacementResponseStatus) IsTerminal() bool {
	return len(placementResponseTransitions[s]) == 0
}

// AllowsReResponse reports whether a helper whose latest response is in s may
// respond to the same placement request again.
func (s PlacementResponseStatus) AllowsReResponse() bool {
	return s == ResponseStatusCancelled
}

// ParsePlacementResponseStatus converts raw input into a PlacementResponseStatus.
func ParsePlacementResponseStatus(value string) (PlacementResponseStatus, error) {
	for _, candidate := range validPlacementResponseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid placement response status %q", value)
}
