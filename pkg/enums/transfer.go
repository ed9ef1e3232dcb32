package enums

import "fmt"

// TransferRequestStatus maps to the transfer_request_status enum in Postgres.
type TransferRequestStatus string

const (
	TransferStatusPending  TransferRequestStatus = "pending"
	TransferStatusAccepted TransferRequestStatus = "accepted"
	TransferStatusRejected TransferRequestStatus = "rejected"
	TransferStatusCanceled TransferRequestStatus = "canceled"
)

var validTransferRequestStatuses = []TransferRequestStatus{
	TransferStatusPending,
	TransferStatusAccepted,
	TransferStatusRejected,
	TransferStatusCanceled,
}

// String implements fmt.Stringer.
func (s TransferRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransferRequestStatus.
func (s TransferRequestStatus) IsValid() bool {
	for _, candidate := range validTransferRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransferRequestStatus converts raw input into a TransferRequestStatus.
func ParseTransferRequestStatus(value string) (TransferRequestStatus, error) {
	for _, candidate := range validTransferRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer request status %q", value)
}

// HandoverStatus is shared by transfer and foster return handovers.
type HandoverStatus string

const (
	HandoverStatusPending   HandoverStatus = "pending"
	HandoverStatusConfirmed HandoverStatus = "confirmed"
	HandoverStatusCompleted HandoverStatus = "completed"
	HandoverStatusCanceled  HandoverStatus = "canceled"
	HandoverStatusDisputed  HandoverStatus = "disputed"
)

var validHandoverStatuses = []HandoverStatus{
	HandoverStatusPending,
	HandoverStatusConfirmed,
	HandoverStatusCompleted,
	HandoverStatusCanceled,
	HandoverStatusDisputed,
}

var handoverTransitions = map[HandoverStatus][]HandoverStatus{
	HandoverStatusPending:   {HandoverStatusConfirmed, HandoverStatusCanceled, HandoverStatusDisputed},
	HandoverStatusConfirmed: {HandoverStatusCompleted, HandoverStatusCanceled, HandoverStatusDisputed},
	HandoverStatusDisputed:  {HandoverStatusCanceled},
}

// String implements fmt.Stringer.
func (s HandoverStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known HandoverStatus.
func (s HandoverStatus) IsValid() bool {
	for _, candidate := range validHandoverStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo consults the handover transition table.
func (s HandoverStatus) CanTransitionTo(next HandoverStatus) bool {
	for _, candidate := range handoverTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether the handover is still in flight.
func (s HandoverStatus) IsOpen() bool {
	return s == HandoverStatusPending || s == HandoverStatusConfirmed
}

// FosterAssignmentStatus maps to the foster_assignment_status enum in Postgres.
type FosterAssignmentStatus string

const (
	FosterAssignmentActive    FosterAssignmentStatus = "active"
	FosterAssignmentCompleted FosterAssignmentStatus = "completed"
	FosterAssignmentCanceled  FosterAssignmentStatus = "canceled"
)

var validFosterAssignmentStatuses = []FosterAssignmentStatus{
	FosterAssignmentActive,
	FosterAssignmentCompleted,
	FosterAssignmentCanceled,
}

// IsValid reports whether the value is a known FosterAssignmentStatus.
func (s FosterAssignmentStatus) IsValid() bool {
	for _, candidate := range validFosterAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
