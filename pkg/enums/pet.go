package enums

import "fmt"

// PetStatus maps to the pet_status enum in Postgres.
type PetStatus string

const (
	PetStatusActive   PetStatus = "active"
	PetStatusLost     PetStatus = "lost"
	PetStatusDeceased PetStatus = "deceased"
	PetStatusDeleted  PetStatus = "deleted"
)

var validPetStatuses = []PetStatus{
	PetStatusActive,
	PetStatusLost,
	PetStatusDeceased,
	PetStatusDeleted,
}

var petStatusTransitions = map[PetStatus][]PetStatus{
	PetStatusActive:   {PetStatusLost, PetStatusDeceased, PetStatusDeleted},
	PetStatusLost:     {PetStatusActive, PetStatusDeceased, PetStatusDeleted},
	PetStatusDeceased: {PetStatusDeleted},
}

// String implements fmt.Stringer.
func (s PetStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PetStatus.
func (s PetStatus) IsValid() bool {
	for _, candidate := range validPetStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a pet may move from s to next.
func (s PetStatus) CanTransitionTo(next PetStatus) bool {
	for _, candidate := range petStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParsePetStatus converts raw input into a PetStatus.
func ParsePetStatus(value string) (PetStatus, error) {
	for _, candidate := range validPetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pet status %q", value)
}
