package capabilities

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
)

// Capability names a pet feature that can be switched on or off per pet type.
type Capability string

const (
	Photos       Capability = "photos"
	Comments     Capability = "comments"
	Medical      Capability = "medical"
	Weight       Capability = "weight"
	Placement    Capability = "placement"
	Fostering    Capability = "fostering"
	Ownership    Capability = "ownership"
	StatusUpdate Capability = "status_update"
)

var known = map[Capability]struct{}{
	Photos: {}, Comments: {}, Medical: {}, Weight: {},
	Placement: {}, Fostering: {}, Ownership: {}, StatusUpdate: {},
}

// IsValid reports whether c is a known capability.
func (c Capability) IsValid() bool {
	_, ok := known[c]
	return ok
}

//go:embed matrix.yaml
var defaultMatrix []byte

type matrixFile struct {
	Default  []Capability            `yaml:"default"`
	PetTypes map[string][]Capability `yaml:"pet_types"`
}

// Matrix is the static pet type to capability lookup.
type Matrix struct {
	fallback map[Capability]struct{}
	types    map[string]map[Capability]struct{}
}

// ParseMatrix decodes a YAML capability matrix.
func ParseMatrix(raw []byte) (*Matrix, error) {
	var file matrixFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode capability matrix: %w", err)
	}
	fallback, err := toSet(file.Default)
	if err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	m := &Matrix{fallback: fallback, types: make(map[string]map[Capability]struct{}, len(file.PetTypes))}
	for slug, caps := range file.PetTypes {
		set, err := toSet(caps)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", slug, err)
		}
		m.types[normalizeSlug(slug)] = set
	}
	return m, nil
}

// DefaultMatrix returns the embedded matrix shipped with the service.
func DefaultMatrix() *Matrix {
	m, err := ParseMatrix(defaultMatrix)
	if err != nil {
		panic(err)
	}
	return m
}

func toSet(caps []Capability) (map[Capability]struct{}, error) {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		if !c.IsValid() {
			return nil, fmt.Errorf("unknown capability %q", c)
		}
		set[c] = struct{}{}
	}
	return set, nil
}

func (m *Matrix) lookup(slug string) map[Capability]struct{} {
	if set, ok := m.types[normalizeSlug(slug)]; ok {
		return set
	}
	return m.fallback
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Service answers capability questions for pet types and pets.
type Service struct {
	matrix *Matrix
}

// NewService builds a Service over matrix, falling back to the embedded one.
func NewService(matrix *Matrix) *Service {
	if matrix == nil {
		matrix = DefaultMatrix()
	}
	return &Service{matrix: matrix}
}

// Supports reports whether the pet type allows capability.
func (s *Service) Supports(petTypeSlug string, capability Capability) bool {
	_, ok := s.matrix.lookup(petTypeSlug)[capability]
	return ok
}

// Ensure returns FEATURE_NOT_AVAILABLE_FOR_PET_TYPE when capability is not enabled.
func (s *Service) Ensure(petTypeSlug string, capability Capability) error {
	if s.Supports(petTypeSlug, capability) {
		return nil
	}
	slug := normalizeSlug(petTypeSlug)
	return pkgerrors.New(
		pkgerrors.CodeFeatureUnavailable,
		fmt.Sprintf("%s is not available for pet type %q", capability, slug),
	).WithDetails(map[string]any{
		"pet_type":   slug,
		"capability": string(capability),
	})
}

// SupportsPet is Supports for a pet with its type preloaded.
func (s *Service) SupportsPet(pet *models.Pet, capability Capability) bool {
	return s.Supports(pet.TypeSlug(), capability)
}

// EnsurePet is Ensure for a pet with its type preloaded.
func (s *Service) EnsurePet(pet *models.Pet, capability Capability) error {
	return s.Ensure(pet.TypeSlug(), capability)
}

// For lists the capabilities enabled for the pet type in a stable order.
func (s *Service) For(petTypeSlug string) []Capability {
	set := s.matrix.lookup(petTypeSlug)
	out := make([]Capability, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
