package memory

import (
	"fmt"
	"strings"

	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/repositories"
)

// MaterialRepository provides in-memory material storage. Materials keep
// their declaration order, which fixes variable and row order downstream.
type MaterialRepository struct {
	materials    []entities.Material
	materialsMap map[entities.MaterialName]int
}

// NewMaterialRepository creates a new in-memory material repository
func NewMaterialRepository(expectedMaterials int) *MaterialRepository {
	return &MaterialRepository{
		materials:    make([]entities.Material, 0, expectedMaterials),
		materialsMap: make(map[entities.MaterialName]int, expectedMaterials),
	}
}

// Verify interface compliance
var _ repositories.MaterialRepository = (*MaterialRepository)(nil)

// LoadMaterials loads materials into the repository. Nothing is loaded
// when the batch repeats a name or collides with a stored material.
func (r *MaterialRepository) LoadMaterials(materials []*entities.Material) error {
	seen := make(map[entities.MaterialName]bool, len(materials))
	var duplicates []string
	for _, m := range materials {
		_, stored := r.materialsMap[m.Name]
		if seen[m.Name] || stored {
			duplicates = append(duplicates, string(m.Name))
		}
		seen[m.Name] = true
	}
	if len(duplicates) > 0 {
		return fmt.Errorf("duplicate material names found: %s", strings.Join(duplicates, ", "))
	}

	for _, m := range materials {
		r.materialsMap[m.Name] = len(r.materials)
		r.materials = append(r.materials, *m)
	}
	return nil
}

// SaveMaterial adds a material. Names must be unique.
func (r *MaterialRepository) SaveMaterial(m *entities.Material) error {
	if _, exists := r.materialsMap[m.Name]; exists {
		return fmt.Errorf("material already exists: %s", m.Name)
	}
	r.materialsMap[m.Name] = len(r.materials)
	r.materials = append(r.materials, *m)
	return nil
}

// GetMaterial returns the material with the given name
func (r *MaterialRepository) GetMaterial(name entities.MaterialName) (*entities.Material, error) {
	index, exists := r.materialsMap[name]
	if !exists {
		return nil, fmt.Errorf("material not found: %s", name)
	}
	m := r.materials[index]
	return &m, nil
}

// GetAllMaterials returns all materials in load order
func (r *MaterialRepository) GetAllMaterials() ([]entities.Material, error) {
	materials := make([]entities.Material, len(r.materials))
	copy(materials, r.materials)
	return materials, nil
}
