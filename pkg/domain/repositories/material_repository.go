package repositories

import "github.com/vsinha/blendplan/pkg/domain/entities"

// MaterialRepository provides access to raw material master data
type MaterialRepository interface {
	GetMaterial(name entities.MaterialName) (*entities.Material, error)
	GetAllMaterials() ([]entities.Material, error)
	LoadMaterials(materials []*entities.Material) error
}
