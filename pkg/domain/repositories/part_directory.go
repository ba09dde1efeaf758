package repositories

import "github.com/vsinha/lotcom/pkg/domain/entities"

// PartDirectory provides read-only access to part master data
type PartDirectory interface {
	Get(partID int) (*entities.Part, error)
	GetByNumber(number string) (*entities.Part, error)
	GetPartsForProcess(processID int, role entities.PartRole) ([]*entities.Part, error)
}
