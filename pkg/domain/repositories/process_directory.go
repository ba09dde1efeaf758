package repositories

import "github.com/vsinha/lotcom/pkg/domain/entities"

// ProcessDirectory provides read-only access to process configuration.
// Lookups for unknown processes fail with an entities.NotFoundError.
type ProcessDirectory interface {
	Get(processID int) (*entities.Process, error)
	GetByFullName(name string) (*entities.Process, error)
	GetAll() ([]*entities.Process, error)
}
