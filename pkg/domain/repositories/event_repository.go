package repositories

import "github.com/vsinha/lotcom/pkg/domain/entities"

// EventRepository stores recorded unit events
type EventRepository interface {
	Save(event *entities.UnitEvent) error
	Get(id int) (*entities.UnitEvent, error)
	GetByPart(partID int) ([]*entities.UnitEvent, error)
	GetAll() ([]*entities.UnitEvent, error)
	NextID() int
}
