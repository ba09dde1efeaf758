package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
)

// EventRepository keeps recorded unit events in insertion order
type EventRepository struct {
	mu     sync.RWMutex
	events []*entities.UnitEvent
	byID   map[int]int
	byPart map[int][]int
	nextID int
}

// NewEventRepository creates a new in-memory event repository
func NewEventRepository() *EventRepository {
	return &EventRepository{
		byID:   make(map[int]int),
		byPart: make(map[int][]int),
		nextID: 1,
	}
}

// Verify interface compliance
var _ repositories.EventRepository = (*EventRepository)(nil)

// Save appends an event; ids must be unique
func (r *EventRepository) Save(event *entities.UnitEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[event.ID]; exists {
		return fmt.Errorf("duplicate unit event id %d", event.ID)
	}
	index := len(r.events)
	r.events = append(r.events, event)
	r.byID[event.ID] = index
	r.byPart[event.Part.ID] = append(r.byPart[event.Part.ID], index)
	if event.ID >= r.nextID {
		r.nextID = event.ID + 1
	}
	return nil
}

// Get returns the event with the given id
func (r *EventRepository) Get(id int) (*entities.UnitEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.byID[id]
	if !exists {
		return nil, entities.NewNotFoundError("unit event", id)
	}
	return r.events[index], nil
}

// GetByPart returns a part's events in the order they were saved
func (r *EventRepository) GetByPart(partID int) ([]*entities.UnitEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes := r.byPart[partID]
	events := make([]*entities.UnitEvent, 0, len(indexes))
	for _, index := range indexes {
		events = append(events, r.events[index])
	}
	return events, nil
}

// GetAll returns every event in the order saved
func (r *EventRepository) GetAll() ([]*entities.UnitEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*entities.UnitEvent(nil), r.events...), nil
}

// NextID reserves the next unused event id
func (r *EventRepository) NextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	return id
}
