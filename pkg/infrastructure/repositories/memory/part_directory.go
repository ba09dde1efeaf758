package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
)

// PartDirectory provides in-memory part master data
type PartDirectory struct {
	mu       sync.RWMutex
	parts    []*entities.Part
	byID     map[int]int
	byNumber map[string]int
}

// NewPartDirectory creates a new in-memory part directory
func NewPartDirectory(expectedParts int) *PartDirectory {
	return &PartDirectory{
		parts:    make([]*entities.Part, 0, expectedParts),
		byID:     make(map[int]int, expectedParts),
		byNumber: make(map[string]int, expectedParts),
	}
}

// Verify interface compliance
var _ repositories.PartDirectory = (*PartDirectory)(nil)

// LoadParts adds parts to the directory, rejecting duplicate ids or numbers
func (d *PartDirectory) LoadParts(parts []*entities.Part) error {
	for _, part := range parts {
		if err := d.AddPart(part); err != nil {
			return err
		}
	}
	return nil
}

// AddPart adds a single part
func (d *PartDirectory) AddPart(part *entities.Part) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byID[part.ID]; exists {
		return fmt.Errorf("duplicate part id %d", part.ID)
	}
	if _, exists := d.byNumber[part.Number]; exists {
		return fmt.Errorf("duplicate part number %s", part.Number)
	}
	d.byID[part.ID] = len(d.parts)
	d.byNumber[part.Number] = len(d.parts)
	d.parts = append(d.parts, part)
	return nil
}

// Get returns the part with the given id
func (d *PartDirectory) Get(partID int) (*entities.Part, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	index, exists := d.byID[partID]
	if !exists {
		return nil, entities.NewNotFoundError("part", partID)
	}
	return d.parts[index], nil
}

// GetByNumber returns the part with the given part number
func (d *PartDirectory) GetByNumber(number string) (*entities.Part, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	index, exists := d.byNumber[number]
	if !exists {
		return nil, entities.NewNotFoundError("part", number)
	}
	return d.parts[index], nil
}

// GetPartsForProcess returns the parts a process prints labels for or scans, ordered by id
func (d *PartDirectory) GetPartsForProcess(processID int, role entities.PartRole) ([]*entities.Part, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var parts []*entities.Part
	for _, part := range d.parts {
		switch role {
		case entities.PartPrints:
			if part.ProducingProcessID == processID {
				parts = append(parts, part)
			}
		case entities.PartScans:
			if part.ConsumingProcessID == processID {
				parts = append(parts, part)
			}
		default:
			return nil, fmt.Errorf("unknown part role %d", role)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })
	return parts, nil
}

// GetAll returns every part, ordered by id
func (d *PartDirectory) GetAll() ([]*entities.Part, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	parts := append([]*entities.Part(nil), d.parts...)
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })
	return parts, nil
}
