package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
)

// ProcessDirectory provides in-memory process configuration
type ProcessDirectory struct {
	mu         sync.RWMutex
	processes  map[int]*entities.Process
	byFullName map[string]*entities.Process
}

// NewProcessDirectory creates a new in-memory process directory
func NewProcessDirectory() *ProcessDirectory {
	return &ProcessDirectory{
		processes:  make(map[int]*entities.Process),
		byFullName: make(map[string]*entities.Process),
	}
}

// Verify interface compliance
var _ repositories.ProcessDirectory = (*ProcessDirectory)(nil)

// LoadProcesses adds processes and checks that every declared predecessor exists
func (d *ProcessDirectory) LoadProcesses(processes []*entities.Process) error {
	for _, process := range processes {
		if err := d.AddProcess(process); err != nil {
			return err
		}
	}
	return d.CheckGraph()
}

// AddProcess validates and adds a single process
func (d *ProcessDirectory) AddProcess(process *entities.Process) error {
	if err := process.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.processes[process.ID]; exists {
		return fmt.Errorf("duplicate process id %d", process.ID)
	}
	if _, exists := d.byFullName[process.FullName()]; exists {
		return fmt.Errorf("duplicate process %s", process.FullName())
	}
	d.processes[process.ID] = process
	d.byFullName[process.FullName()] = process
	return nil
}

// CheckGraph fails when a process names a predecessor that is not loaded
func (d *ProcessDirectory) CheckGraph() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, process := range d.processes {
		for _, previousID := range process.PreviousProcessIDs {
			if _, exists := d.processes[previousID]; !exists {
				return &entities.FormatError{Reason: fmt.Sprintf("process %s follows unknown process %d", process.FullName(), previousID)}
			}
		}
	}
	return nil
}

// Get returns the process with the given id
func (d *ProcessDirectory) Get(processID int) (*entities.Process, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	process, exists := d.processes[processID]
	if !exists {
		return nil, entities.NewNotFoundError("process", processID)
	}
	return process, nil
}

// GetByFullName returns the process whose "{lineCode}-{lineName}-{title}" matches name
func (d *ProcessDirectory) GetByFullName(name string) (*entities.Process, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	process, exists := d.byFullName[name]
	if !exists {
		return nil, entities.NewNotFoundError("process", name)
	}
	return process, nil
}

// GetAll returns every process, ordered by id
func (d *ProcessDirectory) GetAll() ([]*entities.Process, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	processes := make([]*entities.Process, 0, len(d.processes))
	for _, process := range d.processes {
		processes = append(processes, process)
	}
	sort.Slice(processes, func(i, j int) bool { return processes[i].ID < processes[j].ID })
	return processes, nil
}
