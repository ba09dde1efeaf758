package entities

import "fmt"

// PartRole selects whether a part is looked up as printed or scanned by a process
type PartRole int

const (
	PartPrints PartRole = iota
	PartScans
)

// String method for PartRole enum
func (r PartRole) String() string {
	switch r {
	case PartPrints:
		return "Prints"
	case PartScans:
		return "Scans"
	default:
		return "Unknown"
	}
}

// Part identifies a manufactured part number and the processes that produce and consume it
type Part struct {
	ID                 int
	Number             string
	Name               string
	ModelCode          ModelCode
	ProducingProcessID int
	ConsumingProcessID int
}

// NewPart creates a validated Part
func NewPart(id int, number, name string, modelCode ModelCode, producingProcessID, consumingProcessID int) (*Part, error) {
	if number == "" {
		return nil, fmt.Errorf("part number cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("part name cannot be empty for %s", number)
	}
	if modelCode.Code() == "" {
		return nil, fmt.Errorf("model code cannot be empty for %s", number)
	}

	return &Part{
		ID:                 id,
		Number:             number,
		Name:               name,
		ModelCode:          modelCode,
		ProducingProcessID: producingProcessID,
		ConsumingProcessID: consumingProcessID,
	}, nil
}

func (p *Part) String() string {
	return fmt.Sprintf("%s %s", p.Number, p.Name)
}
