package testing

import (
	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/infrastructure/repositories/memory"
)

// Process ids of the CRV knuckle line built by BuildKnuckleLineTestData
const (
	CastingID   = 1
	DeburrID    = 2
	ShotBlastID = 3
	MachiningID = 4
	AssemblyID  = 5
)

// Part numbers of the CRV knuckle line
const (
	KnuckleLH  = "12345-CRV-0001"
	KnuckleRH  = "12346-CRV-0002"
	MachinedLH = "12345-CRV-0101"
	Bracket    = "22000-AP5-0001"
)

// BuildKnuckleLineTestData builds a five-stage line: casting mints JBK numbers,
// deburr and shot-blast pass them through, machining mints Lot numbers and carries
// the deburr JBK as a cross-reference, and assembly passes the Lot through.
func BuildKnuckleLineTestData() (*memory.ProcessDirectory, *memory.PartDirectory) {
	processDir := memory.NewProcessDirectory()
	partDir := memory.NewPartDirectory(4)

	processes := []entities.Process{
		{
			ID:             CastingID,
			LineCode:       4210,
			LineName:       "CRV",
			Title:          "Casting",
			Serialization:  entities.SerializationJBK,
			Type:           entities.Casting,
			Origination:    entities.Originator,
			DoesPrint:      true,
			RequiredFields: entities.RequiredFieldSet{JBKNumber: true, DieNumber: true, HeatNumber: true},
		},
		{
			ID:                 DeburrID,
			LineCode:           4220,
			LineName:           "CRV",
			Title:              "Deburr",
			Type:               entities.Deburring,
			Origination:        entities.PassThrough,
			PassThroughType:    entities.PassThroughJBK,
			DoesPrint:          true,
			DoesScan:           true,
			RequiredFields:     entities.RequiredFieldSet{JBKNumber: true},
			PreviousProcessIDs: []int{CastingID},
		},
		{
			ID:                 ShotBlastID,
			LineCode:           4230,
			LineName:           "CRV",
			Title:              "Shot-Blast",
			Type:               entities.ShotBlasting,
			Origination:        entities.PassThrough,
			PassThroughType:    entities.PassThroughJBK,
			DoesPrint:          true,
			DoesScan:           true,
			RequiredFields:     entities.RequiredFieldSet{JBKNumber: true},
			PreviousProcessIDs: []int{DeburrID},
		},
		{
			ID:                 MachiningID,
			LineCode:           4240,
			LineName:           "CRV",
			Title:              "Machining",
			Serialization:      entities.SerializationLot,
			Type:               entities.Machining,
			Origination:        entities.Originator,
			DoesPrint:          true,
			DoesScan:           true,
			RequiredFields:     entities.RequiredFieldSet{LotNumber: true, DeburrJBKNumber: true},
			PreviousProcessIDs: []int{ShotBlastID},
		},
		{
			ID:                 AssemblyID,
			LineCode:           4250,
			LineName:           "CRV",
			Title:              "Assembly",
			Type:               entities.Assembly,
			Origination:        entities.PassThrough,
			PassThroughType:    entities.PassThroughLot,
			DoesScan:           true,
			RequiredFields:     entities.RequiredFieldSet{LotNumber: true},
			PreviousProcessIDs: []int{MachiningID},
		},
	}

	built := make([]*entities.Process, 0, len(processes))
	for _, p := range processes {
		process, err := entities.NewProcess(p)
		if err != nil {
			panic(err)
		}
		built = append(built, process)
	}
	if err := processDir.LoadProcesses(built); err != nil {
		panic(err)
	}

	parts := []struct {
		id                   int
		number, name, model  string
		producing, consuming int
	}{
		{12, KnuckleLH, "Knuckle LH", "CRV", CastingID, DeburrID},
		{13, KnuckleRH, "Knuckle RH", "CRV", CastingID, DeburrID},
		{14, MachinedLH, "Knuckle LH Machined", "CRV", MachiningID, AssemblyID},
		{20, Bracket, "Bracket", "AP5", MachiningID, AssemblyID},
	}
	for _, p := range parts {
		code, err := entities.NewModelCode(p.model)
		if err != nil {
			panic(err)
		}
		part, err := entities.NewPart(p.id, p.number, p.name, code, p.producing, p.consuming)
		if err != nil {
			panic(err)
		}
		if err := partDir.AddPart(part); err != nil {
			panic(err)
		}
	}

	return processDir, partDir
}

// MustProcess returns a process from the directory or panics
func MustProcess(dir *memory.ProcessDirectory, id int) *entities.Process {
	process, err := dir.Get(id)
	if err != nil {
		panic(err)
	}
	return process
}

// MustPart returns a part from the directory or panics
func MustPart(dir *memory.PartDirectory, number string) *entities.Part {
	part, err := dir.GetByNumber(number)
	if err != nil {
		panic(err)
	}
	return part
}
