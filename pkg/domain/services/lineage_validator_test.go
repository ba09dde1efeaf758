package services

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/lotcom/pkg/domain/entities"
)

type lineFixture struct {
	casting   *entities.Process
	deburr    *entities.Process
	machining *entities.Process
	part      *entities.Part
}

func newLineFixture(t *testing.T) lineFixture {
	t.Helper()

	casting, err := entities.NewProcess(entities.Process{
		ID: 1, LineCode: 4210, LineName: "CRV", Title: "Casting",
		Serialization:  entities.SerializationJBK,
		Type:           entities.Casting,
		Origination:    entities.Originator,
		DoesPrint:      true,
		RequiredFields: entities.RequiredFieldSet{JBKNumber: true},
	})
	require.NoError(t, err)

	deburr, err := entities.NewProcess(entities.Process{
		ID: 2, LineCode: 4220, LineName: "CRV", Title: "Deburr",
		Type:               entities.Deburring,
		Origination:        entities.PassThrough,
		PassThroughType:    entities.PassThroughJBK,
		DoesPrint:          true,
		DoesScan:           true,
		RequiredFields:     entities.RequiredFieldSet{JBKNumber: true},
		PreviousProcessIDs: []int{1},
	})
	require.NoError(t, err)

	machining, err := entities.NewProcess(entities.Process{
		ID: 3, LineCode: 4230, LineName: "CRV", Title: "Machining",
		Serialization:      entities.SerializationLot,
		Type:               entities.Machining,
		Origination:        entities.Originator,
		DoesPrint:          true,
		DoesScan:           true,
		RequiredFields:     entities.RequiredFieldSet{LotNumber: true},
		PreviousProcessIDs: []int{2},
	})
	require.NoError(t, err)

	code, err := entities.NewModelCode("CRV")
	require.NoError(t, err)
	part, err := entities.NewPart(12, "12345-ABC-0000", "Knuckle LH", code, 1, 2)
	require.NoError(t, err)

	return lineFixture{casting: casting, deburr: deburr, machining: machining, part: part}
}

func jbkField(t *testing.T, v int) *entities.JBKNumber {
	t.Helper()
	n, err := entities.NewJBKNumber(v)
	require.NoError(t, err)
	return &n
}

func lotField(t *testing.T, v int) *entities.LotNumber {
	t.Helper()
	n, err := entities.NewLotNumber(v)
	require.NoError(t, err)
	return &n
}

func dataSet(t *testing.T) entities.PartialDataSet {
	t.Helper()
	q, err := entities.NewQuantity(40)
	require.NoError(t, err)
	op, err := entities.NewOperator("JD")
	require.NoError(t, err)
	return entities.PartialDataSet{Quantity: q, Shift: entities.FirstShift, Operator: op}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 7, 30, 0, 0, time.UTC)
}

func printAt(t *testing.T, id int, process *entities.Process, part *entities.Part, fields entities.VariableFieldSet, when time.Time) *entities.UnitEvent {
	t.Helper()
	event, err := entities.NewPrintEvent(id, process, part, fields, when, dataSet(t))
	require.NoError(t, err)
	return event
}

func TestLineageValidator_PositiveCase(t *testing.T) {
	f := newLineFixture(t)
	v := NewLineageValidator(0)

	printed := printAt(t, 1, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 1))
	scanned, err := entities.NewScanEvent(2, f.deburr, day(2024, time.January, 10), netip.MustParseAddr("10.1.1.20"),
		f.deburr, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 1), dataSet(t))
	require.NoError(t, err)

	assert.True(t, v.IsSuccessor(scanned, printed))
	assert.Equal(t, StepNone, v.Check(scanned, printed).FailedStep)

	// the reverse direction is not a lineage
	assert.False(t, v.IsSuccessor(printed, scanned))
}

func TestLineageValidator_WrongPredecessorDeclared(t *testing.T) {
	f := newLineFixture(t)
	v := NewLineageValidator(0)

	unrelated, err := entities.NewProcess(entities.Process{
		ID: 20, LineCode: 5000, LineName: "AP5", Title: "Weld",
		Type:               entities.Welding,
		Origination:        entities.PassThrough,
		PassThroughType:    entities.PassThroughJBK,
		RequiredFields:     entities.RequiredFieldSet{JBKNumber: true},
		PreviousProcessIDs: []int{99},
	})
	require.NoError(t, err)

	printed := printAt(t, 1, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 1))
	candidate := printAt(t, 2, unrelated, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 10))

	check := v.Check(candidate, printed)
	assert.False(t, check.Successor)
	assert.Equal(t, StepProcessGraph, check.FailedStep)
}

func TestLineageValidator_LineStartHasNoPredecessor(t *testing.T) {
	f := newLineFixture(t)
	v := NewLineageValidator(0)

	first := printAt(t, 1, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 1))
	second := printAt(t, 2, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 2))

	check := v.Check(second, first)
	assert.False(t, check.Successor)
	assert.Equal(t, StepProcessGraph, check.FailedStep)
	assert.Contains(t, check.Reason, "line-start")
}

func TestLineageValidator_TimeWindow(t *testing.T) {
	f := newLineFixture(t)
	v := NewLineageValidator(DefaultLineageWindowDays)
	printed := printAt(t, 1, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 1))

	tests := []struct {
		name     string
		scanned  time.Time
		expected bool
	}{
		{"nine_days", day(2024, time.January, 10), true},
		{"sixty_days", day(2024, time.March, 1), true},
		{"ninety_five_days", day(2024, time.April, 5), false},
		{"one_day_before", day(2023, time.December, 31), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := printAt(t, 2, f.deburr, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, tt.scanned)
			check := v.Check(candidate, printed)
			assert.Equal(t, tt.expected, check.Successor)
			if !tt.expected {
				assert.Equal(t, StepTimeWindow, check.FailedStep)
			}
		})
	}
}

func TestLineageValidator_SerialAndModelMismatch(t *testing.T) {
	f := newLineFixture(t)
	v := NewLineageValidator(0)
	printed := printAt(t, 1, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 1))

	wrongSerial := printAt(t, 2, f.deburr, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 8)}, day(2024, time.January, 2))
	assert.Equal(t, StepSerialNumber, v.Check(wrongSerial, printed).FailedStep)

	otherCode, err := entities.NewModelCode("AP5")
	require.NoError(t, err)
	otherPart, err := entities.NewPart(13, "55555-AP5-0000", "Bracket", otherCode, 1, 2)
	require.NoError(t, err)
	wrongModel := printAt(t, 3, f.deburr, otherPart, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 2))
	assert.Equal(t, StepModelCode, v.Check(wrongModel, printed).FailedStep)
}

func TestLineageValidator_MachiningUsesDeburrReference(t *testing.T) {
	f := newLineFixture(t)
	v := NewLineageValidator(0)
	deburred := printAt(t, 1, f.deburr, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 3))

	// lot 7 would format as 000000007 and never match, but the deburr reference is what counts
	withoutReference := printAt(t, 2, f.machining, f.part, entities.VariableFieldSet{
		LotNumber: lotField(t, 7),
		JBKNumber: jbkField(t, 7),
	}, day(2024, time.January, 5))
	check := v.Check(withoutReference, deburred)
	assert.False(t, check.Successor)
	assert.Equal(t, StepSerialNumber, check.FailedStep)

	withReference := printAt(t, 3, f.machining, f.part, entities.VariableFieldSet{
		LotNumber:       lotField(t, 500),
		DeburrJBKNumber: jbkField(t, 7),
	}, day(2024, time.January, 5))
	assert.True(t, v.IsSuccessor(withReference, deburred))

	late := printAt(t, 4, f.machining, f.part, entities.VariableFieldSet{
		LotNumber:       lotField(t, 501),
		DeburrJBKNumber: jbkField(t, 7),
	}, day(2024, time.June, 5))
	assert.Equal(t, StepTimeWindow, v.Check(late, deburred).FailedStep)

	wrongReference := printAt(t, 5, f.machining, f.part, entities.VariableFieldSet{
		LotNumber:       lotField(t, 502),
		DeburrJBKNumber: jbkField(t, 9),
	}, day(2024, time.January, 5))
	assert.Equal(t, StepSerialNumber, v.Check(wrongReference, deburred).FailedStep)
}

func TestLineageValidator_FindPredecessor(t *testing.T) {
	f := newLineFixture(t)
	v := NewLineageValidator(0)

	history := []*entities.UnitEvent{
		printAt(t, 1, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 6)}, day(2024, time.January, 1)),
		printAt(t, 2, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 1)),
		printAt(t, 3, f.casting, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 8)}, day(2024, time.January, 1)),
	}
	candidate := printAt(t, 4, f.deburr, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 7)}, day(2024, time.January, 4))

	found, ok := v.FindPredecessor(candidate, history)
	require.True(t, ok)
	assert.Equal(t, 2, found.ID)

	orphan := printAt(t, 5, f.deburr, f.part, entities.VariableFieldSet{JBKNumber: jbkField(t, 42)}, day(2024, time.January, 4))
	_, ok = v.FindPredecessor(orphan, history)
	assert.False(t, ok)
}
