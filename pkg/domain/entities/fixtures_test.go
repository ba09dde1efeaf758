package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func casting(t *testing.T) *Process {
	t.Helper()
	p, err := NewProcess(Process{
		ID:             1,
		LineCode:       4210,
		LineName:       "CRV",
		Title:          "Casting",
		Serialization:  SerializationJBK,
		Type:           Casting,
		Origination:    Originator,
		DoesPrint:      true,
		RequiredFields: RequiredFieldSet{JBKNumber: true, DieNumber: true},
	})
	require.NoError(t, err)
	return p
}

func shotBlast(t *testing.T, previous ...int) *Process {
	t.Helper()
	p, err := NewProcess(Process{
		ID:                 2,
		LineCode:           4220,
		LineName:           "CRV",
		Title:              "Shot-Blast",
		Type:               ShotBlasting,
		Origination:        PassThrough,
		PassThroughType:    PassThroughJBK,
		DoesPrint:          true,
		DoesScan:           true,
		RequiredFields:     RequiredFieldSet{JBKNumber: true},
		PreviousProcessIDs: previous,
	})
	require.NoError(t, err)
	return p
}

func crvPart(t *testing.T) *Part {
	t.Helper()
	code, err := NewModelCode("CRV")
	require.NoError(t, err)
	part, err := NewPart(12, "12345-ABC-0000", "Knuckle LH", code, 1, 2)
	require.NoError(t, err)
	return part
}

func primaryData(t *testing.T, qty int) PartialDataSet {
	t.Helper()
	q, err := NewQuantity(qty)
	require.NoError(t, err)
	op, err := NewOperator("JD")
	require.NoError(t, err)
	return PartialDataSet{Quantity: q, Shift: FirstShift, Operator: op}
}

func jbk(t *testing.T, v int) *JBKNumber {
	t.Helper()
	n, err := NewJBKNumber(v)
	require.NoError(t, err)
	return &n
}

func die(t *testing.T, raw string) *DieNumber {
	t.Helper()
	n, err := NewDieNumber(raw)
	require.NoError(t, err)
	return &n
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 8, 0, 0, 0, time.UTC)
}
