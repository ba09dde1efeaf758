package production

import (
	"context"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/lotcom/pkg/application/services/allocator"
	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
	"github.com/vsinha/lotcom/pkg/domain/services"
	"github.com/vsinha/lotcom/pkg/infrastructure/events"
	"github.com/vsinha/lotcom/pkg/infrastructure/ledger"
	"github.com/vsinha/lotcom/pkg/infrastructure/metrics"
	"github.com/vsinha/lotcom/pkg/infrastructure/repositories/memory"
	testdata "github.com/vsinha/lotcom/pkg/infrastructure/testing"
)

type lineFixture struct {
	service   *Service
	allocator *allocator.SerialAllocator
	history   *memory.EventRepository
	events    *events.InMemoryEventStore
}

func newLineFixture(t *testing.T) lineFixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	processes, parts := testdata.BuildKnuckleLineTestData()

	jbk, err := ledger.NewFileStore(entities.SerializationJBK, filepath.Join(dir, ledger.DefaultJBKFile), nil, nil)
	require.NoError(t, err)
	lot, err := ledger.NewFileStore(entities.SerializationLot, filepath.Join(dir, ledger.DefaultLotFile), nil, nil)
	require.NoError(t, err)

	alloc, err := allocator.New([]repositories.LedgerStore{jbk, lot}, parts, nil)
	require.NoError(t, err)
	require.NoError(t, alloc.Seed(ctx, testdata.KnuckleLH, entities.SerializationJBK, 0))
	require.NoError(t, alloc.Seed(ctx, testdata.MachinedLH, entities.SerializationLot, 0))

	history := memory.NewEventRepository()
	store := events.NewInMemoryEventStore(nil)
	service := NewService(processes, parts, history, alloc, services.NewLineageValidator(0), nil,
		WithEventStore(store),
		WithClock(func() time.Time { return day(20) }))

	return lineFixture{service: service, allocator: alloc, history: history, events: store}
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 7, 30, 0, 0, time.UTC)
}

func dataSet(t *testing.T, qty int, shift entities.Shift, initials string) *entities.PartialDataSet {
	t.Helper()
	quantity, err := entities.NewQuantity(qty)
	require.NoError(t, err)
	operator, err := entities.NewOperator(initials)
	require.NoError(t, err)
	set, err := entities.NewPartialDataSet(quantity, shift, operator)
	require.NoError(t, err)
	return set
}

func jbkField(t *testing.T, v int) *entities.JBKNumber {
	t.Helper()
	n, err := entities.NewJBKNumber(v)
	require.NoError(t, err)
	return &n
}

func castingFields(t *testing.T) entities.VariableFieldSet {
	t.Helper()
	die, err := entities.NewDieNumber("12A")
	require.NoError(t, err)
	heat, err := entities.NewHeatNumber(4455)
	require.NoError(t, err)
	return entities.VariableFieldSet{DieNumber: &die, HeatNumber: &heat}
}

// runLine prints a basket at casting, deburr and shot-blast, then machines it
func runLine(t *testing.T, f lineFixture) (casting, deburr, shotBlast, machining *entities.UnitEvent) {
	t.Helper()
	ctx := context.Background()
	var err error

	casting, err = f.service.RecordPrint(ctx, PrintRequest{
		ProcessID:      testdata.CastingID,
		PartNumber:     testdata.KnuckleLH,
		Fields:         castingFields(t),
		ProductionDate: day(2),
		Primary:        *dataSet(t, 60, entities.FirstShift, "AB"),
	})
	require.NoError(t, err)

	deburr, err = f.service.RecordPrint(ctx, PrintRequest{
		ProcessID:      testdata.DeburrID,
		PartNumber:     testdata.KnuckleLH,
		Fields:         entities.VariableFieldSet{JBKNumber: jbkField(t, 1)},
		ProductionDate: day(3),
		Primary:        *dataSet(t, 60, entities.FirstShift, "CD"),
	})
	require.NoError(t, err)

	shotBlast, err = f.service.RecordPrint(ctx, PrintRequest{
		ProcessID:      testdata.ShotBlastID,
		PartNumber:     testdata.KnuckleLH,
		Fields:         entities.VariableFieldSet{JBKNumber: jbkField(t, 1)},
		ProductionDate: day(4),
		Primary:        *dataSet(t, 60, entities.SecondShift, "EF"),
	})
	require.NoError(t, err)

	machining, err = f.service.RecordPrint(ctx, PrintRequest{
		ProcessID:      testdata.MachiningID,
		PartNumber:     testdata.MachinedLH,
		Fields:         entities.VariableFieldSet{DeburrJBKNumber: jbkField(t, 1)},
		ProductionDate: day(5),
		Primary:        *dataSet(t, 58, entities.FirstShift, "GH"),
	})
	require.NoError(t, err)
	return casting, deburr, shotBlast, machining
}

func TestRecordPrint_OriginatorMintsSerial(t *testing.T) {
	f := newLineFixture(t)
	before := testutil.ToFloat64(metrics.UnitEventsRecordedTotal.WithLabelValues("Print", metrics.StatusSuccess))

	casting, _, _, machining := runLine(t, f)

	serial, err := casting.FormattedSerial()
	require.NoError(t, err)
	assert.Equal(t, "001", serial)
	assert.Equal(t, 1, casting.ID)
	assert.Equal(t, "12A", casting.VariableFields.DieNumber.Formatted())

	serial, err = machining.FormattedSerial()
	require.NoError(t, err)
	assert.Equal(t, "000000001", serial)
	assert.Equal(t, "001", machining.VariableFields.DeburrJBKNumber.Formatted())
	assert.Equal(t, 4, machining.ID)

	counters, err := f.allocator.Counters(context.Background(), entities.SerializationJBK)
	require.NoError(t, err)
	assert.Equal(t, 1, counters[testdata.KnuckleLH])

	assert.Equal(t, before+4, testutil.ToFloat64(metrics.UnitEventsRecordedTotal.WithLabelValues("Print", metrics.StatusSuccess)))

	f.events.Wait()
	recorded, err := f.events.ReadEvents(events.UnitStream(testdata.KnuckleLH), 0)
	require.NoError(t, err)
	require.Len(t, recorded, 3)
	assert.Equal(t, events.UnitPrintedEvent, recorded[0].Type())
	payload, ok := recorded[0].Data().(events.UnitRecorded)
	require.True(t, ok)
	assert.Equal(t, "001", payload.Serial)
	assert.Equal(t, "4210-CRV-Casting", payload.Process)
}

func TestRecordPrint_PassThroughKeepsSerial(t *testing.T) {
	f := newLineFixture(t)
	_, deburr, shotBlast, _ := runLine(t, f)

	for _, event := range []*entities.UnitEvent{deburr, shotBlast} {
		serial, err := event.FormattedSerial()
		require.NoError(t, err)
		assert.Equal(t, "001", serial)
	}

	// pass-through prints never touch the ledger
	counters, err := f.allocator.Counters(context.Background(), entities.SerializationJBK)
	require.NoError(t, err)
	assert.Equal(t, 1, counters[testdata.KnuckleLH])
}

func TestRecordPrint_DefaultsProductionDate(t *testing.T) {
	f := newLineFixture(t)
	event, err := f.service.RecordPrint(context.Background(), PrintRequest{
		ProcessID:  testdata.DeburrID,
		PartNumber: testdata.KnuckleRH,
		Fields:     entities.VariableFieldSet{JBKNumber: jbkField(t, 9)},
		Primary:    *dataSet(t, 10, entities.ThirdShift, "XY"),
	})
	require.NoError(t, err)
	assert.Equal(t, day(20), event.ProductionDate)
	assert.Equal(t, day(20), event.EventDate)
}

func TestRecordPrint_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)

	tests := []struct {
		name     string
		req      PrintRequest
		notFound bool
	}{
		{
			name: "unknown process",
			req: PrintRequest{
				ProcessID: 99, PartNumber: testdata.KnuckleLH, Primary: *dataSet(t, 1, entities.FirstShift, "AB"),
			},
			notFound: true,
		},
		{
			name: "process does not print",
			req: PrintRequest{
				ProcessID: testdata.AssemblyID, PartNumber: testdata.MachinedLH,
				Fields:  entities.VariableFieldSet{},
				Primary: *dataSet(t, 1, entities.FirstShift, "AB"),
			},
		},
		{
			name: "part produced elsewhere",
			req: PrintRequest{
				ProcessID: testdata.CastingID, PartNumber: testdata.MachinedLH,
				Fields:  castingFields(t),
				Primary: *dataSet(t, 1, entities.FirstShift, "AB"),
			},
		},
		{
			name: "unknown part",
			req: PrintRequest{
				ProcessID: testdata.DeburrID, PartNumber: "99999-XXX-0000",
				Fields:  entities.VariableFieldSet{JBKNumber: jbkField(t, 1)},
				Primary: *dataSet(t, 1, entities.FirstShift, "AB"),
			},
			notFound: true,
		},
		{
			name: "missing die number",
			req: PrintRequest{
				ProcessID: testdata.CastingID, PartNumber: testdata.KnuckleLH,
				Fields:  entities.VariableFieldSet{},
				Primary: *dataSet(t, 1, entities.FirstShift, "AB"),
			},
		},
		{
			name: "empty basket",
			req: PrintRequest{
				ProcessID: testdata.CastingID, PartNumber: testdata.KnuckleLH,
				Fields:  castingFields(t),
				Primary: entities.PartialDataSet{Shift: entities.FirstShift},
			},
		},
		{
			name: "pass-through without serial",
			req: PrintRequest{
				ProcessID: testdata.DeburrID, PartNumber: testdata.KnuckleLH,
				Fields:  entities.VariableFieldSet{},
				Primary: *dataSet(t, 1, entities.FirstShift, "AB"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.RecordPrint(ctx, tt.req)
			require.Error(t, err)
			if tt.notFound {
				assert.True(t, entities.IsNotFound(err), "got %v", err)
			} else {
				assert.True(t, entities.IsValidationError(err), "got %v", err)
			}
		})
	}

	// none of the rejected casting prints consumed a serial
	counters, err := f.allocator.Counters(ctx, entities.SerializationJBK)
	require.NoError(t, err)
	assert.Equal(t, 0, counters[testdata.KnuckleLH])

	all, err := f.history.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecordPrint_UnseededPart(t *testing.T) {
	f := newLineFixture(t)
	_, err := f.service.RecordPrint(context.Background(), PrintRequest{
		ProcessID:  testdata.CastingID,
		PartNumber: testdata.KnuckleRH,
		Fields:     castingFields(t),
		Primary:    *dataSet(t, 1, entities.FirstShift, "AB"),
	})
	require.Error(t, err)
	assert.True(t, entities.IsNotFound(err))
}

func TestRecordPrint_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)
	req := PrintRequest{
		ProcessID:      testdata.DeburrID,
		PartNumber:     testdata.KnuckleLH,
		Fields:         entities.VariableFieldSet{JBKNumber: jbkField(t, 5)},
		ProductionDate: day(3),
		Primary:        *dataSet(t, 60, entities.FirstShift, "CD"),
	}
	before := testutil.ToFloat64(metrics.UnitEventsRecordedTotal.WithLabelValues("Print", metrics.StatusDuplicate))

	first, err := f.service.RecordPrint(ctx, req)
	require.NoError(t, err)

	_, err = f.service.RecordPrint(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateEvent)
	assert.Contains(t, err.Error(), "matches event 1")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UnitEventsRecordedTotal.WithLabelValues("Print", metrics.StatusDuplicate)))

	// a new production date is a new basket
	req.ProductionDate = day(4)
	second, err := f.service.RecordPrint(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID+1, second.ID)

	f.events.Wait()
	recorded, err := f.events.ReadEvents(events.UnitStream(testdata.KnuckleLH), 0)
	require.NoError(t, err)
	types := make([]string, 0, len(recorded))
	for _, e := range recorded {
		types = append(types, e.Type())
	}
	assert.Equal(t, []string{events.UnitPrintedEvent, events.DuplicateRejectedEvent, events.UnitPrintedEvent}, types)
}

func TestRecordScan_TracesToCasting(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)
	casting, deburr, shotBlast, machining := runLine(t, f)
	before := testutil.ToFloat64(metrics.LineageChecksTotal.WithLabelValues(metrics.LineageLinked, "none"))

	scan, trace, err := f.service.RecordScan(ctx, ScanRequest{
		ProcessID:      testdata.AssemblyID,
		LabelProcess:   "4240-CRV-Machining",
		PartNumber:     testdata.MachinedLH,
		Values:         []string{"000000001", "001"},
		ProductionDate: day(5),
		ScanDate:       day(6),
		Address:        netip.MustParseAddr("10.20.0.15"),
		Primary:        *dataSet(t, 58, entities.FirstShift, "IJ"),
	})
	require.NoError(t, err)
	require.NotNil(t, trace)

	assert.Equal(t, entities.ScanEvent, scan.Kind)
	assert.Equal(t, day(5), scan.ProductionDate)
	assert.Equal(t, day(6), scan.EventDate)
	assert.Equal(t, "10.20.0.15", scan.EventAddress.String())

	assert.True(t, trace.Complete)
	assert.Nil(t, trace.BrokenAt)
	require.Len(t, trace.Chain, 4)
	ids := []int{trace.Chain[0].EventID, trace.Chain[1].EventID, trace.Chain[2].EventID, trace.Chain[3].EventID}
	assert.Equal(t, []int{scan.ID, shotBlast.ID, deburr.ID, casting.ID}, ids)
	assert.Equal(t, "4210-CRV-Casting", trace.Origin().Process)
	assert.Equal(t, "001", trace.Origin().Serial)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LineageChecksTotal.WithLabelValues(metrics.LineageLinked, "none")))

	// the machining print traces through the same chain
	printTrace, err := f.service.Trace(ctx, machining.ID)
	require.NoError(t, err)
	assert.True(t, printTrace.Complete)
	assert.Len(t, printTrace.Chain, 4)
}

func TestRecordScan_LineStartLabel(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)
	runLine(t, f)

	scan, trace, err := f.service.RecordScan(ctx, ScanRequest{
		ProcessID:      testdata.DeburrID,
		LabelProcess:   "4210-CRV-Casting",
		PartNumber:     testdata.KnuckleLH,
		Values:         []string{"001", "12A", "4455"},
		ProductionDate: day(2),
		ScanDate:       day(3),
		Primary:        *dataSet(t, 60, entities.FirstShift, "CD"),
	})
	require.NoError(t, err)
	assert.Equal(t, "001", scan.VariableFields.JBKNumber.Formatted())
	assert.True(t, trace.Complete)
	assert.Len(t, trace.Chain, 1)
}

func TestRecordScan_OrphanIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)
	runLine(t, f)

	scan, trace, err := f.service.RecordScan(ctx, ScanRequest{
		ProcessID:      testdata.AssemblyID,
		LabelProcess:   "4240-CRV-Machining",
		PartNumber:     testdata.MachinedLH,
		Values:         []string{"000000007", "042"},
		ProductionDate: day(5),
		ScanDate:       day(6),
		Primary:        *dataSet(t, 58, entities.FirstShift, "IJ"),
	})
	require.NoError(t, err)
	require.NotNil(t, scan)

	assert.False(t, trace.Complete)
	require.NotNil(t, trace.BrokenAt)
	assert.Equal(t, scan.ID, trace.BrokenAt.EventID)
	assert.Equal(t, services.StepSerialNumber.String(), trace.BrokenAt.FailedStep)
	assert.Contains(t, trace.BrokenAt.Reason, "deburr JBK 042")

	stored, err := f.history.Get(scan.ID)
	require.NoError(t, err)
	assert.Same(t, scan, stored)

	f.events.Wait()
	recorded, err := f.events.ReadEvents(events.UnitStream(testdata.MachinedLH), 0)
	require.NoError(t, err)
	last := recorded[len(recorded)-1]
	assert.Equal(t, events.LineageTracedEvent, last.Type())
	traced := last.Data().(events.LineageTraced)
	assert.False(t, traced.Linked)
	assert.Equal(t, "serial-number", traced.FailedStep)
}

func TestRecordScan_StaleBasket(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)
	runLine(t, f)

	_, trace, err := f.service.RecordScan(ctx, ScanRequest{
		ProcessID:      testdata.AssemblyID,
		LabelProcess:   "4240-CRV-Machining",
		PartNumber:     testdata.MachinedLH,
		Values:         []string{"000000001", "001"},
		ProductionDate: day(5),
		ScanDate:       day(5).AddDate(0, 3, 0),
		Primary:        *dataSet(t, 58, entities.FirstShift, "IJ"),
	})
	require.NoError(t, err)
	assert.False(t, trace.Complete)
	require.NotNil(t, trace.BrokenAt)
	assert.Equal(t, "time-window", trace.BrokenAt.FailedStep)
}

func TestRecordScan_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)
	runLine(t, f)

	valid := ScanRequest{
		ProcessID:    testdata.AssemblyID,
		LabelProcess: "4240-CRV-Machining",
		PartNumber:   testdata.MachinedLH,
		Values:       []string{"000000001", "001"},
		ScanDate:     day(6),
		Primary:      *dataSet(t, 58, entities.FirstShift, "IJ"),
	}

	notScanning := valid
	notScanning.ProcessID = testdata.CastingID

	unknownLabel := valid
	unknownLabel.LabelProcess = "4240-CRV-Welding"

	missingValue := valid
	missingValue.Values = []string{"000000001"}

	badValue := valid
	badValue.Values = []string{"000000001", "1000"}

	_, _, err := f.service.RecordScan(ctx, notScanning)
	assert.True(t, entities.IsValidationError(err), "got %v", err)

	_, _, err = f.service.RecordScan(ctx, unknownLabel)
	assert.True(t, entities.IsNotFound(err), "got %v", err)

	_, _, err = f.service.RecordScan(ctx, missingValue)
	assert.True(t, entities.IsValidationError(err), "got %v", err)

	_, _, err = f.service.RecordScan(ctx, badValue)
	assert.True(t, entities.IsValidationError(err), "got %v", err)

	_, _, err = f.service.RecordScan(ctx, valid)
	require.NoError(t, err)
	_, _, err = f.service.RecordScan(ctx, valid)
	assert.ErrorIs(t, err, ErrDuplicateEvent)
}

func TestTrace_UnknownEvent(t *testing.T) {
	f := newLineFixture(t)
	_, err := f.service.Trace(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, entities.IsNotFound(err))
}

func TestEventsWithin(t *testing.T) {
	ctx := context.Background()
	f := newLineFixture(t)
	_, deburr, shotBlast, _ := runLine(t, f)

	within, err := f.service.EventsWithin(ctx, testdata.KnuckleLH, day(4), 1)
	require.NoError(t, err)
	require.Len(t, within, 2)
	assert.Equal(t, deburr.ID, within[0].ID)
	assert.Equal(t, shotBlast.ID, within[1].ID)

	within, err = f.service.EventsWithin(ctx, testdata.KnuckleLH, day(1), 60)
	require.NoError(t, err)
	assert.Empty(t, within)

	_, err = f.service.EventsWithin(ctx, "99999-XXX-0000", day(4), 1)
	assert.True(t, entities.IsNotFound(err))
}
