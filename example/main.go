package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vsinha/lotcom/pkg/application/services/allocator"
	"github.com/vsinha/lotcom/pkg/application/services/production"
	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
	"github.com/vsinha/lotcom/pkg/domain/services"
	"github.com/vsinha/lotcom/pkg/infrastructure/events"
	"github.com/vsinha/lotcom/pkg/infrastructure/ledger"
	"github.com/vsinha/lotcom/pkg/infrastructure/repositories/memory"
	testdata "github.com/vsinha/lotcom/pkg/infrastructure/testing"
)

func main() {
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	dir, err := os.MkdirTemp("", "lotcom-example")
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	// Five-stage knuckle line: casting mints JBK numbers, machining mints Lot numbers
	processes, parts := testdata.BuildKnuckleLineTestData()

	jbk, err := ledger.NewFileStore(entities.SerializationJBK, filepath.Join(dir, ledger.DefaultJBKFile), nil, logger)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	lot, err := ledger.NewFileStore(entities.SerializationLot, filepath.Join(dir, ledger.DefaultLotFile), nil, logger)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	// wraps, seeds and traces show up in the log as they happen
	store, err := events.NewLoggedStore(logger, events.NoticeTypes...)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	alloc, err := allocator.New([]repositories.LedgerStore{jbk, lot}, parts, logger, allocator.WithEventStore(store))
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	// start near the JBK limit to show the wrap
	if err := alloc.Seed(ctx, testdata.KnuckleLH, entities.SerializationJBK, 998); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if err := alloc.Seed(ctx, testdata.MachinedLH, entities.SerializationLot, 0); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	service := production.NewService(processes, parts, memory.NewEventRepository(), alloc,
		services.NewLineageValidator(services.DefaultLineageWindowDays), logger,
		production.WithEventStore(store))

	day := func(d int) time.Time { return time.Date(2025, time.June, d, 7, 30, 0, 0, time.Local) }
	crew := func(qty int, shift entities.Shift, initials string) entities.PartialDataSet {
		q, _ := entities.NewQuantity(qty)
		op, _ := entities.NewOperator(initials)
		set, _ := entities.NewPartialDataSet(q, shift, op)
		return *set
	}
	die, _ := entities.NewDieNumber("7B")
	heat, _ := entities.NewHeatNumber(512034)

	fmt.Println("🏭 Casting two baskets of knuckles...")
	var jbkNumber *entities.JBKNumber
	for i := 0; i < 2; i++ {
		event, err := service.RecordPrint(ctx, production.PrintRequest{
			ProcessID:      testdata.CastingID,
			PartNumber:     testdata.KnuckleLH,
			Fields:         entities.VariableFieldSet{DieNumber: &die, HeatNumber: &heat},
			ProductionDate: day(2 + i),
			Primary:        crew(48, entities.FirstShift, "JD"),
		})
		if err != nil {
			fmt.Printf("❌ casting print failed: %v\n", err)
			return
		}
		serial, _ := event.FormattedSerial()
		fmt.Printf("  Event %d: %s JBK %s\n", event.ID, event.Part.Number, serial)
		jbkNumber = event.VariableFields.JBKNumber
	}
	fmt.Println()

	fmt.Printf("🔁 Passing JBK %s through deburr and shot-blast...\n", jbkNumber)
	for i, processID := range []int{testdata.DeburrID, testdata.ShotBlastID} {
		additional := crew(18, entities.SecondShift, "MK")
		event, err := service.RecordPrint(ctx, production.PrintRequest{
			ProcessID:      processID,
			PartNumber:     testdata.KnuckleLH,
			Fields:         entities.VariableFieldSet{JBKNumber: jbkNumber},
			ProductionDate: day(4 + i),
			Primary:        crew(30, entities.FirstShift, "AL"),
			Additional:     []*entities.PartialDataSet{&additional},
		})
		if err != nil {
			fmt.Printf("❌ pass-through print failed: %v\n", err)
			return
		}
		summary := production.SummarizeShifts(event)
		fmt.Printf("  Event %d at %s:", event.ID, event.EventProcess.FullName())
		for _, share := range summary.Shifts {
			fmt.Printf(" shift %s %s%%", share.Shift, share.Percent.StringFixed(2))
		}
		fmt.Println()
	}
	fmt.Println()

	fmt.Println("⚙️  Machining into a Lot...")
	machined, err := service.RecordPrint(ctx, production.PrintRequest{
		ProcessID:      testdata.MachiningID,
		PartNumber:     testdata.MachinedLH,
		Fields:         entities.VariableFieldSet{DeburrJBKNumber: jbkNumber},
		ProductionDate: day(6),
		Primary:        crew(48, entities.FirstShift, "RS"),
	})
	if err != nil {
		fmt.Printf("❌ machining print failed: %v\n", err)
		return
	}
	lotSerial, _ := machined.FormattedSerial()
	fmt.Printf("  Event %d: %s Lot %s\n\n", machined.ID, machined.Part.Number, lotSerial)

	fmt.Println("🔍 Scanning at assembly...")
	scan, trace, err := service.RecordScan(ctx, production.ScanRequest{
		ProcessID:      testdata.AssemblyID,
		LabelProcess:   machined.LabelProcess.FullName(),
		PartNumber:     testdata.MachinedLH,
		Values:         machined.VariableFields.Values(),
		ProductionDate: machined.ProductionDate,
		ScanDate:       day(7),
		Address:        netip.MustParseAddr("10.42.0.17"),
		Primary:        crew(48, entities.FirstShift, "TW"),
	})
	if err != nil {
		fmt.Printf("❌ scan failed: %v\n", err)
		return
	}
	fmt.Printf("  Event %d traced %d steps, complete: %t\n", scan.ID, len(trace.Chain), trace.Complete)
	for _, step := range trace.Chain {
		fmt.Printf("    %-3d %-5s %-22s %s\n", step.EventID, step.Kind, step.Process, step.Serial)
	}

	counters, _ := alloc.Counters(ctx, entities.SerializationJBK)
	fmt.Printf("\n📒 JBK ledger: %v\n", counters)

	store.Wait()
	recorded, _ := store.ReadAllEvents(0)
	byType := make(map[string]int)
	for _, event := range recorded {
		byType[event.Type()]++
	}
	fmt.Printf("📣 Domain events: %v\n", byType)

	// the same exposition a textfile collector or /metrics handler would serve
	metricsPath := filepath.Join(dir, "lotcom.prom")
	if err := prometheus.WriteToTextfile(metricsPath, prometheus.DefaultGatherer); err != nil {
		fmt.Printf("❌ metrics export failed: %v\n", err)
		return
	}
	exposition, err := os.ReadFile(metricsPath)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Println("📈 Metrics:")
	for _, line := range strings.Split(string(exposition), "\n") {
		if strings.HasPrefix(line, "lotcom_") && !strings.Contains(line, "_bucket") {
			fmt.Printf("  %s\n", line)
		}
	}
}
