package csv

import (
	"encoding/csv"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
)

// listSeparator splits multi-valued cells such as previous process ids
const listSeparator = ";"

var (
	processHeader = []string{"id", "line_code", "line_name", "title", "serialization", "process_type", "origination", "pass_through_type", "does_print", "does_scan", "required_fields", "previous_process_ids"}
	partHeader    = []string{"id", "part_number", "name", "model_code", "producing_process_id", "consuming_process_id"}
	eventHeader   = []string{"id", "kind", "event_process", "label_process", "part_number", "variable_fields", "production_date", "event_date", "address", "quantity", "shift", "operator", "additional"}
)

// Loader handles loading process, part and unit event data from CSV files
type Loader struct {
	location *time.Location
}

// NewLoader creates a new CSV loader. Label timestamps are read in loc; nil means local time.
func NewLoader(loc *time.Location) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{location: loc}
}

// LoadProcesses loads process configuration from a CSV file
func (l *Loader) LoadProcesses(filename string) ([]*entities.Process, error) {
	records, err := readRecords(filename, "processes", processHeader)
	if err != nil {
		return nil, err
	}

	var processes []*entities.Process
	for i, record := range records {
		process, err := parseProcess(record)
		if err != nil {
			return nil, fmt.Errorf("processes CSV row %d: %w", i+2, err)
		}
		processes = append(processes, process)
	}

	return processes, nil
}

// LoadParts loads part master data from a CSV file
func (l *Loader) LoadParts(filename string) ([]*entities.Part, error) {
	records, err := readRecords(filename, "parts", partHeader)
	if err != nil {
		return nil, err
	}

	var parts []*entities.Part
	for i, record := range records {
		part, err := parsePart(record)
		if err != nil {
			return nil, fmt.Errorf("parts CSV row %d: %w", i+2, err)
		}
		parts = append(parts, part)
	}

	return parts, nil
}

// LoadEvents loads recorded prints and scans, resolving processes by full name and parts by number
func (l *Loader) LoadEvents(filename string, processes repositories.ProcessDirectory, parts repositories.PartDirectory) ([]*entities.UnitEvent, error) {
	records, err := readRecords(filename, "events", eventHeader)
	if err != nil {
		return nil, err
	}

	var events []*entities.UnitEvent
	for i, record := range records {
		event, err := l.parseEvent(record, processes, parts)
		if err != nil {
			return nil, fmt.Errorf("events CSV row %d: %w", i+2, err)
		}
		events = append(events, event)
	}

	return events, nil
}

func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(expectedHeader)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.TrimSpace(strings.ToLower(actual[i])) != col {
			return false
		}
	}
	return true
}

func parseProcess(record []string) (*entities.Process, error) {
	id, err := strconv.Atoi(record[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}
	lineCode, err := strconv.Atoi(record[1])
	if err != nil {
		return nil, fmt.Errorf("invalid line_code: %s", record[1])
	}
	serialization, err := entities.ParseSerializationMode(record[4])
	if err != nil {
		return nil, err
	}
	processType, err := entities.ParseProcessType(record[5])
	if err != nil {
		return nil, err
	}
	origination, err := entities.ParseOriginationType(record[6])
	if err != nil {
		return nil, err
	}
	passThrough, err := entities.ParsePassThroughType(record[7])
	if err != nil {
		return nil, err
	}
	doesPrint, err := parseFlag(record[8])
	if err != nil {
		return nil, fmt.Errorf("invalid does_print: %s", record[8])
	}
	doesScan, err := parseFlag(record[9])
	if err != nil {
		return nil, fmt.Errorf("invalid does_scan: %s", record[9])
	}
	required, err := parseRequiredFields(record[10])
	if err != nil {
		return nil, err
	}
	previous, err := parseIDList(record[11])
	if err != nil {
		return nil, fmt.Errorf("invalid previous_process_ids: %s", record[11])
	}

	return entities.NewProcess(entities.Process{
		ID:                 id,
		LineCode:           lineCode,
		LineName:           strings.TrimSpace(record[2]),
		Title:              strings.TrimSpace(record[3]),
		Serialization:      serialization,
		Type:               processType,
		Origination:        origination,
		PassThroughType:    passThrough,
		DoesPrint:          doesPrint,
		DoesScan:           doesScan,
		RequiredFields:     required,
		PreviousProcessIDs: previous,
	})
}

func parsePart(record []string) (*entities.Part, error) {
	id, err := strconv.Atoi(record[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}
	modelCode, err := entities.NewModelCode(record[3])
	if err != nil {
		return nil, err
	}
	producing, err := parseOptionalID(record[4])
	if err != nil {
		return nil, fmt.Errorf("invalid producing_process_id: %s", record[4])
	}
	consuming, err := parseOptionalID(record[5])
	if err != nil {
		return nil, fmt.Errorf("invalid consuming_process_id: %s", record[5])
	}

	return entities.NewPart(id, strings.TrimSpace(record[1]), strings.TrimSpace(record[2]), modelCode, producing, consuming)
}

func (l *Loader) parseEvent(record []string, processes repositories.ProcessDirectory, parts repositories.PartDirectory) (*entities.UnitEvent, error) {
	id, err := strconv.Atoi(record[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}

	eventProcess, err := processes.GetByFullName(strings.TrimSpace(record[2]))
	if err != nil {
		return nil, err
	}
	labelProcess := eventProcess
	if name := strings.TrimSpace(record[3]); name != "" {
		labelProcess, err = processes.GetByFullName(name)
		if err != nil {
			return nil, err
		}
	}
	part, err := parts.GetByNumber(strings.TrimSpace(record[4]))
	if err != nil {
		return nil, err
	}

	fields, err := entities.ParseVariableFields(splitList(record[5]), labelProcess.RequiredFields)
	if err != nil {
		return nil, err
	}
	productionDate, err := entities.ParseTimestamp(record[6], l.location)
	if err != nil {
		return nil, fmt.Errorf("invalid production_date: %w", err)
	}
	primary, err := parsePartialDataSet(record[9], record[10], record[11])
	if err != nil {
		return nil, err
	}
	additional, err := parseAdditionalSets(record[12])
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(record[1])) {
	case "print":
		return entities.NewPrintEvent(id, eventProcess, part, fields, productionDate, *primary, additional...)
	case "scan":
		eventDate, err := entities.ParseTimestamp(record[7], l.location)
		if err != nil {
			return nil, fmt.Errorf("invalid event_date: %w", err)
		}
		var address netip.Addr
		if raw := strings.TrimSpace(record[8]); raw != "" {
			address, err = netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %s", raw)
			}
		}
		return entities.NewScanEvent(id, eventProcess, eventDate, address, labelProcess, part, fields, productionDate, *primary, additional...)
	default:
		return nil, fmt.Errorf("invalid kind: %s (expected: Print or Scan)", record[1])
	}
}

func parsePartialDataSet(quantity, shift, operator string) (*entities.PartialDataSet, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(quantity))
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %s", quantity)
	}
	q, err := entities.NewQuantity(qty)
	if err != nil {
		return nil, err
	}
	s, err := entities.ParseShift(shift)
	if err != nil {
		return nil, err
	}
	op, err := entities.NewOperator(operator)
	if err != nil {
		return nil, err
	}
	return entities.NewPartialDataSet(q, s, op)
}

// parseAdditionalSets reads "qty:shift:operator" entries separated by semicolons
func parseAdditionalSets(cell string) ([]*entities.PartialDataSet, error) {
	var sets []*entities.PartialDataSet
	for _, entry := range splitList(cell) {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid additional data set: %s (expected quantity:shift:operator)", entry)
		}
		set, err := parsePartialDataSet(parts[0], parts[1], parts[2])
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func parseRequiredFields(cell string) (entities.RequiredFieldSet, error) {
	var required entities.RequiredFieldSet
	for _, name := range splitList(cell) {
		switch strings.ToLower(name) {
		case "jbk":
			required.JBKNumber = true
		case "lot":
			required.LotNumber = true
		case "deburrjbk", "deburr_jbk":
			required.DeburrJBKNumber = true
		case "die":
			required.DieNumber = true
		case "heat":
			required.HeatNumber = true
		default:
			return entities.RequiredFieldSet{}, fmt.Errorf("invalid required field: %s (expected: JBK, Lot, DeburrJBK, Die, or Heat)", name)
		}
	}
	return required, nil
}

func parseIDList(cell string) ([]int, error) {
	var ids []int
	for _, raw := range splitList(cell) {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalID(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	return strconv.Atoi(cell)
}

func parseFlag(cell string) (bool, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return false, nil
	}
	return strconv.ParseBool(cell)
}

func splitList(cell string) []string {
	var values []string
	for _, v := range strings.Split(cell, listSeparator) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
