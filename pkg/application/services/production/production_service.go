// Package production records label prints and scans and traces their lineage.
package production

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/lotcom/pkg/application/dto"
	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
	"github.com/vsinha/lotcom/pkg/domain/services"
	"github.com/vsinha/lotcom/pkg/infrastructure/events"
	"github.com/vsinha/lotcom/pkg/infrastructure/metrics"
)

// ErrDuplicateEvent is returned when a print or scan repeats one already recorded
var ErrDuplicateEvent = errors.New("unit event already recorded")

// SerialMinter allocates serial numbers for originating prints
type SerialMinter interface {
	Consume(ctx context.Context, partNumber string, mode entities.SerializationMode) (entities.SerialNumber, error)
}

// PrintRequest describes a label printed at a station.
// For originator processes the serial field is filled from the allocator.
type PrintRequest struct {
	ProcessID      int
	PartNumber     string
	Fields         entities.VariableFieldSet
	ProductionDate time.Time
	Primary        entities.PartialDataSet
	Additional     []*entities.PartialDataSet
}

// ScanRequest describes a label read at a station. Values are the label's
// variable fields in label order; LabelProcess is the printing process's full name.
type ScanRequest struct {
	ProcessID      int
	LabelProcess   string
	PartNumber     string
	Values         []string
	ProductionDate time.Time
	ScanDate       time.Time
	Address        netip.Addr
	Primary        entities.PartialDataSet
	Additional     []*entities.PartialDataSet
}

// Service coordinates serial allocation, event recording and lineage checks
type Service struct {
	processes repositories.ProcessDirectory
	parts     repositories.PartDirectory
	history   repositories.EventRepository
	minter    SerialMinter
	validator *services.LineageValidator
	events    events.EventStore
	logger    *zap.Logger
	now       func() time.Time

	// serializes duplicate checks with id reservation and save
	mu sync.Mutex
}

// Option configures a Service
type Option func(*Service)

// WithEventStore records prints, scans and traces as domain events
func WithEventStore(store events.EventStore) Option {
	return func(s *Service) {
		s.events = store
	}
}

// WithClock replaces time.Now for defaulted dates
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a production Service
func NewService(
	processes repositories.ProcessDirectory,
	parts repositories.PartDirectory,
	history repositories.EventRepository,
	minter SerialMinter,
	validator *services.LineageValidator,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if validator == nil {
		validator = services.NewLineageValidator(services.DefaultLineageWindowDays)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		processes: processes,
		parts:     parts,
		history:   history,
		minter:    minter,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordPrint records a printed label. Originator processes mint a new serial;
// pass-through processes reprint the serial supplied in the request.
func (s *Service) RecordPrint(ctx context.Context, req PrintRequest) (*entities.UnitEvent, error) {
	process, err := s.processes.Get(req.ProcessID)
	if err != nil {
		return nil, s.reject(entities.PrintEvent, err)
	}
	if !process.DoesPrint {
		return nil, s.reject(entities.PrintEvent, &entities.ValidationError{
			Type: "process", Value: process.FullName(), Reason: "process does not print labels",
		})
	}
	part, err := s.partFor(process, req.PartNumber)
	if err != nil {
		return nil, s.reject(entities.PrintEvent, err)
	}
	if err := validateDataSets(req.Primary, req.Additional); err != nil {
		return nil, s.reject(entities.PrintEvent, err)
	}

	productionDate := req.ProductionDate
	if productionDate.IsZero() {
		productionDate = s.now()
	}
	fields := req.Fields

	if process.Origination == entities.Originator {
		// check the rest of the label before spending a serial on it
		if err := withPlaceholderSerial(fields, process.Serialization).Validate(process.RequiredFields); err != nil {
			return nil, s.reject(entities.PrintEvent, err)
		}
		serial, err := s.minter.Consume(ctx, part.Number, process.Serialization)
		if err != nil {
			return nil, s.reject(entities.PrintEvent, err)
		}
		fields, err = withSerial(fields, serial)
		if err != nil {
			return nil, s.reject(entities.PrintEvent, err)
		}
	}

	event, err := entities.NewPrintEvent(0, process, part, fields, productionDate, req.Primary, req.Additional...)
	if err != nil {
		return nil, s.reject(entities.PrintEvent, err)
	}
	if err := s.commit(event, events.UnitPrintedEvent); err != nil {
		return nil, err
	}
	return event, nil
}

// RecordScan records a scanned label and traces it back through the process graph.
// A scan whose lineage cannot be established is still recorded; the trace reports the break.
func (s *Service) RecordScan(ctx context.Context, req ScanRequest) (*entities.UnitEvent, *dto.TraceResult, error) {
	process, err := s.processes.Get(req.ProcessID)
	if err != nil {
		return nil, nil, s.reject(entities.ScanEvent, err)
	}
	if !process.DoesScan {
		return nil, nil, s.reject(entities.ScanEvent, &entities.ValidationError{
			Type: "process", Value: process.FullName(), Reason: "process does not scan labels",
		})
	}
	labelProcess, err := s.processes.GetByFullName(req.LabelProcess)
	if err != nil {
		return nil, nil, s.reject(entities.ScanEvent, err)
	}
	part, err := s.parts.GetByNumber(req.PartNumber)
	if err != nil {
		return nil, nil, s.reject(entities.ScanEvent, err)
	}
	fields, err := entities.ParseVariableFields(req.Values, labelProcess.RequiredFields)
	if err != nil {
		return nil, nil, s.reject(entities.ScanEvent, err)
	}
	if err := validateDataSets(req.Primary, req.Additional); err != nil {
		return nil, nil, s.reject(entities.ScanEvent, err)
	}

	scanDate := req.ScanDate
	if scanDate.IsZero() {
		scanDate = s.now()
	}

	event, err := entities.NewScanEvent(0, process, scanDate, req.Address, labelProcess, part, fields, req.ProductionDate, req.Primary, req.Additional...)
	if err != nil {
		return nil, nil, s.reject(entities.ScanEvent, err)
	}
	if _, err := event.SerialNumber(); err != nil {
		return nil, nil, s.reject(entities.ScanEvent, err)
	}
	if err := s.commit(event, events.UnitScannedEvent); err != nil {
		return nil, nil, err
	}

	trace, err := s.Trace(ctx, event.ID)
	if err != nil {
		return event, nil, err
	}
	return event, trace, nil
}

// Trace follows an event back through its predecessors until it reaches a
// line-start process or no recorded event qualifies as the predecessor.
func (s *Service) Trace(_ context.Context, eventID int) (*dto.TraceResult, error) {
	event, err := s.history.Get(eventID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.GetAll()
	if err != nil {
		return nil, err
	}

	result := &dto.TraceResult{EventID: eventID}
	visited := make(map[int]bool)
	current := event
	for {
		result.Chain = append(result.Chain, traceStep(current))
		visited[current.ID] = true

		if !current.LabelProcess.HasPreviousProcess() {
			result.Complete = true
			break
		}
		previous, ok := s.validator.FindPredecessor(current, history)
		if !ok || visited[previous.ID] {
			result.BrokenAt = s.explainBreak(current, history)
			break
		}
		current = previous
	}

	s.recordTrace(event, result)
	return result, nil
}

// EventsWithin returns a part's events recorded between days before asOf and asOf
func (s *Service) EventsWithin(_ context.Context, partNumber string, asOf time.Time, days int) ([]*entities.UnitEvent, error) {
	part, err := s.parts.GetByNumber(partNumber)
	if err != nil {
		return nil, err
	}
	recorded, err := s.history.GetByPart(part.ID)
	if err != nil {
		return nil, err
	}
	var within []*entities.UnitEvent
	for _, event := range recorded {
		if event.WithinRange(asOf, days) {
			within = append(within, event)
		}
	}
	return within, nil
}

// explainBreak reports the first check that failed against a recorded event
// from a declared predecessor process
func (s *Service) explainBreak(event *entities.UnitEvent, history []*entities.UnitEvent) *dto.TraceBreak {
	brk := &dto.TraceBreak{
		EventID:    event.ID,
		Process:    event.LabelProcess.FullName(),
		FailedStep: services.StepProcessGraph.String(),
		Reason:     "no recorded event from a preceding process",
	}
	for _, previous := range history {
		if previous.ID == event.ID || !event.LabelProcess.IsPrecededBy(previous.LabelProcess.ID) {
			continue
		}
		check := s.validator.Check(event, previous)
		brk.FailedStep = check.FailedStep.String()
		brk.Reason = fmt.Sprintf("event %d: %s", previous.ID, check.Reason)
		break
	}
	return brk
}

// partFor resolves the part a print is for. Only the producing process may
// originate a part's serials; pass-through stations relabel whatever arrives.
func (s *Service) partFor(process *entities.Process, partNumber string) (*entities.Part, error) {
	part, err := s.parts.GetByNumber(partNumber)
	if err != nil {
		return nil, err
	}
	if process.Origination != entities.Originator {
		return part, nil
	}
	produced, err := s.parts.GetPartsForProcess(process.ID, entities.PartPrints)
	if err != nil {
		return nil, err
	}
	for _, candidate := range produced {
		if candidate.ID == part.ID {
			return part, nil
		}
	}
	return nil, &entities.ValidationError{
		Type:   "part",
		Value:  partNumber,
		Reason: "not produced by " + process.FullName(),
	}
}

// checkDuplicate rejects a print or scan identical to one already recorded at the same process
func (s *Service) checkDuplicate(candidate *entities.UnitEvent) error {
	recorded, err := s.history.GetByPart(candidate.Part.ID)
	if err != nil {
		return err
	}
	for _, existing := range recorded {
		if existing.Kind != candidate.Kind || existing.EventProcess.ID != candidate.EventProcess.ID {
			continue
		}
		if !existing.IsIdenticalTo(candidate) {
			continue
		}
		serial, _ := candidate.FormattedSerial()
		metrics.UnitEventsRecordedTotal.WithLabelValues(candidate.Kind.String(), metrics.StatusDuplicate).Inc()
		s.logger.Warn("duplicate unit event rejected",
			zap.String("part", candidate.Part.Number),
			zap.String("serial", serial),
			zap.Int("existing_id", existing.ID))
		s.publish(events.UnitStream(candidate.Part.Number), events.DuplicateRejectedEvent, events.DuplicateRejected{
			PartNumber: candidate.Part.Number,
			Serial:     serial,
			ExistingID: existing.ID,
			Process:    candidate.EventProcess.FullName(),
		})
		return errors.Wrapf(ErrDuplicateEvent, "%s %s matches event %d", candidate.Part.Number, serial, existing.ID)
	}
	return nil
}

// commit assigns the next event id and saves the event unless an identical one exists
func (s *Service) commit(event *entities.UnitEvent, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDuplicate(event); err != nil {
		return err
	}
	event.ID = s.history.NextID()
	if err := s.history.Save(event); err != nil {
		return s.reject(event.Kind, err)
	}
	serial, _ := event.FormattedSerial()
	metrics.UnitEventsRecordedTotal.WithLabelValues(event.Kind.String(), metrics.StatusSuccess).Inc()
	s.logger.Info("unit event recorded",
		zap.Int("event_id", event.ID),
		zap.Stringer("kind", event.Kind),
		zap.String("part", event.Part.Number),
		zap.String("serial", serial),
		zap.String("process", event.EventProcess.FullName()))
	s.publish(events.UnitStream(event.Part.Number), eventType, events.UnitRecorded{
		EventID:        event.ID,
		Kind:           event.Kind.String(),
		PartNumber:     event.Part.Number,
		Serial:         serial,
		Process:        event.EventProcess.FullName(),
		LabelProcess:   event.LabelProcess.FullName(),
		ProductionDate: event.ProductionDate,
		EventDate:      event.EventDate,
	})
	return nil
}

func (s *Service) reject(kind entities.EventKind, err error) error {
	status := metrics.StatusError
	switch {
	case entities.IsValidationError(err), entities.IsFormatError(err):
		status = metrics.StatusInvalid
	case entities.IsNotFound(err):
		status = metrics.StatusNotFound
	}
	metrics.UnitEventsRecordedTotal.WithLabelValues(kind.String(), status).Inc()
	s.logger.Error("unit event rejected", zap.Stringer("kind", kind), zap.Error(err))
	return err
}

func (s *Service) recordTrace(event *entities.UnitEvent, result *dto.TraceResult) {
	traced := events.LineageTraced{
		EventID:    event.ID,
		PartNumber: event.Part.Number,
		Linked:     result.Complete,
	}
	if len(result.Chain) > 1 {
		traced.PredecessorID = result.Chain[1].EventID
	}
	step := services.StepNone.String()
	outcome := metrics.LineageLinked
	if result.BrokenAt != nil {
		step = result.BrokenAt.FailedStep
		outcome = metrics.LineageOrphaned
		traced.FailedStep = result.BrokenAt.FailedStep
		traced.Reason = result.BrokenAt.Reason
		s.logger.Warn("lineage broken",
			zap.Int("event_id", event.ID),
			zap.Int("broken_at", result.BrokenAt.EventID),
			zap.String("step", result.BrokenAt.FailedStep),
			zap.String("reason", result.BrokenAt.Reason))
	}
	metrics.LineageChecksTotal.WithLabelValues(outcome, step).Inc()
	s.publish(events.UnitStream(event.Part.Number), events.LineageTracedEvent, traced)
}

func (s *Service) publish(stream, eventType string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.AppendEvent(stream, events.NewEvent(eventType, stream, data)); err != nil {
		s.logger.Warn("failed to record event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func traceStep(event *entities.UnitEvent) dto.TraceStep {
	serial, err := event.FormattedSerial()
	if err != nil {
		serial = ""
	}
	return dto.TraceStep{
		EventID:      event.ID,
		Kind:         event.Kind.String(),
		Process:      event.EventProcess.FullName(),
		LabelProcess: event.LabelProcess.FullName(),
		PartNumber:   event.Part.Number,
		Serial:       serial,
		EventDate:    event.EventDate,
	}
}

func validateDataSets(primary entities.PartialDataSet, additional []*entities.PartialDataSet) error {
	if err := primary.SelfValidate(); err != nil {
		return err
	}
	for _, set := range additional {
		if set == nil {
			return &entities.ValidationError{Type: "partial data set", Value: "nil", Reason: "additional data set is empty"}
		}
		if err := set.SelfValidate(); err != nil {
			return err
		}
	}
	return nil
}

// withPlaceholderSerial fills the minted field so the remaining fields can be checked
func withPlaceholderSerial(fields entities.VariableFieldSet, mode entities.SerializationMode) entities.VariableFieldSet {
	switch mode {
	case entities.SerializationJBK:
		if fields.JBKNumber == nil {
			placeholder, _ := entities.NewJBKNumber(0)
			fields.JBKNumber = &placeholder
		}
	case entities.SerializationLot:
		if fields.LotNumber == nil {
			placeholder, _ := entities.NewLotNumber(0)
			fields.LotNumber = &placeholder
		}
	}
	return fields
}

func withSerial(fields entities.VariableFieldSet, serial entities.SerialNumber) (entities.VariableFieldSet, error) {
	switch serial.Mode {
	case entities.SerializationJBK:
		n, err := entities.NewJBKNumber(serial.Value)
		if err != nil {
			return fields, err
		}
		fields.JBKNumber = &n
	case entities.SerializationLot:
		n, err := entities.NewLotNumber(serial.Value)
		if err != nil {
			return fields, err
		}
		fields.LotNumber = &n
	default:
		return fields, &entities.FormatError{Reason: fmt.Sprintf("cannot label serial %s", serial)}
	}
	return fields, nil
}
