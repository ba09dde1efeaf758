// Package allocator hands out the next serial number for a part under a serialization mode.
package allocator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
	"github.com/vsinha/lotcom/pkg/infrastructure/events"
	"github.com/vsinha/lotcom/pkg/infrastructure/metrics"
)

// DefaultTimeout bounds one ledger read-modify-write
const DefaultTimeout = 5 * time.Second

// SerialAllocator mints serial numbers from one ledger per serialization mode.
// Each Consume re-reads the ledger; nothing is cached between calls.
type SerialAllocator struct {
	stores  map[entities.SerializationMode]repositories.LedgerStore
	parts   repositories.PartDirectory
	events  events.EventStore
	logger  *zap.Logger
	timeout time.Duration
}

// Option configures a SerialAllocator
type Option func(*SerialAllocator)

// WithTimeout bounds each ledger operation; zero disables the bound
func WithTimeout(timeout time.Duration) Option {
	return func(a *SerialAllocator) {
		a.timeout = timeout
	}
}

// WithEventStore records allocations and wrap-arounds as domain events
func WithEventStore(store events.EventStore) Option {
	return func(a *SerialAllocator) {
		a.events = store
	}
}

// New creates a SerialAllocator over the given ledgers
func New(
	stores []repositories.LedgerStore,
	parts repositories.PartDirectory,
	logger *zap.Logger,
	opts ...Option,
) (*SerialAllocator, error) {
	if parts == nil {
		return nil, errors.New("allocator requires a part directory")
	}
	if len(stores) == 0 {
		return nil, errors.New("allocator requires at least one ledger")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &SerialAllocator{
		stores:  make(map[entities.SerializationMode]repositories.LedgerStore, len(stores)),
		parts:   parts,
		logger:  logger,
		timeout: DefaultTimeout,
	}
	for _, store := range stores {
		mode := store.Mode()
		if mode == entities.SerializationNone {
			return nil, errors.New("ledger has no serialization mode")
		}
		if _, dup := a.stores[mode]; dup {
			return nil, errors.Errorf("duplicate %s ledger", mode)
		}
		a.stores[mode] = store
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Consume allocates the next serial number for partNumber under mode.
//
// The counter wraps to 1 after reaching the mode's limit. A timeout or cancellation
// that fires before the ledger write leaves the ledger unchanged.
func (a *SerialAllocator) Consume(ctx context.Context, partNumber string, mode entities.SerializationMode) (entities.SerialNumber, error) {
	start := time.Now()
	modeLabel := mode.String()
	defer func() {
		metrics.AllocationDuration.WithLabelValues(modeLabel).Observe(time.Since(start).Seconds())
	}()

	store, err := a.storeFor(mode)
	if err != nil {
		metrics.SerialsAllocatedTotal.WithLabelValues(modeLabel, metrics.StatusInvalid).Inc()
		return entities.SerialNumber{}, err
	}

	part, err := a.parts.GetByNumber(partNumber)
	if err != nil {
		metrics.SerialsAllocatedTotal.WithLabelValues(modeLabel, metrics.StatusNotFound).Inc()
		return entities.SerialNumber{}, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	limit := mode.Limit()
	wrapped := false
	value, err := store.Update(ctx, partNumber, func(current int) (int, error) {
		if current < 0 {
			return 0, &entities.SerializationError{
				Op:   "parse",
				Part: partNumber,
				Mode: mode,
				Err:  errors.Errorf("stored counter %d is negative", current),
			}
		}
		if current >= limit {
			wrapped = true
			current = 0
		}
		return current + 1, nil
	})
	if err != nil {
		a.recordFailure(partNumber, mode, err)
		return entities.SerialNumber{}, err
	}

	serial, err := entities.NewSerialNumber(mode, part.ID, value)
	if err != nil {
		// the ledger already committed; report the stored value as corrupt
		metrics.SerialsAllocatedTotal.WithLabelValues(modeLabel, metrics.StatusError).Inc()
		return entities.SerialNumber{}, &entities.SerializationError{
			Op:   "validate",
			Part: partNumber,
			Mode: mode,
			Err:  err,
		}
	}

	metrics.SerialsAllocatedTotal.WithLabelValues(modeLabel, metrics.StatusSuccess).Inc()
	a.logger.Debug("allocated serial",
		zap.String("part", partNumber),
		zap.Stringer("mode", mode),
		zap.Int("value", value))

	if wrapped {
		metrics.SerialWrapsTotal.WithLabelValues(modeLabel).Inc()
		a.logger.Info("serial counter wrapped",
			zap.String("part", partNumber),
			zap.Stringer("mode", mode),
			zap.Int("limit", limit))
		a.publish(events.SerialStream(modeLabel, partNumber), events.SerialWrappedEvent, events.SerialWrapped{
			PartNumber: partNumber,
			Mode:       modeLabel,
			Limit:      limit,
		})
	}
	a.publish(events.SerialStream(modeLabel, partNumber), events.SerialConsumedEvent, events.SerialConsumed{
		PartNumber: partNumber,
		PartID:     part.ID,
		Mode:       modeLabel,
		Value:      value,
		Formatted:  serial.FormattedValue(),
	})

	return serial, nil
}

// Ping reports whether every configured ledger is readable. It never allocates.
func (a *SerialAllocator) Ping(ctx context.Context) bool {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	healthy := true
	for _, mode := range a.Modes() {
		if err := a.stores[mode].Ping(ctx); err != nil {
			a.logger.Warn("ledger unavailable", zap.Stringer("mode", mode), zap.Error(err))
			metrics.LedgerUp.WithLabelValues(mode.String()).Set(0)
			healthy = false
			continue
		}
		metrics.LedgerUp.WithLabelValues(mode.String()).Set(1)
	}
	return healthy
}

// Seed adds a ledger entry so partNumber can be allocated under mode
func (a *SerialAllocator) Seed(ctx context.Context, partNumber string, mode entities.SerializationMode, start int) error {
	store, err := a.storeFor(mode)
	if err != nil {
		return err
	}
	if _, err := a.parts.GetByNumber(partNumber); err != nil {
		return err
	}
	if err := store.Seed(ctx, partNumber, start); err != nil {
		return err
	}
	a.publish(events.SerialStream(mode.String(), partNumber), events.LedgerSeededEvent, events.LedgerSeeded{
		PartNumber: partNumber,
		Mode:       mode.String(),
		Start:      start,
	})
	return nil
}

// Counters returns the current ledger values for mode
func (a *SerialAllocator) Counters(ctx context.Context, mode entities.SerializationMode) (map[string]int, error) {
	store, err := a.storeFor(mode)
	if err != nil {
		return nil, err
	}
	return store.Entries(ctx)
}

// Modes lists the configured serialization modes in order
func (a *SerialAllocator) Modes() []entities.SerializationMode {
	modes := make([]entities.SerializationMode, 0, len(a.stores))
	for mode := range a.stores {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

func (a *SerialAllocator) storeFor(mode entities.SerializationMode) (repositories.LedgerStore, error) {
	if mode == entities.SerializationNone {
		return nil, &entities.ValidationError{Type: "serialization mode", Value: mode.String(), Reason: "allocation requires JBK or Lot"}
	}
	store, ok := a.stores[mode]
	if !ok {
		return nil, fmt.Errorf("no %s ledger configured", mode)
	}
	return store, nil
}

func (a *SerialAllocator) recordFailure(partNumber string, mode entities.SerializationMode, err error) {
	status := metrics.StatusError
	if entities.IsNotFound(err) {
		status = metrics.StatusNotFound
	}
	metrics.SerialsAllocatedTotal.WithLabelValues(mode.String(), status).Inc()
	a.logger.Error("serial allocation failed",
		zap.String("part", partNumber),
		zap.Stringer("mode", mode),
		zap.Error(err))
}

func (a *SerialAllocator) publish(stream, eventType string, data interface{}) {
	if a.events == nil {
		return
	}
	if err := a.events.AppendEvent(stream, events.NewEvent(eventType, stream, data)); err != nil {
		a.logger.Warn("failed to record event", zap.String("event_type", eventType), zap.Error(err))
	}
}
