package events

import (
	"go.uber.org/zap"
)

// NoticeTypes are the events an operator following the log is told about
var NoticeTypes = []string{
	SerialWrappedEvent,
	LedgerSeededEvent,
	DuplicateRejectedEvent,
	LineageTracedEvent,
}

// NewLogSubscriber returns a handler that logs every event of the given types at Info
func NewLogSubscriber(logger *zap.Logger, types ...string) *HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandlerFunc{
		Types: types,
		Fn: func(e Event) error {
			logger.Info("domain event",
				zap.String("event_type", e.Type()),
				zap.String("stream", e.StreamID()),
				zap.Any("data", e.Data()))
			return nil
		},
	}
}

// NewLoggedStore creates an in-memory store whose events of the given types are logged
func NewLoggedStore(logger *zap.Logger, types ...string) (*InMemoryEventStore, error) {
	store := NewInMemoryEventStore(logger)
	if err := store.Subscribe(types, NewLogSubscriber(logger, types...)); err != nil {
		return nil, err
	}
	return store, nil
}
