package repositories

import (
	"context"

	"github.com/vsinha/lotcom/pkg/domain/entities"
)

// LedgerUpdate receives the current counter for a part and returns the value to persist
type LedgerUpdate func(current int) (int, error)

// LedgerStore is the durable part-number to next-counter mapping for one serialization mode.
//
// Update performs an exclusive read-modify-write: the stored value is replaced only
// when fn succeeds and the full write completes. A part with no entry fails with an
// entities.NotFoundError; storage failures are entities.SerializationError.
type LedgerStore interface {
	Mode() entities.SerializationMode
	Update(ctx context.Context, partNumber string, fn LedgerUpdate) (int, error)
	Seed(ctx context.Context, partNumber string, start int) error
	Entries(ctx context.Context) (map[string]int, error)
	Ping(ctx context.Context) error
}
