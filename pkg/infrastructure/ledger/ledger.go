// Package ledger persists the per-part serial counters consumed by the allocator.
package ledger

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vsinha/lotcom/pkg/domain/entities"
)

// Default ledger file names, one per serialization mode
const (
	DefaultJBKFile = "jbk_queues.json"
	DefaultLotFile = "lot_queues.json"
)

// ErrAlreadySeeded is returned when seeding a part that already has a ledger entry
var ErrAlreadySeeded = errors.New("ledger entry already exists")

func validateSeed(mode entities.SerializationMode, partNumber string, start int) error {
	if partNumber == "" {
		return errors.New("part number is required")
	}
	if start < 0 || start > mode.Limit() {
		return errors.Errorf("seed %d for part %s outside 0..%d", start, partNumber, mode.Limit())
	}
	return nil
}

// parseCounter reads a counter stored as a decimal string
func parseCounter(partNumber, raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "entry for part %s is not an integer: %q", partNumber, raw)
	}
	return value, nil
}

// checkBeforeCommit stops an update whose context ended before the write
func checkBeforeCommit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "ledger update abandoned before write")
	}
	return nil
}
