package ledger

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
)

// OpenBadger opens (or creates) a badger database in dir. An empty dir opens an in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger ledger %s", dir)
	}
	return db, nil
}

// BadgerStore keeps one serialization mode's ledger as keys "<mode>/<part number>"
// in a shared badger database. Values are decimal strings, as in the JSON ledger.
type BadgerStore struct {
	db     *badger.DB
	mode   entities.SerializationMode
	prefix string
	logger *zap.Logger

	// a single writer per ledger keeps badger from rejecting conflicting transactions
	mu sync.Mutex
}

// NewBadgerStore creates a ledger for mode inside db
func NewBadgerStore(db *badger.DB, mode entities.SerializationMode, logger *zap.Logger) (*BadgerStore, error) {
	if db == nil {
		return nil, errors.New("badger ledger requires a database")
	}
	if mode == entities.SerializationNone {
		return nil, errors.New("badger ledger requires the JBK or Lot mode")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgerStore{
		db:     db,
		mode:   mode,
		prefix: strings.ToLower(mode.String()) + "/",
		logger: logger.With(zap.String("ledger", "badger"), zap.Stringer("mode", mode)),
	}, nil
}

// Mode returns the serialization mode this ledger counts for
func (s *BadgerStore) Mode() entities.SerializationMode {
	return s.mode
}

func (s *BadgerStore) key(partNumber string) []byte {
	return []byte(s.prefix + partNumber)
}

// Update runs fn on the stored counter for partNumber inside one read-write transaction
func (s *BadgerStore) Update(ctx context.Context, partNumber string, fn repositories.LedgerUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		next     int
		txnError error
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		txnError = s.apply(ctx, txn, partNumber, fn, &next)
		return txnError
	})
	if txnError != nil {
		return 0, txnError
	}
	if err != nil {
		return 0, s.serializationError("commit", partNumber, err)
	}
	return next, nil
}

func (s *BadgerStore) apply(ctx context.Context, txn *badger.Txn, partNumber string, fn repositories.LedgerUpdate, next *int) error {
	current, err := s.get(txn, partNumber)
	if err != nil {
		return err
	}
	value, err := fn(current)
	if err != nil {
		return err
	}
	if err := checkBeforeCommit(ctx); err != nil {
		return s.serializationError("commit", partNumber, err)
	}
	if err := txn.Set(s.key(partNumber), []byte(strconv.Itoa(value))); err != nil {
		return s.serializationError("write", partNumber, err)
	}
	*next = value
	return nil
}

// Seed adds a ledger entry for partNumber. An existing entry is never overwritten.
func (s *BadgerStore) Seed(_ context.Context, partNumber string, start int) error {
	if err := validateSeed(s.mode, partNumber, start); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(partNumber))
		if err == nil {
			return errors.Wrapf(ErrAlreadySeeded, "part %s", partNumber)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return s.serializationError("read", partNumber, err)
		}
		return txn.Set(s.key(partNumber), []byte(strconv.Itoa(start)))
	})
	if err != nil {
		return err
	}
	s.logger.Info("seeded ledger entry", zap.String("part", partNumber), zap.Int("start", start))
	return nil
}

// Entries returns every counter in the ledger
func (s *BadgerStore) Entries(_ context.Context) (map[string]int, error) {
	counters := make(map[string]int)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(s.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			part := strings.TrimPrefix(string(item.Key()), s.prefix)
			err := item.Value(func(val []byte) error {
				value, err := parseCounter(part, string(val))
				if err != nil {
					return err
				}
				counters[part] = value
				return nil
			})
			if err != nil {
				return s.serializationError("parse", part, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counters, nil
}

// Ping verifies the database is open and readable
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return s.serializationError("ping", "", errors.New("database is closed"))
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(""))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return s.serializationError("ping", "", err)
	}
	return nil
}

func (s *BadgerStore) get(txn *badger.Txn, partNumber string) (int, error) {
	item, err := txn.Get(s.key(partNumber))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, entities.NewNotFoundError("ledger entry", partNumber)
		}
		return 0, s.serializationError("read", partNumber, err)
	}
	var current int
	err = item.Value(func(val []byte) error {
		var err error
		current, err = parseCounter(partNumber, string(val))
		return err
	})
	if err != nil {
		return 0, s.serializationError("parse", partNumber, err)
	}
	return current, nil
}

func (s *BadgerStore) serializationError(op, partNumber string, err error) error {
	s.logger.Error("ledger operation failed", zap.String("op", op), zap.String("part", partNumber), zap.Error(err))
	return &entities.SerializationError{
		Op:   op,
		Part: partNumber,
		Mode: s.mode,
		Err:  err,
	}
}

// Verify interface compliance
var _ repositories.LedgerStore = (*BadgerStore)(nil)
