package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
	"github.com/vsinha/lotcom/pkg/infrastructure/locking"
)

// FileStore keeps one serialization mode's ledger in a flat JSON object mapping
// part number to counter, both as strings. Every update rewrites the whole file
// through a temp file and rename while holding the ledger's lock.
type FileStore struct {
	mode     entities.SerializationMode
	path     string
	lockName string
	locker   locking.Locker
	logger   *zap.Logger

	// serializes goroutines before they contend for the cross-process lock
	mu sync.Mutex
}

// NewFileStore creates a ledger backed by the JSON file at path.
// A nil locker falls back to a FileLocker next to the ledger file.
func NewFileStore(mode entities.SerializationMode, path string, locker locking.Locker, logger *zap.Logger) (*FileStore, error) {
	if mode == entities.SerializationNone {
		return nil, errors.New("file ledger requires the JBK or Lot mode")
	}
	if path == "" {
		return nil, errors.New("file ledger requires a path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = locking.NewFileLocker(filepath.Dir(path), 0, logger)
	}
	return &FileStore{
		mode:     mode,
		path:     path,
		lockName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		locker:   locker,
		logger:   logger.With(zap.String("ledger", path), zap.Stringer("mode", mode)),
	}, nil
}

// Mode returns the serialization mode this ledger counts for
func (s *FileStore) Mode() entities.SerializationMode {
	return s.mode
}

// Path returns the ledger file location
func (s *FileStore) Path() string {
	return s.path
}

// Update runs fn on the stored counter for partNumber and persists its result
func (s *FileStore) Update(ctx context.Context, partNumber string, fn repositories.LedgerUpdate) (int, error) {
	var next int
	err := s.withLock(ctx, partNumber, func() error {
		entries, err := s.read()
		if err != nil {
			return s.serializationError("read", partNumber, err)
		}
		raw, ok := entries[partNumber]
		if !ok {
			return entities.NewNotFoundError("ledger entry", partNumber)
		}
		current, err := parseCounter(partNumber, raw)
		if err != nil {
			return s.serializationError("parse", partNumber, err)
		}

		next, err = fn(current)
		if err != nil {
			return err
		}
		if err := checkBeforeCommit(ctx); err != nil {
			return s.serializationError("commit", partNumber, err)
		}

		entries[partNumber] = strconv.Itoa(next)
		if err := s.write(entries); err != nil {
			return s.serializationError("write", partNumber, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Seed adds a ledger entry for partNumber, creating the file if needed.
// An existing entry is never overwritten.
func (s *FileStore) Seed(ctx context.Context, partNumber string, start int) error {
	if err := validateSeed(s.mode, partNumber, start); err != nil {
		return err
	}
	return s.withLock(ctx, partNumber, func() error {
		entries, err := s.read()
		if errors.Is(err, os.ErrNotExist) {
			entries = make(map[string]string)
		} else if err != nil {
			return s.serializationError("read", partNumber, err)
		}
		if _, ok := entries[partNumber]; ok {
			return errors.Wrapf(ErrAlreadySeeded, "part %s", partNumber)
		}
		entries[partNumber] = strconv.Itoa(start)
		if err := s.write(entries); err != nil {
			return s.serializationError("write", partNumber, err)
		}
		s.logger.Info("seeded ledger entry", zap.String("part", partNumber), zap.Int("start", start))
		return nil
	})
}

// Entries returns every counter in the ledger
func (s *FileStore) Entries(_ context.Context) (map[string]int, error) {
	entries, err := s.read()
	if err != nil {
		return nil, s.serializationError("read", "", err)
	}
	counters := make(map[string]int, len(entries))
	for part, raw := range entries {
		value, err := parseCounter(part, raw)
		if err != nil {
			return nil, s.serializationError("parse", part, err)
		}
		counters[part] = value
	}
	return counters, nil
}

// Ping verifies the ledger file can be read. Content is checked by Update and Entries.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.ReadFile(s.path); err != nil {
		return s.serializationError("ping", "", err)
	}
	return nil
}

func (s *FileStore) withLock(ctx context.Context, partNumber string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := locking.WithLock(ctx, s.locker, s.lockName, fn)
	if err == nil {
		return nil
	}
	var releaseErr *locking.ReleaseError
	if errors.As(err, &releaseErr) {
		// fn has committed, so its result stands
		s.logger.Warn("ledger lock release failed after write",
			zap.String("part", partNumber), zap.String("lock", releaseErr.Name), zap.Error(releaseErr.Err))
		return nil
	}
	if errors.Is(err, locking.ErrLockNotAcquired) || errors.Is(err, locking.ErrLockNotHeld) {
		return s.serializationError("lock", partNumber, err)
	}
	return err
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]string)
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decode ledger")
	}
	return entries, nil
}

// write replaces the ledger file atomically
func (s *FileStore) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode ledger")
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create ledger directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp ledger")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp ledger")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp ledger")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp ledger")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replace ledger")
	}
	return nil
}

func (s *FileStore) serializationError(op, partNumber string, err error) error {
	s.logger.Error("ledger operation failed", zap.String("op", op), zap.String("part", partNumber), zap.Error(err))
	return &entities.SerializationError{
		Op:   op,
		Part: partNumber,
		Mode: s.mode,
		Path: s.path,
		Err:  err,
	}
}

// Verify interface compliance
var _ repositories.LedgerStore = (*FileStore)(nil)
