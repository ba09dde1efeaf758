// Package cache wraps the process and part directories in caller-owned,
// TTL-bounded caches with explicit refresh.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
)

// DefaultTTL is how long a directory lookup stays cached
const DefaultTTL = 5 * time.Minute

// defaultSize bounds each lookup table
const defaultSize = 4096

// ProcessCache caches a ProcessDirectory. Failed lookups are not cached.
type ProcessCache struct {
	source repositories.ProcessDirectory
	logger *zap.Logger
	byID   *expirable.LRU[int, *entities.Process]
	byName *expirable.LRU[string, *entities.Process]
	all    *expirable.LRU[struct{}, []*entities.Process]
}

// NewProcessCache creates a ProcessCache; a non-positive ttl uses DefaultTTL
func NewProcessCache(source repositories.ProcessDirectory, ttl time.Duration, logger *zap.Logger) *ProcessCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessCache{
		source: source,
		logger: logger,
		byID:   expirable.NewLRU[int, *entities.Process](defaultSize, nil, ttl),
		byName: expirable.NewLRU[string, *entities.Process](defaultSize, nil, ttl),
		all:    expirable.NewLRU[struct{}, []*entities.Process](1, nil, ttl),
	}
}

// Verify interface compliance
var _ repositories.ProcessDirectory = (*ProcessCache)(nil)

func (c *ProcessCache) Get(processID int) (*entities.Process, error) {
	if process, ok := c.byID.Get(processID); ok {
		return process, nil
	}
	process, err := c.source.Get(processID)
	if err != nil {
		return nil, err
	}
	c.store(process)
	return process, nil
}

func (c *ProcessCache) GetByFullName(name string) (*entities.Process, error) {
	if process, ok := c.byName.Get(name); ok {
		return process, nil
	}
	process, err := c.source.GetByFullName(name)
	if err != nil {
		return nil, err
	}
	c.store(process)
	return process, nil
}

func (c *ProcessCache) GetAll() ([]*entities.Process, error) {
	if processes, ok := c.all.Get(struct{}{}); ok {
		return processes, nil
	}
	processes, err := c.source.GetAll()
	if err != nil {
		return nil, err
	}
	c.all.Add(struct{}{}, processes)
	for _, process := range processes {
		c.store(process)
	}
	return processes, nil
}

// Refresh drops every entry and reloads the full process list
func (c *ProcessCache) Refresh() error {
	c.Invalidate()
	processes, err := c.GetAll()
	if err != nil {
		return err
	}
	c.logger.Debug("process cache refreshed", zap.Int("processes", len(processes)))
	return nil
}

// Invalidate drops every cached entry
func (c *ProcessCache) Invalidate() {
	c.byID.Purge()
	c.byName.Purge()
	c.all.Purge()
}

func (c *ProcessCache) store(process *entities.Process) {
	c.byID.Add(process.ID, process)
	c.byName.Add(process.FullName(), process)
}

type partsForProcessKey struct {
	processID int
	role      entities.PartRole
}

// PartCache caches a PartDirectory. Failed lookups are not cached.
type PartCache struct {
	source     repositories.PartDirectory
	logger     *zap.Logger
	byID       *expirable.LRU[int, *entities.Part]
	byNumber   *expirable.LRU[string, *entities.Part]
	forProcess *expirable.LRU[partsForProcessKey, []*entities.Part]
}

// NewPartCache creates a PartCache; a non-positive ttl uses DefaultTTL
func NewPartCache(source repositories.PartDirectory, ttl time.Duration, logger *zap.Logger) *PartCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartCache{
		source:     source,
		logger:     logger,
		byID:       expirable.NewLRU[int, *entities.Part](defaultSize, nil, ttl),
		byNumber:   expirable.NewLRU[string, *entities.Part](defaultSize, nil, ttl),
		forProcess: expirable.NewLRU[partsForProcessKey, []*entities.Part](defaultSize, nil, ttl),
	}
}

// Verify interface compliance
var _ repositories.PartDirectory = (*PartCache)(nil)

func (c *PartCache) Get(partID int) (*entities.Part, error) {
	if part, ok := c.byID.Get(partID); ok {
		return part, nil
	}
	part, err := c.source.Get(partID)
	if err != nil {
		return nil, err
	}
	c.store(part)
	return part, nil
}

func (c *PartCache) GetByNumber(number string) (*entities.Part, error) {
	if part, ok := c.byNumber.Get(number); ok {
		return part, nil
	}
	part, err := c.source.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	c.store(part)
	return part, nil
}

func (c *PartCache) GetPartsForProcess(processID int, role entities.PartRole) ([]*entities.Part, error) {
	key := partsForProcessKey{processID: processID, role: role}
	if parts, ok := c.forProcess.Get(key); ok {
		return parts, nil
	}
	parts, err := c.source.GetPartsForProcess(processID, role)
	if err != nil {
		return nil, err
	}
	c.forProcess.Add(key, parts)
	for _, part := range parts {
		c.store(part)
	}
	return parts, nil
}

// Invalidate drops every cached entry; the next lookups go to the source
func (c *PartCache) Invalidate() {
	c.byID.Purge()
	c.byNumber.Purge()
	c.forProcess.Purge()
	c.logger.Debug("part cache invalidated")
}

func (c *PartCache) store(part *entities.Part) {
	c.byID.Add(part.ID, part)
	c.byNumber.Add(part.Number, part)
}
