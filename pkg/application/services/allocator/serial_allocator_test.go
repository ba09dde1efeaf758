package allocator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
	"github.com/vsinha/lotcom/pkg/infrastructure/events"
	"github.com/vsinha/lotcom/pkg/infrastructure/ledger"
	"github.com/vsinha/lotcom/pkg/infrastructure/metrics"
	testdata "github.com/vsinha/lotcom/pkg/infrastructure/testing"
)

type fixture struct {
	dir       string
	allocator *SerialAllocator
	jbk       *ledger.FileStore
	lot       *ledger.FileStore
}

func newFixture(t *testing.T, dir string, opts ...Option) fixture {
	t.Helper()
	_, parts := testdata.BuildKnuckleLineTestData()

	jbk, err := ledger.NewFileStore(entities.SerializationJBK, filepath.Join(dir, ledger.DefaultJBKFile), nil, nil)
	require.NoError(t, err)
	lot, err := ledger.NewFileStore(entities.SerializationLot, filepath.Join(dir, ledger.DefaultLotFile), nil, nil)
	require.NoError(t, err)

	a, err := New([]repositories.LedgerStore{jbk, lot}, parts, nil, opts...)
	require.NoError(t, err)
	return fixture{dir: dir, allocator: a, jbk: jbk, lot: lot}
}

func TestSerialAllocator_Monotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, t.TempDir())
	require.NoError(t, f.allocator.Seed(ctx, testdata.KnuckleLH, entities.SerializationJBK, 0))

	for want := 1; want <= 10; want++ {
		serial, err := f.allocator.Consume(ctx, testdata.KnuckleLH, entities.SerializationJBK)
		require.NoError(t, err)
		assert.Equal(t, want, serial.Value)
		assert.Equal(t, entities.SerializationJBK, serial.Mode)
		assert.Equal(t, 12, serial.PartID)
	}

	serial, err := f.allocator.Consume(ctx, testdata.KnuckleLH, entities.SerializationJBK)
	require.NoError(t, err)
	assert.Equal(t, "011", serial.FormattedValue())
}

func TestSerialAllocator_DurableAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := newFixture(t, dir)
	require.NoError(t, first.allocator.Seed(ctx, testdata.Bracket, entities.SerializationLot, 0))
	serial, err := first.allocator.Consume(ctx, testdata.Bracket, entities.SerializationLot)
	require.NoError(t, err)
	require.Equal(t, 1, serial.Value)

	reopened := newFixture(t, dir)
	serial, err = reopened.allocator.Consume(ctx, testdata.Bracket, entities.SerializationLot)
	require.NoError(t, err)
	assert.Equal(t, 2, serial.Value)
	assert.Equal(t, "000000002", serial.FormattedValue())
}

func TestSerialAllocator_Wrap(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		mode  entities.SerializationMode
		part  string
		start int
	}{
		{"jbk_at_limit", entities.SerializationJBK, testdata.KnuckleLH, entities.JBKLimit},
		{"lot_at_limit", entities.SerializationLot, testdata.Bracket, entities.LotLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := events.NewInMemoryEventStore(nil)
			f := newFixture(t, t.TempDir(), WithEventStore(store))
			require.NoError(t, f.allocator.Seed(ctx, tt.part, tt.mode, tt.start))

			before := testutil.ToFloat64(metrics.SerialWrapsTotal.WithLabelValues(tt.mode.String()))

			serial, err := f.allocator.Consume(ctx, tt.part, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, 1, serial.Value)

			serial, err = f.allocator.Consume(ctx, tt.part, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, 2, serial.Value)

			after := testutil.ToFloat64(metrics.SerialWrapsTotal.WithLabelValues(tt.mode.String()))
			assert.Equal(t, before+1, after)

			recorded, err := store.ReadEvents(events.SerialStream(tt.mode.String(), tt.part), 1)
			require.NoError(t, err)
			types := make([]string, 0, len(recorded))
			for _, e := range recorded {
				types = append(types, e.Type())
			}
			assert.Equal(t, []string{
				events.LedgerSeededEvent,
				events.SerialWrappedEvent,
				events.SerialConsumedEvent,
				events.SerialConsumedEvent,
			}, types)
		})
	}
}

func TestSerialAllocator_ConcurrentConsumersGetDistinctValues(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := newFixture(t, dir)
	// a second allocator over the same files stands in for another station process
	other := newFixture(t, dir)
	require.NoError(t, f.allocator.Seed(ctx, testdata.KnuckleRH, entities.SerializationJBK, 0))

	const k = 30
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values []int
	)
	for i := 0; i < k; i++ {
		a := f.allocator
		if i%3 == 0 {
			a = other.allocator
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serial, err := a.Consume(ctx, testdata.KnuckleRH, entities.SerializationJBK)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			values = append(values, serial.Value)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, values, k)
	sort.Ints(values)
	for i, v := range values {
		assert.Equal(t, i+1, v)
	}
}

func TestSerialAllocator_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, t.TempDir())

	t.Run("unknown_part", func(t *testing.T) {
		_, err := f.allocator.Consume(ctx, "00000-XXX-0000", entities.SerializationJBK)
		assert.True(t, entities.IsNotFound(err))
	})

	t.Run("no_ledger_entry", func(t *testing.T) {
		require.NoError(t, f.allocator.Seed(ctx, testdata.KnuckleLH, entities.SerializationLot, 0))
		_, err := f.allocator.Consume(ctx, testdata.KnuckleRH, entities.SerializationLot)
		assert.True(t, entities.IsNotFound(err))
	})

	t.Run("missing_ledger_file", func(t *testing.T) {
		_, err := f.allocator.Consume(ctx, testdata.KnuckleLH, entities.SerializationJBK)
		var serr *entities.SerializationError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, testdata.KnuckleLH, serr.Part)
		assert.Equal(t, f.jbk.Path(), serr.Path)
	})

	t.Run("mode_none", func(t *testing.T) {
		_, err := f.allocator.Consume(ctx, testdata.KnuckleLH, entities.SerializationNone)
		assert.True(t, entities.IsValidationError(err))
	})

	t.Run("seed_unknown_part", func(t *testing.T) {
		err := f.allocator.Seed(ctx, "00000-XXX-0000", entities.SerializationJBK, 0)
		assert.True(t, entities.IsNotFound(err))
	})
}

func TestSerialAllocator_ExpiredContextCommitsNothing(t *testing.T) {
	f := newFixture(t, t.TempDir(), WithTimeout(time.Second))
	require.NoError(t, f.allocator.Seed(context.Background(), testdata.KnuckleLH, entities.SerializationJBK, 5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.allocator.Consume(ctx, testdata.KnuckleLH, entities.SerializationJBK)
	assert.ErrorIs(t, err, context.Canceled)

	counters, err := f.allocator.Counters(context.Background(), entities.SerializationJBK)
	require.NoError(t, err)
	assert.Equal(t, 5, counters[testdata.KnuckleLH])
}

func TestSerialAllocator_RejectsNegativeCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, t.TempDir())
	corrupt := `{"` + testdata.KnuckleLH + `": "-1"}`
	require.NoError(t, os.WriteFile(f.jbk.Path(), []byte(corrupt), 0o644))

	_, err := f.allocator.Consume(ctx, testdata.KnuckleLH, entities.SerializationJBK)
	var serr *entities.SerializationError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "parse", serr.Op)
	assert.Equal(t, testdata.KnuckleLH, serr.Part)
	assert.Equal(t, entities.SerializationJBK, serr.Mode)

	data, err := os.ReadFile(f.jbk.Path())
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(data))
}

func TestSerialAllocator_Ping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, t.TempDir())

	// neither ledger file exists yet
	assert.False(t, f.allocator.Ping(ctx))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.LedgerUp.WithLabelValues("JBK")))

	require.NoError(t, f.allocator.Seed(ctx, testdata.KnuckleLH, entities.SerializationJBK, 0))
	require.NoError(t, f.allocator.Seed(ctx, testdata.Bracket, entities.SerializationLot, 0))
	assert.True(t, f.allocator.Ping(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LedgerUp.WithLabelValues("JBK")))

	counters, err := f.allocator.Counters(ctx, entities.SerializationJBK)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{testdata.KnuckleLH: 0}, counters)
}

func TestNew_Validation(t *testing.T) {
	_, parts := testdata.BuildKnuckleLineTestData()
	jbk, err := ledger.NewFileStore(entities.SerializationJBK, filepath.Join(t.TempDir(), "a.json"), nil, nil)
	require.NoError(t, err)
	dup, err := ledger.NewFileStore(entities.SerializationJBK, filepath.Join(t.TempDir(), "b.json"), nil, nil)
	require.NoError(t, err)

	_, err = New(nil, parts, nil)
	assert.Error(t, err)
	_, err = New([]repositories.LedgerStore{jbk}, nil, nil)
	assert.Error(t, err)
	_, err = New([]repositories.LedgerStore{jbk, dup}, parts, nil)
	assert.Error(t, err)

	a, err := New([]repositories.LedgerStore{jbk}, parts, nil)
	require.NoError(t, err)
	assert.Equal(t, []entities.SerializationMode{entities.SerializationJBK}, a.Modes())

	_, err = a.Consume(context.Background(), testdata.Bracket, entities.SerializationLot)
	assert.Error(t, err)
}
