package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

func TestSequenceGenerator_StartsAtZero(t *testing.T) {
	gen := NewSequenceGenerator("t")
	assert.Equal(t, int64(0), gen.Current())
}

func TestSequenceGenerator_Generate(t *testing.T) {
	gen := NewSequenceGenerator("t")
	assert.Equal(t, "t-1", gen.Generate())
	assert.Equal(t, "t-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Current())
}

func TestSequenceGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "translation-1", NewSequenceGenerator("").Generate())
}

func TestSequenceGenerator_Reset(t *testing.T) {
	gen := NewSequenceGenerator("t")
	gen.Generate()
	gen.Generate()
	gen.Reset()
	assert.Equal(t, int64(0), gen.Current())
	assert.Equal(t, "t-1", gen.Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("t")
	const numGoroutines = 50
	const callsPerGoroutine = 50

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), gen.Current())
}

func TestTable(t *testing.T) {
	def := Flights()
	assert.Equal(t, "flights", def.Name)
	assert.Equal(t, "id", def.PrimaryKey)
	f, ok := def.Field("dep_time")
	require.True(t, ok)
	assert.Equal(t, model.TypeTimestamp, f.Type)
}

func TestZones(t *testing.T) {
	schemas := SchemaZone(Flights(), Carriers())
	assert.Equal(t, zone.StatusPresent, schemas.Lookup("carriers").Status)
	assert.NotEqual(t, zone.StatusPresent, schemas.Lookup("nope").Status)

	imports := ImportZone(map[string]*model.ModelDef{"file:///a": model.NewModelDef("a")})
	assert.Equal(t, "a", imports.Lookup("file:///a").Value.Name)
}
