package lemonkv_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemon-mint/lemonkv"
	"github.com/lemon-mint/lemonkv/types"
)

func TestEngine_Scenario(t *testing.T) {
	e := lemonkv.NewEngine()

	require.NoError(t, e.Write(5, 10))
	require.NoError(t, e.Write(5, 20))
	got, ok := e.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, types.Entry{Key: 5, Data: 20}, got)

	require.NoError(t, e.Write(5, 0))
	got, ok = e.Lookup(5)
	assert.False(t, ok)
	assert.Equal(t, types.NotFound(), got)

	// Nine distinct keys that all hash to bucket 7.
	var want []types.Entry
	for i := int32(0); i < 9; i++ {
		ent := types.Entry{Key: 7 + i*types.BucketCount, Data: i + 1}
		require.NoError(t, e.Write(ent.Key, ent.Data))
		want = append(want, ent)
	}
	require.Equal(t, 9, e.BucketLen(7))

	rec, filled, err := e.Dump(7)
	require.NoError(t, err)
	assert.Equal(t, 8, filled)
	assert.Equal(t, int32(7), rec.N)
	if diff := cmp.Diff(want[:8], rec.Entries()); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, e.BucketLen(7))
	for _, ent := range want {
		_, ok := e.Lookup(ent.Key)
		assert.False(t, ok, "key %d survived dump", ent.Key)
	}
}

func TestEngine_ReplaceKeepsPosition(t *testing.T) {
	e := lemonkv.NewEngine()
	require.NoError(t, e.Write(1, 1))
	require.NoError(t, e.Write(257, 2))
	require.NoError(t, e.Write(1, 3))

	assert.Equal(t, 2, e.Len())
	rec, filled, err := e.Dump(1)
	require.NoError(t, err)
	require.Equal(t, 2, filled)
	assert.Equal(t, []types.Entry{{Key: 1, Data: 3}, {Key: 257, Data: 2}}, rec.Entries())
}

func TestEngine_DeleteIdempotent(t *testing.T) {
	e := lemonkv.NewEngine()
	require.NoError(t, e.Write(9, 0))
	assert.Equal(t, 0, e.Len())

	require.NoError(t, e.Write(9, 4))
	require.NoError(t, e.Write(265, 5))
	require.NoError(t, e.Write(9, 0))
	require.NoError(t, e.Write(9, 0))

	assert.Equal(t, 1, e.Len())
	got, ok := e.Lookup(265)
	require.True(t, ok)
	assert.Equal(t, int32(5), got.Data)
}

func TestEngine_DumpSmallBucketPadsSlots(t *testing.T) {
	e := lemonkv.NewEngine()
	require.NoError(t, e.Write(300, 1))

	rec, filled, err := e.Dump(300 % types.BucketCount)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)
	assert.Equal(t, types.Entry{Key: 300, Data: 1}, rec.Slots[0])
	for i := 1; i < types.DumpSlots; i++ {
		assert.Equal(t, types.EmptySlot(), rec.Slots[i], "slot %d", i)
	}

	rec, filled, err = e.Dump(0)
	require.NoError(t, err)
	assert.Equal(t, 0, filled)
	assert.Equal(t, 0, rec.Count())
}

func TestEngine_DumpRange(t *testing.T) {
	e := lemonkv.NewEngine()
	for k := int32(-300); k < 300; k++ {
		if k != 0 {
			require.NoError(t, e.Write(k, k))
		}
	}
	before := e.Len()

	for _, n := range []int32{-1, 256, 511, -2147483648, 2147483647} {
		rec, filled, err := e.Dump(n)
		assert.ErrorIs(t, err, lemonkv.ErrBucketRange, "n=%d", n)
		assert.ErrorIs(t, err, lemonkv.ErrInvalidArgument)
		assert.Equal(t, 0, filled)
		assert.Equal(t, n, rec.N)
	}
	assert.Equal(t, before, e.Len())
}

func TestEngine_NegativeKeys(t *testing.T) {
	e := lemonkv.NewEngine()
	require.NoError(t, e.Write(-1, -1))

	got, ok := e.Lookup(-1)
	require.True(t, ok)
	assert.Equal(t, types.Entry{Key: -1, Data: -1}, got)
	assert.Equal(t, 1, e.BucketLen(255))
}

func TestEngine_Capacity(t *testing.T) {
	e := lemonkv.NewEngine(lemonkv.WithCapacity(2))
	require.NoError(t, e.Write(1, 1))
	require.NoError(t, e.Write(2, 2))

	err := e.Write(3, 3)
	assert.ErrorIs(t, err, lemonkv.ErrAllocation)
	assert.Equal(t, 0, e.BucketLen(3))

	require.NoError(t, e.Write(2, 20), "replace must not allocate")
	require.NoError(t, e.Write(1, 0))
	require.NoError(t, e.Write(3, 3))
	assert.Equal(t, 2, e.Len())
}

func TestEngine_Teardown(t *testing.T) {
	e := lemonkv.NewEngine()
	for k := int32(1); k <= 100; k++ {
		require.NoError(t, e.Write(k, k))
	}
	assert.Equal(t, 100, e.Teardown())
	assert.Equal(t, 0, e.Len())
	_, ok := e.Lookup(50)
	assert.False(t, ok)
}

// TestEngine_Model checks random operation sequences against a map.
func TestEngine_Model(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e := lemonkv.NewEngine()
	model := map[int32]int32{}

	for i := 0; i < 20000; i++ {
		key := int32(rng.Intn(2000)) - 1000
		switch rng.Intn(10) {
		case 0:
			n := int32(rng.Intn(types.BucketCount))
			rec, filled, err := e.Dump(n)
			require.NoError(t, err)
			drained := 0
			for k := range model {
				if uint32(k)%types.BucketCount == uint32(n) {
					delete(model, k)
					drained++
				}
			}
			require.Equal(t, min(drained, types.DumpSlots), filled)
			for _, ent := range rec.Slots[:filled] {
				require.Equal(t, n, int32(uint32(ent.Key)%types.BucketCount))
			}
		case 1, 2:
			require.NoError(t, e.Write(key, 0))
			delete(model, key)
		case 3, 4, 5:
			data := int32(rng.Intn(1000)) + 1
			require.NoError(t, e.Write(key, data))
			model[key] = data
		default:
			got, ok := e.Lookup(key)
			want, wantOK := model[key]
			require.Equal(t, wantOK, ok, "key %d", key)
			if ok {
				require.Equal(t, want, got.Data, "key %d", key)
			}
		}
		require.Equal(t, len(model), e.Len())
	}
}
