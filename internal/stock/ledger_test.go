package stock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	records := []Record{
		{ProductID: 2, Source: SourceLocal, Quantity: 5},
		{ProductID: 1, Source: SourceMain, Quantity: 10, Reserved: 2},
		{ProductID: 1, Source: SourceFBE, Quantity: 3},
	}

	merged := Merge(records)
	require.Len(t, merged, 2)

	// Sorted by product id regardless of input order.
	require.EqualValues(t, 1, merged[0].ProductID)
	require.EqualValues(t, 2, merged[1].ProductID)

	require.EqualValues(t, 13, merged[0].Total)
	require.EqualValues(t, 2, merged[0].Reserved)
	require.EqualValues(t, 11, merged[0].Available)
	require.EqualValues(t, 10, merged[0].BySource[SourceMain])
	require.EqualValues(t, 3, merged[0].BySource[SourceFBE])
	// Absent sources report zero rather than being missing.
	require.Contains(t, merged[0].BySource, SourceLocal)
	require.EqualValues(t, 0, merged[0].BySource[SourceLocal])

	require.EqualValues(t, 5, merged[1].Total)
	require.EqualValues(t, 0, merged[1].BySource[SourceMain])
}

func TestMergeSumsDuplicateSourceRows(t *testing.T) {
	merged := Merge([]Record{
		{ProductID: 1, Source: SourceMain, Quantity: 4},
		{ProductID: 1, Source: SourceMain, Quantity: 6},
	})
	require.Len(t, merged, 1)
	require.EqualValues(t, 10, merged[0].BySource[SourceMain])
}

func TestMergeOne(t *testing.T) {
	records := []Record{
		{ProductID: 1, Source: SourceMain, Quantity: 10},
		{ProductID: 2, Source: SourceMain, Quantity: 99},
	}
	agg := MergeOne(1, records)
	require.EqualValues(t, 10, agg.Total)
	require.EqualValues(t, 10, agg.Available)

	empty := MergeOne(3, records)
	require.EqualValues(t, 0, empty.Total)
	require.Len(t, empty.BySource, len(Sources))
}

func TestParseSource(t *testing.T) {
	for _, known := range Sources {
		src, err := ParseSource(string(known))
		require.NoError(t, err)
		require.Equal(t, known, src)
	}

	_, err := ParseSource("WAREHOUSE9")
	require.Error(t, err)
	_, err = ParseSource("main") // case sensitive
	require.Error(t, err)
}
