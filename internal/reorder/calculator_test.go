package reorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	th := Thresholds{Critical: 5, LowStock: 20, Target: 50}

	require.Equal(t, LevelOutOfStock, Classify(0, th))
	require.Equal(t, LevelOutOfStock, Classify(-3, th))
	require.Equal(t, LevelCritical, Classify(1, th))
	require.Equal(t, LevelCritical, Classify(5, th))
	require.Equal(t, LevelLowStock, Classify(6, th))
	require.Equal(t, LevelLowStock, Classify(20, th))
	require.Equal(t, LevelInStock, Classify(21, th))
}

func TestClassifyOverlappingThresholds(t *testing.T) {
	// Equal thresholds resolve to the severest bucket.
	th := Thresholds{Critical: 10, LowStock: 10}
	require.Equal(t, LevelCritical, Classify(10, th))
	require.Equal(t, LevelInStock, Classify(11, th))
}

func TestSuggestQuantity(t *testing.T) {
	// 3 on hand, target 50, 20 already on order: suggest 27.
	require.EqualValues(t, 27, SuggestQuantity(50, 3, 20))

	// Already at or above target.
	require.EqualValues(t, 0, SuggestQuantity(50, 50, 0))
	require.EqualValues(t, 0, SuggestQuantity(50, 30, 40))

	// Negative on-hand counts as zero, never inflating the order.
	require.EqualValues(t, 30, SuggestQuantity(50, -5, 20))

	// No pending orders.
	require.EqualValues(t, 47, SuggestQuantity(50, 3, 0))
}

func TestSuggestQuantityMonotonicInPending(t *testing.T) {
	prev := SuggestQuantity(50, 3, 0)
	for pending := int64(1); pending <= 60; pending++ {
		got := SuggestQuantity(50, 3, pending)
		require.LessOrEqual(t, got, prev)
		require.GreaterOrEqual(t, got, int64(0))
		prev = got
	}
}

func TestRankSuppliers(t *testing.T) {
	options := []SupplierOption{
		{SupplierID: 3, UnitCost: 2.0, LeadTimeDays: 10},
		{SupplierID: 1, UnitCost: 2.0, LeadTimeDays: 5},
		{SupplierID: 2, UnitCost: 1.5, LeadTimeDays: 30},
	}
	ranked := RankSuppliers(options)

	// Cheapest first, then shorter lead time.
	require.EqualValues(t, 2, ranked[0].SupplierID)
	require.EqualValues(t, 1, ranked[1].SupplierID)
	require.EqualValues(t, 3, ranked[2].SupplierID)

	// Input untouched.
	require.EqualValues(t, 3, options[0].SupplierID)
}

func TestRankSuppliersDeterministicTieBreak(t *testing.T) {
	ranked := RankSuppliers([]SupplierOption{
		{SupplierID: 9, UnitCost: 1, LeadTimeDays: 7},
		{SupplierID: 4, UnitCost: 1, LeadTimeDays: 7},
	})
	require.EqualValues(t, 4, ranked[0].SupplierID)
	require.EqualValues(t, 9, ranked[1].SupplierID)
}

func TestBuildSuggestion(t *testing.T) {
	th := Thresholds{Critical: 5, LowStock: 20, Target: 50}
	sug := BuildSuggestion(42, "SKU-42", "Widget", 3, 20, th, []SupplierOption{
		{SupplierID: 1, UnitCost: 2.0},
		{SupplierID: 2, UnitCost: 1.5},
	})

	require.Equal(t, LevelCritical, sug.Level)
	require.EqualValues(t, 27, sug.SuggestedQty)
	require.NotNil(t, sug.PreferredSupplier)
	require.EqualValues(t, 2, sug.PreferredSupplier.SupplierID)
}

func TestBuildSuggestionNoSuppliers(t *testing.T) {
	sug := BuildSuggestion(42, "SKU-42", "Widget", 100, 0, Thresholds{Target: 50}, nil)
	require.Equal(t, LevelInStock, sug.Level)
	require.EqualValues(t, 0, sug.SuggestedQty)
	require.Nil(t, sug.PreferredSupplier)
	require.Empty(t, sug.Suppliers)
}
