package purchasing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineTotal(t *testing.T) {
	line := Line{OrderedQty: 10, UnitCost: 4.5, DiscountPct: 10, TaxPct: 19}
	// 10 * 4.5 * 0.9 * 1.19 = 48.195 -> 48.2
	require.InDelta(t, 48.2, line.Total(), 0.001)
}

func TestComputeTotals(t *testing.T) {
	lines := []Line{
		{OrderedQty: 10, UnitCost: 2, TaxPct: 19},
		{OrderedQty: 5, UnitCost: 8, DiscountPct: 25},
	}
	totals := ComputeTotals(lines, 7.5, 2.5)
	require.InDelta(t, 50.0, totals.Subtotal, 0.001)
	require.InDelta(t, 3.8, totals.Tax, 0.001)
	require.InDelta(t, 58.8, totals.GrandTotal, 0.001)
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		current Status
		lines   []Line
		want    Status
	}{
		{"no receipts keeps current", StatusSent, []Line{{OrderedQty: 5}}, StatusSent},
		{"some received", StatusConfirmed, []Line{{OrderedQty: 5, ReceivedQty: 2}, {OrderedQty: 3}}, StatusPartiallyReceived},
		{"all received", StatusPartiallyReceived, []Line{{OrderedQty: 5, ReceivedQty: 5}, {OrderedQty: 3, ReceivedQty: 3}}, StatusReceived},
		{"no lines keeps current", StatusDraft, nil, StatusDraft},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStatus(tc.current, tc.lines))
		})
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusSent},
		{StatusDraft, StatusCancelled},
		{StatusSent, StatusConfirmed},
		{StatusSent, StatusCancelled},
		{StatusConfirmed, StatusCancelled},
		{StatusPartiallyReceived, StatusCancelled},
	}
	for _, tc := range allowed {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusDraft, StatusConfirmed},
		{StatusSent, StatusDraft},
		{StatusConfirmed, StatusSent},
		{StatusReceived, StatusCancelled},
		{StatusCancelled, StatusSent},
		// Receipt-driven statuses are never operator-assignable.
		{StatusSent, StatusPartiallyReceived},
		{StatusConfirmed, StatusReceived},
	}
	for _, tc := range denied {
		require.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestStatusReceivable(t *testing.T) {
	require.True(t, StatusSent.Receivable())
	require.True(t, StatusConfirmed.Receivable())
	require.True(t, StatusPartiallyReceived.Receivable())
	require.False(t, StatusDraft.Receivable())
	require.False(t, StatusReceived.Receivable())
	require.False(t, StatusCancelled.Receivable())
}
