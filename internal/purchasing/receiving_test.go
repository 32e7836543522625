package purchasing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// sentOrder creates an order with the given lines and moves it to sent so
// it can receive goods.
func sentOrder(t *testing.T, svc *Service, lines ...LineInput) PurchaseOrder {
	t.Helper()
	po := createDraft(t, svc, 7, lines...)
	po, err := svc.Transition(context.Background(), po.ID, StatusSent, 1, "")
	require.NoError(t, err)
	full, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	return full
}

func TestReceivePartial(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := sentOrder(t, svc,
		LineInput{ProductID: 1, Quantity: 10, UnitCost: 2},
		LineInput{ProductID: 2, Quantity: 4, UnitCost: 3},
	)

	receipt, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		ActorID: 5,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 6}},
	})
	require.NoError(t, err)
	require.NotZero(t, receipt.ID)
	require.Len(t, receipt.Lines, 1)

	updated, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyReceived, updated.Status)
	require.EqualValues(t, 6, updated.Lines[0].ReceivedQty)
	require.EqualValues(t, 4, updated.Lines[0].PendingQty())
	require.EqualValues(t, 0, updated.Lines[1].ReceivedQty)

	// Every short line gets an unreceived item.
	items, _, err := svc.ListUnreceived(context.Background(), 10, 0, UnreceivedFilters{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	byLine := make(map[int64]UnreceivedItem)
	for _, item := range items {
		byLine[item.LineID] = item
	}
	require.EqualValues(t, 4, byLine[po.Lines[0].ID].UnreceivedQty)
	require.Equal(t, UnreceivedPending, byLine[po.Lines[0].ID].Status)
	require.EqualValues(t, 4, byLine[po.Lines[1].ID].UnreceivedQty)

	history, err := svc.History(context.Background(), po.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	require.Equal(t, "receipt", last.Action)
	require.Equal(t, StatusSent, last.FromStatus)
	require.Equal(t, StatusPartiallyReceived, last.ToStatus)
	require.EqualValues(t, 6, last.Meta["quantity"])
}

func TestReceiveMixedFullAndShortLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := sentOrder(t, svc,
		LineInput{ProductID: 1, Quantity: 10, UnitCost: 2},
		LineInput{ProductID: 2, Quantity: 5, UnitCost: 3},
	)

	// One receipt delivers the first line in full and the second short.
	_, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines: []ReceiptLineInput{
			{LineID: po.Lines[0].ID, Quantity: 10},
			{LineID: po.Lines[1].ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyReceived, updated.Status)
	require.EqualValues(t, 0, updated.Lines[0].PendingQty())
	require.EqualValues(t, 2, updated.Lines[1].PendingQty())

	// Only the short line gets an unreceived item; the fully received
	// sibling gets none.
	items, _, err := svc.ListUnreceived(context.Background(), 10, 0, UnreceivedFilters{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, po.Lines[1].ID, items[0].LineID)
	require.EqualValues(t, 2, items[0].UnreceivedQty)
	require.Equal(t, UnreceivedPending, items[0].Status)

	for _, item := range repo.unreceived {
		require.NotEqual(t, po.Lines[0].ID, item.LineID)
	}
}

func TestReceiveCompletion(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := sentOrder(t, svc, LineInput{ProductID: 1, Quantity: 10, UnitCost: 2})

	_, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 6}},
	})
	require.NoError(t, err)

	updated, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, updated.Status)
	require.EqualValues(t, 0, updated.Lines[0].PendingQty())

	receipts, err := svc.Receipts(context.Background(), po.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	// Full receipt zeroes the tracked quantity but the item stays open
	// for an operator to resolve.
	items, _, err := svc.ListUnreceived(context.Background(), 10, 0, UnreceivedFilters{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 0, items[0].UnreceivedQty)
	require.False(t, items[0].Status.Closed())
}

func TestReceiveOverReceiptRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := sentOrder(t, svc, LineInput{ProductID: 1, Quantity: 10, UnitCost: 2})

	_, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 8}},
	})
	require.NoError(t, err)

	// 8 already received; 5 more would exceed the ordered 10.
	_, err = svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 5}},
	})
	var oerr *shared.OverReceiptError
	require.ErrorAs(t, err, &oerr)
	require.EqualValues(t, 10, oerr.Ordered)
	require.EqualValues(t, 8, oerr.Received)
	require.EqualValues(t, 5, oerr.Requested)

	// The rejected receipt changed nothing.
	updated, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.EqualValues(t, 8, updated.Lines[0].ReceivedQty)
	receipts, err := svc.Receipts(context.Background(), po.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
}

func TestReceiveWholeReceiptAtomic(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := sentOrder(t, svc,
		LineInput{ProductID: 1, Quantity: 10, UnitCost: 2},
		LineInput{ProductID: 2, Quantity: 4, UnitCost: 3},
	)

	// Second line over-receives, so the valid first line must not apply.
	_, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines: []ReceiptLineInput{
			{LineID: po.Lines[0].ID, Quantity: 5},
			{LineID: po.Lines[1].ID, Quantity: 9},
		},
	})
	var oerr *shared.OverReceiptError
	require.ErrorAs(t, err, &oerr)

	updated, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, updated.Lines[0].ReceivedQty)
	require.Equal(t, StatusSent, updated.Status)
}

func TestReceiveRejectsNonReceivable(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := createDraft(t, svc, 7, LineInput{ProductID: 1, Quantity: 10, UnitCost: 2})

	_, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 1}},
	})
	var serr *shared.InvalidStateError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, string(StatusDraft), serr.Status)
}

func TestReceiveValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Receive(context.Background(), ReceiveInput{OrderID: 1})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Receive(context.Background(), ReceiveInput{
		OrderID: 1,
		Lines:   []ReceiptLineInput{{LineID: 3, Quantity: -1}},
	})
	require.ErrorAs(t, err, &verr)

	_, err = svc.Receive(context.Background(), ReceiveInput{
		OrderID: 1,
		Lines: []ReceiptLineInput{
			{LineID: 3, Quantity: 1},
			{LineID: 3, Quantity: 2},
		},
	})
	require.ErrorAs(t, err, &verr)
}

func TestReceiveUnknownLine(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := sentOrder(t, svc, LineInput{ProductID: 1, Quantity: 10, UnitCost: 2})

	_, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: 9999, Quantity: 1}},
	})
	var nferr *shared.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestReceiveUpdatesExistingUnreceivedItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	po := sentOrder(t, svc, LineInput{ProductID: 1, Quantity: 10, UnitCost: 2})

	_, err := svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), ReceiveInput{
		OrderID: po.ID,
		Lines:   []ReceiptLineInput{{LineID: po.Lines[0].ID, Quantity: 4}},
	})
	require.NoError(t, err)

	items, _, err := svc.ListUnreceived(context.Background(), 10, 0, UnreceivedFilters{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 7, items[0].ReceivedQty)
	require.EqualValues(t, 3, items[0].UnreceivedQty)
	require.Equal(t, UnreceivedPartial, items[0].Status)
}
