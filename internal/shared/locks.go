package shared

// Advisory lock classes keep keys from different entities out of each
// other's way. Postgres advisory locks take a single int64 key.
const lockClassPurchaseOrder int64 = 0x504F << 32

// PurchaseOrderLockID derives the advisory lock key that serializes
// receipts, transitions and edits against a single purchase order.
func PurchaseOrderLockID(orderID int64) int64 {
	return lockClassPurchaseOrder | (orderID & 0xFFFFFFFF)
}
