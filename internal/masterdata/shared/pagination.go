package shared

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// Entity specific filters
	IsActive   *bool
	SupplierID *int64
}

// Offset converts page/limit into a row offset.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
