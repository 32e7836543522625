package stock

import "sort"

// Merge folds per-source records into one aggregated row per product.
// Records for the same product and source are summed. Every known source
// appears in BySource for every product, defaulting to zero, so callers
// never have to distinguish "absent" from "empty". The result is sorted
// by product id and independent of input order.
func Merge(records []Record) []Aggregated {
	byProduct := make(map[int64]*Aggregated)
	for _, rec := range records {
		agg, ok := byProduct[rec.ProductID]
		if !ok {
			agg = &Aggregated{ProductID: rec.ProductID, BySource: zeroSources()}
			byProduct[rec.ProductID] = agg
		}
		agg.BySource[rec.Source] += rec.Quantity
		agg.Total += rec.Quantity
		agg.Reserved += rec.Reserved
	}
	out := make([]Aggregated, 0, len(byProduct))
	for _, agg := range byProduct {
		agg.Available = agg.Total - agg.Reserved
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// MergeOne aggregates records for a single product.
func MergeOne(productID int64, records []Record) Aggregated {
	agg := Aggregated{ProductID: productID, BySource: zeroSources()}
	for _, rec := range records {
		if rec.ProductID != productID {
			continue
		}
		agg.BySource[rec.Source] += rec.Quantity
		agg.Total += rec.Quantity
		agg.Reserved += rec.Reserved
	}
	agg.Available = agg.Total - agg.Reserved
	return agg
}

func zeroSources() map[Source]int64 {
	m := make(map[Source]int64, len(Sources))
	for _, s := range Sources {
		m[s] = 0
	}
	return m
}
