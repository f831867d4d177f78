// Package matching holds the deterministic reconciliation core: the
// fingerprint index, the mapping-assisted preprocessor, the new-mapping
// discoverer and the merge of classifier output with deterministic rows.
// Everything here is synchronous and works on in-memory slices.
package matching

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// FingerprintKey returns the normalized (quantity, unit price) key of an item:
// both values rounded to 4 decimals and joined with "-". Rounding works on the
// exact binary value, so 10.00005 keys as 10.0000 while 10.00006 keys as 10.0001.
// Exact ties round away from zero: 0.03125 keys as 0.0313.
func FingerprintKey(item entity.LineItem) string {
	return fixed4(item.Quantity) + "-" + fixed4(item.UnitPrice)
}

func fixed4(v float64) string {
	return exactDecimal(v).StringFixed(4)
}

// exactDecimal returns the exact decimal expansion of v's binary value.
func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	scale := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, scale), int32(exp))
}

// FingerprintIndex maps a fingerprint key to the positions of the items
// sharing it, in their original order.
type FingerprintIndex struct {
	items   []entity.LineItem
	buckets map[string][]int
}

// NewFingerprintIndex indexes items. An empty index is valid.
func NewFingerprintIndex(items []entity.LineItem) *FingerprintIndex {
	idx := &FingerprintIndex{
		items:   items,
		buckets: make(map[string][]int, len(items)),
	}
	for i, it := range items {
		key := FingerprintKey(it)
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

// Candidates returns the indexed items sharing key, in original order.
func (f *FingerprintIndex) Candidates(key string) []entity.LineItem {
	positions := f.buckets[key]
	out := make([]entity.LineItem, 0, len(positions))
	for _, p := range positions {
		out = append(out, f.items[p])
	}
	return out
}

// Len returns the number of distinct keys
func (f *FingerprintIndex) Len() int {
	return len(f.buckets)
}

// Take returns the first candidate at key whose position is still available
// and marks it used in avail. ok is false when none is left.
func (f *FingerprintIndex) Take(key string, avail Availability) (pos int, item entity.LineItem, ok bool) {
	for _, p := range f.buckets[key] {
		if avail.Consume(p) {
			return p, f.items[p], true
		}
	}
	return -1, entity.LineItem{}, false
}

// Availability tracks which positions of a system item slice are still free
// within a single pass. It is created per pass and threaded through it.
type Availability []bool

// NewAvailability returns n free positions
func NewAvailability(n int) Availability {
	a := make(Availability, n)
	for i := range a {
		a[i] = true
	}
	return a
}

// Consume marks position i used. It returns false if i was already used.
func (a Availability) Consume(i int) bool {
	if i < 0 || i >= len(a) || !a[i] {
		return false
	}
	a[i] = false
	return true
}

// Free reports whether position i is still available
func (a Availability) Free(i int) bool {
	return i >= 0 && i < len(a) && a[i]
}
