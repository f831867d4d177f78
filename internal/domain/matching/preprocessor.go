package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// DetailMappedButAbsent is the detail for a mapped supplier item with no
// remaining ledger item of the mapped name.
const DetailMappedButAbsent = "mapped but absent from this period's ledger data"

// Preprocessed is the output of the mapping-assisted pass.
type Preprocessed struct {
	ComparedItems         []entity.ComparedItem
	ResidualSupplierItems []entity.LineItem
	ResidualSystemItems   []entity.LineItem
}

// HasResidual reports whether anything is left for classification.
func (p *Preprocessed) HasResidual() bool {
	return len(p.ResidualSupplierItems) > 0 || len(p.ResidualSystemItems) > 0
}

// MappingLookup builds the lower-cased supplier name -> system name lookup.
// Later mappings overwrite earlier ones for the same supplier name.
func MappingLookup(mappings []entity.StoredMapping) map[string]string {
	lookup := make(map[string]string, len(mappings))
	for _, m := range mappings {
		lookup[strings.ToLower(m.SupplierItemName)] = m.SystemItemName
	}
	return lookup
}

// Preprocess resolves supplier items through stored mappings. Matching is
// exact on the mapped system name; each system item is consumed at most once
// and always by the earliest supplier item that asks for it.
func Preprocess(supplierItems, systemItems []entity.LineItem, mappings []entity.StoredMapping) *Preprocessed {
	lookup := MappingLookup(mappings)
	avail := NewAvailability(len(systemItems))
	out := &Preprocessed{}

	for i := range supplierItems {
		supplier := supplierItems[i]

		target, mapped := lookup[strings.ToLower(supplier.Name)]
		if !mapped {
			out.ResidualSupplierItems = append(out.ResidualSupplierItems, supplier)
			continue
		}

		pos := firstAvailableByName(systemItems, target, avail)
		if pos < 0 {
			out.ComparedItems = append(out.ComparedItems, entity.ComparedItem{
				Status:       entity.StatusSupplierOnly,
				SupplierItem: &supplier,
				Details:      fmt.Sprintf("Saved mapping to %q: %s", target, DetailMappedButAbsent),
			})
			continue
		}
		avail.Consume(pos)

		system := systemItems[pos]
		out.ComparedItems = append(out.ComparedItems, Compare(supplier, system))
	}

	for i, it := range systemItems {
		if avail.Free(i) {
			out.ResidualSystemItems = append(out.ResidualSystemItems, it)
		}
	}

	return out
}

// Compare emits Matched when quantity and unit price are exactly equal and
// Discrepancy otherwise.
func Compare(supplier, system entity.LineItem) entity.ComparedItem {
	ci := entity.ComparedItem{
		Status:       entity.StatusMatched,
		SupplierItem: &supplier,
		SystemItem:   &system,
	}
	if supplier.Quantity == system.Quantity && supplier.UnitPrice == system.UnitPrice {
		return ci
	}

	ci.Status = entity.StatusDiscrepancy
	ci.Details = fmt.Sprintf("Quantity: supplier %s vs system %s; unit price: supplier %s vs system %s",
		formatNumber(supplier.Quantity), formatNumber(system.Quantity),
		formatNumber(supplier.UnitPrice), formatNumber(system.UnitPrice))
	return ci
}

func firstAvailableByName(items []entity.LineItem, name string, avail Availability) int {
	for i, it := range items {
		if it.Name == name && avail.Free(i) {
			return i
		}
	}
	return -1
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
