package matching

import (
	"strings"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// EnsureCoverage makes classifier rows account for every residual supplier
// item exactly once.
//
// Each row's supplier item is claimed against the outstanding residual items,
// first by name and fingerprint, then by fingerprint alone. Claimed rows carry
// the original residual item. A row whose supplier item cannot be claimed is
// kept as SYSTEM_ONLY when it has a ledger item and dropped otherwise.
// Residual items nobody claimed are appended as SUPPLIER_ONLY.
func EnsureCoverage(residual []entity.LineItem, rows []entity.ComparedItem) []entity.ComparedItem {
	avail := NewAvailability(len(residual))
	byName := make(map[string][]int, len(residual))
	byPrint := make(map[string][]int, len(residual))
	for i, it := range residual {
		byName[nameKey(it)] = append(byName[nameKey(it)], i)
		byPrint[FingerprintKey(it)] = append(byPrint[FingerprintKey(it)], i)
	}

	claim := func(it entity.LineItem) int {
		for _, p := range byName[nameKey(it)] {
			if avail.Consume(p) {
				return p
			}
		}
		for _, p := range byPrint[FingerprintKey(it)] {
			if avail.Consume(p) {
				return p
			}
		}
		return -1
	}

	out := make([]entity.ComparedItem, 0, len(rows)+len(residual))
	for _, row := range rows {
		if row.Status == entity.StatusSystemOnly {
			row.SupplierItem = nil
			out = append(out, row)
			continue
		}
		if row.SupplierItem == nil {
			continue
		}

		pos := claim(*row.SupplierItem)
		if pos >= 0 {
			original := residual[pos]
			row.SupplierItem = &original
			out = append(out, row)
			continue
		}

		if row.SystemItem != nil {
			out = append(out, entity.ComparedItem{
				Status:     entity.StatusSystemOnly,
				SystemItem: row.SystemItem,
				Details:    DetailUnknownSupplierItem,
			})
		}
	}

	for i := range residual {
		if !avail.Free(i) {
			continue
		}
		item := residual[i]
		out = append(out, entity.ComparedItem{
			Status:       entity.StatusSupplierOnly,
			SupplierItem: &item,
			Details:      DetailNotClassified,
		})
	}

	return out
}

func nameKey(it entity.LineItem) string {
	return strings.ToLower(strings.TrimSpace(it.Name)) + "|" + FingerprintKey(it)
}
