package matching

import "github.com/garyjia/ai-reconciliation/internal/domain/entity"

// Discover proposes new supplier-name to system-name mappings from exact
// quantity and unit price coincidences. Pairing is greedy: supplier items are
// visited in order and each takes the first unused system item with the same
// fingerprint. Pairs already covered by a stored mapping with the same
// (system name, supplier name) are dropped after pairing, so they still
// consume their system item.
func Discover(supplierItems, systemItems []entity.LineItem, stored []entity.StoredMapping) []entity.MappingProposal {
	index := NewFingerprintIndex(systemItems)
	avail := NewAvailability(len(systemItems))

	known := make(map[[2]string]struct{}, len(stored))
	for _, m := range stored {
		known[[2]string{m.SystemItemName, m.SupplierItemName}] = struct{}{}
	}

	var proposals []entity.MappingProposal
	for _, supplier := range supplierItems {
		_, system, ok := index.Take(FingerprintKey(supplier), avail)
		if !ok {
			continue
		}
		if _, exists := known[[2]string{system.Name, supplier.Name}]; exists {
			continue
		}
		proposals = append(proposals, entity.MappingProposal{
			SupplierItem: supplier,
			SystemItem:   system,
		})
	}

	return proposals
}
