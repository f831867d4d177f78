package entity

import "time"

// StoredMapping is a confirmed correspondence between a supplier's product
// name and the ledger's product name, scoped to one supplier entity.
type StoredMapping struct {
	ID                 int64     `json:"id,omitempty"`
	SupplierItemName   string    `json:"supplierItemName"`
	SystemItemName     string    `json:"systemItemName"`
	SupplierEntityName string    `json:"supplierEntityName"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
}

// MappingProposal pairs a supplier item with a ledger item that shares its
// exact quantity and unit price. Proposals are never persisted as such; a
// confirmed proposal becomes a StoredMapping.
type MappingProposal struct {
	SupplierItem LineItem `json:"supplierItem"`
	SystemItem   LineItem `json:"systemItem"`
}

// ToStoredMapping converts a confirmed proposal for the given supplier.
func (p MappingProposal) ToStoredMapping(supplierEntity string) StoredMapping {
	return StoredMapping{
		SupplierItemName:   p.SupplierItem.Name,
		SystemItemName:     p.SystemItem.Name,
		SupplierEntityName: supplierEntity,
	}
}
