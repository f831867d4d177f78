package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/persistence/sqlite"
)

// MappingRepository implements port.MappingRepository
type MappingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *sql.DB, logger *zap.Logger) port.MappingRepository {
	return &MappingRepository{
		db:     db,
		logger: logger,
	}
}

// Query returns every mapping of a supplier, matched case-insensitively, in
// insertion order.
func (r *MappingRepository) Query(ctx context.Context, supplierEntity string) ([]entity.StoredMapping, error) {
	query := `
		SELECT id, supplier_item_name, system_item_name, supplier_entity_name, created_at
		FROM item_mappings
		WHERE supplier_entity_name = ? COLLATE NOCASE
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, strings.TrimSpace(supplierEntity))
	if err != nil {
		r.logger.Error("Failed to query mappings", zap.String("supplier", supplierEntity), zap.Error(err))
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	mappings := []entity.StoredMapping{}
	for rows.Next() {
		var m entity.StoredMapping
		if err := rows.Scan(&m.ID, &m.SupplierItemName, &m.SystemItemName, &m.SupplierEntityName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mappings: %w", err)
	}

	return mappings, nil
}

// Create inserts a mapping and fills in its ID and creation time
func (r *MappingRepository) Create(ctx context.Context, mapping *entity.StoredMapping) error {
	if strings.TrimSpace(mapping.SupplierItemName) == "" || strings.TrimSpace(mapping.SystemItemName) == "" {
		return fmt.Errorf("mapping item names must not be empty")
	}
	if strings.TrimSpace(mapping.SupplierEntityName) == "" {
		return fmt.Errorf("mapping supplier entity must not be empty")
	}

	query := `
		INSERT INTO item_mappings (supplier_item_name, system_item_name, supplier_entity_name, created_at)
		VALUES (?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		mapping.SupplierItemName,
		mapping.SystemItemName,
		mapping.SupplierEntityName,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create mapping",
			zap.String("supplier_item", mapping.SupplierItemName),
			zap.String("system_item", mapping.SystemItemName),
			zap.Error(err))
		return fmt.Errorf("failed to create mapping: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	mapping.ID = id
	mapping.CreatedAt = now
	return nil
}
