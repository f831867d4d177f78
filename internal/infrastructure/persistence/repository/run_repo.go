package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/persistence/sqlite"
)

const runColumns = `
	id, supplier_entity_name, period_start, period_end, status,
	result_json, supplier_items_json, system_items_json,
	residual_supplier_json, residual_system_json, deterministic_json,
	extraction_failures_json, error_message, raw_response,
	created_at, updated_at
`

// RunRepository implements port.RunRepository. Item collections and the
// result are stored as JSON text columns.
type RunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, logger *zap.Logger) port.RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

// runColumnsValues holds the encoded JSON columns of a run
type runColumnsValues struct {
	result, supplierItems, systemItems             sql.NullString
	residualSupplier, residualSystem, deterministic sql.NullString
	failures                                        sql.NullString
}

func encodeRun(run *entity.ReconciliationRun) (*runColumnsValues, error) {
	var v runColumnsValues
	var err error

	if run.Result != nil {
		if v.result, err = encodeJSON(run.Result); err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
	}
	if v.supplierItems, err = encodeJSON(nonNilItems(run.SupplierItems)); err != nil {
		return nil, fmt.Errorf("encode supplier items: %w", err)
	}
	if v.systemItems, err = encodeJSON(nonNilItems(run.SystemItems)); err != nil {
		return nil, fmt.Errorf("encode system items: %w", err)
	}
	if v.residualSupplier, err = encodeJSON(nonNilItems(run.ResidualSupplierItems)); err != nil {
		return nil, fmt.Errorf("encode residual supplier items: %w", err)
	}
	if v.residualSystem, err = encodeJSON(nonNilItems(run.ResidualSystemItems)); err != nil {
		return nil, fmt.Errorf("encode residual system items: %w", err)
	}
	deterministic := run.DeterministicItems
	if deterministic == nil {
		deterministic = []entity.ComparedItem{}
	}
	if v.deterministic, err = encodeJSON(deterministic); err != nil {
		return nil, fmt.Errorf("encode deterministic rows: %w", err)
	}
	failures := run.ExtractionFailures
	if failures == nil {
		failures = []entity.ExtractionFailure{}
	}
	if v.failures, err = encodeJSON(failures); err != nil {
		return nil, fmt.Errorf("encode extraction failures: %w", err)
	}
	return &v, nil
}

// Create inserts a new run
func (r *RunRepository) Create(ctx context.Context, run *entity.ReconciliationRun) error {
	cols, err := encodeRun(run)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `INSERT INTO reconciliation_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		run.ID,
		run.SupplierEntity,
		run.PeriodStart.UTC(),
		run.PeriodEnd.UTC(),
		run.Status,
		cols.result,
		cols.supplierItems,
		cols.systemItems,
		cols.residualSupplier,
		cols.residualSystem,
		cols.deterministic,
		cols.failures,
		nullString(run.ErrorMessage),
		nullString(run.RawResponse),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create run", zap.String("run_id", run.ID), zap.Error(err))
		return fmt.Errorf("failed to create run: %w", err)
	}

	run.CreatedAt = now
	run.UpdatedAt = now
	return nil
}

// GetByID returns the run, or nil when it does not exist
func (r *RunRepository) GetByID(ctx context.Context, id string) (*entity.ReconciliationRun, error) {
	query := `SELECT ` + runColumns + ` FROM reconciliation_runs WHERE id = ?`

	run, err := scanRun(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get run", zap.String("run_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Update rewrites every mutable column of the run
func (r *RunRepository) Update(ctx context.Context, run *entity.ReconciliationRun) error {
	cols, err := encodeRun(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE reconciliation_runs SET
			status = ?, result_json = ?, supplier_items_json = ?, system_items_json = ?,
			residual_supplier_json = ?, residual_system_json = ?, deterministic_json = ?,
			extraction_failures_json = ?, error_message = ?, raw_response = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now().UTC()
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		run.Status,
		cols.result,
		cols.supplierItems,
		cols.systemItems,
		cols.residualSupplier,
		cols.residualSystem,
		cols.deterministic,
		cols.failures,
		nullString(run.ErrorMessage),
		nullString(run.RawResponse),
		now,
		run.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update run", zap.String("run_id", run.ID), zap.Error(err))
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	run.UpdatedAt = now
	return nil
}

// ListByStatus returns runs in status, oldest first. limit <= 0 means all.
func (r *RunRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.ReconciliationRun, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + runColumns + ` FROM reconciliation_runs WHERE status = ? ORDER BY created_at ASC, rowid ASC LIMIT ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, status, limit)
	if err != nil {
		r.logger.Error("Failed to list runs", zap.String("status", status), zap.Error(err))
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.ReconciliationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// UpdateStatus performs a compare-and-set on the status column
func (r *RunRepository) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	query := `UPDATE reconciliation_runs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		r.logger.Error("Failed to update run status",
			zap.String("run_id", id),
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		return false, fmt.Errorf("failed to update run status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*entity.ReconciliationRun, error) {
	var run entity.ReconciliationRun
	var cols runColumnsValues
	var errorMessage, rawResponse sql.NullString

	err := row.Scan(
		&run.ID,
		&run.SupplierEntity,
		&run.PeriodStart,
		&run.PeriodEnd,
		&run.Status,
		&cols.result,
		&cols.supplierItems,
		&cols.systemItems,
		&cols.residualSupplier,
		&cols.residualSystem,
		&cols.deterministic,
		&cols.failures,
		&errorMessage,
		&rawResponse,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.ErrorMessage = errorMessage.String
	run.RawResponse = rawResponse.String

	if cols.result.Valid {
		run.Result = &entity.ReconciliationResult{}
		if err := json.Unmarshal([]byte(cols.result.String), run.Result); err != nil {
			return nil, fmt.Errorf("decode result of run %s: %w", run.ID, err)
		}
	}
	for _, c := range []struct {
		src  sql.NullString
		dest interface{}
	}{
		{cols.supplierItems, &run.SupplierItems},
		{cols.systemItems, &run.SystemItems},
		{cols.residualSupplier, &run.ResidualSupplierItems},
		{cols.residualSystem, &run.ResidualSystemItems},
		{cols.deterministic, &run.DeterministicItems},
		{cols.failures, &run.ExtractionFailures},
	} {
		if !c.src.Valid || c.src.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c.src.String), c.dest); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", run.ID, err)
		}
	}

	return &run, nil
}

func encodeJSON(v interface{}) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNilItems(items []entity.LineItem) []entity.LineItem {
	if items == nil {
		return []entity.LineItem{}
	}
	return items
}
