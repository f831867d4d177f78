package entity

import (
	"fmt"
	"strings"
)

// ComparisonStatus classifies one compared row
type ComparisonStatus string

const (
	StatusMatched      ComparisonStatus = "MATCHED"
	StatusDiscrepancy  ComparisonStatus = "DISCREPANCY"
	StatusSupplierOnly ComparisonStatus = "SUPPLIER_ONLY"
	StatusSystemOnly   ComparisonStatus = "SYSTEM_ONLY"
	// StatusProcessing marks a supplier item still waiting for classification.
	StatusProcessing ComparisonStatus = "PROCESSING"
)

// String returns the wire value
func (s ComparisonStatus) String() string {
	return string(s)
}

// IsFinal reports whether the status can appear in a completed result.
func (s ComparisonStatus) IsFinal() bool {
	switch s {
	case StatusMatched, StatusDiscrepancy, StatusSupplierOnly, StatusSystemOnly:
		return true
	default:
		return false
	}
}

// NormalizeStatus upper-cases a status string and folds dashes and spaces to
// underscores, so "supplier-only" and "Supplier Only" both read SUPPLIER_ONLY.
func NormalizeStatus(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// ParseComparisonStatus parses a status leniently.
func ParseComparisonStatus(s string) (ComparisonStatus, error) {
	status := ComparisonStatus(NormalizeStatus(s))
	if status.IsFinal() || status == StatusProcessing {
		return status, nil
	}
	return "", fmt.Errorf("unknown comparison status %q", s)
}

// ComparedItem is one row of a reconciliation result. Details is only filled
// for non-matched rows.
type ComparedItem struct {
	Status       ComparisonStatus `json:"status"`
	SupplierItem *LineItem        `json:"supplierItem"`
	SystemItem   *LineItem        `json:"systemItem"`
	Details      string           `json:"details,omitempty"`
}

// ReconciliationResult is the outcome of one reconciliation run.
type ReconciliationResult struct {
	Summary             string         `json:"summary"`
	TotalSupplierAmount float64        `json:"totalSupplierAmount"`
	TotalSystemAmount   float64        `json:"totalSystemAmount"`
	Difference          float64        `json:"difference"`
	ComparedItems       []ComparedItem `json:"comparedItems"`
}

// Recompute sets TotalSupplierAmount to the sum over supplierItems,
// TotalSystemAmount to the sum of system totals present in ComparedItems and
// Difference from the two.
func (r *ReconciliationResult) Recompute(supplierItems []LineItem) {
	r.TotalSupplierAmount = SumTotals(supplierItems)

	systemItems := make([]LineItem, 0, len(r.ComparedItems))
	for _, ci := range r.ComparedItems {
		if ci.SystemItem != nil {
			systemItems = append(systemItems, *ci.SystemItem)
		}
	}
	r.TotalSystemAmount = SumTotals(systemItems)
	r.Difference = r.TotalSupplierAmount - r.TotalSystemAmount
}

// CountByStatus tallies rows per status
func (r *ReconciliationResult) CountByStatus() map[ComparisonStatus]int {
	counts := make(map[ComparisonStatus]int)
	for _, ci := range r.ComparedItems {
		counts[ci.Status]++
	}
	return counts
}
