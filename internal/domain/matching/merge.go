package matching

import (
	"fmt"
	"strings"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

const (
	// SummaryNothingToProcess is the classifier-side summary when every item
	// was resolved deterministically.
	SummaryNothingToProcess = "Nothing to process."

	// DetailNotClassified marks a residual supplier item the classifier left out.
	DetailNotClassified = "not classified by the reviewer"

	// DetailUnknownSupplierItem marks a classifier row whose supplier item is
	// not one of the unresolved supplier items.
	DetailUnknownSupplierItem = "classifier paired this ledger item with a supplier item that is not outstanding"
)

// EmptySubResult is the classifier-side result used when there is nothing to
// delegate.
func EmptySubResult() *entity.ReconciliationResult {
	return &entity.ReconciliationResult{
		Summary:       SummaryNothingToProcess,
		ComparedItems: []entity.ComparedItem{},
	}
}

// Merge combines deterministic rows with the classifier's rows, deterministic
// rows first. Totals are recomputed from allSupplierItems and the merged rows;
// the classifier's own totals are ignored.
func Merge(allSupplierItems []entity.LineItem, pre *Preprocessed, delegate *entity.ReconciliationResult) *entity.ReconciliationResult {
	if delegate == nil {
		delegate = EmptySubResult()
	}

	delegateRows := EnsureCoverage(pre.ResidualSupplierItems, delegate.ComparedItems)

	rows := make([]entity.ComparedItem, 0, len(pre.ComparedItems)+len(delegateRows))
	rows = append(rows, pre.ComparedItems...)
	rows = append(rows, delegateRows...)

	result := &entity.ReconciliationResult{
		Summary:       strings.TrimSpace(autoResolvedNote(len(pre.ComparedItems)) + " " + strings.TrimSpace(delegate.Summary)),
		ComparedItems: rows,
	}
	result.Recompute(allSupplierItems)
	return result
}

// BuildInterim returns the result that can be shown before classification:
// deterministic rows followed by one PROCESSING row per residual supplier item.
func BuildInterim(allSupplierItems []entity.LineItem, pre *Preprocessed) *entity.ReconciliationResult {
	rows := make([]entity.ComparedItem, 0, len(pre.ComparedItems)+len(pre.ResidualSupplierItems))
	rows = append(rows, pre.ComparedItems...)
	for i := range pre.ResidualSupplierItems {
		item := pre.ResidualSupplierItems[i]
		rows = append(rows, entity.ComparedItem{
			Status:       entity.StatusProcessing,
			SupplierItem: &item,
		})
	}

	summary := autoResolvedNote(len(pre.ComparedItems))
	if pre.HasResidual() {
		summary += fmt.Sprintf(" %d supplier items and %d ledger items awaiting classification.",
			len(pre.ResidualSupplierItems), len(pre.ResidualSystemItems))
	}

	result := &entity.ReconciliationResult{
		Summary:       summary,
		ComparedItems: rows,
	}
	result.Recompute(allSupplierItems)
	return result
}

func autoResolvedNote(n int) string {
	return fmt.Sprintf("Auto-resolved %d items via saved mappings.", n)
}
