package entity

import "time"

// Run status constants for ReconciliationRun
const (
	RunStatusInterim     = "INTERIM"
	RunStatusClassifying = "CLASSIFYING"
	RunStatusCompleted   = "COMPLETED"
	RunStatusDegraded    = "DEGRADED"
)

// ReconciliationRun is the persisted record of one reconciliation attempt.
// Result holds the interim result until classification completes; a degraded
// run keeps the interim result and records why classification failed.
type ReconciliationRun struct {
	ID             string                `json:"id"`
	SupplierEntity string                `json:"supplierEntity"`
	PeriodStart    time.Time             `json:"periodStart"`
	PeriodEnd      time.Time             `json:"periodEnd"`
	Status         string                `json:"status"`
	Result         *ReconciliationResult `json:"result"`

	SupplierItems         []LineItem     `json:"supplierItems"`
	SystemItems           []LineItem     `json:"systemItems"`
	DeterministicItems    []ComparedItem `json:"-"`
	ResidualSupplierItems []LineItem     `json:"residualSupplierItems"`
	ResidualSystemItems   []LineItem     `json:"residualSystemItems"`

	ExtractionFailures []ExtractionFailure `json:"extractionFailures,omitempty"`
	ErrorMessage       string              `json:"errorMessage,omitempty"`
	RawResponse        string              `json:"rawResponse,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExtractionFailure records one uploaded document that could not be extracted.
type ExtractionFailure struct {
	DocumentName string `json:"documentName"`
	Message      string `json:"message"`
}

// IsTerminal reports whether the run will not change any more.
func (r *ReconciliationRun) IsTerminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusDegraded
}
