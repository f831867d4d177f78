package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Pipeline stage errors
	ErrExtractionFailed = errors.New("document extraction failed")
	ErrLedgerFetch      = errors.New("ledger fetch failed")

	// Classifier errors. A validation failure is handled like a malformed response.
	ErrMalformedClassifierResponse = errors.New("malformed classifier response")
	ErrClassifierValidation        = errors.New("classifier response failed validation")
	ErrClassifierUnavailable       = errors.New("classifier request failed")

	// Mapping store errors
	ErrMappingSave = errors.New("mapping save failed")

	// Request errors
	ErrRunNotFound     = errors.New("reconciliation run not found")
	ErrRunNotReady     = errors.New("reconciliation run is not awaiting classification")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNoSupplierItems = errors.New("no supplier items could be extracted")
)

// LedgerFetchError aborts a reconciliation attempt
type LedgerFetchError struct {
	Supplier string
	Err      error
}

func (e *LedgerFetchError) Error() string {
	return fmt.Sprintf("%s for supplier %q: %v", ErrLedgerFetch, e.Supplier, e.Err)
}

func (e *LedgerFetchError) Unwrap() []error { return []error{ErrLedgerFetch, e.Err} }

// ClassifierResponseError carries the untouched classifier text so the run
// can be diagnosed by hand. Kind is one of ErrMalformedClassifierResponse,
// ErrClassifierValidation or ErrClassifierUnavailable.
type ClassifierResponseError struct {
	Kind            error
	RawResponse     string
	RepairedPayload string
	Err             error
}

func (e *ClassifierResponseError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifierResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MappingSaveFailure is one proposal that could not be persisted
type MappingSaveFailure struct {
	SupplierItemName string `json:"supplierItemName"`
	SystemItemName   string `json:"systemItemName"`
	Reason           string `json:"reason"`
}

// MappingSaveReport is the outcome of a batch save. Every proposal lands in
// exactly one of Succeeded or Failed.
type MappingSaveReport struct {
	Succeeded int                  `json:"succeeded"`
	Failed    []MappingSaveFailure `json:"failed"`
}

// FailedCount returns the number of proposals that were not saved
func (r *MappingSaveReport) FailedCount() int {
	return len(r.Failed)
}

// FailedReasons lists "supplier -> system: reason" per failure
func (r *MappingSaveReport) FailedReasons() []string {
	reasons := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		reasons[i] = fmt.Sprintf("%s -> %s: %s", f.SupplierItemName, f.SystemItemName, f.Reason)
	}
	return reasons
}

// Err returns a MappingSaveError when any proposal failed
func (r *MappingSaveReport) Err() error {
	if r.FailedCount() == 0 {
		return nil
	}
	return &MappingSaveError{Report: r}
}

// MappingSaveError reports a partially failed batch
type MappingSaveError struct {
	Report *MappingSaveReport
}

func (e *MappingSaveError) Error() string {
	return fmt.Sprintf("%s: %d of %d failed (%s)",
		ErrMappingSave,
		e.Report.FailedCount(),
		e.Report.Succeeded+e.Report.FailedCount(),
		strings.Join(e.Report.FailedReasons(), "; "))
}

func (e *MappingSaveError) Unwrap() error { return ErrMappingSave }
