package service

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
	"github.com/garyjia/ai-reconciliation/pkg/utils"
)

// classificationPayload is the wire shape the classifier is asked to return.
// Pointers distinguish a missing total from a zero one.
type classificationPayload struct {
	Summary             *string                `json:"summary" validate:"required"`
	ComparedItems       []classifiedRowPayload `json:"comparedItems" validate:"required,dive"`
	TotalSupplierAmount *float64               `json:"totalSupplierAmount" validate:"required"`
	TotalSystemAmount   *float64               `json:"totalSystemAmount" validate:"required"`
	Difference          *float64               `json:"difference" validate:"required"`
}

type classifiedRowPayload struct {
	Status       string           `json:"status" validate:"oneof=MATCHED DISCREPANCY SUPPLIER_ONLY SYSTEM_ONLY"`
	SupplierItem *entity.LineItem `json:"supplierItem" validate:"required_unless=Status SYSTEM_ONLY"`
	SystemItem   *entity.LineItem `json:"systemItem" validate:"required_unless=Status SUPPLIER_ONLY"`
	Details      string           `json:"details"`
}

// DecodeClassification recovers and decodes the classifier's raw text.
// Failures are returned as *ClassifierResponseError carrying raw untouched.
func DecodeClassification(raw string) (*entity.ReconciliationResult, error) {
	repaired := utils.RecoverJSON(raw)
	if strings.TrimSpace(repaired) == "" {
		return nil, &ClassifierResponseError{
			Kind:        ErrMalformedClassifierResponse,
			RawResponse: raw,
			Err:         errors.New("response contains no payload"),
		}
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return nil, &ClassifierResponseError{
			Kind:            ErrMalformedClassifierResponse,
			RawResponse:     raw,
			RepairedPayload: repaired,
			Err:             err,
		}
	}

	for i := range payload.ComparedItems {
		payload.ComparedItems[i].Status = entity.NormalizeStatus(payload.ComparedItems[i].Status)
	}

	if err := utils.ValidateStruct(&payload); err != nil {
		return nil, &ClassifierResponseError{
			Kind:            ErrClassifierValidation,
			RawResponse:     raw,
			RepairedPayload: repaired,
			Err:             err,
		}
	}

	result := &entity.ReconciliationResult{
		Summary:             *payload.Summary,
		TotalSupplierAmount: *payload.TotalSupplierAmount,
		TotalSystemAmount:   *payload.TotalSystemAmount,
		Difference:          *payload.Difference,
		ComparedItems:       make([]entity.ComparedItem, 0, len(payload.ComparedItems)),
	}
	for _, row := range payload.ComparedItems {
		status, err := entity.ParseComparisonStatus(row.Status)
		if err != nil {
			return nil, &ClassifierResponseError{
				Kind:            ErrClassifierValidation,
				RawResponse:     raw,
				RepairedPayload: repaired,
				Err:             err,
			}
		}
		ci := entity.ComparedItem{
			Status:       status,
			SupplierItem: row.SupplierItem,
			SystemItem:   row.SystemItem,
			Details:      strings.TrimSpace(row.Details),
		}
		if ci.Status == entity.StatusMatched {
			ci.Details = ""
		}
		result.ComparedItems = append(result.ComparedItems, ci)
	}
	return result, nil
}
