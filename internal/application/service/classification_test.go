package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

func TestDecodeClassification_FencedWithTrailingComma(t *testing.T) {
	raw := "```json\n{\"summary\":\"ok\",\"comparedItems\":[],\"totalSupplierAmount\":0,\"totalSystemAmount\":0,\"difference\":0,}\n```"

	result, err := DecodeClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Summary)
	assert.Empty(t, result.ComparedItems)
	assert.NotNil(t, result.ComparedItems)
}

func TestDecodeClassification_Rows(t *testing.T) {
	raw := `Here is my analysis:
{
  "summary": "Two rows reviewed",
  "comparedItems": [
    {"status": "matched", "supplierItem": {"name": "Nut", "quantity": 4, "unitPrice": 2, "totalPrice": 8},
     "systemItem": {"name": "NUT-01", "quantity": 4, "unitPrice": 2, "totalPrice": 8}, "details": "same"},
    {"status": "System-Only", "supplierItem": null,
     "systemItem": {"name": "Freight", "quantity": 1, "unitPrice": 30, "totalPrice": 30}, "details": " no supplier line "}
  ],
  "totalSupplierAmount": 8,
  "totalSystemAmount": 38,
  "difference": -30
}
Let me know if you need more.`

	result, err := DecodeClassification(raw)
	require.NoError(t, err)
	require.Len(t, result.ComparedItems, 2)

	assert.Equal(t, entity.StatusMatched, result.ComparedItems[0].Status)
	assert.Empty(t, result.ComparedItems[0].Details)
	assert.Equal(t, "NUT-01", result.ComparedItems[0].SystemItem.Name)

	assert.Equal(t, entity.StatusSystemOnly, result.ComparedItems[1].Status)
	assert.Nil(t, result.ComparedItems[1].SupplierItem)
	assert.Equal(t, "no supplier line", result.ComparedItems[1].Details)
	assert.Equal(t, -30.0, result.Difference)
}

func TestDecodeClassification_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "truncated", raw: `{"summary":"x","comparedItems":[{"status":"MATCHED"}`},
		{name: "prose only", raw: "Sorry, I cannot help with that."},
		{name: "empty", raw: ""},
		{name: "array instead of object", raw: `[{"status":"MATCHED"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClassification(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedClassifierResponse)

			var cre *ClassifierResponseError
			require.True(t, errors.As(err, &cre))
			assert.Equal(t, tt.raw, cre.RawResponse)
		})
	}
}

func TestDecodeClassification_Validation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{
			name:    "missing totals",
			raw:     `{"summary":"x","comparedItems":[]}`,
			wantMsg: "totalSupplierAmount is required",
		},
		{
			name:    "missing compared items",
			raw:     `{"summary":"x","totalSupplierAmount":0,"totalSystemAmount":0,"difference":0}`,
			wantMsg: "comparedItems is required",
		},
		{
			name:    "unknown status",
			raw:     `{"summary":"x","comparedItems":[{"status":"MAYBE","supplierItem":{"name":"a"},"systemItem":{"name":"b"}}],"totalSupplierAmount":0,"totalSystemAmount":0,"difference":0}`,
			wantMsg: "status must be one of",
		},
		{
			name:    "matched row without system item",
			raw:     `{"summary":"x","comparedItems":[{"status":"MATCHED","supplierItem":{"name":"a"}}],"totalSupplierAmount":0,"totalSystemAmount":0,"difference":0}`,
			wantMsg: "systemItem is required for this status",
		},
		{
			name:    "supplier-only row without supplier item",
			raw:     `{"summary":"x","comparedItems":[{"status":"SUPPLIER_ONLY","systemItem":{"name":"b"}}],"totalSupplierAmount":0,"totalSystemAmount":0,"difference":0}`,
			wantMsg: "supplierItem is required for this status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClassification(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrClassifierValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var cre *ClassifierResponseError
			require.True(t, errors.As(err, &cre))
			assert.Equal(t, tt.raw, cre.RawResponse)
			assert.NotEmpty(t, cre.RepairedPayload)
		})
	}
}

func TestDecodeClassification_ZeroTotalsAreValid(t *testing.T) {
	_, err := DecodeClassification(`{"summary":"","comparedItems":[],"totalSupplierAmount":0,"totalSystemAmount":0,"difference":0}`)
	assert.NoError(t, err)
}
