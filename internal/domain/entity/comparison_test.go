package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComparisonStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    ComparisonStatus
		wantErr bool
	}{
		{in: "MATCHED", want: StatusMatched},
		{in: " discrepancy ", want: StatusDiscrepancy},
		{in: "supplier-only", want: StatusSupplierOnly},
		{in: "System Only", want: StatusSystemOnly},
		{in: "processing", want: StatusProcessing},
		{in: "partial", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseComparisonStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconciliationResult_CountByStatus(t *testing.T) {
	r := &ReconciliationResult{ComparedItems: []ComparedItem{
		{Status: StatusMatched},
		{Status: StatusDiscrepancy},
		{Status: StatusMatched},
		{Status: StatusSystemOnly},
	}}

	counts := r.CountByStatus()
	assert.Equal(t, 2, counts[StatusMatched])
	assert.Equal(t, 1, counts[StatusDiscrepancy])
	assert.Equal(t, 1, counts[StatusSystemOnly])
	assert.Zero(t, counts[StatusSupplierOnly])
	assert.Empty(t, (&ReconciliationResult{}).CountByStatus())
}
