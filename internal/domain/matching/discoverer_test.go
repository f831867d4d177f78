package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

func TestDiscover_ProposesFingerprintPair(t *testing.T) {
	proposals := Discover(
		[]entity.LineItem{item("X", 3, 100)},
		[]entity.LineItem{item("Y", 3, 100)},
		nil,
	)

	require.Len(t, proposals, 1)
	assert.Equal(t, "X", proposals[0].SupplierItem.Name)
	assert.Equal(t, "Y", proposals[0].SystemItem.Name)
}

func TestDiscover_PairsOnRoundedTie(t *testing.T) {
	proposals := Discover(
		[]entity.LineItem{item("X", 1, 0.03125)},
		[]entity.LineItem{item("Y", 1, 0.0313)},
		nil,
	)

	require.Len(t, proposals, 1)
	assert.Equal(t, "X", proposals[0].SupplierItem.Name)
	assert.Equal(t, "Y", proposals[0].SystemItem.Name)
}

func TestDiscover_NoCoincidence(t *testing.T) {
	proposals := Discover(
		[]entity.LineItem{item("X", 3, 100)},
		[]entity.LineItem{item("Y", 3, 99.99)},
		nil,
	)
	assert.Empty(t, proposals)
}

func TestDiscover_GreedyInSupplierOrder(t *testing.T) {
	proposals := Discover(
		[]entity.LineItem{item("S1", 2, 10), item("S2", 2, 10), item("S3", 2, 10)},
		[]entity.LineItem{item("Y1", 2, 10), item("Z", 1, 1), item("Y2", 2, 10)},
		nil,
	)

	require.Len(t, proposals, 2)
	assert.Equal(t, "S1", proposals[0].SupplierItem.Name)
	assert.Equal(t, "Y1", proposals[0].SystemItem.Name)
	assert.Equal(t, "S2", proposals[1].SupplierItem.Name)
	assert.Equal(t, "Y2", proposals[1].SystemItem.Name)
}

func TestDiscover_KnownPairStillConsumesSystemItem(t *testing.T) {
	proposals := Discover(
		[]entity.LineItem{item("X", 3, 100), item("W", 3, 100)},
		[]entity.LineItem{item("Y", 3, 100)},
		[]entity.StoredMapping{mapping("X", "Y")},
	)

	assert.Empty(t, proposals)
}

func TestDiscover_FilterIsExactOnNames(t *testing.T) {
	proposals := Discover(
		[]entity.LineItem{item("x", 3, 100)},
		[]entity.LineItem{item("Y", 3, 100)},
		[]entity.StoredMapping{mapping("X", "Y")},
	)

	require.Len(t, proposals, 1)
	assert.Equal(t, "x", proposals[0].SupplierItem.Name)
}

func TestDiscover_EmptyInputs(t *testing.T) {
	assert.Empty(t, Discover(nil, nil, nil))
	assert.Empty(t, Discover([]entity.LineItem{item("X", 1, 1)}, nil, nil))
	assert.Empty(t, Discover(nil, []entity.LineItem{item("Y", 1, 1)}, nil))
}

func TestDiscover_EachSystemItemUsedOnce(t *testing.T) {
	supplier := []entity.LineItem{item("A", 1, 5), item("B", 1, 5), item("C", 2, 5)}
	system := []entity.LineItem{item("P", 1, 5), item("Q", 2, 5)}

	proposals := Discover(supplier, system, nil)

	used := map[string]int{}
	for _, p := range proposals {
		used[p.SystemItem.Name]++
	}
	for name, n := range used {
		assert.Equal(t, 1, n, name)
	}
	assert.Len(t, proposals, 2)
}
