package packaging_test

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packline/internal/packaging"
	"packline/internal/testsupport"
)

const sampleCatalog = `
skus:
  lamp-01:
    title: Desk lamp
    steps:
      - {slot_id: A1, part_id: BASE, title: Place the base}
      - {slot_id: A2, part_id: ARM, title: Place the arm}
      - {slot_id: B1, part_id: SHADE, title: Place the shade}
  empty-01:
    title: Listed without steps
`

func TestPlanPackingIsLayoutReversed(t *testing.T) {
	catalog, err := packaging.ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	plan := catalog.PlanFor("LAMP-01")
	require.Len(t, plan.Layout, 3)
	assert.Equal(t, "Desk lamp", plan.Title)

	reversed := slices.Clone(plan.Layout)
	slices.Reverse(reversed)
	assert.Equal(t, reversed, plan.Packing)
	assert.Equal(t, "A1", plan.Layout[0].SlotID, "layout order must be preserved")
}

func TestPlanDefaultsForUnknownSKU(t *testing.T) {
	catalog, err := packaging.ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	for _, sku := range []string{"UNKNOWN-9", "empty-01"} {
		plan := catalog.PlanFor(sku)
		require.Len(t, plan.Layout, 1, sku)
		assert.Equal(t, plan.Layout, plan.Packing)
	}
}

func TestLoadCatalogMissingFileIsEmpty(t *testing.T) {
	catalog, err := packaging.LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Len())
}

func TestLoadCatalogRejectsStepWithoutSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	testsupport.WriteFile(t, path, "skus:\n  X:\n    steps:\n      - {part_id: P}\n")
	_, err := packaging.LoadCatalog(path)
	assert.Error(t, err)
}
