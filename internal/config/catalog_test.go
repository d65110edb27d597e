package config

import (
	"os"
	"path/filepath"
	"testing"

	"skirental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
equipment:
  - name: Atomic Redster
    model: G9
    barcode: SKI-0001
    count_in_store: 6
    price_per_hour: 1500
    price_for_next_hour: 1000
    price_per_day: 6000
    value_cost: 250000
employers:
  - first_name: Anna
    last_name: Wisniewska
    email: ${OWNER_EMAIL}
    role: OWNER
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OWNER_EMAIL", "anna@rental.pl")

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.Equipment, 1)
	assert.Equal(t, "SKI-0001", catalog.Equipment[0].Barcode)
	assert.Equal(t, 6, catalog.Equipment[0].CountInStore)
	assert.Equal(t, int64(6000), catalog.Equipment[0].PricePerDay)
	require.Len(t, catalog.Employers, 1)
	assert.Equal(t, "anna@rental.pl", catalog.Employers[0].Email)
	assert.Equal(t, models.RoleOwner, catalog.Employers[0].Role)
}

func TestLoadCatalog_Errors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("equipment: []\n"), 0o600))
	_, err = LoadCatalog(empty)
	assert.ErrorContains(t, err, "is empty")

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("equipment: [\n"), 0o600))
	_, err = LoadCatalog(broken)
	assert.ErrorContains(t, err, "parse catalog")
}
