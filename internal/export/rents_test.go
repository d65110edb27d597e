package export

import (
	"path/filepath"
	"testing"
	"time"

	"skirental/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testRows() []models.RentRecord {
	issued := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	return []models.RentRecord{
		{ID: 1, IssuedIdentifier: "RENT/20250110/0a1b2c3d", IssuedAt: issued, Status: models.RentStatusRented,
			TotalNetPrice: 13000, TotalGrossPrice: 15990, Client: "Piotr Kowalski", Employer: "Jan Nowak"},
		{ID: 2, IssuedIdentifier: "RENT/20250110/ffee0011", IssuedAt: issued, Status: models.RentStatusReturned,
			TotalNetPrice: 5000, TotalGrossPrice: 6150, Client: "", Employer: "Anna Wisniewska"},
	}
}

func TestRentsWorkbook(t *testing.T) {
	at := time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC)
	f, err := RentsWorkbook(testRows(), "Rents", at)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{rentsSheet}, f.GetSheetList())

	title, err := f.GetCellValue(rentsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Rents (11.01.2025 08:00)", title)

	header, err := f.GetCellValue(rentsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Identifier", header)

	rows, err := f.GetRows(rentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "RENT/20250110/0a1b2c3d", rows[2][1])
	assert.Equal(t, "10.01.2025 09:30", rows[2][2])
	assert.Equal(t, "Jan Nowak", rows[2][7])

	gross, err := f.GetCellValue(rentsSheet, "F3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "159.9", gross)
}

func TestRentsWorkbook_Empty(t *testing.T) {
	f, err := RentsWorkbook(nil, "Rents", time.Now())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(rentsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExporter_Rents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	logger := zerolog.Nop()
	e := NewExporter(dir, &logger)
	e.now = func() time.Time { return time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC) }

	path, err := e.Rents(testRows(), "Rents")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rents_export_2025-01-11_08-00-00.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(rentsSheet, "G3")
	require.NoError(t, err)
	assert.Equal(t, "Piotr Kowalski", v)
}
