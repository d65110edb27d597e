package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skirental/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const rentsSheet = "Rents"

var rentHeaders = []string{
	"ID", "Identifier", "Issued at", "Status", "Total netto", "Total brutto", "Client", "Employer",
}

// Exporter writes listing exports as XLSX workbooks into a directory.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger, now: time.Now}
}

// Rents saves the rows as a workbook and returns the file path.
func (e *Exporter) Rents(rows []models.RentRecord, title string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	now := e.now()
	f, err := RentsWorkbook(rows, title, now)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.dir, RentsFileName(now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", path).Int("rows", len(rows)).Msg("Rents export created")
	return path, nil
}

func RentsFileName(at time.Time) string {
	return fmt.Sprintf("rents_export_%s.xlsx", at.Format("2006-01-02_15-04-05"))
}

// RentsWorkbook lays out the rents listing: a title row, a header row and one row per rent.
// Prices are written in major units with two decimals.
func RentsWorkbook(rows []models.RentRecord, title string, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(rentsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(rentsSheet, "A1", fmt.Sprintf("%s (%s)", title, generatedAt.Format("02.01.2006 15:04")))
	lastCol, _ := excelize.ColumnNumberToName(len(rentHeaders))
	_ = f.MergeCell(rentsSheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(rentsSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range rentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(rentsSheet, cell, header)
		_ = f.SetCellStyle(rentsSheet, cell, cell, headerStyle)
	}

	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})
	for i, r := range rows {
		row := i + 3
		values := []interface{}{
			r.ID,
			r.IssuedIdentifier,
			r.IssuedAt.Format("02.01.2006 15:04"),
			r.Status,
			minorToMajor(r.TotalNetPrice),
			minorToMajor(r.TotalGrossPrice),
			r.Client,
			r.Employer,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(rentsSheet, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("error writing rent %d: %w", r.ID, err)
			}
		}
		from, _ := excelize.CoordinatesToCellName(5, row)
		to, _ := excelize.CoordinatesToCellName(6, row)
		_ = f.SetCellStyle(rentsSheet, from, to, moneyStyle)
	}

	_ = f.SetColWidth(rentsSheet, "A", "A", 8)
	_ = f.SetColWidth(rentsSheet, "B", "B", 26)
	_ = f.SetColWidth(rentsSheet, "C", "D", 18)
	_ = f.SetColWidth(rentsSheet, "E", "F", 14)
	_ = f.SetColWidth(rentsSheet, "G", "H", 24)

	return f, nil
}

func minorToMajor(v int64) float64 {
	return float64(v) / 100
}
