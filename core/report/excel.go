package report

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Reporte"

// renderExcel writes a title row, a styled header row built from the first record's field names,
// then one row per record.
func renderExcel(data exportData) ([]byte, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	if err := f.SetCellValue(sheetName, "A1", data.title); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, "A2", data.subtitle+" | Generado: "+data.generatedAt.Format("2006-01-02 15:04")); err != nil {
		return nil, err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, errors.Wrap(err, "creating title style")
	}
	if err = f.SetCellStyle(sheetName, "A1", "A1", titleStyle); err != nil {
		return nil, err
	}

	if len(data.records) == 0 {
		if err = f.SetCellValue(sheetName, "A4", emptyMessage); err != nil {
			return nil, err
		}
		return writeExcel(f)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1E3A8A"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	const headerRow = 4
	header := data.records[0]
	for col, fld := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, err
		}
		if err = f.SetCellValue(sheetName, cell, fld.Name); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(header), headerRow)
	if err = f.SetCellStyle(sheetName, first, last, headerStyle); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err = f.SetColWidth(sheetName, "A", lastCol, 22); err != nil {
		return nil, err
	}

	for i, rec := range data.records {
		for col, fld := range rec {
			cell, err := excelize.CoordinatesToCellName(col+1, headerRow+1+i)
			if err != nil {
				return nil, err
			}
			if err = f.SetCellValue(sheetName, cell, fld.Value); err != nil {
				return nil, err
			}
		}
	}
	return writeExcel(f)
}

func writeExcel(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}
