package patient

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
)

const rosterSheet = "Patients"

// columnName converts a 0-based column index to spreadsheet letters.
func columnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

// NewRosterWorkbook lays patients out in CSVHeader order on one sheet.
func NewRosterWorkbook(patients []*Patient) *excelize.File {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", rosterSheet)

	for col, h := range CSVHeader {
		file.SetCellValue(rosterSheet, fmt.Sprintf("%s1", columnName(col)), h)
	}
	for i, p := range patients {
		row := i + 2
		for col, v := range Record(p) {
			file.SetCellValue(rosterSheet, fmt.Sprintf("%s%d", columnName(col), row), v)
		}
	}
	return file
}

func WriteXLSX(w io.Writer, patients []*Patient) error {
	if err := NewRosterWorkbook(patients).Write(w); err != nil {
		return fmt.Errorf("patient xlsx: %w", err)
	}
	return nil
}
