// Package excel converts between .xlsx byte buffers and the plain
// [][]string grid the sheet engine works with. Only the first worksheet
// of an uploaded workbook is read; exports always produce a single
// "Sheet1" worksheet.
package excel

import (
	"bytes"
	"errors"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidFile = errors.New("Invalid Excel file")

// Decode reads the first sheet of an xlsx/xls workbook into a grid of
// stringified cell values. Row 0 is the header row. A malformed buffer
// yields ErrInvalidFile.
func Decode(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidFile
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrInvalidFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, ErrInvalidFile
	}
	return rows, nil
}

// Encode writes a grid (row 0 = headers) into an xlsx workbook buffer.
func Encode(grid [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, row := range grid {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		// SetSheetRow wants a slice of interface{}
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
