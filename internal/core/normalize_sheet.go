package core

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// normalizeSpreadsheet reads the first sheet of a workbook. Cells are taken
// as displayed (number formats applied). Blank rows and cells before the
// last non-blank one are kept as empty values, trailing ones are dropped.
func normalizeSpreadsheet(data []byte, ext string) (*NormalizedFile, error) {
	var (
		rows []Row
		err  error
	)
	if ext == ".xls" {
		rows, err = readXLS(data)
	} else {
		rows, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}

	nf := &NormalizedFile{Rows: rows}
	if len(rows) > 0 {
		nf.Header = rows[0]
	}
	return nf, nil
}

func readXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return collectRows(len(cells), func(i int) Row { return cells[i] }), nil
}

func readXLS(data []byte) (rows []Row, err error) {
	// The BIFF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, nil
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("first sheet unreadable")
	}

	return collectRows(int(sheet.MaxRow)+1, func(i int) Row {
		r := sheet.Row(i)
		if r == nil {
			return nil
		}
		row := make(Row, 0, r.LastCol()+1)
		for c := 0; c <= r.LastCol(); c++ {
			row = append(row, r.Col(c))
		}
		return row
	}), nil
}

// collectRows builds the rows of a sheet with n row slots. rowAt returns
// nil for a row the workbook does not store; it becomes an empty row like
// any other blank row. Blank rows after the last non-blank one are dropped.
func collectRows(n int, rowAt func(i int) Row) []Row {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		row := trimTrailingBlank(rowAt(i))
		if row == nil {
			row = Row{}
		}
		rows = append(rows, row)
	}
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func trimTrailingBlank(row Row) Row {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}
