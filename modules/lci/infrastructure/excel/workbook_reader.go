// Package excel reads LCI workbooks into domain records. The expected layout
// follows the tabular LCI template: each process is a row block starting with
// an "Activity" row, followed by key/value header rows (location, unit,
// reference product), an "Exchanges" marker, a column header row and one row
// per exchange until a blank row or the next block.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/weloop/lci-importer/modules/lci/domain/entities/record"
)

// CategorySeparator joins compartment paths in a single cell, e.g.
// "air::urban air close to ground".
const CategorySeparator = "::"

// ListWorkbooks returns the .xlsx files in dir in name order, skipping Office
// lock files.
func ListWorkbooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// ReadFile parses one workbook into process records. Any malformed header or
// row fails the whole file: a bad header invalidates every exchange beneath it,
// so partial recovery is not attempted.
func ReadFile(path string) ([]record.Process, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var processes []record.Process
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		parsed, err := parseSheet(sheet, rows)
		if err != nil {
			return nil, err
		}
		processes = append(processes, parsed...)
	}
	if len(processes) == 0 {
		return nil, fmt.Errorf("no process blocks found in %s", filepath.Base(path))
	}
	return processes, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseSheet(sheet string, rows [][]string) ([]record.Process, error) {
	var processes []record.Process
	var cur *record.Process
	var cols map[string]int
	inExchanges := false

	flush := func(endRow int) error {
		if cur == nil {
			return nil
		}
		if cur.Unit == "" {
			return fmt.Errorf("sheet %q: process %q has no unit (block ending at row %d)", sheet, cur.Name, endRow)
		}
		processes = append(processes, *cur)
		cur = nil
		cols = nil
		inExchanges = false
		return nil
	}

	for i, row := range rows {
		line := i + 1
		if isBlank(row) {
			// blank row closes the exchange list but not the block; headers may
			// be spaced out in hand-written sheets
			if inExchanges {
				if err := flush(line); err != nil {
					return nil, err
				}
			}
			continue
		}

		key := strings.ToLower(cellAt(row, 0))
		switch {
		case key == "database" && !inExchanges:
			// sheet-declared database label; the configured foreground name wins
			continue
		case key == "activity":
			if err := flush(line); err != nil {
				return nil, err
			}
			name := cellAt(row, 1)
			if name == "" {
				return nil, fmt.Errorf("sheet %q row %d: activity name is required", sheet, line)
			}
			cur = &record.Process{Name: name, Sheet: sheet}
			continue
		case key == "exchanges":
			if cur == nil {
				return nil, fmt.Errorf("sheet %q row %d: exchanges before any activity header", sheet, line)
			}
			if cur.Name == "" {
				return nil, fmt.Errorf("sheet %q row %d: process name is required", sheet, line)
			}
			if cur.Unit == "" {
				return nil, fmt.Errorf("sheet %q row %d: process %q has no unit", sheet, line, cur.Name)
			}
			inExchanges = true
			cols = nil
			continue
		}

		if cur == nil {
			return nil, fmt.Errorf("sheet %q row %d: unexpected row before activity header", sheet, line)
		}

		if !inExchanges {
			value := cellAt(row, 1)
			switch key {
			case "location":
				cur.Location = value
			case "unit":
				cur.Unit = value
			case "reference product":
				cur.ReferenceProduct = value
			case "comment", "description", "source":
				// free-text metadata, not part of the exchange graph
			default:
				return nil, fmt.Errorf("sheet %q row %d: unknown header field %q", sheet, line, cellAt(row, 0))
			}
			continue
		}

		if cols == nil {
			header, err := exchangeColumns(sheet, line, row)
			if err != nil {
				return nil, err
			}
			cols = header
			continue
		}

		ex, err := parseExchangeRow(sheet, line, row, cols, cur.Name)
		if err != nil {
			return nil, err
		}
		cur.Exchanges = append(cur.Exchanges, ex)
	}

	if err := flush(len(rows)); err != nil {
		return nil, err
	}
	return processes, nil
}

func exchangeColumns(sheet string, line int, row []string) (map[string]int, error) {
	cols := make(map[string]int, len(row))
	for i, c := range row {
		name := strings.ToLower(strings.TrimSpace(c))
		if name == "" {
			continue
		}
		cols[name] = i
	}
	for _, required := range []string{"name", "amount", "type"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("sheet %q row %d: exchange header is missing column %q", sheet, line, required)
		}
	}
	return cols, nil
}

func parseExchangeRow(sheet string, line int, row []string, cols map[string]int, processName string) (record.RawExchangeRow, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return cellAt(row, i)
	}

	name := get("name")
	if name == "" {
		return record.RawExchangeRow{}, fmt.Errorf("sheet %q row %d: exchange name is required", sheet, line)
	}

	exType, err := record.ParseExchangeType(strings.ToLower(get("type")))
	if err != nil {
		return record.RawExchangeRow{}, fmt.Errorf("sheet %q row %d: %w", sheet, line, err)
	}

	amount, err := strconv.ParseFloat(get("amount"), 64)
	if err != nil {
		return record.RawExchangeRow{}, fmt.Errorf("sheet %q row %d: amount: %w", sheet, line, err)
	}

	var categories []string
	if raw := get("categories"); raw != "" {
		for _, part := range strings.Split(raw, CategorySeparator) {
			categories = append(categories, strings.TrimSpace(part))
		}
	}

	return record.RawExchangeRow{
		ProcessName:      processName,
		Name:             name,
		Type:             exType,
		Amount:           amount,
		Unit:             get("unit"),
		Categories:       categories,
		Location:         get("location"),
		ReferenceProduct: get("reference product"),
		Sheet:            sheet,
		Row:              line,
	}, nil
}
