package excel

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/weloop/lci-importer/modules/lci/domain/entities/mapping"
)

// LoadMappingFile reads the override workbook's first sheet into a mapping
// table. Expected columns: "source name", "source context", "target name",
// "target context". A missing file is not an error: the returned bool reports
// whether the file was found so callers can log the condition.
func LoadMappingFile(path string) (*mapping.Table, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return mapping.Empty(), false, nil
		}
		return nil, false, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, true, fmt.Errorf("open mapping workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, true, fmt.Errorf("mapping workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, true, fmt.Errorf("sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, true, fmt.Errorf("mapping workbook is empty")
	}

	cols := make(map[string]int, len(rows[0]))
	for i, c := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(c))] = i
	}
	for _, required := range []string{"source name", "target name"} {
		if _, ok := cols[required]; !ok {
			return nil, true, fmt.Errorf("mapping workbook is missing column %q", required)
		}
	}

	var entries []mapping.Entry
	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}
		get := func(name string) string {
			idx, ok := cols[name]
			if !ok {
				return ""
			}
			return cellAt(row, idx)
		}
		entries = append(entries, mapping.Entry{
			SourceName:    get("source name"),
			SourceContext: get("source context"),
			TargetName:    get("target name"),
			TargetContext: get("target context"),
			Row:           line,
		})
	}

	table, err := mapping.NewTable(entries)
	if err != nil {
		return nil, true, fmt.Errorf("mapping workbook: %w", err)
	}
	return table, true, nil
}
