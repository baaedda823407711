package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMappingFile_MissingFileIsEmptyTable(t *testing.T) {
	table, found, err := LoadMappingFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 0, table.Len())
}

func TestLoadMappingFile_ReadsEntries(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Source name", "Source context", "Target name", "Target context"},
		{"Carbon dioxide", "air", "Carbon dioxide, fossil", "air::unspecified"},
		{},
		{"Methane", "", "Methane, fossil", ""},
	})

	table, found, err := LoadMappingFile(path)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, table.Len())

	entry, ok := table.Lookup("carbon DIOXIDE", "Air")
	require.True(t, ok)
	require.Equal(t, "Carbon dioxide, fossil", entry.TargetName)
	require.Equal(t, "air::unspecified", entry.TargetContext)
	require.Equal(t, 2, entry.Row)

	_, ok = table.Lookup("Methane", "")
	require.True(t, ok)
}

func TestLoadMappingFile_MissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Source name", "Comment"},
		{"Carbon dioxide", "whatever"},
	})

	_, found, err := LoadMappingFile(path)
	require.True(t, found)
	require.Error(t, err)
	require.Contains(t, err.Error(), `missing column "target name"`)
}

func TestLoadMappingFile_EmptyTargetFailsWithRow(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Source name", "Target name"},
		{"Carbon dioxide", "Carbon dioxide, fossil"},
		{"Methane", ""},
	})

	_, found, err := LoadMappingFile(path)
	require.True(t, found)
	require.Error(t, err)
	require.Contains(t, err.Error(), "row 3")
}
