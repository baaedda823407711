package mapping

import (
	"fmt"
	"strings"
)

// Normalize prepares a name or context for exact-match lookups: trim, casefold
// and collapse internal whitespace. No partial or fuzzy matching happens on top
// of this.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

type Key struct {
	Name    string
	Context string
}

func NormalizedKey(name, context string) Key {
	return Key{Name: Normalize(name), Context: Normalize(context)}
}

// Entry is one override row: a source (name, context) pair rewritten to the
// target database's naming before lookup.
type Entry struct {
	SourceName    string
	SourceContext string
	TargetName    string
	TargetContext string

	// Source row in the mapping workbook, for audit messages.
	Row int
}

// Table is the immutable override lookup. Duplicate keys are last-write-wins.
type Table struct {
	entries map[Key]Entry
}

// NewTable builds the lookup from loaded rows. A row that names a source but
// leaves the target empty is an error: every mapping must be auditable, an
// explicit "unmapped" marker is not a skip.
func NewTable(entries []Entry) (*Table, error) {
	m := make(map[Key]Entry, len(entries))
	for _, e := range entries {
		src := strings.TrimSpace(e.SourceName)
		if src == "" {
			continue
		}
		if strings.TrimSpace(e.TargetName) == "" {
			return nil, fmt.Errorf("row %d: mapping for %q has an empty target name", e.Row, src)
		}
		m[NormalizedKey(e.SourceName, e.SourceContext)] = e
	}
	return &Table{entries: m}, nil
}

// Empty returns a table with no overrides, used when the mapping workbook is
// absent.
func Empty() *Table {
	return &Table{entries: map[Key]Entry{}}
}

// Lookup is exact-match only on the normalized key.
func (t *Table) Lookup(name, context string) (Entry, bool) {
	e, ok := t.entries[NormalizedKey(name, context)]
	return e, ok
}

func (t *Table) Len() int {
	return len(t.entries)
}
