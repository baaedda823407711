package persistence

import "fmt"

// whereNormalized appends an equality filter that folds the stored column the
// same way mapping.Normalize folds the query side: trim, casefold, collapse
// whitespace. Lookups stay exact-match; only whitespace and case are forgiven.
func whereNormalized(column string, argPos int) string {
	return fmt.Sprintf(` AND lower(regexp_replace(btrim(%s), '\s+', ' ', 'g')) = $%d`, column, argPos)
}
