package trailvtab

import "strings"

// Leading columns of every trail table. Catalog fields follow them.
const (
	UUIDColumn      = "uuid"
	TimestampColumn = "timestamp"

	// MaxColumns is the host engine's per-table column limit
	// (SQLite's default SQLITE_MAX_COLUMN).
	MaxColumns = 2000

	leadingColumns = 2
	separator      = ", "
)

// Catalog is the part of a store the schema builder reads.
type Catalog interface {
	NumFields() int
	FieldName(i int) (string, error)
}

// readCatalog returns the field names of c in catalog order.
func readCatalog(c Catalog) ([]string, error) {
	n := c.NumFields()
	if n+leadingColumns > MaxColumns {
		return nil, newResourceError("%s: %d fields exceed the %d column limit", ModuleName, n, MaxColumns-leadingColumns)
	}

	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := c.FieldName(i)
		if err != nil {
			return nil, newStoreError(err, "%s failed to read field %d", ModuleName, i)
		}
		names = append(names, name)
	}
	return names, nil
}

// BuildSchema returns the column list for a table over the given catalog:
//
//	uuid TEXT, timestamp INTEGER, f0, f1, …
//
// Field names are copied verbatim. The first pass sizes the result
// exactly; the second fills it.
func BuildSchema(fields []string) (string, error) {
	if len(fields)+leadingColumns > MaxColumns {
		return "", newResourceError("%s: %d fields exceed the %d column limit", ModuleName, len(fields), MaxColumns-leadingColumns)
	}

	leading := [leadingColumns]string{
		UUIDColumn + " TEXT",
		TimestampColumn + " INTEGER",
	}

	total := len(leading[0]) + len(separator) + len(leading[1])
	for _, f := range fields {
		total += len(separator) + len(f)
	}

	var b strings.Builder
	b.Grow(total)
	b.WriteString(leading[0])
	b.WriteString(separator)
	b.WriteString(leading[1])
	for _, f := range fields {
		b.WriteString(separator)
		b.WriteString(f)
	}
	return b.String(), nil
}

// Declaration returns the CREATE TABLE statement declared to the host.
// Columns past the first two are left untyped.
func Declaration(fields []string) (string, error) {
	cols, err := BuildSchema(fields)
	if err != nil {
		return "", err
	}
	return "CREATE TABLE t( " + cols + " );", nil
}
