package pg

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dropDatabas3/connkeeper/internal/store"
)

// validIdentifier valida nombres de columna. Sólo minúsculas, números y underscores.
var validIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func sortedColumns(fields store.Document) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for k := range fields {
		if !validIdentifier.MatchString(k) {
			return nil, fmt.Errorf("pg: invalid column %q", k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

// buildUpdate arma UPDATE ... SET c1 = $1, ... WHERE id = $n.
func buildUpdate(table, id string, fields store.Document) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("pg: empty update")
	}
	cols, err := sortedColumns(fields)
	if err != nil {
		return "", nil, err
	}
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
		args = append(args, fields[c])
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, table, strings.Join(sets, ", "), len(args))
	return query, args, nil
}

// buildInsert arma INSERT INTO t (c1, ...) VALUES ($1, ...). Omite valores nil.
func buildInsert(table string, doc store.Document) (string, []any, error) {
	present := store.Document{}
	for k, v := range doc {
		if v != nil {
			present[k] = v
		}
	}
	cols, err := sortedColumns(present)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("pg: empty insert")
	}
	ph := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = present[c]
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(cols, ", "), strings.Join(ph, ", "))
	return query, args, nil
}
