package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

func NewInsertBuilder() *sqlbuilder.InsertBuilder {
	return sqlbuilder.PostgreSQL.NewInsertBuilder()
}

func NewUpdateBuilder() *sqlbuilder.UpdateBuilder {
	return sqlbuilder.PostgreSQL.NewUpdateBuilder()
}

func NewSelectBuilder() *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder()
}

func NewDeleteBuilder() *sqlbuilder.DeleteBuilder {
	return sqlbuilder.PostgreSQL.NewDeleteBuilder()
}

// EqualFold matches column against value case-insensitively after trimming both sides.
func EqualFold(sb *sqlbuilder.SelectBuilder, column string, value string) string {
	return fmt.Sprintf("LOWER(TRIM(%s)) = LOWER(TRIM(%s))", column, sb.Var(value))
}

// Contains is a case-insensitive substring match.
func Contains(sb *sqlbuilder.SelectBuilder, column string, value string) string {
	return fmt.Sprintf("%s ILIKE %s", column, sb.Var("%"+escapeLike(strings.TrimSpace(value))+"%"))
}

// TrigramThreshold is pg_trgm.similarity_threshold's default, the cutoff the `%` operator applies.
const TrigramThreshold = 0.3

// Similar is the pg_trgm predicate `similarity(column, value) > floor`. Floors at or
// above TrigramThreshold are prefixed with `column % value` so a gin_trgm_ops index
// on column can serve the scan.
func Similar(sb *sqlbuilder.SelectBuilder, column string, value string, floor float64) string {
	if floor < TrigramThreshold {
		return fmt.Sprintf("similarity(%s, %s) > %s", column, sb.Var(value), sb.Var(floor))
	}
	return fmt.Sprintf("%s %% %s AND similarity(%s, %s) > %s", column, sb.Var(value), column, sb.Var(value), sb.Var(floor))
}

// BulkUpdate builds a single UPDATE ... FROM (VALUES ...) statement that sets
// one column per row keyed by id. Values are cast with valueType so untyped
// placeholders resolve inside the VALUES list.
func BulkUpdate(table, keyColumn, keyType, column, valueType string, keys []any, values []any) (string, []any) {
	args := sqlbuilder.Args{Flavor: sqlbuilder.PostgreSQL}
	rows := make([]string, len(keys))
	for i := range keys {
		rows[i] = fmt.Sprintf("(%s::%s, %s::%s)", args.Add(keys[i]), keyType, args.Add(values[i]), valueType)
	}

	format := fmt.Sprintf(
		"UPDATE %s AS t SET %s = v.value, updated_at = NOW() FROM (VALUES %s) AS v(key, value) WHERE t.%s = v.key",
		table, column, strings.Join(rows, ", "), keyColumn,
	)

	return args.Compile(format)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
