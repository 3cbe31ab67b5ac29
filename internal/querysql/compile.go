// Package querysql compiles queryir queries to parameterized SQLite SQL over
// the record store's entity-attribute-value tables.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/crmbdd/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// Compiled queries return record ids only; the store loads attribute values
// in a second pass. Every query includes ORDER BY for deterministic results
// and all values are parameterized, never interpolated.
type SQLCompiler struct {
	RecordsTable string
	ValuesTable  string
}

// NewSQLCompiler creates a new SQLCompiler over the default table names.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		RecordsTable: "records",
		ValuesTable:  "record_values",
	}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if q.From == "" {
		return "", nil, fmt.Errorf("select without entity")
	}

	where := "r.entity = ?"
	params := []any{q.From}

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if filterSQL != "" {
			where += " AND " + filterSQL
			params = append(params, filterParams...)
		}
	}

	sql := fmt.Sprintf("SELECT r.id FROM %s r WHERE %s ORDER BY %s",
		c.RecordsTable, where, stableOrderKey())

	if q.Top > 0 {
		sql += " LIMIT ?"
		params = append(params, int64(q.Top))
	}

	return sql, params, nil
}

// stableOrderKey orders by creation sequence with the id as tiebreaker.
// COLLATE BINARY ensures deterministic text ordering across SQLite versions.
func stableOrderKey() string {
	return "r.seq ASC, r.id ASC COLLATE BINARY"
}

// compilePredicate returns an empty fragment for predicates that are always
// true.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.NotIn:
		return c.compileNotIn(pred)
	case *queryir.NotIn:
		return c.compileNotIn(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := Param(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	if param == nil {
		return "", nil, fmt.Errorf("field %s: equality against null", eq.Field)
	}

	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM %s v WHERE v.record_id = r.id AND v.attribute = ? AND v.value = ?)",
		c.ValuesTable)
	return sql, []any{eq.Field, param}, nil
}

func (c *SQLCompiler) compileNotIn(n queryir.NotIn) (string, []any, error) {
	if len(n.Values) == 0 {
		return "", nil, nil
	}

	params := []any{n.Field}
	placeholders := make([]string, 0, len(n.Values))
	for _, v := range n.Values {
		param, err := Param(v)
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", n.Field, err)
		}
		params = append(params, param)
		placeholders = append(placeholders, "?")
	}

	sql := fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s v WHERE v.record_id = r.id AND v.attribute = ? AND v.value IN (%s))",
		c.ValuesTable, strings.Join(placeholders, ", "))
	return sql, params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}
