package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query builds a collection reference in the record store's filter dialect,
// e.g. orders?order_number=eq.T0101ABCD&select=*&limit=1.
type Query struct {
	table  string
	params []string
}

// From starts a query against table.
func From(table string) *Query {
	return &Query{table: table}
}

// Table returns the collection name.
func (q *Query) Table() string {
	return q.table
}

func (q *Query) filter(column, op string, value any) *Query {
	q.params = append(q.params, column+"="+op+"."+url.QueryEscape(formatValue(value)))
	return q
}

// Eq adds an equality filter.
func (q *Query) Eq(column string, value any) *Query { return q.filter(column, "eq", value) }

// Gte adds a greater-or-equal filter.
func (q *Query) Gte(column string, value any) *Query { return q.filter(column, "gte", value) }

// Lt adds a strictly-less filter.
func (q *Query) Lt(column string, value any) *Query { return q.filter(column, "lt", value) }

// In adds a membership filter.
func (q *Query) In(column string, values ...string) *Query {
	escaped := make([]string, 0, len(values))
	for _, v := range values {
		escaped = append(escaped, url.QueryEscape(v))
	}
	q.params = append(q.params, column+"=in.("+strings.Join(escaped, ",")+")")
	return q
}

// Select restricts returned columns, including embedded relations.
func (q *Query) Select(columns string) *Query {
	q.params = append(q.params, "select="+url.QueryEscape(columns))
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.params = append(q.params, "order="+column+"."+dir)
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	q.params = append(q.params, "limit="+strconv.Itoa(n))
	return q
}

// String renders the resource path consumed by Client.Request.
func (q *Query) String() string {
	if len(q.params) == 0 {
		return q.table
	}
	return q.table + "?" + strings.Join(q.params, "&")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case nil:
		return "null"
	default:
		return fmt.Sprint(val)
	}
}
