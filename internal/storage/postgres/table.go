package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"

	"github.com/baseplate/querykit/internal/core/query"
)

// Table describes how rows of one table map to T.
type Table[T any] struct {
	DB      *sql.DB
	Name    string
	Select  []string
	Columns Columns
	Scan    func(rows *sql.Rows) (T, error)
}

// Query starts a lazily built query over the whole table.
func (t *Table[T]) Query() *Query[T] {
	return &Query[T]{table: t}
}

// layer is one SELECT. Instructions that cannot follow a LIMIT or OFFSET in
// the same statement open a new layer wrapping the previous one.
type layer struct {
	where  []query.Node
	order  []query.SortSpec
	offset int
	limit  int
}

func (l layer) sliced() bool {
	return l.offset > 0 || l.limit >= 0
}

// Query is a query.Queryable backed by SQL. Nothing is sent to the database
// until Count or List.
type Query[T any] struct {
	table  *Table[T]
	layers []layer
}

func (q *Query[T]) top() (layer, bool) {
	if len(q.layers) == 0 {
		return layer{limit: -1}, false
	}
	return q.layers[len(q.layers)-1], true
}

func (q *Query[T]) replaceTop(l layer, existed bool) *Query[T] {
	layers := make([]layer, 0, len(q.layers)+1)
	layers = append(layers, q.layers...)
	if existed {
		layers[len(layers)-1] = l
	} else {
		layers = append(layers, l)
	}
	return &Query[T]{table: q.table, layers: layers}
}

func (q *Query[T]) push(l layer) *Query[T] {
	layers := make([]layer, 0, len(q.layers)+1)
	layers = append(append(layers, q.layers...), l)
	return &Query[T]{table: q.table, layers: layers}
}

func (q *Query[T]) Where(n query.Node) query.Queryable[T] {
	if n == nil {
		return q
	}
	cur, ok := q.top()
	if cur.sliced() {
		return q.push(layer{where: []query.Node{n}, limit: -1})
	}
	cur.where = append(append([]query.Node{}, cur.where...), n)
	return q.replaceTop(cur, ok)
}

// OrderBy keeps earlier keys as tie-breakers, matching a stable sort.
func (q *Query[T]) OrderBy(s query.SortSpec) query.Queryable[T] {
	cur, ok := q.top()
	if cur.sliced() {
		return q.push(layer{order: []query.SortSpec{s}, limit: -1})
	}
	cur.order = append([]query.SortSpec{s}, cur.order...)
	return q.replaceTop(cur, ok)
}

func (q *Query[T]) Skip(n int) query.Queryable[T] {
	if n <= 0 {
		return q
	}
	cur, ok := q.top()
	if cur.limit >= 0 {
		return q.push(layer{offset: n, limit: -1})
	}
	if cur.offset > math.MaxInt-n {
		cur.offset = math.MaxInt
	} else {
		cur.offset += n
	}
	return q.replaceTop(cur, ok)
}

func (q *Query[T]) Take(n int) query.Queryable[T] {
	n = max(n, 0)
	cur, ok := q.top()
	if cur.limit >= 0 {
		cur.limit = min(cur.limit, n)
	} else {
		cur.limit = n
	}
	return q.replaceTop(cur, ok)
}

// SQL renders the statement and its parameters.
func (q *Query[T]) SQL() (string, []any, error) {
	b := NewBuilder(q.table.Columns)

	quoted := make([]string, len(q.table.Select))
	for i, c := range q.table.Select {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), pq.QuoteIdentifier(q.table.Name))

	for i, l := range q.layers {
		if i > 0 {
			stmt = fmt.Sprintf("SELECT * FROM (%s) AS q%d", stmt, i)
		}

		var sb strings.Builder
		sb.WriteString(stmt)
		if len(l.where) > 0 {
			cond, err := b.Where(query.AllOf(l.where...))
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(" WHERE ")
			sb.WriteString(cond)
		}
		if len(l.order) > 0 {
			keys := make([]string, len(l.order))
			for j, s := range l.order {
				key, err := b.OrderBy(s)
				if err != nil {
					return "", nil, err
				}
				keys[j] = key
			}
			sb.WriteString(" ORDER BY ")
			sb.WriteString(strings.Join(keys, ", "))
		}
		if l.limit >= 0 {
			sb.WriteString(" LIMIT " + b.Arg(l.limit))
		}
		if l.offset > 0 {
			sb.WriteString(" OFFSET " + b.Arg(l.offset))
		}
		stmt = sb.String()
	}
	return stmt, b.Args(), nil
}

func (q *Query[T]) Count(ctx context.Context) (int, error) {
	stmt, args, err := q.SQL()
	if err != nil {
		return 0, err
	}
	var total int
	if err := q.table.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+stmt+") AS counted", args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (q *Query[T]) List(ctx context.Context) ([]T, error) {
	stmt, args, err := q.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.table.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := q.table.Scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
