package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/baseplate/querykit/internal/core/query"
)

var ErrUnmappedField = errors.New("field has no column mapping")

// Column is the SQL form of one source field.
type Column struct {
	// Expr is the SQL expression selecting the value.
	Expr string
	// Text renders the value the way in-memory text comparisons see it.
	// Defaults to a plain cast.
	Text string
	// Textual columns compare byte-wise (COLLATE "C").
	Textual bool
}

func (c Column) text() string {
	if c.Text != "" {
		return c.Text
	}
	if c.Textual {
		return c.Expr
	}
	return "(" + c.Expr + ")::text"
}

func collate(expr string) string {
	return expr + ` COLLATE "C"`
}

// TimeColumn renders timestamps as "YYYY-MM-DD HH24:MI:SS" in UTC for text
// comparisons.
func TimeColumn(expr string) Column {
	return Column{
		Expr: expr,
		Text: fmt.Sprintf("to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD HH24:MI:SS')", expr),
	}
}

// EnumColumn maps an integer column to the names at each index for text
// comparisons.
func EnumColumn(expr string, names []string) Column {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(expr)
	for i, name := range names {
		fmt.Fprintf(&b, " WHEN %d THEN %s", i, pq.QuoteLiteral(name))
	}
	b.WriteString(" END")
	return Column{Expr: expr, Text: b.String()}
}

// Columns maps dotted Go field paths (as printed by query.Path) to columns.
type Columns map[string]Column

func (c Columns) lookup(p query.Path) (Column, error) {
	col, ok := c[p.String()]
	if !ok {
		return Column{}, fmt.Errorf("%w: %s", ErrUnmappedField, p)
	}
	return col, nil
}

// Builder lowers predicate trees and sort specs into SQL fragments with
// positional parameters.
type Builder struct {
	cols Columns
	args []any
}

func NewBuilder(cols Columns) *Builder {
	return &Builder{cols: cols}
}

// Args returns the parameters referenced so far, in placeholder order.
func (b *Builder) Args() []any {
	return b.args
}

// Arg registers v and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Where lowers n. A nil node is TRUE.
func (b *Builder) Where(n query.Node) (string, error) {
	switch n := n.(type) {
	case nil:
		return "TRUE", nil
	case query.Compare:
		return b.compare(n)
	case query.NotNull:
		col, err := b.cols.lookup(n.Path)
		if err != nil {
			return "", err
		}
		return col.Expr + " IS NOT NULL", nil
	case query.Logical:
		left, err := b.Where(n.Left)
		if err != nil {
			return "", err
		}
		right, err := b.Where(n.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " " + n.Op.String() + " " + right + ")", nil
	case query.Not:
		inner, err := b.Where(n.Node)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	}
	return "", fmt.Errorf("unsupported predicate node %T", n)
}

func (b *Builder) compare(c query.Compare) (string, error) {
	col, err := b.cols.lookup(c.Path)
	if err != nil {
		return "", err
	}

	if c.Value == nil {
		switch c.Op {
		case query.OpEqual:
			return col.Expr + " IS NULL", nil
		case query.OpNotEqual, query.OpLike:
			return col.Expr + " IS NOT NULL", nil
		}
		return "FALSE", nil
	}

	switch c.Op {
	case query.OpLike:
		return fmt.Sprintf("strpos(%s, %s) > 0", col.text(), b.Arg(fmt.Sprint(c.Value))), nil
	case query.OpNotLike:
		return fmt.Sprintf("strpos(%s, %s) = 0", col.text(), b.Arg(fmt.Sprint(c.Value))), nil
	case query.OpAnd:
		return fmt.Sprintf("(%s AND %s)", col.Expr, b.Arg(c.Value)), nil
	case query.OpOr:
		return fmt.Sprintf("(%s OR %s)", col.Expr, b.Arg(c.Value)), nil
	}

	op, err := sqlOperator(c.Op)
	if err != nil {
		return "", err
	}
	if c.AsText {
		return fmt.Sprintf("%s %s %s", collate(col.text()), op, b.Arg(fmt.Sprint(c.Value))), nil
	}
	left := col.Expr
	if _, ok := c.Value.(string); ok && col.Textual {
		left = collate(left)
	}
	return fmt.Sprintf("%s %s %s", left, op, b.Arg(c.Value)), nil
}

func sqlOperator(op query.Operator) (string, error) {
	switch op {
	case query.OpEqual:
		return "=", nil
	case query.OpNotEqual:
		return "<>", nil
	case query.OpLess, query.OpGreater, query.OpLessOrEqual, query.OpGreaterOrEqual:
		return string(op), nil
	}
	return "", fmt.Errorf("%w: %s", query.ErrUnsupportedOperator, op)
}

// OrderBy lowers s. Nulls come first in ascending order.
func (b *Builder) OrderBy(s query.SortSpec) (string, error) {
	col, err := b.cols.lookup(s.Path)
	if err != nil {
		return "", err
	}
	expr := col.Expr
	if col.Textual {
		expr = collate(expr)
	}
	if s.Descending {
		return expr + " DESC NULLS LAST", nil
	}
	return expr + " ASC NULLS FIRST", nil
}
