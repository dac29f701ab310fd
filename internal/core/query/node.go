package query

import (
	"fmt"
	"strings"
)

// Node is a predicate tree over a source element type. Trees are immutable
// once built and can be shared between goroutines.
type Node interface {
	fmt.Stringer
	node()
}

// Connective joins two predicates.
type Connective int

const (
	And Connective = iota
	Or
)

func (c Connective) String() string {
	if c == Or {
		return "OR"
	}
	return "AND"
}

// Compare is a leaf comparison of the value at Path with a constant. A nil
// Value is the null constant. AsText compares the field's string form.
type Compare struct {
	Path   Path
	Op     Operator
	Value  any
	AsText bool
}

// NotNull guards an optional member on the way to a nested comparison.
type NotNull struct {
	Path Path
}

// Logical combines two predicates.
type Logical struct {
	Op    Connective
	Left  Node
	Right Node
}

// Not negates a predicate.
type Not struct {
	Node Node
}

func (Compare) node() {}
func (NotNull) node() {}
func (Logical) node() {}
func (Not) node()     {}

func (c Compare) String() string {
	left := c.Path.String()
	if c.AsText {
		left = "text(" + left + ")"
	}
	if c.Value == nil {
		return fmt.Sprintf("%s %s null", left, c.Op)
	}
	return fmt.Sprintf("%s %s %q", left, c.Op, fmt.Sprint(c.Value))
}

func (n NotNull) String() string {
	return n.Path.String() + " != null"
}

func (l Logical) String() string {
	return "(" + l.Left.String() + " " + l.Op.String() + " " + l.Right.String() + ")"
}

func (n Not) String() string {
	return "NOT " + n.Node.String()
}

// AllOf ANDs the non-nil nodes left to right; nil when none remain.
func AllOf(nodes ...Node) Node {
	return fold(And, nodes)
}

// AnyOf ORs the non-nil nodes left to right; nil when none remain.
func AnyOf(nodes ...Node) Node {
	return fold(Or, nodes)
}

func fold(op Connective, nodes []Node) Node {
	var acc Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if acc == nil {
			acc = n
			continue
		}
		acc = Logical{Op: op, Left: acc, Right: n}
	}
	return acc
}

// ParseConnective reads a connective token. Empty, "And", "AND", "and" and
// "&&" mean AND; any other token means OR.
func ParseConnective(token string) Connective {
	switch strings.TrimSpace(token) {
	case "", "And", "AND", "and", "&&":
		return And
	}
	return Or
}
