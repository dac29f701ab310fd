package query

// Combine joins two predicates with the connective named by token. A nil
// operand is the identity, so criteria can be folded one by one.
func Combine(token string, left, right Node) Node {
	return fold(ParseConnective(token), []Node{left, right})
}
