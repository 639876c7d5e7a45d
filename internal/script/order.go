package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Order is the sequence of mode selectors consumed by the movie-viewing
// phase, one entry per clip, strictly in order.
type Order []Pair

// DefaultOrder returns the order used when none is configured.
func DefaultOrder() Order {
	return Order{{0, 0}, {1, 0}, {1, 1}, {1, 0}}
}

func (o Order) String() string {
	parts := make([]string, len(o))
	for i, p := range o {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Modes decodes every entry.
func (o Order) Modes() []Mode {
	modes := make([]Mode, len(o))
	for i, p := range o {
		modes[i] = DecodeMode(p)
	}
	return modes
}

// ErrNoOrder is returned when no order was supplied at all.
var ErrNoOrder = errors.New("no segmentation order supplied")

// ParseError describes where an order literal stopped matching the grammar.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid segmentation order %q: %s at offset %d", e.Input, e.Msg, e.Pos)
}

// ParseOrder parses a literal such as "[(0, 0), (1, 0)]".
//
// Grammar: the outer list uses [] or (), each pair uses [] or () and holds
// exactly two signed decimal integers. Whitespace and a trailing comma are
// allowed. Anything else is a *ParseError. An empty list is rejected.
func ParseOrder(s string) (Order, error) {
	p := &orderParser{s: s}

	p.skipSpace()
	open := p.peek()
	if open != '[' && open != '(' {
		return nil, p.errorf("expected '[' or '('")
	}
	p.pos++
	end := closer(open)

	var order Order
	for {
		p.skipSpace()
		if p.peek() == end {
			p.pos++
			break
		}
		pair, err := p.parsePair()
		if err != nil {
			return nil, err
		}
		order = append(order, pair)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case end:
		default:
			return nil, p.errorf(fmt.Sprintf("expected ',' or '%c'", end))
		}
	}

	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errorf("unexpected trailing input")
	}
	if len(order) == 0 {
		return nil, p.errorf("empty order")
	}
	return order, nil
}

type orderParser struct {
	s   string
	pos int
}

func (p *orderParser) errorf(msg string) *ParseError {
	if p.pos >= len(p.s) {
		msg = "unexpected end of input, " + msg
	}
	return &ParseError{Input: p.s, Pos: p.pos, Msg: msg}
}

func (p *orderParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *orderParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *orderParser) parsePair() (Pair, error) {
	open := p.peek()
	if open != '(' && open != '[' {
		return Pair{}, p.errorf("expected '(' or '['")
	}
	p.pos++

	first, err := p.parseInt()
	if err != nil {
		return Pair{}, err
	}
	p.skipSpace()
	if p.peek() != ',' {
		return Pair{}, p.errorf("expected ','")
	}
	p.pos++
	second, err := p.parseInt()
	if err != nil {
		return Pair{}, err
	}

	p.skipSpace()
	if p.peek() == ',' {
		p.pos++
		p.skipSpace()
	}
	if p.peek() != closer(open) {
		return Pair{}, p.errorf(fmt.Sprintf("expected '%c'", closer(open)))
	}
	p.pos++
	return Pair{Primary: first, Secondary: second}, nil
}

func (p *orderParser) parseInt() (int, error) {
	p.skipSpace()
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	digits := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == digits {
		p.pos = start
		return 0, p.errorf("expected integer")
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		p.pos = start
		return 0, p.errorf("integer out of range")
	}
	return n, nil
}

func closer(open byte) byte {
	if open == '(' {
		return ')'
	}
	return ']'
}

// OrderFromNode decodes an order from a YAML value. The value is either a
// literal string accepted by ParseOrder or a sequence of two-integer sequences.
func OrderFromNode(node *yaml.Node) (Order, error) {
	if node == nil || node.Kind == 0 {
		return nil, ErrNoOrder
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.TrimSpace(node.Value) == "" {
			return nil, ErrNoOrder
		}
		return ParseOrder(node.Value)
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("line %d: empty segmentation order", node.Line)
		}
		order := make(Order, 0, len(node.Content))
		for _, item := range node.Content {
			var values []int
			if err := item.Decode(&values); err != nil {
				return nil, fmt.Errorf("line %d: invalid order entry: %w", item.Line, err)
			}
			if len(values) != 2 {
				return nil, fmt.Errorf("line %d: order entry must have 2 integers, got %d", item.Line, len(values))
			}
			order = append(order, Pair{Primary: values[0], Secondary: values[1]})
		}
		return order, nil
	}
	return nil, fmt.Errorf("line %d: segmentation order must be a string or a list", node.Line)
}

// OrderSource records where a resolved order came from.
type OrderSource string

const (
	OrderFromFlag    OrderSource = "flag"
	OrderFromConfig  OrderSource = "config"
	OrderFromDefault OrderSource = "default"
)

// ResolveOrder picks the command-line literal if it parses, then the
// configured value, then DefaultOrder. The returned error is non-nil
// whenever a supplied value was rejected or the default had to be used;
// the order is always usable.
func ResolveOrder(literal string, configured *yaml.Node) (Order, OrderSource, error) {
	var errs []error

	if strings.TrimSpace(literal) != "" {
		order, err := ParseOrder(literal)
		if err == nil {
			return order, OrderFromFlag, nil
		}
		errs = append(errs, fmt.Errorf("flag: %w", err))
	}

	order, err := OrderFromNode(configured)
	if err == nil {
		return order, OrderFromConfig, errors.Join(errs...)
	}
	errs = append(errs, fmt.Errorf("config: %w", err))

	return DefaultOrder(), OrderFromDefault, errors.Join(errs...)
}
