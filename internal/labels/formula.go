package labels

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	arithmeticPattern  = regexp.MustCompile(`^[0-9+\-*/.\s()]+$`)

	ErrDivisionByZero = errors.New("division by zero")
)

// SubstitutePlaceholders replaces every ${key} with the dotted lookup of key
// in ctx. Missing keys become empty strings.
func SubstitutePlaceholders(formula string, ctx DataContext) string {
	return placeholderPattern.ReplaceAllStringFunc(formula, func(m string) string {
		key := strings.TrimSpace(m[2 : len(m)-1])
		v, ok := ctx.Lookup(key)
		if !ok {
			return ""
		}
		return stringify(v)
	})
}

// IsArithmetic reports whether s only contains digits, operators and parentheses.
func IsArithmetic(s string) bool {
	return arithmeticPattern.MatchString(s)
}

// EvaluateFormula substitutes placeholders and, when the result is pure
// arithmetic, evaluates it. Evaluation failures return the substituted text.
func EvaluateFormula(formula string, ctx DataContext) (string, error) {
	substituted := SubstitutePlaceholders(formula, ctx)
	if !IsArithmetic(substituted) {
		return substituted, nil
	}
	value, err := Evaluate(substituted)
	if err != nil {
		return substituted, err
	}
	return value.String(), nil
}

// Evaluate parses and computes an arithmetic expression over decimals.
// Supported: numbers, + - * /, unary minus/plus and parentheses.
func Evaluate(expr string) (decimal.Decimal, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return decimal.Zero, err
	}
	if len(tokens) == 0 {
		return decimal.Zero, errors.New("empty expression")
	}
	p := &parser{tokens: tokens}
	v, err := p.expr()
	if err != nil {
		return decimal.Zero, err
	}
	if p.pos != len(p.tokens) {
		return decimal.Zero, fmt.Errorf("unexpected %q at token %d", p.tokens[p.pos].text, p.pos)
	}
	return v, nil
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  decimal.Decimal
}

func tokenize(s string) ([]token, error) {
	var out []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			out = append(out, token{kind: tokOp, text: string(c)})
			i++
		case c == '(':
			out = append(out, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			out = append(out, token{kind: tokRParen, text: ")"})
			i++
		case (c >= '0' && c <= '9') || c == '.':
			start := i
			dots := 0
			for i < len(s) && ((s[i] >= '0' && s[i] <= '9') || s[i] == '.') {
				if s[i] == '.' {
					dots++
				}
				i++
			}
			text := s[start:i]
			if dots > 1 || text == "." {
				return nil, fmt.Errorf("malformed number %q", text)
			}
			// "5." is a valid literal
			n, err := decimal.NewFromString(strings.TrimSuffix(text, "."))
			if err != nil {
				return nil, fmt.Errorf("malformed number %q: %w", text, err)
			}
			out = append(out, token{kind: tokNumber, text: text, num: n})
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return out, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

// expr := term (('+' | '-') term)*
func (p *parser) expr() (decimal.Decimal, error) {
	left, err := p.term()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return decimal.Zero, err
		}
		if t.text == "+" {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) term() (decimal.Decimal, error) {
	left, err := p.unary()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return decimal.Zero, err
		}
		if t.text == "*" {
			left = left.Mul(right)
			continue
		}
		if right.IsZero() {
			return decimal.Zero, ErrDivisionByZero
		}
		left = left.Div(right)
	}
}

// unary := ('-' | '+') unary | primary.
func (p *parser) unary() (decimal.Decimal, error) {
	t, ok := p.peek()
	if ok && t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.pos++
		v, err := p.unary()
		if err != nil {
			return decimal.Zero, err
		}
		if t.text == "-" {
			return v.Neg(), nil
		}
		return v, nil
	}
	return p.primary()
}

// primary := number | '(' expr ')'
func (p *parser) primary() (decimal.Decimal, error) {
	t, ok := p.peek()
	if !ok {
		return decimal.Zero, errors.New("unexpected end of expression")
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		return t.num, nil
	case tokLParen:
		p.pos++
		v, err := p.expr()
		if err != nil {
			return decimal.Zero, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return decimal.Zero, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	return decimal.Zero, fmt.Errorf("unexpected %q", t.text)
}
