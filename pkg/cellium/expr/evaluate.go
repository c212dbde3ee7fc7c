package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// allowed is the character set accepted by Sanitize. Anything else is
// stripped before parsing, matching the untrusted-input posture of the
// view layer.
const allowed = "0123456789+-*/.() "

// Sanitize strips every character outside the arithmetic alphabet.
func Sanitize(expression string) string {
	var b strings.Builder
	b.Grow(len(expression))
	for _, c := range expression {
		if strings.ContainsRune(allowed, c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Eval sanitizes and evaluates an arithmetic expression.
// Supports +, -, *, /, unary minus, parentheses, and decimal literals.
func Eval(expression string) (float64, error) {
	p := &parser{input: Sanitize(expression)}
	v, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

// Format renders a result the way the wire expects: no exponent, no
// trailing zeros.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parser is a recursive descent parser over the sanitized input.
//
// Grammar:
//
//	expression = term   { ("+" | "-") term }
//	term       = factor { ("*" | "/") factor }
//	factor     = number | "(" expression ")" | "-" factor
type parser struct {
	input string
	pos   int
}

func (p *parser) parseExpression() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.peek() == '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.peek() == '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.peek() == '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek() == '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseFactor() (float64, error) {
	p.skipSpaces()
	switch {
	case p.peek() == '-':
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case p.peek() == '(':
		p.pos++
		v, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	default:
		return p.parseNumber()
	}
}

func (p *parser) parseNumber() (float64, error) {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	if start == p.pos {
		if p.pos < len(p.input) {
			return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
		}
		return 0, fmt.Errorf("unexpected end of expression")
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

// peek returns the current byte, or 0 at end of input.
func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
