// Package literal parses the Python-literal notation mongostat's output is
// evaluated as: dicts, lists, tuples, quoted strings, numbers, True, False
// and None. Dict keys are normalized to strings the way a JSON encoder would
// render them, so parsed values can be re-serialized as JSON directly.
package literal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SyntaxError reports malformed literal input.
type SyntaxError struct {
	Offset int // byte offset into the input
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("literal: %s at offset %d", e.Msg, e.Offset)
}

// Parse parses one complete literal. Trailing non-whitespace input is an error.
//
// Result types: map[string]any, []any, string, int64, json.Number, float64,
// bool and nil. Integers that fit int64 are int64; larger integers and all
// finite floats are json.Number holding their exact text, so re-encoding
// keeps "1.0" and twenty-digit counters as written. Only infinities are
// float64.
func Parse(s string) (any, error) {
	p := &parser{src: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q after value", p.src[p.pos])
	}
	return v, nil
}

// ParseMapping parses a literal that must be a dict.
func ParseMapping(s string) (map[string]any, error) {
	v, err := Parse(s)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &SyntaxError{Offset: 0, Msg: fmt.Sprintf("expected mapping, got %T", v)}
	}
	return m, nil
}

// Order records the order in which a dict's keys first appeared, with the
// order of every nested dict value. Dicts inside lists and tuples are not
// tracked.
type Order struct {
	Keys   []string
	Nested map[string]*Order
}

// ParseMappingOrdered is ParseMapping that also reports key order.
func ParseMappingOrdered(s string) (map[string]any, *Order, error) {
	p := &parser{src: s, trackOrder: true}
	p.skipSpace()
	if p.peek() != '{' {
		v, err := p.value()
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, &SyntaxError{Offset: 0, Msg: fmt.Sprintf("expected mapping, got %T", v)}
	}
	v, err := p.value()
	if err != nil {
		return nil, nil, err
	}
	order := p.lastOrder
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, nil, p.errorf("unexpected %q after value", p.src[p.pos])
	}
	return v.(map[string]any), order, nil
}

type parser struct {
	src string
	pos int

	trackOrder bool
	lastOrder  *Order // order of the dict value() just returned, if any
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) value() (any, error) {
	p.lastOrder = nil
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '{':
		return p.dict()
	case c == '[':
		return p.sequence('[', ']')
	case c == '(':
		return p.tuple()
	case c == '\'' || c == '"':
		return p.strings()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.word()
	}
	return nil, p.errorf("unexpected %q", c)
}

func (p *parser) dict() (any, error) {
	p.pos++ // '{'
	out := map[string]any{}
	var order *Order
	if p.trackOrder {
		order = &Order{}
	}
	done := func() (any, error) {
		p.lastOrder = order
		return out, nil
	}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return done()
		}
		keyPos := p.pos
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		key, err := keyString(k)
		if err != nil {
			return nil, &SyntaxError{Offset: keyPos, Msg: err.Error()}
		}
		p.skipSpace()
		if p.peek() != ':' {
			if p.peek() == ',' || p.peek() == '}' {
				return nil, p.errorf("set literals are not supported")
			}
			return nil, p.errorf("expected ':' after dict key")
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if order != nil {
			if _, dup := out[key]; !dup {
				order.Keys = append(order.Keys, key)
			}
			if p.lastOrder != nil {
				if order.Nested == nil {
					order.Nested = map[string]*Order{}
				}
				order.Nested[key] = p.lastOrder
			} else {
				delete(order.Nested, key)
			}
		}
		out[key] = v

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return done()
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}
	}
}

func (p *parser) sequence(open, close byte) ([]any, error) {
	defer func() { p.lastOrder = nil }()
	p.pos++ // open
	out := []any{}
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case close:
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or %q in %q sequence", close, open)
		}
	}
}

// tuple handles both tuples and parenthesized expressions: "(1)" is 1,
// "(1,)" and "(1, 2)" are tuples. Tuples decode as []any.
func (p *parser) tuple() (any, error) {
	start := p.pos
	p.pos++
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return []any{}, nil
	}
	first, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return first, nil
	}
	if p.peek() != ',' {
		return nil, p.errorf("expected ',' or ')' in tuple")
	}
	// Re-parse as a sequence from the opening parenthesis.
	p.pos = start
	return p.sequence('(', ')')
}

func (p *parser) word() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	w := p.src[start:p.pos]

	// String prefixes: r'', u'', b'', rb'' and friends.
	if q := p.peek(); (q == '\'' || q == '"') && isStringPrefix(w) {
		p.pos = start
		return p.strings()
	}

	switch w {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	}
	p.pos = start
	return nil, p.errorf("unknown name %q", w)
}

// strings parses one or more adjacent string literals and concatenates them.
func (p *parser) strings() (any, error) {
	var b strings.Builder
	for {
		s, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		b.WriteString(s)

		save := p.pos
		p.skipSpace()
		if !p.atStringStart() {
			p.pos = save
			return b.String(), nil
		}
	}
}

func (p *parser) atStringStart() bool {
	i := p.pos
	for i < len(p.src) && isIdentPart(p.src[i]) {
		i++
	}
	if i >= len(p.src) || (p.src[i] != '\'' && p.src[i] != '"') {
		return false
	}
	return i == p.pos || isStringPrefix(p.src[p.pos:i])
}

func (p *parser) stringLit() (string, error) {
	raw := false
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		if c := p.src[p.pos]; c == 'r' || c == 'R' {
			raw = true
		}
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", p.errorf("unexpected end of input in string")
	}
	quote := p.src[p.pos]
	triple := strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote && !triple:
			p.pos++
			return b.String(), nil
		case c == quote && strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3)):
			p.pos += 3
			return b.String(), nil
		case c == '\n' && !triple:
			return "", p.errorf("newline in string")
		case c == '\\':
			if raw {
				b.WriteByte(c)
				p.pos++
				if p.pos < len(p.src) {
					b.WriteByte(p.src[p.pos])
					p.pos++
				}
				continue
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	case 'U':
		return p.hexEscape(b, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := int(c - '0')
		for i := 0; i < 2 && p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '7'; i++ {
			n = n*8 + int(p.src[p.pos]-'0')
			p.pos++
		}
		b.WriteRune(rune(n))
	default:
		// Unknown escapes are kept verbatim.
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) hexEscape(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid hex escape %q", p.src[p.pos:p.pos+digits])
	}
	p.pos += digits
	r := rune(n)
	if !utf8.ValidRune(r) {
		return p.errorf("invalid code point %#x", n)
	}
	b.WriteRune(r)
	return nil
}

func (p *parser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
		p.skipSpace()
	}
	sign := strings.TrimSpace(p.src[start:p.pos])
	digitsStart := p.pos
	for p.pos < len(p.src) {
		var prev byte
		if p.pos > digitsStart {
			prev = p.src[p.pos-1]
		}
		if !isNumberPart(p.src[p.pos], prev) {
			break
		}
		p.pos++
	}
	text := strings.ReplaceAll(p.src[digitsStart:p.pos], "_", "")
	if text == "" {
		p.pos = start
		return nil, p.errorf("malformed number")
	}
	// Signed keywords such as -inf are not literals; reject anything alphabetic.
	if isIdentStart(text[0]) {
		p.pos = start
		return nil, p.errorf("malformed number")
	}

	lower := strings.ToLower(text)
	isHex := strings.HasPrefix(lower, "0x")
	if !isHex && strings.ContainsAny(lower, ".e") {
		f, err := strconv.ParseFloat(sign+text, 64)
		if err != nil && !isRangeErr(err) {
			p.pos = start
			return nil, p.errorf("malformed float %q", text)
		}
		if math.IsInf(f, 0) {
			return f, nil
		}
		return json.Number(formatFloat(f)), nil
	}

	if len(text) > 1 && text[0] == '0' && isDigit(text[1]) {
		if strings.Trim(text, "0") != "" {
			p.pos = start
			return nil, p.errorf("leading zeros in decimal integer %q", text)
		}
		return int64(0), nil
	}

	n, err := strconv.ParseInt(sign+text, 0, 64)
	if err == nil {
		return n, nil
	}
	// Integers are unbounded; keep oversized ones exact as decimal text.
	if isRangeErr(err) {
		if exact, ok := new(big.Int).SetString(sign+text, 0); ok {
			return json.Number(exact.String()), nil
		}
	}
	p.pos = start
	return nil, p.errorf("malformed integer %q", text)
}

func isRangeErr(err error) bool {
	var ne *strconv.NumError
	return errors.As(err, &ne) && ne.Err == strconv.ErrRange
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// formatFloat renders f with the shortest round-tripping digits, in fixed
// notation for decimal exponents in [-4, 16) and with a trailing ".0" on
// integral values, scientific notation otherwise.
func formatFloat(f float64) string {
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(fixed, ".") {
		fixed += ".0"
	}
	return fixed
}

// keyString renders a dict key as JSON object keys are rendered.
func keyString(k any) (string, error) {
	switch v := k.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return string(v), nil
	case float64:
		return formatFloatKey(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "null", nil
	}
	return "", fmt.Errorf("unsupported dict key type %T", k)
}

func formatFloatKey(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return formatFloat(f)
}
