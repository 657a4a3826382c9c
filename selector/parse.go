package selector

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind enumerates the lexical classes of the pattern language.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBrace
	tokRBrace
	tokLBrack
	tokRBrack
	tokColon
	tokComma
	tokString   // "..."
	tokNumber   // 42, -3.14
	tokIdent    // bare identifier (key position, or true/false/null in value position)
	tokBind     // =name
	tokListRest // *name
	tokObjRest  // **name
)

type token struct {
	kind tokenKind
	text string // decoded string value / identifier / variable name
	pos  int
}

// ParseError reports a syntactically invalid pattern with the byte offset of
// the offending input.
type ParseError struct {
	Expr string
	Pos  int
	Msg  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("selector: parse error at offset %d: %s", e.Pos, e.Msg)
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) errf(pos int, format string, args ...any) error {
	return &ParseError{Expr: l.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func (l *lexer) lexIdent() string {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) lexString(start int) (token, error) {
	var sb strings.Builder
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, l.errf(l.pos, "unterminated escape")
			}
			l.pos++
			switch l.src[l.pos] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				return token{}, l.errf(l.pos, "unsupported escape \\%c", l.src[l.pos])
			}
			l.pos++
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, l.errf(start, "unterminated string")
}

func (l *lexer) lexNumber(start int) (token, error) {
	if l.src[l.pos] == '-' || l.src[l.pos] == '+' {
		l.pos++
	}
	digits := 0
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
		digits++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
			digits++
		}
	}
	if digits == 0 {
		return token{}, l.errf(start, "malformed number")
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
}

// next returns the following token, consuming it.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '{':
		l.pos++
		return token{kind: tokLBrace, pos: start}, nil
	case c == '}':
		l.pos++
		return token{kind: tokRBrace, pos: start}, nil
	case c == '[':
		l.pos++
		return token{kind: tokLBrack, pos: start}, nil
	case c == ']':
		l.pos++
		return token{kind: tokRBrack, pos: start}, nil
	case c == ':':
		l.pos++
		return token{kind: tokColon, pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, pos: start}, nil
	case c == '"':
		return l.lexString(start)
	case c == '=':
		l.pos++
		if l.pos >= len(l.src) || !isIdentStart(l.src[l.pos]) {
			return token{}, l.errf(start, "expected variable name after '='")
		}
		return token{kind: tokBind, text: l.lexIdent(), pos: start}, nil
	case c == '*':
		l.pos++
		kind := tokListRest
		if l.pos < len(l.src) && l.src[l.pos] == '*' {
			l.pos++
			kind = tokObjRest
		}
		if l.pos >= len(l.src) || !isIdentStart(l.src[l.pos]) {
			return token{}, l.errf(start, "expected variable name after rest marker")
		}
		return token{kind: kind, text: l.lexIdent(), pos: start}, nil
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return l.lexNumber(start)
	case isIdentStart(c):
		return token{kind: tokIdent, text: l.lexIdent(), pos: start}, nil
	default:
		return token{}, l.errf(start, "unexpected character %q", c)
	}
}

// parser is a single-token-lookahead recursive descent parser producing the
// matcher tree evaluated by Pattern.Match.
type parser struct {
	lex *lexer
	tok token
}

func newParser(src string) (*parser, error) {
	p := &parser{lex: &lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.lex.errf(p.tok.pos, "expected %s", what)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

// parseValue parses any value-position pattern.
func (p *parser) parseValue() (matcher, error) {
	switch p.tok.kind {
	case tokLBrace:
		return p.parseObject()
	case tokLBrack:
		return p.parseList()
	case tokString:
		s := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return literalMatcher{value: s}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, p.lex.errf(p.tok.pos, "malformed number %q", p.tok.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return literalMatcher{value: f}, nil
	case tokBind:
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return bindMatcher{name: name}, nil
	case tokIdent:
		var m matcher
		switch p.tok.text {
		case "true":
			m = literalMatcher{value: true}
		case "false":
			m = literalMatcher{value: false}
		case "null":
			m = literalMatcher{value: nil}
		default:
			return nil, p.lex.errf(p.tok.pos, "bare identifier %q is not a value; quote it or use =%s to bind", p.tok.text, p.tok.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, p.lex.errf(p.tok.pos, "expected a value")
	}
}

func (p *parser) parseObject() (matcher, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	om := objectMatcher{}
	if p.tok.kind == tokRBrace {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return om, nil
	}
	for {
		if p.tok.kind == tokObjRest {
			om.rest = p.tok.text
			om.hasRest = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			break // rest must be the final entry
		}
		var key string
		switch p.tok.kind {
		case tokIdent, tokString:
			key = p.tok.text
		default:
			return nil, p.lex.errf(p.tok.pos, "expected object key")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		om.fields = append(om.fields, objectField{key: key, value: val})
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return om, nil
}

func (p *parser) parseList() (matcher, error) {
	if _, err := p.expect(tokLBrack, "'['"); err != nil {
		return nil, err
	}
	lm := listMatcher{}
	if p.tok.kind == tokRBrack {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lm, nil
	}
	for {
		if p.tok.kind == tokListRest {
			lm.rest = p.tok.text
			lm.hasRest = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			break // rest must be the final element
		}
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		lm.items = append(lm.items, item)
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokRBrack, "']'"); err != nil {
		return nil, err
	}
	return lm, nil
}

// parsePattern parses a complete pattern expression: a single top-level
// object followed by end of input.
func parsePattern(src string) (objectMatcher, error) {
	p, err := newParser(src)
	if err != nil {
		return objectMatcher{}, err
	}
	if p.tok.kind != tokLBrace {
		return objectMatcher{}, p.lex.errf(p.tok.pos, "pattern must be an object matching the event's fields")
	}
	m, err := p.parseObject()
	if err != nil {
		return objectMatcher{}, err
	}
	if p.tok.kind != tokEOF {
		return objectMatcher{}, p.lex.errf(p.tok.pos, "trailing input after pattern")
	}
	return m.(objectMatcher), nil
}
