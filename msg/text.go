package msg

import (
	"strconv"
	"strings"
)

// String renders the text form of the message: tokens separated by
// single spaces, vocabs bracketed, strings quoted when they would
// otherwise be ambiguous, nested lists parenthesized.
func (m *Message) String() string {
	var b strings.Builder
	m.render(&b)
	return b.String()
}

func (m *Message) render(b *strings.Builder) {
	for i, v := range m.items {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch v.kind {
		case KindInt:
			b.WriteString(strconv.Itoa(v.i))
		case KindVocab:
			b.WriteByte('[')
			b.WriteString(v.s)
			b.WriteByte(']')
		case KindString:
			b.WriteString(quoteIfNeeded(v.s))
		case KindList:
			b.WriteByte('(')
			if v.list != nil {
				v.list.render(b)
			}
			b.WriteByte(')')
		}
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " ()[]\"") {
		return strconv.Quote(s)
	}
	if _, err := strconv.Atoi(s); err == nil {
		return strconv.Quote(s)
	}
	return s
}

// Parse reads the text form back into a message. Unterminated lists
// and quotes are closed at end of input; the admin channel favors a
// lenient reader over a rejecting one.
func Parse(s string) *Message {
	p := &textParser{src: s}
	return p.parseList(false)
}

type textParser struct {
	src string
	pos int
}

func (p *textParser) parseList(nested bool) *Message {
	m := New()
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return m
		}
		switch c := p.src[p.pos]; {
		case c == ')' && nested:
			p.pos++
			return m
		case c == '(':
			p.pos++
			m.Add(List(p.parseList(true)))
		case c == '[':
			p.pos++
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				m.AddVocab(p.src[p.pos:])
				p.pos = len(p.src)
				return m
			}
			m.AddVocab(p.src[p.pos : p.pos+end])
			p.pos += end + 1
		case c == '"':
			start := p.pos
			p.pos++
			for p.pos < len(p.src) && p.src[p.pos] != '"' {
				if p.src[p.pos] == '\\' {
					p.pos++
				}
				p.pos++
			}
			if p.pos < len(p.src) {
				p.pos++
			}
			if unq, err := strconv.Unquote(p.src[start:p.pos]); err == nil {
				m.AddString(unq)
			} else {
				m.AddString(strings.Trim(p.src[start:p.pos], `"`))
			}
		default:
			tok := p.readToken()
			if n, err := strconv.Atoi(tok); err == nil {
				m.AddInt(n)
			} else {
				m.AddString(tok)
			}
		}
	}
}

func (p *textParser) readToken() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '(' || c == ')' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *textParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}
