// Package glob compiles Redis-style glob patterns.
//
// Supported syntax:
//
//	*       any sequence of bytes, including none
//	?       exactly one byte
//	[abc]   one byte from the set; ranges such as [a-z] are allowed
//	[^abc]  one byte not in the set
//	\x      the literal byte x
//
// Matching works on bytes, as keys and channel names are binary safe.
package glob

type tokenKind uint8

const (
	tokLiteral tokenKind = iota
	tokAny
	tokStar
	tokClass
)

type byteRange struct {
	lo, hi byte
}

type token struct {
	kind   tokenKind
	lit    byte
	negate bool
	ranges []byteRange
}

func (t *token) matches(c byte) bool {
	switch t.kind {
	case tokLiteral:
		return t.lit == c
	case tokAny:
		return true
	case tokClass:
		in := false
		for _, r := range t.ranges {
			if c >= r.lo && c <= r.hi {
				in = true
				break
			}
		}
		return in != t.negate
	}
	return false
}

// Matcher is a compiled pattern. It is immutable and safe for concurrent
// use.
type Matcher struct {
	pattern string
	tokens  []token
	all     bool
}

// Compile parses pattern. Every byte sequence is a valid pattern; an
// unterminated class runs to the end of the pattern.
func Compile(pattern string) *Matcher {
	m := &Matcher{pattern: pattern}
	p := pattern
	for i := 0; i < len(p); i++ {
		switch c := p[i]; c {
		case '*':
			if n := len(m.tokens); n > 0 && m.tokens[n-1].kind == tokStar {
				continue
			}
			m.tokens = append(m.tokens, token{kind: tokStar})
		case '?':
			m.tokens = append(m.tokens, token{kind: tokAny})
		case '\\':
			if i+1 < len(p) {
				i++
			}
			m.tokens = append(m.tokens, token{kind: tokLiteral, lit: p[i]})
		case '[':
			tok, next := parseClass(p, i+1)
			m.tokens = append(m.tokens, tok)
			i = next
		default:
			m.tokens = append(m.tokens, token{kind: tokLiteral, lit: c})
		}
	}
	m.all = len(m.tokens) == 1 && m.tokens[0].kind == tokStar
	return m
}

// parseClass reads a class body starting after '['. It returns the token
// and the index of the closing ']' (or the last byte of the pattern).
func parseClass(p string, i int) (token, int) {
	tok := token{kind: tokClass}
	if i < len(p) && p[i] == '^' {
		tok.negate = true
		i++
	}
	for ; i < len(p); i++ {
		c := p[i]
		switch {
		case c == ']':
			return tok, i
		case c == '\\' && i+1 < len(p):
			i++
			tok.ranges = append(tok.ranges, byteRange{p[i], p[i]})
		case i+2 < len(p) && p[i+1] == '-' && p[i+2] != ']':
			lo, hi := c, p[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			tok.ranges = append(tok.ranges, byteRange{lo, hi})
			i += 2
		default:
			tok.ranges = append(tok.ranges, byteRange{c, c})
		}
	}
	return tok, len(p) - 1
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match reports whether s matches the pattern.
func (m *Matcher) Match(s string) bool {
	if m.all {
		return true
	}
	toks := m.tokens
	p, i := 0, 0
	starP, starI := -1, 0
	for i < len(s) {
		if p < len(toks) && toks[p].kind == tokStar {
			starP, starI = p, i
			p++
			continue
		}
		if p < len(toks) && toks[p].matches(s[i]) {
			p++
			i++
			continue
		}
		if starP < 0 {
			return false
		}
		starI++
		p, i = starP+1, starI
	}
	for p < len(toks) && toks[p].kind == tokStar {
		p++
	}
	return p == len(toks)
}

// Match compiles pattern and matches s against it.
func Match(pattern, s string) bool {
	return Compile(pattern).Match(s)
}
