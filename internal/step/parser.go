package step

import (
	"strconv"
	"strings"
)

// Parse tokenizes an ISO 10303-21 exchange file into an entity graph.
//
// The pass is purely lexical: records are split on top-level semicolons with
// string and comment state tracked, so a parameter list left open across
// physical lines is joined before tokenizing. Structurally broken records
// fail the whole parse with *MalformedRecordError; reference resolution
// happens later, per entity.
func Parse(data []byte) (*Graph, error) {
	g := &Graph{Entities: make(map[int]*Entity)}

	const (
		secNone = iota
		secHeader
		secData
		secDone
	)
	section := secNone

	sc := newRecordScanner(string(data))
	for {
		rec, line, ok := sc.next()
		if !ok {
			break
		}
		switch rec {
		case "ISO-10303-21":
			continue
		case "HEADER":
			section = secHeader
			continue
		case "DATA":
			section = secData
			continue
		case "ENDSEC":
			section = secNone
			continue
		case "END-ISO-10303-21":
			section = secDone
			continue
		}

		switch section {
		case secHeader:
			if err := parseHeaderRecord(g, rec, line); err != nil {
				return nil, err
			}
		case secData:
			if err := parseDataRecord(g, rec, line); err != nil {
				return nil, err
			}
		}
	}
	if sc.openString || sc.depth != 0 {
		return nil, &MalformedRecordError{Line: sc.line, Snippet: snippet(sc.pending())}
	}
	return g, nil
}

// recordScanner yields semicolon-terminated records with comments stripped
// and newlines outside strings collapsed to spaces.
type recordScanner struct {
	src        string
	pos        int
	line       int
	openString bool
	depth      int
	buf        strings.Builder
}

func newRecordScanner(src string) *recordScanner {
	return &recordScanner{src: src, line: 1}
}

func (s *recordScanner) pending() string {
	return strings.TrimSpace(s.buf.String())
}

// next returns the next record body (without the trailing semicolon), the
// physical line it started on, and whether a record was produced.
func (s *recordScanner) next() (string, int, bool) {
	s.buf.Reset()
	startLine := 0

	for s.pos < len(s.src) {
		c := s.src[s.pos]

		if s.openString {
			s.buf.WriteByte(c)
			s.pos++
			if c == '\'' {
				// Doubled quote is an escaped quote inside the string.
				if s.pos < len(s.src) && s.src[s.pos] == '\'' {
					s.buf.WriteByte('\'')
					s.pos++
				} else {
					s.openString = false
				}
			} else if c == '\n' {
				s.line++
			}
			continue
		}

		switch c {
		case '/':
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '*' {
				s.skipComment()
				continue
			}
			s.buf.WriteByte(c)
		case '\'':
			s.openString = true
			if startLine == 0 {
				startLine = s.line
			}
			s.buf.WriteByte(c)
		case '(':
			s.depth++
			s.buf.WriteByte(c)
		case ')':
			s.depth--
			s.buf.WriteByte(c)
		case ';':
			s.pos++
			rec := strings.TrimSpace(s.buf.String())
			if rec == "" {
				s.buf.Reset()
				continue
			}
			if startLine == 0 {
				startLine = s.line
			}
			return rec, startLine, true
		case '\n':
			s.line++
			s.buf.WriteByte(' ')
		case '\r':
			s.buf.WriteByte(' ')
		default:
			if startLine == 0 && !isSpace(c) {
				startLine = s.line
			}
			s.buf.WriteByte(c)
		}
		s.pos++
	}
	return "", 0, false
}

func (s *recordScanner) skipComment() {
	s.pos += 2
	for s.pos < len(s.src) {
		if s.src[s.pos] == '\n' {
			s.line++
		}
		if s.src[s.pos] == '*' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' {
			s.pos += 2
			return
		}
		s.pos++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseDataRecord handles "#id=TYPE(params)" records.
func parseDataRecord(g *Graph, rec string, line int) error {
	malformed := func() error {
		return &MalformedRecordError{Line: line, Snippet: snippet(rec)}
	}

	if len(rec) == 0 || rec[0] != '#' {
		return malformed()
	}
	i := 1
	for i < len(rec) && rec[i] >= '0' && rec[i] <= '9' {
		i++
	}
	if i == 1 {
		return malformed()
	}
	id, err := strconv.Atoi(rec[1:i])
	if err != nil || id <= 0 {
		return malformed()
	}

	rest := strings.TrimSpace(rec[i:])
	if len(rest) == 0 || rest[0] != '=' {
		return malformed()
	}
	rest = strings.TrimSpace(rest[1:])

	j := 0
	for j < len(rest) && isIdentChar(rest[j]) {
		j++
	}
	typ := rest[:j]
	rest = strings.TrimSpace(rest[j:])
	if len(rest) == 0 || rest[0] != '(' || rest[len(rest)-1] != ')' {
		return malformed()
	}

	// Complex (multi-leaf) instances open directly with a parenthesis:
	// concatenated TYPE(params) leaves with no separators, as in the
	// SI-unit blocks of AP203/AP214 exports. Kept with an empty type tag
	// and one list parameter per leaf; no supported surface uses them.
	var params []Param
	var perr error
	if typ == "" {
		params, perr = parseComplexParams(rest[1 : len(rest)-1])
	} else {
		params, perr = parseParamList(rest[1 : len(rest)-1])
	}
	if perr != nil {
		return malformed()
	}
	g.Entities[id] = &Entity{ID: id, Type: typ, Params: params}
	return nil
}

// parseHeaderRecord extracts provenance from FILE_SCHEMA and FILE_NAME.
// Other header records are ignored.
func parseHeaderRecord(g *Graph, rec string, line int) error {
	j := 0
	for j < len(rec) && isIdentChar(rec[j]) {
		j++
	}
	name := rec[:j]
	rest := strings.TrimSpace(rec[j:])
	if len(rest) < 2 || rest[0] != '(' || rest[len(rest)-1] != ')' {
		return &MalformedRecordError{Line: line, Snippet: snippet(rec)}
	}
	params, err := parseParamList(rest[1 : len(rest)-1])
	if err != nil {
		return &MalformedRecordError{Line: line, Snippet: snippet(rec)}
	}

	switch name {
	case "FILE_SCHEMA":
		if len(params) > 0 && params[0].Kind == ParamList && len(params[0].List) > 0 {
			g.Header.SchemaID = params[0].List[0].Str
		}
	case "FILE_NAME":
		if len(params) > 0 {
			g.Header.Name = params[0].Str
		}
		if len(params) > 5 {
			g.Header.OriginatingSystem = params[5].Str
		}
	}
	return nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// parseParamList tokenizes the comma-separated parameter text of a record,
// recursing into parenthesized aggregates.
func parseParamList(s string) ([]Param, error) {
	c := &paramCursor{src: s}
	params, err := c.list()
	if err != nil {
		return nil, err
	}
	c.skipSpace()
	if c.pos != len(c.src) {
		return nil, errTrailing
	}
	return params, nil
}

var errTrailing = &MalformedRecordError{Snippet: "trailing parameter text"}

// parseComplexParams tokenizes the body of a complex instance: a run of
// TYPE(params) leaves with nothing between them. Each leaf becomes one list
// parameter carrying the leaf's type tag, so references inside leaves stay
// visible to Refs().
func parseComplexParams(s string) ([]Param, error) {
	c := &paramCursor{src: s}
	var out []Param
	for {
		c.skipSpace()
		if c.pos == len(c.src) {
			if len(out) == 0 {
				return nil, errTrailing
			}
			return out, nil
		}
		p, err := c.value()
		if err != nil {
			return nil, err
		}
		if p.Kind != ParamList || p.Str == "" {
			return nil, errTrailing
		}
		out = append(out, p)
	}
}

type paramCursor struct {
	src string
	pos int
}

func (c *paramCursor) skipSpace() {
	for c.pos < len(c.src) && isSpace(c.src[c.pos]) {
		c.pos++
	}
}

func (c *paramCursor) list() ([]Param, error) {
	var out []Param
	c.skipSpace()
	// Empty aggregates appear in complex-instance leaves like LENGTH_UNIT().
	if c.pos == len(c.src) || c.src[c.pos] == ')' {
		return out, nil
	}
	for {
		p, err := c.value()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		c.skipSpace()
		if c.pos == len(c.src) || c.src[c.pos] != ',' {
			return out, nil
		}
		c.pos++ // consume comma
	}
}

func (c *paramCursor) value() (Param, error) {
	c.skipSpace()
	if c.pos >= len(c.src) {
		return Param{}, errTrailing
	}
	switch ch := c.src[c.pos]; {
	case ch == '$' || ch == '*':
		c.pos++
		return Param{Kind: ParamNull}, nil

	case ch == '#':
		c.pos++
		start := c.pos
		for c.pos < len(c.src) && c.src[c.pos] >= '0' && c.src[c.pos] <= '9' {
			c.pos++
		}
		id, err := strconv.Atoi(c.src[start:c.pos])
		if err != nil {
			return Param{}, errTrailing
		}
		return Param{Kind: ParamRef, Ref: id}, nil

	case ch == '\'':
		c.pos++
		var b strings.Builder
		for c.pos < len(c.src) {
			if c.src[c.pos] == '\'' {
				if c.pos+1 < len(c.src) && c.src[c.pos+1] == '\'' {
					b.WriteByte('\'')
					c.pos += 2
					continue
				}
				c.pos++
				return Param{Kind: ParamString, Str: b.String()}, nil
			}
			b.WriteByte(c.src[c.pos])
			c.pos++
		}
		return Param{}, errTrailing

	case ch == '.':
		end := strings.IndexByte(c.src[c.pos+1:], '.')
		if end < 0 {
			return Param{}, errTrailing
		}
		val := c.src[c.pos+1 : c.pos+1+end]
		c.pos += end + 2
		return Param{Kind: ParamEnum, Str: val}, nil

	case ch == '(':
		c.pos++
		inner, err := c.list()
		if err != nil {
			return Param{}, err
		}
		c.skipSpace()
		if c.pos >= len(c.src) || c.src[c.pos] != ')' {
			return Param{}, errTrailing
		}
		c.pos++
		return Param{Kind: ParamList, List: inner}, nil

	case ch == '-' || ch == '+' || (ch >= '0' && ch <= '9'):
		start := c.pos
		c.pos++
		for c.pos < len(c.src) {
			d := c.src[c.pos]
			if (d >= '0' && d <= '9') || d == '.' || d == 'e' || d == 'E' || d == '-' || d == '+' {
				c.pos++
				continue
			}
			break
		}
		n, err := strconv.ParseFloat(c.src[start:c.pos], 64)
		if err != nil {
			return Param{}, errTrailing
		}
		return Param{Kind: ParamNumber, Num: n}, nil

	default:
		// Bare identifier (typed parameter). Kept as an enum-like token;
		// none of the supported surfaces carry these.
		start := c.pos
		for c.pos < len(c.src) && isIdentChar(c.src[c.pos]) {
			c.pos++
		}
		if c.pos == start {
			return Param{}, errTrailing
		}
		tok := c.src[start:c.pos]
		c.skipSpace()
		if c.pos < len(c.src) && c.src[c.pos] == '(' {
			c.pos++
			inner, err := c.list()
			if err != nil {
				return Param{}, err
			}
			c.skipSpace()
			if c.pos >= len(c.src) || c.src[c.pos] != ')' {
				return Param{}, errTrailing
			}
			c.pos++
			return Param{Kind: ParamList, Str: tok, List: inner}, nil
		}
		return Param{Kind: ParamEnum, Str: tok}, nil
	}
}

func snippet(s string) string {
	const max = 48
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
