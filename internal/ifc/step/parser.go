// Package step reads ISO-10303-21 (STEP physical file) exchange files, the
// encoding used by .ifc models.
package step

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ErrSyntax signals a malformed exchange file.
var ErrSyntax = errors.New("step: syntax error")

// File is a parsed exchange file.
type File struct {
	Schemas   []string
	instances map[int]*Instance
	byType    map[string][]int
	types     []string
}

// Parse reads an exchange file from r.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("step: read: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses an exchange file held in memory.
func ParseBytes(data []byte) (*File, error) {
	p := &parser{data: data, line: 1}
	f := &File{
		instances: make(map[int]*Instance),
		byType:    make(map[string][]int),
	}
	if err := p.file(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Get returns the instance with the given id.
func (f *File) Get(id int) (*Instance, bool) {
	in, ok := f.instances[id]
	return in, ok
}

// Resolve follows a reference.
func (f *File) Resolve(r Ref) (*Instance, bool) { return f.Get(int(r)) }

// ByType returns the ids of all instances of an entity type, in file order.
// The type name is matched case-insensitively.
func (f *File) ByType(entity string) []int {
	return f.byType[strings.ToUpper(entity)]
}

// Types returns the entity types present, in order of first appearance.
func (f *File) Types() []string {
	out := make([]string, len(f.types))
	copy(out, f.types)
	return out
}

// Len returns the number of instances.
func (f *File) Len() int { return len(f.instances) }

type parser struct {
	data []byte
	pos  int
	line int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, p.line, fmt.Sprintf(format, args...))
}

func (p *parser) file(f *File) error {
	p.skip()
	if kw := p.keyword(); kw != "ISO-10303-21" {
		return p.errorf("expected ISO-10303-21 header, got %q", kw)
	}
	if err := p.expect(';'); err != nil {
		return err
	}

	section := ""
	for {
		p.skip()
		if p.eof() {
			return p.errorf("unexpected end of file")
		}

		if p.peek() == '#' {
			if section != "DATA" {
				return p.errorf("instance outside DATA section")
			}
			in, err := p.instance()
			if err != nil {
				return err
			}
			if _, dup := f.instances[in.ID]; dup {
				return p.errorf("duplicate instance #%d", in.ID)
			}
			f.instances[in.ID] = in
			if in.Type != "" {
				if _, ok := f.byType[in.Type]; !ok {
					f.types = append(f.types, in.Type)
				}
				f.byType[in.Type] = append(f.byType[in.Type], in.ID)
			}
			continue
		}

		kw := p.keyword()
		if kw == "" {
			return p.errorf("unexpected character %q", p.peek())
		}
		p.skip()
		switch {
		case kw == "END-ISO-10303-21":
			return p.expect(';')
		case p.peek() == ';':
			p.pos++
			switch kw {
			case "HEADER", "DATA":
				section = kw
			case "ENDSEC":
				section = ""
			default:
				return p.errorf("unknown section keyword %q", kw)
			}
		case p.peek() == '(' && section == "HEADER":
			args, err := p.list()
			if err != nil {
				return err
			}
			if err := p.expect(';'); err != nil {
				return err
			}
			if kw == "FILE_SCHEMA" {
				f.Schemas = schemaNames(args)
			}
		default:
			return p.errorf("unexpected keyword %q", kw)
		}
	}
}

func schemaNames(args []any) []string {
	var out []string
	for _, a := range args {
		list, _ := a.([]any)
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (p *parser) instance() (*Instance, error) {
	line := p.line
	p.pos++ // '#'
	id, ok := p.digits()
	if !ok {
		return nil, p.errorf("expected instance id")
	}
	p.skip()
	if err := p.expect('='); err != nil {
		return nil, err
	}
	p.skip()

	in := &Instance{ID: id, Line: line}
	if p.peek() == '(' {
		// complex (multi-leaf) instance: kept addressable but untyped
		if err := p.complexParts(); err != nil {
			return nil, err
		}
	} else {
		in.Type = strings.ToUpper(p.keyword())
		if in.Type == "" {
			return nil, p.errorf("expected entity type for #%d", id)
		}
		p.skip()
		args, err := p.list()
		if err != nil {
			return nil, err
		}
		in.Args = args
	}
	p.skip()
	if err := p.expect(';'); err != nil {
		return nil, err
	}
	return in, nil
}

// complexParts consumes "( LEAF(...) LEAF(...) ... )". Leaves are not
// separated by commas.
func (p *parser) complexParts() error {
	if err := p.expect('('); err != nil {
		return err
	}
	for parts := 0; ; parts++ {
		p.skip()
		if p.eof() {
			return p.errorf("unexpected end of file in complex instance")
		}
		if p.peek() == ')' {
			if parts == 0 {
				return p.errorf("empty complex instance")
			}
			p.pos++
			return nil
		}
		if p.keyword() == "" {
			return p.errorf("expected entity type in complex instance, got %q", p.peek())
		}
		p.skip()
		if _, err := p.list(); err != nil {
			return err
		}
	}
}

// list parses "( param, param, ... )".
func (p *parser) list() ([]any, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	out := []any{}
	p.skip()
	if p.peek() == ')' {
		p.pos++
		return out, nil
	}
	for {
		p.skip()
		v, err := p.param()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skip()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ')' in list, got %q", p.peek())
		}
	}
}

func (p *parser) param() (any, error) {
	if p.eof() {
		return nil, p.errorf("unexpected end of file in parameter")
	}
	c := p.peek()
	switch {
	case c == '$':
		p.pos++
		return nil, nil
	case c == '*':
		p.pos++
		return Derived{}, nil
	case c == '#':
		p.pos++
		id, ok := p.digits()
		if !ok {
			return nil, p.errorf("expected reference id")
		}
		return Ref(id), nil
	case c == '\'':
		return p.str()
	case c == '"':
		return p.binary()
	case c == '.':
		return p.enum()
	case c == '(':
		return p.list()
	case c == '-' || c == '+' || isDigit(c):
		return p.number()
	case isAlpha(c):
		name := strings.ToUpper(p.keyword())
		p.skip()
		args, err := p.list()
		if err != nil {
			return nil, err
		}
		t := Typed{Type: name}
		switch len(args) {
		case 0:
		case 1:
			t.Value = args[0]
		default:
			t.Value = args
		}
		return t, nil
	}
	return nil, p.errorf("unexpected character %q in parameter", c)
}

func (p *parser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	real := false
	for !p.eof() {
		c := p.peek()
		switch {
		case isDigit(c):
		case c == '.' || c == 'E' || c == 'e':
			real = true
		case (c == '-' || c == '+') && real:
		default:
			goto done
		}
		p.pos++
	}
done:
	text := string(p.data[start:p.pos])
	if real {
		f, err := strconv.ParseFloat(normalizeReal(text), 64)
		if err != nil {
			return nil, p.errorf("invalid real %q", text)
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorf("invalid integer %q", text)
	}
	return n, nil
}

// normalizeReal turns STEP reals such as "1." or "2.E-3" into Go syntax.
func normalizeReal(s string) string {
	s = strings.Replace(s, ".E", ".0E", 1)
	s = strings.Replace(s, ".e", ".0e", 1)
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func (p *parser) enum() (any, error) {
	p.pos++ // '.'
	start := p.pos
	for !p.eof() && p.peek() != '.' {
		if c := p.peek(); !isAlpha(c) && !isDigit(c) && c != '_' {
			return nil, p.errorf("invalid enumeration character %q", c)
		}
		p.pos++
	}
	if p.eof() {
		return nil, p.errorf("unterminated enumeration")
	}
	name := string(p.data[start:p.pos])
	p.pos++
	return Enum(strings.ToUpper(name)), nil
}

func (p *parser) binary() (any, error) {
	p.pos++
	start := p.pos
	for !p.eof() && p.peek() != '"' {
		p.pos++
	}
	if p.eof() {
		return nil, p.errorf("unterminated binary")
	}
	s := string(p.data[start:p.pos])
	p.pos++
	return s, nil
}

// str parses a quoted string, decoding '' and the \X\, \X2\ and \S\ escapes.
func (p *parser) str() (any, error) {
	p.pos++ // opening quote
	var raw strings.Builder
	for {
		if p.eof() {
			return nil, p.errorf("unterminated string")
		}
		c := p.peek()
		p.pos++
		if c == '\n' {
			p.line++
		}
		if c == '\'' {
			if !p.eof() && p.peek() == '\'' {
				raw.WriteByte('\'')
				p.pos++
				continue
			}
			break
		}
		raw.WriteByte(c)
	}
	return decodeString(raw.String()), nil
}

func decodeString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], `\X2\`):
			i += 4
			end := strings.Index(s[i:], `\X0\`)
			if end < 0 {
				b.WriteString(s[i-4:])
				return b.String()
			}
			b.WriteString(decodeUTF16Hex(s[i : i+end]))
			i += end + 4
		case strings.HasPrefix(s[i:], `\X4\`):
			i += 4
			end := strings.Index(s[i:], `\X0\`)
			if end < 0 {
				b.WriteString(s[i-4:])
				return b.String()
			}
			hex := s[i : i+end]
			for j := 0; j+8 <= len(hex); j += 8 {
				if r, err := strconv.ParseUint(hex[j:j+8], 16, 32); err == nil {
					b.WriteRune(rune(r))
				}
			}
			i += end + 4
		case strings.HasPrefix(s[i:], `\X\`) && i+5 <= len(s):
			if v, err := strconv.ParseUint(s[i+3:i+5], 16, 8); err == nil {
				b.WriteRune(rune(v))
				i += 5
				continue
			}
			b.WriteByte(s[i])
			i++
		case strings.HasPrefix(s[i:], `\S\`) && i+4 <= len(s):
			b.WriteRune(rune(s[i+3]) + 128)
			i += 4
		case strings.HasPrefix(s[i:], `\\`):
			b.WriteByte('\\')
			i += 2
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

func decodeUTF16Hex(hex string) string {
	units := make([]uint16, 0, len(hex)/4)
	for j := 0; j+4 <= len(hex); j += 4 {
		v, err := strconv.ParseUint(hex[j:j+4], 16, 16)
		if err != nil {
			continue
		}
		units = append(units, uint16(v))
	}
	return string(utf16.Decode(units))
}

func (p *parser) keyword() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if !isAlpha(c) && !isDigit(c) && c != '_' && c != '-' {
			break
		}
		p.pos++
	}
	return string(p.data[start:p.pos])
}

func (p *parser) digits() (int, bool) {
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if start == p.pos {
		return 0, false
	}
	n, err := strconv.Atoi(string(p.data[start:p.pos]))
	return n, err == nil
}

func (p *parser) expect(c byte) error {
	p.skip()
	if p.eof() || p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, got end of file", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

// skip advances over whitespace and /* comments */.
func (p *parser) skip() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '*':
			end := strings.Index(string(p.data[p.pos+2:]), "*/")
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.line += strings.Count(string(p.data[p.pos:p.pos+2+end]), "\n")
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *parser) eof() bool  { return p.pos >= len(p.data) }
func (p *parser) peek() byte { return p.data[p.pos] }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') }
