package loader

import (
	"fmt"
	"strings"

	"github.com/roach88/rxflow/internal/ir"
)

// ParseType parses an element type name: a predefined type (int64),
// an array (int64[]) or a generic instance (Tuple<int32, string>).
func ParseType(s string) (*ir.Type, error) {
	p := &typeParser{src: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.skipSpace(); p.pos != len(p.src) {
		return nil, fmt.Errorf("type %q: unexpected %q", s, p.src[p.pos:])
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '<' || c == '>' || c == ',' || c == '[' || c == ' ' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parse() (*ir.Type, error) {
	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("type %q: missing type name", p.src)
	}
	t, ok := ir.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("type %q: unknown type %q", p.src, name)
	}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		p.pos++
		var args []*ir.Type
		for {
			arg, err := p.parse()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return nil, fmt.Errorf("type %q: missing '>'", p.src)
			}
			c := p.src[p.pos]
			p.pos++
			if c == '>' {
				break
			}
			if c != ',' {
				return nil, fmt.Errorf("type %q: unexpected %q", p.src, string(c))
			}
		}
		if t.Kind != ir.KindGeneric || t.Def != nil {
			return nil, fmt.Errorf("type %q: %s is not generic", p.src, name)
		}
		if len(args) != len(t.Args) {
			return nil, fmt.Errorf("type %q: %s takes %d type argument(s), got %d", p.src, name, len(t.Args), len(args))
		}
		t = ir.Instantiate(t, args...)
	} else if t.Kind == ir.KindGeneric && t.Def == nil {
		return nil, fmt.Errorf("type %q: %s requires type arguments", p.src, name)
	}

	for strings.HasPrefix(p.src[p.pos:], "[]") {
		p.pos += 2
		t = ir.ArrayOf(t)
	}
	return t, nil
}
