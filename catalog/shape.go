package catalog

import (
	"reflect"
	"strconv"
	"strings"
)

// Shape is the structural form of an instantiated generic type: where it is
// declared, its base name and its type arguments as rendered by reflect.
type Shape struct {
	PkgPath string
	Name    string
	Args    []string
	Pointer bool
}

// ShapeOf parses t's name. It reports false for types that are not
// instantiations of a generic type.
func ShapeOf(t reflect.Type) (Shape, bool) {
	if t == nil {
		return Shape{}, false
	}
	var s Shape
	if t.Kind() == reflect.Pointer && t.Name() == "" {
		s.Pointer = true
		t = t.Elem()
	}
	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return Shape{}, false
	}
	s.PkgPath = t.PkgPath()
	s.Name = name[:open]
	s.Args = splitArgs(name[open+1 : len(name)-1])
	return s, len(s.Args) > 0
}

// Key identifies the generic definition regardless of its type arguments.
func (s Shape) Key() string {
	var b strings.Builder
	if s.Pointer {
		b.WriteByte('*')
	}
	b.WriteString(s.PkgPath)
	b.WriteByte('.')
	b.WriteString(s.Name)
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(len(s.Args)))
	return b.String()
}

func (s Shape) String() string {
	prefix := ""
	if s.Pointer {
		prefix = "*"
	}
	return prefix + s.Name + "[" + strings.Join(s.Args, ",") + "]"
}

// splitArgs splits a type argument list on top level commas.
func splitArgs(list string) []string {
	var (
		args  []string
		depth int
		start int
	)
	for i, r := range list {
		switch r {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(list[start:]); last != "" {
		args = append(args, last)
	}
	return args
}
