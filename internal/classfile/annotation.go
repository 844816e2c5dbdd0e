package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedAnnotation means an annotation attribute did not parse.
// The decoder skips the attribute and keeps going.
var ErrMalformedAnnotation = errors.New("malformed annotation")

// ValueKind tags the five shapes an annotation element value can take.
type ValueKind int

const (
	KindConst ValueKind = iota // string, int, bool, float
	KindEnum                   // (type, constant) pair
	KindClass                  // class reference
	KindAnnotation             // nested annotation
	KindArray                  // ordered sequence
)

// ElementValue is one annotation attribute value, a tagged variant over
// the five shapes of the annotation attribute format.
type ElementValue struct {
	Kind      ValueKind
	Const     any    // KindConst: string, int64, float64, or bool
	EnumType  string // KindEnum: dotted enum class name
	EnumConst string // KindEnum: constant name
	ClassName string // KindClass: dotted class name
	Nested    *Annotation
	Array     []ElementValue
}

// ElementPair is one name=value attribute of an annotation. Pairs keep
// the order they appear in the class file.
type ElementPair struct {
	Name  string
	Value ElementValue
}

// Annotation is one decoded class, method, or parameter annotation.
type Annotation struct {
	Type  string // descriptor form, e.g. "Lcom/ex/Marker;"
	Pairs []ElementPair
}

// SimpleName returns the bare annotation name, e.g. "GetMapping".
func (a *Annotation) SimpleName() string {
	return simpleName(a.Type)
}

// TypeName returns the dotted fully-qualified annotation type name.
func (a *Annotation) TypeName() string {
	return classDescriptorName(a.Type)
}

// Get returns the value of the named attribute.
func (a *Annotation) Get(name string) (ElementValue, bool) {
	for _, pair := range a.Pairs {
		if pair.Name == name {
			return pair.Value, true
		}
	}
	return ElementValue{}, false
}

// AsString returns the constant string form of the value.
func (v ElementValue) AsString() (string, error) {
	if v.Kind != KindConst {
		return "", fmt.Errorf("%w: value is not a constant", ErrMalformedAnnotation)
	}
	s, ok := v.Const.(string)
	if !ok {
		return "", fmt.Errorf("%w: constant is %T, not string", ErrMalformedAnnotation, v.Const)
	}
	return s, nil
}

// AsBool returns the constant bool form of the value.
func (v ElementValue) AsBool() (bool, error) {
	if v.Kind != KindConst {
		return false, fmt.Errorf("%w: value is not a constant", ErrMalformedAnnotation)
	}
	b, ok := v.Const.(bool)
	if !ok {
		return false, fmt.Errorf("%w: constant is %T, not bool", ErrMalformedAnnotation, v.Const)
	}
	return b, nil
}

// Strings flattens the value to its string constants: a single constant
// yields one element, an array yields its constant elements in order.
// Used for mapping attributes like value/path/produces/consumes.
func (v ElementValue) Strings() []string {
	switch v.Kind {
	case KindConst:
		if s, ok := v.Const.(string); ok {
			return []string{s}
		}
	case KindArray:
		var out []string
		for _, item := range v.Array {
			out = append(out, item.Strings()...)
		}
		return out
	}
	return nil
}

// EnumConstants flattens the value to its enum constant names. Used for
// the method attribute of request mappings.
func (v ElementValue) EnumConstants() []string {
	switch v.Kind {
	case KindEnum:
		return []string{v.EnumConst}
	case KindArray:
		var out []string
		for _, item := range v.Array {
			out = append(out, item.EnumConstants()...)
		}
		return out
	}
	return nil
}

// parseAnnotations reads a num_annotations-prefixed annotation table.
func parseAnnotations(r *reader, pool *constantPool) ([]Annotation, error) {
	count := int(r.u2())
	annotations := make([]Annotation, 0, count)

	for i := 0; i < count; i++ {
		annotation, err := parseAnnotation(r, pool, 0)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, annotation)
	}

	return annotations, nil
}

func parseAnnotation(r *reader, pool *constantPool, depth int) (Annotation, error) {
	// Nesting is bounded by the format, but a corrupt table could claim
	// absurd depth before running out of bytes
	if depth > 64 {
		return Annotation{}, fmt.Errorf("%w: nesting too deep", ErrMalformedAnnotation)
	}

	typeIndex := r.u2()
	pairCount := int(r.u2())
	if r.err != nil {
		return Annotation{}, r.err
	}

	typeDesc, err := pool.Utf8(typeIndex)
	if err != nil {
		return Annotation{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
	}

	annotation := Annotation{Type: typeDesc}
	for i := 0; i < pairCount; i++ {
		nameIndex := r.u2()
		if r.err != nil {
			return Annotation{}, r.err
		}
		name, err := pool.Utf8(nameIndex)
		if err != nil {
			return Annotation{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}

		value, err := parseElementValue(r, pool, depth)
		if err != nil {
			return Annotation{}, err
		}

		annotation.Pairs = append(annotation.Pairs, ElementPair{Name: name, Value: value})
	}

	return annotation, nil
}

func parseElementValue(r *reader, pool *constantPool, depth int) (ElementValue, error) {
	tag := r.u1()
	if r.err != nil {
		return ElementValue{}, r.err
	}

	switch tag {
	case 'B', 'C', 'I', 'S':
		e, err := pool.entry(r.u2(), tagInteger)
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{Kind: KindConst, Const: int64(e.i32)}, nil

	case 'Z':
		e, err := pool.entry(r.u2(), tagInteger)
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{Kind: KindConst, Const: e.i32 != 0}, nil

	case 'J':
		e, err := pool.entry(r.u2(), tagLong)
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{Kind: KindConst, Const: e.i64}, nil

	case 'F':
		e, err := pool.entry(r.u2(), tagFloat)
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{Kind: KindConst, Const: float64(e.f32)}, nil

	case 'D':
		e, err := pool.entry(r.u2(), tagDouble)
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{Kind: KindConst, Const: e.f64}, nil

	case 's':
		s, err := pool.Utf8(r.u2())
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{Kind: KindConst, Const: s}, nil

	case 'e':
		typeDesc, err := pool.Utf8(r.u2())
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		constName, err := pool.Utf8(r.u2())
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{
			Kind:      KindEnum,
			EnumType:  classDescriptorName(typeDesc),
			EnumConst: constName,
		}, nil

	case 'c':
		classDesc, err := pool.Utf8(r.u2())
		if err != nil {
			return ElementValue{}, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
		}
		return ElementValue{Kind: KindClass, ClassName: classDescriptorName(classDesc)}, nil

	case '@':
		nested, err := parseAnnotation(r, pool, depth+1)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Kind: KindAnnotation, Nested: &nested}, nil

	case '[':
		count := int(r.u2())
		if r.err != nil {
			return ElementValue{}, r.err
		}
		values := make([]ElementValue, 0, count)
		for i := 0; i < count; i++ {
			value, err := parseElementValue(r, pool, depth+1)
			if err != nil {
				return ElementValue{}, err
			}
			values = append(values, value)
		}
		return ElementValue{Kind: KindArray, Array: values}, nil

	default:
		return ElementValue{}, fmt.Errorf("%w: unknown element value tag %q", ErrMalformedAnnotation, tag)
	}
}

// String renders the annotation as "@Name(attr=value, ...)" with string
// constants quoted, the way the report presents handler annotations.
func (a *Annotation) String() string {
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteString(a.SimpleName())

	if len(a.Pairs) > 0 {
		sb.WriteByte('(')
		for i, pair := range a.Pairs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(pair.Name)
			sb.WriteByte('=')
			sb.WriteString(pair.Value.format())
		}
		sb.WriteByte(')')
	}

	return sb.String()
}

func (v ElementValue) format() string {
	switch v.Kind {
	case KindConst:
		if s, ok := v.Const.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("%v", v.Const)
	case KindEnum:
		return v.EnumType + "." + v.EnumConst
	case KindClass:
		return v.ClassName + ".class"
	case KindAnnotation:
		return v.Nested.String()
	case KindArray:
		if len(v.Array) == 1 {
			return v.Array[0].format()
		}
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.format()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}
