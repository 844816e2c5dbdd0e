package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadDescriptor means a field or method descriptor did not parse.
var ErrBadDescriptor = errors.New("bad descriptor")

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// ParseMethodDescriptor splits a method descriptor like
// "(Ljava/lang/Long;I)Lcom/ex/UserDto;" into canonical dotted parameter
// and return type names ("java.lang.Long", "int" -> "com.ex.UserDto").
func ParseMethodDescriptor(descriptor string) (params []string, returnType string, err error) {
	if len(descriptor) < 3 || descriptor[0] != '(' {
		return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, descriptor)
	}

	pos := 1
	for pos < len(descriptor) && descriptor[pos] != ')' {
		name, next, err := parseFieldType(descriptor, pos)
		if err != nil {
			return nil, "", err
		}
		params = append(params, name)
		pos = next
	}

	if pos >= len(descriptor) || descriptor[pos] != ')' {
		return nil, "", fmt.Errorf("%w: unterminated parameter list in %q", ErrBadDescriptor, descriptor)
	}

	returnType, next, err := parseFieldType(descriptor, pos+1)
	if err != nil {
		return nil, "", err
	}
	if next != len(descriptor) {
		return nil, "", fmt.Errorf("%w: trailing bytes in %q", ErrBadDescriptor, descriptor)
	}

	return params, returnType, nil
}

// parseFieldType reads one type starting at pos and returns its canonical
// name and the position just past it.
func parseFieldType(descriptor string, pos int) (string, int, error) {
	if pos >= len(descriptor) {
		return "", 0, fmt.Errorf("%w: %q", ErrBadDescriptor, descriptor)
	}

	switch c := descriptor[pos]; {
	case primitiveNames[c] != "":
		return primitiveNames[c], pos + 1, nil
	case c == 'L':
		end := strings.IndexByte(descriptor[pos:], ';')
		if end < 0 {
			return "", 0, fmt.Errorf("%w: unterminated object type in %q", ErrBadDescriptor, descriptor)
		}
		internal := descriptor[pos+1 : pos+end]
		return strings.ReplaceAll(internal, "/", "."), pos + end + 1, nil
	case c == '[':
		elem, next, err := parseFieldType(descriptor, pos+1)
		if err != nil {
			return "", 0, err
		}
		return elem + "[]", next, nil
	default:
		return "", 0, fmt.Errorf("%w: unexpected %q in %q", ErrBadDescriptor, c, descriptor)
	}
}

// classDescriptorName converts an object type descriptor like
// "Lcom/ex/Dto;" to "com.ex.Dto". Non-descriptor input is returned as is.
func classDescriptorName(descriptor string) string {
	if strings.HasPrefix(descriptor, "L") && strings.HasSuffix(descriptor, ";") {
		internal := descriptor[1 : len(descriptor)-1]
		return strings.ReplaceAll(internal, "/", ".")
	}
	return descriptor
}

// simpleName returns the last segment of an annotation type descriptor,
// e.g. "Lorg/springframework/web/bind/annotation/GetMapping;" -> "GetMapping".
func simpleName(descriptor string) string {
	name := classDescriptorName(descriptor)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
