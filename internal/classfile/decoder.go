package classfile

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrBadMagic means the bytes are not a class file at all.
var ErrBadMagic = errors.New("bad class file magic")

const classFileMagic = 0xCAFEBABE

// maxKnownMajor is the newest class-file major version the decoder has
// been verified against (Java 25). Newer files are decoded anyway with a
// warning, since the attribute subset we read is stable.
const maxKnownMajor = 69

// Class is the decoded view of one class file: identity, annotations, and
// methods. It is immutable after Decode returns.
type Class struct {
	Name         string // dotted FQN
	SuperName    string // dotted FQN, "" for java.lang.Object itself
	Interfaces   []string
	Annotations  []Annotation // visible + invisible runtime annotations
	Methods      []Method
	MajorVersion uint16
}

// Method is the decoded view of one method: descriptor, annotation
// tables, and the call targets of its body.
type Method struct {
	Name             string
	Descriptor       string
	ParamTypes       []string // canonical dotted names
	ReturnType       string
	Annotations      []Annotation
	ParamAnnotations [][]Annotation // indexed by parameter position
	Calls            []CallTarget
}

// AnnotationsBySimpleName returns the method annotations whose simple
// name matches.
func (m *Method) AnnotationsBySimpleName(name string) []Annotation {
	var out []Annotation
	for _, a := range m.Annotations {
		if a.SimpleName() == name {
			out = append(out, a)
		}
	}
	return out
}

// Decoder parses class-file bytes into Class views. It is stateless and
// safe for concurrent use.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a new class-file decoder
func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode parses the subset of the class-file format the endpoint
// inference needs: constant pool, class identity, runtime annotation
// tables at class/method/parameter scope, method descriptors, and the
// call targets of each method body.
func (d *Decoder) Decode(data []byte) (*Class, error) {
	r := newReader(data)

	if magic := r.u4(); r.err == nil && magic != classFileMagic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrBadMagic, magic)
	}
	_ = r.u2() // minor version
	major := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if major > maxKnownMajor {
		d.logger.Warn("Class file newer than supported, decoding anyway",
			zap.Uint16("major_version", major),
			zap.Uint16("max_known", maxKnownMajor))
	}

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, err
	}

	_ = r.u2() // access flags

	thisClass := r.u2()
	superClass := r.u2()
	if r.err != nil {
		return nil, r.err
	}

	name, err := pool.ClassName(thisClass)
	if err != nil {
		return nil, err
	}

	class := &Class{
		Name:         strings.ReplaceAll(name, "/", "."),
		MajorVersion: major,
	}

	if superClass != 0 {
		superName, err := pool.ClassName(superClass)
		if err != nil {
			return nil, err
		}
		class.SuperName = strings.ReplaceAll(superName, "/", ".")
	}

	interfaceCount := int(r.u2())
	for i := 0; i < interfaceCount; i++ {
		ifaceName, err := pool.ClassName(r.u2())
		if err != nil {
			return nil, err
		}
		class.Interfaces = append(class.Interfaces, strings.ReplaceAll(ifaceName, "/", "."))
	}

	// Fields carry nothing the inference needs; step over them
	fieldCount := int(r.u2())
	for i := 0; i < fieldCount; i++ {
		r.skip(6) // access, name index, descriptor index
		d.skipAttributes(r)
	}

	methodCount := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	for i := 0; i < methodCount; i++ {
		method, err := d.parseMethod(r, pool)
		if err != nil {
			return nil, err
		}
		class.Methods = append(class.Methods, method)
	}

	class.Annotations = d.parseAnnotationAttributes(r, pool, class.Name)
	if r.err != nil {
		return nil, r.err
	}

	return class, nil
}

func (d *Decoder) parseMethod(r *reader, pool *constantPool) (Method, error) {
	_ = r.u2() // access flags
	nameIndex := r.u2()
	descIndex := r.u2()
	if r.err != nil {
		return Method{}, r.err
	}

	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return Method{}, err
	}
	descriptor, err := pool.Utf8(descIndex)
	if err != nil {
		return Method{}, err
	}

	method := Method{Name: name, Descriptor: descriptor}
	if method.ParamTypes, method.ReturnType, err = ParseMethodDescriptor(descriptor); err != nil {
		return Method{}, err
	}

	attrCount := int(r.u2())
	for i := 0; i < attrCount; i++ {
		attrName, body, err := d.readAttribute(r, pool)
		if err != nil {
			return Method{}, err
		}

		switch attrName {
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			annotations, err := parseAnnotations(newReader(body), pool)
			if err != nil {
				d.warnAnnotation(name, attrName, err)
				continue
			}
			method.Annotations = append(method.Annotations, annotations...)

		case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
			perParam, err := parseParameterAnnotations(newReader(body), pool)
			if err != nil {
				d.warnAnnotation(name, attrName, err)
				continue
			}
			method.ParamAnnotations = mergeParameterAnnotations(method.ParamAnnotations, perParam)

		case "Code":
			calls, err := d.parseCode(newReader(body), pool)
			if err != nil {
				d.logger.Warn("Skipping unwalkable method body",
					zap.String("method", name),
					zap.Error(err))
				continue
			}
			method.Calls = calls
		}
	}
	if r.err != nil {
		return Method{}, r.err
	}

	// A compiler may emit annotation tables only for a trailing subset of
	// parameters; never report more positions than the descriptor has
	if len(method.ParamAnnotations) > len(method.ParamTypes) {
		method.ParamAnnotations = method.ParamAnnotations[:len(method.ParamTypes)]
	}

	return method, nil
}

// readAttribute reads one attribute header and its body. Parsing the body
// from its own reader keeps a malformed attribute from desynchronizing
// the enclosing stream.
func (d *Decoder) readAttribute(r *reader, pool *constantPool) (string, []byte, error) {
	nameIndex := r.u2()
	length := int(r.u4())
	if r.err != nil {
		return "", nil, r.err
	}

	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return "", nil, err
	}

	body := r.bytes(length)
	if r.err != nil {
		return "", nil, r.err
	}

	return name, body, nil
}

// parseAnnotationAttributes reads a class-level attribute table, keeping
// the runtime annotation attributes and skipping the rest.
func (d *Decoder) parseAnnotationAttributes(r *reader, pool *constantPool, className string) []Annotation {
	var annotations []Annotation

	attrCount := int(r.u2())
	for i := 0; i < attrCount; i++ {
		attrName, body, err := d.readAttribute(r, pool)
		if err != nil {
			return annotations
		}

		if attrName != "RuntimeVisibleAnnotations" && attrName != "RuntimeInvisibleAnnotations" {
			continue
		}

		parsed, err := parseAnnotations(newReader(body), pool)
		if err != nil {
			d.warnAnnotation(className, attrName, err)
			continue
		}
		annotations = append(annotations, parsed...)
	}

	return annotations
}

// parseParameterAnnotations reads a num_parameters-prefixed table of
// annotation tables.
func parseParameterAnnotations(r *reader, pool *constantPool) ([][]Annotation, error) {
	paramCount := int(r.u1())
	perParam := make([][]Annotation, paramCount)

	for i := 0; i < paramCount; i++ {
		annotations, err := parseAnnotations(r, pool)
		if err != nil {
			return nil, err
		}
		perParam[i] = annotations
	}

	return perParam, nil
}

// mergeParameterAnnotations folds the visible and invisible tables into
// one position-indexed table.
func mergeParameterAnnotations(existing, extra [][]Annotation) [][]Annotation {
	if len(extra) > len(existing) {
		grown := make([][]Annotation, len(extra))
		copy(grown, existing)
		existing = grown
	}
	for i, annotations := range extra {
		existing[i] = append(existing[i], annotations...)
	}
	return existing
}

// parseCode extracts call targets from a Code attribute body.
func (d *Decoder) parseCode(r *reader, pool *constantPool) ([]CallTarget, error) {
	_ = r.u2() // max_stack
	_ = r.u2() // max_locals
	codeLength := int(r.u4())
	code := r.bytes(codeLength)
	if r.err != nil {
		return nil, r.err
	}

	return scanCallTargets(code, pool)
}

// skipAttributes steps over an attribute table without decoding it.
func (d *Decoder) skipAttributes(r *reader) {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		r.skip(2) // name index
		length := int(r.u4())
		r.skip(length)
	}
}

func (d *Decoder) warnAnnotation(scope, attribute string, err error) {
	d.logger.Warn("Skipping malformed annotation attribute",
		zap.String("scope", scope),
		zap.String("attribute", attribute),
		zap.Error(err))
}
