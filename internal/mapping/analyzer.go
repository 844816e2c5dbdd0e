package mapping

import (
	"context"
	"fmt"
	"strings"

	"war-api-analyzer/internal/classfile"
	"war-api-analyzer/internal/domain"

	"go.uber.org/zap"
)

// Annotation descriptors recognized as controller markers and request
// mappings.
const (
	annController       = "Lorg/springframework/stereotype/Controller;"
	annRestController   = "Lorg/springframework/web/bind/annotation/RestController;"
	annControllerAdvice = "Lorg/springframework/web/bind/annotation/ControllerAdvice;"
	annRequestMapping   = "Lorg/springframework/web/bind/annotation/RequestMapping;"
	annGetMapping       = "Lorg/springframework/web/bind/annotation/GetMapping;"
	annPostMapping      = "Lorg/springframework/web/bind/annotation/PostMapping;"
	annPutMapping       = "Lorg/springframework/web/bind/annotation/PutMapping;"
	annDeleteMapping    = "Lorg/springframework/web/bind/annotation/DeleteMapping;"
	annPatchMapping     = "Lorg/springframework/web/bind/annotation/PatchMapping;"
)

var controllerAnnotations = map[string]bool{
	annController:       true,
	annRestController:   true,
	annControllerAdvice: true,
}

// verbForAnnotation maps the verb-specific mapping variants to their verb.
var verbForAnnotation = map[string]string{
	annGetMapping:    "GET",
	annPostMapping:   "POST",
	annPutMapping:    "PUT",
	annDeleteMapping: "DELETE",
	annPatchMapping:  "PATCH",
}

func isMappingAnnotation(desc string) bool {
	_, verbSpecific := verbForAnnotation[desc]
	return verbSpecific || desc == annRequestMapping
}

// mappingInfo is the extracted content of one mapping annotation scope.
type mappingInfo struct {
	paths    []string
	verbs    []string
	produces []string
	consumes []string
}

// Analyzer decodes class entries and extracts composed handler mappings
// from controller classes.
type Analyzer struct {
	decoder *classfile.Decoder
	cache   *classfile.Cache
	logger  *zap.Logger
}

// NewAnalyzer creates a new handler analyzer backed by a per-run decode
// cache.
func NewAnalyzer(decoder *classfile.Decoder, cache *classfile.Cache, logger *zap.Logger) *Analyzer {
	return &Analyzer{decoder: decoder, cache: cache, logger: logger}
}

// AnalyzeClass decodes entry and, when the class carries a controller
// marker, returns one HandlerMethod per mapped method with class and
// method mappings composed. Non-controller classes return nil.
func (a *Analyzer) AnalyzeClass(ctx context.Context, entry *domain.ClassEntry) ([]*domain.HandlerMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	class, ok := a.cache.Get(entry.Origin, entry.Path)
	if !ok {
		var err error
		class, err = a.decoder.Decode(entry.Data)
		if err != nil {
			return nil, &domain.DecodeError{Entry: entry.Path, Err: err}
		}
		a.cache.Put(entry.Origin, entry.Path, class)
	}

	if !isController(class) {
		return nil, nil
	}

	a.logger.Debug("Analyzing controller class", zap.String("class", class.Name))

	classMapping := extractClassMapping(class)

	var handlers []*domain.HandlerMethod
	for i := range class.Methods {
		method := &class.Methods[i]
		if !hasMappingAnnotation(method) {
			continue
		}
		handlers = append(handlers, a.buildHandler(class, method, classMapping))
	}

	a.logger.Debug("Found handler methods",
		zap.String("class", class.Name),
		zap.Int("handlers", len(handlers)))

	return handlers, nil
}

func isController(class *classfile.Class) bool {
	for _, annotation := range class.Annotations {
		if controllerAnnotations[annotation.Type] {
			return true
		}
	}
	return false
}

func hasMappingAnnotation(method *classfile.Method) bool {
	for _, annotation := range method.Annotations {
		if isMappingAnnotation(annotation.Type) {
			return true
		}
	}
	return false
}

// extractClassMapping reads the class-level generic request mapping, if
// present. Missing attributes yield empty sets.
func extractClassMapping(class *classfile.Class) mappingInfo {
	var info mappingInfo
	for _, annotation := range class.Annotations {
		if annotation.Type != annRequestMapping {
			continue
		}
		info = extractMappingInfo(&annotation)
	}
	return info
}

// extractMethodMapping merges every mapping annotation on the method. A
// verb-specific variant with no explicit verb set contributes its own
// verb.
func extractMethodMapping(method *classfile.Method) mappingInfo {
	var info mappingInfo
	for i := range method.Annotations {
		annotation := &method.Annotations[i]
		if !isMappingAnnotation(annotation.Type) {
			continue
		}

		extracted := extractMappingInfo(annotation)
		if len(extracted.verbs) == 0 {
			if verb, ok := verbForAnnotation[annotation.Type]; ok {
				extracted.verbs = []string{verb}
			}
		}

		info.paths = append(info.paths, extracted.paths...)
		info.verbs = append(info.verbs, extracted.verbs...)
		info.produces = append(info.produces, extracted.produces...)
		info.consumes = append(info.consumes, extracted.consumes...)
	}
	return info
}

func extractMappingInfo(annotation *classfile.Annotation) mappingInfo {
	var info mappingInfo

	if value, ok := annotation.Get("value"); ok {
		info.paths = value.Strings()
	}
	if len(info.paths) == 0 {
		if value, ok := annotation.Get("path"); ok {
			info.paths = value.Strings()
		}
	}

	if value, ok := annotation.Get("method"); ok {
		for _, constant := range value.EnumConstants() {
			if verb := canonicalVerb(constant); verb != "" {
				info.verbs = append(info.verbs, verb)
			}
		}
	}

	if value, ok := annotation.Get("produces"); ok {
		info.produces = value.Strings()
	}
	if value, ok := annotation.Get("consumes"); ok {
		info.consumes = value.Strings()
	}

	return info
}

// canonicalVerb maps a RequestMethod enum constant to a canonical verb.
func canonicalVerb(constant string) string {
	switch strings.ToUpper(constant) {
	case "GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD":
		return strings.ToUpper(constant)
	}
	return ""
}

func (a *Analyzer) buildHandler(class *classfile.Class, method *classfile.Method, classMapping mappingInfo) *domain.HandlerMethod {
	methodMapping := extractMethodMapping(method)

	handler := &domain.HandlerMethod{
		ClassName:   class.Name,
		MethodName:  method.Name,
		URLPatterns: composePaths(classMapping.paths, methodMapping.paths),
		HTTPMethods: composeVerbs(classMapping.verbs, methodMapping.verbs),
		ReturnType:  method.ReturnType,
		Produces:    override(classMapping.produces, methodMapping.produces),
		Consumes:    override(classMapping.consumes, methodMapping.consumes),
	}

	for i, paramType := range method.ParamTypes {
		param := domain.ParameterInfo{
			Name: fmt.Sprintf("param%d", i),
			Type: paramType,
		}
		if i < len(method.ParamAnnotations) {
			for _, annotation := range method.ParamAnnotations[i] {
				param.Annotations = append(param.Annotations, annotation.SimpleName())
			}
		}
		handler.Parameters = append(handler.Parameters, param)
	}

	for i := range method.Annotations {
		annotation := &method.Annotations[i]
		handler.Annotations = append(handler.Annotations, annotation.String())
		handler.AnnotationTypes = append(handler.AnnotationTypes, annotation.TypeName())

		if strings.Contains(annotation.TypeName(), "Transactional") {
			handler.Transactional = true
			if value, ok := annotation.Get("readOnly"); ok {
				if readOnly, err := value.AsBool(); err == nil {
					handler.ReadOnly = readOnly
				}
			}
		}
	}

	for _, call := range method.Calls {
		handler.CalledMethods = append(handler.CalledMethods, call.Owner+"."+call.Name)
	}

	return handler
}

// composePaths builds the Cartesian product of class base paths and
// method paths, joined with exactly one slash. Both sides empty yields
// the single path ""; one empty side yields the other verbatim.
func composePaths(basePaths, methodPaths []string) []string {
	if len(basePaths) == 0 && len(methodPaths) == 0 {
		return []string{""}
	}
	if len(basePaths) == 0 {
		return dedupeStrings(methodPaths)
	}
	if len(methodPaths) == 0 {
		return dedupeStrings(basePaths)
	}

	combined := make([]string, 0, len(basePaths)*len(methodPaths))
	for _, base := range basePaths {
		for _, method := range methodPaths {
			combined = append(combined, joinPath(base, method))
		}
	}
	return dedupeStrings(combined)
}

// joinPath concatenates two path segments with a single separating slash.
func joinPath(base, method string) string {
	if base == "" {
		return method
	}
	if method == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(method, "/")
}

// composeVerbs prefers method verbs, then class verbs, then the GET
// fallback for a generic mapping with no verb anywhere.
func composeVerbs(classVerbs, methodVerbs []string) []string {
	if len(methodVerbs) > 0 {
		return dedupeStrings(methodVerbs)
	}
	if len(classVerbs) > 0 {
		return dedupeStrings(classVerbs)
	}
	return []string{"GET"}
}

// override returns the method-level set when non-empty, else the class
// level one.
func override(classLevel, methodLevel []string) []string {
	if len(methodLevel) > 0 {
		return methodLevel
	}
	return classLevel
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
