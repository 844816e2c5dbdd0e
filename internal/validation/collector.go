package validation

import (
	"fmt"
	"sort"
	"strings"

	"war-api-analyzer/internal/domain"

	"go.uber.org/zap"
)

// Bean Validation constraint annotations recognized by simple name.
var constraintAnnotations = map[string]bool{
	"Valid": true, "Validated": true, "NotNull": true, "NotEmpty": true,
	"NotBlank": true, "Size": true, "Min": true, "Max": true,
	"Pattern": true, "Email": true, "Positive": true, "Negative": true,
	"PositiveOrZero": true, "NegativeOrZero": true, "DecimalMin": true,
	"DecimalMax": true, "Digits": true, "Future": true, "Past": true,
	"FutureOrPresent": true, "PastOrPresent": true, "AssertTrue": true,
	"AssertFalse": true,
}

// Binding annotations that trigger request-body validation.
var bindingAnnotations = map[string]bool{
	"RequestBody": true, "ModelAttribute": true, "RequestPart": true,
}

// Parameter-binding annotations with validation potential.
var parameterAnnotations = map[string]bool{
	"PathVariable": true, "RequestParam": true, "RequestHeader": true, "CookieValue": true,
}

// Collector derives human-readable validation descriptors from handler
// annotations, parameters, and call targets.
type Collector struct {
	logger *zap.Logger
}

// NewCollector creates a new validation collector
func NewCollector(logger *zap.Logger) *Collector {
	return &Collector{logger: logger}
}

// Collect returns the validation descriptors for a handler, deduplicated
// and sorted lexicographically.
func (c *Collector) Collect(method *domain.HandlerMethod) []string {
	var descriptors []string

	descriptors = append(descriptors, methodLevelDescriptors(method)...)
	descriptors = append(descriptors, parameterDescriptors(method)...)
	descriptors = append(descriptors, callTargetDescriptors(method)...)

	descriptors = dedupeSorted(descriptors)

	c.logger.Debug("Collected validation descriptors",
		zap.String("class", method.ClassName),
		zap.String("method", method.MethodName),
		zap.Int("descriptors", len(descriptors)))

	return descriptors
}

// methodLevelDescriptors covers annotations declared on the handler
// itself.
func methodLevelDescriptors(method *domain.HandlerMethod) []string {
	var rules []string

	for _, typeName := range method.AnnotationTypes {
		simple := simpleName(typeName)

		switch simple {
		case "Validated":
			rules = append(rules, "@Validated annotation on method - enables validation groups")
			continue
		case "Valid":
			rules = append(rules, "@Valid annotation on method - enables bean validation")
			continue
		}

		if isCustomValidationAnnotation(typeName) {
			rules = append(rules, "Custom validation annotation: "+simple)
		}
	}

	return rules
}

// parameterDescriptors covers constraint, binding, and parameter-binding
// annotations at each parameter position.
func parameterDescriptors(method *domain.HandlerMethod) []string {
	var rules []string

	for _, param := range method.Parameters {
		for _, name := range param.Annotations {
			switch {
			case constraintAnnotations[name]:
				rules = append(rules, fmt.Sprintf("@%s on parameter '%s' (type: %s)", name, param.Name, param.Type))
			case bindingAnnotations[name]:
				rules = append(rules, fmt.Sprintf("@%s on parameter '%s' - enables request body validation", name, param.Name))
			case parameterAnnotations[name]:
				rules = append(rules, fmt.Sprintf("@%s on parameter '%s' - parameter binding with potential validation", name, param.Name))
			}
		}
	}

	return rules
}

// callTargetDescriptors covers validation performed behind the handler,
// inferred from call-target names.
func callTargetDescriptors(method *domain.HandlerMethod) []string {
	var rules []string

	for _, call := range method.CalledMethods {
		lower := strings.ToLower(call)

		if strings.Contains(lower, "constraintviolation") || strings.Contains(lower, "validationfactory") {
			rules = append(rules, "Bean Validation API usage: "+call)
			continue
		}

		switch {
		case strings.Contains(lower, "validator"):
			rules = append(rules, "Validator usage: "+call)
		case strings.Contains(lower, "validate"):
			rules = append(rules, "Service layer validation: "+call)
		case strings.Contains(lower, "check"):
			rules = append(rules, "Service layer check: "+call)
		case strings.Contains(lower, "verify"):
			rules = append(rules, "Service layer verification: "+call)
		case strings.Contains(lower, "assert"):
			rules = append(rules, "Service layer assertion: "+call)
		}
	}

	return rules
}

// isCustomValidationAnnotation matches annotations whose qualified name
// suggests a constraint but which are not in the recognized lexicon.
func isCustomValidationAnnotation(typeName string) bool {
	if constraintAnnotations[simpleName(typeName)] {
		return false
	}
	lower := strings.ToLower(typeName)
	return strings.Contains(lower, "validation") ||
		strings.Contains(lower, "constraint") ||
		strings.Contains(lower, "validator")
}

func simpleName(typeName string) string {
	if i := strings.LastIndexByte(typeName, '.'); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}

func dedupeSorted(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
