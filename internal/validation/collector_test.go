package validation_test

import (
	"sort"
	"testing"
	"war-api-analyzer/internal/domain"
	"war-api-analyzer/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCollector() *validation.Collector {
	return validation.NewCollector(zap.NewNop())
}

func TestCollect_ParameterConstraints(t *testing.T) {
	t.Parallel()

	method := &domain.HandlerMethod{
		ClassName:  "com.ex.UserController",
		MethodName: "create",
		Parameters: []domain.ParameterInfo{
			{
				Name:        "param0",
				Type:        "com.ex.CreateUserDto",
				Annotations: []string{"Valid", "NotNull"},
			},
		},
	}

	descriptors := newCollector().Collect(method)
	require.Len(t, descriptors, 2)
	assert.Contains(t, descriptors, "@Valid on parameter 'param0' (type: com.ex.CreateUserDto)")
	assert.Contains(t, descriptors, "@NotNull on parameter 'param0' (type: com.ex.CreateUserDto)")
}

func TestCollect_BindingAnnotations(t *testing.T) {
	t.Parallel()

	method := &domain.HandlerMethod{
		MethodName: "update",
		Parameters: []domain.ParameterInfo{
			{Name: "param0", Type: "java.lang.Long", Annotations: []string{"PathVariable"}},
			{Name: "param1", Type: "com.ex.UpdateUserDto", Annotations: []string{"RequestBody"}},
		},
	}

	descriptors := newCollector().Collect(method)
	assert.Contains(t, descriptors, "@PathVariable on parameter 'param0' - parameter binding with potential validation")
	assert.Contains(t, descriptors, "@RequestBody on parameter 'param1' - enables request body validation")
}

func TestCollect_MethodLevelAnnotations(t *testing.T) {
	t.Parallel()

	method := &domain.HandlerMethod{
		MethodName: "create",
		AnnotationTypes: []string{
			"org.springframework.validation.annotation.Validated",
			"jakarta.validation.Valid",
			"com.ex.constraints.PhoneNumberConstraint",
			"org.springframework.web.bind.annotation.PostMapping",
		},
	}

	descriptors := newCollector().Collect(method)
	assert.Contains(t, descriptors, "@Validated annotation on method - enables validation groups")
	assert.Contains(t, descriptors, "@Valid annotation on method - enables bean validation")
	assert.Contains(t, descriptors, "Custom validation annotation: PhoneNumberConstraint")
	assert.Len(t, descriptors, 3, "mapping annotation contributes nothing")
}

func TestCollect_CallTargetHints(t *testing.T) {
	t.Parallel()

	method := &domain.HandlerMethod{
		MethodName: "create",
		CalledMethods: []string{
			"com.ex.UserService.validateUser",
			"com.ex.UserService.checkQuota",
			"com.ex.UserService.verifyEmail",
			"com.ex.Preconditions.assertPositive",
			"org.springframework.validation.Validator.supports",
			"jakarta.validation.ConstraintViolationException.getConstraintViolations",
		},
	}

	descriptors := newCollector().Collect(method)
	assert.Contains(t, descriptors, "Service layer validation: com.ex.UserService.validateUser")
	assert.Contains(t, descriptors, "Service layer check: com.ex.UserService.checkQuota")
	assert.Contains(t, descriptors, "Service layer verification: com.ex.UserService.verifyEmail")
	assert.Contains(t, descriptors, "Service layer assertion: com.ex.Preconditions.assertPositive")
	assert.Contains(t, descriptors, "Validator usage: org.springframework.validation.Validator.supports")
	assert.Contains(t, descriptors, "Bean Validation API usage: jakarta.validation.ConstraintViolationException.getConstraintViolations")
}

func TestCollect_DeduplicatedAndSorted(t *testing.T) {
	t.Parallel()

	method := &domain.HandlerMethod{
		MethodName: "create",
		Parameters: []domain.ParameterInfo{
			{Name: "param0", Type: "com.ex.Dto", Annotations: []string{"Valid", "Valid", "NotNull"}},
		},
		CalledMethods: []string{
			"com.ex.UserService.validateUser",
			"com.ex.UserService.validateUser",
		},
	}

	descriptors := newCollector().Collect(method)
	require.Len(t, descriptors, 3)
	assert.True(t, sort.StringsAreSorted(descriptors))
}

func TestCollect_NothingToReport(t *testing.T) {
	t.Parallel()

	method := &domain.HandlerMethod{
		MethodName: "list",
		Parameters: []domain.ParameterInfo{
			{Name: "param0", Type: "java.lang.String"},
		},
		CalledMethods: []string{"com.ex.UserService.findAll"},
	}

	assert.Empty(t, newCollector().Collect(method))
}
