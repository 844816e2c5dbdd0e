package classfile_test

import (
	"testing"
	"war-api-analyzer/internal/classfile"
	"war-api-analyzer/internal/classfile/classfiletest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	annRestController = "Lorg/springframework/web/bind/annotation/RestController;"
	annGetMapping     = "Lorg/springframework/web/bind/annotation/GetMapping;"
	annTransactional  = "Lorg/springframework/transaction/annotation/Transactional;"
	annValid          = "Ljakarta/validation/Valid;"
	annSize           = "Ljakarta/validation/constraints/Size;"
	enumRequestMethod = "Lorg/springframework/web/bind/annotation/RequestMethod;"
)

func decode(t *testing.T, data []byte) *classfile.Class {
	t.Helper()
	class, err := classfile.NewDecoder(zap.NewNop()).Decode(data)
	require.NoError(t, err)
	return class
}

func TestDecode_ClassIdentity(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Super("com/ex/BaseController").
		Bytes()

	class := decode(t, data)
	assert.Equal(t, "com.ex.UserController", class.Name)
	assert.Equal(t, "com.ex.BaseController", class.SuperName)
	assert.Empty(t, class.Interfaces)
}

func TestDecode_ClassAnnotations(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Annotate(classfiletest.Ann(annRestController)).
		Bytes()

	class := decode(t, data)
	require.Len(t, class.Annotations, 1)
	assert.Equal(t, annRestController, class.Annotations[0].Type)
	assert.Equal(t, "RestController", class.Annotations[0].SimpleName())
	assert.Equal(t, "org.springframework.web.bind.annotation.RestController", class.Annotations[0].TypeName())
}

func TestDecode_MethodDescriptors(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Method(classfiletest.NewMethod("update", "(Ljava/lang/Long;Lcom/ex/UpdateUserDto;)Lcom/ex/UserDto;")).
		Bytes()

	class := decode(t, data)
	require.Len(t, class.Methods, 1)

	method := class.Methods[0]
	assert.Equal(t, "update", method.Name)
	assert.Equal(t, []string{"java.lang.Long", "com.ex.UpdateUserDto"}, method.ParamTypes)
	assert.Equal(t, "com.ex.UserDto", method.ReturnType)
}

func TestDecode_AnnotationValueKinds(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Method(classfiletest.NewMethod("list", "()Ljava/util/List;").
			Annotate(classfiletest.Ann(annGetMapping,
				classfiletest.Pair{Name: "value", Value: classfiletest.Array(classfiletest.Str("/users"))},
				classfiletest.Pair{Name: "count", Value: classfiletest.Int(3)},
				classfiletest.Pair{Name: "required", Value: classfiletest.Bool(true)},
				classfiletest.Pair{Name: "method", Value: classfiletest.Array(classfiletest.Enum(enumRequestMethod, "GET"))},
				classfiletest.Pair{Name: "target", Value: classfiletest.ClassRef("Lcom/ex/UserDto;")},
			))).
		Bytes()

	class := decode(t, data)
	require.Len(t, class.Methods, 1)
	require.Len(t, class.Methods[0].Annotations, 1)

	annotation := class.Methods[0].Annotations[0]

	value, ok := annotation.Get("value")
	require.True(t, ok)
	assert.Equal(t, []string{"/users"}, value.Strings())

	count, ok := annotation.Get("count")
	require.True(t, ok)
	assert.Equal(t, classfile.KindConst, count.Kind)
	assert.Equal(t, int64(3), count.Const)

	required, ok := annotation.Get("required")
	require.True(t, ok)
	b, err := required.AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	method, ok := annotation.Get("method")
	require.True(t, ok)
	assert.Equal(t, []string{"GET"}, method.EnumConstants())

	target, ok := annotation.Get("target")
	require.True(t, ok)
	assert.Equal(t, classfile.KindClass, target.Kind)
	assert.Equal(t, "com.ex.UserDto", target.ClassName)
}

func TestDecode_NestedAnnotation(t *testing.T) {
	t.Parallel()

	nested := classfiletest.Ann(annSize,
		classfiletest.Pair{Name: "min", Value: classfiletest.Int(1)},
	)
	data := classfiletest.NewClass("com/ex/UserController").
		Method(classfiletest.NewMethod("create", "(Lcom/ex/CreateUserDto;)V").
			Annotate(classfiletest.Ann(annValid,
				classfiletest.Pair{Name: "inner", Value: classfiletest.Nested(nested)},
			))).
		Bytes()

	class := decode(t, data)
	annotation := class.Methods[0].Annotations[0]

	inner, ok := annotation.Get("inner")
	require.True(t, ok)
	require.Equal(t, classfile.KindAnnotation, inner.Kind)
	assert.Equal(t, "Size", inner.Nested.SimpleName())

	min, ok := inner.Nested.Get("min")
	require.True(t, ok)
	assert.Equal(t, int64(1), min.Const)
}

func TestDecode_ParameterAnnotations(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Method(classfiletest.NewMethod("update", "(Ljava/lang/Long;Lcom/ex/UpdateUserDto;)V").
			AnnotateParam(0, classfiletest.Ann("Lorg/springframework/web/bind/annotation/PathVariable;")).
			AnnotateParam(1, classfiletest.Ann(annValid))).
		Bytes()

	class := decode(t, data)
	method := class.Methods[0]

	require.Len(t, method.ParamAnnotations, 2)
	require.Len(t, method.ParamAnnotations[0], 1)
	assert.Equal(t, "PathVariable", method.ParamAnnotations[0][0].SimpleName())
	require.Len(t, method.ParamAnnotations[1], 1)
	assert.Equal(t, "Valid", method.ParamAnnotations[1][0].SimpleName())
}

func TestDecode_CallTargets(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Method(classfiletest.NewMethod("create", "(Lcom/ex/CreateUserDto;)V").
			Calls(
				classfiletest.Call{Owner: "com/ex/UserService", Name: "createUser", Desc: "(Lcom/ex/CreateUserDto;)Lcom/ex/User;"},
				classfiletest.Call{Owner: "com/ex/UserRepository", Name: "save", Desc: "(Lcom/ex/User;)Lcom/ex/User;"},
			)).
		Bytes()

	class := decode(t, data)
	method := class.Methods[0]

	require.Len(t, method.Calls, 2)
	assert.Equal(t, "com.ex.UserService", method.Calls[0].Owner)
	assert.Equal(t, "createUser", method.Calls[0].Name)
	assert.Equal(t, "com.ex.UserRepository", method.Calls[1].Owner)
	assert.Equal(t, "save", method.Calls[1].Name)
}

func TestDecode_TransactionalRendering(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Method(classfiletest.NewMethod("update", "(Ljava/lang/Long;)V").
			Annotate(classfiletest.Ann(annTransactional,
				classfiletest.Pair{Name: "readOnly", Value: classfiletest.Bool(true)},
			))).
		Bytes()

	class := decode(t, data)
	annotation := class.Methods[0].Annotations[0]

	assert.Equal(t, "@Transactional(readOnly=true)", annotation.String())
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "empty input",
			data:    nil,
			wantErr: classfile.ErrTruncated,
		},
		{
			name:    "bad magic",
			data:    []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 61},
			wantErr: classfile.ErrBadMagic,
		},
		{
			name: "truncated after version",
			data: []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 61},
		},
		{
			name: "unknown constant pool tag",
			data: []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 61, 0, 2, 99},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := classfile.NewDecoder(zap.NewNop()).Decode(tt.data)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDecode_TruncatedRealClass(t *testing.T) {
	t.Parallel()

	data := classfiletest.NewClass("com/ex/UserController").
		Method(classfiletest.NewMethod("list", "()Ljava/util/List;")).
		Bytes()

	// Every proper prefix must fail cleanly, never panic
	for cut := 0; cut < len(data); cut += 7 {
		_, err := classfile.NewDecoder(zap.NewNop()).Decode(data[:cut])
		assert.Error(t, err, "prefix of %d bytes decoded successfully", cut)
	}
}

func TestElementValue_ShapeMismatch(t *testing.T) {
	t.Parallel()

	value := classfile.ElementValue{Kind: classfile.KindEnum, EnumType: "X", EnumConst: "GET"}

	_, err := value.AsString()
	assert.Error(t, err)

	_, err = value.AsBool()
	assert.Error(t, err)

	assert.Nil(t, value.Strings())
	assert.Equal(t, []string{"GET"}, value.EnumConstants())
}
