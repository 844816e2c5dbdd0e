package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool builds a pool with a single Methodref at index 1 chain.
func testPool(t *testing.T) *constantPool {
	t.Helper()
	// 1: Methodref(2, 3), 2: Class(4), 3: NameAndType(5, 6),
	// 4: "com/ex/Repo", 5: "save", 6: "(Lcom/ex/User;)V"
	return &constantPool{entries: []cpEntry{
		{},
		{tag: tagMethodref, ref1: 2, ref2: 3},
		{tag: tagClass, ref1: 4},
		{tag: tagNameAndType, ref1: 5, ref2: 6},
		{tag: tagUtf8, str: "com/ex/Repo"},
		{tag: tagUtf8, str: "save"},
		{tag: tagUtf8, str: "(Lcom/ex/User;)V"},
	}}
}

func TestScanCallTargets_Invocations(t *testing.T) {
	t.Parallel()
	pool := testPool(t)

	// aload_0; invokevirtual #1; invokestatic #1; return
	code := []byte{0x2a, 0xb6, 0x00, 0x01, 0xb8, 0x00, 0x01, 0xb1}

	calls, err := scanCallTargets(code, pool)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "com.ex.Repo", calls[0].Owner)
	assert.Equal(t, "save", calls[0].Name)
	assert.Equal(t, "(Lcom/ex/User;)V", calls[0].Descriptor)
}

func TestScanCallTargets_InvokeInterfaceWidth(t *testing.T) {
	t.Parallel()
	pool := testPool(t)

	// Reuse the Methodref slot as an interface ref for width checking
	pool.entries[1].tag = tagInterfaceMethodref

	// invokeinterface #1, count 2, zero; return
	code := []byte{0xb9, 0x00, 0x01, 0x02, 0x00, 0xb1}

	calls, err := scanCallTargets(code, pool)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "com.ex.Repo", calls[0].Owner)
}

func TestScanCallTargets_SkipsVariableWidthInstructions(t *testing.T) {
	t.Parallel()
	pool := testPool(t)

	var code []byte
	code = append(code, 0x03) // iconst_0 at pc 0

	// tableswitch at pc 1: operands start at pc 2, pad to 4
	code = append(code, 0xaa)
	code = append(code, 0x00, 0x00) // padding to pc 4
	code = append(code, 0x00, 0x00, 0x00, 0x01) // default
	code = append(code, 0x00, 0x00, 0x00, 0x00) // low = 0
	code = append(code, 0x00, 0x00, 0x00, 0x01) // high = 1
	code = append(code, 0x00, 0x00, 0x00, 0x01) // offset 0
	code = append(code, 0x00, 0x00, 0x00, 0x01) // offset 1

	code = append(code, 0xb6, 0x00, 0x01) // invokevirtual #1
	code = append(code, 0xb1)             // return

	calls, err := scanCallTargets(code, pool)
	require.NoError(t, err)
	require.Len(t, calls, 1)
}

func TestScanCallTargets_LookupSwitch(t *testing.T) {
	t.Parallel()
	pool := testPool(t)

	var code []byte
	code = append(code, 0xab)                   // lookupswitch at pc 0
	code = append(code, 0x00, 0x00, 0x00)       // padding to pc 4
	code = append(code, 0x00, 0x00, 0x00, 0x01) // default
	code = append(code, 0x00, 0x00, 0x00, 0x01) // npairs = 1
	code = append(code, 0x00, 0x00, 0x00, 0x07) // match
	code = append(code, 0x00, 0x00, 0x00, 0x01) // offset
	code = append(code, 0xb6, 0x00, 0x01)       // invokevirtual #1
	code = append(code, 0xb1)

	calls, err := scanCallTargets(code, pool)
	require.NoError(t, err)
	require.Len(t, calls, 1)
}

func TestScanCallTargets_Wide(t *testing.T) {
	t.Parallel()
	pool := testPool(t)

	// wide iload 256; wide iinc 256 by 1; return
	code := []byte{
		0xc4, 0x15, 0x01, 0x00,
		0xc4, 0x84, 0x01, 0x00, 0x00, 0x01,
		0xb1,
	}

	calls, err := scanCallTargets(code, pool)
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestScanCallTargets_Malformed(t *testing.T) {
	t.Parallel()
	pool := testPool(t)

	tests := []struct {
		name string
		code []byte
	}{
		{name: "truncated invocation", code: []byte{0xb6, 0x00}},
		{name: "invalid pool index", code: []byte{0xb6, 0x00, 0x63, 0xb1}},
		{name: "unknown opcode", code: []byte{0xff}},
		{name: "overrun operand", code: []byte{0x10}}, // bipush with no operand
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := scanCallTargets(tt.code, pool)
			assert.ErrorIs(t, err, ErrBadCode)
		})
	}
}
