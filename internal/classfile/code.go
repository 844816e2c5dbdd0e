package classfile

import (
	"errors"
	"fmt"
)

// ErrBadCode means a method body could not be walked without
// desynchronizing from the instruction stream.
var ErrBadCode = errors.New("bad code attribute")

// CallTarget is one method-invocation site recorded from a method body.
type CallTarget struct {
	Owner      string // dotted FQN of the invoked class
	Name       string
	Descriptor string
}

// Invocation opcodes.
const (
	opInvokeVirtual   = 0xb6
	opInvokeSpecial   = 0xb7
	opInvokeStatic    = 0xb8
	opInvokeInterface = 0xb9
	opInvokeDynamic   = 0xba
	opTableSwitch     = 0xaa
	opLookupSwitch    = 0xab
	opWide            = 0xc4
	opIinc            = 0x84
)

// opWidth holds the operand byte count for each fixed-width opcode, or -1
// for the variable-width ones (tableswitch, lookupswitch, wide) and for
// opcodes that do not appear in valid code.
var opWidth [256]int

func init() {
	for i := range opWidth {
		opWidth[i] = -1
	}
	setWidth(0x00, 0x0f, 0) // nop, constants
	setWidth(0x10, 0x10, 1) // bipush
	setWidth(0x11, 0x11, 2) // sipush
	setWidth(0x12, 0x12, 1) // ldc
	setWidth(0x13, 0x14, 2) // ldc_w, ldc2_w
	setWidth(0x15, 0x19, 1) // loads with index
	setWidth(0x1a, 0x35, 0) // loads_n, array loads
	setWidth(0x36, 0x3a, 1) // stores with index
	setWidth(0x3b, 0x83, 0) // stores_n, stack, arithmetic
	setWidth(0x84, 0x84, 2) // iinc
	setWidth(0x85, 0x98, 0) // conversions, comparisons
	setWidth(0x99, 0xa8, 2) // branches, goto, jsr
	setWidth(0xa9, 0xa9, 1) // ret
	setWidth(0xac, 0xb1, 0) // returns
	setWidth(0xb2, 0xb5, 2) // field access
	setWidth(0xb6, 0xb8, 2) // invokevirtual/special/static
	setWidth(0xb9, 0xba, 4) // invokeinterface, invokedynamic
	setWidth(0xbb, 0xbb, 2) // new
	setWidth(0xbc, 0xbc, 1) // newarray
	setWidth(0xbd, 0xbd, 2) // anewarray
	setWidth(0xbe, 0xbf, 0) // arraylength, athrow
	setWidth(0xc0, 0xc1, 2) // checkcast, instanceof
	setWidth(0xc2, 0xc3, 0) // monitorenter, monitorexit
	setWidth(0xc5, 0xc5, 3) // multianewarray
	setWidth(0xc6, 0xc7, 2) // ifnull, ifnonnull
	setWidth(0xc8, 0xc9, 4) // goto_w, jsr_w
}

func setWidth(from, to, width int) {
	for i := from; i <= to; i++ {
		opWidth[i] = width
	}
}

// scanCallTargets walks the bytecode of one method body and records the
// (owner, name, descriptor) of every invokevirtual, invokespecial,
// invokestatic, and invokeinterface instruction. Every other instruction
// is stepped over by width so the walk never desynchronizes.
func scanCallTargets(code []byte, pool *constantPool) ([]CallTarget, error) {
	var calls []CallTarget

	pc := 0
	for pc < len(code) {
		op := code[pc]

		switch op {
		case opInvokeVirtual, opInvokeSpecial, opInvokeStatic, opInvokeInterface:
			if pc+3 > len(code) {
				return nil, fmt.Errorf("%w: truncated invocation at pc %d", ErrBadCode, pc)
			}
			index := uint16(code[pc+1])<<8 | uint16(code[pc+2])
			owner, name, descriptor, err := pool.MethodRef(index)
			if err != nil {
				return nil, fmt.Errorf("%w: invocation at pc %d: %v", ErrBadCode, pc, err)
			}
			calls = append(calls, CallTarget{Owner: owner, Name: name, Descriptor: descriptor})

		case opTableSwitch:
			next, err := skipTableSwitch(code, pc)
			if err != nil {
				return nil, err
			}
			pc = next
			continue

		case opLookupSwitch:
			next, err := skipLookupSwitch(code, pc)
			if err != nil {
				return nil, err
			}
			pc = next
			continue

		case opWide:
			if pc+1 >= len(code) {
				return nil, fmt.Errorf("%w: truncated wide at pc %d", ErrBadCode, pc)
			}
			if code[pc+1] == opIinc {
				pc += 6
			} else {
				pc += 4
			}
			continue
		}

		width := opWidth[op]
		if width < 0 {
			return nil, fmt.Errorf("%w: unknown opcode 0x%02x at pc %d", ErrBadCode, op, pc)
		}
		pc += 1 + width
	}

	if pc != len(code) {
		return nil, fmt.Errorf("%w: instruction stream overran code length", ErrBadCode)
	}

	return calls, nil
}

func skipTableSwitch(code []byte, pc int) (int, error) {
	pos := pc + 1 + pad4(pc+1)
	if pos+12 > len(code) {
		return 0, fmt.Errorf("%w: truncated tableswitch at pc %d", ErrBadCode, pc)
	}
	low := readInt32(code, pos+4)
	high := readInt32(code, pos+8)
	if high < low {
		return 0, fmt.Errorf("%w: tableswitch range inverted at pc %d", ErrBadCode, pc)
	}
	pos += 12 + 4*int(high-low+1)
	if pos > len(code) {
		return 0, fmt.Errorf("%w: truncated tableswitch at pc %d", ErrBadCode, pc)
	}
	return pos, nil
}

func skipLookupSwitch(code []byte, pc int) (int, error) {
	pos := pc + 1 + pad4(pc+1)
	if pos+8 > len(code) {
		return 0, fmt.Errorf("%w: truncated lookupswitch at pc %d", ErrBadCode, pc)
	}
	npairs := readInt32(code, pos+4)
	if npairs < 0 {
		return 0, fmt.Errorf("%w: lookupswitch pair count negative at pc %d", ErrBadCode, pc)
	}
	pos += 8 + 8*int(npairs)
	if pos > len(code) {
		return 0, fmt.Errorf("%w: truncated lookupswitch at pc %d", ErrBadCode, pc)
	}
	return pos, nil
}

// pad4 returns the padding needed to align offset to a 4-byte boundary.
func pad4(offset int) int {
	return (4 - offset%4) % 4
}

func readInt32(code []byte, pos int) int32 {
	return int32(uint32(code[pos])<<24 | uint32(code[pos+1])<<16 | uint32(code[pos+2])<<8 | uint32(code[pos+3]))
}
