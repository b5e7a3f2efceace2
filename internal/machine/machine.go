// Package machine owns the fixed register file and the scratch-using
// emitters that need more than one cell to do their work: dynamic
// addressing, arithmetic, comparisons, and decimal printing. Everything
// here is grounded on the reference implementation's global register
// table and the StaticLocation/DynamicLocation method surfaces; the
// idiom strings are transcribed verbatim.
package machine

import (
	"strconv"

	"basm/internal/cell"
	"basm/internal/session"
	"basm/internal/table"
)

const (
	stackSize     = 1000
	heapSize      = 1000
	callStackSize = 1000
)

// Machine is the fixed register file plus the three tables (stack,
// heap, call stack) that sit on tape alongside it. One Machine is
// built per compilation, from a fresh session.Session, so every
// program gets the same tape layout.
type Machine struct {
	Next          cell.Cell
	Current       cell.Cell
	CurrentEq0    cell.Cell
	CurrentEq1    cell.Cell
	SP            cell.Cell
	HP            cell.Cell
	IdxTemp       cell.Cell
	ValTemp       cell.Cell
	CallSP        cell.Cell
	PushTemp      cell.Cell
	T             [6]cell.Cell
	R             [16]cell.Cell
	DynOpTemp0    cell.Cell
	DynOpTemp1    cell.Cell
	DynOpTemp2    cell.Cell
	PutIntTemp    [10]cell.Cell // PUT_INT0..PUT_INT9, named with no gap (see DESIGN.md's Open Question resolution).
	JmpTemp       cell.Cell
	SetTemp       cell.Cell
	DynSetTemp    cell.Cell
	EqualsTemp0   cell.Cell
	NotEqualsTemp [2]cell.Cell
	MathTemp      [4]cell.Cell
	IfTemp0       cell.Cell
	Zero          cell.Cell
	Trash         cell.Cell

	Stack     *table.Table
	Heap      *table.Table
	CallStack *table.Table

	sess  *session.Session
	names map[string]cell.Cell
}

// Register resolves a register name (as it appears in BASM source,
// e.g. "R0", "SP", "ZERO") to its cell. Used by the parser to turn
// identifiers into Static Cells.
func (m *Machine) Register(name string) (cell.Cell, bool) {
	c, ok := m.names[name]
	return c, ok
}

// reg allocates the next register cell, names it for debug output, and
// records it in the name table so Register can find it later.
func (m *Machine) reg(name string) cell.Cell {
	c := cell.At(m.sess.Alloc(1)).Named(name)
	m.names[name] = c
	return c
}

// New allocates the entire fixed register file in the order the
// reference implementation's registers! macro declares it, then the
// stack, heap, and call-stack tables. The order matters: tape
// addresses are positional, and changing it changes every generated
// program's layout (harmlessly, but it would break golden-output
// tests against the original).
func New(sess *session.Session) *Machine {
	m := &Machine{sess: sess, names: make(map[string]cell.Cell)}

	m.Next = m.reg("NEXT_BASIC_BLOCK")
	m.Current = m.reg("CURRENT_BASIC_BLOCK")
	m.CurrentEq0 = m.reg("CURRENT_BASIC_BLOCK_EQ0")
	m.CurrentEq1 = m.reg("CURRENT_BASIC_BLOCK_EQ1")
	m.SP = m.reg("SP")
	m.HP = m.reg("HP")
	m.IdxTemp = m.reg("IDX_TEMP")
	m.ValTemp = m.reg("VAL_TEMP")
	m.CallSP = m.reg("CALL_SP")
	m.PushTemp = m.reg("PUSH_TEMP")
	for i := range m.T {
		m.T[i] = m.reg("T"+strconv.Itoa(i))
	}
	for i := 0; i <= 5; i++ {
		m.R[i] = m.reg("R"+strconv.Itoa(i))
	}
	m.DynOpTemp0 = m.reg("DYN_OP_TEMP0")
	m.DynOpTemp1 = m.reg("DYN_OP_TEMP1")
	m.DynOpTemp2 = m.reg("DYN_OP_TEMP2")
	for i := 0; i <= 9; i++ {
		m.PutIntTemp[i] = m.reg("PUT_INT"+strconv.Itoa(i))
	}
	m.JmpTemp = m.reg("JMP_TEMP")
	m.SetTemp = m.reg("SET_TEMP")
	m.DynSetTemp = m.reg("DYN_SET_TEMP")
	m.EqualsTemp0 = m.reg("EQUALS_TEMP0")
	m.NotEqualsTemp[0] = m.reg("NOT_EQUALS_TEMP0")
	m.NotEqualsTemp[1] = m.reg("NOT_EQUALS_TEMP1")
	for i := range m.MathTemp {
		m.MathTemp[i] = m.reg("MATH_TEMP"+strconv.Itoa(i))
	}
	m.IfTemp0 = m.reg("IF_TEMP0")
	for i := 6; i <= 15; i++ {
		m.R[i] = m.reg("R"+strconv.Itoa(i))
	}
	m.Zero = m.reg("ZERO")
	m.Trash = m.reg("TRASH")

	m.Stack = table.Allocate(sess, stackSize)
	m.Heap = table.Allocate(sess, heapSize)
	m.CallStack = table.Allocate(sess, callStackSize)

	return m
}

// WhileOn loops body while x is nonzero, restoring the head to home on
// every iteration boundary and after the loop exits.
func (m *Machine) WhileOn(x cell.Cell, body string) string {
	return x.To() + "[" + x.From() + body + x.To() + "]" + x.From()
}

// IfStmt runs body once if x is nonzero at the time of the call,
// without mutating x: it copies x into IF_TEMP0 first and tests that.
func (m *Machine) IfStmt(x cell.Cell, body string) string {
	t := m.IfTemp0
	return m.SetFrom(t, x) + t.To() + "[" + t.From() + body + t.To() + "[-]]" + t.From()
}

// SetFrom copies src into dst, destructively draining src through a
// scratch cell and restoring it. A self-copy is a no-op.
func (m *Machine) SetFrom(dst, src cell.Cell) string {
	if dst.Same(src) {
		return ""
	}
	temp0 := m.SetTemp
	return temp0.Zero() + dst.Zero() +
		m.WhileOn(src, dst.Inc()+temp0.Inc()+src.Dec()) +
		m.WhileOn(temp0, src.Inc()+temp0.Dec())
}

// Negate computes dest = -src.
func (m *Machine) Negate(dest, src cell.Cell) string {
	temp0 := m.MathTemp[0]
	x := dest
	return m.SetFrom(x, src) +
		temp0.Zero() +
		m.WhileOn(x, temp0.Inc()+x.Dec()) +
		m.WhileOn(temp0, x.Dec()+temp0.Inc())
}

// BooleanNot computes dest = (src == 0) ? 1 : 0.
func (m *Machine) BooleanNot(dest, src cell.Cell) string {
	temp0 := m.MathTemp[0]
	x := dest
	return temp0.Zero() +
		m.SetFrom(x, src) +
		m.WhileOn(x, temp0.Inc()+x.Zero()) +
		x.Inc() +
		m.WhileOn(temp0, x.Dec()+temp0.Dec())
}

// Equals computes dest = (lhs == rhs) ? 1 : 0. Consumes neither lhs
// nor rhs in the caller-visible sense (both are copied first).
func (m *Machine) Equals(dest, lhs, rhs cell.Cell) string {
	x := dest
	y := m.EqualsTemp0
	return m.SetFrom(x, lhs) + m.SetFrom(y, rhs) +
		m.WhileOn(x, x.Dec()+y.Dec()) +
		x.Inc() +
		m.WhileOn(y, x.Dec()+y.Zero())
}

// NotEquals computes dest = (lhs != rhs) ? 1 : 0. Unlike Equals, rhs
// is not copied first: it is drained into a scratch and restored from
// it, so its value survives, but the result is wrong when rhs is the
// same cell as dest.
func (m *Machine) NotEquals(dest, lhs, rhs cell.Cell) string {
	x := dest
	y := rhs
	temp0 := m.NotEqualsTemp[0]
	temp1 := m.NotEqualsTemp[1]
	return temp0.Zero() + temp1.Zero() +
		m.SetFrom(x, lhs) +
		m.WhileOn(x, temp1.Inc()+x.Dec()) +
		m.WhileOn(y, temp1.Dec()+temp0.Inc()+y.Dec()) +
		m.WhileOn(temp0, y.Inc()+temp0.Dec()) +
		m.WhileOn(temp1, x.Inc()+temp1.Zero())
}

// Plus computes dest = lhs + rhs.
func (m *Machine) Plus(dest, lhs, rhs cell.Cell) string {
	x := m.MathTemp[0]
	y := rhs
	temp0 := m.MathTemp[1]
	return temp0.Zero() + m.SetFrom(x, lhs) +
		m.WhileOn(y, x.Inc()+temp0.Inc()+y.Dec()) +
		m.WhileOn(temp0, y.Inc()+temp0.Dec()) +
		m.SetFrom(dest, x)
}

// Minus computes dest = lhs - rhs.
func (m *Machine) Minus(dest, lhs, rhs cell.Cell) string {
	x := m.MathTemp[0]
	y := rhs
	temp0 := m.MathTemp[1]
	return temp0.Zero() + m.SetFrom(x, lhs) +
		m.WhileOn(y, x.Dec()+temp0.Inc()+y.Dec()) +
		m.WhileOn(temp0, y.Inc()+temp0.Dec()) +
		m.SetFrom(dest, x)
}

// Times computes dest = lhs * rhs.
func (m *Machine) Times(dest, lhs, rhs cell.Cell) string {
	x := dest
	y := rhs
	temp0 := m.MathTemp[0]
	temp1 := m.MathTemp[1]
	return temp0.Zero() + temp1.Zero() + m.SetFrom(x, lhs) +
		m.WhileOn(x, temp1.Inc()+x.Dec()) +
		m.WhileOn(temp1,
			m.WhileOn(y, x.Inc()+temp0.Inc()+y.Dec())+
				m.WhileOn(temp0, y.Inc()+temp0.Dec())+
				temp1.Dec())
}

// Divide computes dest = lhs / rhs, truncating. rhs == 0 spins
// forever, matching the reference implementation (spec.md §9).
func (m *Machine) Divide(dest, lhs, rhs cell.Cell) string {
	x := dest
	y := rhs
	temp0 := m.MathTemp[0]
	temp1 := m.MathTemp[1]
	temp2 := m.MathTemp[2]
	temp3 := m.MathTemp[3]

	return temp0.Zero() + temp1.Zero() + temp2.Zero() + temp3.Zero() +
		m.SetFrom(x, lhs) +
		m.WhileOn(x, temp0.Inc()+x.Dec()) +
		m.WhileOn(temp0,
			m.WhileOn(y, temp1.Inc()+temp2.Inc()+y.Dec())+
				m.WhileOn(temp2, y.Inc()+temp2.Dec())+
				m.WhileOn(temp1,
					temp2.Inc()+
						temp0.Dec()+
						m.WhileOn(temp0, temp2.Zero()+temp3.Inc()+temp0.Dec())+
						m.WhileOn(temp3, temp0.Inc()+temp3.Dec())+
						m.WhileOn(temp2,
							temp1.Dec()+
								m.WhileOn(temp1, x.Dec()+temp1.Zero())+
								temp1.Inc()+
								temp2.Dec())+
						temp1.Dec())+
				x.Inc())
}

// PutInt prints x in decimal using the ten-scratch-cell conversion
// idiom, transcribed verbatim. x is preserved: the conversion runs on
// a copy of it in the first scratch cell.
func (m *Machine) PutInt(x cell.Cell) string {
	p := m.PutIntTemp
	return m.SetFrom(p[0], x) +
		p[1].Zero() + p[2].Zero() + p[3].Zero() +
		p[4].SetConst(1) +
		p[5].Zero() + p[6].Zero() + p[7].Zero() +
		p[0].To() +
		">[-]>[-]+>[-]+<[>[-<-<<[->+>+<<]>[-<+>]>>]++++++++++>[-]+>[-]>[-]>[-]<<<<<[->-[>+>>]>[[-<+>]+>+>>]<<<<<]>>-[-<<+>>]<[-]++++++++[-<++++++>]>>[-<<+>>]<<]<[.[-]<]<" +
		p[0].From()
}

// staticBinop materializes lhs/rhs into the dyn-op scratches, applies
// op, then copies the result into dest. Used by DynLoc's arithmetic so
// that Direct and Indirect operands are handled uniformly.
func (m *Machine) staticBinop(op func(dest, lhs, rhs cell.Cell) string, dest, lhs, rhs cell.Cell) string {
	t0, t1, t2 := m.DynOpTemp0, m.DynOpTemp1, m.DynOpTemp2
	return m.SetFrom(t0, lhs) + m.SetFrom(t1, rhs) + op(t2, t0, t1) + m.SetFrom(dest, t2)
}

func (m *Machine) staticUnop(op func(dest, src cell.Cell) string, dest, src cell.Cell) string {
	t0, t1 := m.DynOpTemp0, m.DynOpTemp1
	return m.SetFrom(t0, src) + op(t1, t0) + m.SetFrom(dest, t1)
}

// Mode is a Dynamic Location's addressing mode (spec.md §3.3).
type Mode int

const (
	// Direct addresses the cell itself.
	Direct Mode = iota
	// StackIndirect addresses stack[cell] (the stack table, indexed
	// by the cell's current value).
	StackIndirect
	// HeapIndirect addresses heap[cell] the same way.
	HeapIndirect
)

// DynLoc is a Dynamic Location: a Static Cell plus an addressing mode.
type DynLoc struct {
	Mode Mode
	Cell cell.Cell
}

// DirectLoc builds a directly-addressed DynLoc over c.
func DirectLoc(c cell.Cell) DynLoc { return DynLoc{Mode: Direct, Cell: c} }

// Stack builds a stack-indirect DynLoc: the target is stack[c].
func Stack(c cell.Cell) DynLoc { return DynLoc{Mode: StackIndirect, Cell: c} }

// Heap builds a heap-indirect DynLoc: the target is heap[c].
func Heap(c cell.Cell) DynLoc { return DynLoc{Mode: HeapIndirect, Cell: c} }

// Same reports whether two locations denote the same cell under the
// same addressing mode; used by DynSetFrom's self-copy short circuit.
func (d DynLoc) Same(o DynLoc) bool {
	return d.Mode == o.Mode && d.Cell.Same(o.Cell)
}

// SetFrom copies src into d, dispatching on the 3x3 cross product of
// addressing modes. A self-copy (same mode, same cell) is a no-op,
// matching the reference implementation's alias check.
func (m *Machine) DynSetFrom(d, src DynLoc) string {
	if d.Same(src) {
		return ""
	}
	switch {
	case d.Mode == Direct && src.Mode == Direct:
		return m.SetFrom(d.Cell, src.Cell)
	case d.Mode == Direct && src.Mode == StackIndirect:
		return m.Stack.Get(src.Cell, d.Cell)
	case d.Mode == Direct && src.Mode == HeapIndirect:
		return m.Heap.Get(src.Cell, d.Cell)
	case d.Mode == StackIndirect && src.Mode == Direct:
		return m.Stack.Set(d.Cell, src.Cell)
	case d.Mode == HeapIndirect && src.Mode == Direct:
		return m.Heap.Set(d.Cell, src.Cell)
	case d.Mode == StackIndirect && src.Mode == StackIndirect:
		return m.Stack.Get(src.Cell, m.DynSetTemp) + m.Stack.Set(d.Cell, m.DynSetTemp)
	case d.Mode == HeapIndirect && src.Mode == HeapIndirect:
		return m.Heap.Get(src.Cell, m.DynSetTemp) + m.Heap.Set(d.Cell, m.DynSetTemp)
	case d.Mode == StackIndirect && src.Mode == HeapIndirect:
		return m.Heap.Get(src.Cell, m.DynSetTemp) + m.Stack.Set(d.Cell, m.DynSetTemp)
	case d.Mode == HeapIndirect && src.Mode == StackIndirect:
		return m.Stack.Get(src.Cell, m.DynSetTemp) + m.Heap.Set(d.Cell, m.DynSetTemp)
	default:
		panic("unreachable addressing mode combination")
	}
}

// DynSetConst writes a literal into d.
func (m *Machine) DynSetConst(d DynLoc, value uint64) string {
	switch d.Mode {
	case Direct:
		return d.Cell.SetConst(value)
	case StackIndirect:
		return m.ValTemp.SetConst(value) + m.Stack.Set(d.Cell, m.ValTemp)
	case HeapIndirect:
		return m.ValTemp.SetConst(value) + m.Heap.Set(d.Cell, m.ValTemp)
	default:
		panic("unreachable addressing mode")
	}
}

// DynAddConst adds (or, if negative, subtracts) a literal in place.
func (m *Machine) DynAddConst(d DynLoc, delta int64) string {
	if delta < 0 {
		return m.DynSubConst(d, -delta)
	}
	switch d.Mode {
	case Direct:
		return d.Cell.AddConst(delta)
	case StackIndirect:
		return m.Stack.Get(d.Cell, m.ValTemp) + m.ValTemp.AddConst(delta) + m.Stack.Set(d.Cell, m.ValTemp)
	case HeapIndirect:
		return m.Heap.Get(d.Cell, m.ValTemp) + m.ValTemp.AddConst(delta) + m.Heap.Set(d.Cell, m.ValTemp)
	default:
		panic("unreachable addressing mode")
	}
}

// DynSubConst subtracts (or, if negative, adds) a literal in place.
func (m *Machine) DynSubConst(d DynLoc, delta int64) string {
	if delta < 0 {
		return m.DynAddConst(d, -delta)
	}
	switch d.Mode {
	case Direct:
		return d.Cell.SubConst(delta)
	case StackIndirect:
		return m.Stack.Get(d.Cell, m.ValTemp) + m.ValTemp.SubConst(delta) + m.Stack.Set(d.Cell, m.ValTemp)
	case HeapIndirect:
		return m.Heap.Get(d.Cell, m.ValTemp) + m.ValTemp.SubConst(delta) + m.Heap.Set(d.Cell, m.ValTemp)
	default:
		panic("unreachable addressing mode")
	}
}

// DynInc/DynDec are the +-1 special cases of Add/SubConst.
func (m *Machine) DynInc(d DynLoc) string { return m.DynAddConst(d, 1) }
func (m *Machine) DynDec(d DynLoc) string { return m.DynSubConst(d, 1) }

// DynGetChar reads one byte of input into d.
func (m *Machine) DynGetChar(d DynLoc) string {
	switch d.Mode {
	case Direct:
		return d.Cell.GetChar()
	case StackIndirect:
		return m.ValTemp.GetChar() + m.Stack.Set(d.Cell, m.ValTemp)
	case HeapIndirect:
		return m.ValTemp.GetChar() + m.Heap.Set(d.Cell, m.ValTemp)
	default:
		panic("unreachable addressing mode")
	}
}

// DynPutChar prints d's value as a character.
func (m *Machine) DynPutChar(d DynLoc) string {
	switch d.Mode {
	case Direct:
		return d.Cell.PutChar()
	case StackIndirect:
		return m.Stack.Get(d.Cell, m.ValTemp) + m.ValTemp.PutChar()
	case HeapIndirect:
		return m.Heap.Get(d.Cell, m.ValTemp) + m.ValTemp.PutChar()
	default:
		panic("unreachable addressing mode")
	}
}

// DynPutInt prints d's value in decimal.
func (m *Machine) DynPutInt(d DynLoc) string {
	switch d.Mode {
	case Direct:
		return m.PutInt(d.Cell)
	case StackIndirect:
		return m.Stack.Get(d.Cell, m.ValTemp) + m.PutInt(m.ValTemp)
	case HeapIndirect:
		return m.Heap.Get(d.Cell, m.ValTemp) + m.PutInt(m.ValTemp)
	default:
		panic("unreachable addressing mode")
	}
}

// dynBinop/dynUnop bridge a DynLoc-level operation into the Static
// Cell math primitives via the DYN_OP scratches, so arithmetic works
// the same whether operands are Direct, StackIndirect, or HeapIndirect.
func (m *Machine) dynBinop(op func(dest, lhs, rhs cell.Cell) string, dest, lhs, rhs DynLoc) string {
	t0, t1, t2 := m.DynOpTemp0, m.DynOpTemp1, m.DynOpTemp2
	return m.DynSetFrom(DirectLoc(t0), lhs) + m.DynSetFrom(DirectLoc(t1), rhs) + op(t2, t0, t1) + m.DynSetFrom(dest, DirectLoc(t2))
}

func (m *Machine) dynUnop(op func(dest, src cell.Cell) string, dest, src DynLoc) string {
	t0, t1 := m.DynOpTemp0, m.DynOpTemp1
	return m.DynSetFrom(DirectLoc(t0), src) + op(t1, t0) + m.DynSetFrom(dest, DirectLoc(t1))
}

// DynPlus/DynMinus/DynTimes/DynDivide/DynEquals/DynNotEquals compute
// dest = lhs <op> rhs across any combination of addressing modes.
func (m *Machine) DynPlus(dest, lhs, rhs DynLoc) string  { return m.dynBinop(m.Plus, dest, lhs, rhs) }
func (m *Machine) DynMinus(dest, lhs, rhs DynLoc) string { return m.dynBinop(m.Minus, dest, lhs, rhs) }
func (m *Machine) DynTimes(dest, lhs, rhs DynLoc) string { return m.dynBinop(m.Times, dest, lhs, rhs) }
func (m *Machine) DynDivide(dest, lhs, rhs DynLoc) string {
	return m.dynBinop(m.Divide, dest, lhs, rhs)
}
func (m *Machine) DynEquals(dest, lhs, rhs DynLoc) string {
	return m.dynBinop(m.Equals, dest, lhs, rhs)
}
func (m *Machine) DynNotEquals(dest, lhs, rhs DynLoc) string {
	return m.dynBinop(m.NotEquals, dest, lhs, rhs)
}

// DynNegate/DynBooleanNot compute dest = -src / dest = !src.
func (m *Machine) DynNegate(dest, src DynLoc) string    { return m.dynUnop(m.Negate, dest, src) }
func (m *Machine) DynBooleanNot(dest, src DynLoc) string { return m.dynUnop(m.BooleanNot, dest, src) }

// PushToCallStack/PopFromCallStack implement the explicit call-stack
// push/pop used by Call/Return lowering, distinct from the user-facing
// operand stack.
func (m *Machine) PushToCallStack(loc cell.Cell) string {
	return m.CallSP.Inc() + m.CallStack.Set(m.CallSP, loc)
}

func (m *Machine) PopFromCallStack(loc cell.Cell) string {
	return m.CallStack.Get(m.CallSP, loc) + m.CallSP.Dec()
}

// Operand is either an immediate literal or a Dynamic Location.
type Operand struct {
	IsImmediate bool
	Immediate   uint64
	Location    DynLoc
}

// ImmediateOperand and LocationOperand build the two Operand variants.
func ImmediateOperand(v uint64) Operand { return Operand{IsImmediate: true, Immediate: v} }
func LocationOperand(d DynLoc) Operand  { return Operand{Location: d} }

// Push pushes op onto the user-facing operand stack. Location operands
// are staged through PUSH_TEMP first so that reading [SP] after
// SP.Inc() can't alias the source location.
func (m *Machine) Push(op Operand) string {
	if op.IsImmediate {
		return m.SP.Inc() + m.Stack.SetConst(m.ValTemp, m.SP, op.Immediate)
	}
	dst := DynLoc{Mode: Direct, Cell: m.PushTemp}
	return m.DynSetFrom(dst, op.Location) +
		m.SP.Inc() +
		m.Stack.Set(m.SP, m.PushTemp)
}

// Pop pops the operand stack, optionally writing the popped value into
// dst (nil discards it).
func (m *Machine) Pop(dst *DynLoc) string {
	if dst == nil {
		return m.SP.Dec()
	}
	return m.DynSetFrom(*dst, DynLoc{Mode: StackIndirect, Cell: m.SP}) + m.SP.Dec()
}

