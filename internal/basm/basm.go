// Package basm is BASM's AST and its lowering into BF text: every
// Op and BasicBlockOp variant from the reference implementation's
// asm::mod, and the basic-block dispatcher (outer while-loop, the
// CURRENT/NEXT register pair, per-op linear scan) that assembles a
// whole Program.
package basm

import (
	"basm/internal/cell"
	"basm/internal/errors"
	"basm/internal/machine"
	"basm/internal/session"
)

// OpKind selects which instruction a BasicBlockOp is. Only the
// BasicBlockOp fields that its Kind uses are meaningful; this mirrors the
// reference implementation's enum more directly than a Go interface
// would, since every variant shares the same assembly dispatch.
type OpKind int

const (
	OpPush OpKind = iota
	OpPop
	OpGetChar
	OpPutChar
	OpPutInt
	OpSet
	OpGetAddr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpEq
	OpNe
	OpInc
	OpDec
	OpHexDump
	OpDecimalDump
)

// BasicBlockOp is a single op inside a basic block.
type BasicBlockOp struct {
	Kind OpKind

	// Push/PutChar/PutInt operand.
	Operand machine.Operand

	// Pop/GetChar destination; nil means discard.
	Dest *machine.DynLoc

	// Set/Add/Sub/Mul/Div/Mod/Eq/Ne.
	Src  machine.Operand
	Lhs  machine.Operand
	Rhs  machine.Operand

	// GetAddr.
	GetAddrSrc      machine.Operand
	GetAddrOffset   *machine.Operand
	GetAddrNegative bool

	// Neg.
	NegSrc machine.DynLoc

	// Inc/Dec.
	IncDecLoc    machine.DynLoc
	IncDecAmount *uint64
}

// materialize copies an Operand's value into a scratch cell, following
// the reference implementation's Add/Sub/Mul/Div/Eq/Ne lowering, which
// always stages both operands into fixed T0/T1 scratches before
// touching the result via static_binop.
func materialize(m *machine.Machine, scratch cell.Cell, op machine.Operand) string {
	if op.IsImmediate {
		return scratch.SetConst(op.Immediate)
	}
	return m.DynSetFrom(machine.DirectLoc(scratch), op.Location)
}

// Assemble lowers a single BasicBlockOp to BF text.
func (op BasicBlockOp) Assemble(m *machine.Machine) (string, error) {
	switch op.Kind {
	case OpPush:
		return m.Push(op.Operand), nil

	case OpPop:
		return m.Pop(op.Dest), nil

	case OpHexDump:
		return "#", nil

	case OpDecimalDump:
		return "$", nil

	case OpInc:
		if op.IncDecAmount == nil {
			return m.DynInc(op.IncDecLoc), nil
		}
		return m.DynAddConst(op.IncDecLoc, int64(*op.IncDecAmount)), nil

	case OpDec:
		if op.IncDecAmount == nil {
			return m.DynDec(op.IncDecLoc), nil
		}
		return m.DynSubConst(op.IncDecLoc, int64(*op.IncDecAmount)), nil

	case OpGetAddr:
		return assembleGetAddr(m, op)

	case OpSet:
		if op.Src.IsImmediate {
			return m.DynSetConst(*op.Dest, op.Src.Immediate), nil
		}
		return m.DynSetFrom(*op.Dest, op.Src.Location), nil

	case OpGetChar:
		if op.Dest == nil {
			return m.DynGetChar(machine.DirectLoc(m.Trash)), nil
		}
		return m.DynGetChar(*op.Dest), nil

	case OpPutChar:
		if op.Operand.IsImmediate {
			return m.Trash.SetConst(op.Operand.Immediate) + m.Trash.PutChar(), nil
		}
		return m.DynPutChar(op.Operand.Location), nil

	case OpPutInt:
		if op.Operand.IsImmediate {
			return m.Trash.SetConst(op.Operand.Immediate) + m.PutInt(m.Trash), nil
		}
		return m.DynPutInt(op.Operand.Location), nil

	case OpAdd, OpSub, OpMul, OpDiv, OpEq, OpNe:
		return assembleBinop(m, op)

	case OpMod:
		return "", errors.New(errors.UnimplementedInstruction, "mod is not implemented")

	case OpNeg:
		t0 := m.T[0]
		return materialize(m, t0, machine.LocationOperand(op.NegSrc)) +
			m.DynNegate(*op.Dest, machine.DirectLoc(t0)), nil

	default:
		return "", errors.New(errors.UnimplementedInstruction, "unknown op kind %d", op.Kind)
	}
}

func assembleBinop(m *machine.Machine, op BasicBlockOp) (string, error) {
	t0, t1 := m.T[0], m.T[1]
	pre := materialize(m, t0, op.Lhs) + materialize(m, t1, op.Rhs)
	l, r := machine.DirectLoc(t0), machine.DirectLoc(t1)
	switch op.Kind {
	case OpAdd:
		return pre + m.DynPlus(*op.Dest, l, r), nil
	case OpSub:
		return pre + m.DynMinus(*op.Dest, l, r), nil
	case OpMul:
		return pre + m.DynTimes(*op.Dest, l, r), nil
	case OpDiv:
		return pre + m.DynDivide(*op.Dest, l, r), nil
	case OpEq:
		return pre + m.DynEquals(*op.Dest, l, r), nil
	case OpNe:
		return pre + m.DynNotEquals(*op.Dest, l, r), nil
	default:
		return "", errors.New(errors.UnimplementedInstruction, "not a binop kind %d", op.Kind)
	}
}

// assembleGetAddr lowers `dest lea src [+/- offset]`. For an indirect
// source (stack/heap), this uses the source location's *contents*, not
// its address, reproducing a documented quirk of the reference
// implementation (spec.md §9) rather than "fixing" it.
func assembleGetAddr(m *machine.Machine, op BasicBlockOp) (string, error) {
	src := op.GetAddrSrc.Location
	dest := *op.Dest

	if op.GetAddrOffset == nil {
		if src.Mode == machine.Direct {
			return m.DynSetConst(dest, uint64(src.Cell.Addr)), nil
		}
		return m.DynSetFrom(dest, src), nil
	}

	offset := *op.GetAddrOffset
	if src.Mode == machine.Direct {
		if offset.IsImmediate {
			delta := int64(offset.Immediate)
			if op.GetAddrNegative {
				delta = -delta
			}
			return m.DynSetConst(dest, uint64(int64(src.Cell.Addr)+delta)), nil
		}
		if op.GetAddrNegative {
			return m.DynSetConst(dest, uint64(src.Cell.Addr)) + m.DynMinus(dest, dest, offset.Location), nil
		}
		return m.DynSetConst(dest, uint64(src.Cell.Addr)) + m.DynPlus(dest, dest, offset.Location), nil
	}

	if offset.IsImmediate {
		if op.GetAddrNegative {
			return m.DynSetFrom(dest, src) + m.DynSubConst(dest, int64(offset.Immediate)), nil
		}
		return m.DynSetFrom(dest, src) + m.DynAddConst(dest, int64(offset.Immediate)), nil
	}
	if op.GetAddrNegative {
		return m.DynSetFrom(dest, src) + m.DynMinus(dest, dest, offset.Location), nil
	}
	return m.DynSetFrom(dest, src) + m.DynPlus(dest, dest, offset.Location), nil
}

// BasicBlock is a labeled (or anonymous) sequence of ops.
type BasicBlock struct {
	Label *string
	ID    int
	Ops   []BasicBlockOp
}

// NewBasicBlock allocates the next basic-block id from sess, registers
// the label if present, and returns the block.
func NewBasicBlock(sess *session.Session, label *string, ops []BasicBlockOp) *BasicBlock {
	id := sess.NextBlockID()
	if label != nil {
		sess.RegisterLabel(*label, id)
	}
	return &BasicBlock{Label: label, ID: id, Ops: ops}
}

// Assemble lowers every op in the block, in order.
func (b *BasicBlock) Assemble(m *machine.Machine) (string, error) {
	var out string
	for _, op := range b.Ops {
		s, err := op.Assemble(m)
		if err != nil {
			return "", err
		}
		out += s
	}
	return out, nil
}

// TermKind enumerates the block-terminating / standalone top-level ops.
type TermKind int

const (
	TermBasicBlock TermKind = iota
	TermLabel
	TermQuit
	TermJmp
	TermCall
	TermReturn
	TermJmpIf
)

// Op is one top-level program element: a basic block body, or a
// control-flow terminator that decides which block runs next. Every
// terminator occupies its own basic-block number, just like a
// one-instruction block would (Number, for Kind != TermBasicBlock/
// TermLabel, where the number instead comes from Block.ID).
type Op struct {
	Kind TermKind

	Block  *BasicBlock // TermBasicBlock, TermLabel
	Number int         // TermQuit, TermJmp, TermCall, TermReturn, TermJmpIf

	TargetLabel string         // TermJmp, TermCall, TermJmpIf
	Cond        machine.DynLoc // TermJmpIf
}

// NewTerminator allocates a fresh basic-block number from sess for a
// bare terminator op (one not already carried by a BasicBlock).
func NewTerminator(sess *session.Session, kind TermKind) Op {
	return Op{Kind: kind, Number: sess.NextBlockID()}
}

// GotoNextBasicBlock emits the BF text that decides NEXT_BASIC_BLOCK
// after this op runs. TermBasicBlock/TermLabel are non-terminators:
// the outer dispatch loop already pre-incremented NEXT before running
// this block's body, so falling off the end of a block continues to
// the next-numbered block for free.
func (op Op) GotoNextBasicBlock(m *machine.Machine, sess *session.Session) (string, error) {
	switch op.Kind {
	case TermBasicBlock, TermLabel:
		return "", nil

	case TermQuit:
		return m.Next.SetConst(0), nil

	case TermJmp:
		target, ok := sess.ResolveLabel(op.TargetLabel)
		if !ok {
			return "", errors.New(errors.UnknownLabel, "undefined label %q", op.TargetLabel)
		}
		return m.Next.SetConst(uint64(target)), nil

	case TermCall:
		target, ok := sess.ResolveLabel(op.TargetLabel)
		if !ok {
			return "", errors.New(errors.UnknownLabel, "undefined label %q", op.TargetLabel)
		}
		return m.PushToCallStack(m.Next) + m.Next.SetConst(uint64(target)), nil

	case TermReturn:
		return m.PopFromCallStack(m.Next), nil

	case TermJmpIf:
		target, ok := sess.ResolveLabel(op.TargetLabel)
		if !ok {
			return "", errors.New(errors.UnknownLabel, "undefined label %q", op.TargetLabel)
		}
		// Any nonzero value is truthy (spec.md §9's resolution of the
		// reference implementation's ambiguous double-if_stmt idiom):
		// a single conditional branch, testing the condition once.
		t0 := m.T[0]
		return materialize(m, t0, machine.LocationOperand(op.Cond)) +
			m.IfStmt(t0, m.Next.SetConst(uint64(target))), nil

	default:
		return "", errors.New(errors.UnimplementedInstruction, "unknown terminator kind %d", op.Kind)
	}
}

// Assemble lowers one top-level Op: it tests CURRENT_BASIC_BLOCK
// against this op's block number and, if it matches, runs either the
// block body or the terminator's goto logic.
func (op Op) Assemble(m *machine.Machine, sess *session.Session) (string, error) {
	number := op.blockNumber()

	var body string
	var err error
	switch op.Kind {
	case TermBasicBlock, TermLabel:
		body, err = op.Block.Assemble(m)
	default:
		body, err = op.GotoNextBasicBlock(m, sess)
	}
	if err != nil {
		return "", err
	}

	return m.CurrentEq1.SetConst(uint64(number)) +
		m.Equals(m.CurrentEq0, m.Current, m.CurrentEq1) +
		m.IfStmt(m.CurrentEq0, body), nil
}

func (op Op) blockNumber() int {
	if op.Block != nil {
		return op.Block.ID
	}
	return op.Number
}

// Program is a full BASM program: a flat sequence of basic blocks and
// control-flow terminators, as produced by the parser.
type Program []Op

// Assemble lowers the whole program into the outer dispatch loop: seed
// CURRENT and NEXT to block 1, then loop while NEXT != 0, each
// iteration pre-incrementing NEXT (so fallthrough lands on the next
// block by default), running every op's block-number test, then
// copying NEXT back into CURRENT for the following iteration.
func (p Program) Assemble(m *machine.Machine, sess *session.Session) (string, error) {
	var ops string
	for _, op := range p {
		s, err := op.Assemble(m, sess)
		if err != nil {
			return "", err
		}
		ops += s
	}

	return m.Current.SetConst(1) +
		m.Next.SetConst(1) +
		m.WhileOn(m.Next, m.Next.Inc()+ops+m.SetFrom(m.Current, m.Next)), nil
}
