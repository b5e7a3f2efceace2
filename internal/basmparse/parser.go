package basmparse

import (
	"basm/internal/basm"
	"basm/internal/cell"
	basmerrors "basm/internal/errors"
	"basm/internal/machine"
	"basm/internal/session"
)

// Parse compiles BASM source text into a Program, resolving register
// names against m and registering basic-block labels into sess. A
// trailing Quit is always appended, matching the reference parser.
func Parse(sess *session.Session, m *machine.Machine, file, src string) (basm.Program, error) {
	toks, err := scan(file, src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, sess: sess, m: m, file: file}
	return p.parseProgram()
}

type parser struct {
	toks []token
	pos  int
	sess *session.Session
	m    *machine.Machine
	file string
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos+1 < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) check(k tokenKind) bool { return p.cur().kind == k }

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if !p.check(k) {
		return token{}, p.errorf(p.cur(), "expected %s", what)
	}
	return p.advance(), nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return basmerrors.NewAt(basmerrors.SyntaxError, p.file, t.line, t.col, format, args...)
}

func (p *parser) skipNewlines() {
	for p.check(tokNewline) {
		p.advance()
	}
}

// expectEndOfStatement consumes the newline(s) or EOF that must follow
// every basic-block op and every control op.
func (p *parser) expectEndOfStatement() error {
	if p.check(tokEOF) {
		return nil
	}
	if !p.check(tokNewline) {
		return p.errorf(p.cur(), "expected end of line")
	}
	p.skipNewlines()
	return nil
}

func (p *parser) identIs(word string) bool {
	return p.check(tokIdent) && p.cur().text == word
}

// parseProgram parses the whole token stream into a Program, appending
// a trailing Quit op as the reference implementation's parse_program
// unconditionally does.
func (p *parser) parseProgram() (basm.Program, error) {
	p.skipNewlines()
	var prog basm.Program
	for !p.atEOF() {
		op, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		prog = append(prog, op)
		p.skipNewlines()
	}
	prog = append(prog, basm.NewTerminator(p.sess, basm.TermQuit))
	return prog, nil
}

// parseOp parses one top-level program element: a control op (quit,
// call, ret, jmp_if, jmp) tried first, falling back to a labeled or
// unlabeled basic block.
func (p *parser) parseOp() (basm.Op, error) {
	switch {
	case p.identIs("quit"):
		p.advance()
		if err := p.expectEndOfStatement(); err != nil {
			return basm.Op{}, err
		}
		return basm.NewTerminator(p.sess, basm.TermQuit), nil

	case p.identIs("call"):
		p.advance()
		label, err := p.parseLabelName()
		if err != nil {
			return basm.Op{}, err
		}
		if err := p.expectEndOfStatement(); err != nil {
			return basm.Op{}, err
		}
		op := basm.NewTerminator(p.sess, basm.TermCall)
		op.TargetLabel = label
		return op, nil

	case p.identIs("ret"):
		p.advance()
		if err := p.expectEndOfStatement(); err != nil {
			return basm.Op{}, err
		}
		return basm.NewTerminator(p.sess, basm.TermReturn), nil

	case p.identIs("jmp_if"):
		p.advance()
		loc, err := p.parseDynLoc()
		if err != nil {
			return basm.Op{}, err
		}
		if _, err := p.expect(tokComma, "','"); err != nil {
			return basm.Op{}, err
		}
		label, err := p.parseLabelName()
		if err != nil {
			return basm.Op{}, err
		}
		if err := p.expectEndOfStatement(); err != nil {
			return basm.Op{}, err
		}
		op := basm.NewTerminator(p.sess, basm.TermJmpIf)
		op.Cond = loc
		op.TargetLabel = label
		return op, nil

	case p.identIs("jmp"):
		p.advance()
		label, err := p.parseLabelName()
		if err != nil {
			return basm.Op{}, err
		}
		if err := p.expectEndOfStatement(); err != nil {
			return basm.Op{}, err
		}
		op := basm.NewTerminator(p.sess, basm.TermJmp)
		op.TargetLabel = label
		return op, nil

	default:
		return p.parseLabeledBasicBlock()
	}
}

// parseLabeledBasicBlock parses an optional `name:` label followed by
// zero or more basic-block ops, terminated implicitly by hitting a
// control-op keyword, another label, or EOF.
func (p *parser) parseLabeledBasicBlock() (basm.Op, error) {
	var label *string
	if p.check(tokIdent) && p.peekIsLabel() {
		name := p.advance().text
		p.advance() // ':'
		label = &name
		if err := p.expectEndOfStatement(); err != nil {
			return basm.Op{}, err
		}
	}

	var ops []basm.BasicBlockOp
	for p.startsBasicBlockOp() {
		op, err := p.parseBasicBlockOp()
		if err != nil {
			return basm.Op{}, err
		}
		ops = append(ops, op)
		if err := p.expectEndOfStatement(); err != nil {
			return basm.Op{}, err
		}
	}

	bb := basm.NewBasicBlock(p.sess, label, ops)
	if label != nil {
		return basm.Op{Kind: basm.TermLabel, Block: bb}, nil
	}
	return basm.Op{Kind: basm.TermBasicBlock, Block: bb}, nil
}

// peekIsLabel reports whether the current identifier is immediately
// followed by ':', the signature of a label line.
func (p *parser) peekIsLabel() bool {
	return p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokColon
}

var basicBlockOpKeywords = map[string]bool{
	"hex_dump": true, "dec_dump": true, "inc": true, "dec": true,
	"getchar": true, "putchar": true, "putint": true,
	"push": true, "pop": true, "neg": true,
}

// binaryOpKeywords are the infix arithmetic/comparison keywords that
// follow a dynamic location: `<dest> <op> <lhs>[, <rhs>]`.
var binaryOpKeywords = map[string]basm.OpKind{
	"add": basm.OpAdd, "sub": basm.OpSub, "mul": basm.OpMul,
	"div": basm.OpDiv, "mod": basm.OpMod, "eq": basm.OpEq, "ne": basm.OpNe,
}

// startsBasicBlockOp decides whether the current position begins a
// basic-block op rather than a control op, a label, or the next
// top-level Op. `set` and `lea` both start with a dynamic location
// (an identifier that is a register name, or '['), so they are
// recognized by elimination: anything that isn't a control-op keyword
// or a label is tried as a basic-block op.
func (p *parser) startsBasicBlockOp() bool {
	if p.check(tokNewline) || p.check(tokEOF) {
		return false
	}
	if p.check(tokIdent) {
		switch p.cur().text {
		case "quit", "call", "ret", "jmp_if", "jmp":
			return false
		}
		if p.peekIsLabel() {
			return false
		}
		return true
	}
	return p.check(tokLBracket)
}

func (p *parser) parseBasicBlockOp() (basm.BasicBlockOp, error) {
	if p.check(tokIdent) && basicBlockOpKeywords[p.cur().text] {
		switch p.cur().text {
		case "hex_dump":
			p.advance()
			return basm.BasicBlockOp{Kind: basm.OpHexDump}, nil
		case "dec_dump":
			p.advance()
			return basm.BasicBlockOp{Kind: basm.OpDecimalDump}, nil
		case "inc":
			return p.parseIncDec(basm.OpInc)
		case "dec":
			return p.parseIncDec(basm.OpDec)
		case "getchar":
			return p.parseOptionalLocOp(basm.OpGetChar)
		case "putchar":
			return p.parseOperandOp(basm.OpPutChar)
		case "putint":
			return p.parseOperandOp(basm.OpPutInt)
		case "push":
			return p.parseOperandOp(basm.OpPush)
		case "pop":
			return p.parseOptionalLocOp(basm.OpPop)
		case "neg":
			return p.parseNeg()
		}
	}

	// Anything else starting with a dynamic location is `set`
	// (dest = src), `lea` (dest lea src [+/- offset]), or one of the
	// binary ops (dest add/sub/mul/div/mod/eq/ne lhs[, rhs]).
	dest, err := p.parseDynLoc()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	if p.check(tokEquals) {
		p.advance()
		src, err := p.parseOperand()
		if err != nil {
			return basm.BasicBlockOp{}, err
		}
		return basm.BasicBlockOp{Kind: basm.OpSet, Dest: &dest, Src: src}, nil
	}
	if p.identIs("lea") {
		p.advance()
		return p.parseLea(dest)
	}
	if p.check(tokIdent) {
		if kind, ok := binaryOpKeywords[p.cur().text]; ok {
			return p.parseBinaryOp(kind, dest)
		}
	}
	return basm.BasicBlockOp{}, p.errorf(p.cur(), "expected '=', 'lea', or a binary op after location")
}

func (p *parser) parseIncDec(kind basm.OpKind) (basm.BasicBlockOp, error) {
	p.advance() // 'inc'/'dec'
	loc, err := p.parseDynLoc()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	op := basm.BasicBlockOp{Kind: kind, IncDecLoc: loc}
	if p.check(tokComma) {
		p.advance()
		n, err := p.parseImmediateLiteral()
		if err != nil {
			return basm.BasicBlockOp{}, err
		}
		op.IncDecAmount = &n
	}
	return op, nil
}

func (p *parser) parseOptionalLocOp(kind basm.OpKind) (basm.BasicBlockOp, error) {
	p.advance() // keyword
	if !p.check(tokIdent) && !p.check(tokLBracket) {
		return basm.BasicBlockOp{Kind: kind}, nil
	}
	loc, err := p.parseDynLoc()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	return basm.BasicBlockOp{Kind: kind, Dest: &loc}, nil
}

func (p *parser) parseOperandOp(kind basm.OpKind) (basm.BasicBlockOp, error) {
	p.advance() // keyword
	op, err := p.parseOperand()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	return basm.BasicBlockOp{Kind: kind, Operand: op}, nil
}

// parseBinaryOp parses `<dest> <op> <a>[, <b>]`, with dest already
// consumed by the caller. When b is omitted, the op is the
// two-operand form `dest = dest <op> a`: dest itself is reused as the
// left operand, and a becomes the right. When b is present, it's the
// three-operand form `dest = a <op> b`.
func (p *parser) parseBinaryOp(kind basm.OpKind, dest machine.DynLoc) (basm.BasicBlockOp, error) {
	p.advance() // op keyword
	a, err := p.parseOperand()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	if p.check(tokComma) {
		p.advance()
		b, err := p.parseOperand()
		if err != nil {
			return basm.BasicBlockOp{}, err
		}
		return basm.BasicBlockOp{Kind: kind, Dest: &dest, Lhs: a, Rhs: b}, nil
	}
	return basm.BasicBlockOp{Kind: kind, Dest: &dest, Lhs: machine.LocationOperand(dest), Rhs: a}, nil
}

// parseNeg parses `neg <src>, <dest>`.
func (p *parser) parseNeg() (basm.BasicBlockOp, error) {
	p.advance() // 'neg'
	src, err := p.parseDynLoc()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	if _, err := p.expect(tokComma, "','"); err != nil {
		return basm.BasicBlockOp{}, err
	}
	dest, err := p.parseDynLoc()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	return basm.BasicBlockOp{Kind: basm.OpNeg, NegSrc: src, Dest: &dest}, nil
}

func (p *parser) parseLea(dest machine.DynLoc) (basm.BasicBlockOp, error) {
	src, err := p.parseDynLoc()
	if err != nil {
		return basm.BasicBlockOp{}, err
	}
	op := basm.BasicBlockOp{
		Kind:       basm.OpGetAddr,
		Dest:       &dest,
		GetAddrSrc: machine.LocationOperand(src),
	}
	if p.check(tokPlus) || p.check(tokMinus) {
		negative := p.check(tokMinus)
		p.advance()
		offset, err := p.parseOperand()
		if err != nil {
			return basm.BasicBlockOp{}, err
		}
		op.GetAddrOffset = &offset
		op.GetAddrNegative = negative
	}
	return op, nil
}

func (p *parser) parseLabelName() (string, error) {
	t, err := p.expect(tokIdent, "label name")
	if err != nil {
		return "", err
	}
	return t.text, nil
}

func (p *parser) parseImmediateLiteral() (uint64, error) {
	t, err := p.expect(tokNumber, "number")
	if err != nil {
		return 0, err
	}
	return t.number, nil
}

func (p *parser) parseOperand() (machine.Operand, error) {
	if p.check(tokNumber) {
		n := p.advance().number
		return machine.ImmediateOperand(n), nil
	}
	loc, err := p.parseDynLoc()
	if err != nil {
		return machine.Operand{}, err
	}
	return machine.LocationOperand(loc), nil
}

// parseDynLoc parses `[<register>]` (stack-indirect), or a bare
// register (direct). Heap-indirect addressing has no surface syntax
// in the reference grammar (its heap-deref form is commented out
// there too); BASM programs reach the heap only indirectly, through
// operations that already carry a HeapIndirect DynLoc internally.
func (p *parser) parseDynLoc() (machine.DynLoc, error) {
	if p.check(tokLBracket) {
		p.advance()
		reg, err := p.parseRegister()
		if err != nil {
			return machine.DynLoc{}, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return machine.DynLoc{}, err
		}
		return machine.Stack(reg), nil
	}
	reg, err := p.parseRegister()
	if err != nil {
		return machine.DynLoc{}, err
	}
	return machine.DirectLoc(reg), nil
}

func (p *parser) parseRegister() (cell.Cell, error) {
	t, err := p.expect(tokIdent, "register name")
	if err != nil {
		return cell.Cell{}, err
	}
	c, ok := p.m.Register(t.text)
	if !ok {
		return cell.Cell{}, p.errorf(t, "unknown register %q", t.text)
	}
	return c, nil
}
