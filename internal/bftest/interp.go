// Package bftest is a minimal Brainfuck interpreter used only by other
// packages' tests, to check emitted BF text by actually running it
// rather than asserting on its literal characters.
package bftest

import (
	"fmt"

	"basm/internal/bfop"
)

const tapeSize = 30000

// Run executes ops over an 8-bit tape, feeding input as the program's
// stdin and returning everything it writes to stdout.
func Run(ops []bfop.Op, input []byte) ([]byte, error) {
	tape := make([]byte, tapeSize)
	var out []byte
	ptr := 0
	inPos := 0

	jumps, err := matchBrackets(ops)
	if err != nil {
		return nil, err
	}

	for pc := 0; pc < len(ops); pc++ {
		op := ops[pc]
		switch op.Kind {
		case bfop.Move:
			ptr += op.Arg
			if ptr < 0 || ptr >= tapeSize {
				return nil, fmt.Errorf("tape pointer out of bounds at pc %d: %d", pc, ptr)
			}
		case bfop.Add:
			tape[ptr] = byte(int(tape[ptr]) + op.Arg)
		case bfop.Zero:
			tape[ptr] = 0
		case bfop.Put:
			out = append(out, tape[ptr])
		case bfop.Get:
			if inPos < len(input) {
				tape[ptr] = input[inPos]
				inPos++
			} else {
				tape[ptr] = 0
			}
		case bfop.While:
			if tape[ptr] == 0 {
				pc = jumps[pc]
			}
		case bfop.End:
			if tape[ptr] != 0 {
				pc = jumps[pc]
			}
		case bfop.HexDump, bfop.DecDump:
			// diagnostic-only; not semantically meaningful for tests
		}
	}
	return out, nil
}

func matchBrackets(ops []bfop.Op) (map[int]int, error) {
	jumps := make(map[int]int)
	var stack []int
	for i, op := range ops {
		switch op.Kind {
		case bfop.While:
			stack = append(stack, i)
		case bfop.End:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unmatched ] at op %d", i)
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			jumps[start] = i
			jumps[i] = start
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unmatched [ at op %d", stack[len(stack)-1])
	}
	return jumps, nil
}

// RunText parses and runs raw BF source text.
func RunText(src string, input []byte) ([]byte, error) {
	return Run(bfop.Parse(src), input)
}
