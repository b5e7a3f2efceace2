// Package backend turns a lowered BF op sequence into an output
// artifact: raw BF text, a standalone C program, or (by shelling out to
// gcc) a native executable. The C emission and dump-loop bodies are
// transcribed from the reference implementation's compile_to_c; the
// executable pipeline follows its compile_to_exe/compile_and_run.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"basm/internal/bfop"
)

// Target names the kinds of artifact this package can produce.
type Target int

const (
	TargetBF Target = iota
	TargetC
	TargetExe
)

// EmitBF re-serializes an op sequence back to BF source text at the
// given cell width (spec.md §5.F).
func EmitBF(ops []bfop.Op, width bfop.Width) string {
	return bfop.WriteBF(ops, width)
}

// cCellType maps a cell width to the C type backing the tape array.
func cCellType(width bfop.Width) string {
	switch width {
	case bfop.Width16:
		return "unsigned short"
	case bfop.Width32:
		return "unsigned int"
	default:
		return "unsigned char"
	}
}

const tapeSize = 30000

// EmitC compiles an op sequence into a freestanding C program that
// simulates the BF tape at the given cell width. The preamble, main
// signature, and dump-loop bodies are fixed text matched to the
// reference implementation so that a human diffing the two outputs
// would see the same shape.
func EmitC(ops []bfop.Op, width bfop.Width) string {
	var b strings.Builder
	b.WriteString("#include <stdio.h>\n")
	b.WriteString("#include <stdlib.h>\n")
	b.WriteString("int main() {\n")
	fmt.Fprintf(&b, "%s *tape = calloc(%d, sizeof(%s));\n", cCellType(width), tapeSize, cCellType(width))
	fmt.Fprintf(&b, "%s *ptr = tape;\n", cCellType(width))
	b.WriteString("char ch;\n")
	for _, op := range ops {
		b.WriteString(writeC(op))
	}
	b.WriteString("free(tape);\nreturn 0;\n}\n")
	return b.String()
}

func writeC(op bfop.Op) string {
	switch op.Kind {
	case bfop.Move:
		return fmt.Sprintf("ptr += %d;\n", op.Arg)
	case bfop.Add:
		return fmt.Sprintf("*ptr += %d;\n", op.Arg)
	case bfop.Zero:
		return "*ptr = 0;\n"
	case bfop.Put:
		return "putchar(*ptr);\n"
	case bfop.Get:
		return "*ptr = (ch = getchar()) == EOF ? 0 : ch;\n"
	case bfop.While:
		return "while (*ptr) {\n"
	case bfop.End:
		return "}\n"
	case bfop.HexDump:
		return dumpLoop("%02x ")
	case bfop.DecDump:
		return dumpLoop("%3d ")
	default:
		return ""
	}
}

func dumpLoop(valueFmt string) string {
	return "for (int i = 0; i < 0x100; i++) {\n" +
		"if (i % 16 == 0) { printf(\"%03d-%03d: \", i, i+15); }\n" +
		fmt.Sprintf("printf(%q, tape[i]);\n", valueFmt) +
		"if ((i+1) % 16 == 0) { printf(\"\\n\"); }\n" +
		"}\n"
}

// compileMu serializes gcc invocations the same way the reference
// implementation's COMPILE_LOCK does, since two concurrent builds in
// the same scratch directory would clobber each other's main.c.
var compileMu sync.Mutex

// BuildExe writes a C source file to dir/main.c and shells out to gcc
// to produce dir/main on every platform. On failure the returned error
// wraps gcc's stderr.
func BuildExe(ctx context.Context, dir string, cSource string) (string, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	cPath := filepath.Join(dir, "main.c")
	if err := os.WriteFile(cPath, []byte(cSource), 0o644); err != nil {
		return "", errors.Wrap(err, "writing main.c")
	}

	outPath := filepath.Join(dir, "main")
	cmd := exec.CommandContext(ctx, "gcc", cPath, "-o", outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return outPath, errors.Wrapf(err, "gcc failed: %s", stderr.String())
	}
	return outPath, nil
}

// RunExe executes a previously built binary, piping stdin through and
// capturing stdout, mirroring compile_and_run_with_input.
func RunExe(ctx context.Context, exePath string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, exePath)
	cmd.Stdin = bytes.NewReader(stdin)
	out, err := cmd.Output()
	if err != nil {
		return out, errors.Wrapf(err, "running %s", exePath)
	}
	return out, nil
}
