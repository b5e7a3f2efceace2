package backend

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"

	"basm/internal/bfop"
)

func TestEmitBFDelegatesToBfop(t *testing.T) {
	ops := []bfop.Op{{Kind: bfop.Add, Arg: 3}, {Kind: bfop.Put}}
	if got, want := EmitBF(ops, bfop.Width8), bfop.WriteBF(ops, bfop.Width8); got != want {
		t.Errorf("EmitBF = %q, want %q", got, want)
	}
}

func TestEmitCCellTypeByWidth(t *testing.T) {
	cases := []struct {
		width bfop.Width
		want  string
	}{
		{bfop.Width8, "unsigned char *tape"},
		{bfop.Width16, "unsigned short *tape"},
		{bfop.Width32, "unsigned int *tape"},
	}
	for _, c := range cases {
		out := EmitC(nil, c.width)
		if !strings.Contains(out, c.want) {
			t.Errorf("EmitC(width=%d) missing %q:\n%s", c.width, c.want, out)
		}
	}
}

func TestEmitCTranslatesEachOpKind(t *testing.T) {
	ops := []bfop.Op{
		{Kind: bfop.Move, Arg: 2},
		{Kind: bfop.Add, Arg: 1},
		{Kind: bfop.Zero},
		{Kind: bfop.Put},
		{Kind: bfop.Get},
		{Kind: bfop.While},
		{Kind: bfop.End},
	}
	out := EmitC(ops, bfop.Width8)
	for _, want := range []string{
		"ptr += 2;",
		"*ptr += 1;",
		"*ptr = 0;",
		"putchar(*ptr);",
		"getchar()",
		"while (*ptr) {",
		"}\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("EmitC output missing %q:\n%s", want, out)
		}
	}
}

func TestEmitCIsFreestandingAndBalanced(t *testing.T) {
	out := EmitC([]bfop.Op{{Kind: bfop.Add, Arg: 1}}, bfop.Width8)
	if !strings.HasPrefix(out, "#include <stdio.h>\n") {
		t.Errorf("EmitC output does not start with the stdio include:\n%s", out)
	}
	if strings.Count(out, "{") != strings.Count(out, "}") {
		t.Errorf("EmitC output has unbalanced braces:\n%s", out)
	}
}

func TestBuildAndRunExe(t *testing.T) {
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not available")
	}
	ops := bfop.Parse("++++++++[>++++++++<-]>+.")
	src := EmitC(ops, bfop.Width8)

	dir := t.TempDir()
	exePath, err := BuildExe(context.Background(), dir, src)
	if err != nil {
		t.Fatalf("BuildExe: %v", err)
	}
	if _, err := os.Stat(exePath); err != nil {
		t.Fatalf("built exe not found: %v", err)
	}

	out, err := RunExe(context.Background(), exePath, nil)
	if err != nil {
		t.Fatalf("RunExe: %v", err)
	}
	if len(out) != 1 || out[0] != 65 {
		t.Fatalf("RunExe output = %v, want [65] ('A')", out)
	}
}
