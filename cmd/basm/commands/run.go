package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"

	"basm/internal/bfop"
)

// RunCommand implements `basm run <file>`: compile to a temporary
// binary and execute it with stdio inherited, always cleaning up the
// temp directory even if execution panics.
func RunCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	sourceFlag := fs.String("source", "assembly", "source language: brainfuck|assembly")
	widthFlag := fs.String("width", "8", "cell width: 8|16|32")
	verbose := fs.Bool("verbose", false, "log compile timing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: basm run [flags] <file>")
	}
	path := fs.Arg(0)
	SetVerbose(*verbose)

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	source := SourceAssembly
	if *sourceFlag == "brainfuck" || *sourceFlag == "bf" {
		source = SourceBrainfuck
	}
	source = InferSource(path, source)

	width, err := parseWidthFlag(*widthFlag)
	if err != nil {
		return err
	}

	opts := Options{Source: source, Target: TargetRun, Width: width}

	artifact, err := Compile(context.Background(), path, src, opts)
	if err != nil {
		return err
	}
	defer os.RemoveAll(artifact.Tmp)

	if *verbose {
		logger.Printf("running %s", artifact.Exe)
	}

	cmd := exec.Command(artifact.Exe)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func parseWidthFlag(s string) (bfop.Width, error) {
	switch s {
	case "8", "":
		return bfop.Width8, nil
	case "16":
		return bfop.Width16, nil
	case "32":
		return bfop.Width32, nil
	default:
		return 0, fmt.Errorf("unrecognized --width %q, want 8, 16, or 32", s)
	}
}
