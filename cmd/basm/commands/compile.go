// Package commands implements cmd/basm's subcommands, mirroring the
// teacher's cmd/sentra/commands package shape: one function per
// subcommand, each parsing its own flag.FlagSet and returning an
// error for main to report.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"basm/internal/backend"
	"basm/internal/basmparse"
	"basm/internal/bfop"
	"basm/internal/errors"
	"basm/internal/machine"
	"basm/internal/session"
)

// SourceKind is the input language.
type SourceKind int

const (
	SourceAssembly SourceKind = iota
	SourceBrainfuck
)

// TargetKind is the output format, independent of cell width.
type TargetKind int

const (
	TargetBrainfuck TargetKind = iota
	TargetC
	TargetExe
	TargetRun
)

// Options controls one compilation, gathered from CLI flags and
// extension inference.
type Options struct {
	Source      SourceKind
	Target      TargetKind
	Width       bfop.Width
	Release     bool
	ArtTemplate string
	Comment     string
}

// InferSource overrides current by the path's extension, per spec.md §6:
// .b/.bf -> brainfuck, .basm/.asm -> assembly. An unrecognized
// extension leaves the flag-provided value alone.
func InferSource(path string, current SourceKind) SourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".b", ".bf":
		return SourceBrainfuck
	case ".basm", ".asm":
		return SourceAssembly
	default:
		return current
	}
}

// ParseTarget decodes a --target flag value of the form
// "brainfuck|c{,16,32}|exe{,16,32}|run{,16,32}" into a TargetKind and
// a cell Width (default 8).
func ParseTarget(s string) (TargetKind, bfop.Width, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "brainfuck" || s == "bf" || s == "":
		return TargetBrainfuck, bfop.Width8, nil
	case s == "c":
		return TargetC, bfop.Width8, nil
	case s == "c16":
		return TargetC, bfop.Width16, nil
	case s == "c32":
		return TargetC, bfop.Width32, nil
	case s == "exe":
		return TargetExe, bfop.Width8, nil
	case s == "exe16":
		return TargetExe, bfop.Width16, nil
	case s == "exe32":
		return TargetExe, bfop.Width32, nil
	case s == "run":
		return TargetRun, bfop.Width8, nil
	case s == "run16":
		return TargetRun, bfop.Width16, nil
	case s == "run32":
		return TargetRun, bfop.Width32, nil
	default:
		return 0, 0, fmt.Errorf("unrecognized --target %q", s)
	}
}

// InferTargetFromOutput overrides target by --output's extension, per
// spec.md §6: .c -> C, empty or .exe -> exe. Anything else leaves
// current alone.
func InferTargetFromOutput(output string, current TargetKind) TargetKind {
	if output == "" {
		return current
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".c":
		return TargetC
	case ".exe", "":
		return TargetExe
	default:
		return current
	}
}

// CompileToBF compiles src (BASM or already-BF text, per opts.Source)
// down to canonical Brainfuck text at opts.Width.
func CompileToBF(filename string, src []byte, opts Options) (string, error) {
	if opts.Source == SourceBrainfuck {
		return bfop.WriteBF(bfop.Parse(string(src)), opts.Width), nil
	}

	src, err := withIncludesResolved(filename, src, opts.Source)
	if err != nil {
		return "", err
	}

	sess := session.New()
	m := machine.New(sess)
	prog, err := basmparse.Parse(sess, m, filename, string(src))
	if err != nil {
		return "", err
	}
	bf, err := prog.Assemble(m, sess)
	if err != nil {
		return "", err
	}
	return bfop.WriteBF(bfop.Parse(bf), opts.Width), nil
}

// Artifact holds everything a completed compilation can be asked to
// emit: the canonical BF text, and lazily, C source or a built binary.
type Artifact struct {
	BF   string
	C    string
	Exe  string // path to a built binary, TargetExe/TargetRun only
	Tmp  string // temp directory owning Exe, if any, for callers to clean up
}

// Compile runs the whole pipeline for one file: parse/lower to BF,
// then (if the target needs it) emit C and optionally shell out to gcc.
func Compile(ctx context.Context, filename string, src []byte, opts Options) (*Artifact, error) {
	bf, err := CompileToBF(filename, src, opts)
	if err != nil {
		return nil, err
	}
	art := &Artifact{BF: bf}

	if opts.Target == TargetBrainfuck {
		return art, nil
	}

	art.C = backend.EmitC(bfop.Parse(bf), opts.Width)
	if opts.Target == TargetC {
		return art, nil
	}

	tmp, err := os.MkdirTemp("", "basm-build-*")
	if err != nil {
		return nil, errors.New(errors.IOError, "create build directory: %v", err)
	}
	art.Tmp = tmp

	exePath, err := backend.BuildExe(ctx, tmp, art.C)
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}
	art.Exe = exePath
	return art, nil
}
