package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kr/pretty"

	"basm/internal/asciiart"
	"basm/internal/basmparse"
	"basm/internal/bfop"
	"basm/internal/buildcache"
	"basm/internal/machine"
	"basm/internal/session"
)

// BuildCommand implements `basm build <file>`.
func BuildCommand(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	output := fs.String("output", "", "output file path")
	sourceFlag := fs.String("source", "assembly", "source language: brainfuck|assembly")
	targetFlag := fs.String("target", "brainfuck", "target: brainfuck|c{,16,32}|exe{,16,32}|run{,16,32}")
	release := fs.Bool("release", false, "release mode (reserved for future optimization passes)")
	art := fs.String("art", "", "wrap brainfuck output in a named or file-path ascii-art template")
	comment := fs.String("comment", "", "filler text for ascii-art padding")
	noCache := fs.Bool("no-cache", false, "skip the build cache")
	debugAST := fs.Bool("debug-ast", false, "print the parsed AST and exit without emitting")
	verbose := fs.Bool("verbose", false, "log cache hits/misses and timing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: basm build [flags] <file>")
	}
	path := fs.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	opts, err := resolveOptions(path, *output, *sourceFlag, *targetFlag, *release, *art, *comment)
	if err != nil {
		return err
	}

	if *debugAST {
		return printDebugAST(path, src, opts)
	}

	SetVerbose(*verbose)

	cache, cacheKey := openCacheIfApplicable(*noCache, opts, src)
	if cache != nil {
		defer cache.Close()
		if artifact, hit, err := cache.Lookup(cacheKey); err == nil && hit {
			if *verbose {
				logger.Printf("cache hit (%s): %s", buildcache.SizeOf(len(artifact)), cacheKey)
			}
			return writeOutput(*output, opts, artifact, nil)
		}
	}

	artifact, err := Compile(context.Background(), path, src, opts)
	if err != nil {
		return err
	}

	finalBytes, finalText, err := renderArtifact(artifact, opts)
	if err != nil {
		return err
	}

	if cache != nil {
		if err := cache.Store(cacheKey, finalBytes); err != nil && *verbose {
			logger.Printf("cache store failed: %v", err)
		}
	}

	return writeOutput(*output, opts, finalBytes, []byte(finalText))
}

// resolveOptions applies extension inference on top of the flags, per
// spec.md §6: source/target flags are overridden when the file or
// output extension says otherwise.
func resolveOptions(path, output, sourceFlag, targetFlag string, release bool, art, comment string) (Options, error) {
	source := SourceAssembly
	if sourceFlag == "brainfuck" || sourceFlag == "bf" {
		source = SourceBrainfuck
	}
	source = InferSource(path, source)

	target, width, err := ParseTarget(targetFlag)
	if err != nil {
		return Options{}, err
	}
	target = InferTargetFromOutput(output, target)

	return Options{
		Source:      source,
		Target:      target,
		Width:       width,
		Release:     release,
		ArtTemplate: art,
		Comment:     comment,
	}, nil
}

// renderArtifact picks the bytes Compile produced for opts.Target and,
// for the brainfuck target, optionally wraps them in ascii art.
func renderArtifact(a *Artifact, opts Options) ([]byte, string, error) {
	switch opts.Target {
	case TargetC:
		return []byte(a.C), a.C, nil
	case TargetExe, TargetRun:
		data, err := os.ReadFile(a.Exe)
		return data, "", err
	default:
		text := a.BF
		if opts.ArtTemplate != "" {
			tmpl, err := loadTemplate(opts.ArtTemplate)
			if err != nil {
				return nil, "", err
			}
			rendered, err := asciiart.ApplyTemplate(tmpl, text, opts.Comment)
			if err != nil {
				return nil, "", err
			}
			text = rendered
		}
		return []byte(text), text, nil
	}
}

func loadTemplate(nameOrPath string) (string, error) {
	if t, err := asciiart.Load(nameOrPath); err == nil {
		return t, nil
	}
	data, err := os.ReadFile(nameOrPath)
	if err != nil {
		return "", fmt.Errorf("no such bundled template and no such file: %q", nameOrPath)
	}
	return string(data), nil
}

func writeOutput(output string, opts Options, data []byte, _ []byte) error {
	if output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil && filepath.Dir(output) != "." {
		return fmt.Errorf("create output directory: %w", err)
	}
	mode := os.FileMode(0o644)
	if opts.Target == TargetExe || opts.Target == TargetRun {
		mode = 0o755
	}
	return os.WriteFile(output, data, mode)
}

func openCacheIfApplicable(noCache bool, opts Options, src []byte) (*buildcache.Cache, string) {
	if noCache {
		return nil, ""
	}
	// Art wrapping is cheap; keying the cache on it would multiply
	// entries without saving real work, so brainfuck/c targets with
	// --art set skip the cache entirely.
	if opts.ArtTemplate != "" && opts.Target != TargetExe && opts.Target != TargetRun {
		return nil, ""
	}
	dir := cacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ""
	}
	cache, err := buildcache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil, ""
	}
	key := buildcache.Key(src, targetName(opts.Target), cellWidthName(opts.Width), opts.Release, opts.ArtTemplate)
	return cache, key
}

func targetName(t TargetKind) string {
	switch t {
	case TargetC:
		return "c"
	case TargetExe:
		return "exe"
	case TargetRun:
		return "run"
	default:
		return "brainfuck"
	}
}

func cellWidthName(w bfop.Width) string {
	switch w {
	case bfop.Width16:
		return "16"
	case bfop.Width32:
		return "32"
	default:
		return "8"
	}
}

func cacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "basm")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "basm")
}

func printDebugAST(path string, src []byte, opts Options) error {
	if opts.Source == SourceBrainfuck {
		fmt.Printf("%# v\n", pretty.Formatter(bfop.Parse(string(src))))
		return nil
	}
	src, err := withIncludesResolved(path, src, opts.Source)
	if err != nil {
		return err
	}

	sess := session.New()
	m := machine.New(sess)
	prog, err := basmparse.Parse(sess, m, path, string(src))
	if err != nil {
		return err
	}
	fmt.Printf("%# v\n", pretty.Formatter(prog))
	return nil
}
