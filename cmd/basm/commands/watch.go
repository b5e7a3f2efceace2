package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"basm/internal/asciiart"
	"basm/internal/watchserver"
)

// WatchCommand implements `basm watch <file>`: serve a live-rebuilt
// brainfuck rendering of a BASM source file over a local WebSocket,
// recompiling on every detected change until interrupted.
func WatchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	addr := fs.String("addr", "localhost:6089", "address to serve on")
	sourceFlag := fs.String("source", "assembly", "source language: brainfuck|assembly")
	widthFlag := fs.String("width", "8", "cell width: 8|16|32")
	art := fs.String("art", "", "wrap each render in a named or file-path ascii-art template")
	comment := fs.String("comment", "", "filler text for ascii-art padding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: basm watch [flags] <file>")
	}
	path := fs.Arg(0)

	source := SourceAssembly
	if *sourceFlag == "brainfuck" || *sourceFlag == "bf" {
		source = SourceBrainfuck
	}
	source = InferSource(path, source)

	width, err := parseWidthFlag(*widthFlag)
	if err != nil {
		return err
	}

	opts := Options{Source: source, Target: TargetBrainfuck, Width: width, ArtTemplate: *art, Comment: *comment}

	compile := func(src []byte) (string, error) {
		bf, err := CompileToBF(path, src, opts)
		if err != nil {
			return "", err
		}
		if opts.ArtTemplate == "" {
			return bf, nil
		}
		tmpl, err := loadTemplate(opts.ArtTemplate)
		if err != nil {
			return "", err
		}
		return asciiart.ApplyTemplate(tmpl, bf, opts.Comment)
	}

	srv := watchserver.New(path, *addr, compile, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx)
}
