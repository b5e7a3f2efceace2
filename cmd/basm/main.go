// cmd/basm/main.go
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"basm/cmd/basm/commands"
	basmerrors "basm/internal/errors"
)

// colorError renders a BasmError's Error() text in red when stderr is
// a terminal, matching the teacher's preference for colorizing CLI
// error output only when a human is watching.
func colorError(msg string) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return msg
	}
	return "\x1b[31m" + msg + "\x1b[0m"
}

var commandAliases = map[string]string{
	"b": "build",
	"r": "run",
	"w": "watch",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command named by args and returns the process exit
// code, so it can be driven directly from tests without forking a real
// process.
func run(args []string) int {
	if len(args) == 0 {
		showUsage()
		return 1
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		showUsage()
		return 0
	}
	if cmd == "--version" || cmd == "-v" || cmd == "version" {
		cmd = "version"
	}

	var err error
	exitCode := 0
	func() {
		defer func() {
			if r := recover(); r != nil {
				if be, ok := r.(*basmerrors.BasmError); ok {
					fmt.Fprintln(os.Stderr, colorError(be.Error()))
					exitCode = 1
					return
				}
				fmt.Fprintf(os.Stderr, "panic: %v\n", r)
				exitCode = 1
			}
		}()

		switch cmd {
		case "build":
			err = commands.BuildCommand(args[1:])
		case "run":
			err = commands.RunCommand(args[1:])
		case "watch":
			err = commands.WatchCommand(args[1:])
		case "art":
			err = commands.ArtCommand(args[1:])
		case "mod":
			err = commands.ModCommand(args[1:])
		case "version":
			err = commands.VersionCommand(args[1:])
		default:
			fmt.Fprintf(os.Stderr, "basm: unknown command %q\n\n", cmd)
			showUsage()
			exitCode = 1
		}
	}()
	if exitCode != 0 {
		return exitCode
	}

	if err != nil {
		if be, ok := err.(*basmerrors.BasmError); ok {
			fmt.Fprintln(os.Stderr, colorError(be.Error()))
		} else {
			fmt.Fprintln(os.Stderr, colorError(fmt.Sprintf("basm: %v", err)))
		}
		return 1
	}
	return 0
}

func showUsage() {
	fmt.Println("basm - an assembly language that compiles down to Brainfuck")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  basm build [flags] <file>   Compile a .basm/.bf file     (alias: b)")
	fmt.Println("  basm run [flags] <file>     Compile and execute it       (alias: r)")
	fmt.Println("  basm watch [flags] <file>   Serve a live-rebuilt render  (alias: w)")
	fmt.Println("  basm art list               List bundled ascii-art templates")
	fmt.Println("  basm art show <name>        Print a bundled template")
	fmt.Println("  basm mod init <path>        Initialize a basm.mod file")
	fmt.Println("  basm mod tidy               Sort and validate basm.mod")
	fmt.Println("  basm version                Print the toolchain version")
	fmt.Println()
	fmt.Println("--target accepts brainfuck, c{,16,32}, exe{,16,32}, run{,16,32}.")
}
