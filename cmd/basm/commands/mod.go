package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"basm/internal/manifest"
)

const manifestFileName = "basm.mod"

// ModCommand implements `basm mod init` and `basm mod tidy`.
func ModCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: basm mod init|tidy")
	}
	switch args[0] {
	case "init":
		if len(args) < 2 {
			return fmt.Errorf("usage: basm mod init <module-path>")
		}
		return modInit(args[1])
	case "tidy":
		return modTidy()
	default:
		return fmt.Errorf("unrecognized mod subcommand %q, want init or tidy", args[0])
	}
}

func modInit(modulePath string) error {
	if _, err := os.Stat(manifestFileName); err == nil {
		return fmt.Errorf("%s already exists", manifestFileName)
	}
	m := &manifest.Manifest{Module: modulePath, Basm: currentBasmVersion}
	return manifest.Write(manifestFileName, m)
}

func modTidy() error {
	path, err := filepath.Abs(manifestFileName)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(path)
	if err != nil {
		return err
	}
	if err := manifest.Tidy(m); err != nil {
		return err
	}
	return manifest.Write(manifestFileName, m)
}
